package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kapu/pong-arena/internal/hub"
	"github.com/kapu/pong-arena/internal/notices"
	"github.com/kapu/pong-arena/internal/obslog"
	"github.com/kapu/pong-arena/pkg/wire"
	"go.uber.org/zap"
)

// Recorder is the persistence collaborator. It derives the winner itself.
type Recorder interface {
	RecordMatch(ctx context.Context, player1ID, player2ID string, score1, score2 int, kind string) (int64, error)
}

// Orchestrator drives a match attempt end to end: validate, check
// availability, create, invite, await, then start or cancel. It also owns
// the finish-and-save and cancel operations on live rooms.
type Orchestrator struct {
	rooms    *Registry
	hub      *hub.Registry
	recorder Recorder
	cat      *notices.Catalog

	inviteTimeout time.Duration
}

func NewOrchestrator(rooms *Registry, h *hub.Registry, recorder Recorder, cat *notices.Catalog, inviteTimeout time.Duration) *Orchestrator {
	if inviteTimeout <= 0 {
		inviteTimeout = 20 * time.Second
	}
	return &Orchestrator{
		rooms:         rooms,
		hub:           h,
		recorder:      recorder,
		cat:           cat,
		inviteTimeout: inviteTimeout,
	}
}

// CreateMatch runs the full flow for one inbound request. Any failure
// destroys the room if one was created, broadcasts a cancellation to
// whoever already holds a live connection, and returns an error naming
// the failed step for the dispatcher to report to the requester.
func (o *Orchestrator) CreateMatch(ctx context.Context, requester *hub.Conn, req *wire.CreateMatch) error {
	if err := Validate(req); err != nil {
		return err
	}

	names := make([]string, 0, len(req.Players))
	for _, p := range req.Players {
		names = append(names, strings.TrimSpace(p.Nick))
	}
	// fast-fail before resolving names; Create re-checks under its lock
	if o.rooms.AnyoneBusy(names) {
		return ErrPlayerBusy
	}

	room, err := o.rooms.Create(ctx, requester, req)
	if err != nil {
		return err
	}

	if err := NotifyInvitees(room); err != nil {
		reason := o.text("error.invite_failed", map[string]any{"Reason": err.Error()},
			"The match could not be started.")
		o.cancelRoom(room, reason)
		return fmt.Errorf("notify invitees: %w", err)
	}

	outcome, decliner := AwaitOutcome(ctx, room, o.inviteTimeout)
	switch outcome {
	case OutcomeAccepted:
		if o.rooms.Find(room.ID) == nil {
			// destroyed while waiting (occupant disconnected)
			return ErrInviteDeclined
		}
		o.startMatch(room)
		return nil
	case OutcomeDeclined:
		// a room destroyed mid-wait was already announced by whoever killed it
		if o.rooms.Find(room.ID) != nil {
			o.cancelRoom(room, o.declineReason(decliner))
		}
		if decliner != "" {
			return fmt.Errorf("%w: %s", ErrInviteDeclined, decliner)
		}
		return ErrInviteDeclined
	default:
		if o.rooms.Find(room.ID) != nil {
			reason := o.text("invite.timeout", nil, "Match cancelled: invitation timed out.")
			o.cancelRoom(room, reason)
		}
		return ErrInviteTimeout
	}
}

// declineReason names the declining player when known; a timeout or an
// anonymous decline gets the generic text.
func (o *Orchestrator) declineReason(decliner string) string {
	if decliner == "" {
		return o.text("invite.declined_unknown", nil, "Match cancelled: an invited player declined.")
	}
	return o.text("invite.declined", map[string]any{"Nick": decliner},
		"Match cancelled: "+decliner+" declined the invitation.")
}

// startMatch announces the live match. Seats were fixed at room creation
// and stay stable for the room's lifetime; each participant learns its own.
func (o *Orchestrator) startMatch(room *Room) {
	roster := room.Roster()
	for _, s := range room.Slots() {
		if s.Conn == nil {
			continue
		}
		o.hub.SendTo(s.Conn, &wire.StartMatch{
			Type:     wire.NoticeStart,
			RoomID:   room.ID,
			Seat:     s.Seat,
			Players:  roster,
			GameMode: string(room.GameMode),
			OppMode:  string(room.OppMode),
		})
	}
	obslog.L().Info("match_start",
		zap.String("room_id", room.ID),
		zap.String("game_mode", string(room.GameMode)),
		zap.Int("slots", len(roster)))
}

// FinishAndSave persists a reported final result. Only the networked
// best-of mode records anything; a roster mismatch discards the data but
// still tears the room down so a bad client cannot wedge a room open.
func (o *Orchestrator) FinishAndSave(ctx context.Context, requester *hub.Conn, m *wire.FinishMatch) error {
	room := o.rooms.Find(m.RoomID)
	if room == nil {
		return ErrNoSuchRoom
	}
	if room.GameMode != ModeBestOf || room.OppMode != OppOnline {
		return ErrNotRecordable
	}
	if _, ok := room.SlotOf(requester.UserID); !ok {
		return ErrNotParticipant
	}

	slots := room.Slots()
	if len(slots) != 2 || slots[0].Nick != m.Player1 || slots[1].Nick != m.Player2 {
		reason := o.text("match.roster_mismatch", nil,
			"Match closed: reported players did not match the room. The result was not recorded.")
		o.cancelRoom(room, reason)
		return ErrRosterMismatch
	}

	matchID, err := o.recorder.RecordMatch(ctx, slots[0].UserID, slots[1].UserID, m.Score1, m.Score2, string(ModeBestOf))
	if err != nil {
		reason := o.text("match.record_failed", nil, "Match closed: the result could not be recorded.")
		o.cancelRoom(room, reason)
		return fmt.Errorf("record match: %w", err)
	}

	text := o.text("match.finished", map[string]any{
		"Player1": m.Player1, "Player2": m.Player2,
		"Score1": m.Score1, "Score2": m.Score2,
	}, fmt.Sprintf("Match finished: %s %d : %d %s.", m.Player1, m.Score1, m.Score2, m.Player2))
	for _, s := range slots {
		if s.Conn != nil {
			o.hub.SendTo(s.Conn, wire.NewInfo(room.ID, text))
		}
	}
	o.rooms.Destroy(room.ID)
	obslog.L().Info("match_record",
		zap.String("room_id", room.ID),
		zap.Int64("match_id", matchID),
		zap.Int("score1", m.Score1),
		zap.Int("score2", m.Score2))
	return nil
}

// Cancel handles both explicit cancellation and finish-without-saving from
// any current participant. The room is destroyed unconditionally.
func (o *Orchestrator) Cancel(requester *hub.Conn, m *wire.CancelMatch) error {
	room := o.rooms.Find(m.RoomID)
	if room == nil {
		return ErrNoSuchRoom
	}
	slot, ok := room.SlotOf(requester.UserID)
	if !ok {
		return ErrNotParticipant
	}

	var reason string
	if strings.EqualFold(strings.TrimSpace(m.Status), "cancel") {
		reason = o.text("match.cancelled", map[string]any{"Nick": slot.Nick},
			"Match cancelled by "+slot.Nick+".")
	} else {
		reason = o.text("match.no_save", map[string]any{"Nick": slot.Nick},
			"Match ended by "+slot.Nick+". The result was not recorded.")
	}
	// the requester hears the cancellation too, so every side sees the room die
	o.cancelRoom(room, reason)
	return nil
}

// HandleGone tears down every room a user occupied once the reconnect
// grace has elapsed without a rebind.
func (o *Orchestrator) HandleGone(userID string) {
	for _, room := range o.rooms.RoomsOf(userID) {
		nick := userID
		if slot, ok := room.SlotOf(userID); ok {
			nick = slot.Nick
		}
		reason := o.text("match.player_left", map[string]any{"Nick": nick},
			"Match cancelled: "+nick+" disconnected.")
		o.cancelRoom(room, reason)
		obslog.L().Info("room_abandoned",
			zap.String("room_id", room.ID),
			zap.String("user_id", userID))
	}
}

// cancelRoom broadcasts a cancellation to every connected slot and
// destroys the room. Send failures are swallowed here; the room dies
// either way.
func (o *Orchestrator) cancelRoom(room *Room, reason string) {
	notice := wire.NewCancel(room.ID, reason)
	for _, s := range room.Slots() {
		if s.Conn == nil {
			continue
		}
		o.hub.SendTo(s.Conn, notice)
	}
	o.rooms.Destroy(room.ID)
}

func (o *Orchestrator) text(key string, data any, fallback string) string {
	if o.cat == nil {
		return fallback
	}
	return o.cat.RenderOr(key, data, fallback)
}

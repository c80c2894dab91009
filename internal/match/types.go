package match

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kapu/pong-arena/internal/hub"
	"github.com/kapu/pong-arena/internal/obslog"
	"github.com/kapu/pong-arena/pkg/wire"
	"go.uber.org/zap"
)

// GameMode selects the match format.
type GameMode string

const (
	ModeFreeplay   GameMode = "freeplay"
	ModeBestOf     GameMode = "bestof"
	ModeTournament GameMode = "tournament"
	ModeTeams      GameMode = "teams"
)

// OppMode selects how opponents are attached.
type OppMode string

const (
	OppSingle OppMode = "single"
	OppLocal  OppMode = "local"
	OppOnline OppMode = "online"
)

func ParseGameMode(s string) (GameMode, bool) {
	switch GameMode(strings.TrimSpace(s)) {
	case ModeFreeplay, ModeBestOf, ModeTournament, ModeTeams:
		return GameMode(strings.TrimSpace(s)), true
	}
	return "", false
}

func ParseOppMode(s string) (OppMode, bool) {
	switch OppMode(strings.TrimSpace(s)) {
	case OppSingle, OppLocal, OppOnline:
		return OppMode(strings.TrimSpace(s)), true
	}
	return "", false
}

// Acceptance is one slot's answer to a match invitation.
type Acceptance string

const (
	AcceptancePending  Acceptance = "PENDING"
	AcceptanceAccepted Acceptance = "ACCEPTED"
	AcceptanceDeclined Acceptance = "DECLINED"
)

// normalizeAcceptance maps a raw client answer onto the two terminal
// states. Anything that is not clearly an accept counts as a decline.
func normalizeAcceptance(raw string) Acceptance {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "accept", "accepted", "yes", "ok", "true":
		return AcceptanceAccepted
	default:
		return AcceptanceDeclined
	}
}

// Slot is one seat in a room. Human seats carry a resolved user id and a
// reference to that user's live connection; AI seats are always accepted.
type Slot struct {
	Nick   string
	AI     bool
	UserID string
	Conn   *hub.Conn
	State  Acceptance
	Seat   int
}

// Room is one proposed-or-active match. Slot mutation goes through the
// room's mutex; the changed channel nudges a pending invitation wait and
// done is closed exactly once on destroy.
type Room struct {
	ID       string
	GameMode GameMode
	OppMode  OppMode

	mu    sync.Mutex
	slots []*Slot

	changed   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	createdAt time.Time
}

func newRoom(id string, gm GameMode, om OppMode, slots []*Slot) *Room {
	return &Room{
		ID:        id,
		GameMode:  gm,
		OppMode:   om,
		slots:     slots,
		changed:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		createdAt: time.Now(),
	}
}

// Changed signals that some slot's acceptance state moved.
func (r *Room) Changed() <-chan struct{} { return r.changed }

// Done is closed when the room is destroyed.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) markDone() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Room) nudge() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// Slots returns a snapshot copy of the seats in order.
func (r *Room) Slots() []Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Slot, len(r.slots))
	for i, s := range r.slots {
		out[i] = *s
	}
	return out
}

// SlotOf finds the human slot bound to userID.
func (r *Room) SlotOf(userID string) (Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if !s.AI && s.UserID == userID {
			return *s, true
		}
	}
	return Slot{}, false
}

// SetAcceptance writes a normalized answer to the matching human slot.
// An answer from a user not seated in the room is ignored, not an error.
func (r *Room) SetAcceptance(userID, rawAnswer string) {
	state := normalizeAcceptance(rawAnswer)
	r.mu.Lock()
	var hit bool
	for _, s := range r.slots {
		if !s.AI && s.UserID == userID {
			s.State = state
			hit = true
			break
		}
	}
	r.mu.Unlock()
	if !hit {
		obslog.L().Warn("acceptance_ignored",
			zap.String("room_id", r.ID),
			zap.String("user_id", userID))
		return
	}
	obslog.L().Info("acceptance_set",
		zap.String("room_id", r.ID),
		zap.String("user_id", userID),
		zap.String("state", string(state)))
	r.nudge()
}

// Rebind points every slot held by userID at a fresh connection after a
// reconnect within the grace window.
func (r *Room) Rebind(userID string, c *hub.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if !s.AI && s.UserID == userID {
			s.Conn = c
		}
	}
}

// Roster builds the outbound view of the seats.
func (r *Room) Roster() []wire.RosterEntry {
	slots := r.Slots()
	out := make([]wire.RosterEntry, len(slots))
	for i, s := range slots {
		out[i] = wire.RosterEntry{Nick: s.Nick, AI: s.AI, Seat: s.Seat}
	}
	return out
}

// Outcome is the tri-state result of an invitation rendezvous.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeAccepted
	OutcomeDeclined
	OutcomeTimedOut
)

// InviteStatus derives the invitation outcome from the human slots:
// declined the moment any slot declines, accepted once all accept,
// pending otherwise. The decliner's nick is reported when known.
func (r *Room) InviteStatus() (Outcome, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allAccepted := true
	for _, s := range r.slots {
		if s.AI {
			continue
		}
		switch s.State {
		case AcceptanceDeclined:
			return OutcomeDeclined, s.Nick
		case AcceptanceAccepted:
		default:
			allAccepted = false
		}
	}
	if allAccepted {
		return OutcomeAccepted, ""
	}
	return OutcomePending, ""
}

// Shared error vocabulary for the matchmaking flow.
var (
	ErrBadPlayerCount   = errors.New("match requires exactly 2 or 4 players")
	ErrBadPlayerEntry   = errors.New("player entry must carry a nick and an ai flag")
	ErrDuplicateNick    = errors.New("duplicate player nick")
	ErrBadGameMode      = errors.New("unknown game mode")
	ErrBadOppMode       = errors.New("unknown opponent mode")
	ErrRoomsFull        = errors.New("too many active rooms")
	ErrPlayerBusy       = errors.New("a requested player is already in an active match")
	ErrPlayerOffline    = errors.New("player has no live connection")
	ErrNoSuchRoom       = errors.New("no such room")
	ErrNotParticipant   = errors.New("requester is not in the room")
	ErrNotRecordable    = errors.New("room mode does not record results")
	ErrRosterMismatch   = errors.New("reported players do not match the room roster")
	ErrInviteDeclined   = errors.New("invitation declined")
	ErrInviteTimeout    = errors.New("invitation timed out")
	ErrIDSpaceExhausted = errors.New("room id allocation failed")
)

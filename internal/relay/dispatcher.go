package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/kapu/pong-arena/internal/hub"
	"github.com/kapu/pong-arena/internal/match"
	"github.com/kapu/pong-arena/internal/notices"
	"github.com/kapu/pong-arena/internal/obslog"
	"github.com/kapu/pong-arena/pkg/wire"
	"go.uber.org/zap"
)

const collaboratorTimeout = 10 * time.Second

// FriendSource lists a user's friends (profile service).
type FriendSource interface {
	FriendsOf(ctx context.Context, userID string) ([]string, error)
}

// Dispatcher demultiplexes inbound frames by type tag and fans relayed
// game state out to room co-occupants. Malformed input is reported back to
// the sender; nothing that arrives on the wire may kill the dispatcher.
type Dispatcher struct {
	hub     *hub.Registry
	rooms   *match.Registry
	orch    *match.Orchestrator
	friends FriendSource
	cat     *notices.Catalog
}

func New(h *hub.Registry, rooms *match.Registry, orch *match.Orchestrator, friends FriendSource, cat *notices.Catalog) *Dispatcher {
	return &Dispatcher{hub: h, rooms: rooms, orch: orch, friends: friends, cat: cat}
}

// Handle consumes one raw frame from a registered connection.
func (d *Dispatcher) Handle(c *hub.Conn, raw []byte) {
	msg, err := wire.Decode(raw)
	if err != nil {
		obslog.L().Warn("dispatch_decode_error",
			zap.String("user_id", c.UserID),
			zap.Error(err))
		text := "Malformed request: " + err.Error()
		if d.cat != nil {
			text = d.cat.RenderOr("error.bad_request", map[string]any{"Reason": err.Error()}, text)
		}
		d.hub.SendTo(c, wire.NewError(text))
		return
	}

	switch m := msg.(type) {
	case *wire.Chat:
		d.hub.Broadcast(wire.NewInfo("", m.Text), c)
	case *wire.FriendQuery:
		d.friendsOnline(c)
	case *wire.CreateMatch:
		// the invitation wait is long-lived; never block the read loop on it
		go d.createMatch(c, m)
	case *wire.InviteReply:
		d.rooms.SetAcceptance(m.RoomID, c.UserID, m.Acceptance)
	case *wire.CancelMatch:
		if err := d.orch.Cancel(c, m); err != nil {
			d.reportError(c, err)
		}
	case *wire.FinishMatch:
		ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
		defer cancel()
		if err := d.orch.FinishAndSave(ctx, c, m); err != nil {
			d.reportError(c, err)
		}
	case *wire.StateUpdate:
		d.relayState(c, m)
	}
}

func (d *Dispatcher) createMatch(c *hub.Conn, m *wire.CreateMatch) {
	if err := d.orch.CreateMatch(context.Background(), c, m); err != nil {
		obslog.L().Info("match_attempt_failed",
			zap.String("user_id", c.UserID),
			zap.Error(err))
		d.reportError(c, err)
	}
}

func (d *Dispatcher) friendsOnline(c *hub.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), collaboratorTimeout)
	defer cancel()
	friends, err := d.friends.FriendsOf(ctx, c.UserID)
	if err != nil {
		d.reportError(c, err)
		return
	}
	online := make(map[string]struct{})
	for _, uid := range d.hub.OnlineUserIDs() {
		online[uid] = struct{}{}
	}
	var onlineFriends []string
	for _, f := range friends {
		if _, ok := online[f]; ok {
			onlineFriends = append(onlineFriends, f)
		}
	}
	d.hub.SendTo(c, &wire.Info{Type: wire.NoticeInfo, Text: "friends online", Friends: onlineFriends})
}

// relayState forwards the raw payload verbatim to every other live,
// non-declined slot in the room. Unknown rooms drop the message.
func (d *Dispatcher) relayState(c *hub.Conn, m *wire.StateUpdate) {
	room := d.rooms.Find(m.RoomID)
	if room == nil {
		obslog.L().Warn("relay_drop_no_room",
			zap.String("room_id", m.RoomID),
			zap.String("user_id", c.UserID))
		return
	}
	payload := json.RawMessage(m.Raw)
	for _, s := range room.Slots() {
		if s.Conn == nil || s.Conn == c || s.State == match.AcceptanceDeclined {
			continue
		}
		d.hub.SendTo(s.Conn, payload)
	}
}

// reportError converts a handler error into an ERROR notice for the
// sender. Known capacity and availability failures get catalog texts; the
// rest carry the error detail (which names the step that failed).
func (d *Dispatcher) reportError(c *hub.Conn, err error) {
	text := err.Error()
	if d.cat != nil {
		switch {
		case errors.Is(err, match.ErrRoomsFull):
			text = d.cat.RenderOr("error.rooms_full", nil, text)
		case errors.Is(err, match.ErrPlayerBusy):
			text = d.cat.RenderOr("error.player_busy", nil, text)
		case errors.Is(err, match.ErrNoSuchRoom):
			text = d.cat.RenderOr("error.no_such_room", nil, text)
		case errors.Is(err, match.ErrNotParticipant):
			text = d.cat.RenderOr("error.not_participant", nil, text)
		}
	}
	d.hub.SendTo(c, wire.NewError(text))
}

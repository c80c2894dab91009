package match

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/kapu/pong-arena/internal/hub"
	"github.com/kapu/pong-arena/internal/obslog"
	"github.com/kapu/pong-arena/pkg/wire"
	"go.uber.org/zap"
)

// Allocation retries against the live registry. With uuid-derived codes a
// collision is already vanishingly unlikely.
const idAllocAttempts = 15

// Resolver maps display names to user ids (profile service).
type Resolver interface {
	ResolveUserIDByDisplayName(ctx context.Context, nick string) (string, error)
}

// ConnFinder looks up a user's live connection (connection registry).
type ConnFinder interface {
	FindByUserID(userID string) *hub.Conn
}

// Registry holds the active rooms. Ids are only unique among live rooms;
// a destroyed room's id may be reused.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	max   int

	resolver Resolver
	conns    ConnFinder
}

func NewRegistry(maxRooms int, resolver Resolver, conns ConnFinder) *Registry {
	if maxRooms <= 0 {
		maxRooms = 3
	}
	return &Registry{
		rooms:    make(map[string]*Room),
		max:      maxRooms,
		resolver: resolver,
		conns:    conns,
	}
}

func newRoomID() string {
	return "RM-" + strings.ToUpper(uuid.NewString()[:8])
}

// Create resolves every human participant and registers a new room, or
// fails atomically: no partially built room is ever visible. The
// requester's own slot starts accepted, AI slots are accepted, every
// other human slot starts pending. Capacity and availability are checked
// under the same lock that registers the room, so two concurrent creates
// can never both seat the same accepted player.
func (r *Registry) Create(ctx context.Context, requester *hub.Conn, req *wire.CreateMatch) (*Room, error) {
	gm, ok := ParseGameMode(req.GameMode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadGameMode, req.GameMode)
	}
	om, ok := ParseOppMode(req.OppMode)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadOppMode, req.OppMode)
	}

	slots := make([]*Slot, 0, len(req.Players))
	for i, p := range req.Players {
		s := &Slot{Nick: strings.TrimSpace(p.Nick), Seat: i + 1}
		if p.AI != nil && *p.AI {
			s.AI = true
			s.State = AcceptanceAccepted
			slots = append(slots, s)
			continue
		}
		uid, err := r.resolver.ResolveUserIDByDisplayName(ctx, s.Nick)
		if err != nil {
			return nil, fmt.Errorf("resolve player %q: %w", s.Nick, err)
		}
		conn := r.conns.FindByUserID(uid)
		if conn == nil {
			return nil, fmt.Errorf("%w: %s", ErrPlayerOffline, s.Nick)
		}
		s.UserID = uid
		s.Conn = conn
		if requester != nil && uid == requester.UserID {
			s.State = AcceptanceAccepted
		} else {
			s.State = AcceptancePending
		}
		slots = append(slots, s)
	}

	names := make([]string, 0, len(slots))
	for _, s := range slots {
		names = append(names, s.Nick)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rooms) >= r.max {
		return nil, ErrRoomsFull
	}
	if r.anyoneBusyLocked(names) {
		return nil, ErrPlayerBusy
	}
	var id string
	for attempt := 0; attempt < idAllocAttempts; attempt++ {
		cand := newRoomID()
		if _, exists := r.rooms[cand]; !exists {
			id = cand
			break
		}
	}
	if id == "" {
		return nil, ErrIDSpaceExhausted
	}
	room := newRoom(id, gm, om, slots)
	r.rooms[id] = room
	obslog.L().Info("room_create",
		zap.String("room_id", id),
		zap.String("game_mode", string(gm)),
		zap.String("opp_mode", string(om)),
		zap.Int("slots", len(slots)))
	return room, nil
}

// Find returns the live room for id, or nil.
func (r *Registry) Find(roomID string) *Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomID]
}

// Count reports how many rooms are live.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Destroy removes the room unconditionally. Destroying an unknown id is a
// logged no-op, not an error.
func (r *Registry) Destroy(roomID string) {
	r.mu.Lock()
	room, ok := r.rooms[roomID]
	if ok {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
	if !ok {
		obslog.L().Warn("room_destroy_missing", zap.String("room_id", roomID))
		return
	}
	room.markDone()
	obslog.L().Info("room_destroy", zap.String("room_id", roomID))
}

// AnyoneBusy reports whether any candidate name occupies a live room as an
// accepted participant. A still-pending invitee elsewhere is not busy.
func (r *Registry) AnyoneBusy(names []string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.anyoneBusyLocked(names)
}

// anyoneBusyLocked requires r.mu to be held. Room mutexes nest inside the
// registry mutex, never the other way around.
func (r *Registry) anyoneBusyLocked(names []string) bool {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.TrimSpace(n)] = struct{}{}
	}
	for _, room := range r.rooms {
		for _, s := range room.Slots() {
			if s.State != AcceptanceAccepted {
				continue
			}
			if _, hit := set[s.Nick]; hit {
				return true
			}
		}
	}
	return false
}

// RoomsOf lists the live rooms in which userID holds a slot.
func (r *Registry) RoomsOf(userID string) []*Room {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()
	var out []*Room
	for _, room := range rooms {
		if _, ok := room.SlotOf(userID); ok {
			out = append(out, room)
		}
	}
	return out
}

// Rebind points the user's slots in every live room at a new connection.
func (r *Registry) Rebind(userID string, c *hub.Conn) {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()
	for _, room := range rooms {
		room.Rebind(userID, c)
	}
}

// SetAcceptance routes an invitation answer to the room. Unknown rooms are
// logged and ignored; the answering endpoint is already gated.
func (r *Registry) SetAcceptance(roomID, userID, rawAnswer string) {
	room := r.Find(roomID)
	if room == nil {
		obslog.L().Warn("acceptance_no_room",
			zap.String("room_id", roomID),
			zap.String("user_id", userID))
		return
	}
	room.SetAcceptance(userID, rawAnswer)
}

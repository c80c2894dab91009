package match

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kapu/pong-arena/internal/hub"
	"github.com/kapu/pong-arena/pkg/wire"
)

type fakeTransport struct {
	mu     sync.Mutex
	frames []any
	closed bool
}

func (f *fakeTransport) WriteJSON(_ context.Context, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, v)
	return nil
}

func (f *fakeTransport) Close(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) Frames() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]any, len(f.frames))
	copy(out, f.frames)
	return out
}

// invitation returns the first INVITATION frame seen, if any.
func (f *fakeTransport) invitation() *wire.Invitation {
	for _, fr := range f.Frames() {
		if inv, ok := fr.(*wire.Invitation); ok {
			return inv
		}
	}
	return nil
}

func (f *fakeTransport) startMatch() *wire.StartMatch {
	for _, fr := range f.Frames() {
		if sm, ok := fr.(*wire.StartMatch); ok {
			return sm
		}
	}
	return nil
}

func (f *fakeTransport) cancel() *wire.CancelMatchNotice {
	for _, fr := range f.Frames() {
		if cn, ok := fr.(*wire.CancelMatchNotice); ok {
			return cn
		}
	}
	return nil
}

type fakeResolver map[string]string

func (f fakeResolver) ResolveUserIDByDisplayName(_ context.Context, nick string) (string, error) {
	uid, ok := f[nick]
	if !ok {
		return "", errors.New("unknown player: " + nick)
	}
	return uid, nil
}

type allowSessions struct{}

func (allowSessions) IsValid(context.Context, string, string) (bool, error) { return true, nil }

type recordCall struct {
	player1, player2 string
	score1, score2   int
	kind             string
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordCall
	err   error
}

func (f *fakeRecorder) RecordMatch(_ context.Context, p1, p2 string, s1, s2 int, kind string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.calls = append(f.calls, recordCall{p1, p2, s1, s2, kind})
	return int64(len(f.calls)), nil
}

func (f *fakeRecorder) Calls() []recordCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// arena wires a connection hub, a room registry and an orchestrator the
// way main does, with in-memory collaborators.
type arena struct {
	hub   *hub.Registry
	rooms *Registry
	orch  *Orchestrator
	rec   *fakeRecorder
}

func newArena(t *testing.T, resolver fakeResolver, inviteTimeout time.Duration) *arena {
	t.Helper()
	h := hub.NewRegistry(allowSessions{}, 0, nil)
	rooms := NewRegistry(3, resolver, h)
	rec := &fakeRecorder{}
	orch := NewOrchestrator(rooms, h, rec, nil, inviteTimeout)
	h.SetHooks(orch.HandleGone, rooms.Rebind)
	return &arena{hub: h, rooms: rooms, orch: orch, rec: rec}
}

func (a *arena) connect(t *testing.T, userID string) (*hub.Conn, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	c := hub.NewConn(tr, userID, "sess-"+userID)
	if err := a.hub.Register(context.Background(), c); err != nil {
		t.Fatalf("register %s: %v", userID, err)
	}
	return c, tr
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func humanPair(nick1, nick2 string) *wire.CreateMatch {
	return &wire.CreateMatch{
		Players: []wire.PlayerSpec{
			{Nick: nick1, AI: boolp(false)},
			{Nick: nick2, AI: boolp(false)},
		},
		GameMode: "bestof",
		OppMode:  "online",
	}
}

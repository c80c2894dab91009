package session

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewStoreWithClient(rdb), func() { mr.Close() }
}

func TestBindAndValidate(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := s.Bind(ctx, "u1", "sess-1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	ok, err := s.IsValid(ctx, "u1", "sess-1")
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if !ok {
		t.Fatalf("expected bound session to be valid")
	}
	ok, err = s.IsValid(ctx, "u1", "sess-other")
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if ok {
		t.Fatalf("different session id must not validate")
	}
}

func TestIsValidUnknownUser(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	ok, err := s.IsValid(context.Background(), "nobody", "sess-1")
	if err != nil {
		t.Fatalf("IsValid: %v", err)
	}
	if ok {
		t.Fatalf("unknown user must not validate")
	}
}

func TestRebindReplacesSession(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := s.Bind(ctx, "u1", "sess-1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := s.Bind(ctx, "u1", "sess-2"); err != nil {
		t.Fatalf("Bind#2: %v", err)
	}
	if ok, _ := s.IsValid(ctx, "u1", "sess-1"); ok {
		t.Fatalf("replaced session still valid")
	}
	if ok, _ := s.IsValid(ctx, "u1", "sess-2"); !ok {
		t.Fatalf("new session not valid")
	}
}

func TestClear(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if err := s.Bind(ctx, "u1", "sess-1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := s.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if ok, _ := s.IsValid(ctx, "u1", "sess-1"); ok {
		t.Fatalf("cleared session still valid")
	}
}

func TestBindEmptyArgs(t *testing.T) {
	s, cleanup := newTestStore(t)
	defer cleanup()

	if err := s.Bind(context.Background(), "", "sess-1"); err == nil {
		t.Fatalf("expected error for empty user id")
	}
	if err := s.Bind(context.Background(), "u1", ""); err == nil {
		t.Fatalf("expected error for empty session id")
	}
}

func TestNewStoreFromURL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	s, err := NewStore(fmt.Sprintf("redis://%s/0", mr.Addr()))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.Bind(ctx, "u1", "sess-1"); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if ok, _ := s.IsValid(ctx, "u1", "sess-1"); !ok {
		t.Fatalf("session not valid via URL-built store")
	}
}

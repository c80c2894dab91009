package match

import (
	"errors"
	"testing"

	"github.com/kapu/pong-arena/pkg/wire"
)

func boolp(b bool) *bool { return &b }

func validReq() *wire.CreateMatch {
	return &wire.CreateMatch{
		Players: []wire.PlayerSpec{
			{Nick: "Alice", AI: boolp(false)},
			{Nick: "Bob", AI: boolp(false)},
		},
		GameMode: "bestof",
		OppMode:  "online",
	}
}

func TestValidateOK(t *testing.T) {
	if err := Validate(validReq()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	four := validReq()
	four.Players = append(four.Players,
		wire.PlayerSpec{Nick: "Carol", AI: boolp(false)},
		wire.PlayerSpec{Nick: "CPU", AI: boolp(true)})
	four.GameMode = "teams"
	if err := Validate(four); err != nil {
		t.Fatalf("Validate 4p: %v", err)
	}
}

func TestValidatePlayerCount(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5} {
		req := validReq()
		req.Players = make([]wire.PlayerSpec, n)
		for i := range req.Players {
			req.Players[i] = wire.PlayerSpec{Nick: string(rune('A' + i)), AI: boolp(false)}
		}
		if err := Validate(req); !errors.Is(err, ErrBadPlayerCount) {
			t.Fatalf("n=%d: expected ErrBadPlayerCount, got %v", n, err)
		}
	}
}

func TestValidatePlayerEntry(t *testing.T) {
	req := validReq()
	req.Players[1].AI = nil
	if err := Validate(req); !errors.Is(err, ErrBadPlayerEntry) {
		t.Fatalf("missing ai flag: %v", err)
	}
	req = validReq()
	req.Players[0].Nick = "   "
	if err := Validate(req); !errors.Is(err, ErrBadPlayerEntry) {
		t.Fatalf("blank nick: %v", err)
	}
}

func TestValidateDuplicateNick(t *testing.T) {
	req := validReq()
	req.Players[1].Nick = "Alice"
	if err := Validate(req); !errors.Is(err, ErrDuplicateNick) {
		t.Fatalf("expected ErrDuplicateNick, got %v", err)
	}
}

func TestValidateModes(t *testing.T) {
	req := validReq()
	req.GameMode = "speedrun"
	if err := Validate(req); !errors.Is(err, ErrBadGameMode) {
		t.Fatalf("expected ErrBadGameMode, got %v", err)
	}
	req = validReq()
	req.OppMode = "remote"
	if err := Validate(req); !errors.Is(err, ErrBadOppMode) {
		t.Fatalf("expected ErrBadOppMode, got %v", err)
	}
}

func TestValidateOrderShortCircuits(t *testing.T) {
	// a bad count is reported even when later checks would fail too
	req := &wire.CreateMatch{
		Players:  []wire.PlayerSpec{{Nick: "", AI: nil}},
		GameMode: "nope",
		OppMode:  "nope",
	}
	if err := Validate(req); !errors.Is(err, ErrBadPlayerCount) {
		t.Fatalf("expected ErrBadPlayerCount first, got %v", err)
	}
}

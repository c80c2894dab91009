package match

import (
	"fmt"
	"strings"

	"github.com/kapu/pong-arena/pkg/wire"
)

// Validate checks a create-match request for structural correctness.
// Checks run in order and short-circuit on the first failure. It is pure:
// no room is allocated and no shared state is touched here.
func Validate(req *wire.CreateMatch) error {
	if req == nil {
		return ErrBadPlayerCount
	}
	n := len(req.Players)
	if n != 2 && n != 4 {
		return fmt.Errorf("%w: got %d", ErrBadPlayerCount, n)
	}
	for i, p := range req.Players {
		if p.AI == nil || strings.TrimSpace(p.Nick) == "" {
			return fmt.Errorf("%w: entry %d", ErrBadPlayerEntry, i+1)
		}
	}
	seen := make(map[string]struct{}, n)
	for _, p := range req.Players {
		nick := strings.TrimSpace(p.Nick)
		if _, dup := seen[nick]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateNick, nick)
		}
		seen[nick] = struct{}{}
	}
	if _, ok := ParseGameMode(req.GameMode); !ok {
		return fmt.Errorf("%w: %q", ErrBadGameMode, req.GameMode)
	}
	if _, ok := ParseOppMode(req.OppMode); !ok {
		return fmt.Errorf("%w: %q", ErrBadOppMode, req.OppMode)
	}
	return nil
}

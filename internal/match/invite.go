package match

import (
	"context"
	"fmt"
	"time"

	"github.com/kapu/pong-arena/internal/obslog"
	"github.com/kapu/pong-arena/pkg/wire"
	"go.uber.org/zap"
)

// NotifyInvitees sends an invitation to every pending human slot. A
// pending slot without a live connection means the room was built
// inconsistently, which is an error, not something to paper over.
func NotifyInvitees(room *Room) error {
	inv := &wire.Invitation{
		Type:     wire.NoticeInvitation,
		RoomID:   room.ID,
		Players:  room.Roster(),
		GameMode: string(room.GameMode),
		OppMode:  string(room.OppMode),
	}
	for _, s := range room.Slots() {
		if s.AI || s.State != AcceptancePending {
			continue
		}
		if !s.Conn.Open() {
			return fmt.Errorf("pending slot %q has no live connection", s.Nick)
		}
		if err := s.Conn.Send(inv); err != nil {
			obslog.L().Warn("invite_send_error",
				zap.String("room_id", room.ID),
				zap.String("nick", s.Nick),
				zap.Error(err))
			continue
		}
		obslog.L().Info("invite_sent",
			zap.String("room_id", room.ID),
			zap.String("nick", s.Nick))
	}
	return nil
}

// AwaitOutcome blocks until the room's invitation resolves. It wakes on
// every acceptance change instead of polling: a decline resolves
// immediately even while others are pending, all-accepted resolves
// immediately, and the timer settles everything else. Destroying the room
// mid-wait resolves as declined. Waits for different rooms share nothing.
func AwaitOutcome(ctx context.Context, room *Room, timeout time.Duration) (Outcome, string) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		st, decliner := room.InviteStatus()
		if st == OutcomeAccepted || st == OutcomeDeclined {
			return st, decliner
		}
		select {
		case <-room.Changed():
		case <-room.Done():
			return OutcomeDeclined, ""
		case <-timer.C:
			obslog.L().Info("invite_timeout", zap.String("room_id", room.ID))
			return OutcomeTimedOut, ""
		case <-ctx.Done():
			return OutcomeTimedOut, ""
		}
	}
}

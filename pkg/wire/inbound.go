package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Client → server messages are multiplexed over a small integer type tag.
const (
	TagChat        = 1
	TagFriendQuery = 2
	TagCreateMatch = 3
	TagInviteReply = 4
	TagCancelMatch = 5
	TagFinishMatch = 6
	TagStateUpdate = 7
)

var (
	ErrUnknownTag   = errors.New("unknown message type tag")
	ErrMissingField = errors.New("missing required field")
)

// PlayerSpec is one requested participant in a create-match request.
// AI is a pointer so that an absent "ai" field is distinguishable from false.
type PlayerSpec struct {
	Nick string `json:"nick"`
	AI   *bool  `json:"ai"`
}

// Chat is tag 1: free text rebroadcast to everyone else.
type Chat struct {
	Text string `json:"text"`
}

// FriendQuery is tag 2: which of the caller's friends are online.
type FriendQuery struct{}

// CreateMatch is tag 3.
type CreateMatch struct {
	Players  []PlayerSpec `json:"players"`
	GameMode string       `json:"gameMode"`
	OppMode  string       `json:"oppMode"`
}

// InviteReply is tag 4.
type InviteReply struct {
	RoomID     string `json:"roomId"`
	Acceptance string `json:"acceptance"`
}

// CancelMatch is tag 5: cancel or finish-without-saving.
type CancelMatch struct {
	RoomID string `json:"roomId"`
	Status string `json:"status"`
}

// FinishMatch is tag 6: report a final result for persistence. Player names
// must match the room roster in slot order.
type FinishMatch struct {
	RoomID  string `json:"roomId"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Score1  int    `json:"score1"`
	Score2  int    `json:"score2"`
}

// StateUpdate is tag 7: an opaque in-match snapshot. Raw keeps the full
// original message so the relay can forward it verbatim.
type StateUpdate struct {
	RoomID string          `json:"roomId"`
	Raw    json.RawMessage `json:"-"`
}

// Decode parses a raw inbound frame into exactly one typed variant.
// Field-presence checks happen here so handlers receive well-formed values.
func Decode(raw []byte) (any, error) {
	var head struct {
		Type int `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch head.Type {
	case TagChat:
		var m Chat
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode chat: %w", err)
		}
		if strings.TrimSpace(m.Text) == "" {
			return nil, fmt.Errorf("%w: text", ErrMissingField)
		}
		return &m, nil
	case TagFriendQuery:
		return &FriendQuery{}, nil
	case TagCreateMatch:
		var m CreateMatch
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode create match: %w", err)
		}
		if len(m.Players) == 0 {
			return nil, fmt.Errorf("%w: players", ErrMissingField)
		}
		return &m, nil
	case TagInviteReply:
		var m InviteReply
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode invite reply: %w", err)
		}
		if m.RoomID == "" {
			return nil, fmt.Errorf("%w: roomId", ErrMissingField)
		}
		if strings.TrimSpace(m.Acceptance) == "" {
			return nil, fmt.Errorf("%w: acceptance", ErrMissingField)
		}
		return &m, nil
	case TagCancelMatch:
		var m CancelMatch
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode cancel: %w", err)
		}
		if m.RoomID == "" {
			return nil, fmt.Errorf("%w: roomId", ErrMissingField)
		}
		return &m, nil
	case TagFinishMatch:
		var m FinishMatch
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode finish: %w", err)
		}
		if m.RoomID == "" {
			return nil, fmt.Errorf("%w: roomId", ErrMissingField)
		}
		if m.Player1 == "" || m.Player2 == "" {
			return nil, fmt.Errorf("%w: player names", ErrMissingField)
		}
		return &m, nil
	case TagStateUpdate:
		var m StateUpdate
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("decode state update: %w", err)
		}
		if m.RoomID == "" {
			return nil, fmt.Errorf("%w: roomId", ErrMissingField)
		}
		m.Raw = append(json.RawMessage(nil), raw...)
		return &m, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownTag, head.Type)
	}
}

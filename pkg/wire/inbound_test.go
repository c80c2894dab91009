package wire

import (
	"errors"
	"testing"
)

func TestDecodeChat(t *testing.T) {
	v, err := Decode([]byte(`{"type":1,"text":"hello"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m, ok := v.(*Chat)
	if !ok {
		t.Fatalf("expected *Chat, got %T", v)
	}
	if m.Text != "hello" {
		t.Fatalf("text: %q", m.Text)
	}
}

func TestDecodeChatEmptyText(t *testing.T) {
	if _, err := Decode([]byte(`{"type":1,"text":"  "}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestDecodeFriendQuery(t *testing.T) {
	v, err := Decode([]byte(`{"type":2}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if _, ok := v.(*FriendQuery); !ok {
		t.Fatalf("expected *FriendQuery, got %T", v)
	}
}

func TestDecodeCreateMatch(t *testing.T) {
	raw := []byte(`{"type":3,"players":[{"nick":"Alice","ai":false},{"nick":"CPU","ai":true}],"gameMode":"bestof","oppMode":"online"}`)
	v, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m, ok := v.(*CreateMatch)
	if !ok {
		t.Fatalf("expected *CreateMatch, got %T", v)
	}
	if len(m.Players) != 2 {
		t.Fatalf("players: %d", len(m.Players))
	}
	if m.Players[0].AI == nil || *m.Players[0].AI {
		t.Fatalf("player 1 ai flag: %v", m.Players[0].AI)
	}
	if m.Players[1].AI == nil || !*m.Players[1].AI {
		t.Fatalf("player 2 ai flag: %v", m.Players[1].AI)
	}
	if m.GameMode != "bestof" || m.OppMode != "online" {
		t.Fatalf("modes: %q %q", m.GameMode, m.OppMode)
	}
}

func TestDecodeCreateMatchAbsentAIStaysNil(t *testing.T) {
	v, err := Decode([]byte(`{"type":3,"players":[{"nick":"Alice"},{"nick":"Bob","ai":false}],"gameMode":"freeplay","oppMode":"online"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := v.(*CreateMatch)
	if m.Players[0].AI != nil {
		t.Fatalf("absent ai field should decode to nil, got %v", *m.Players[0].AI)
	}
}

func TestDecodeCreateMatchNoPlayers(t *testing.T) {
	if _, err := Decode([]byte(`{"type":3,"gameMode":"bestof","oppMode":"online"}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
}

func TestDecodeInviteReply(t *testing.T) {
	v, err := Decode([]byte(`{"type":4,"roomId":"RM-1","acceptance":"accept"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := v.(*InviteReply)
	if m.RoomID != "RM-1" || m.Acceptance != "accept" {
		t.Fatalf("fields: %+v", m)
	}
	if _, err := Decode([]byte(`{"type":4,"acceptance":"accept"}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("missing roomId: %v", err)
	}
	if _, err := Decode([]byte(`{"type":4,"roomId":"RM-1"}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("missing acceptance: %v", err)
	}
}

func TestDecodeFinishMatch(t *testing.T) {
	v, err := Decode([]byte(`{"type":6,"roomId":"RM-1","player1":"Alice","player2":"Bob","score1":3,"score2":1}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := v.(*FinishMatch)
	if m.Score1 != 3 || m.Score2 != 1 || m.Player1 != "Alice" {
		t.Fatalf("fields: %+v", m)
	}
	if _, err := Decode([]byte(`{"type":6,"roomId":"RM-1","player1":"Alice"}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("missing player2: %v", err)
	}
}

func TestDecodeStateUpdateKeepsRaw(t *testing.T) {
	raw := []byte(`{"type":7,"roomId":"RM-1","paddle":{"y":42},"ball":[1,2]}`)
	v, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := v.(*StateUpdate)
	if m.RoomID != "RM-1" {
		t.Fatalf("roomId: %q", m.RoomID)
	}
	if string(m.Raw) != string(raw) {
		t.Fatalf("raw payload mutated: %s", m.Raw)
	}
	// the copy must not alias the caller's buffer
	raw[0] = 'X'
	if string(m.Raw)[0] == 'X' {
		t.Fatalf("raw payload aliases the input buffer")
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	if _, err := Decode([]byte(`{"type":9,"text":"hi"}`)); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag, got %v", err)
	}
	if _, err := Decode([]byte(`{"type":0}`)); !errors.Is(err, ErrUnknownTag) {
		t.Fatalf("expected ErrUnknownTag for tag 0, got %v", err)
	}
}

func TestDecodeNotJSON(t *testing.T) {
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

package wire

// Server → client notices carry a string type discriminator. Relayed state
// updates are forwarded verbatim and carry no notice type.
const (
	NoticeInvitation = "INVITATION"
	NoticeInfo       = "INFO"
	NoticeStart      = "STARTMATCH"
	NoticeCancel     = "CANCELMATCH"
	NoticeError      = "ERROR"
)

// RosterEntry describes one seat in an outbound roster.
type RosterEntry struct {
	Nick string `json:"nick"`
	AI   bool   `json:"ai"`
	Seat int    `json:"seat,omitempty"`
}

// Invitation asks a pending participant to accept or decline a room.
type Invitation struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"roomId"`
	Players  []RosterEntry `json:"players"`
	GameMode string        `json:"gameMode"`
	OppMode  string        `json:"oppMode"`
}

// Info is a free-text notice, optionally scoped to a room. Friends carries
// the online-friends reply for tag-2 queries.
type Info struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"roomId,omitempty"`
	Text    string   `json:"text"`
	Friends []string `json:"friends,omitempty"`
}

// StartMatch tells one participant the match is live and which seat is theirs.
type StartMatch struct {
	Type     string        `json:"type"`
	RoomID   string        `json:"roomId"`
	Seat     int           `json:"seat"`
	Players  []RosterEntry `json:"players"`
	GameMode string        `json:"gameMode"`
	OppMode  string        `json:"oppMode"`
}

// CancelMatchNotice announces that a room is gone and why.
type CancelMatchNotice struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Reason string `json:"reason"`
}

// ErrorNotice reports a per-connection failure back to the sender.
type ErrorNotice struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewInfo(roomID, text string) *Info {
	return &Info{Type: NoticeInfo, RoomID: roomID, Text: text}
}

func NewCancel(roomID, reason string) *CancelMatchNotice {
	return &CancelMatchNotice{Type: NoticeCancel, RoomID: roomID, Reason: reason}
}

func NewError(text string) *ErrorNotice {
	return &ErrorNotice{Type: NoticeError, Text: text}
}

package hub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// ErrConnClosed is returned by Send once the underlying transport is gone.
var ErrConnClosed = errors.New("connection closed")

const writeTimeout = 5 * time.Second

// Transport is the minimal duplex-channel surface a Conn writes to.
// Production uses a websocket; tests substitute an in-memory recorder.
type Transport interface {
	WriteJSON(ctx context.Context, v any) error
	Close(reason string) error
}

// Conn is one live client connection, bound at handshake time to a user
// and that user's single active session. Rooms reference Conns but never
// own them.
type Conn struct {
	UserID    string
	SessionID string

	tr      Transport
	writeMu sync.Mutex
	open    atomic.Bool
}

func NewConn(tr Transport, userID, sessionID string) *Conn {
	c := &Conn{UserID: userID, SessionID: sessionID, tr: tr}
	c.open.Store(true)
	return c
}

// Open reports whether the transport is still writable.
func (c *Conn) Open() bool { return c != nil && c.open.Load() }

// Send marshals v to the peer. Writes are serialized per connection, which
// is what keeps one sender's relayed messages in order.
func (c *Conn) Send(v any) error {
	if !c.Open() {
		return ErrConnClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.tr.WriteJSON(ctx, v)
}

// Close marks the connection dead and closes the transport once.
func (c *Conn) Close(reason string) {
	if c == nil {
		return
	}
	if c.open.CompareAndSwap(true, false) {
		_ = c.tr.Close(reason)
	}
}

type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) WriteJSON(ctx context.Context, v any) error {
	return wsjson.Write(ctx, t.conn, v)
}

func (t *wsTransport) Close(reason string) error {
	return t.conn.Close(websocket.StatusNormalClosure, reason)
}

// NewWebsocketConn wraps an accepted websocket in a Conn.
func NewWebsocketConn(ws *websocket.Conn, userID, sessionID string) *Conn {
	return NewConn(&wsTransport{conn: ws}, userID, sessionID)
}

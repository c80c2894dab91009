package hub

import (
	"context"
	"net/http"
	"strings"

	"github.com/kapu/pong-arena/internal/obslog"
	"github.com/kapu/pong-arena/pkg/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Handler consumes one raw inbound frame from a registered connection.
type Handler func(c *Conn, raw []byte)

// Server accepts websocket handshakes, binds them to (userId, sessionId)
// from the verified token's query parameters, and runs the per-connection
// read loop.
type Server struct {
	reg    *Registry
	handle Handler
}

func NewServer(reg *Registry, handle Handler) *Server {
	return &Server{reg: reg, handle: handle}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	uid := strings.TrimSpace(r.URL.Query().Get("uid"))
	sid := strings.TrimSpace(r.URL.Query().Get("sid"))
	if uid == "" || sid == "" {
		http.Error(w, "missing credentials", http.StatusBadRequest)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}

	c := NewWebsocketConn(ws, uid, sid)
	if err := s.reg.Register(r.Context(), c); err != nil {
		return
	}
	s.readLoop(c, ws)
}

func (s *Server) readLoop(c *Conn, ws *websocket.Conn) {
	defer s.reg.Unregister(c)
	ctx := context.Background()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			obslog.L().Debug("ws_read_end", zap.String("user_id", c.UserID), zap.Error(err))
			c.Close("read closed")
			return
		}
		s.dispatch(c, data)
	}
}

// dispatch isolates the handler: a panic is reported to the sender and
// must not take down the read loop or any other connection.
func (s *Server) dispatch(c *Conn, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			obslog.L().Error("handler_panic", zap.String("user_id", c.UserID), zap.Any("panic", rec))
			s.reg.SendTo(c, wire.NewError("internal error handling message"))
		}
	}()
	s.handle(c, data)
}

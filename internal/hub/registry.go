package hub

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kapu/pong-arena/internal/notices"
	"github.com/kapu/pong-arena/internal/obslog"
	"github.com/kapu/pong-arena/pkg/wire"
	"go.uber.org/zap"
)

var (
	ErrSessionInvalid = errors.New("session is not valid")
	ErrSessionTaken   = errors.New("user already connected with a different session")
)

// SessionChecker is the single-active-session capability the registry
// consults before accepting a handshake.
type SessionChecker interface {
	IsValid(ctx context.Context, userID, sessionID string) (bool, error)
}

// GoneFunc fires once a disconnected user's reconnect grace has elapsed.
type GoneFunc func(userID string)

// RebindFunc fires when a user re-registers and existing room slots must
// point at the new connection.
type RebindFunc func(userID string, c *Conn)

// Registry tracks live connections keyed by user id. At most one live
// connection exists per user; a newcomer with a different session id is
// refused in favor of the existing connection.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]*Conn
	timers map[string]*time.Timer

	sessions SessionChecker
	grace    time.Duration
	cat      *notices.Catalog

	onGone   GoneFunc
	onRebind RebindFunc
}

func NewRegistry(sessions SessionChecker, grace time.Duration, cat *notices.Catalog) *Registry {
	return &Registry{
		byUser:   make(map[string]*Conn),
		timers:   make(map[string]*time.Timer),
		sessions: sessions,
		grace:    grace,
		cat:      cat,
	}
}

// SetHooks wires the disconnect and reconnect callbacks. Must be called
// before the registry starts accepting connections.
func (r *Registry) SetHooks(gone GoneFunc, rebind RebindFunc) {
	r.onGone = gone
	r.onRebind = rebind
}

// Register validates the claimed session and binds the connection. On
// rejection the connection receives a terminal notice and is closed.
func (r *Registry) Register(ctx context.Context, c *Conn) error {
	ok, err := r.sessions.IsValid(ctx, c.UserID, c.SessionID)
	if err != nil {
		obslog.L().Error("session_check_error", zap.String("user_id", c.UserID), zap.Error(err))
		ok = false
	}
	if !ok {
		_ = c.Send(wire.NewError(r.noticeText("session.invalid", "Your session is no longer valid.")))
		c.Close("invalid session")
		return ErrSessionInvalid
	}

	r.mu.Lock()
	existing := r.byUser[c.UserID]
	if existing != nil && existing != c && existing.Open() && existing.SessionID != c.SessionID {
		r.mu.Unlock()
		_ = c.Send(wire.NewError(r.noticeText("session.duplicate", "This account is already connected.")))
		c.Close("duplicate session")
		obslog.L().Warn("conn_reject_duplicate", zap.String("user_id", c.UserID))
		return ErrSessionTaken
	}
	rebound := existing != nil && existing != c
	r.byUser[c.UserID] = c
	if t := r.timers[c.UserID]; t != nil {
		t.Stop()
		delete(r.timers, c.UserID)
	}
	r.mu.Unlock()

	if rebound {
		existing.Close("replaced by reconnect")
		if r.onRebind != nil {
			r.onRebind(c.UserID, c)
		}
		obslog.L().Info("conn_rebind", zap.String("user_id", c.UserID))
	} else {
		obslog.L().Info("conn_register", zap.String("user_id", c.UserID))
	}
	return nil
}

// Unregister marks the connection closed and starts the reconnect grace
// window. The user is only reported gone if nothing re-registers in time.
func (r *Registry) Unregister(c *Conn) {
	if c == nil {
		return
	}
	c.Close("gone")

	r.mu.Lock()
	if r.byUser[c.UserID] != c {
		// already replaced by a newer connection
		r.mu.Unlock()
		return
	}
	if r.grace <= 0 {
		delete(r.byUser, c.UserID)
		r.mu.Unlock()
		obslog.L().Info("conn_gone", zap.String("user_id", c.UserID))
		if r.onGone != nil {
			r.onGone(c.UserID)
		}
		return
	}
	if t := r.timers[c.UserID]; t != nil {
		t.Stop()
	}
	r.timers[c.UserID] = time.AfterFunc(r.grace, func() { r.expire(c) })
	r.mu.Unlock()
	obslog.L().Debug("conn_grace_start", zap.String("user_id", c.UserID))
}

func (r *Registry) expire(c *Conn) {
	r.mu.Lock()
	delete(r.timers, c.UserID)
	if r.byUser[c.UserID] != c || c.Open() {
		r.mu.Unlock()
		return
	}
	delete(r.byUser, c.UserID)
	r.mu.Unlock()

	obslog.L().Info("conn_gone", zap.String("user_id", c.UserID))
	if r.onGone != nil {
		r.onGone(c.UserID)
	}
}

// FindByUserID returns the user's live connection, or nil.
func (r *Registry) FindByUserID(userID string) *Conn {
	r.mu.Lock()
	c := r.byUser[userID]
	r.mu.Unlock()
	if c != nil && c.Open() {
		return c
	}
	return nil
}

// OnlineUserIDs lists users with an open connection.
func (r *Registry) OnlineUserIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.byUser))
	for uid, c := range r.byUser {
		if c.Open() {
			out = append(out, uid)
		}
	}
	return out
}

// SendTo delivers v to one connection. A dead or unknown connection is a
// logged no-op, never an error for the caller.
func (r *Registry) SendTo(c *Conn, v any) {
	if c == nil || !c.Open() {
		obslog.L().Warn("send_skip_closed")
		return
	}
	if err := c.Send(v); err != nil {
		obslog.L().Warn("send_error", zap.String("user_id", c.UserID), zap.Error(err))
	}
}

// Broadcast delivers v to every open connection except exclude.
func (r *Registry) Broadcast(v any, exclude *Conn) {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.byUser))
	for _, c := range r.byUser {
		if c != exclude && c.Open() {
			conns = append(conns, c)
		}
	}
	r.mu.Unlock()
	for _, c := range conns {
		r.SendTo(c, v)
	}
}

func (r *Registry) noticeText(key, fallback string) string {
	if r.cat == nil {
		return fallback
	}
	return r.cat.RenderOr(key, nil, fallback)
}

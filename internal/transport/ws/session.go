package ws

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"agentdeck-server/internal/domain/activity"
	"agentdeck-server/internal/platform/logging"
)

// Frame is the envelope of every server-to-client message.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const frameActivity = "activity"

// Session forwards one hub subscription to one websocket client.
type Session struct {
	id     string
	userID uint
	conn   *Connection
	sub    *activity.Subscription
	hub    *activity.Hub
	logger *logging.Logger

	pingInterval time.Duration
	pongWait     time.Duration

	ctx    context.Context
	cancel context.CancelCauseFunc

	closed atomic.Bool
}

func newSession(parent context.Context, userID uint, conn *Connection, hub *activity.Hub, logger *logging.Logger, pingInterval time.Duration) *Session {
	ctx, cancel := context.WithCancelCause(parent)
	return &Session{
		id:           conn.ID(),
		userID:       userID,
		conn:         conn,
		sub:          hub.Subscribe(),
		hub:          hub,
		logger:       logger,
		pingInterval: pingInterval,
		pongWait:     pingInterval * 2,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// ID exposes the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Context returns the session context.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Run pumps entries to the client until the client leaves, the hub drops
// the subscription or the session is closed. onDone runs once at exit.
func (s *Session) Run(onDone func(error)) {
	go s.readLoop()

	cause := s.writeLoop()
	s.Close(cause)
	if onDone != nil {
		onDone(cause)
	}
}

// readLoop discards client frames; its only job is noticing that the peer
// went away so the subscription can be released.
func (s *Session) readLoop() {
	if s.pongWait > 0 {
		_ = s.conn.socket.SetReadDeadline(time.Now().Add(s.pongWait))
		s.conn.socket.SetPongHandler(func(string) error {
			s.conn.touch()
			return s.conn.socket.SetReadDeadline(time.Now().Add(s.pongWait))
		})
	}
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.cancel(ErrClientGone)
			s.hub.Unsubscribe(s.sub)
			return
		}
	}
}

func (s *Session) writeLoop() error {
	var pings <-chan time.Time
	if s.pingInterval > 0 {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return context.Cause(s.ctx)
		case entry, ok := <-s.sub.C():
			if !ok {
				if s.ctx.Err() != nil {
					return context.Cause(s.ctx)
				}
				return ErrObserverDropped
			}
			if err := s.conn.WriteJSON(Frame{Type: frameActivity, Data: entry}); err != nil {
				return errors.Join(ErrClientGone, err)
			}
		case <-pings:
			if err := s.conn.socket.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				return errors.Join(ErrClientGone, err)
			}
		}
	}
}

// Close releases the subscription and the connection. Safe to call more
// than once.
func (s *Session) Close(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}
	if !s.closed.CompareAndSwap(false, true) {
		return
	}

	s.cancel(reason)
	s.hub.Unsubscribe(s.sub)

	code := websocket.CloseNormalClosure
	if errors.Is(reason, ErrObserverDropped) {
		code = websocket.CloseTryAgainLater
	} else if errors.Is(reason, ErrSessionShutdown) {
		code = websocket.CloseGoingAway
	}
	if err := s.conn.Close(code, reason.Error()); err != nil {
		s.logger.DebugTag(logging.TagWebSocket, "session %s close: %v", s.id, err)
	}
}

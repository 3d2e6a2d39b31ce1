package ws

import "sync"

// Sessions tracks the live activity stream sessions of one transport.
type Sessions struct {
	sessions sync.Map // map[string]*Session
}

func NewSessions() *Sessions {
	return &Sessions{}
}

// Register adds a new session.
func (h *Sessions) Register(session *Session) {
	if session == nil {
		return
	}
	h.sessions.Store(session.ID(), session)
}

// Unregister removes the session.
func (h *Sessions) Unregister(id string) {
	if id == "" {
		return
	}
	h.sessions.Delete(id)
}

// CloseAll terminates every active session.
func (h *Sessions) CloseAll(reason error) {
	if reason == nil {
		reason = ErrSessionShutdown
	}

	h.sessions.Range(func(key, value any) bool {
		if session, ok := value.(*Session); ok {
			session.Close(reason)
		}
		h.sessions.Delete(key)
		return true
	})
}

// Count returns the number of active sessions.
func (h *Sessions) Count() int {
	n := 0
	h.sessions.Range(func(key, value any) bool {
		n++
		return true
	})
	return n
}

package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"agentdeck-server/internal/domain/activity"
	"agentdeck-server/internal/platform/logging"
	"agentdeck-server/internal/platform/observability"
)

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultPingInterval     = 30 * time.Second
)

// StreamOptions configures the activity stream endpoint.
type StreamOptions struct {
	Hub      *activity.Hub
	Logger   *logging.Logger
	Recorder *observability.Recorder

	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// PingInterval keeps idle connections alive; the client must answer
	// within twice the interval. Negative disables pings.
	PingInterval time.Duration
	CheckOrigin  func(r *http.Request) bool
}

// Stream upgrades authenticated requests into live activity feeds. Each
// connection is one hub observer.
type Stream struct {
	hub      *activity.Hub
	logger   *logging.Logger
	recorder *observability.Recorder
	sessions *Sessions

	upgrader     *websocket.Upgrader
	writeTimeout time.Duration
	pingInterval time.Duration

	ctx    context.Context
	cancel context.CancelCauseFunc
}

func NewStream(opts StreamOptions) *Stream {
	upgrader := &websocket.Upgrader{
		HandshakeTimeout: opts.HandshakeTimeout,
		CheckOrigin:      opts.CheckOrigin,
	}
	if upgrader.HandshakeTimeout <= 0 {
		upgrader.HandshakeTimeout = defaultHandshakeTimeout
	}
	if upgrader.CheckOrigin == nil {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	pingInterval := opts.PingInterval
	if pingInterval == 0 {
		pingInterval = defaultPingInterval
	} else if pingInterval < 0 {
		pingInterval = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	return &Stream{
		hub:          opts.Hub,
		logger:       logger,
		recorder:     opts.Recorder,
		sessions:     NewSessions(),
		upgrader:     upgrader,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Handle upgrades the request for userID and serves the feed until the
// client disconnects. Authentication happens before Handle is called.
func (s *Stream) Handle(w http.ResponseWriter, req *http.Request, userID uint) {
	spanCtx, spanEnd := s.recorder.StartSpan(req.Context(), "transport.websocket", "activity_stream")
	var spanErr error
	defer func() {
		spanEnd(spanErr)
	}()

	socket, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		spanErr = err
		s.recorder.RecordMetric(spanCtx, "websocket.upgrade.error", 1, map[string]string{
			"component": "transport.websocket",
		})
		s.logger.WarnTag(logging.TagWebSocket, "upgrade failed: %v", err)
		return
	}

	conn := NewConnection(uuid.NewString(), socket, s.writeTimeout)
	session := newSession(s.ctx, userID, conn, s.hub, s.logger, s.pingInterval)
	s.sessions.Register(session)

	s.recorder.RecordMetric(spanCtx, "websocket.connection.opened", 1, map[string]string{
		"component": "transport.websocket",
	})
	s.logger.InfoTag(logging.TagWebSocket, "activity stream opened: session=%s user=%d", session.ID(), userID)

	go session.Run(func(cause error) {
		s.sessions.Unregister(session.ID())
		s.recorder.RecordMetric(context.Background(), "websocket.connection.closed", 1, map[string]string{
			"component": "transport.websocket",
		})
		s.logger.InfoTag(logging.TagWebSocket, "activity stream closed: session=%s user=%d cause=%v", session.ID(), userID, cause)
	})
}

// Count returns the number of open streams.
func (s *Stream) Count() int {
	return s.sessions.Count()
}

// Close ends every open stream.
func (s *Stream) Close() {
	s.cancel(ErrSessionShutdown)
	s.sessions.CloseAll(ErrSessionShutdown)
}

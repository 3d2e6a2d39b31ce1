package webapi

import (
	"context"
	"time"

	"agentdeck-server/internal/domain/account"
	"agentdeck-server/internal/domain/activity"
	"agentdeck-server/internal/domain/presence"
	"agentdeck-server/internal/domain/session"
	"agentdeck-server/internal/platform/errors"
	"agentdeck-server/internal/platform/logging"
	httptransport "agentdeck-server/internal/transport/http"
	"agentdeck-server/internal/transport/ws"
)

// Dependencies are the domain services behind the dashboard API. Every
// field is required except Limiter and Stream.
type Dependencies struct {
	Accounts *account.Service
	Registry *session.Registry
	Auth     *httptransport.SessionAuth
	Tracker  *presence.Tracker
	Activity *activity.Service
	Hub      *activity.Hub
	// Stream serves /activity/ws when set.
	Stream *ws.Stream
	// Limiter throttles unauthenticated activity submissions when set.
	Limiter *httptransport.IPRateLimiter
	Logger  *logging.Logger
	// StartedAt is reported as uptime by /system/status.
	StartedAt time.Time
}

// Service is the HTTP surface of sessions, presence and activity.
type Service struct {
	deps   Dependencies
	logger *logging.Logger
}

// NewService validates deps and builds the service.
func NewService(deps Dependencies) (*Service, error) {
	switch {
	case deps.Accounts == nil:
		return nil, errors.New(errors.KindConfig, "webapi.new", "account service is required")
	case deps.Registry == nil:
		return nil, errors.New(errors.KindConfig, "webapi.new", "session registry is required")
	case deps.Auth == nil:
		return nil, errors.New(errors.KindConfig, "webapi.new", "session auth is required")
	case deps.Tracker == nil:
		return nil, errors.New(errors.KindConfig, "webapi.new", "presence tracker is required")
	case deps.Activity == nil:
		return nil, errors.New(errors.KindConfig, "webapi.new", "activity service is required")
	case deps.Hub == nil:
		return nil, errors.New(errors.KindConfig, "webapi.new", "activity hub is required")
	case deps.Logger == nil:
		return nil, errors.New(errors.KindConfig, "webapi.new", "logger is required")
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}
	return &Service{deps: deps, logger: deps.Logger}, nil
}

// Register mounts every route on the /api group.
func (s *Service) Register(ctx context.Context, router *httptransport.Router) error {
	api := router.API
	auth := s.deps.Auth

	authGroup := api.Group("/auth")
	authGroup.POST("/login", s.handleLogin)
	authGroup.GET("/check-session", s.handleCheckSession)
	authGroup.POST("/logout", auth.RequireSession(), s.handleLogout)
	authGroup.GET("/me", auth.RequireSession(), s.handleMe)

	activityGroup := api.Group("/activity")
	activityGroup.POST("", s.deps.Limiter.Middleware(), auth.OptionalSession(), s.handleCreateActivity)
	activityGroup.GET("", auth.RequireSession(), s.handleListActivity)
	if s.deps.Stream != nil {
		activityGroup.GET("/ws", auth.RequireSession(), s.handleActivityStream)
	}

	presenceGroup := api.Group("/presence")
	presenceGroup.POST("/heartbeat", auth.RequireCurrentSession(), s.handleHeartbeat)
	presenceGroup.GET("/online", auth.RequireSession(), s.handleOnline)

	api.GET("/system/status", auth.RequireSession(), s.handleSystemStatus)

	s.logger.InfoTag(logging.TagHTTP, "dashboard API routes registered")
	return nil
}

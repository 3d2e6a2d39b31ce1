package bootstrap

import (
	"context"
	"strings"

	"agentdeck-server/internal/domain/account"
	"agentdeck-server/internal/domain/activity"
	"agentdeck-server/internal/domain/eventbus"
	"agentdeck-server/internal/domain/presence"
	"agentdeck-server/internal/domain/session"
	sessionstore "agentdeck-server/internal/domain/session/store"
	platformconfig "agentdeck-server/internal/platform/config"
	platformerrors "agentdeck-server/internal/platform/errors"
	"agentdeck-server/internal/platform/logging"
	"agentdeck-server/internal/platform/observability"
	"agentdeck-server/internal/platform/storage"
	"agentdeck-server/internal/transport/ws"
)

// InitGraph lists the construction steps in execution order.
func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Open database and run migrations",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Create event bus",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "session:init-registry",
			Title:     "Initialise session registry",
			DependsOn: []string{"storage:init-database", "eventbus:init"},
			Kind:      platformerrors.KindStorage,
			Execute:   initSessionStep,
		},
		{
			ID:        "presence:init-tracker",
			Title:     "Initialise presence tracker",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initPresenceStep,
		},
		{
			ID:        "activity:init",
			Title:     "Initialise activity service and broadcaster",
			DependsOn: []string{"storage:init-database", "eventbus:init", "observability:setup-hooks"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initActivityStep,
		},
		{
			ID:        "account:init",
			Title:     "Initialise account service",
			DependsOn: []string{"session:init-registry", "presence:init-tracker", "activity:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAccountStep,
		},
		{
			ID:        "audit:subscribe",
			Title:     "Subscribe session audit log",
			DependsOn: []string{"eventbus:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   subscribeAuditStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	if state.opts.Config != nil {
		state.config = state.opts.Config
		return nil
	}

	result, err := platformconfig.NewLoader().WithPath(state.opts.ConfigPath).Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load configuration", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	cfg := state.config.Log
	logger, err := logging.New(logging.Config{
		Level:      cfg.Level,
		Dir:        cfg.Dir,
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to create logger", err)
	}
	state.logger = logger
	state.onClose("logger", logger.Close)

	if state.configPath != "" {
		logger.InfoTag(logging.TagBoot, "configuration loaded from %s", state.configPath)
	} else {
		logger.InfoTag(logging.TagBoot, "no configuration file, using defaults and environment")
	}
	if state.config.Server.JWTSecret == "change-me" {
		logger.WarnTag(logging.TagBoot, "server.jwt_secret is the default value; set AGENTDECK_SERVER_JWT_SECRET")
	}
	return nil
}

func setupObservabilityStep(_ context.Context, state *appState) error {
	state.recorder = observability.New(observability.Config{Enabled: state.opts.Observability}, state.logger.Slog())
	if state.recorder.Enabled() {
		state.logger.InfoTag(logging.TagObserve, "span and metric logging enabled")
	}
	return nil
}

func initDatabaseStep(ctx context.Context, state *appState) error {
	db, err := storage.Open(ctx, state.config.Database.DSN)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to open database", err)
	}
	state.db = db
	state.onClose("database", func() error { return storage.Close(db) })
	state.logger.InfoTag(logging.TagStore, "database ready: %s", state.config.Database.DSN)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.New(state.logger.Tagged(logging.TagBoot))
	state.bus = bus
	state.onClose("event bus", func() error {
		bus.Close()
		return nil
	})
	return nil
}

func initSessionStep(ctx context.Context, state *appState) error {
	cfg := state.config
	storeCfg := sessionstore.Config{
		Driver: strings.ToLower(cfg.Session.Store),
		TTL:    cfg.Server.TokenTTL,
	}
	if storeCfg.Driver == sessionstore.DriverRedis {
		storeCfg.Redis = &sessionstore.RedisConfig{
			Addr:     cfg.Session.Redis.Addr,
			Username: cfg.Session.Redis.Username,
			Password: cfg.Session.Redis.Password,
			DB:       cfg.Session.Redis.DB,
			Prefix:   cfg.Session.Redis.Prefix,
		}
	}

	st, err := sessionstore.New(storeCfg, sessionstore.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session:init-store", "failed to create login record store", err)
	}

	registry, err := session.NewRegistry(session.Options{
		Store:  st,
		Logger: state.logger.Tagged(logging.TagSession),
		Bus:    state.bus,
	})
	if err != nil {
		_ = st.Close(ctx)
		return err
	}
	state.registry = registry
	state.onClose("session registry", func() error { return registry.Close(context.Background()) })

	tokens, err := session.NewTokenIssuer(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "session:init-tokens", "failed to create token issuer", err)
	}
	state.tokens = tokens

	state.logger.InfoTag(logging.TagSession, "login records kept in %s store", storeCfg.Driver)
	return nil
}

func initPresenceStep(_ context.Context, state *appState) error {
	tracker := presence.NewTracker(presence.Options{
		Timeout:       state.config.Presence.Timeout,
		SweepInterval: state.config.Presence.SweepInterval,
		Logger:        state.logger.Tagged(logging.TagPresence),
	})
	state.tracker = tracker
	state.onClose("presence tracker", func() error {
		tracker.Stop()
		return nil
	})
	return nil
}

func initActivityStep(_ context.Context, state *appState) error {
	cfg := state.config.Activity
	logger := state.logger.Tagged(logging.TagActivity)

	hub := activity.NewHub(activity.HubOptions{
		Buffer:  cfg.Buffer,
		Logger:  logger,
		Metrics: state.recorder,
	})
	if err := hub.Attach(state.bus); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "activity:attach-hub", "failed to attach broadcaster", err)
	}
	state.hub = hub
	state.onClose("activity hub", func() error {
		hub.Close()
		return hub.Detach(state.bus)
	})

	svc, err := activity.NewService(activity.ServiceOptions{
		Repository:   storage.NewActivityRepository(state.db),
		Bus:          state.bus,
		Logger:       logger,
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	})
	if err != nil {
		return err
	}
	state.activity = svc

	state.stream = ws.NewStream(ws.StreamOptions{
		Hub:      hub,
		Logger:   state.logger,
		Recorder: state.recorder,
	})
	state.onClose("activity stream", func() error {
		state.stream.Close()
		return nil
	})
	return nil
}

func initAccountStep(_ context.Context, state *appState) error {
	svc, err := account.NewService(account.Options{
		Users:    storage.NewUserRepository(state.db),
		Registry: state.registry,
		Tokens:   state.tokens,
		Activity: state.activity,
		Presence: state.tracker,
		Logger:   state.logger.Tagged(logging.TagSession),
	})
	if err != nil {
		return err
	}
	state.accounts = svc
	return nil
}

// subscribeAuditStep logs logins and logouts off the request path.
func subscribeAuditStep(_ context.Context, state *appState) error {
	logger := state.logger
	onLogin := func(ev eventbus.SessionEvent) {
		logger.InfoTag(logging.TagSession, "audit: user %d logged in at %s", ev.UserID, ev.LoginTime.UTC().Format("2006-01-02T15:04:05.000Z"))
	}
	onLogout := func(ev eventbus.SessionEvent) {
		logger.InfoTag(logging.TagSession, "audit: user %d logged out", ev.UserID)
	}
	if err := state.bus.SubscribeAsync(eventbus.TopicSessionLogin, onLogin); err != nil {
		return err
	}
	if err := state.bus.SubscribeAsync(eventbus.TopicSessionLogout, onLogout); err != nil {
		return err
	}
	return nil
}

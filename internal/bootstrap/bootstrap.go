package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"agentdeck-server/internal/domain/account"
	"agentdeck-server/internal/domain/activity"
	"agentdeck-server/internal/domain/eventbus"
	"agentdeck-server/internal/domain/presence"
	"agentdeck-server/internal/domain/session"
	platformconfig "agentdeck-server/internal/platform/config"
	platformerrors "agentdeck-server/internal/platform/errors"
	"agentdeck-server/internal/platform/logging"
	"agentdeck-server/internal/platform/observability"
	httptransport "agentdeck-server/internal/transport/http"
	httpwebapi "agentdeck-server/internal/transport/http/webapi"
	"agentdeck-server/internal/transport/ws"
)

const shutdownTimeout = 15 * time.Second

// Options controls where the configuration comes from.
type Options struct {
	// ConfigPath is the YAML file; empty means config.yaml.
	ConfigPath string
	// Config, when set, is used as is and ConfigPath is ignored.
	Config *platformconfig.Config
	// Observability turns span and metric logging on.
	Observability bool
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts Options

	config     *platformconfig.Config
	configPath string
	logger     *logging.Logger
	recorder   *observability.Recorder
	db         *gorm.DB
	bus        *eventbus.Bus
	registry   *session.Registry
	tokens     *session.TokenIssuer
	tracker    *presence.Tracker
	hub        *activity.Hub
	activity   *activity.Service
	accounts   *account.Service
	stream     *ws.Stream

	// teardown runs in reverse registration order.
	teardown []namedCloser
}

type namedCloser struct {
	name  string
	close func() error
}

func (s *appState) onClose(name string, fn func() error) {
	s.teardown = append(s.teardown, namedCloser{name: name, close: fn})
}

// App is a fully wired server that has not started serving yet.
type App struct {
	state *appState
	steps []initStep

	closeOnce sync.Once
	addrMu    sync.Mutex
	addr      net.Addr
	startedAt time.Time
}

// New runs the init graph. The caller owns the result and must Close it.
func New(ctx context.Context, opts Options) (*App, error) {
	state := &appState{opts: opts}
	steps := InitGraph()
	if err := executeInitSteps(ctx, steps, state); err != nil {
		closeState(state)
		return nil, err
	}
	return &App{state: state, steps: steps, startedAt: time.Now()}, nil
}

// Config returns the effective configuration.
func (a *App) Config() *platformconfig.Config { return a.state.config }

// Logger returns the application logger.
func (a *App) Logger() *logging.Logger { return a.state.logger }

// Accounts exposes the account service for the CLI.
func (a *App) Accounts() *account.Service { return a.state.accounts }

// Addr is the bound HTTP address once Serve is listening, nil before.
func (a *App) Addr() net.Addr {
	a.addrMu.Lock()
	defer a.addrMu.Unlock()
	return a.addr
}

// Close tears everything down in reverse construction order.
func (a *App) Close() {
	a.closeOnce.Do(func() { closeState(a.state) })
}

func closeState(state *appState) {
	for i := len(state.teardown) - 1; i >= 0; i-- {
		c := state.teardown[i]
		if err := c.close(); err != nil {
			state.logger.WarnTag(logging.TagBoot, "%s did not close cleanly: %v", c.name, err)
		}
	}
	state.teardown = nil
}

// Run loads everything, serves until SIGINT/SIGTERM or ctx ends, then shuts
// down.
func Run(ctx context.Context, opts Options) error {
	app, err := New(ctx, opts)
	if err != nil {
		return err
	}
	defer app.Close()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return app.Serve(signalCtx)
}

// Serve starts the background jobs and the HTTP server and blocks until
// ctx ends or one of them fails.
func (a *App) Serve(ctx context.Context) error {
	state := a.state
	logger := state.logger
	logBootstrapGraph(a.steps, logger)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := a.startServices(groupCtx, group); err != nil {
		cancel()
		_ = group.Wait()
		return err
	}
	logger.InfoTag(logging.TagBoot, "server started")

	return waitForShutdown(groupCtx, cancel, logger, group)
}

func (a *App) startServices(ctx context.Context, g *errgroup.Group) error {
	state := a.state
	cfg := state.config

	state.tracker.Start(ctx)

	g.Go(func() error {
		return state.activity.RunRetention(ctx, cfg.Activity.Retention, cfg.Activity.RetentionSweep)
	})

	if _, err := a.startHTTPServer(ctx, g); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	return nil
}

func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group) (*http.Server, error) {
	state := a.state
	cfg := state.config
	logger := state.logger

	router, err := httptransport.Build(httptransport.Options{
		Config:   cfg,
		Logger:   logger,
		Recorder: state.recorder,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	var limiter *httptransport.IPRateLimiter
	if cfg.Server.RateLimit.PerSecond > 0 {
		limiter = httptransport.NewIPRateLimiter(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst).
			WithLoopbackExempt(cfg.Server.RateLimit.ExemptLoopback)
	}

	webapi, err := httpwebapi.NewService(httpwebapi.Dependencies{
		Accounts:  state.accounts,
		Registry:  state.registry,
		Auth:      httptransport.NewSessionAuth(state.tokens, state.registry, logger),
		Tracker:   state.tracker,
		Activity:  state.activity,
		Hub:       state.hub,
		Stream:    state.stream,
		Limiter:   limiter,
		Logger:    logger,
		StartedAt: a.startedAt,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "webapi:new-service", "failed to create webapi service", err)
	}
	if err := webapi.Register(ctx, router); err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Server.IP, strconv.Itoa(cfg.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:listen", "failed to listen on "+addr, err)
	}
	a.addrMu.Lock()
	a.addr = ln.Addr()
	a.addrMu.Unlock()

	httpServer := &http.Server{
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag(logging.TagHTTP, "listening on http://%s", ln.Addr())
		logger.InfoTag(logging.TagHTTP, "API docs at http://%s/docs", ln.Addr())

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			// websockets are hijacked and not tracked by Shutdown
			state.stream.Close()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag(logging.TagHTTP, "http shutdown failed: %v", err)
			} else {
				logger.InfoTag(logging.TagHTTP, "http server stopped")
			}
		}()

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag(logging.TagHTTP, "http server failed: %v", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	logger *logging.Logger,
	g *errgroup.Group,
) error {
	<-ctx.Done()
	logger.InfoTag(logging.TagBoot, "shutting down: %v", context.Cause(ctx))

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag(logging.TagBoot, "shutdown finished with error: %v", err)
			return err
		}
		logger.InfoTag(logging.TagBoot, "all services stopped")
	case <-time.After(shutdownTimeout):
		logger.ErrorTag(logging.TagBoot, "shutdown timed out")
		return errors.New("shutdown timed out")
	}
	return nil
}

func logBootstrapGraph(steps []initStep, logger *logging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag(logging.TagBoot, "init graph:")
	for _, step := range steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		logger.InfoTag(logging.TagBoot, "  %s (%s) <- %s", step.ID, step.Title, deps)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config.yaml"
	EnvPrefix   = "AGENTDECK_"
)

// Loader assembles the configuration from defaults, the YAML file, a .env
// file and the process environment, in that order.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv map[string]string
}

// NewLoader creates a loader that reads config.yaml from the working directory.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		path:      DefaultPath,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath overrides the YAML file location.
func (l *Loader) WithPath(path string) *Loader {
	if strings.TrimSpace(path) != "" {
		l.path = path
	}
	return l
}

// WithEnvironment replaces the process environment (useful for tests).
func (l *Loader) WithEnvironment(vars map[string]string) *Loader {
	l.lookupEnv = vars
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the configuration. A missing YAML file is not an error; the
// defaults and environment still apply.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// A missing .env is the common case outside development.
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path := ""

	raw, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", l.path, err)
		}
		path = l.path
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}

	opts := env.Options{Prefix: EnvPrefix}
	if l.lookupEnv != nil {
		opts.Environment = l.lookupEnv
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{
		Config: cfg,
		Path:   path,
	}, nil
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if strings.TrimSpace(cfg.Server.JWTSecret) == "" {
		return fmt.Errorf("server.jwt_secret must not be empty")
	}
	if cfg.Server.TokenTTL <= 0 {
		return fmt.Errorf("server.token_ttl must be positive")
	}

	switch strings.ToLower(cfg.Session.Store) {
	case SessionStoreMemory, SessionStoreSQLite:
	case SessionStoreRedis:
		if strings.TrimSpace(cfg.Session.Redis.Addr) == "" {
			return fmt.Errorf("session.redis.addr is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}

	if cfg.Presence.Timeout <= 0 {
		return fmt.Errorf("presence.timeout must be positive")
	}
	if cfg.Presence.SweepInterval <= 0 {
		return fmt.Errorf("presence.sweep_interval must be positive")
	}

	if cfg.Activity.Buffer <= 0 {
		return fmt.Errorf("activity.buffer must be positive")
	}
	if cfg.Activity.DefaultLimit <= 0 || cfg.Activity.MaxLimit < cfg.Activity.DefaultLimit {
		return fmt.Errorf("invalid activity limits: default=%d max=%d",
			cfg.Activity.DefaultLimit, cfg.Activity.MaxLimit)
	}
	return nil
}

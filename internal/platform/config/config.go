package config

import (
	"time"
)

// Config is the complete server configuration. Every field can be set from
// the YAML file and overridden by an AGENTDECK_-prefixed environment variable.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	Session  SessionConfig  `yaml:"session" envPrefix:"SESSION_"`
	Presence PresenceConfig `yaml:"presence" envPrefix:"PRESENCE_"`
	Activity ActivityConfig `yaml:"activity" envPrefix:"ACTIVITY_"`
}

type ServerConfig struct {
	IP          string        `yaml:"ip" env:"IP"`
	Port        int           `yaml:"port" env:"PORT"`
	JWTSecret   string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL    time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	StaticDir   string        `yaml:"static_dir" env:"STATIC_DIR"`
	CORSOrigins []string      `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	RateLimit   RateLimit     `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

// RateLimit bounds unauthenticated activity submissions per client IP.
type RateLimit struct {
	PerSecond float64 `yaml:"per_second" env:"PER_SECOND"`
	Burst     int     `yaml:"burst" env:"BURST"`

	// ExemptLoopback skips limiting for agents posting from the same host.
	ExemptLoopback bool `yaml:"exempt_loopback" env:"EXEMPT_LOOPBACK"`
}

type LogConfig struct {
	Level      string `yaml:"log_level" env:"LEVEL"`
	Dir        string `yaml:"log_dir" env:"DIR"`
	File       string `yaml:"log_file" env:"FILE"`
	MaxSize    int    `yaml:"max_size" env:"MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"MAX_AGE"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DSN"`
}

// SessionConfig selects the login record store.
type SessionConfig struct {
	Store string      `yaml:"store" env:"STORE"`
	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Username string `yaml:"username,omitempty" env:"USERNAME"`
	Password string `yaml:"password,omitempty" env:"PASSWORD"`
	DB       int    `yaml:"db,omitempty" env:"DB"`
	Prefix   string `yaml:"prefix,omitempty" env:"PREFIX"`
}

type PresenceConfig struct {
	Timeout       time.Duration `yaml:"timeout" env:"TIMEOUT"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

type ActivityConfig struct {
	Buffer         int           `yaml:"buffer" env:"BUFFER"`
	DefaultLimit   int           `yaml:"default_limit" env:"DEFAULT_LIMIT"`
	MaxLimit       int           `yaml:"max_limit" env:"MAX_LIMIT"`
	Retention      time.Duration `yaml:"retention" env:"RETENTION"`
	RetentionSweep time.Duration `yaml:"retention_sweep" env:"RETENTION_SWEEP"`
}

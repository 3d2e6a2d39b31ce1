package config

import "time"

const (
	SessionStoreMemory = "memory"
	SessionStoreSQLite = "sqlite"
	SessionStoreRedis  = "redis"
)

// DefaultConfig returns the built-in configuration used before any file or
// environment overrides are applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:        "0.0.0.0",
			Port:      8080,
			JWTSecret: "change-me",
			TokenTTL:  7 * 24 * time.Hour,
			StaticDir: "web/dist",
			RateLimit: RateLimit{
				PerSecond:      20,
				Burst:          100,
				ExemptLoopback: true,
			},
		},
		Log: LogConfig{
			Level:      "INFO",
			Dir:        "data/logs",
			File:       "server.log",
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     7,
		},
		Database: DatabaseConfig{
			DSN: "data/agentdeck.db",
		},
		Session: SessionConfig{
			Store: SessionStoreSQLite,
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "agentdeck:session:",
			},
		},
		Presence: PresenceConfig{
			Timeout:       60 * time.Second,
			SweepInterval: 30 * time.Second,
		},
		Activity: ActivityConfig{
			Buffer:         64,
			DefaultLimit:   100,
			MaxLimit:       1000,
			Retention:      30 * 24 * time.Hour,
			RetentionSweep: time.Hour,
		},
	}
}

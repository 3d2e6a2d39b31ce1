package store

import (
	"context"
	"errors"
	"time"

	"agentdeck-server/internal/domain/session/model"
)

// ErrNotFound reports that no login record exists for the user.
var ErrNotFound = errors.New("login record not found")

// Store persists one login record per user. Put must replace any existing
// record atomically.
type Store interface {
	Put(ctx context.Context, rec model.LoginRecord) error
	Get(ctx context.Context, userID uint) (model.LoginRecord, error)
	Delete(ctx context.Context, userID uint) error
	// DeleteIfCurrent removes the user's record only while sessionToken is
	// still the recorded one, and reports whether it did.
	DeleteIfCurrent(ctx context.Context, userID uint, sessionToken string) (bool, error)
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	// TTL bounds how long a record is kept after its login. Zero keeps it
	// until it is replaced or deleted.
	TTL    time.Duration
	Redis  *RedisConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

func expired(rec model.LoginRecord, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(rec.LoginTime) > ttl
}

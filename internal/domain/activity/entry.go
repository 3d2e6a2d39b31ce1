package activity

import (
	"context"
	"time"
)

// Level grades an activity entry.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Valid reports whether l is one of the known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelInfo, LevelWarning, LevelError:
		return true
	}
	return false
}

// Entry is one immutable activity record. ID and CreatedAt are assigned by
// the repository on append.
type Entry struct {
	ID        uint           `json:"id"`
	UserID    *uint          `json:"userId,omitempty"`
	Agent     string         `json:"agent"`
	Action    string         `json:"action"`
	Details   string         `json:"details"`
	Level     Level          `json:"level"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Filter narrows a listing. Zero values mean "any".
type Filter struct {
	Agent string
	Level Level
	Limit int
}

// Repository is the durable activity store.
type Repository interface {
	// Append persists e and fills in its ID and CreatedAt.
	Append(ctx context.Context, e *Entry) error
	// Query returns at most f.Limit entries, newest first.
	Query(ctx context.Context, f Filter) ([]Entry, error)
	// DeleteBefore removes entries created before cutoff.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

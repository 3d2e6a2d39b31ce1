package model

import "time"

// LoginRecord is the authoritative login of one user. A new login replaces
// the previous record wholesale.
type LoginRecord struct {
	UserID       uint      `json:"user_id"`
	SessionToken string    `json:"session_token"`
	LoginTime    time.Time `json:"login_time"`
}

// Logger provides the minimal logging contract required by the session domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Package session decides which of a user's logins is authoritative.
//
// Every login replaces the user's LoginRecord. A credential carries the
// Claim it was issued with and stays valid only while its login time is not
// older than the recorded one, so the most recent login wins.
package session

import (
	"errors"
	"time"

	"agentdeck-server/internal/domain/session/model"
)

type (
	// LoginRecord re-exports the stored entity for callers.
	LoginRecord = model.LoginRecord
	// Logger re-exports the logging interface used across the domain.
	Logger = model.Logger
)

var (
	ErrNoSession         = errors.New("no session")
	ErrUserNotFound      = errors.New("no login recorded for user")
	ErrLoggedInElsewhere = errors.New("logged in elsewhere")
	ErrStoreUnavailable  = errors.New("session store unavailable")
)

// Claim is the immutable session identity embedded in a credential.
type Claim struct {
	UserID       uint
	SessionToken string
	LoginTime    time.Time
}

// Reason explains a negative validity result.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonNoSession         Reason = "no_session"
	ReasonUserNotFound      Reason = "user_not_found"
	ReasonLoggedInElsewhere Reason = "logged_in_elsewhere"
	ReasonError             Reason = "error"
)

// Err maps a reason to its sentinel error, nil for ReasonNone.
func (r Reason) Err() error {
	switch r {
	case ReasonNone:
		return nil
	case ReasonNoSession:
		return ErrNoSession
	case ReasonUserNotFound:
		return ErrUserNotFound
	case ReasonLoggedInElsewhere:
		return ErrLoggedInElsewhere
	default:
		return ErrStoreUnavailable
	}
}

// Result is the outcome of Check.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
}

// truncate drops sub-millisecond precision; login times compare at ms.
func truncate(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}

package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"agentdeck-server/internal/domain/eventbus"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	maxAgentLen  = 128
	maxActionLen = 255
)

var (
	ErrValidationFailed = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("activity store unavailable")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// CreateInput is an entry as reported by a creator. Level defaults to info.
type CreateInput struct {
	UserID   *uint
	Agent    string
	Action   string
	Details  string
	Level    Level
	Metadata map[string]any
}

type ServiceOptions struct {
	Repository   Repository
	Bus          *eventbus.Bus
	Logger       Logger
	DefaultLimit int
	MaxLimit     int
}

// Service creates and lists activity entries. Created entries are
// persisted first and then published on TopicActivityCreated.
type Service struct {
	repo         Repository
	bus          *eventbus.Bus
	logger       Logger
	defaultLimit int
	maxLimit     int

	// commitMu keeps publish order equal to commit order.
	commitMu sync.Mutex
}

func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Repository == nil {
		return nil, errors.New("activity service requires a repository")
	}
	if opts.Logger == nil {
		return nil, errors.New("activity service requires a logger")
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultListLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxListLimit
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}
	return &Service{
		repo:         opts.Repository,
		bus:          opts.Bus,
		logger:       opts.Logger,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
	}, nil
}

// Create validates and persists an entry, then broadcasts it. A persist
// failure returns ErrStoreUnavailable and nothing is broadcast; a broadcast
// failure is logged and does not fail the call.
func (s *Service) Create(ctx context.Context, in CreateInput) (Entry, error) {
	entry, err := validate(in)
	if err != nil {
		return Entry{}, err
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if err := s.repo.Append(ctx, &entry); err != nil {
		s.logger.Error("append activity failed: agent=%s action=%s err=%v", entry.Agent, entry.Action, err)
		return Entry{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	if s.bus != nil {
		if err := s.bus.Publish(eventbus.TopicActivityCreated, entry); err != nil {
			s.logger.Warn("broadcast activity %d failed: %v", entry.ID, err)
		}
	}
	return entry, nil
}

// List returns entries oldest first. Limit defaults to the configured
// default and is capped at the configured maximum.
func (s *Service) List(ctx context.Context, f Filter) ([]Entry, error) {
	if f.Level != "" && !f.Level.Valid() {
		return nil, &ValidationError{Field: "level", Message: "must be one of info, warning, error"}
	}
	switch {
	case f.Limit <= 0:
		f.Limit = s.defaultLimit
	case f.Limit > s.maxLimit:
		f.Limit = s.maxLimit
	}

	entries, err := s.repo.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	// storage returns newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Prune deletes entries created before cutoff.
func (s *Service) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if n > 0 {
		s.logger.Info("pruned %d activity entries older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// RunRetention prunes entries older than retention every interval until ctx
// ends. Prune failures are logged and retried on the next tick.
func (s *Service) RunRetention(ctx context.Context, retention, interval time.Duration) error {
	if retention <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Prune(ctx, time.Now().Add(-retention)); err != nil && ctx.Err() == nil {
				s.logger.Warn("activity retention failed: %v", err)
			}
		}
	}
}

func validate(in CreateInput) (Entry, error) {
	agent := strings.TrimSpace(in.Agent)
	action := strings.TrimSpace(in.Action)
	details := strings.TrimSpace(in.Details)

	switch {
	case agent == "":
		return Entry{}, &ValidationError{Field: "agent", Message: "is required"}
	case len(agent) > maxAgentLen:
		return Entry{}, &ValidationError{Field: "agent", Message: fmt.Sprintf("must be at most %d characters", maxAgentLen)}
	case action == "":
		return Entry{}, &ValidationError{Field: "action", Message: "is required"}
	case len(action) > maxActionLen:
		return Entry{}, &ValidationError{Field: "action", Message: fmt.Sprintf("must be at most %d characters", maxActionLen)}
	case details == "":
		return Entry{}, &ValidationError{Field: "details", Message: "is required"}
	}

	level := Level(strings.ToLower(strings.TrimSpace(string(in.Level))))
	if level == "" {
		level = LevelInfo
	}
	if !level.Valid() {
		return Entry{}, &ValidationError{Field: "level", Message: "must be one of info, warning, error"}
	}

	return Entry{
		UserID:   in.UserID,
		Agent:    agent,
		Action:   action,
		Details:  details,
		Level:    level,
		Metadata: in.Metadata,
	}, nil
}

// Package presence tracks which users are online from heartbeats alone.
//
// Each browser session heartbeats under its own session token. Entries that
// stop heartbeating are removed by a periodic sweep once their last heartbeat
// is older than the timeout. Presence never consults session validity.
package presence

import (
	"context"
	"sort"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	DefaultTimeout       = 60 * time.Second
	DefaultSweepInterval = 30 * time.Second
)

// Logger is the logging contract the tracker needs.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
}

// Entry is the presence of one session.
type Entry struct {
	SessionToken string
	UserID       uint
	Email        string
	Name         string
	Role         string
	LastSeen     time.Time
}

// UserSummary is one online user, merged over all their sessions.
type UserSummary struct {
	UserID   uint      `json:"userId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	LastSeen time.Time `json:"lastSeen"`
	Sessions int       `json:"sessions"`
}

type Options struct {
	Timeout       time.Duration
	SweepInterval time.Duration
	Logger        Logger
	Now           func() time.Time
}

// Tracker is the in-memory presence map. All methods are safe for
// concurrent use.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]Entry

	timeout       time.Duration
	sweepInterval time.Duration
	logger        Logger
	now           func() time.Time

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewTracker(opts Options) *Tracker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		entries:       make(map[string]Entry),
		timeout:       opts.Timeout,
		sweepInterval: opts.SweepInterval,
		logger:        opts.Logger,
		now:           opts.Now,
		done:          make(chan struct{}),
	}
}

// Heartbeat creates or refreshes the entry for token.
func (t *Tracker) Heartbeat(token string, userID uint, email, name, role string) {
	if token == "" {
		return
	}
	now := t.now()

	t.mu.Lock()
	t.entries[token] = Entry{
		SessionToken: token,
		UserID:       userID,
		Email:        email,
		Name:         name,
		Role:         role,
		LastSeen:     now,
	}
	t.mu.Unlock()
}

// Remove drops the entry for token, if any.
func (t *Tracker) Remove(token string) {
	t.mu.Lock()
	delete(t.entries, token)
	t.mu.Unlock()
}

// RemoveUser drops every session of userID and returns how many were removed.
func (t *Tracker) RemoveUser(userID uint) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for token, e := range t.entries {
		if e.UserID == userID {
			delete(t.entries, token)
			removed++
		}
	}
	return removed
}

// ListOnline returns one summary per user present in the map, sorted by
// user ID. Role, email and name come from the user's most recent heartbeat.
func (t *Tracker) ListOnline() []UserSummary {
	t.mu.Lock()
	snapshot := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		snapshot = append(snapshot, e)
	}
	t.mu.Unlock()

	// newest heartbeat first within each user, so the first entry seen for a
	// user carries the metadata that goes into the summary
	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].UserID != snapshot[j].UserID {
			return snapshot[i].UserID < snapshot[j].UserID
		}
		return snapshot[i].LastSeen.After(snapshot[j].LastSeen)
	})

	seen := mapset.NewThreadUnsafeSet[uint]()
	out := make([]UserSummary, 0, len(snapshot))
	for _, e := range snapshot {
		if !seen.Add(e.UserID) {
			out[len(out)-1].Sessions++
			continue
		}
		out = append(out, UserSummary{
			UserID:   e.UserID,
			Email:    e.Email,
			Name:     e.Name,
			Role:     e.Role,
			LastSeen: e.LastSeen,
			Sessions: 1,
		})
	}
	return out
}

// Count returns the number of tracked sessions.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep removes entries whose last heartbeat is older than the timeout and
// returns how many were removed.
func (t *Tracker) Sweep() int {
	now := t.now()

	t.mu.Lock()
	removed := 0
	for token, e := range t.entries {
		if now.Sub(e.LastSeen) > t.timeout {
			delete(t.entries, token)
			removed++
		}
	}
	t.mu.Unlock()

	if removed > 0 && t.logger != nil {
		t.logger.Debug("swept %d stale sessions", removed)
	}
	return removed
}

// Start launches the background sweep. It runs until ctx is cancelled or
// Stop is called. Calling Start more than once has no effect.
func (t *Tracker) Start(ctx context.Context) {
	t.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		t.cancel = cancel
		go t.sweepLoop(ctx)
		if t.logger != nil {
			t.logger.Info("presence sweep started: interval=%s timeout=%s", t.sweepInterval, t.timeout)
		}
	})
}

func (t *Tracker) sweepLoop(ctx context.Context) {
	defer close(t.done)

	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the background sweep and waits for it to exit. Safe to call
// more than once, and before Start.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		// a later Start becomes a no-op
		t.startOnce.Do(func() {})
		if t.cancel != nil {
			t.cancel()
			<-t.done
		}
	})
}

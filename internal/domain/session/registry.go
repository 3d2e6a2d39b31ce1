package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agentdeck-server/internal/domain/eventbus"
	"agentdeck-server/internal/domain/session/store"
	perrors "agentdeck-server/internal/platform/errors"
)

// Options encapsulates the dependencies required to construct a Registry.
type Options struct {
	Store  store.Store
	Logger Logger
	// Bus receives TopicSessionLogin and TopicSessionLogout. Optional.
	Bus *eventbus.Bus
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Registry records logins and answers whether a claim is still current.
// It holds no state of its own; atomicity of the overwrite belongs to the
// store.
type Registry struct {
	store  store.Store
	logger Logger
	bus    *eventbus.Bus
	now    func() time.Time
}

func NewRegistry(opts Options) (*Registry, error) {
	if opts.Store == nil {
		return nil, errors.New("session registry requires a store")
	}
	if opts.Logger == nil {
		return nil, errors.New("session registry requires a logger")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		store:  opts.Store,
		logger: opts.Logger,
		bus:    opts.Bus,
		now:    now,
	}, nil
}

// RecordLogin stamps a fresh token and login time for the user, replacing
// any earlier login. Claims issued before this call become superseded.
func (r *Registry) RecordLogin(ctx context.Context, userID uint) (LoginRecord, error) {
	if userID == 0 {
		return LoginRecord{}, fmt.Errorf("user id must not be zero")
	}

	rec := LoginRecord{
		UserID:       userID,
		SessionToken: uuid.NewString(),
		LoginTime:    truncate(r.now()),
	}
	if err := r.store.Put(ctx, rec); err != nil {
		r.logger.Error("record login failed: user=%d err=%v", userID, err)
		return LoginRecord{}, r.unavailable("session.record_login", err)
	}
	r.logger.Debug("login recorded: user=%d at=%d", userID, rec.LoginTime.UnixMilli())

	r.publish(eventbus.TopicSessionLogin, eventbus.SessionEvent{
		UserID:       rec.UserID,
		SessionToken: rec.SessionToken,
		LoginTime:    rec.LoginTime,
	})
	return rec, nil
}

// IsValid reports whether claim is still the user's current login. A claim
// whose login time equals the recorded one is valid.
func (r *Registry) IsValid(ctx context.Context, claim Claim) (bool, Reason, error) {
	rec, err := r.store.Get(ctx, claim.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return false, ReasonUserNotFound, nil
	}
	if err != nil {
		r.logger.Error("session lookup failed: user=%d err=%v", claim.UserID, err)
		return false, ReasonError, r.unavailable("session.is_valid", err)
	}

	if claim.LoginTime.UnixMilli() < rec.LoginTime.UnixMilli() {
		return false, ReasonLoggedInElsewhere, nil
	}
	return true, ReasonNone, nil
}

// Check is the advisory composite used by the check-session endpoint. A
// nil claim means the caller presented no credential.
func (r *Registry) Check(ctx context.Context, claim *Claim) Result {
	if claim == nil {
		return Result{Valid: false, Reason: ReasonNoSession}
	}
	ok, reason, _ := r.IsValid(ctx, *claim)
	return Result{Valid: ok, Reason: reason}
}

// Current returns the user's recorded login, ErrUserNotFound when there is
// none.
func (r *Registry) Current(ctx context.Context, userID uint) (LoginRecord, error) {
	rec, err := r.store.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return LoginRecord{}, ErrUserNotFound
	}
	if err != nil {
		return LoginRecord{}, r.unavailable("session.current", err)
	}
	return rec, nil
}

// Forget removes the user's login record so every outstanding claim
// reports user_not_found.
func (r *Registry) Forget(ctx context.Context, userID uint) error {
	if err := r.store.Delete(ctx, userID); err != nil {
		return r.unavailable("session.forget", err)
	}
	r.logger.Debug("login forgotten: user=%d", userID)
	r.publish(eventbus.TopicSessionLogout, eventbus.SessionEvent{UserID: userID})
	return nil
}

// ForgetIfCurrent forgets the user's login only while claim is still the
// recorded one and reports whether it did. A superseded claim leaves the
// newer login untouched.
func (r *Registry) ForgetIfCurrent(ctx context.Context, claim Claim) (bool, error) {
	deleted, err := r.store.DeleteIfCurrent(ctx, claim.UserID, claim.SessionToken)
	if err != nil {
		return false, r.unavailable("session.forget_if_current", err)
	}
	if !deleted {
		r.logger.Debug("stale logout ignored: user=%d", claim.UserID)
		return false, nil
	}
	r.logger.Debug("login forgotten: user=%d", claim.UserID)
	r.publish(eventbus.TopicSessionLogout, eventbus.SessionEvent{UserID: claim.UserID})
	return true, nil
}

// Stats reports store diagnostics.
func (r *Registry) Stats(ctx context.Context) (map[string]any, error) {
	return r.store.Stats(ctx)
}

// Close releases the store.
func (r *Registry) Close(ctx context.Context) error {
	return r.store.Close(ctx)
}

func (r *Registry) publish(topic string, ev eventbus.SessionEvent) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(topic, ev); err != nil {
		r.logger.Warn("publish %s failed: %v", topic, err)
	}
}

func (r *Registry) unavailable(op string, err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, perrors.Wrap(perrors.KindStorage, op, "login record store failed", err))
}

// Package account handles dashboard users: creating them and exchanging
// their credentials for a session token.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"agentdeck-server/internal/domain/activity"
	"agentdeck-server/internal/domain/session"
	perrors "agentdeck-server/internal/platform/errors"
	"agentdeck-server/internal/platform/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrUserExists         = errors.New("user already exists")
	ErrUnknownUser        = errors.New("no such user")
)

// Roles a user may hold.
const (
	RoleAdmin  = "admin"
	RoleUser   = "user"
	RoleViewer = "viewer"
)

const minPasswordLen = 8

// UserRepository is the subset of user storage the service needs.
type UserRepository interface {
	Create(ctx context.Context, user *storage.User) error
	FindByEmail(ctx context.Context, email string) (*storage.User, error)
	FindByID(ctx context.Context, id uint) (*storage.User, error)
}

// PresenceRemover drops presence entries on logout.
type PresenceRemover interface {
	Remove(sessionToken string)
	RemoveUser(userID uint) int
}

type Options struct {
	Users    UserRepository
	Registry *session.Registry
	Tokens   *session.TokenIssuer
	// Activity records login and logout entries. Optional.
	Activity *activity.Service
	// Presence is cleared on logout. Optional.
	Presence PresenceRemover
	Logger   session.Logger
}

type Service struct {
	users    UserRepository
	registry *session.Registry
	tokens   *session.TokenIssuer
	activity *activity.Service
	presence PresenceRemover
	logger   session.Logger
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	LoginTime time.Time     `json:"login_time"`
	User      *storage.User `json:"user"`
}

func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Users == nil:
		return nil, errors.New("account service requires a user repository")
	case opts.Registry == nil:
		return nil, errors.New("account service requires a session registry")
	case opts.Tokens == nil:
		return nil, errors.New("account service requires a token issuer")
	case opts.Logger == nil:
		return nil, errors.New("account service requires a logger")
	}
	return &Service{
		users:    opts.Users,
		registry: opts.Registry,
		tokens:   opts.Tokens,
		activity: opts.Activity,
		presence: opts.Presence,
		logger:   opts.Logger,
	}, nil
}

// Login verifies the password and records a fresh login, superseding every
// credential the user held before.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return LoginResult{}, rejected()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return LoginResult{}, rejected()
	}
	if !user.Active() {
		return LoginResult{}, perrors.Wrap(perrors.KindForbidden, "account.login", "account is disabled", ErrUserDisabled)
	}

	rec, err := s.registry.RecordLogin(ctx, user.ID)
	if err != nil {
		return LoginResult{}, err
	}
	token, expiresAt, err := s.tokens.Issue(session.Claim{
		UserID:       rec.UserID,
		SessionToken: rec.SessionToken,
		LoginTime:    rec.LoginTime,
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.logger.Info("user %d logged in", user.ID)
	s.record(ctx, user.ID, "login", fmt.Sprintf("%s signed in", user.Email))

	return LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		LoginTime: rec.LoginTime,
		User:      user,
	}, nil
}

func rejected() error {
	return perrors.Wrap(perrors.KindAuth, "account.login", "invalid email or password", ErrInvalidCredentials)
}

// Logout ends the login claim belongs to. When claim is still current the
// user's login is forgotten and all of their presence goes with it. A
// superseded claim only drops its own presence entry; the newer login on
// another device stays valid.
func (s *Service) Logout(ctx context.Context, claim session.Claim) error {
	forgotten, err := s.registry.ForgetIfCurrent(ctx, claim)
	if err != nil {
		return err
	}
	if !forgotten {
		if s.presence != nil {
			s.presence.Remove(claim.SessionToken)
		}
		s.logger.Debug("user %d signed out a superseded session", claim.UserID)
		return nil
	}
	if s.presence != nil {
		s.presence.RemoveUser(claim.UserID)
	}
	s.logger.Info("user %d logged out", claim.UserID)
	s.record(ctx, claim.UserID, "logout", "signed out")
	return nil
}

// Revoke signs the user behind email out everywhere, whatever credential
// they hold. Presence in other processes expires on its own once heartbeats
// start failing.
func (s *Service) Revoke(ctx context.Context, email string) (*storage.User, error) {
	user, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, perrors.Wrap(perrors.KindValidation, "account.revoke", "no user with that email", ErrUnknownUser)
	}
	if err := s.registry.Forget(ctx, user.ID); err != nil {
		return nil, err
	}
	if s.presence != nil {
		s.presence.RemoveUser(user.ID)
	}
	s.logger.Info("user %d revoked", user.ID)
	s.record(ctx, user.ID, "logout", "signed out by an administrator")
	return user, nil
}

// User returns the account behind id, nil when it does not exist.
func (s *Service) User(ctx context.Context, id uint) (*storage.User, error) {
	return s.users.FindByID(ctx, id)
}

// CreateUser adds an active account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, email, name, role, password string) (*storage.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, perrors.New(perrors.KindValidation, "account.create_user", "email must be a valid address")
	}
	if len(password) < minPasswordLen {
		return nil, perrors.New(perrors.KindValidation, "account.create_user",
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if role == "" {
		role = RoleUser
	}
	switch role {
	case RoleAdmin, RoleUser, RoleViewer:
	default:
		return nil, perrors.New(perrors.KindValidation, "account.create_user", "role must be one of admin, user, viewer")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, perrors.Wrap(perrors.KindConflict, "account.create_user", "user already exists", ErrUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &storage.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		PasswordHash: string(hash),
		Status:       storage.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user %d created: email=%s role=%s", user.ID, user.Email, user.Role)
	return user, nil
}

func (s *Service) record(ctx context.Context, userID uint, action, details string) {
	if s.activity == nil {
		return
	}
	uid := userID
	if _, err := s.activity.Create(ctx, activity.CreateInput{
		UserID:  &uid,
		Agent:   "dashboard",
		Action:  action,
		Details: details,
	}); err != nil {
		s.logger.Warn("record %s activity failed: %v", action, err)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sso-relay/internal/auth"
	"github.com/spec-kit/sso-relay/internal/domain"
	"github.com/spec-kit/sso-relay/internal/events"
	"github.com/spec-kit/sso-relay/internal/repository"
)

// ErrInvalidCredentials is returned for both unknown accounts and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid email or password")

// CredentialVerifier turns email+password into an identity or fails.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (domain.Identity, error)
}

// PasswordVerifier checks bcrypt hashes stored in the credential store.
type PasswordVerifier struct {
	users repository.UserRepository
}

// NewPasswordVerifier builds a verifier over users.
func NewPasswordVerifier(users repository.UserRepository) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

// Verify implements CredentialVerifier.
func (v *PasswordVerifier) Verify(ctx context.Context, email, password string) (domain.Identity, error) {
	if email == "" || password == "" {
		return domain.Identity{}, ErrInvalidCredentials
	}
	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			auth.BurnPasswordCheck(password)
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return domain.Identity{}, ErrInvalidCredentials
		}
		return domain.Identity{}, fmt.Errorf("compare password: %w", err)
	}
	return user.Identity(), nil
}

// AuthService coordinates the portal session lifecycle.
type AuthService struct {
	verifier CredentialVerifier
	sessions repository.SessionRepository
	ttl      time.Duration
	now      func() time.Time
	events   events.Dispatcher
	logger   *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Verifier CredentialVerifier
	Sessions repository.SessionRepository
	Events   events.Dispatcher
	Logger   *zap.Logger
}

// NewAuthService builds the service. Portal sessions live as long as relay tokens.
func NewAuthService(sessionTTL time.Duration, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		verifier: deps.Verifier,
		sessions: deps.Sessions,
		ttl:      sessionTTL,
		now:      time.Now,
		events:   deps.Events,
		logger:   logger,
	}
}

// Login verifies credentials and opens a portal session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.PortalSession, error) {
	identity, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("portal login failed", zap.String("email", email))
			events.Publish(ctx, s.events, events.NewEvent(events.EventLoginFailed, domain.Identity{},
				events.LoginFailedPayload{Email: email}))
		}
		return nil, err
	}

	if role := identity.Normalize().Role; !role.Known() {
		s.logger.Warn("credential store returned an unrecognized role",
			zap.String("email", identity.Email), zap.String("role", string(role)))
	}

	now := s.now().UTC()
	sess := domain.PortalSession{
		ID:        uuid.NewString(),
		Identity:  identity.Normalize(),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save portal session: %w", err)
	}

	s.logger.Info("portal login succeeded", zap.String("email", sess.Identity.Email))
	events.Publish(ctx, s.events, events.NewEvent(events.EventLoginSucceeded, sess.Identity, nil))
	return &sess, nil
}

// Session returns the live portal session for id, or nil when there is none.
// Store failures are returned as errors, never as "no session".
func (s *AuthService) Session(ctx context.Context, id string) (*domain.PortalSession, error) {
	if id == "" {
		return nil, nil
	}
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load portal session: %w", err)
	}
	if sess.Expired(s.now()) {
		return nil, nil
	}
	return sess, nil
}

// Logout ends the portal session. Tokens already issued stay valid until they expire.
func (s *AuthService) Logout(ctx context.Context, id string) error {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete portal session: %w", err)
	}
	events.Publish(ctx, s.events, events.NewEvent(events.EventLogout, sess.Identity, nil))
	return nil
}

// SessionTTL returns how long new portal sessions live.
func (s *AuthService) SessionTTL() time.Duration {
	return s.ttl
}

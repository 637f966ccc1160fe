package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/sso-relay/internal/config"
	"github.com/spec-kit/sso-relay/internal/domain"
)

var (
	// ErrInvalidToken covers every "this credential is not acceptable" outcome:
	// malformed, bad signature, expired, or missing claims. Callers treat it as absence.
	ErrInvalidToken = errors.New("invalid relay token")

	// ErrSigningKeyUnavailable means the manager cannot sign or verify at all.
	// It is an infrastructure failure, never folded into ErrInvalidToken.
	ErrSigningKeyUnavailable = errors.New("relay signing key unavailable")
)

// TokenManager signs and verifies relay tokens with the shared secret.
// It holds no mutable state and is safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

// Claims is the relay token payload.
// iat/exp/jti/sub live in the embedded registered claims.
type Claims struct {
	UserID string      `json:"id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// NewTokenManager builds a manager from validated auth settings.
func NewTokenManager(cfg config.AuthConfig) (*TokenManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenManager{
		secret: []byte(cfg.SharedSecret),
		ttl:    cfg.TokenTTL(),
		leeway: cfg.ClockSkew(),
		now:    time.Now,
	}, nil
}

// WithClock returns a copy of the manager reading time from now.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	clone := *tm
	clone.now = now
	return &clone
}

// TTL returns the fixed token lifetime.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// Now returns the manager's current time.
func (tm *TokenManager) Now() time.Time {
	if tm.now == nil {
		return time.Now()
	}
	return tm.now()
}

// Issue signs a fresh token for identity. Claims come only from identity;
// issuedAt is now and expiresAt is exactly issuedAt+TTL.
func (tm *TokenManager) Issue(identity domain.Identity) (string, *Claims, error) {
	if len(tm.secret) == 0 {
		return "", nil, ErrSigningKeyUnavailable
	}

	identity = identity.Normalize()
	issuedAt := tm.now().Truncate(time.Second)
	claims := &Claims{
		UserID: identity.ID,
		Email:  identity.Email,
		Name:   identity.Name,
		Role:   identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign relay token: %w", err)
	}
	return tokenString, claims, nil
}

// Verify checks signature, expiry and claim shape.
// A token is valid while now < expiresAt + leeway; with zero leeway it is
// rejected exactly at expiresAt.
func (tm *TokenManager) Verify(tokenStr string) (*Claims, error) {
	if len(tm.secret) == 0 {
		return nil, ErrSigningKeyUnavailable
	}
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tm.leeway),
		jwt.WithTimeFunc(tm.now),
		jwt.WithStrictDecoding(),
	)

	claims := &Claims{}
	parsed, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing iat", ErrInvalidToken)
	}
	if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > tm.ttl {
		return nil, fmt.Errorf("%w: lifetime exceeds ttl", ErrInvalidToken)
	}
	if claims.UserID == "" || claims.Email == "" || claims.Role == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}
	return claims, nil
}

// Identity returns the principal carried by the claims.
func (c *Claims) Identity() domain.Identity {
	return domain.Identity{ID: c.UserID, Email: c.Email, Name: c.Name, Role: c.Role}
}

// Remaining returns how long the token stays valid after now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

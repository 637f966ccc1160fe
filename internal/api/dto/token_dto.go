package dto

import (
	"time"

	"github.com/spec-kit/sso-relay/internal/domain"
)

// TokenRequest is the optional POST body of the token endpoint.
type TokenRequest struct {
	ReturnTo string `json:"returnTo" query:"returnTo"`
}

// UserSummary is the redacted identity returned alongside tokens.
type UserSummary struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  domain.Role `json:"role"`
}

// TokenResponse is returned by the token endpoint when no returnTo is given.
type TokenResponse struct {
	Token     string      `json:"token"`
	User      UserSummary `json:"user"`
	ExpiresIn int64       `json:"expiresIn"`
}

// MeResponse describes the caller of a satellite application.
type MeResponse struct {
	User         UserSummary `json:"user"`
	ExpiresAt    time.Time   `json:"expiresAt"`
	ExpiringSoon bool        `json:"expiringSoon"`
}

// NewUserSummary projects an identity into its public form.
func NewUserSummary(identity domain.Identity) UserSummary {
	return UserSummary{ID: identity.ID, Email: identity.Email, Name: identity.Name, Role: identity.Role}
}

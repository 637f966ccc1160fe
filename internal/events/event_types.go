package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sso-relay/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTokenIssued        EventType = "token_issued"
	EventSessionEstablished EventType = "session_established"
	EventSessionDiscarded   EventType = "session_discarded"
	EventLoginSucceeded     EventType = "login_succeeded"
	EventLoginFailed        EventType = "login_failed"
	EventLogout             EventType = "logout"
)

// AllEventTypes lists every type a subscriber may register for.
var AllEventTypes = []EventType{
	EventTokenIssued,
	EventSessionEstablished,
	EventSessionDiscarded,
	EventLoginSucceeded,
	EventLoginFailed,
	EventLogout,
}

// Actor identifies the principal an event is about. Empty for anonymous events.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Email  string      `json:"email,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a relay audit event emitted by the issuer, acceptor and portal.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, identity domain.Identity, payload interface{}) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: eventType,
		Actor: Actor{
			UserID: identity.ID,
			Email:  identity.Email,
			Role:   identity.Role,
		},
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TokenIssuedPayload payload.
type TokenIssuedPayload struct {
	TokenID    string    `json:"token_id"`
	ReturnHost string    `json:"return_host,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SessionEstablishedPayload payload.
type SessionEstablishedPayload struct {
	TokenID string `json:"token_id"`
	Host    string `json:"host"`
	Path    string `json:"path"`
}

// SessionDiscardedPayload payload.
type SessionDiscardedPayload struct {
	Host string `json:"host"`
	Path string `json:"path"`
}

// LoginFailedPayload payload. Email is the attempted login, not a verified identity.
type LoginFailedPayload struct {
	Email string `json:"email"`
}

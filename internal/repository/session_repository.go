package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/sso-relay/internal/domain"
)

// ErrSessionNotFound is returned when a portal session does not exist or has expired.
var ErrSessionNotFound = errors.New("portal session not found")

// SessionRepository persists portal sessions.
type SessionRepository interface {
	Save(ctx context.Context, sess domain.PortalSession) error
	Get(ctx context.Context, id string) (*domain.PortalSession, error)
	Delete(ctx context.Context, id string) error
}

// redisSessionRepository stores sessions as JSON with a TTL matching ExpiresAt.
type redisSessionRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisSessionRepository creates a Redis-backed session repository.
func NewRedisSessionRepository(client redis.UniversalClient) SessionRepository {
	return &redisSessionRepository{client: client, prefix: "portal-session:"}
}

func (r *redisSessionRepository) Save(ctx context.Context, sess domain.PortalSession) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session is expired")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.client.Set(ctx, r.prefix+sess.ID, data, ttl).Err()
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (*domain.PortalSession, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	data, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var sess domain.PortalSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if sess.Expired(time.Now()) {
		if err := r.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("cleanup expired session: %w", err)
		}
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return r.client.Del(ctx, r.prefix+id).Err()
}

// MemorySessionRepository keeps sessions in process. Suitable for a single
// portal instance and for tests.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.PortalSession
	now      func() time.Time
}

// NewMemorySessionRepository creates an empty in-memory repository.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]domain.PortalSession), now: time.Now}
}

func (r *MemorySessionRepository) Save(_ context.Context, sess domain.PortalSession) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	if sess.Expired(r.now()) {
		return errors.New("session is expired")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ID] = sess
	return nil
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (*domain.PortalSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.Expired(r.now()) {
		delete(r.sessions, id)
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *MemorySessionRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

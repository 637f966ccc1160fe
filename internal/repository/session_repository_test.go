package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sso-relay/internal/domain"
)

func testSession(expiresIn time.Duration) domain.PortalSession {
	now := time.Now().UTC()
	return domain.PortalSession{
		ID:        uuid.NewString(),
		Identity:  domain.Identity{ID: "user-1", Email: "a@example.com", Name: "A", Role: domain.RoleAdmin},
		CreatedAt: now,
		ExpiresAt: now.Add(expiresIn),
	}
}

func exerciseSessionRepository(t *testing.T, repo SessionRepository) {
	t.Helper()
	ctx := context.Background()

	sess := testSession(30 * time.Minute)
	require.NoError(t, repo.Save(ctx, sess))

	got, err := repo.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Identity, got.Identity)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	require.NoError(t, repo.Delete(ctx, sess.ID))
	_, err = repo.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = repo.Get(ctx, "")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Error(t, repo.Save(ctx, testSession(-time.Minute)))
	assert.Error(t, repo.Save(ctx, domain.PortalSession{ExpiresAt: time.Now().Add(time.Hour)}))
}

func TestMemorySessionRepository(t *testing.T) {
	exerciseSessionRepository(t, NewMemorySessionRepository())
}

func TestMemorySessionRepository_ExpiresOnRead(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	sess := testSession(time.Minute)
	require.NoError(t, repo.Save(ctx, sess))

	repo.now = func() time.Time { return sess.ExpiresAt }
	_, err := repo.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, repo.Len())
}

// TestRedisSessionRepository runs against REDIS_ADDR and skips when Redis is unreachable.
func TestRedisSessionRepository(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	exerciseSessionRepository(t, NewRedisSessionRepository(client))
}

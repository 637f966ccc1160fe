package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sso-relay/internal/domain"
)

// ErrCredentialStoreUnavailable is returned when no Postgres pool was configured.
var ErrCredentialStoreUnavailable = errors.New("credential store not configured")

// UserRepository defines read access to the portal credential store.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// GetByEmail returns pgx.ErrNoRows when no account matches.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id::text, email, COALESCE(display_name, ''), COALESCE(role, ''), password_hash, created_at, updated_at
        FROM users WHERE lower(email)=$1`

	if r.pool == nil {
		return nil, ErrCredentialStoreUnavailable
	}

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

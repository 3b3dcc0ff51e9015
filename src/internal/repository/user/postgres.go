package repository_user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seatvault/reservation-engine/src/internal/domain"
	domain_user "github.com/seatvault/reservation-engine/src/internal/domain/user"

	"github.com/jmoiron/sqlx"
)

type postgresUserRepository struct {
	db *sqlx.DB
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
func NewPostgresUserRepository(db *sqlx.DB) *postgresUserRepository {
	return &postgresUserRepository{db: db}
}

// GetByID retrieves a user by id.
func (r *postgresUserRepository) GetByID(ctx context.Context, id string) (*domain_user.User, error) {
	query := `
		SELECT id, email, name, active, external, created_at, updated_at
		FROM users
		WHERE id = $1`

	var user domain_user.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

// EnsureExternal upserts a row for a namespaced external identity the
// Identity Gate synthesized, so the user_id foreign keys on
// Reservation/Booking always resolve and the declaration leaves an
// audit trail. A second call with the same id is a no-op update of
// email/name, never a duplicate row.
func (r *postgresUserRepository) EnsureExternal(ctx context.Context, id, email, name string) (*domain_user.User, error) {
	query := `
		INSERT INTO users (id, email, name, active, external, created_at, updated_at)
		VALUES ($1, $2, $3, true, true, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, name = EXCLUDED.name, updated_at = NOW()
		RETURNING id, email, name, active, external, created_at, updated_at`

	var user domain_user.User
	if err := r.db.GetContext(ctx, &user, query, id, email, name); err != nil {
		return nil, err
	}
	return &user, nil
}

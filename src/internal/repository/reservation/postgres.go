package repository_reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/seatvault/reservation-engine/src/internal/domain"
	domain_reservation "github.com/seatvault/reservation-engine/src/internal/domain/reservation"
	"github.com/seatvault/reservation-engine/src/internal/store"

	"github.com/jmoiron/sqlx"
)

type postgresReservationRepository struct {
	db *sqlx.DB
}

// NewPostgresReservationRepository creates a new PostgreSQL reservation
// repository.
func NewPostgresReservationRepository(db *sqlx.DB) *postgresReservationRepository {
	return &postgresReservationRepository{db: db}
}

// Create inserts the audit row backing a freshly acquired lock.
func (r *postgresReservationRepository) Create(ctx context.Context, exec store.Execer, res *domain_reservation.Reservation) error {
	query := `
		INSERT INTO reservations
			(token, tenant_id, user_id, seat_id, entity_id, seat_number, price, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`

	_, err := exec.ExecContext(ctx, query,
		res.Token, res.TenantID, res.UserID, res.SeatID, res.EntityID,
		res.SeatNumber, res.Price, res.Status, res.ExpiresAt)
	return err
}

// GetByToken retrieves a reservation by its opaque token.
func (r *postgresReservationRepository) GetByToken(ctx context.Context, token string) (*domain_reservation.Reservation, error) {
	query := `
		SELECT token, tenant_id, user_id, seat_id, entity_id, seat_number, price,
		       status, expires_at, created_at, updated_at
		FROM reservations
		WHERE token = $1`

	var res domain_reservation.Reservation
	if err := r.db.GetContext(ctx, &res, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("reservation not found")
		}
		return nil, err
	}
	return &res, nil
}

// UpdateStatus guards the transition on fromStatus so two concurrent
// callers racing the same token (confirm vs. release, or either vs.
// the janitor) cannot both win.
func (r *postgresReservationRepository) UpdateStatus(ctx context.Context, exec store.Execer, token string, fromStatus, toStatus domain_reservation.Status) (bool, error) {
	query := `
		UPDATE reservations
		SET status = $3, updated_at = NOW()
		WHERE token = $1 AND status = $2`

	result, err := exec.ExecContext(ctx, query, token, fromStatus, toStatus)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ListExpiredActive returns up to limit ACTIVE reservations whose
// expiresAt has already passed, oldest first, for the janitor sweep.
func (r *postgresReservationRepository) ListExpiredActive(ctx context.Context, before time.Time, limit int) ([]*domain_reservation.Reservation, error) {
	query := `
		SELECT token, tenant_id, user_id, seat_id, entity_id, seat_number, price,
		       status, expires_at, created_at, updated_at
		FROM reservations
		WHERE status = 'ACTIVE' AND expires_at < $1
		ORDER BY expires_at ASC
		LIMIT $2`

	var rows []*domain_reservation.Reservation
	if err := r.db.SelectContext(ctx, &rows, query, before, limit); err != nil {
		return nil, err
	}
	return rows, nil
}

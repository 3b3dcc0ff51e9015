package repository_booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seatvault/reservation-engine/src/internal/domain"
	domain_booking "github.com/seatvault/reservation-engine/src/internal/domain/booking"
	"github.com/seatvault/reservation-engine/src/internal/store"

	"github.com/jmoiron/sqlx"
)

type postgresBookingRepository struct {
	db *sqlx.DB
}

// NewPostgresBookingRepository creates a new PostgreSQL booking repository.
func NewPostgresBookingRepository(db *sqlx.DB) *postgresBookingRepository {
	return &postgresBookingRepository{db: db}
}

// Create inserts the durable confirmation record. exec is the same
// transaction the engine used for the seat/reservation writes in the
// same confirm step.
func (r *postgresBookingRepository) Create(ctx context.Context, exec store.Execer, b *domain_booking.Booking) error {
	query := `
		INSERT INTO bookings
			(id, tenant_id, user_id, seat_id, reservation_token, entity_id, seat_number,
			 price, currency, payment_status, payment_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())`

	_, err := exec.ExecContext(ctx, query,
		b.ID, b.TenantID, b.UserID, b.SeatID, b.ReservationToken, b.EntityID,
		b.SeatNumber, b.Price, b.Currency, b.PaymentStatus, b.PaymentReference)
	return err
}

// ExistsByID reports whether a bookingId is already in use, so the
// engine can regenerate its human-readable suffix on collision instead
// of failing the confirm outright.
func (r *postgresBookingRepository) ExistsByID(ctx context.Context, exec store.Execer, id string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`

	var exists bool
	if err := exec.QueryRowxContext(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GetByReservationToken retrieves the booking created from a given
// reservation, if any.
func (r *postgresBookingRepository) GetByReservationToken(ctx context.Context, token string) (*domain_booking.Booking, error) {
	query := `
		SELECT id, tenant_id, user_id, seat_id, reservation_token, entity_id, seat_number,
		       price, currency, payment_status, payment_reference, created_at
		FROM bookings
		WHERE reservation_token = $1`

	var b domain_booking.Booking
	if err := r.db.GetContext(ctx, &b, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("booking not found")
		}
		return nil, err
	}
	return &b, nil
}

// ListByUser returns a page of a user's bookings, newest first.
func (r *postgresBookingRepository) ListByUser(ctx context.Context, tenantID, userID string, page, pageSize int) (*domain_booking.Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `
		SELECT id, tenant_id, user_id, seat_id, reservation_token, entity_id, seat_number,
		       price, currency, payment_status, payment_reference, created_at
		FROM bookings
		WHERE tenant_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	var rows []*domain_booking.Booking
	if err := r.db.SelectContext(ctx, &rows, query, tenantID, userID, pageSize+1, offset); err != nil {
		return nil, err
	}

	nextPage := 0
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		nextPage = page + 1
	}

	return &domain_booking.Page{Bookings: rows, NextPage: nextPage}, nil
}

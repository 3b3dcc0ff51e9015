package repository_seat

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/seatvault/reservation-engine/src/internal/domain"
	domain_seat "github.com/seatvault/reservation-engine/src/internal/domain/seat"
	"github.com/seatvault/reservation-engine/src/internal/store"

	"github.com/jmoiron/sqlx"
)

type postgresSeatRepository struct {
	db *sqlx.DB
}

// NewPostgresSeatRepository creates a new PostgreSQL seat repository.
func NewPostgresSeatRepository(db *sqlx.DB) *postgresSeatRepository {
	return &postgresSeatRepository{db: db}
}

// GetByID retrieves a seat by id.
func (r *postgresSeatRepository) GetByID(ctx context.Context, id string) (*domain_seat.Seat, error) {
	query := `
		SELECT id, tenant_id, entity_id, seat_number, price, domain_tag, metadata,
		       status, booked_by, booking_id, created_at, updated_at
		FROM seats
		WHERE id = $1`

	var seat domain_seat.Seat
	if err := r.db.GetContext(ctx, &seat, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NewNotFound("seat not found")
		}
		return nil, err
	}
	return &seat, nil
}

// ListAvailable returns AVAILABLE seats for (tenantID, entityID), sorted
// by seatNumber, optionally bounded by price.Min/price.Max.
func (r *postgresSeatRepository) ListAvailable(ctx context.Context, tenantID, entityID string, price domain_seat.PriceRange) ([]*domain_seat.Seat, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, tenant_id, entity_id, seat_number, price, domain_tag, metadata,
		       status, booked_by, booking_id, created_at, updated_at
		FROM seats
		WHERE tenant_id = $1 AND entity_id = $2 AND status = 'AVAILABLE'`)

	args := []interface{}{tenantID, entityID}
	if price.Min != nil {
		args = append(args, *price.Min)
		b.WriteString(" AND price >= $")
		b.WriteString(strconv.Itoa(len(args)))
	}
	if price.Max != nil {
		args = append(args, *price.Max)
		b.WriteString(" AND price <= $")
		b.WriteString(strconv.Itoa(len(args)))
	}
	b.WriteString(" ORDER BY seat_number ASC")

	var seats []*domain_seat.Seat
	if err := r.db.SelectContext(ctx, &seats, b.String(), args...); err != nil {
		return nil, err
	}
	return seats, nil
}

// MarkBooked performs the confirm-transaction seat mutation: the row
// must still be AVAILABLE, or the update matches nothing and the
// caller (the engine, mid-transaction) must abort. Status, bookedBy
// and bookingId are set together in one statement rather than two
// writes, since Postgres permits the combined update atomically.
func (r *postgresSeatRepository) MarkBooked(ctx context.Context, exec store.Execer, seatID, userID, bookingID string) error {
	query := `
		UPDATE seats
		SET status = 'BOOKED', booked_by = $2, booking_id = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'AVAILABLE'`

	result, err := exec.ExecContext(ctx, query, seatID, userID, bookingID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewConflict("seat is no longer available", map[string]interface{}{"seatId": seatID})
	}
	return nil
}


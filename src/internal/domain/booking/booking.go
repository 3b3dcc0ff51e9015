// Package domain_booking defines the Booking entity: the durable
// confirmation record created once a Reservation's payment clears.
package domain_booking

import (
	"context"
	"time"

	"github.com/seatvault/reservation-engine/src/internal/store"
)

type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "SUCCESS"
)

// Booking.ID follows the human-readable "BK-YYYYMMDD-XXXXXX" format
// (date of confirmation, 6-character uppercase alphanumeric suffix);
// the Reservation Engine regenerates the suffix on a collision rather
// than surfacing one to the caller.
type Booking struct {
	ID               string        `json:"id" db:"id"`
	TenantID         string        `json:"tenant_id" db:"tenant_id"`
	UserID           string        `json:"user_id" db:"user_id"`
	SeatID           string        `json:"seat_id" db:"seat_id"`
	ReservationToken string        `json:"reservation_token" db:"reservation_token"`
	EntityID         string        `json:"entity_id" db:"entity_id"`
	SeatNumber       int           `json:"seat_number" db:"seat_number"`
	Price            float64       `json:"price" db:"price"`
	Currency         string        `json:"currency" db:"currency"`
	PaymentStatus    PaymentStatus `json:"payment_status" db:"payment_status"`
	PaymentReference string        `json:"payment_reference" db:"payment_reference"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
}

// Page is a page of a user's bookings plus the cursor for the next one.
type Page struct {
	Bookings []*Booking
	NextPage int
}

type Repository interface {
	Create(ctx context.Context, exec store.Execer, b *Booking) error
	ExistsByID(ctx context.Context, exec store.Execer, id string) (bool, error)
	GetByReservationToken(ctx context.Context, token string) (*Booking, error)

	// ListByUser returns bookings for (tenantID, userID) newest first,
	// paginated by page/pageSize (1-indexed page).
	ListByUser(ctx context.Context, tenantID, userID string, page, pageSize int) (*Page, error)
}

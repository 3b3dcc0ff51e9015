// Package domain_reservation defines the Reservation entity: the
// temporary hold a user places on a seat while completing payment.
package domain_reservation

import (
	"context"
	"time"

	"github.com/seatvault/reservation-engine/src/internal/store"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusExpired   Status = "EXPIRED"
	StatusConfirmed Status = "CONFIRMED"
	StatusReleased  Status = "RELEASED"
)

// Reservation is addressed by its Token (opaque, returned to the caller
// from Reserve) rather than by a sequential id, so a token leak never
// discloses how many reservations exist. SeatNumber/Price/EntityID are
// denormalized onto the row at creation time so Confirm can build a
// Booking without a second join back to Seat after the seat's own row
// has moved on to BOOKED.
type Reservation struct {
	Token      string    `json:"token" db:"token"`
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	SeatID     string    `json:"seat_id" db:"seat_id"`
	EntityID   string    `json:"entity_id" db:"entity_id"`
	SeatNumber int       `json:"seat_number" db:"seat_number"`
	Price      float64   `json:"price" db:"price"`
	Status     Status    `json:"status" db:"status"`
	ExpiresAt  time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Repository provides the reservation lifecycle persistence. Status
// transitions are guarded: UpdateStatus only applies when the row is
// still in fromStatus, so two concurrent Confirm/Release/expiry-sweep
// calls racing the same token cannot both succeed.
type Repository interface {
	Create(ctx context.Context, exec store.Execer, r *Reservation) error
	GetByToken(ctx context.Context, token string) (*Reservation, error)

	// UpdateStatus moves the reservation from fromStatus to toStatus and
	// reports whether the row actually matched (false means someone else
	// already transitioned it first).
	UpdateStatus(ctx context.Context, exec store.Execer, token string, fromStatus, toStatus Status) (bool, error)

	// ListExpiredActive returns ACTIVE reservations whose expiresAt has
	// passed, for the janitor's sweep. limit bounds one sweep batch.
	ListExpiredActive(ctx context.Context, before time.Time, limit int) ([]*Reservation, error)
}

// Package domain_seat defines the Seat entity: the atomic bookable unit
// identified by (tenantId, entityId, seatNumber).
package domain_seat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/seatvault/reservation-engine/src/internal/store"
)

type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusBooked    Status = "BOOKED"
)

// Seat's durable status is mutated only by the Reservation Engine during
// confirmation; BookedBy/BookingID are populated together with BOOKED.
type Seat struct {
	ID         string          `json:"id" db:"id"`
	TenantID   string          `json:"tenant_id" db:"tenant_id"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	SeatNumber int             `json:"seat_number" db:"seat_number"`
	Price      float64         `json:"price" db:"price"`
	DomainTag  string          `json:"domain_tag" db:"domain_tag"`
	Metadata   json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	Status     Status          `json:"status" db:"status"`
	BookedBy   *string         `json:"booked_by,omitempty" db:"booked_by"`
	BookingID  *string         `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// PriceRange bounds an optional [min, max] filter on ListAvailable.
type PriceRange struct {
	Min *float64
	Max *float64
}

// Repository provides indexed reads and the seat mutation used inside
// the confirm transaction. Seat inventory seeding is an external
// collaborator; this module only ever transitions AVAILABLE -> BOOKED.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Seat, error)
	ListAvailable(ctx context.Context, tenantID, entityID string, price PriceRange) ([]*Seat, error)

	// MarkBooked performs the single confirm-transaction seat mutation:
	// status=BOOKED, bookedBy, bookingId all set together. exec is the
	// open transaction the Reservation Engine's confirm step is running
	// inside of.
	MarkBooked(ctx context.Context, exec store.Execer, seatID, userID, bookingID string) error
}

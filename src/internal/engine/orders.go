package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/seatvault/reservation-engine/src/internal/domain"
	domain_booking "github.com/seatvault/reservation-engine/src/internal/domain/booking"
	domain_reservation "github.com/seatvault/reservation-engine/src/internal/domain/reservation"
	domain_user "github.com/seatvault/reservation-engine/src/internal/domain/user"
)

// Order is create-order's response shape: a gateway order object keyed
// on reservationToken, per spec.md §4.6 / §6.
type Order struct {
	OrderID          string  `json:"orderId"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	ReservationToken string  `json:"reservationToken"`
	GatewayKey       string  `json:"gatewayKey"`
}

// CreateOrder is the optional create-order surface: idempotent by
// reservationToken, deriving orderId deterministically so repeat calls
// for the same token return the same order without a dedicated orders
// table (spec.md §4.6's "optional" note plus the Design Notes'
// lightweight-surface guidance). Runs in a tenant+user context exactly
// like Confirm/Release, so a reservationToken belonging to a different
// tenant or a different user within the same tenant is rejected rather
// than handed back its price, currency, and gateway key.
func (e *Engine) CreateOrder(ctx context.Context, tenantID string, user *domain_user.User, reservationToken string, amount float64, currency string) (*Order, error) {
	res, err := e.reservations.GetByToken(ctx, reservationToken)
	if err != nil {
		return nil, domain.Wrap(err)
	}
	if res.TenantID != tenantID {
		return nil, domain.NewConflict("reservation does not belong to this tenant", nil)
	}
	if res.UserID != user.ID {
		return nil, domain.NewConflict("reservation does not belong to this user", nil)
	}
	if res.Status != domain_reservation.StatusActive {
		return nil, domain.NewConflict("reservation is not active", nil)
	}

	if currency == "" {
		currency = "USD"
	}
	if amount <= 0 {
		amount = res.Price
	}

	sum := sha256.Sum256([]byte(reservationToken))
	orderID := "ORD-" + hex.EncodeToString(sum[:])[:16]

	return &Order{
		OrderID:          orderID,
		Amount:           amount,
		Currency:         currency,
		ReservationToken: reservationToken,
		GatewayKey:       e.gatewayKey,
	}, nil
}

// ListBookings returns a page of a user's bookings, newest first.
func (e *Engine) ListBookings(ctx context.Context, tenantID, userID string, page, pageSize int) (*domain_booking.Page, error) {
	result, err := e.bookings.ListByUser(ctx, tenantID, userID, page, pageSize)
	if err != nil {
		return nil, domain.Wrap(err)
	}
	return result, nil
}

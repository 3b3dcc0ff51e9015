// Package engine implements the Reservation Engine: the central
// algorithm coordinating the Lock Store, the Durable Store, and the
// Payment Verifier across ListSeats, Reserve, Confirm, and Release.
// Grounded on the teacher's internal/usecase/booking.go call shape
// (constructor takes repositories + logger, methods are request/response
// pairs that log on success and wrap errors with context) generalized
// from ticket-booking semantics to the seat/reservation/booking pipeline.
package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/seatvault/reservation-engine/src/internal/domain"
	domain_booking "github.com/seatvault/reservation-engine/src/internal/domain/booking"
	domain_reservation "github.com/seatvault/reservation-engine/src/internal/domain/reservation"
	domain_seat "github.com/seatvault/reservation-engine/src/internal/domain/seat"
	domain_tenant "github.com/seatvault/reservation-engine/src/internal/domain/tenant"
	domain_user "github.com/seatvault/reservation-engine/src/internal/domain/user"
	"github.com/seatvault/reservation-engine/src/internal/lock"
	"github.com/seatvault/reservation-engine/src/internal/payment"
	"github.com/seatvault/reservation-engine/src/internal/store"
	"github.com/seatvault/reservation-engine/src/utils"

	"github.com/google/uuid"
)

const bookingIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// locker is the slice of lock.Store the engine actually calls, split
// out the same way payment.Gateway is: a narrow interface so tests can
// supply a fake lock store instead of a real Redis instance.
type locker interface {
	Acquire(ctx context.Context, key, token, userID string, ttl time.Duration) (*lock.Lock, error)
	Release(ctx context.Context, key, expectedToken string) (bool, error)
	Verify(ctx context.Context, key, token, userID string) (bool, error)
	BulkExists(ctx context.Context, keys []string) (map[string]bool, error)
}

// txStore is the slice of store.Store the engine calls: the pooled
// connection for single-statement writes, and the transaction helper
// for commitConfirm's multi-repository commit.
type txStore interface {
	Execer() store.Execer
	WithTx(ctx context.Context, fn func(tx store.Execer) error) error
}

// Engine implements the reservation pipeline's core algorithm.
type Engine struct {
	seats        domain_seat.Repository
	reservations domain_reservation.Repository
	bookings     domain_booking.Repository
	store        txStore
	locks        locker
	verifier     *payment.Verifier
	lockTTL      time.Duration
	gatewayKey   string
	logger       *utils.Logger
}

func New(
	seats domain_seat.Repository,
	reservations domain_reservation.Repository,
	bookings domain_booking.Repository,
	st txStore,
	locks locker,
	verifier *payment.Verifier,
	lockTTL time.Duration,
	gatewayKey string,
	logger *utils.Logger,
) *Engine {
	return &Engine{
		seats:        seats,
		reservations: reservations,
		bookings:     bookings,
		store:        st,
		locks:        locks,
		verifier:     verifier,
		lockTTL:      lockTTL,
		gatewayKey:   gatewayKey,
		logger:       logger,
	}
}

// SeatView is the ListSeats/Reserve response shape: a seat snapshot
// plus whatever of its price/availability the caller needs without a
// second round trip.
type SeatView struct {
	ID         string  `json:"id"`
	SeatNumber int     `json:"seatNumber"`
	Price      float64 `json:"price"`
	EntityID   string  `json:"entityId"`
}

// ListSeats reads AVAILABLE seats for (tenantId, entityId), then
// bulk-filters out any currently holding a live lock. The result is
// eventually consistent; Reserve is the authoritative gate.
func (e *Engine) ListSeats(ctx context.Context, tenantID, entityID string, priceRange domain_seat.PriceRange) ([]*SeatView, error) {
	seats, err := e.seats.ListAvailable(ctx, tenantID, entityID, priceRange)
	if err != nil {
		return nil, domain.Wrap(err)
	}
	if len(seats) == 0 {
		return []*SeatView{}, nil
	}

	keys := make([]string, len(seats))
	for i, s := range seats {
		keys[i] = s.ID
	}
	locked, err := e.locks.BulkExists(ctx, keys)
	if err != nil {
		return nil, domain.Wrap(err)
	}

	views := make([]*SeatView, 0, len(seats))
	for _, s := range seats {
		if locked[s.ID] {
			continue
		}
		views = append(views, &SeatView{ID: s.ID, SeatNumber: s.SeatNumber, Price: s.Price, EntityID: s.EntityID})
	}
	return views, nil
}

// ReserveResult is Reserve's success output.
type ReserveResult struct {
	ReservationToken string
	ExpiresAt        time.Time
	TTLSeconds       int64
	Seat             SeatView
}

// Reserve acquires a lock on seatID for user and inserts the
// Reservation audit row, per spec §4.4.2. On any failure after the
// lock is acquired, the lock is released before the error is returned.
func (e *Engine) Reserve(ctx context.Context, tenant *domain_tenant.Tenant, user *domain_user.User, seatID string) (*ReserveResult, error) {
	seat, err := e.seats.GetByID(ctx, seatID)
	if err != nil {
		return nil, domain.Wrap(err)
	}
	if seat.TenantID != tenant.ID {
		return nil, domain.NewConflict("seat does not belong to this tenant", nil)
	}
	if seat.Status != domain_seat.StatusAvailable {
		return nil, domain.NewConflict("seat is not available", map[string]interface{}{"status": seat.Status})
	}

	token := uuid.New().String()
	l, err := e.locks.Acquire(ctx, seat.ID, token, user.ID, e.lockTTL)
	if err != nil {
		if held, ok := err.(*lock.ErrAlreadyHeld); ok {
			return nil, domain.NewSeatLockError("seat is currently held", held.ExpiresIn)
		}
		return nil, domain.Wrap(err)
	}

	reservation := &domain_reservation.Reservation{
		Token:      token,
		TenantID:   tenant.ID,
		UserID:     user.ID,
		SeatID:     seat.ID,
		EntityID:   seat.EntityID,
		SeatNumber: seat.SeatNumber,
		Price:      seat.Price,
		Status:     domain_reservation.StatusActive,
		ExpiresAt:  l.ExpiresAt,
	}

	if err := e.reservations.Create(ctx, e.store.Execer(), reservation); err != nil {
		if _, relErr := e.locks.Release(ctx, seat.ID, token); relErr != nil {
			e.logger.Error("failed to release lock after reserve failure", "seatId", seat.ID, "error", relErr)
		}
		return nil, domain.Wrap(err)
	}

	e.logger.Info("reservation created", "token", token, "seatId", seat.ID, "userId", user.ID)

	return &ReserveResult{
		ReservationToken: token,
		ExpiresAt:        l.ExpiresAt,
		TTLSeconds:       int64(e.lockTTL.Seconds()),
		Seat:             SeatView{ID: seat.ID, SeatNumber: seat.SeatNumber, Price: seat.Price, EntityID: seat.EntityID},
	}, nil
}

// ConfirmInput carries the two accepted payment-proof shapes; exactly
// one of PaymentID (reference/simulated mode) or the OrderID/PaymentID/
// Signature triple (signed-callback mode) should be populated.
type ConfirmInput struct {
	ReservationToken string
	PaymentID        string
	OrderID          string
	Signature        string
}

// Confirm runs the five-step confirmation transaction: reservation
// guard, lock re-verification, seat re-read, payment verification,
// then the durable commit (seat BOOKED, booking insert, reservation
// CONFIRMED), releasing the lock on success. Per spec §4.4.3.
func (e *Engine) Confirm(ctx context.Context, user *domain_user.User, in ConfirmInput) (*domain_booking.Booking, error) {
	res, err := e.reservations.GetByToken(ctx, in.ReservationToken)
	if err != nil {
		return nil, domain.Wrap(err)
	}
	if res.UserID != user.ID {
		return nil, domain.NewConflict("reservation does not belong to this user", nil)
	}
	if res.Status != domain_reservation.StatusActive {
		return nil, domain.NewConflict("reservation is not active", map[string]interface{}{"status": res.Status})
	}
	if utils.IsExpired(res.ExpiresAt) {
		e.expireReservation(ctx, res)
		return nil, domain.NewConflict("reservation expired", nil)
	}

	ok, err := e.locks.Verify(ctx, res.SeatID, res.Token, res.UserID)
	if err != nil {
		return nil, domain.Wrap(err)
	}
	if !ok {
		return nil, domain.NewSeatLockError("lock no longer held", 0)
	}

	seat, err := e.seats.GetByID(ctx, res.SeatID)
	if err != nil {
		return nil, domain.Wrap(err)
	}
	if seat.Status != domain_seat.StatusAvailable {
		return nil, domain.NewConflict("seat is no longer available", nil)
	}

	reference, err := e.verifyPayment(in)
	if err != nil {
		return nil, err
	}

	booking, err := e.commitConfirm(ctx, res, reference)
	if err != nil {
		return nil, err
	}

	if _, err := e.locks.Release(ctx, res.SeatID, res.Token); err != nil {
		e.logger.Error("failed to release lock after confirm", "seatId", res.SeatID, "error", err)
	}

	e.logger.Info("booking confirmed", "bookingId", booking.ID, "reservationToken", res.Token)
	return booking, nil
}

func (e *Engine) verifyPayment(in ConfirmInput) (string, error) {
	if in.OrderID != "" || in.Signature != "" {
		return e.verifier.VerifySignedCallback(in.OrderID, in.PaymentID, in.Signature)
	}
	return e.verifier.VerifyReference(in.PaymentID)
}

// commitConfirm performs step 5 of Confirm inside one transaction,
// regenerating the bookingId suffix on a rare collision.
func (e *Engine) commitConfirm(ctx context.Context, res *domain_reservation.Reservation, paymentReference string) (*domain_booking.Booking, error) {
	var booking *domain_booking.Booking

	err := e.store.WithTx(ctx, func(tx store.Execer) error {
		bookingID, err := e.generateBookingID(ctx, tx)
		if err != nil {
			return err
		}

		if err := e.seats.MarkBooked(ctx, tx, res.SeatID, res.UserID, bookingID); err != nil {
			return err
		}

		b := &domain_booking.Booking{
			ID:               bookingID,
			TenantID:         res.TenantID,
			UserID:           res.UserID,
			SeatID:           res.SeatID,
			ReservationToken: res.Token,
			EntityID:         res.EntityID,
			SeatNumber:       res.SeatNumber,
			Price:            res.Price,
			Currency:         "USD",
			PaymentStatus:    domain_booking.PaymentStatusSuccess,
			PaymentReference: paymentReference,
		}
		if err := e.bookings.Create(ctx, tx, b); err != nil {
			return err
		}

		transitioned, err := e.reservations.UpdateStatus(ctx, tx, res.Token, domain_reservation.StatusActive, domain_reservation.StatusConfirmed)
		if err != nil {
			return err
		}
		if !transitioned {
			return domain.NewConflict("reservation was concurrently modified", nil)
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, domain.Wrap(err)
	}
	return booking, nil
}

// generateBookingID mints BK-YYYYMMDD-XXXXXX, regenerating the random
// suffix on an (extremely unlikely) collision within the open
// transaction.
func (e *Engine) generateBookingID(ctx context.Context, tx store.Execer) (string, error) {
	datePart := time.Now().UTC().Format("20060102")

	for attempt := 0; attempt < 5; attempt++ {
		suffix, err := randomSuffix(6)
		if err != nil {
			return "", err
		}
		candidate := fmt.Sprintf("BK-%s-%s", datePart, suffix)

		exists, err := e.bookings.ExistsByID(ctx, tx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique bookingId after several attempts")
}

func randomSuffix(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = bookingIDAlphabet[int(b)%len(bookingIDAlphabet)]
	}
	return string(out), nil
}

// Release cancels an in-flight reservation: releases the lock and
// marks the reservation RELEASED. Idempotent on an already-released
// token (returns success without mutation).
func (e *Engine) Release(ctx context.Context, user *domain_user.User, reservationToken string) error {
	res, err := e.reservations.GetByToken(ctx, reservationToken)
	if err != nil {
		return domain.Wrap(err)
	}
	if res.UserID != user.ID {
		return domain.NewConflict("reservation does not belong to this user", nil)
	}
	if res.Status == domain_reservation.StatusConfirmed {
		return domain.NewConflict("reservation is already confirmed", nil)
	}
	if res.Status == domain_reservation.StatusReleased {
		return nil
	}

	if _, err := e.locks.Release(ctx, res.SeatID, res.Token); err != nil {
		return domain.Wrap(err)
	}

	if _, err := e.reservations.UpdateStatus(ctx, e.store.Execer(), res.Token, res.Status, domain_reservation.StatusReleased); err != nil {
		return domain.Wrap(err)
	}

	e.logger.Info("reservation released", "token", res.Token)
	return nil
}

// expireReservation reconciles a lazily-discovered expiry: it releases
// the lock by compare-and-delete on the reservation's token (a no-op
// when Redis has already auto-expired it) and moves the audit row to
// EXPIRED.
func (e *Engine) expireReservation(ctx context.Context, res *domain_reservation.Reservation) {
	if _, err := e.locks.Release(ctx, res.SeatID, res.Token); err != nil {
		e.logger.Error("failed to release lock on lazy expiry", "seatId", res.SeatID, "error", err)
	}
	if _, err := e.reservations.UpdateStatus(ctx, e.store.Execer(), res.Token, domain_reservation.StatusActive, domain_reservation.StatusExpired); err != nil {
		e.logger.Error("failed to mark reservation expired", "token", res.Token, "error", err)
	}
}

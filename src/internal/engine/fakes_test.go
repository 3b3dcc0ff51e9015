package engine

import (
	"context"
	"sync"
	"time"

	"github.com/seatvault/reservation-engine/src/internal/domain"
	domain_booking "github.com/seatvault/reservation-engine/src/internal/domain/booking"
	domain_reservation "github.com/seatvault/reservation-engine/src/internal/domain/reservation"
	domain_seat "github.com/seatvault/reservation-engine/src/internal/domain/seat"
	"github.com/seatvault/reservation-engine/src/internal/lock"
	"github.com/seatvault/reservation-engine/src/internal/store"
	"github.com/seatvault/reservation-engine/src/utils"
)

// fakeLocker reimplements lock.Store's SETNX/TTL/compare-and-delete
// semantics over a mutex-guarded map instead of Redis, so Reserve's
// race behavior can be exercised without a live Redis instance.
type fakeLocker struct {
	mu    sync.Mutex
	locks map[string]*lock.Lock
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{locks: map[string]*lock.Lock{}}
}

func (f *fakeLocker) Acquire(ctx context.Context, key, token, userID string, ttl time.Duration) (*lock.Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.locks[key]; ok && utils.Now().Before(existing.ExpiresAt) {
		return nil, &lock.ErrAlreadyHeld{Key: key, ExpiresIn: int64(existing.ExpiresAt.Sub(utils.Now()).Seconds())}
	}

	now := utils.Now()
	l := &lock.Lock{Token: token, UserID: userID, AcquiredAt: now, ExpiresAt: now.Add(ttl)}
	f.locks[key] = l
	return l, nil
}

func (f *fakeLocker) Release(ctx context.Context, key, expectedToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.locks[key]
	if !ok {
		return false, nil
	}
	if expectedToken != "" && l.Token != expectedToken {
		return false, nil
	}
	delete(f.locks, key)
	return true, nil
}

func (f *fakeLocker) Verify(ctx context.Context, key, token, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.locks[key]
	if !ok {
		return false, nil
	}
	return l.Token == token && l.UserID == userID && utils.Now().Before(l.ExpiresAt), nil
}

func (f *fakeLocker) BulkExists(ctx context.Context, keys []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		l, ok := f.locks[k]
		out[k] = ok && utils.Now().Before(l.ExpiresAt)
	}
	return out, nil
}

// fakeTxStore satisfies txStore without a database: the fake
// repositories below never dereference the Execer they are handed, so
// WithTx only needs to run fn and propagate its error.
type fakeTxStore struct{}

func (fakeTxStore) Execer() store.Execer { return nil }

func (fakeTxStore) WithTx(ctx context.Context, fn func(tx store.Execer) error) error {
	return fn(nil)
}

type fakeSeatRepo struct {
	mu    sync.Mutex
	seats map[string]*domain_seat.Seat
}

func newFakeSeatRepo(seats ...*domain_seat.Seat) *fakeSeatRepo {
	r := &fakeSeatRepo{seats: map[string]*domain_seat.Seat{}}
	for _, s := range seats {
		r.seats[s.ID] = s
	}
	return r
}

func (r *fakeSeatRepo) GetByID(ctx context.Context, id string) (*domain_seat.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.seats[id]
	if !ok {
		return nil, domain.NewNotFound("seat not found")
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSeatRepo) ListAvailable(ctx context.Context, tenantID, entityID string, price domain_seat.PriceRange) ([]*domain_seat.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain_seat.Seat
	for _, s := range r.seats {
		if s.TenantID != tenantID || s.EntityID != entityID || s.Status != domain_seat.StatusAvailable {
			continue
		}
		if price.Min != nil && s.Price < *price.Min {
			continue
		}
		if price.Max != nil && s.Price > *price.Max {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeSeatRepo) MarkBooked(ctx context.Context, exec store.Execer, seatID, userID, bookingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.seats[seatID]
	if !ok {
		return domain.NewNotFound("seat not found")
	}
	if s.Status != domain_seat.StatusAvailable {
		return domain.NewConflict("seat is no longer available", nil)
	}
	s.Status = domain_seat.StatusBooked
	s.BookedBy = &userID
	s.BookingID = &bookingID
	return nil
}

type fakeReservationRepo struct {
	mu      sync.Mutex
	byToken map[string]*domain_reservation.Reservation
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{byToken: map[string]*domain_reservation.Reservation{}}
}

func (r *fakeReservationRepo) Create(ctx context.Context, exec store.Execer, res *domain_reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *res
	r.byToken[res.Token] = &cp
	return nil
}

func (r *fakeReservationRepo) GetByToken(ctx context.Context, token string) (*domain_reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.byToken[token]
	if !ok {
		return nil, domain.NewNotFound("reservation not found")
	}
	cp := *res
	return &cp, nil
}

func (r *fakeReservationRepo) UpdateStatus(ctx context.Context, exec store.Execer, token string, fromStatus, toStatus domain_reservation.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.byToken[token]
	if !ok {
		return false, domain.NewNotFound("reservation not found")
	}
	if res.Status != fromStatus {
		return false, nil
	}
	res.Status = toStatus
	return true, nil
}

func (r *fakeReservationRepo) ListExpiredActive(ctx context.Context, before time.Time, limit int) ([]*domain_reservation.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain_reservation.Reservation
	for _, res := range r.byToken {
		if res.Status == domain_reservation.StatusActive && res.ExpiresAt.Before(before) {
			cp := *res
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

type fakeBookingRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain_booking.Booking
	byToken map[string]*domain_booking.Booking
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{byID: map[string]*domain_booking.Booking{}, byToken: map[string]*domain_booking.Booking{}}
}

func (r *fakeBookingRepo) Create(ctx context.Context, exec store.Execer, b *domain_booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[b.ID]; exists {
		return domain.NewConflict("booking id collision", nil)
	}
	cp := *b
	r.byID[b.ID] = &cp
	r.byToken[b.ReservationToken] = &cp
	return nil
}

func (r *fakeBookingRepo) ExistsByID(ctx context.Context, exec store.Execer, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byID[id]
	return ok, nil
}

func (r *fakeBookingRepo) GetByReservationToken(ctx context.Context, token string) (*domain_booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.byToken[token]
	if !ok {
		return nil, domain.NewNotFound("booking not found")
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) ListByUser(ctx context.Context, tenantID, userID string, page, pageSize int) (*domain_booking.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain_booking.Booking
	for _, b := range r.byID {
		if b.TenantID == tenantID && b.UserID == userID {
			cp := *b
			matched = append(matched, &cp)
		}
	}
	return &domain_booking.Page{Bookings: matched, NextPage: 0}, nil
}

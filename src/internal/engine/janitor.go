package engine

import (
	"context"
	"sync"
	"time"

	domain_reservation "github.com/seatvault/reservation-engine/src/internal/domain/reservation"
	"github.com/seatvault/reservation-engine/src/internal/store"
	"github.com/seatvault/reservation-engine/src/utils"
)

// Janitor periodically sweeps ACTIVE reservations whose expiresAt has
// passed and marks them EXPIRED, per spec §4.4.5: optional, since the
// core flows already handle expiry lazily on read, but it keeps the
// audit view from drifting far behind the Lock Store's own TTL expiry.
// Adapted from the teacher's BookingProcessor
// (utils/concurrency/processor.go): same ctx/cancel/WaitGroup/ticker
// lifecycle and GetStats/Shutdown shape, repurposed from a fan-out
// booking-request queue into one periodic sweep goroutine.
type Janitor struct {
	reservations domain_reservation.Repository
	db           store.Execer
	logger       *utils.Logger

	interval  time.Duration
	batchSize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.RWMutex
	sweeps       int64
	totalExpired int64
	lastSweepAt  time.Time
}

func NewJanitor(reservations domain_reservation.Repository, db store.Execer, logger *utils.Logger, interval time.Duration, batchSize int) *Janitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Janitor{
		reservations: reservations,
		db:           db,
		logger:       logger,
		interval:     interval,
		batchSize:    batchSize,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start launches the sweep goroutine.
func (j *Janitor) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Info("janitor started", "interval", j.interval, "batchSize", j.batchSize)
}

func (j *Janitor) run() {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	expired, err := j.reservations.ListExpiredActive(j.ctx, utils.Now(), j.batchSize)
	if err != nil {
		j.logger.Error("janitor sweep failed to list expired reservations", "error", err)
		return
	}

	moved := 0
	for _, res := range expired {
		ok, err := j.reservations.UpdateStatus(j.ctx, j.db, res.Token, domain_reservation.StatusActive, domain_reservation.StatusExpired)
		if err != nil {
			j.logger.Error("janitor failed to expire reservation", "token", res.Token, "error", err)
			continue
		}
		if ok {
			moved++
		}
	}

	j.mu.Lock()
	j.sweeps++
	j.totalExpired += int64(moved)
	j.lastSweepAt = utils.Now()
	j.mu.Unlock()

	if moved > 0 {
		j.logger.Debug("janitor expired reservations", "count", moved)
	}
}

// GetStats returns sweep counters for operational visibility.
func (j *Janitor) GetStats() map[string]interface{} {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return map[string]interface{}{
		"sweeps":        j.sweeps,
		"total_expired": j.totalExpired,
		"last_sweep_at": j.lastSweepAt,
	}
}

// Shutdown stops the sweep goroutine and waits for it to exit.
func (j *Janitor) Shutdown() {
	j.logger.Info("shutting down janitor")
	j.cancel()
	j.wg.Wait()
	j.logger.Info("janitor stopped")
}

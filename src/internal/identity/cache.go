package identity

import (
	"context"
	"sync"
	"time"

	domain_tenant "github.com/seatvault/reservation-engine/src/internal/domain/tenant"
)

// TenantCache is a read-through, TTL'd cache of Tenant rows in front of
// the durable store, with invalidation on rotation (Invalidate, called
// after an admin-side secret/origin update). Adapted from
// event_lock_manager.go's map+RWMutex+cleanup-ticker shape: that
// manager tracked in-process mutexes per event, keyed by refcount and
// idle time; here the same shape tracks cached tenant rows, keyed by
// TTL alone, because the gate has nothing to reference-count.
type TenantCache struct {
	mu            sync.RWMutex
	entries       map[string]*cacheEntry
	ttl           time.Duration
	cleanupTicker *time.Ticker
	cancel        context.CancelFunc
}

type cacheEntry struct {
	tenant    *domain_tenant.Tenant
	expiresAt time.Time
}

func NewTenantCache(ttl time.Duration) *TenantCache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &TenantCache{
		entries:       make(map[string]*cacheEntry),
		ttl:           ttl,
		cleanupTicker: time.NewTicker(time.Minute),
		cancel:        cancel,
	}
	go c.cleanupLoop(ctx)
	return c
}

// Get returns the cached tenant if present and unexpired, otherwise
// calls load (the durable store's GetByID) and caches the result.
// A not-found result (nil tenant, nil error) is not cached, so a
// newly-created tenant is visible immediately.
func (c *TenantCache) Get(ctx context.Context, tenantID string, load func(context.Context, string) (*domain_tenant.Tenant, error)) (*domain_tenant.Tenant, error) {
	c.mu.RLock()
	entry, ok := c.entries[tenantID]
	c.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.tenant, nil
	}

	tenant, err := load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, nil
	}

	c.mu.Lock()
	c.entries[tenantID] = &cacheEntry{tenant: tenant, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()

	return tenant, nil
}

// Invalidate drops a tenant's cached entry, forcing the next Get to
// read through to the durable store. Call this after rotating a
// tenant's secret or allowed origins.
func (c *TenantCache) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.entries, tenantID)
	c.mu.Unlock()
}

func (c *TenantCache) cleanupLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.cleanupTicker.C:
			c.sweepExpired()
		}
	}
}

func (c *TenantCache) sweepExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
}

// Shutdown stops the background cleanup loop.
func (c *TenantCache) Shutdown() {
	c.cancel()
	c.cleanupTicker.Stop()
}

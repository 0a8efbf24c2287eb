package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/adept-redirects/internal/metrics"
)

// Static defaults.  Override via config.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 100
	EvictInterval = 5 * time.Minute
)

// ErrNotFound is returned when a host is not present in the site table.
var ErrNotFound = errors.New("tenant not found")

// Cache lazily loads tenants, stores them in a sync.Map, and evicts them on
// idle TTL or LRU pressure.
type Cache struct {
	load       Loader
	sfg        singleflight.Group
	m          sync.Map // host → *entry
	idleTTL    time.Duration
	maxEntries int

	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs a Cache and starts the background evictor.
func New(load Loader, idleTTL time.Duration, maxEntries int) *Cache {
	c := &Cache{
		load:       load,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	go c.evictLoop(time.NewTicker(EvictInterval))
	return c
}

// Close stops the evictor.
func (c *Cache) Close() { c.stopOnce.Do(func() { close(c.stop) }) }

// Get returns the Tenant for host, loading it on demand.  Unknown hosts are
// not cached, so a site created later is picked up on the next request.
func (c *Cache) Get(ctx context.Context, host string) (*Tenant, error) {
	if v, ok := c.m.Load(host); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.tenant, nil
	}

	v, err, _ := c.sfg.Do(host, func() (any, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.m.Load(host); ok {
			return v.(*entry).tenant, nil
		}
		// Detached so one cancelled request does not fail every waiter.
		ten, err := c.load(context.WithoutCancel(ctx), host)
		if err != nil {
			metrics.TenantLoadErrorsTotal.Inc()
			return nil, err
		}
		c.m.Store(host, &entry{tenant: ten, lastSeen: time.Now().UnixNano()})
		metrics.TenantLoadTotal.Inc()
		metrics.ActiveTenants.Inc()
		return ten, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tenant), nil
}

// Forget drops host so the next Get reloads it.
func (c *Cache) Forget(host string) {
	if _, ok := c.m.LoadAndDelete(host); ok {
		metrics.ActiveTenants.Dec()
	}
}

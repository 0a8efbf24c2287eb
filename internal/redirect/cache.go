// internal/redirect/cache.go
//
// Resolution cache: one published Snapshot per site.
//
// Context
// -------
// The not-found path reads snapshots far more often than operators write
// redirects, so each site's active entries are scanned and compiled once,
// published, and shared by every request until the next invalidation.
//
// Consistency
// -----------
//   - Get on an empty slot rebuilds synchronously.  Concurrent callers for
//     the same site and generation share one build (singleflight).
//   - Invalidate bumps the slot generation and unpublishes the snapshot
//     under the slot mutex.  A build that started before the bump carries
//     the old generation and is never published, so a Get issued after a
//     write-and-invalidate always observes the write.
//   - Readers only load an atomic pointer.  A snapshot is fully built
//     before it is published, so a reader sees the old one, none, or the
//     complete new one.
//   - Sites are independent slots; invalidating one never touches another.
//
// An optional evictor unpublishes idle snapshots and trims the least
// recently used ones above maxSites.  Eviction only frees memory; the next
// Get rebuilds.

package redirect

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/adept-redirects/internal/metrics"
)

// Static defaults.  Override via config.
const (
	SnapshotIdleTTL = 30 * time.Minute
	MaxSnapshots    = 1000
	EvictInterval   = 5 * time.Minute
)

// Source is what the cache scans when it rebuilds.  Repository satisfies
// it.
type Source interface {
	List(ctx context.Context, f Filter) ([]Entry, error)
}

// Invalidator drops cached state derived from the store.
type Invalidator interface {
	Invalidate(siteID uint64)
	InvalidateAll()
}

// Fanout forwards invalidations to several targets, e.g. the local cache
// and the cross-process broadcaster.
type Fanout []Invalidator

func (f Fanout) Invalidate(siteID uint64) {
	for _, inv := range f {
		inv.Invalidate(siteID)
	}
}

func (f Fanout) InvalidateAll() {
	for _, inv := range f {
		inv.InvalidateAll()
	}
}

type slot struct {
	mu       sync.Mutex // serialises publish and invalidate
	gen      uint64     // guarded by mu
	snap     atomic.Pointer[Snapshot]
	lastSeen atomic.Int64 // UnixNano
}

func (s *slot) touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *slot) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// publish stores snap unless the slot was invalidated since its build
// started.
func (s *slot) publish(snap *Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != snap.gen {
		return false
	}
	if s.snap.Swap(snap) == nil {
		metrics.RedirectSnapshots.Inc()
	}
	return true
}

func (s *slot) invalidate() {
	s.mu.Lock()
	s.gen++
	old := s.snap.Swap(nil)
	s.mu.Unlock()
	if old != nil {
		metrics.RedirectSnapshots.Dec()
	}
}

// Cache maps site id → published Snapshot.
type Cache struct {
	src      Source
	sfg      singleflight.Group
	slots    sync.Map // uint64 → *slot
	idleTTL  time.Duration
	maxSites int

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache constructs a Cache.  When idleTTL or maxSites is positive a
// background evictor runs every EvictInterval until Close.
func NewCache(src Source, idleTTL time.Duration, maxSites int) *Cache {
	c := &Cache{
		src:      src,
		idleTTL:  idleTTL,
		maxSites: maxSites,
		stop:     make(chan struct{}),
	}
	if idleTTL > 0 || maxSites > 0 {
		go c.evictLoop(time.NewTicker(EvictInterval))
	}
	return c
}

// Close stops the evictor.  Safe to call more than once.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) slot(siteID uint64) *slot {
	if v, ok := c.slots.Load(siteID); ok {
		return v.(*slot)
	}
	v, _ := c.slots.LoadOrStore(siteID, &slot{})
	return v.(*slot)
}

// Get returns the published snapshot for siteID, building it first when
// none is published.  A store read failure is returned and nothing is
// cached, so the next call retries.
func (c *Cache) Get(ctx context.Context, siteID uint64) (*Snapshot, error) {
	s := c.slot(siteID)
	if snap := s.snap.Load(); snap != nil {
		s.touch()
		return snap, nil
	}

	gen := s.generation()
	key := strconv.FormatUint(siteID, 10) + ":" + strconv.FormatUint(gen, 10)
	v, err, _ := c.sfg.Do(key, func() (any, error) {
		if snap := s.snap.Load(); snap != nil && snap.gen == gen {
			return snap, nil
		}
		// Detached so one cancelled request does not fail every waiter.
		snap, err := c.build(context.WithoutCancel(ctx), siteID, gen)
		if err != nil {
			return nil, err
		}
		s.publish(snap)
		s.touch()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Cached returns the published snapshot without building one.
func (c *Cache) Cached(siteID uint64) (*Snapshot, bool) {
	v, ok := c.slots.Load(siteID)
	if !ok {
		return nil, false
	}
	snap := v.(*slot).snap.Load()
	return snap, snap != nil
}

// Invalidate unpublishes siteID's snapshot.  The next Get rebuilds.
func (c *Cache) Invalidate(siteID uint64) {
	if v, ok := c.slots.Load(siteID); ok {
		v.(*slot).invalidate()
	}
	metrics.RedirectInvalidationsTotal.Inc()
	zap.L().Debug("redirect cache invalidated", zap.Uint64("site_id", siteID))
}

// InvalidateAll unpublishes every site's snapshot.
func (c *Cache) InvalidateAll() {
	n := 0
	c.slots.Range(func(_, v any) bool {
		v.(*slot).invalidate()
		n++
		return true
	})
	metrics.RedirectInvalidationsTotal.Add(float64(n))
	zap.L().Debug("redirect cache invalidated for all sites", zap.Int("sites", n))
}

func (c *Cache) build(ctx context.Context, siteID, gen uint64) (*Snapshot, error) {
	start := time.Now()
	entries, err := c.src.List(ctx, Filter{SiteID: siteID, Active: Bool(true)})
	if err != nil {
		metrics.RedirectBuildErrorsTotal.Inc()
		return nil, fmt.Errorf("load redirects for site %d: %w", siteID, err)
	}

	snap, errs := Build(siteID, entries)
	snap.gen = gen
	for _, e := range errs {
		metrics.RedirectPatternErrorsTotal.Inc()
		zap.L().Error("redirect pattern skipped", zap.Uint64("site_id", siteID), zap.Error(e))
	}

	metrics.RedirectBuildTotal.Inc()
	metrics.RedirectBuildSeconds.Observe(time.Since(start).Seconds())
	zap.L().Debug("redirect snapshot built",
		zap.Uint64("site_id", siteID),
		zap.Int("entries", snap.Len()),
		zap.Duration("took", time.Since(start)))
	return snap, nil
}

// -----------------------------------------------------------------------------
// eviction
// -----------------------------------------------------------------------------

func (c *Cache) evictLoop(t *time.Ticker) {
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-t.C:
			c.evict(now)
		}
	}
}

// evict unpublishes idle snapshots, then the least recently used ones while
// more than maxSites remain.
func (c *Cache) evict(now time.Time) {
	type kv struct {
		site uint64
		s    *slot
		at   int64
	}
	var live []kv

	c.slots.Range(func(key, value any) bool {
		s := value.(*slot)
		if s.snap.Load() == nil {
			return true
		}
		at := s.lastSeen.Load()
		idle := time.Duration(now.UnixNano() - at)
		if c.idleTTL > 0 && idle > c.idleTTL {
			s.invalidate()
			zap.L().Debug("redirect snapshot evicted",
				zap.Uint64("site_id", key.(uint64)),
				zap.Duration("idle", idle.Truncate(time.Second)))
			return true
		}
		live = append(live, kv{site: key.(uint64), s: s, at: at})
		return true
	})

	if c.maxSites <= 0 || len(live) <= c.maxSites {
		return
	}
	sort.Slice(live, func(i, j int) bool { return live[i].at < live[j].at })
	for _, e := range live[:len(live)-c.maxSites] {
		e.s.invalidate()
		zap.L().Debug("redirect snapshot evicted (LRU pressure)", zap.Uint64("site_id", e.site))
	}
}

package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/rl1809/catalog/internal/core/domain"
	"github.com/rl1809/catalog/internal/port"
)

type CacheMetrics struct {
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Refreshes    uint64 `json:"refreshes"`
	SnapshotHits uint64 `json:"snapshotHits"`
}

// StatsCache holds the stats of the most recently seen store version. A
// query only reads the store when its version differs from the one in the
// slot.
type StatsCache struct {
	source      port.ItemSource
	snapshots   port.SnapshotRepository
	diagnostics bool

	mu      sync.RWMutex
	version domain.StoreVersion
	stats   *domain.Stats

	group singleflight.Group

	hits         atomic.Uint64
	misses       atomic.Uint64
	refreshes    atomic.Uint64
	snapshotHits atomic.Uint64
}

type StatsCacheOption func(*StatsCache)

// WithSnapshots shares computed stats with other processes through repo.
func WithSnapshots(repo port.SnapshotRepository) StatsCacheOption {
	return func(c *StatsCache) { c.snapshots = repo }
}

// WithDiagnostics logs the cache slot on every query.
func WithDiagnostics(enabled bool) StatsCacheOption {
	return func(c *StatsCache) { c.diagnostics = enabled }
}

func NewStatsCache(source port.ItemSource, opts ...StatsCacheOption) *StatsCache {
	c := &StatsCache{source: source}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *StatsCache) Stats(ctx context.Context) (domain.Stats, error) {
	version, err := c.source.Version(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("stat item store: %w", err)
	}

	if stats, ok := c.lookup(version); ok {
		c.hits.Add(1)
		c.logSlot("hit", version)
		return stats, nil
	}
	c.misses.Add(1)
	c.logSlot("miss", version)

	// Concurrent misses on the same version share one read. The flight
	// must not die with whichever request started it.
	flightCtx := context.WithoutCancel(ctx)
	result, err, _ := c.group.Do(version.String(), func() (any, error) {
		return c.refresh(flightCtx, version)
	})
	if err != nil {
		return domain.Stats{}, err
	}

	return result.(domain.Stats), nil
}

// Warm brings the slot up to date with the store.
func (c *StatsCache) Warm(ctx context.Context) error {
	_, err := c.Stats(ctx)
	return err
}

// Invalidate empties the slot so the next query reads the store.
func (c *StatsCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version = domain.StoreVersion{}
	c.stats = nil
}

func (c *StatsCache) Metrics() CacheMetrics {
	return CacheMetrics{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Refreshes:    c.refreshes.Load(),
		SnapshotHits: c.snapshotHits.Load(),
	}
}

func (c *StatsCache) refresh(ctx context.Context, observed domain.StoreVersion) (domain.Stats, error) {
	if stats, ok := c.lookup(observed); ok {
		return stats, nil
	}

	if c.snapshots != nil {
		stats, ok, err := c.snapshots.GetStats(ctx, observed)
		if err != nil {
			log.WithError(err).Warn("stats snapshot lookup failed")
		} else if ok {
			c.snapshotHits.Add(1)
			c.put(observed, stats)
			return stats, nil
		}
	}

	items, version, err := c.source.ReadItems(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("read item store: %w", err)
	}

	stats := domain.ComputeStats(items)
	c.refreshes.Add(1)
	c.put(version, stats)

	log.WithFields(log.Fields{
		"version":       version.String(),
		"total":         stats.Total,
		"average_price": stats.AveragePrice,
	}).Info("stats recomputed")

	if c.snapshots != nil {
		if err := c.snapshots.SetStats(ctx, version, stats); err != nil {
			log.WithError(err).Warn("stats snapshot store failed")
		}
	}

	return stats, nil
}

func (c *StatsCache) lookup(version domain.StoreVersion) (domain.Stats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stats == nil || !c.version.Equal(version) {
		return domain.Stats{}, false
	}
	return *c.stats, true
}

// put replaces the slot with the version just read. Versions are only
// compared for equality: a store restored with an older mtime is still
// the current store.
func (c *StatsCache) put(version domain.StoreVersion, stats domain.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.version = version
	c.stats = &stats
}

func (c *StatsCache) logSlot(outcome string, current domain.StoreVersion) {
	if !c.diagnostics {
		return
	}

	c.mu.RLock()
	fields := log.Fields{
		"outcome":       outcome,
		"store_version": current.String(),
		"slot_version":  c.version.String(),
		"populated":     c.stats != nil,
	}
	if c.stats != nil {
		fields["total"] = c.stats.Total
		fields["average_price"] = c.stats.AveragePrice
	}
	c.mu.RUnlock()

	log.WithFields(fields).Debug("stats cache")
}

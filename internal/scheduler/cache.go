package scheduler

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"hazardwatch/internal/domain"
)

// Status describes one hazard cache's freshness.
type Status string

const (
	// StatusIdle: no fetch has completed yet.
	StatusIdle Status = "idle"
	// StatusFresh: data is within the staleness threshold.
	StatusFresh Status = "fresh"
	// StatusStale: data exists but the last success is older than the
	// threshold. Stale data keeps being served; this is a display state,
	// not an error.
	StatusStale Status = "stale"
	// StatusFailed: at least one fetch failed and no fetch has ever
	// succeeded, so there is nothing to serve.
	StatusFailed Status = "failed"
)

// Snapshot is an immutable view of one hazard cache. Readers hold it without
// locks; the worker publishes a full replacement on every update, so a reader
// never observes a partially merged record set.
type Snapshot struct {
	Records       []domain.HazardRecord // sorted by ID
	LastFetchedAt time.Time
	LastSuccessAt time.Time
	LastError     error
}

// Cache is the single cache slot for one hazard type. It is single-writer
// (the hazard's refresh worker) and multi-reader: updates swap the snapshot
// pointer atomically.
type Cache struct {
	hazard     domain.HazardType
	staleAfter time.Duration
	clock      clockwork.Clock
	snap       atomic.Pointer[Snapshot]
}

// NewCache creates an empty cache slot. staleAfter is the display staleness
// threshold; pass the refetch interval for feeds whose configured staleAfter
// is zero (realtime feeds are stale as soon as they miss a cycle).
func NewCache(hazard domain.HazardType, staleAfter time.Duration, clock clockwork.Clock) *Cache {
	c := &Cache{hazard: hazard, staleAfter: staleAfter, clock: clock}
	c.snap.Store(&Snapshot{})
	return c
}

// Hazard returns the hazard type this slot caches.
func (c *Cache) Hazard() domain.HazardType { return c.hazard }

// Snapshot returns the current immutable snapshot.
func (c *Cache) Snapshot() *Snapshot { return c.snap.Load() }

// Status derives the freshness state from the current snapshot.
func (c *Cache) Status() Status {
	s := c.snap.Load()
	switch {
	case s.LastSuccessAt.IsZero() && s.LastError == nil:
		return StatusIdle
	case s.LastSuccessAt.IsZero():
		return StatusFailed
	case c.clock.Since(s.LastSuccessAt) > c.staleAfter:
		return StatusStale
	default:
		return StatusFresh
	}
}

// RecordSuccess merges fetched records into the cache by ID (last write wins)
// and publishes a new snapshot. An explicitly empty fetch result clears the
// cache: the source reported "no data", which is different from a failed
// fetch.
//
// Only the owning worker calls this, so the load-merge-store sequence needs no
// compare-and-swap.
func (c *Cache) RecordSuccess(records []domain.HazardRecord) {
	now := c.clock.Now()
	prev := c.snap.Load()

	next := &Snapshot{
		LastFetchedAt: now,
		LastSuccessAt: now,
	}

	if len(records) > 0 {
		merged := make(map[string]domain.HazardRecord, len(prev.Records)+len(records))
		for _, r := range prev.Records {
			merged[r.ID] = r
		}
		for _, r := range records {
			merged[r.ID] = r
		}

		next.Records = make([]domain.HazardRecord, 0, len(merged))
		for _, r := range merged {
			next.Records = append(next.Records, r)
		}
		sort.Slice(next.Records, func(i, j int) bool {
			return next.Records[i].ID < next.Records[j].ID
		})
	}

	c.snap.Store(next)
}

// RecordFailure notes a failed fetch. Existing records are retained unmodified
// (stale data beats no data on transient failure) and LastFetchedAt advances
// so a failing source is not retried faster than its interval.
func (c *Cache) RecordFailure(err error) {
	prev := c.snap.Load()
	c.snap.Store(&Snapshot{
		Records:       prev.Records,
		LastFetchedAt: c.clock.Now(),
		LastSuccessAt: prev.LastSuccessAt,
		LastError:     err,
	})
}

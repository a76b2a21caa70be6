// Package scheduler owns one cache slot and one refresh worker per hazard
// type. Workers run on independent timers: a slow or failing feed never
// delays its siblings. Fetching is the only blocking operation; readers work
// on atomically swapped snapshots.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"hazardwatch/internal/domain"
	"hazardwatch/internal/feed"
	"hazardwatch/internal/observability"
)

// Source is one hazard feed: fetch plus normalization behind a single call.
// Implemented by the adapters in internal/feed.
type Source interface {
	Type() domain.HazardType
	Fetch(ctx context.Context) ([]domain.HazardRecord, error)
}

type slot struct {
	source   Source
	cache    *Cache
	interval time.Duration
}

// Scheduler drives the per-hazard refresh workers.
type Scheduler struct {
	slots        []slot
	caches       map[domain.HazardType]*Cache
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *observability.Metrics
	fetchTimeout time.Duration
	ready        atomic.Bool
}

// New creates a Scheduler with no registered feeds. fetchTimeout bounds every
// individual fetch call.
func New(clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, fetchTimeout time.Duration) *Scheduler {
	return &Scheduler{
		caches:       make(map[domain.HazardType]*Cache),
		clock:        clock,
		logger:       logger,
		metrics:      metrics,
		fetchTimeout: fetchTimeout,
	}
}

// Register adds a feed with its refetch interval and staleness threshold.
// A staleAfter of zero means "stale the moment a cycle is missed" and is
// normalized to the refetch interval.
func (s *Scheduler) Register(src Source, interval, staleAfter time.Duration) {
	if staleAfter <= 0 {
		staleAfter = interval
	}
	c := NewCache(src.Type(), staleAfter, s.clock)
	s.caches[src.Type()] = c
	s.slots = append(s.slots, slot{source: src, cache: c, interval: interval})
}

// Cache returns the cache slot for a hazard type.
func (s *Scheduler) Cache(t domain.HazardType) (*Cache, bool) {
	c, ok := s.caches[t]
	return c, ok
}

// CheckReadiness returns nil once any hazard has completed a successful fetch.
func (s *Scheduler) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no hazard feed has succeeded yet")
	}
	return nil
}

// Run starts one worker per registered feed and blocks until the context is
// cancelled. Always returns nil on orderly shutdown; worker fetch failures are
// recorded in their cache, never propagated.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting", "feeds", len(s.slots))
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	g, ctx := errgroup.WithContext(ctx)
	for _, sl := range s.slots {
		g.Go(func() error {
			s.runWorker(ctx, sl)
			return nil
		})
	}
	return g.Wait()
}

// runWorker refreshes one hazard on its own cadence. The worker is the only
// fetcher for its slot, so at most one fetch per hazard is in flight. The
// ticker keeps firing on schedule whether the previous attempt succeeded or
// failed; there is no tighter retry loop under outage.
func (s *Scheduler) runWorker(ctx context.Context, sl slot) {
	s.refresh(ctx, sl)

	ticker := s.clock.NewTicker(sl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("refresh worker stopping", "hazard", sl.source.Type())
			return
		case <-ticker.Chan():
			s.refresh(ctx, sl)
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context, sl slot) {
	if ctx.Err() != nil {
		return
	}
	hazard := string(sl.source.Type())

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	start := time.Now()
	records, err := sl.source.Fetch(fetchCtx)
	s.metrics.FetchDuration.WithLabelValues(hazard).Observe(time.Since(start).Seconds())

	if err != nil {
		sl.cache.RecordFailure(err)
		s.metrics.FetchesTotal.WithLabelValues(hazard, "error").Inc()

		retryable := false
		var fe *feed.FetchError
		if errors.As(err, &fe) {
			retryable = fe.Retryable
		}
		s.logger.Warn("feed refresh failed, serving last known good",
			"hazard", hazard,
			"error", err,
			"retryable", retryable,
		)
	} else {
		sl.cache.RecordSuccess(records)
		s.metrics.FetchesTotal.WithLabelValues(hazard, "success").Inc()
		s.metrics.CacheRecords.WithLabelValues(hazard).Set(float64(len(sl.cache.Snapshot().Records)))
		s.ready.Store(true)
		s.logger.Debug("feed refreshed", "hazard", hazard, "records", len(records))
	}

	if sl.cache.Status() == StatusStale {
		s.metrics.CacheStale.WithLabelValues(hazard).Set(1)
	} else {
		s.metrics.CacheStale.WithLabelValues(hazard).Set(0)
	}
}

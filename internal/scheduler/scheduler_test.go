package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazardwatch/internal/domain"
	"hazardwatch/internal/feed"
	"hazardwatch/internal/observability"
	"hazardwatch/internal/scheduler"
)

// fakeSource counts fetches and serves a scripted response.
type fakeSource struct {
	hazard  domain.HazardType
	records []domain.HazardRecord
	err     error
	fetches atomic.Int64
}

func (f *fakeSource) Type() domain.HazardType { return f.hazard }

func (f *fakeSource) Fetch(_ context.Context) ([]domain.HazardRecord, error) {
	f.fetches.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func record(id string) domain.HazardRecord {
	return domain.HazardRecord{
		ID:       id,
		Type:     domain.HazardSeismic,
		Position: domain.Geo{Lat: 13.75, Lon: 100.5},
	}
}

func newScheduler(clock clockwork.Clock) *scheduler.Scheduler {
	return scheduler.New(clock, slog.Default(), observability.NewMetricsForTesting(), 5*time.Second)
}

func TestSchedulerRefreshesOnRegisterAndTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := newScheduler(clock)

	src := &fakeSource{hazard: domain.HazardSeismic, records: []domain.HazardRecord{record("a")}}
	sched.Register(src, 5*time.Minute, 15*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- sched.Run(ctx) }()

	// First refresh happens immediately, before the first tick.
	require.Eventually(t, func() bool {
		return src.fetches.Load() == 1
	}, time.Second, 5*time.Millisecond)

	cache, ok := sched.Cache(domain.HazardSeismic)
	require.True(t, ok)
	assert.Len(t, cache.Snapshot().Records, 1)
	assert.NoError(t, sched.CheckReadiness(ctx))

	// Wait for the worker to park on its ticker before advancing.
	err := clock.BlockUntilContext(ctx, 1)
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)

	require.Eventually(t, func() bool {
		return src.fetches.Load() == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestSchedulerIsolatesFailingFeed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := newScheduler(clock)

	healthy := &fakeSource{hazard: domain.HazardSeismic, records: []domain.HazardRecord{record("a")}}
	failing := &fakeSource{
		hazard: domain.HazardFlood,
		err:    &feed.FetchError{Code: feed.CodeHTTP, Status: 503, Retryable: true, Err: errors.New("service unavailable")},
	}
	sched.Register(healthy, 5*time.Minute, 15*time.Minute)
	sched.Register(failing, 5*time.Minute, 15*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx) //nolint:errcheck // exercised via cache state

	require.Eventually(t, func() bool {
		return healthy.fetches.Load() >= 1 && failing.fetches.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	healthyCache, _ := sched.Cache(domain.HazardSeismic)
	assert.Equal(t, scheduler.StatusFresh, healthyCache.Status())
	assert.Len(t, healthyCache.Snapshot().Records, 1)

	failingCache, _ := sched.Cache(domain.HazardFlood)
	assert.Equal(t, scheduler.StatusFailed, failingCache.Status())
	assert.Error(t, failingCache.Snapshot().LastError)

	// One healthy feed is enough for readiness.
	assert.NoError(t, sched.CheckReadiness(ctx))
}

func TestSchedulerNotReadyBeforeFirstSuccess(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := newScheduler(clock)

	failing := &fakeSource{hazard: domain.HazardDrought, err: errors.New("boom")}
	sched.Register(failing, 5*time.Minute, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx) //nolint:errcheck // exercised via readiness

	require.Eventually(t, func() bool {
		return failing.fetches.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	assert.Error(t, sched.CheckReadiness(ctx))
}

func TestSchedulerZeroStaleAfterUsesInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sched := newScheduler(clock)

	src := &fakeSource{hazard: domain.HazardRainSensor, records: []domain.HazardRecord{record("rain-1")}}
	sched.Register(src, 30*time.Second, 0)

	cache, ok := sched.Cache(domain.HazardRainSensor)
	require.True(t, ok)

	cache.RecordSuccess(src.records)
	assert.Equal(t, scheduler.StatusFresh, cache.Status())

	clock.Advance(31 * time.Second)
	assert.Equal(t, scheduler.StatusStale, cache.Status(), "missing one cycle makes a realtime feed stale")
}

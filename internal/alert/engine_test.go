package alert_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazardwatch/internal/alert"
	"hazardwatch/internal/domain"
	"hazardwatch/internal/observability"
)

// --- mocks ---

type mockDispatcher struct {
	mu      sync.Mutex
	intents []domain.NotificationIntent
	err     error
}

func (m *mockDispatcher) Dispatch(_ context.Context, intent domain.NotificationIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.intents = append(m.intents, intent)
	return nil
}

func (m *mockDispatcher) sent() []domain.NotificationIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.NotificationIntent(nil), m.intents...)
}

// --- helpers ---

var bangkok = domain.Geo{Lat: 13.7563, Lon: 100.5018}

func cityWideSubscriber(id string) domain.SubscriberProfile {
	pos := bangkok
	return domain.SubscriberProfile{
		ID:          id,
		Position:    &pos,
		RadiusKm:    50,
		MinSeverity: 1,
		Channels:    []string{"push"},
	}
}

func event(id string, severity int) domain.AlertEvent {
	pos := bangkok
	return domain.AlertEvent{
		ID:       id,
		Type:     domain.HazardFlood,
		Severity: severity,
		Position: &pos,
		Title:    "Flood warning",
		Body:     "River level rising",
	}
}

type engineFixture struct {
	engine     *alert.Engine
	subs       *alert.Registry
	dispatcher *mockDispatcher
	clock      *clockwork.FakeClock
}

func newFixture(t *testing.T) *engineFixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	subs := alert.NewRegistry()
	dispatcher := &mockDispatcher{}
	engine := alert.NewEngine(subs, dispatcher, clock, slog.Default(), observability.NewMetricsForTesting(), alert.Options{})
	return &engineFixture{engine: engine, subs: subs, dispatcher: dispatcher, clock: clock}
}

// --- tests ---

func TestEngineEmitsIntentPerMatchedSubscriber(t *testing.T) {
	f := newFixture(t)
	f.subs.Upsert(cityWideSubscriber("user-1"))
	f.subs.Upsert(cityWideSubscriber("user-2"))

	err := f.engine.Process(context.Background(), event("evt-1", 3))
	require.NoError(t, err)

	intents := f.dispatcher.sent()
	require.Len(t, intents, 2)
	assert.Equal(t, "user-1", intents[0].SubscriberID)
	assert.Equal(t, "user-2", intents[1].SubscriberID)
	assert.Equal(t, "evt-1", intents[0].AlertID)
	assert.Equal(t, string(domain.HazardFlood), intents[0].GroupKey)
	assert.Equal(t, []string{"push"}, intents[0].Channels)
	assert.NotEqual(t, intents[0].ID, intents[1].ID)
}

func TestEngineDedupsRedelivery(t *testing.T) {
	f := newFixture(t)
	f.subs.Upsert(cityWideSubscriber("user-1"))

	ctx := context.Background()
	require.NoError(t, f.engine.Process(ctx, event("evt-1", 3)))

	f.clock.Advance(10 * time.Second)
	require.NoError(t, f.engine.Process(ctx, event("evt-1", 3)))
	assert.Len(t, f.dispatcher.sent(), 1, "redelivery inside the TTL is dropped")

	t.Run("same ID emits again after the TTL", func(t *testing.T) {
		f.clock.Advance(61 * time.Second)
		require.NoError(t, f.engine.Process(ctx, event("evt-1", 3)))
		assert.Len(t, f.dispatcher.sent(), 2)
	})
}

func TestEngineThrottle(t *testing.T) {
	ctx := context.Background()

	t.Run("normal severity throttles within 2s", func(t *testing.T) {
		f := newFixture(t)
		f.subs.Upsert(cityWideSubscriber("user-1"))

		require.NoError(t, f.engine.Process(ctx, event("evt-1", 3)))
		f.clock.Advance(500 * time.Millisecond)
		require.NoError(t, f.engine.Process(ctx, event("evt-2", 3)))

		assert.Len(t, f.dispatcher.sent(), 1)
	})

	t.Run("urgent severity uses the shorter cooldown", func(t *testing.T) {
		f := newFixture(t)
		f.subs.Upsert(cityWideSubscriber("user-1"))

		require.NoError(t, f.engine.Process(ctx, event("evt-1", 5)))
		f.clock.Advance(1500 * time.Millisecond)
		require.NoError(t, f.engine.Process(ctx, event("evt-2", 5)))

		assert.Len(t, f.dispatcher.sent(), 2, "1.5s apart clears the 1s urgent cooldown")
	})

	t.Run("unmatched events do not arm the cooldown", func(t *testing.T) {
		f := newFixture(t)
		sub := cityWideSubscriber("user-1")
		sub.MinSeverity = 3
		f.subs.Upsert(sub)

		require.NoError(t, f.engine.Process(ctx, event("evt-low", 1)))
		require.NoError(t, f.engine.Process(ctx, event("evt-high", 3)))

		intents := f.dispatcher.sent()
		require.Len(t, intents, 1)
		assert.Equal(t, "evt-high", intents[0].AlertID)
	})
}

func TestEngineMatching(t *testing.T) {
	ctx := context.Background()

	t.Run("outside radius does not match", func(t *testing.T) {
		f := newFixture(t)
		sub := cityWideSubscriber("user-1")
		sub.RadiusKm = 10
		f.subs.Upsert(sub)

		// Ayutthaya is roughly 70 km north of central Bangkok.
		ev := event("evt-1", 3)
		ev.Position = &domain.Geo{Lat: 14.3532, Lon: 100.5689}
		require.NoError(t, f.engine.Process(ctx, ev))

		assert.Empty(t, f.dispatcher.sent())
	})

	t.Run("inside radius matches", func(t *testing.T) {
		f := newFixture(t)
		f.subs.Upsert(cityWideSubscriber("user-1"))

		// Nonthaburi, roughly 17 km from the subscriber.
		ev := event("evt-1", 3)
		ev.Position = &domain.Geo{Lat: 13.9126, Lon: 100.4930}
		require.NoError(t, f.engine.Process(ctx, ev))

		assert.Len(t, f.dispatcher.sent(), 1)
	})

	t.Run("just past a 50km radius does not match", func(t *testing.T) {
		f := newFixture(t)
		f.subs.Upsert(cityWideSubscriber("user-1"))

		// Ratchaburi province, about 80 km southwest.
		ev := event("evt-1", 3)
		ev.Position = &domain.Geo{Lat: 13.5282, Lon: 99.8134}
		require.NoError(t, f.engine.Process(ctx, ev))

		assert.Empty(t, f.dispatcher.sent())
	})

	t.Run("position-less event matches everyone in severity range", func(t *testing.T) {
		f := newFixture(t)
		sub := cityWideSubscriber("user-1")
		sub.RadiusKm = 1
		f.subs.Upsert(sub)

		ev := event("evt-1", 3)
		ev.Position = nil
		require.NoError(t, f.engine.Process(ctx, ev))

		assert.Len(t, f.dispatcher.sent(), 1)
	})

	t.Run("below subscriber min severity", func(t *testing.T) {
		f := newFixture(t)
		sub := cityWideSubscriber("user-1")
		sub.MinSeverity = 4
		f.subs.Upsert(sub)

		require.NoError(t, f.engine.Process(ctx, event("evt-1", 3)))
		assert.Empty(t, f.dispatcher.sent())
	})

	t.Run("muted type is skipped", func(t *testing.T) {
		f := newFixture(t)
		sub := cityWideSubscriber("user-1")
		sub.MutedTypes = []domain.HazardType{domain.HazardFlood}
		f.subs.Upsert(sub)

		require.NoError(t, f.engine.Process(ctx, event("evt-1", 3)))
		assert.Empty(t, f.dispatcher.sent())
	})

	t.Run("emergency severity bypasses mutes", func(t *testing.T) {
		f := newFixture(t)
		sub := cityWideSubscriber("user-1")
		sub.MutedTypes = []domain.HazardType{domain.HazardFlood}
		f.subs.Upsert(sub)

		require.NoError(t, f.engine.Process(ctx, event("evt-1", 4)))
		assert.Len(t, f.dispatcher.sent(), 1)
	})

	t.Run("mute bypass does not relax min severity", func(t *testing.T) {
		f := newFixture(t)
		sub := cityWideSubscriber("user-1")
		sub.MinSeverity = 5
		sub.MutedTypes = []domain.HazardType{domain.HazardFlood}
		f.subs.Upsert(sub)

		require.NoError(t, f.engine.Process(ctx, event("evt-1", 4)))
		assert.Empty(t, f.dispatcher.sent())
	})
}

func TestEngineDropsMalformedEvents(t *testing.T) {
	f := newFixture(t)
	f.subs.Upsert(cityWideSubscriber("user-1"))
	ctx := context.Background()

	tests := []struct {
		name string
		ev   domain.AlertEvent
	}{
		{"empty ID", domain.AlertEvent{Severity: 3}},
		{"severity below scale", event("evt-1", 0)},
		{"severity above scale", event("evt-2", 6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, f.engine.Process(ctx, tt.ev), "malformed events never error")
		})
	}
	assert.Empty(t, f.dispatcher.sent())
}

func TestEngineReturnsDispatcherError(t *testing.T) {
	f := newFixture(t)
	f.subs.Upsert(cityWideSubscriber("user-1"))
	f.dispatcher.err = errors.New("broker unavailable")

	err := f.engine.Process(context.Background(), event("evt-1", 3))
	assert.ErrorContains(t, err, "broker unavailable")
}

// Package alert evaluates the realtime alert change feed against subscriber
// profiles and decides which notifications to emit.
//
// The change feed has at-least-once delivery, so the engine dedups by event ID
// inside a rolling TTL window before anything else. Emission is then
// rate-limited by a single global cooldown whose length depends on severity:
// emergency-grade alerts (severity >= 4) wait 1s between emissions, everything
// else 2s. The cooldown is deliberately global rather than per hazard type:
// bursts of unrelated events suppress each other, which is the accepted
// behavior pending product clarification.
package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"hazardwatch/internal/domain"
	"hazardwatch/internal/observability"
)

// Dispatcher is the outbound boundary: it hands an intent to the push/email/
// in-app transport. Delivery retries and channel formatting are its concern.
type Dispatcher interface {
	Dispatch(ctx context.Context, intent domain.NotificationIntent) error
}

// Options tunes the engine. Zero fields get the production defaults.
type Options struct {
	DedupTTL       time.Duration // seen-set window, default 60s
	CooldownUrgent time.Duration // severity >= 4, default 1s
	CooldownNormal time.Duration // severity < 4, default 2s
}

func (o Options) withDefaults() Options {
	if o.DedupTTL <= 0 {
		o.DedupTTL = 60 * time.Second
	}
	if o.CooldownUrgent <= 0 {
		o.CooldownUrgent = time.Second
	}
	if o.CooldownNormal <= 0 {
		o.CooldownNormal = 2 * time.Second
	}
	return o
}

// Engine consumes alert events and emits notification intents. Safe for
// concurrent delivery: the dedup set and throttle timestamp are guarded by
// one mutex so check-and-insert is atomic.
type Engine struct {
	subs       *Registry
	dispatcher Dispatcher
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options

	mu          sync.Mutex
	seen        map[string]time.Time // event ID to processed-at
	lastEmitted time.Time
}

// NewEngine creates an alert relevance engine.
func NewEngine(subs *Registry, dispatcher Dispatcher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Engine {
	return &Engine{
		subs:       subs,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		opts:       opts.withDefaults(),
		seen:       make(map[string]time.Time),
	}
}

// Process evaluates one alert event. Malformed events are dropped and logged;
// the returned error is only ever a dispatcher failure, so a bad event can
// never halt the stream.
func (e *Engine) Process(ctx context.Context, ev domain.AlertEvent) error {
	e.metrics.AlertsReceived.Inc()

	if ev.ID == "" || ev.Severity < domain.SeverityMin || ev.Severity > domain.SeverityMax {
		e.metrics.AlertsMalformed.Inc()
		e.logger.Warn("dropping malformed alert event", "alert_id", ev.ID, "severity", ev.Severity)
		return nil
	}

	matched, ok := e.admit(ev)
	if !ok {
		return nil
	}
	if len(matched) == 0 {
		return nil
	}

	var firstErr error
	for _, sub := range matched {
		intent := domain.NotificationIntent{
			ID:           uuid.NewString(),
			AlertID:      ev.ID,
			SubscriberID: sub.ID,
			Title:        ev.Title,
			Body:         ev.Body,
			Severity:     ev.Severity,
			Channels:     sub.Channels,
			GroupKey:     string(ev.Type),
		}
		if err := e.dispatcher.Dispatch(ctx, intent); err != nil {
			e.logger.Error("dispatch failed", "alert_id", ev.ID, "subscriber", sub.ID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.metrics.IntentsEmitted.Inc()
	}
	return firstErr
}

// admit runs dedup, throttle, and subscriber matching under the engine mutex.
// It returns the matched subscribers and whether the event passed the gates.
func (e *Engine) admit(ev domain.AlertEvent) ([]domain.SubscriberProfile, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	e.evictSeen(now)

	if _, dup := e.seen[ev.ID]; dup {
		e.metrics.AlertsDeduped.Inc()
		return nil, false
	}
	e.seen[ev.ID] = now

	cooldown := e.opts.CooldownNormal
	if ev.Severity >= domain.SeverityEmergency {
		cooldown = e.opts.CooldownUrgent
	}
	if !e.lastEmitted.IsZero() && now.Sub(e.lastEmitted) < cooldown {
		e.metrics.AlertsThrottled.Inc()
		e.logger.Debug("alert throttled", "alert_id", ev.ID, "severity", ev.Severity)
		return nil, false
	}

	matched := e.match(ev)
	if len(matched) > 0 {
		e.lastEmitted = now
	}
	return matched, true
}

// match returns every subscriber the event is relevant to:
//   - inside the subscriber's radius, or the event has no position
//     (a position-less alert affects everyone);
//   - severity at or above the subscriber's minimum;
//   - not muted for this hazard type, except that emergency-grade events
//     (severity >= 4) bypass mutes, so users who silenced only the routine
//     category still receive emergencies. Mutes never relax the radius or
//     minimum-severity checks.
func (e *Engine) match(ev domain.AlertEvent) []domain.SubscriberProfile {
	var matched []domain.SubscriberProfile
	for _, sub := range e.subs.List() {
		if ev.Severity < sub.MinSeverity {
			continue
		}
		if ev.Position != nil && sub.Position != nil {
			if domain.HaversineKm(*ev.Position, *sub.Position) > sub.RadiusKm {
				continue
			}
		}
		if sub.Muted(ev.Type) && ev.Severity < domain.SeverityEmergency {
			continue
		}
		matched = append(matched, sub)
	}
	return matched
}

// evictSeen drops seen-set entries older than the dedup TTL. Piggybacks on
// event arrival; no background goroutine.
func (e *Engine) evictSeen(now time.Time) {
	cutoff := now.Add(-e.opts.DedupTTL)
	for id, at := range e.seen {
		if at.Before(cutoff) {
			delete(e.seen, id)
		}
	}
}

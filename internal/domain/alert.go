package domain

import (
	"strings"
	"time"
)

// Alert severity bounds on the normalized 1-5 integer scale.
const (
	SeverityMin = 1
	SeverityMax = 5

	// SeverityEmergency is the threshold at or above which an alert is
	// emergency-grade: it bypasses per-type mutes and gets the short
	// throttle cooldown.
	SeverityEmergency = 4
)

// severityWords maps upstream string severities to the 1-5 scale.
var severityWords = map[string]int{
	"critical": 5,
	"high":     4,
	"medium":   3,
	"low":      2,
	"info":     1,
	"unknown":  2,
}

// SeverityFromWord converts a string severity to the 1-5 scale. Unrecognized
// words map to 2, same as the explicit "unknown" label.
func SeverityFromWord(s string) int {
	if v, ok := severityWords[strings.ToLower(strings.TrimSpace(s))]; ok {
		return v
	}
	return severityWords["unknown"]
}

// ClampSeverityLevel bounds an integer severity to the 1-5 scale.
func ClampSeverityLevel(v int) int {
	if v < SeverityMin {
		return SeverityMin
	}
	if v > SeverityMax {
		return SeverityMax
	}
	return v
}

// AlertEvent is one discrete alert from the realtime change feed. The feed has
// at-least-once semantics, so the same ID may be delivered more than once.
// A nil Position means the alert is not tied to a location and affects every
// subscriber.
type AlertEvent struct {
	ID         string     `json:"id"`
	Type       HazardType `json:"type"`
	Severity   int        `json:"severity"`
	Position   *Geo       `json:"position,omitempty"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	ReceivedAt time.Time  `json:"received_at"`
}

// SubscriberProfile holds one user's alert preferences. It is owned by the
// client; the relevance engine only reads it.
type SubscriberProfile struct {
	ID          string       `json:"id"`
	Position    *Geo         `json:"position,omitempty"`
	RadiusKm    float64      `json:"radius_km"`
	MinSeverity int          `json:"min_severity"`
	Channels    []string     `json:"channels"`
	MutedTypes  []HazardType `json:"muted_types,omitempty"`
}

// Muted reports whether the subscriber muted the given hazard type.
func (s SubscriberProfile) Muted(t HazardType) bool {
	for _, m := range s.MutedTypes {
		if m == t {
			return true
		}
	}
	return false
}

// NotificationIntent is the outbound contract with the notification
// dispatcher. GroupKey is the hazard type, so clients can collapse same-type
// notifications.
type NotificationIntent struct {
	ID           string   `json:"id"`
	AlertID      string   `json:"alert_id"`
	SubscriberID string   `json:"subscriber_id"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	Severity     int      `json:"severity"`
	Channels     []string `json:"channels"`
	GroupKey     string   `json:"group_key"`
}

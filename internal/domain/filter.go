package domain

import "time"

// FilterCriteria selects the visible subset of a hazard cache. The zero value
// is the identity filter: MinSeverity 0 keeps every record (severity metrics
// are non-negative) and a zero Window disables the time cut.
type FilterCriteria struct {
	MinSeverity float64
	Window      time.Duration
}

// Filter returns the records matching the criteria. Comparisons are inclusive
// (>=). The input slice is never mutated; the result is a fresh slice sharing
// the underlying records.
func Filter(records []HazardRecord, c FilterCriteria) []HazardRecord {
	out := make([]HazardRecord, 0, len(records))

	var cutoff time.Time
	if c.Window > 0 {
		cutoff = clock.Now().Add(-c.Window)
	}

	for _, r := range records {
		if r.Severity < c.MinSeverity {
			continue
		}
		if !cutoff.IsZero() && r.ObservedAt.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}

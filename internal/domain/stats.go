package domain

import "time"

// Summary is the reduction of one hazard's record set into display metrics.
// All fields are zero for an empty input; averages never produce NaN.
type Summary struct {
	Count             int     `json:"count"`
	Last24h           int     `json:"last_24h"`
	AvgSeverity       float64 `json:"avg_severity"`
	MaxSeverity       float64 `json:"max_severity"`
	HighSeverityCount int     `json:"high_severity_count"`
}

// Summarize reduces a record set. highCutoff is the hazard-specific severity
// at or above which a record counts as high severity (e.g. confidence >= 80 for
// wildfire hotspots, PM2.5 >= 75 for air quality).
func Summarize(records []HazardRecord, highCutoff float64) Summary {
	s := Summary{Count: len(records)}
	if len(records) == 0 {
		return s
	}

	dayAgo := clock.Now().Add(-24 * time.Hour)
	var total float64
	for _, r := range records {
		total += r.Severity
		if r.Severity > s.MaxSeverity {
			s.MaxSeverity = r.Severity
		}
		if r.Severity >= highCutoff {
			s.HighSeverityCount++
		}
		if !r.ObservedAt.Before(dayAgo) {
			s.Last24h++
		}
	}
	s.AvgSeverity = total / float64(len(records))
	return s
}

// HourlyBucket is one bar of a time-distribution histogram.
type HourlyBucket struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}

// HourlyHistogram buckets records by observation hour (UTC) over the last
// `hours` hours, oldest bucket first. Records outside the range are ignored.
func HourlyHistogram(records []HazardRecord, hours int) []HourlyBucket {
	if hours <= 0 {
		return nil
	}

	end := clock.Now().UTC().Truncate(time.Hour)
	start := end.Add(-time.Duration(hours-1) * time.Hour)

	buckets := make([]HourlyBucket, hours)
	for i := range buckets {
		buckets[i].Hour = start.Add(time.Duration(i) * time.Hour)
	}
	for _, r := range records {
		h := r.ObservedAt.UTC().Truncate(time.Hour)
		if h.Before(start) || h.After(end) {
			continue
		}
		buckets[int(h.Sub(start)/time.Hour)].Count++
	}
	return buckets
}

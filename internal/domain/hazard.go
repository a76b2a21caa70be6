package domain

import (
	"math"
	"time"
)

// HazardType identifies one disaster category tracked by the pipeline.
type HazardType string

const (
	HazardSeismic         HazardType = "seismic"
	HazardRainSensor      HazardType = "rain_sensor"
	HazardWildfireHotspot HazardType = "wildfire_hotspot"
	HazardAirQuality      HazardType = "air_quality"
	HazardFlood           HazardType = "flood"
	HazardDrought         HazardType = "drought"
)

// AllHazardTypes lists every hazard type in a fixed order. Callers iterating
// over hazards use this slice so iteration order is deterministic.
var AllHazardTypes = []HazardType{
	HazardSeismic,
	HazardRainSensor,
	HazardWildfireHotspot,
	HazardAirQuality,
	HazardFlood,
	HazardDrought,
}

// ParseHazardType validates a hazard type string from an external caller.
func ParseHazardType(s string) (HazardType, bool) {
	for _, t := range AllHazardTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Geo is a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is finite and within WGS-84 range.
func (g Geo) Valid() bool {
	if math.IsNaN(g.Lat) || math.IsInf(g.Lat, 0) || math.IsNaN(g.Lon) || math.IsInf(g.Lon, 0) {
		return false
	}
	return g.Lat >= -90 && g.Lat <= 90 && g.Lon >= -180 && g.Lon <= 180
}

// HazardRecord is the canonical form of one hazard observation, regardless of
// which feed produced it.
//
// ID is stable and unique within one hazard type; re-ingesting a record with
// the same ID replaces the previous entry. Severity is the hazard-specific
// scalar described in the package documentation. Attributes carry
// feed-specific fields (depth, instrument, province, station name) that the
// pipeline passes through without interpreting.
type HazardRecord struct {
	ID         string            `json:"id"`
	Type       HazardType        `json:"type"`
	Position   Geo               `json:"position"`
	ObservedAt time.Time         `json:"observed_at"`
	Severity   float64           `json:"severity"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Valid reports whether the record is retainable: a non-empty ID and a valid
// position. Normalizers drop invalid records instead of emitting them.
func (r HazardRecord) Valid() bool {
	return r.ID != "" && r.Position.Valid()
}

// ClampSeverity bounds a severity metric to [0, max]. Upstream feeds
// occasionally report negative sentinels or wildly out-of-range values.
func ClampSeverity(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if max > 0 && v > max {
		return max
	}
	return v
}

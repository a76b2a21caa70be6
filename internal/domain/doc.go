// Package domain models multi-hazard observation data for the HazardWatch
// pipeline.
//
// # Data Sources
//
// Six independent upstream feeds are polled, each with its own schema and
// cadence. The feed adapters in internal/feed normalize all of them into the
// canonical [HazardRecord]:
//
//	seismic           USGS all-day GeoJSON summary (magnitude, depth, place)
//	rain_sensor       realtime rain-sensor rows (humidity %, raining flag)
//	wildfire_hotspot  satellite hotspot detections (confidence %, instrument)
//	air_quality       station readings (PM2.5 µg/m³)
//	flood             station water-level features (level class 1-5)
//	drought           regional drought index snapshot (index %)
//
// # Severity Metric
//
// Each record carries exactly one scalar severity metric whose unit depends on
// the hazard type: Richter magnitude for seismic, humidity percent for rain
// sensors, detection confidence percent for wildfire hotspots, PM2.5 µg/m³ for
// air quality, water level scaled to 0-100 for flood, and drought index
// percent for drought. The metric is always a bounded non-negative float so
// filtering and aggregation treat all hazards uniformly; what counts as "high"
// severity is a per-hazard cutoff supplied by configuration.
//
// Upstream confidence encodings are inconsistent: most rows are numeric, but
// VIIRS-derived hotspot rows use the categorical labels "low", "nominal", and
// "high". The mapping to percentages lives in the wildfire normalizer, not in
// any consumer.
//
// # Coordinates
//
// Positions are WGS-84 latitude/longitude. Records whose coordinates are
// missing, non-finite, or out of range are dropped during normalization rather
// than retained with a null position; every record that reaches a cache is
// mappable.
//
// # Alert Severity Scale
//
// Discrete alert events use a 1-5 integer scale. String severities from the
// change feed map via a fixed table: critical 5, high 4, medium 3, low 2,
// info 1. Unrecognized values map to 2 so a mislabeled alert is still
// delivered to low-threshold subscribers without being treated as an
// emergency.
package domain

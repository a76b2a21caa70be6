// Package config loads all service settings from environment variables.
// Every tunable the pipeline consumes (refetch cadences, staleness
// thresholds, severity cutoffs, cluster radii, dedup and throttle windows)
// lives here rather than as literals in the implementation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// FeedSettings configures one hazard feed.
type FeedSettings struct {
	URL        string `envconfig:"URL"`
	AuthHeader string `envconfig:"AUTH_HEADER"`
	AuthValue  string `envconfig:"AUTH_VALUE"`

	// RefetchInterval is the worker cadence; StaleAfter is the display
	// staleness threshold (0 = stale as soon as a cycle is missed).
	RefetchInterval time.Duration `envconfig:"REFETCH_INTERVAL"`
	StaleAfter      time.Duration `envconfig:"STALE_AFTER"`

	// HighSeverityCutoff feeds the stats aggregator's high-severity count.
	HighSeverityCutoff float64 `envconfig:"HIGH_SEVERITY_CUTOFF"`

	// DisableClusterAboveZoom turns clustering off past this zoom level so
	// per-incident detail survives at street zooms.
	DisableClusterAboveZoom int `envconfig:"DISABLE_CLUSTER_ABOVE_ZOOM"`
}

// Config holds all service settings.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	// FetchTimeout bounds every individual feed fetch.
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`

	KafkaBrokers     []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaAlertTopic  string   `envconfig:"KAFKA_ALERT_TOPIC" default:"realtime-alerts"`
	KafkaIntentTopic string   `envconfig:"KAFKA_INTENT_TOPIC" default:"notification-intents"`
	KafkaGroupID     string   `envconfig:"KAFKA_GROUP_ID" default:"hazardwatch"`

	DedupTTL       time.Duration `envconfig:"DEDUP_TTL" default:"60s"`
	CooldownUrgent time.Duration `envconfig:"COOLDOWN_URGENT" default:"1s"`
	CooldownNormal time.Duration `envconfig:"COOLDOWN_NORMAL" default:"2s"`

	// ClusterRadiusByZoom is the pixel-radius table keyed by zoom level;
	// zooms between entries use the nearest lower entry.
	ClusterRadiusByZoom    map[int]float64 `envconfig:"CLUSTER_RADIUS_BY_ZOOM" default:"0:96,4:80,8:64,10:48,12:32"`
	ClusterDefaultRadiusPx float64         `envconfig:"CLUSTER_DEFAULT_RADIUS_PX" default:"64"`

	Seismic    FeedSettings `envconfig:"SEISMIC"`
	RainSensor FeedSettings `envconfig:"RAIN"`
	Wildfire   FeedSettings `envconfig:"WILDFIRE"`
	AirQuality FeedSettings `envconfig:"AIR"`
	Flood      FeedSettings `envconfig:"FLOOD"`
	Drought    FeedSettings `envconfig:"DROUGHT"`
}

// feedDefaults carries the per-feed defaults that cannot be expressed as
// struct tags (each feed's differ). Feeds without a public unauthenticated
// endpoint default to the local mockfeed server.
var feedDefaults = map[string]FeedSettings{
	"seismic": {
		URL:                     "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson",
		RefetchInterval:         5 * time.Minute,
		StaleAfter:              15 * time.Minute,
		HighSeverityCutoff:      4.5,
		DisableClusterAboveZoom: 13,
	},
	"rain": {
		URL:                     "http://localhost:9091/rain",
		RefetchInterval:         30 * time.Second,
		StaleAfter:              0,
		HighSeverityCutoff:      80,
		DisableClusterAboveZoom: 11,
	},
	"wildfire": {
		URL:                     "http://localhost:9091/hotspots",
		RefetchInterval:         15 * time.Minute,
		StaleAfter:              15 * time.Minute,
		HighSeverityCutoff:      80,
		DisableClusterAboveZoom: 12,
	},
	"air": {
		URL:                     "http://localhost:9091/air",
		RefetchInterval:         10 * time.Minute,
		StaleAfter:              30 * time.Minute,
		HighSeverityCutoff:      75,
		DisableClusterAboveZoom: 11,
	},
	"flood": {
		URL:                     "http://localhost:9091/flood",
		RefetchInterval:         5 * time.Minute,
		StaleAfter:              15 * time.Minute,
		HighSeverityCutoff:      80,
		DisableClusterAboveZoom: 11,
	},
	"drought": {
		URL:                     "http://localhost:9091/drought",
		RefetchInterval:         5 * time.Minute,
		StaleAfter:              time.Hour,
		HighSeverityCutoff:      80,
		DisableClusterAboveZoom: 10,
	},
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	applyFeedDefaults(&cfg.Seismic, feedDefaults["seismic"])
	applyFeedDefaults(&cfg.RainSensor, feedDefaults["rain"])
	applyFeedDefaults(&cfg.Wildfire, feedDefaults["wildfire"])
	applyFeedDefaults(&cfg.AirQuality, feedDefaults["air"])
	applyFeedDefaults(&cfg.Flood, feedDefaults["flood"])
	applyFeedDefaults(&cfg.Drought, feedDefaults["drought"])

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if cfg.KafkaIntentTopic == "" {
		return nil, errors.New("KAFKA_INTENT_TOPIC is required")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("FETCH_TIMEOUT must be positive")
	}
	for name, fs := range cfg.Feeds() {
		if fs.URL == "" {
			return nil, fmt.Errorf("%s feed URL is required", name)
		}
		if fs.RefetchInterval <= 0 {
			return nil, fmt.Errorf("%s refetch interval must be positive", name)
		}
	}

	return &cfg, nil
}

// Feeds returns the per-feed settings keyed by hazard name, in no particular
// order.
func (c *Config) Feeds() map[string]FeedSettings {
	return map[string]FeedSettings{
		"seismic":          c.Seismic,
		"rain_sensor":      c.RainSensor,
		"wildfire_hotspot": c.Wildfire,
		"air_quality":      c.AirQuality,
		"flood":            c.Flood,
		"drought":          c.Drought,
	}
}

func applyFeedDefaults(fs *FeedSettings, def FeedSettings) {
	if fs.URL == "" {
		fs.URL = def.URL
	}
	if fs.RefetchInterval == 0 {
		fs.RefetchInterval = def.RefetchInterval
	}
	if fs.StaleAfter == 0 {
		fs.StaleAfter = def.StaleAfter
	}
	if fs.HighSeverityCutoff == 0 {
		fs.HighSeverityCutoff = def.HighSeverityCutoff
	}
	if fs.DisableClusterAboveZoom == 0 {
		fs.DisableClusterAboveZoom = def.DisableClusterAboveZoom
	}
}

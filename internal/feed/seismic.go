package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"hazardwatch/internal/domain"
)

// SeismicAdapter polls the USGS earthquake summary GeoJSON feed.
type SeismicAdapter struct {
	client *Client
	url    string
}

func NewSeismic(client *Client, url string) *SeismicAdapter {
	return &SeismicAdapter{client: client, url: url}
}

func (a *SeismicAdapter) Type() domain.HazardType { return domain.HazardSeismic }

func (a *SeismicAdapter) Fetch(ctx context.Context) ([]domain.HazardRecord, error) {
	body, err := a.client.Get(ctx, a.url)
	if err != nil {
		return nil, err
	}
	var payload usgsFeed
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, parseError(fmt.Errorf("decode usgs feed: %w", err))
	}
	return normalizeSeismic(payload), nil
}

// USGS GeoJSON feed types. Geometry coordinates are [lon, lat, depth_km];
// magnitude may be null for unreviewed events.
type usgsFeed struct {
	Features []usgsFeature `json:"features"`
}

type usgsFeature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"` // milliseconds since epoch
		URL   string   `json:"url"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// normalizeSeismic maps USGS features to hazard records. Features without a
// usable point geometry are dropped. Null magnitudes become severity 0 so the
// event still renders; negative magnitudes (possible for micro-quakes) clamp
// to 0 to keep the severity metric non-negative.
func normalizeSeismic(payload usgsFeed) []domain.HazardRecord {
	records := make([]domain.HazardRecord, 0, len(payload.Features))
	for _, f := range payload.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		rec := domain.HazardRecord{
			ID:   f.ID,
			Type: domain.HazardSeismic,
			Position: domain.Geo{
				Lat: f.Geometry.Coordinates[1],
				Lon: f.Geometry.Coordinates[0],
			},
			ObservedAt: time.UnixMilli(f.Properties.Time).UTC(),
			Attributes: map[string]string{
				"place": f.Properties.Place,
				"url":   f.Properties.URL,
			},
		}
		if f.Properties.Mag != nil {
			rec.Severity = domain.ClampSeverity(*f.Properties.Mag, 10)
		}
		if len(f.Geometry.Coordinates) >= 3 {
			rec.Attributes["depth_km"] = strconv.FormatFloat(f.Geometry.Coordinates[2], 'f', 1, 64)
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

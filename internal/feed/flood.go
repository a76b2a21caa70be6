package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hazardwatch/internal/domain"
)

// FloodAdapter polls the flood monitoring feed (station water-level features).
type FloodAdapter struct {
	client *Client
	url    string
}

func NewFlood(client *Client, url string) *FloodAdapter {
	return &FloodAdapter{client: client, url: url}
}

func (a *FloodAdapter) Type() domain.HazardType { return domain.HazardFlood }

func (a *FloodAdapter) Fetch(ctx context.Context) ([]domain.HazardRecord, error) {
	body, err := a.client.Get(ctx, a.url)
	if err != nil {
		return nil, err
	}
	var payload floodFeed
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, parseError(fmt.Errorf("decode flood features: %w", err))
	}
	return normalizeFlood(payload), nil
}

type floodFeed struct {
	Features []floodFeature `json:"features"`
}

// floodFeature is one monitoring station. level_class is the upstream 1-5
// water-level classification (1 normal through 5 overflowing).
type floodFeature struct {
	StationID  string  `json:"station_id"`
	Station    string  `json:"station_name"`
	Basin      string  `json:"basin"`
	Province   string  `json:"province"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	LevelClass int     `json:"level_class"`
	ObservedAt string  `json:"observed_at"` // RFC 3339
}

// normalizeFlood maps flood stations to hazard records. The 1-5 level class is
// scaled by 20 onto the shared 0-100 severity range so the uniform filter and
// stats cutoffs apply (class 4 maps to 80, the usual high-severity cutoff).
func normalizeFlood(payload floodFeed) []domain.HazardRecord {
	records := make([]domain.HazardRecord, 0, len(payload.Features))
	for _, f := range payload.Features {
		rec := domain.HazardRecord{
			ID:       "flood-" + f.StationID,
			Type:     domain.HazardFlood,
			Position: domain.Geo{Lat: f.Lat, Lon: f.Lon},
			Severity: domain.ClampSeverity(float64(f.LevelClass)*20, 100),
			Attributes: map[string]string{
				"station":  f.Station,
				"basin":    f.Basin,
				"province": f.Province,
			},
		}
		if t, err := time.Parse(time.RFC3339, f.ObservedAt); err == nil {
			rec.ObservedAt = t.UTC()
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

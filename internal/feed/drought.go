package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hazardwatch/internal/domain"
)

// DroughtAdapter polls the regional drought snapshot. The upstream product is
// a slow-moving regional aggregate, refreshed far less often than the point
// feeds.
type DroughtAdapter struct {
	client *Client
	url    string
}

func NewDrought(client *Client, url string) *DroughtAdapter {
	return &DroughtAdapter{client: client, url: url}
}

func (a *DroughtAdapter) Type() domain.HazardType { return domain.HazardDrought }

func (a *DroughtAdapter) Fetch(ctx context.Context) ([]domain.HazardRecord, error) {
	body, err := a.client.Get(ctx, a.url)
	if err != nil {
		return nil, err
	}
	var payload droughtFeed
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, parseError(fmt.Errorf("decode drought regions: %w", err))
	}
	return normalizeDrought(payload), nil
}

type droughtFeed struct {
	UpdatedAt string       `json:"updated_at"` // RFC 3339, snapshot-wide
	Regions   []droughtRow `json:"regions"`
}

// droughtRow is one region's drought index with its centroid coordinate.
type droughtRow struct {
	Region     string  `json:"region"`
	Province   string  `json:"province"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	IndexPct   float64 `json:"drought_index_pct"` // 0-100
	Population int64   `json:"affected_population"`
}

// normalizeDrought maps regional rows to hazard records. Severity is the
// drought index percent. The snapshot timestamp applies to every row.
func normalizeDrought(payload droughtFeed) []domain.HazardRecord {
	var observedAt time.Time
	if t, err := time.Parse(time.RFC3339, payload.UpdatedAt); err == nil {
		observedAt = t.UTC()
	}

	records := make([]domain.HazardRecord, 0, len(payload.Regions))
	for _, row := range payload.Regions {
		rec := domain.HazardRecord{
			ID:         "drought-" + row.Province,
			Type:       domain.HazardDrought,
			Position:   domain.Geo{Lat: row.Lat, Lon: row.Lon},
			Severity:   domain.ClampSeverity(row.IndexPct, 100),
			ObservedAt: observedAt,
			Attributes: map[string]string{
				"region":              row.Region,
				"province":            row.Province,
				"affected_population": fmt.Sprintf("%d", row.Population),
			},
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

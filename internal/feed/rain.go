package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"hazardwatch/internal/domain"
)

// RainAdapter polls the realtime rain-sensor table.
type RainAdapter struct {
	client *Client
	url    string
}

func NewRain(client *Client, url string) *RainAdapter {
	return &RainAdapter{client: client, url: url}
}

func (a *RainAdapter) Type() domain.HazardType { return domain.HazardRainSensor }

func (a *RainAdapter) Fetch(ctx context.Context) ([]domain.HazardRecord, error) {
	body, err := a.client.Get(ctx, a.url)
	if err != nil {
		return nil, err
	}
	var rows []rainSensorRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, parseError(fmt.Errorf("decode rain sensor rows: %w", err))
	}
	return normalizeRain(rows), nil
}

// rainSensorRow mirrors the sensor table. Sensors that have never reported
// have null humidity and raining fields.
type rainSensorRow struct {
	ID         int64    `json:"id"`
	Humidity   *float64 `json:"humidity"`
	IsRaining  *bool    `json:"is_raining"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	InsertedAt string   `json:"inserted_at"` // RFC 3339
}

// normalizeRain maps sensor rows to hazard records. Severity is the reported
// humidity percent; a sensor with no reading yet keeps severity 0. Rows
// without coordinates are dropped.
func normalizeRain(rows []rainSensorRow) []domain.HazardRecord {
	records := make([]domain.HazardRecord, 0, len(rows))
	for _, row := range rows {
		if row.Latitude == nil || row.Longitude == nil {
			continue
		}
		rec := domain.HazardRecord{
			ID:         "rain-" + strconv.FormatInt(row.ID, 10),
			Type:       domain.HazardRainSensor,
			Position:   domain.Geo{Lat: *row.Latitude, Lon: *row.Longitude},
			Attributes: map[string]string{},
		}
		if row.Humidity != nil {
			rec.Severity = domain.ClampSeverity(*row.Humidity, 100)
		}
		if row.IsRaining != nil {
			rec.Attributes["raining"] = strconv.FormatBool(*row.IsRaining)
		}
		if t, err := time.Parse(time.RFC3339, row.InsertedAt); err == nil {
			rec.ObservedAt = t.UTC()
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hazardwatch/internal/domain"
)

// AirQualityAdapter polls the air-quality station network.
type AirQualityAdapter struct {
	client *Client
	url    string
}

func NewAirQuality(client *Client, url string) *AirQualityAdapter {
	return &AirQualityAdapter{client: client, url: url}
}

func (a *AirQualityAdapter) Type() domain.HazardType { return domain.HazardAirQuality }

func (a *AirQualityAdapter) Fetch(ctx context.Context) ([]domain.HazardRecord, error) {
	body, err := a.client.Get(ctx, a.url)
	if err != nil {
		return nil, err
	}
	var payload aqFeed
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, parseError(fmt.Errorf("decode air quality stations: %w", err))
	}
	return normalizeAirQuality(payload), nil
}

// aqFeed mirrors the station network response. Coordinates arrive as strings;
// PM2.5 uses -1 as a no-data sentinel.
type aqFeed struct {
	Stations []aqStation `json:"stations"`
}

type aqStation struct {
	StationID string      `json:"stationID"`
	NameEN    string      `json:"nameEN"`
	AreaEN    string      `json:"areaEN"`
	Lat       json.Number `json:"lat"`
	Long      json.Number `json:"long"`
	LastData  struct {
		Date string `json:"date"` // YYYY-MM-DD
		Time string `json:"time"` // HH:MM
		PM25 struct {
			Value float64 `json:"value"`
		} `json:"PM25"`
	} `json:"AQILast"`
}

// normalizeAirQuality maps station readings to hazard records. Severity is the
// PM2.5 concentration in µg/m³; the -1 no-data sentinel becomes severity 0
// with a no_data attribute so the station still shows on the map.
func normalizeAirQuality(payload aqFeed) []domain.HazardRecord {
	records := make([]domain.HazardRecord, 0, len(payload.Stations))
	for _, st := range payload.Stations {
		lat, errLat := st.Lat.Float64()
		lon, errLon := st.Long.Float64()
		if errLat != nil || errLon != nil {
			continue
		}
		rec := domain.HazardRecord{
			ID:       "aq-" + st.StationID,
			Type:     domain.HazardAirQuality,
			Position: domain.Geo{Lat: lat, Lon: lon},
			Attributes: map[string]string{
				"station": st.NameEN,
				"area":    st.AreaEN,
			},
		}
		if st.LastData.PM25.Value < 0 {
			rec.Attributes["no_data"] = "true"
		} else {
			rec.Severity = domain.ClampSeverity(st.LastData.PM25.Value, 1000)
		}
		if t, err := time.Parse("2006-01-02 15:04", st.LastData.Date+" "+st.LastData.Time); err == nil {
			rec.ObservedAt = t.UTC()
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

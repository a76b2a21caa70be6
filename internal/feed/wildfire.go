package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hazardwatch/internal/domain"
)

// WildfireAdapter polls the satellite hotspot detection feed (MODIS + VIIRS
// instruments, split windows merged upstream).
type WildfireAdapter struct {
	client *Client
	url    string
}

func NewWildfire(client *Client, url string) *WildfireAdapter {
	return &WildfireAdapter{client: client, url: url}
}

func (a *WildfireAdapter) Type() domain.HazardType { return domain.HazardWildfireHotspot }

func (a *WildfireAdapter) Fetch(ctx context.Context) ([]domain.HazardRecord, error) {
	body, err := a.client.Get(ctx, a.url)
	if err != nil {
		return nil, err
	}
	var payload hotspotFeed
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, parseError(fmt.Errorf("decode hotspot feed: %w", err))
	}
	return normalizeWildfire(payload), nil
}

type hotspotFeed struct {
	Features []hotspotFeature `json:"features"`
}

// hotspotFeature carries per-detection fields. Confidence arrives either as a
// number (MODIS, 0-100) or as a categorical string (VIIRS: low/nominal/high),
// hence the RawMessage.
type hotspotFeature struct {
	Latitude   float64         `json:"latitude"`
	Longitude  float64         `json:"longitude"`
	Confidence json.RawMessage `json:"confidence"`
	Instrument string          `json:"instrument"`
	Satellite  string          `json:"satellite"`
	FRP        float64         `json:"frp"` // fire radiative power, MW
	Province   string          `json:"province"`
	AcqDate    string          `json:"acq_date"` // YYYY-MM-DD
	AcqTime    string          `json:"acq_time"` // HHMM UTC
}

// viirsConfidence maps the categorical VIIRS confidence labels to percentages.
// This is the only place the string encoding is interpreted.
var viirsConfidence = map[string]float64{
	"low":     30,
	"nominal": 60,
	"high":    90,
}

// normalizeWildfire maps hotspot features to hazard records. Severity is the
// detection confidence percent. The record ID is derived from position and
// acquisition time: hotspot feeds have no upstream identifier, and this
// derivation makes re-ingesting the same detection idempotent.
func normalizeWildfire(payload hotspotFeed) []domain.HazardRecord {
	records := make([]domain.HazardRecord, 0, len(payload.Features))
	for _, f := range payload.Features {
		rec := domain.HazardRecord{
			ID:   hotspotID(f),
			Type: domain.HazardWildfireHotspot,
			Position: domain.Geo{
				Lat: f.Latitude,
				Lon: f.Longitude,
			},
			Severity:   parseConfidence(f.Confidence),
			ObservedAt: parseAcquisition(f.AcqDate, f.AcqTime),
			Attributes: map[string]string{
				"instrument": f.Instrument,
				"satellite":  f.Satellite,
				"frp":        strconv.FormatFloat(f.FRP, 'f', 1, 64),
				"province":   f.Province,
			},
		}
		if !rec.Valid() {
			continue
		}
		records = append(records, rec)
	}
	return records
}

func hotspotID(f hotspotFeature) string {
	return fmt.Sprintf("fire-%.4f-%.4f-%s%s", f.Latitude, f.Longitude, f.AcqDate, f.AcqTime)
}

// parseConfidence handles both numeric and categorical confidence encodings.
// Unparseable values fall back to the "nominal" percentage rather than 0, so
// an encoding surprise does not silently hide detections from high-confidence
// filters users already had loose enough to see nominal ones.
func parseConfidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return viirsConfidence["nominal"]
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return domain.ClampSeverity(n, 100)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, ok := viirsConfidence[strings.ToLower(strings.TrimSpace(s))]; ok {
			return v
		}
	}
	return viirsConfidence["nominal"]
}

// parseAcquisition combines the acquisition date and HHMM time. Three-digit
// times are zero-padded ("930" becomes "0930"). Returns the zero time when the date
// is unparseable.
func parseAcquisition(date, hhmm string) time.Time {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}
	}
	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) == 3 {
		hhmm = "0" + hhmm
	}
	if len(hhmm) != 4 {
		return day
	}
	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour > 23 || mins > 59 {
		return day
	}
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(mins)*time.Minute)
}

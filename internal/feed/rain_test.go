package feed

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazardwatch/internal/domain"
)

func TestNormalizeRain(t *testing.T) {
	payload := []byte(`[
		{"id": 7, "humidity": 82.5, "is_raining": true, "latitude": 13.7563, "longitude": 100.5018, "inserted_at": "2024-04-26T13:05:00Z"},
		{"id": 8, "humidity": null, "is_raining": null, "latitude": 13.72, "longitude": 100.51, "inserted_at": "2024-04-26T13:05:00Z"},
		{"id": 9, "humidity": 55, "is_raining": false, "latitude": null, "longitude": null, "inserted_at": "2024-04-26T13:05:00Z"}
	]`)

	var rows []rainSensorRow
	require.NoError(t, json.Unmarshal(payload, &rows))
	records := normalizeRain(rows)

	require.Len(t, records, 2, "row without coordinates is dropped")

	first := records[0]
	assert.Equal(t, "rain-7", first.ID)
	assert.Equal(t, domain.HazardRainSensor, first.Type)
	assert.Equal(t, 82.5, first.Severity)
	assert.Equal(t, "true", first.Attributes["raining"])
	assert.Equal(t, time.Date(2024, 4, 26, 13, 5, 0, 0, time.UTC), first.ObservedAt)

	t.Run("sensor with no reading keeps severity zero", func(t *testing.T) {
		assert.Equal(t, "rain-8", records[1].ID)
		assert.Equal(t, 0.0, records[1].Severity)
		_, hasRaining := records[1].Attributes["raining"]
		assert.False(t, hasRaining)
	})

	t.Run("humidity clamps to 100", func(t *testing.T) {
		h := 120.0
		lat, lon := 13.75, 100.5
		out := normalizeRain([]rainSensorRow{{ID: 1, Humidity: &h, Latitude: &lat, Longitude: &lon}})
		require.Len(t, out, 1)
		assert.Equal(t, 100.0, out[0].Severity)
	})
}

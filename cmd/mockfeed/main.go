// Command mockfeed serves fixture payloads for the hazard feeds that have no
// public unauthenticated endpoint, letting the full pipeline run locally. Each
// response is regenerated per request with fresh timestamps so staleness logic
// sees live-looking data.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"
)

func main() {
	addr := flag.String("addr", ":9091", "listen address")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/rain", serveJSON(rainPayload))
	mux.HandleFunc("/hotspots", serveJSON(hotspotPayload))
	mux.HandleFunc("/air", serveJSON(airPayload))
	mux.HandleFunc("/flood", serveJSON(floodPayload))
	mux.HandleFunc("/drought", serveJSON(droughtPayload))

	logger.Info("mockfeed listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("mockfeed server failed", "error", err)
		os.Exit(1)
	}
}

func serveJSON(payload func(now time.Time) any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload(time.Now().UTC())) //nolint:errcheck // best-effort fixture
	}
}

// Sensor sites around the Bangkok metro area.
var sensorSites = []struct {
	lat, lon float64
}{
	{13.7563, 100.5018},
	{13.7222, 100.5140},
	{13.8100, 100.5600},
	{13.6900, 100.7500},
	{13.9126, 100.6068},
	{14.0208, 100.5250},
}

func rainPayload(now time.Time) any {
	type row struct {
		ID         int64    `json:"id"`
		Humidity   *float64 `json:"humidity"`
		IsRaining  *bool    `json:"is_raining"`
		Latitude   *float64 `json:"latitude"`
		Longitude  *float64 `json:"longitude"`
		InsertedAt string   `json:"inserted_at"`
	}

	rows := make([]row, 0, len(sensorSites))
	for i, site := range sensorSites {
		humidity := 40 + rand.Float64()*60
		raining := humidity > 75
		lat, lon := site.lat, site.lon
		rows = append(rows, row{
			ID:         int64(i + 1),
			Humidity:   &humidity,
			IsRaining:  &raining,
			Latitude:   &lat,
			Longitude:  &lon,
			InsertedAt: now.Add(-time.Duration(rand.Intn(300)) * time.Second).Format(time.RFC3339),
		})
	}
	return rows
}

func hotspotPayload(now time.Time) any {
	type feature struct {
		Latitude   float64 `json:"latitude"`
		Longitude  float64 `json:"longitude"`
		Confidence any     `json:"confidence"`
		Instrument string  `json:"instrument"`
		Satellite  string  `json:"satellite"`
		FRP        float64 `json:"frp"`
		Province   string  `json:"province"`
		AcqDate    string  `json:"acq_date"`
		AcqTime    string  `json:"acq_time"`
	}

	confidences := []any{85.0, "nominal", "high", 62.0, "low"}
	provinces := []string{"Chiang Mai", "Mae Hong Son", "Tak", "Lampang", "Nan"}

	features := make([]feature, 0, 8)
	for i := 0; i < 8; i++ {
		acq := now.Add(-time.Duration(rand.Intn(720)) * time.Minute)
		instrument, satellite := "VIIRS", "Suomi NPP"
		if i%2 == 0 {
			instrument, satellite = "MODIS", "Aqua"
		}
		features = append(features, feature{
			Latitude:   18.0 + rand.Float64()*2,
			Longitude:  98.5 + rand.Float64()*2,
			Confidence: confidences[i%len(confidences)],
			Instrument: instrument,
			Satellite:  satellite,
			FRP:        5 + rand.Float64()*80,
			Province:   provinces[i%len(provinces)],
			AcqDate:    acq.Format("2006-01-02"),
			AcqTime:    acq.Format("1504"),
		})
	}
	return map[string]any{"features": features}
}

func airPayload(now time.Time) any {
	type station struct {
		StationID string `json:"stationID"`
		NameEN    string `json:"nameEN"`
		AreaEN    string `json:"areaEN"`
		Lat       string `json:"lat"`
		Long      string `json:"long"`
		AQILast   struct {
			Date string `json:"date"`
			Time string `json:"time"`
			PM25 struct {
				Value float64 `json:"value"`
			} `json:"PM25"`
		} `json:"AQILast"`
	}

	names := []string{"Din Daeng", "Bang Na", "Thonburi", "Lat Phrao", "Chatuchak", "Bang Khen"}
	stations := make([]station, 0, len(sensorSites))
	for i, site := range sensorSites {
		var st station
		st.StationID = []string{"02t", "03t", "05t", "08t", "11t", "12t"}[i]
		st.NameEN = names[i] + " Station"
		st.AreaEN = names[i] + ", Bangkok"
		st.Lat = formatCoord(site.lat)
		st.Long = formatCoord(site.lon)
		st.AQILast.Date = now.Format("2006-01-02")
		st.AQILast.Time = now.Format("15:04")
		st.AQILast.PM25.Value = 10 + rand.Float64()*90
		if i == len(sensorSites)-1 {
			st.AQILast.PM25.Value = -1 // no-data sentinel
		}
		stations = append(stations, st)
	}
	return map[string]any{"stations": stations}
}

func floodPayload(now time.Time) any {
	type feature struct {
		StationID  string  `json:"station_id"`
		Station    string  `json:"station_name"`
		Basin      string  `json:"basin"`
		Province   string  `json:"province"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
		LevelClass int     `json:"level_class"`
		ObservedAt string  `json:"observed_at"`
	}

	features := []feature{
		{"CPY012", "Chao Phraya Dam", "Chao Phraya", "Chai Nat", 15.1534, 100.1821, 2, ""},
		{"CPY015", "Pak Kret", "Chao Phraya", "Nonthaburi", 13.9126, 100.4930, 3, ""},
		{"MUN003", "Ubolratana Dam", "Mun", "Khon Kaen", 16.7754, 102.6187, 1, ""},
		{"PSK007", "Nakhon Sawan", "Ping", "Nakhon Sawan", 15.7047, 100.1372, 4, ""},
	}
	for i := range features {
		features[i].ObservedAt = now.Add(-time.Duration(rand.Intn(600)) * time.Second).Format(time.RFC3339)
	}
	return map[string]any{"features": features}
}

func droughtPayload(now time.Time) any {
	type region struct {
		Region     string  `json:"region"`
		Province   string  `json:"province"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
		IndexPct   float64 `json:"drought_index_pct"`
		Population int64   `json:"affected_population"`
	}

	return map[string]any{
		"updated_at": now.Truncate(time.Hour).Format(time.RFC3339),
		"regions": []region{
			{"Northeast", "Nakhon Ratchasima", 14.9799, 102.0978, 72, 184000},
			{"Northeast", "Khon Kaen", 16.4322, 102.8236, 65, 121000},
			{"North", "Phitsanulok", 16.8211, 100.2659, 48, 43000},
			{"Central", "Lopburi", 14.7995, 100.6534, 55, 67000},
		},
	}
}

func formatCoord(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

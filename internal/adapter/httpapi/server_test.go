package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazardwatch/internal/adapter/httpapi"
	"hazardwatch/internal/alert"
	"hazardwatch/internal/config"
	"hazardwatch/internal/domain"
	"hazardwatch/internal/observability"
	"hazardwatch/internal/scheduler"
)

// --- fixtures ---

type stubSource struct{ hazard domain.HazardType }

func (s stubSource) Type() domain.HazardType { return s.hazard }
func (s stubSource) Fetch(context.Context) ([]domain.HazardRecord, error) {
	return nil, nil
}

type stubReady struct{ err error }

func (s stubReady) CheckReadiness(context.Context) error { return s.err }

func testConfig() *config.Config {
	cfg := &config.Config{
		ClusterRadiusByZoom:    map[int]float64{0: 96, 8: 64, 12: 32},
		ClusterDefaultRadiusPx: 64,
	}
	cfg.Seismic = config.FeedSettings{HighSeverityCutoff: 4.5, DisableClusterAboveZoom: 13}
	return cfg
}

type serverFixture struct {
	server *httpapi.Server
	subs   *alert.Registry
	cache  *scheduler.Cache
}

func newServerFixture(t *testing.T, ready error) *serverFixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	sched := scheduler.New(clock, slog.Default(), observability.NewMetricsForTesting(), time.Second)
	sched.Register(stubSource{hazard: domain.HazardSeismic}, 5*time.Minute, 15*time.Minute)

	cache, ok := sched.Cache(domain.HazardSeismic)
	require.True(t, ok)
	cache.RecordSuccess([]domain.HazardRecord{
		{ID: "q1", Type: domain.HazardSeismic, Position: domain.Geo{Lat: 13.75, Lon: 100.50}, Severity: 3.2},
		{ID: "q2", Type: domain.HazardSeismic, Position: domain.Geo{Lat: 13.76, Lon: 100.51}, Severity: 5.1},
		{ID: "q3", Type: domain.HazardSeismic, Position: domain.Geo{Lat: 18.79, Lon: 98.99}, Severity: 4.5},
	})

	subs := alert.NewRegistry()
	server := httpapi.NewServer(":0", sched, subs, stubReady{err: ready}, testConfig(), slog.Default())
	return &serverFixture{server: server, subs: subs, cache: cache}
}

func (f *serverFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// --- tests ---

func TestHealthEndpoints(t *testing.T) {
	t.Run("healthz", func(t *testing.T) {
		f := newServerFixture(t, nil)
		rec := f.do(t, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readyz ready", func(t *testing.T) {
		f := newServerFixture(t, nil)
		rec := f.do(t, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readyz not ready", func(t *testing.T) {
		f := newServerFixture(t, errors.New("no feed has succeeded yet"))
		rec := f.do(t, http.MethodGet, "/readyz", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHazardRecordsEndpoint(t *testing.T) {
	f := newServerFixture(t, nil)

	type response struct {
		Hazard  string                `json:"hazard"`
		Status  string                `json:"status"`
		Count   int                   `json:"count"`
		Records []domain.HazardRecord `json:"records"`
	}

	t.Run("all records", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[response](t, rec)
		assert.Equal(t, "seismic", resp.Hazard)
		assert.Equal(t, "fresh", resp.Status)
		assert.Equal(t, 3, resp.Count)
	})

	t.Run("min severity filter", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic?min_severity=4.5", "")
		resp := decode[response](t, rec)
		require.Equal(t, 2, resp.Count)
		assert.Equal(t, "q2", resp.Records[0].ID)
		assert.Equal(t, "q3", resp.Records[1].ID)
	})

	t.Run("limit", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic?limit=1", "")
		resp := decode[response](t, rec)
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("bad min severity", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic?min_severity=loud", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown hazard type", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/volcano", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("known but unscheduled hazard", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/flood", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHazardStatsEndpoint(t *testing.T) {
	f := newServerFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/hazards/seismic/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	type response struct {
		Summary   domain.Summary        `json:"summary"`
		Histogram []domain.HourlyBucket `json:"histogram"`
	}
	resp := decode[response](t, rec)
	assert.Equal(t, 3, resp.Summary.Count)
	assert.Equal(t, 5.1, resp.Summary.MaxSeverity)
	assert.Equal(t, 2, resp.Summary.HighSeverityCount, "4.5 cutoff is inclusive")
	assert.Len(t, resp.Histogram, 24)
}

func TestHazardClustersEndpoint(t *testing.T) {
	f := newServerFixture(t, nil)

	type response struct {
		Zoom     int              `json:"zoom"`
		Clusters []domain.Cluster `json:"clusters"`
	}

	t.Run("zoom is required", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic/clusters", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zoom out of range", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic/clusters?zoom=23", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("clusters nearby points", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic/clusters?zoom=6", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[response](t, rec)
		require.Len(t, resp.Clusters, 2, "the two Bangkok quakes merge")
	})

	t.Run("clustering disabled at street zoom", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic/clusters?zoom=14", "")
		resp := decode[response](t, rec)
		assert.Len(t, resp.Clusters, 3)
	})

	t.Run("viewport bounds", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/hazards/seismic/clusters?zoom=6&west=100&south=13&east=101&north=14", "")
		resp := decode[response](t, rec)
		require.Len(t, resp.Clusters, 1)
		assert.Equal(t, 2, resp.Clusters[0].MemberCount)
	})
}

func TestSubscriberEndpoints(t *testing.T) {
	f := newServerFixture(t, nil)

	t.Run("upsert", func(t *testing.T) {
		body := `{"lat": 13.7563, "lon": 100.5018, "radius_km": 25, "min_severity": 2, "channels": ["push", "email"], "muted_types": ["rain_sensor"]}`
		rec := f.do(t, http.MethodPut, "/v1/subscribers/user-1", body)
		require.Equal(t, http.StatusOK, rec.Code)

		p, ok := f.subs.Get("user-1")
		require.True(t, ok)
		assert.Equal(t, 25.0, p.RadiusKm)
		assert.Equal(t, 2, p.MinSeverity)
		require.NotNil(t, p.Position)
		assert.Equal(t, 13.7563, p.Position.Lat)
		assert.Equal(t, []domain.HazardType{domain.HazardRainSensor}, p.MutedTypes)
	})

	t.Run("position is optional", func(t *testing.T) {
		body := `{"radius_km": 0, "min_severity": 3, "channels": ["in_app"]}`
		rec := f.do(t, http.MethodPut, "/v1/subscribers/user-2", body)
		require.Equal(t, http.StatusOK, rec.Code)

		p, _ := f.subs.Get("user-2")
		assert.Nil(t, p.Position)
	})

	t.Run("lat without lon", func(t *testing.T) {
		body := `{"lat": 13.75, "radius_km": 5, "min_severity": 1, "channels": ["push"]}`
		rec := f.do(t, http.MethodPut, "/v1/subscribers/user-3", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown channel", func(t *testing.T) {
		body := `{"radius_km": 5, "min_severity": 1, "channels": ["carrier_pigeon"]}`
		rec := f.do(t, http.MethodPut, "/v1/subscribers/user-4", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("severity outside scale", func(t *testing.T) {
		body := `{"radius_km": 5, "min_severity": 9, "channels": ["push"]}`
		rec := f.do(t, http.MethodPut, "/v1/subscribers/user-5", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		rec := f.do(t, http.MethodPut, "/v1/subscribers/user-6", "{nope")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := f.do(t, http.MethodDelete, "/v1/subscribers/user-1", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		_, ok := f.subs.Get("user-1")
		assert.False(t, ok)
	})
}

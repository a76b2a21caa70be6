package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hazardwatch/internal/config"
	"hazardwatch/internal/domain"
	"hazardwatch/internal/scheduler"
)

// hazardResponse is the wire shape for a filtered cache view. DataAsOf lets
// clients show "data as of <time>" instead of a blank state when the last
// refresh failed.
type hazardResponse struct {
	Hazard    domain.HazardType     `json:"hazard"`
	Status    scheduler.Status      `json:"status"`
	DataAsOf  *time.Time            `json:"data_as_of,omitempty"`
	LastError string                `json:"last_error,omitempty"`
	Count     int                   `json:"count"`
	Records   []domain.HazardRecord `json:"records"`
}

func (s *Server) hazardCache(w http.ResponseWriter, r *http.Request) (*scheduler.Cache, config.FeedSettings, bool) {
	t, ok := domain.ParseHazardType(chi.URLParam(r, "type"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown hazard type")
		return nil, config.FeedSettings{}, false
	}
	cache, ok := s.sched.Cache(t)
	if !ok {
		writeError(w, http.StatusNotFound, "hazard not scheduled")
		return nil, config.FeedSettings{}, false
	}
	return cache, s.cfg.Feeds()[string(t)], true
}

func (s *Server) handleHazardRecords(w http.ResponseWriter, r *http.Request) {
	cache, _, ok := s.hazardCache(w, r)
	if !ok {
		return
	}

	criteria, err := criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := cache.Snapshot()
	records := domain.Filter(snap.Records, criteria)
	if limit := intQuery(r, "limit", 0); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	resp := hazardResponse{
		Hazard:  cache.Hazard(),
		Status:  cache.Status(),
		Count:   len(records),
		Records: records,
	}
	if !snap.LastSuccessAt.IsZero() {
		t := snap.LastSuccessAt
		resp.DataAsOf = &t
	}
	if snap.LastError != nil {
		resp.LastError = snap.LastError.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHazardStats(w http.ResponseWriter, r *http.Request) {
	cache, settings, ok := s.hazardCache(w, r)
	if !ok {
		return
	}

	criteria, err := criteriaFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := cache.Snapshot()
	records := domain.Filter(snap.Records, criteria)

	writeJSON(w, http.StatusOK, map[string]any{
		"hazard":    cache.Hazard(),
		"status":    cache.Status(),
		"summary":   domain.Summarize(records, settings.HighSeverityCutoff),
		"histogram": domain.HourlyHistogram(records, 24),
	})
}

func (s *Server) handleHazardClusters(w http.ResponseWriter, r *http.Request) {
	cache, settings, ok := s.hazardCache(w, r)
	if !ok {
		return
	}

	zoom, err := strconv.Atoi(r.URL.Query().Get("zoom"))
	if err != nil || zoom < 0 || zoom > 22 {
		writeError(w, http.StatusBadRequest, "zoom must be an integer in [0,22]")
		return
	}
	bounds := domain.Bounds{
		West:  floatQuery(r, "west", 0),
		South: floatQuery(r, "south", 0),
		East:  floatQuery(r, "east", 0),
		North: floatQuery(r, "north", 0),
	}

	opts := domain.ClusterOptions{
		RadiusByZoom:     s.cfg.ClusterRadiusByZoom,
		DefaultRadiusPx:  s.cfg.ClusterDefaultRadiusPx,
		DisableAboveZoom: settings.DisableClusterAboveZoom,
	}
	clusters := domain.ClusterRecords(cache.Snapshot().Records, zoom, bounds, opts)

	writeJSON(w, http.StatusOK, map[string]any{
		"hazard":   cache.Hazard(),
		"zoom":     zoom,
		"clusters": clusters,
	})
}

// subscriberRequest is the PUT body for a subscription. Channels are the
// delivery transports the dispatcher understands.
type subscriberRequest struct {
	Lat         *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon         *float64 `json:"lon" validate:"omitempty,gte=-180,lte=180"`
	RadiusKm    float64  `json:"radius_km" validate:"gte=0,lte=20000"`
	MinSeverity int      `json:"min_severity" validate:"gte=1,lte=5"`
	Channels    []string `json:"channels" validate:"required,min=1,dive,oneof=push email in_app"`
	MutedTypes  []string `json:"muted_types" validate:"omitempty,dive,oneof=seismic rain_sensor wildfire_hotspot air_quality flood drought"`
}

func (s *Server) handleSubscriberUpsert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req subscriberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if (req.Lat == nil) != (req.Lon == nil) {
		writeError(w, http.StatusBadRequest, "lat and lon must be provided together")
		return
	}

	profile := domain.SubscriberProfile{
		ID:          id,
		RadiusKm:    req.RadiusKm,
		MinSeverity: req.MinSeverity,
		Channels:    req.Channels,
	}
	if req.Lat != nil {
		profile.Position = &domain.Geo{Lat: *req.Lat, Lon: *req.Lon}
	}
	for _, m := range req.MutedTypes {
		t, _ := domain.ParseHazardType(m)
		profile.MutedTypes = append(profile.MutedTypes, t)
	}

	s.subs.Upsert(profile)
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleSubscriberDelete(w http.ResponseWriter, r *http.Request) {
	s.subs.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func criteriaFromQuery(r *http.Request) (domain.FilterCriteria, error) {
	var c domain.FilterCriteria
	q := r.URL.Query()

	if v := q.Get("min_severity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return c, strconv.ErrSyntax
		}
		c.MinSeverity = f
	}
	if v := q.Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return c, strconv.ErrSyntax
		}
		c.Window = d
	}
	return c, nil
}

func intQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatQuery(r *http.Request, key string, def float64) float64 {
	if v := r.URL.Query().Get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

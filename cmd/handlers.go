package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/KennyGael/Hazard-Atlas/internal/export"
	"github.com/KennyGael/Hazard-Atlas/internal/model"
	"github.com/KennyGael/Hazard-Atlas/internal/openfda"
	"github.com/KennyGael/Hazard-Atlas/internal/recalls"
	"github.com/KennyGael/Hazard-Atlas/pkg/geocode"
)

// server holds the per-process state behind the API: the last fetched record
// set (replaced wholesale on reload) and a singleflight group so concurrent
// /api/recalls requests share one upstream aggregation run.
type server struct {
	app *app

	sf   singleflight.Group
	mu   sync.RWMutex
	last []model.Recall
}

func newServer(a *app) *server {
	return &server{app: a}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/recalls", s.handleRecalls)
		r.Get("/recalls/view", s.handleRecallsView)
		r.Get("/recalls.geojson", s.handleRecallsGeoJSON)
		r.Get("/recalls.xlsx", s.handleRecallsXLSX)
		r.Get("/diagnose", s.handleDiagnose)
		r.Post("/geocode", s.handleGeocode)
		r.Get("/geocache", s.handleGeocache)
	})
	return r
}

// fetchRecalls runs (or joins) one aggregation and retains the result set for
// the view endpoints. The flight runs on a context detached from the
// initiating request so one client disconnecting does not fail every joined
// request.
func (s *server) fetchRecalls(r *http.Request) (*openfda.Result, error) {
	ctx := context.WithoutCancel(r.Context())
	v, err, _ := s.sf.Do("recalls", func() (any, error) {
		res, err := s.app.agg.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.last = res.Results
		s.mu.Unlock()
		s.warmGeocodeQueue(res.Results)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*openfda.Result), nil
}

// warmGeocodeQueue enqueues every record's address. The queue consults the
// persistent cache first, so already-resolved addresses cost nothing and
// only genuinely new ones hit the network.
func (s *server) warmGeocodeQueue(records []model.Recall) {
	for _, rec := range records {
		addr := rec.GeocodeAddress()
		if addr == "" {
			continue
		}
		s.app.queue.Enqueue(addr, func(_ *geocode.Coord, err error) {
			if err != nil {
				zap.L().Debug("background geocode failed", zap.String("address", addr), zap.Error(err))
			}
		})
	}
}

// lastRecalls returns the retained record set, fetching if no load has
// happened yet this process lifetime.
func (s *server) lastRecalls(r *http.Request) ([]model.Recall, error) {
	s.mu.RLock()
	cached := s.last
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	res, err := s.fetchRecalls(r)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleRecalls(w http.ResponseWriter, r *http.Request) {
	res, err := s.fetchRecalls(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleRecallsView(w http.ResponseWriter, r *http.Request) {
	records, err := s.lastRecalls(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := recalls.Query{
		Source:         r.URL.Query().Get("source"),
		Classification: r.URL.Query().Get("classification"),
		Text:           r.URL.Query().Get("q"),
		Sort:           r.URL.Query().Get("sort"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil || limit < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		q.Limit = limit
	}

	view := recalls.Apply(records, q)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(view),
		"results": view,
	})
}

func (s *server) handleRecallsGeoJSON(w http.ResponseWriter, r *http.Request) {
	records, err := s.lastRecalls(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	coords, err := s.app.cache.Export(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(recalls.FeatureCollection(records, coords)); err != nil {
		zap.L().Error("encoding geojson response", zap.Error(err))
	}
}

func (s *server) handleRecallsXLSX(w http.ResponseWriter, r *http.Request) {
	records, err := s.lastRecalls(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="recalls.xlsx"`)
	if err := export.WriteXLSX(w, records); err != nil {
		zap.L().Error("writing xlsx response", zap.Error(err))
	}
}

func (s *server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	probe, err := s.app.agg.Probe(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, probe)
}

func (s *server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "address is required"})
		return
	}

	coord, err := s.app.queue.Lookup(r.Context(), req.Address)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if coord == nil {
		writeJSON(w, http.StatusOK, map[string]any{"found": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found": true,
		"lat":   coord.Lat,
		"lon":   coord.Lon,
	})
}

func (s *server) handleGeocache(w http.ResponseWriter, r *http.Request) {
	coords, err := s.app.cache.Export(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, coords)
}

// writeError maps aggregation failures to the API error contract: 502 with
// per-source details when both upstream feeds are down, 500 with an error
// trace for anything unexpected.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var down *openfda.UpstreamDownError
	if errors.As(err, &down) {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   "upstream_unavailable",
			"details": down.Errors,
			"message": down.Error(),
		})
		return
	}

	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": "internal_error",
		"details": map[string]string{
			"message": err.Error(),
			"stack":   eris.ToString(err, true),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encoding response", zap.Error(err))
	}
}

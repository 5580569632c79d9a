package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/threshold-urban/threshold/internal/models"
	"github.com/threshold-urban/threshold/internal/serviceanalysis"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"detail": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "threshold",
	})
}

// VacantLandRequest wraps the AOI feature to analyze.
type VacantLandRequest struct {
	AOI models.GeoJSONFeature `json:"aoi"`
}

// handleVacantLand runs the full vacant-land analysis. Only structurally
// invalid input is a 400; external data failures degrade inside the analyzer
// and still produce a 200.
func (s *Server) handleVacantLand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req VacantLandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.analyzer.Analyze(r.Context(), req.AOI)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVacantLandHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"service":          "vacant-land-analysis",
		"model":            s.scorer.Status(),
		"places_available": s.placesReady,
	})
}

// handleAQICalculate computes the AQI for one location and date. A location
// without coverage is a 200 with data_available=false; only a malformed
// request is a 400.
func (s *Server) handleAQICalculate(w http.ResponseWriter, r *http.Request) {
	latitude, err := strconv.ParseFloat(r.URL.Query().Get("latitude"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid latitude")
		return
	}
	longitude, err := strconv.ParseFloat(r.URL.Query().Get("longitude"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid longitude")
		return
	}
	date := r.URL.Query().Get("date")

	result, err := s.aqi.Calculate(r.Context(), latitude, longitude, date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleAQIBatch computes AQI for a list of locations passed as a JSON array
// in the "locations" query parameter: [{"lat": ..., "lng": ...}, ...].
// Per-location failures are reported inline; the batch itself still succeeds.
func (s *Server) handleAQIBatch(w http.ResponseWriter, r *http.Request) {
	locationsParam := r.URL.Query().Get("locations")
	if !gjson.Valid(locationsParam) || !gjson.Parse(locationsParam).IsArray() {
		writeError(w, http.StatusBadRequest, "invalid JSON format for locations")
		return
	}
	date := r.URL.Query().Get("date")

	var results []any
	gjson.Parse(locationsParam).ForEach(func(_, loc gjson.Result) bool {
		lat := loc.Get("lat").Float()
		lng := loc.Get("lng").Float()
		result, err := s.aqi.Calculate(r.Context(), lat, lng, date)
		if err != nil {
			results = append(results, map[string]any{
				"latitude":  lat,
				"longitude": lng,
				"error":     err.Error(),
				"aqi":       nil,
			})
			return true
		}
		results = append(results, result)
		return true
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleServiceAnalysis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req serviceanalysis.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := s.services.Analyze(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCacheStats reports on the AOI cache. Store errors are reported in the
// payload rather than failing the endpoint.
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Statistics()
	if err != nil {
		log.Printf("api: cache statistics: %v", err)
		stats = models.CacheStatistics{CacheEnabled: true, Error: err.Error()}
	}
	writeJSON(w, http.StatusOK, stats)
}

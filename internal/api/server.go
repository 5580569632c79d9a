package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threshold-urban/threshold/internal/hotspots"
	"github.com/threshold-urban/threshold/internal/models"
	"github.com/threshold-urban/threshold/internal/scoring"
	"github.com/threshold-urban/threshold/internal/serviceanalysis"
	"github.com/threshold-urban/threshold/internal/store"
)

// AQIClient is the air-quality collaborator for the AQI endpoints.
type AQIClient interface {
	Calculate(ctx context.Context, latitude, longitude float64, date string) (models.AQIResult, error)
}

// ServiceAnalyzer runs service-gap analyses.
type ServiceAnalyzer interface {
	Analyze(ctx context.Context, req serviceanalysis.Request) (*serviceanalysis.Response, error)
}

type Server struct {
	store       *store.Store
	analyzer    *hotspots.Analyzer
	scorer      *scoring.Scorer
	aqi         AQIClient
	services    ServiceAnalyzer
	placesReady bool
	port        string
}

func NewServer(
	st *store.Store,
	analyzer *hotspots.Analyzer,
	scorer *scoring.Scorer,
	aqi AQIClient,
	services ServiceAnalyzer,
	placesReady bool,
	port string,
) *Server {
	return &Server{
		store:       st,
		analyzer:    analyzer,
		scorer:      scorer,
		aqi:         aqi,
		services:    services,
		placesReady: placesReady,
		port:        port,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/vacant-land", s.handleVacantLand)
	mux.HandleFunc("/api/vacant-land/health", s.handleVacantLandHealth)
	mux.HandleFunc("/api/aqi/calculate", s.handleAQICalculate)
	mux.HandleFunc("/api/aqi/batch", s.handleAQIBatch)
	mux.HandleFunc("/api/service-analysis", s.handleServiceAnalysis)
	mux.HandleFunc("/api/cache/stats", s.handleCacheStats)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

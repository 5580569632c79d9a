package scoring

import (
	"fmt"
	"log"
	"math"
	"os"

	"github.com/threshold-urban/threshold/internal/metrics"
)

// DefaultArtifactPaths are the well-known model locations tried in order at
// startup.
var DefaultArtifactPaths = []string{
	"hotspot_model.json",
	"model/hotspot_model.json",
	"../model/hotspot_model.json",
}

// Scorer is the scoring façade: the fitted model when one loaded at startup,
// the rule-based composite otherwise. A Scorer without a model is permanently
// in fallback mode for the life of the process; there is no reload.
type Scorer struct {
	artifact *Artifact
}

// NewScorer attempts each artifact path in order. A missing or invalid
// artifact is not fatal; the scorer simply starts in rule-based mode.
func NewScorer(paths ...string) *Scorer {
	if len(paths) == 0 {
		paths = DefaultArtifactPaths
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		artifact, err := LoadArtifact(path)
		if err != nil {
			log.Printf("scoring: skipping artifact %s: %v", path, err)
			continue
		}
		log.Printf("scoring: loaded %s model from %s", artifact.ModelType, path)
		return &Scorer{artifact: artifact}
	}
	log.Printf("scoring: no model artifact found, using rule-based scoring")
	return &Scorer{}
}

// NewScorerWithArtifact wires a pre-loaded artifact, mainly for tests.
func NewScorerWithArtifact(a *Artifact) *Scorer {
	return &Scorer{artifact: a}
}

// Ready reports whether model inference is available.
func (s *Scorer) Ready() bool {
	return s.artifact != nil
}

// Score runs the fallback chain: model inference first, the rule-based
// composite on any inference failure, a neutral error result when the inputs
// are not numbers at all. Failures never propagate to the caller; they only
// downgrade the method field of the result.
func (s *Scorer) Score(aqi, populationDensity float64, distances map[string]float64) Result {
	if math.IsNaN(aqi) || math.IsNaN(populationDensity) {
		res := errorResult(fmt.Errorf("non-numeric scoring inputs: aqi=%v density=%v", aqi, populationDensity))
		metrics.ScoringTotal.WithLabelValues(res.Method).Inc()
		return res
	}
	if s.Ready() {
		res, err := s.mlScore(aqi, populationDensity, distances)
		if err == nil {
			metrics.ScoringTotal.WithLabelValues(MethodMLModel).Inc()
			return res
		}
		log.Printf("scoring: model inference failed, falling back to rules: %v", err)
		metrics.ScoringFallbacksTotal.Inc()
	}
	res := RuleBased(aqi, populationDensity, distances)
	metrics.ScoringTotal.WithLabelValues(res.Method).Inc()
	return res
}

func (s *Scorer) mlScore(aqi, populationDensity float64, distances map[string]float64) (Result, error) {
	dist := func(key string) float64 {
		if v, ok := distances[key]; ok {
			return v
		}
		return DefaultDistances[key]
	}

	// Feature order is fixed by training; see FeatureColumns.
	features := []float64{
		aqi,
		populationDensity,
		dist("hospital"),
		dist("school"),
		dist("airport"),
		dist("bus"),
		dist("railway"),
		dist("mall"),
	}

	raw, err := s.artifact.Predict(features)
	if err != nil {
		return Result{}, err
	}

	// Static confidence estimate, not calibrated: every supported artifact
	// kind is a regressor.
	confidence := 0.85

	breakdown := map[string]float64{
		"aqi":                aqi,
		"population_density": populationDensity,
	}
	for _, key := range AmenityKeys {
		breakdown["dist_"+key] = dist(key)
	}

	return Result{
		Score:      clamp01(raw),
		Confidence: confidence,
		Method:     MethodMLModel,
		Breakdown:  breakdown,
		ModelType:  s.artifact.ModelType,
	}, nil
}

// Status describes the scorer for the health endpoint.
type Status struct {
	ModelReady     bool     `json:"model_ready"`
	ModelType      string   `json:"model_type,omitempty"`
	FeatureColumns []string `json:"feature_columns"`
}

func (s *Scorer) Status() Status {
	st := Status{
		ModelReady:     s.Ready(),
		FeatureColumns: FeatureColumns,
	}
	if s.artifact != nil {
		st.ModelType = s.artifact.ModelType
	}
	return st
}

package hotspots

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/threshold-urban/threshold/internal/geo"
	"github.com/threshold-urban/threshold/internal/landcover"
	"github.com/threshold-urban/threshold/internal/metrics"
	"github.com/threshold-urban/threshold/internal/models"
	"github.com/threshold-urban/threshold/internal/population"
	"github.com/threshold-urban/threshold/internal/scoring"
	"github.com/threshold-urban/threshold/internal/store"
)

// AQILookup is the air-quality collaborator.
type AQILookup interface {
	Calculate(ctx context.Context, lat, lng float64, date string) (models.AQIResult, error)
}

// DistanceLookup is the amenity-distance collaborator. Implementations always
// return the full six-key map, substituting defaults on failure.
type DistanceLookup interface {
	AmenityDistances(ctx context.Context, lat, lng float64) map[string]float64
}

// defaultAQI stands in when no air-quality reading is available for a parcel.
const defaultAQI = 100.0

// Area bonus: larger parcels are worth more, up to +20 points at 10 ha.
const (
	areaBonusDivisorM2 = 50000.0
	areaBonusPerStep   = 10.0
	areaBonusCap       = 20.0
)

// Analyzer orchestrates a vacant-land analysis: cache lookup, parcel
// extraction, per-parcel scoring, persistence.
type Analyzer struct {
	store            *store.Store
	matcher          *Matcher
	scorer           *scoring.Scorer
	aqi              AQILookup
	density          population.Estimator
	distances        DistanceLookup
	parcels          landcover.Provider
	overlapThreshold float64
	now              func() time.Time
}

func NewAnalyzer(
	st *store.Store,
	scorer *scoring.Scorer,
	aqi AQILookup,
	density population.Estimator,
	distances DistanceLookup,
	parcels landcover.Provider,
	overlapThreshold float64,
) *Analyzer {
	if overlapThreshold <= 0 {
		overlapThreshold = DefaultOverlapThreshold
	}
	return &Analyzer{
		store:            st,
		matcher:          NewMatcher(st),
		scorer:           scorer,
		aqi:              aqi,
		density:          density,
		distances:        distances,
		parcels:          parcels,
		overlapThreshold: overlapThreshold,
		now:              time.Now,
	}
}

// AnalysisResponse is the wire shape of one analysis run.
type AnalysisResponse struct {
	Success            bool                       `json:"success"`
	Message            string                     `json:"message"`
	Cached             bool                       `json:"cached"`
	VacantLandPolygons []models.VacantLandPolygon `json:"vacant_land_polygons"`
	SummaryStats       models.SummaryStats        `json:"summary_stats"`
	DataSources        map[string]string          `json:"data_sources,omitempty"`
	ProcessingTime     float64                    `json:"processing_time"`
}

// Analyze runs the full pipeline for one AOI. The returned error is non-nil
// only for structurally invalid input; every external failure degrades to
// default or synthetic data and the request still succeeds.
func (a *Analyzer) Analyze(ctx context.Context, feature models.GeoJSONFeature) (*AnalysisResponse, error) {
	started := a.now()
	defer func() {
		metrics.AnalysisDuration.Observe(time.Since(started).Seconds())
	}()

	aoiPoly, err := geo.ParsePolygon(feature.Geometry)
	if err != nil {
		return nil, err
	}
	bounds := geo.BoundsOf(aoiPoly)

	if cached := a.lookupCache(aoiPoly, bounds); cached != nil {
		return cached, nil
	}
	metrics.AOICacheLookupsTotal.WithLabelValues("miss").Inc()

	parcels, err := a.parcels.VacantParcels(ctx, bounds, aoiPoly)
	if err != nil {
		// Degrade to an empty result set rather than failing the request.
		log.Printf("hotspots: parcel extraction failed: %v", err)
		parcels = nil
	}

	today := a.now().UTC().Format("2006-01-02")
	scored := make([]models.VacantLandPolygon, 0, len(parcels))
	methodCounts := make(map[string]int)
	for _, parcel := range parcels {
		p := a.scoreParcel(ctx, parcel, today)
		methodCounts[p.ScoringMethod]++
		scored = append(scored, p)
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].HotspotScore > scored[j].HotspotScore })

	summary := summarize(scored, methodCounts)
	processingTime := time.Since(started).Seconds()
	dataSources := map[string]string{
		"satellite":     "ESA WorldCover 2021",
		"amenities":     "Google Places API",
		"analysis_date": a.now().UTC().Format(time.RFC3339),
	}
	if len(parcels) > 0 && parcels[0].DataSource == landcover.DataSourceSynthetic {
		dataSources["satellite"] = landcover.DataSourceSynthetic
	}

	a.persist(aoiPoly, feature.Geometry, bounds, scored, summary, dataSources, processingTime)

	return &AnalysisResponse{
		Success:            true,
		Message:            fmt.Sprintf("Found %d vacant land areas within AOI", len(scored)),
		VacantLandPolygons: scored,
		SummaryStats:       summary,
		DataSources:        dataSources,
		ProcessingTime:     processingTime,
	}, nil
}

// lookupCache returns a response built from a cached analysis, or nil on miss.
// Cache errors are logged and treated as misses.
func (a *Analyzer) lookupCache(aoiPoly orb.Polygon, bounds models.Bounds) *AnalysisResponse {
	match, err := a.matcher.FindOverlapping(aoiPoly, bounds, a.overlapThreshold)
	if err != nil {
		log.Printf("hotspots: cache lookup failed: %v", err)
		return nil
	}
	if match == nil {
		return nil
	}
	analysis, err := a.store.GetAnalysisByAOI(match.ID)
	if err != nil || analysis == nil {
		if err != nil {
			log.Printf("hotspots: cached analysis load failed for %s: %v", match.ID, err)
		}
		return nil
	}
	metrics.AOICacheLookupsTotal.WithLabelValues("hit").Inc()
	return &AnalysisResponse{
		Success:            true,
		Message:            fmt.Sprintf("Returning cached analysis with %d vacant land areas", len(analysis.VacantPolygons)),
		Cached:             true,
		VacantLandPolygons: analysis.VacantPolygons,
		SummaryStats:       analysis.SummaryStats,
		DataSources:        analysis.DataSources,
		ProcessingTime:     match.ProcessingTime,
	}
}

// scoreParcel gathers the parcel's environmental inputs and produces its
// final 0-100 hotspot score.
func (a *Analyzer) scoreParcel(ctx context.Context, parcel landcover.Parcel, date string) models.VacantLandPolygon {
	lat, lng := parcel.Centroid[1], parcel.Centroid[0]

	aqiValue := defaultAQI
	var aqiPtr *float64
	if res, err := a.aqi.Calculate(ctx, lat, lng, date); err == nil && res.DataAvailable && res.AQI != nil {
		aqiValue = *res.AQI
		aqiPtr = res.AQI
	} else if err != nil {
		log.Printf("hotspots: AQI lookup failed for %.4f,%.4f: %v", lat, lng, err)
	}

	density := a.density.DensityAt(lat, lng)
	distances := a.distances.AmenityDistances(ctx, lat, lng)

	result := a.scorer.Score(aqiValue, density, distances)

	// Base quality score scaled to 0-100, plus a capped size incentive.
	baseScore := result.Score * 100
	areaM2 := parcel.AreaHa * 10000
	areaBonus := math.Min(areaBonusCap, areaM2/areaBonusDivisorM2*areaBonusPerStep)
	final := math.Min(100, baseScore+areaBonus)

	return models.VacantLandPolygon{
		ID:                uuid.NewString(),
		Geometry:          geo.ToGeometry(parcel.Geometry),
		AreaHa:            parcel.AreaHa,
		HotspotScore:      math.Round(final*10) / 10,
		LandcoverClass:    parcel.LandcoverClass,
		Centroid:          parcel.Centroid,
		AQI:               aqiPtr,
		PopulationDensity: &density,
		AmenityDistances:  distances,
		ScoringMethod:     result.Method,
		ScoringBreakdown:  result.Breakdown,
		DataSource:        parcel.DataSource,
	}
}

// persist writes the AOI and its analysis. Failures are logged; the response
// has already been computed and is still returned. Two concurrent requests
// for overlapping regions may both write; the cache tolerates duplicates.
func (a *Analyzer) persist(
	aoiPoly orb.Polygon,
	geometry models.GeoJSONGeometry,
	bounds models.Bounds,
	polygons []models.VacantLandPolygon,
	summary models.SummaryStats,
	dataSources map[string]string,
	processingTime float64,
) {
	aoi := models.AOICache{
		ID:             uuid.NewString(),
		Geometry:       geometry,
		Bounds:         bounds,
		AnalysisDate:   a.now().UTC(),
		ProcessingTime: processingTime,
		TotalAreaHa:    geo.AreaHectares(aoiPoly),
	}
	if err := a.store.InsertAOICache(aoi); err != nil {
		log.Printf("hotspots: caching AOI failed: %v", err)
		return
	}
	analysis := models.VacantLandAnalysis{
		ID:              uuid.NewString(),
		AOICacheID:      aoi.ID,
		VacantPolygons:  polygons,
		SummaryStats:    summary,
		DataSources:     dataSources,
		AnalysisVersion: "1.0",
	}
	if err := a.store.InsertAnalysis(analysis); err != nil {
		log.Printf("hotspots: caching analysis failed: %v", err)
	}
}

func summarize(polygons []models.VacantLandPolygon, methodCounts map[string]int) models.SummaryStats {
	stats := models.SummaryStats{
		PolygonCount: len(polygons),
		MethodCounts: methodCounts,
	}
	for _, p := range polygons {
		stats.TotalAreaHa += p.AreaHa
		stats.AvgScore += p.HotspotScore
	}
	if len(polygons) > 0 {
		stats.AvgScore = math.Round(stats.AvgScore/float64(len(polygons))*10) / 10
	}
	stats.TotalAreaHa = math.Round(stats.TotalAreaHa*100) / 100
	return stats
}

// Package serviceanalysis locates public-service gaps inside an AOI by
// comparing a grid of sample points against OpenStreetMap service locations.
package serviceanalysis

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/threshold-urban/threshold/internal/geo"
	"github.com/threshold-urban/threshold/internal/models"
)

// ServiceType is a category of urban service to analyze.
type ServiceType string

const (
	ServiceParks      ServiceType = "parks"
	ServiceFood       ServiceType = "food"
	ServiceHealthcare ServiceType = "healthcare"
	ServiceTransport  ServiceType = "transport"
)

// NeedLevel grades how badly a grid point needs a service.
type NeedLevel string

const (
	NeedLow    NeedLevel = "low"
	NeedMedium NeedLevel = "medium"
	NeedHigh   NeedLevel = "high"
)

// thresholds are the good/fair/poor access distances per service type, km.
type thresholds struct {
	good, fair, poor float64
}

var serviceThresholds = map[ServiceType]thresholds{
	ServiceParks:      {good: 2, fair: 5, poor: 10},
	ServiceFood:       {good: 3, fair: 8, poor: 15},
	ServiceHealthcare: {good: 5, fair: 15, poor: 25},
	ServiceTransport:  {good: 1, fair: 3, poor: 5},
}

var serviceNames = map[ServiceType]string{
	ServiceParks:      "park or recreational facility",
	ServiceFood:       "grocery store or supermarket",
	ServiceHealthcare: "healthcare facility or clinic",
	ServiceTransport:  "public transport station",
}

// noServiceDistance is reported when a service type has no locations at all
// inside the bounds.
const noServiceDistance = 999.0

// Grid resolution limits, km per cell.
const (
	DefaultGridResolution = 2.0
	MinGridResolution     = 0.5
	MaxGridResolution     = 10.0
)

// Request describes one service-gap analysis.
type Request struct {
	Bounds         models.Bounds `json:"aoi_bounds"`
	ServiceTypes   []ServiceType `json:"service_types"`
	GridResolution float64       `json:"grid_resolution"`
}

// Validate rejects structurally invalid requests. A zero GridResolution is
// replaced with the default.
func (r *Request) Validate() error {
	if len(r.ServiceTypes) == 0 {
		return fmt.Errorf("at least one service type is required")
	}
	for _, st := range r.ServiceTypes {
		if _, ok := serviceThresholds[st]; !ok {
			return fmt.Errorf("unknown service type %q", st)
		}
	}
	if r.GridResolution == 0 {
		r.GridResolution = DefaultGridResolution
	}
	if r.GridResolution < MinGridResolution || r.GridResolution > MaxGridResolution {
		return fmt.Errorf("grid resolution must be between %g and %g km", MinGridResolution, MaxGridResolution)
	}
	if r.Bounds.MinLat >= r.Bounds.MaxLat || r.Bounds.MinLng >= r.Bounds.MaxLng {
		return fmt.Errorf("invalid AOI bounds")
	}
	return nil
}

// Gap is one grid point with inadequate service access.
type Gap struct {
	CenterLat         float64     `json:"center_lat"`
	CenterLng         float64     `json:"center_lng"`
	ServiceType       ServiceType `json:"service_type"`
	DistanceToNearest float64     `json:"distance_to_nearest"`
	NeedLevel         NeedLevel   `json:"need_level"`
	AreaSizeKm2       float64     `json:"area_size"`
	Recommendation    string      `json:"recommendation"`
}

// Summary aggregates one service type's gaps.
type Summary struct {
	TotalGaps      int     `json:"total_gaps"`
	HighPriority   int     `json:"high_priority"`
	MediumPriority int     `json:"medium_priority"`
	LowPriority    int     `json:"low_priority"`
	AvgDistance    float64 `json:"avg_distance"`
}

// Response is the wire shape of one service-gap analysis.
type Response struct {
	Success          bool                     `json:"success"`
	Message          string                   `json:"message"`
	TotalServiceGaps int                      `json:"total_service_gaps"`
	AnalysisSummary  map[ServiceType]Summary  `json:"analysis_summary"`
	ServiceGaps      map[ServiceType][]Gap    `json:"service_gaps"`
	ProcessingTime   float64                  `json:"processing_time"`
	DataSource       string                   `json:"data_source"`
}

// LocationSource yields service positions for a bounds query.
type LocationSource interface {
	Locations(ctx context.Context, serviceType ServiceType, bounds models.Bounds) ([][2]float64, error)
}

// Analyzer runs service-gap analyses against a location source.
type Analyzer struct {
	source LocationSource
	now    func() time.Time
}

func NewAnalyzer(source LocationSource) *Analyzer {
	return &Analyzer{source: source, now: time.Now}
}

// Analyze grades every grid point in the AOI for each requested service type.
// Location-source failures degrade to an empty service set; the request still
// succeeds with every point flagged high-need.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	started := a.now()

	points := gridPoints(req.Bounds, req.GridResolution)
	cellArea := req.GridResolution * req.GridResolution

	gaps := make(map[ServiceType][]Gap, len(req.ServiceTypes))
	summaries := make(map[ServiceType]Summary, len(req.ServiceTypes))
	total := 0

	for _, serviceType := range req.ServiceTypes {
		locations, err := a.source.Locations(ctx, serviceType, req.Bounds)
		if err != nil {
			log.Printf("serviceanalysis: fetching %s locations failed: %v", serviceType, err)
			locations = nil
		}

		typeGaps := analyzeType(serviceType, points, locations, cellArea)
		gaps[serviceType] = typeGaps
		summaries[serviceType] = summarize(typeGaps)
		total += len(typeGaps)
	}

	return &Response{
		Success:          true,
		Message:          fmt.Sprintf("Found %d service gaps across %d service types", total, len(req.ServiceTypes)),
		TotalServiceGaps: total,
		AnalysisSummary:  summaries,
		ServiceGaps:      gaps,
		ProcessingTime:   time.Since(started).Seconds(),
		DataSource:       "OpenStreetMap",
	}, nil
}

// gridPoints lays a lat/lng grid over the bounds at the given km resolution.
// Longitude step widens with latitude so cells stay roughly square.
func gridPoints(b models.Bounds, resolutionKm float64) [][2]float64 {
	latStep := resolutionKm / 111.0
	midLat := (b.MinLat + b.MaxLat) / 2
	lngStep := resolutionKm / (111.0 * math.Cos(midLat*math.Pi/180))

	var points [][2]float64
	for lat := b.MinLat; lat <= b.MaxLat; lat += latStep {
		for lng := b.MinLng; lng <= b.MaxLng; lng += lngStep {
			points = append(points, [2]float64{lat, lng})
		}
	}
	return points
}

// analyzeType grades each grid point against the nearest service location.
// Only medium and high need points are reported as gaps; with no locations at
// all, every point is a high-need gap at the sentinel distance.
func analyzeType(serviceType ServiceType, points [][2]float64, locations [][2]float64, cellArea float64) []Gap {
	var gaps []Gap
	if len(locations) == 0 {
		for _, p := range points {
			gaps = append(gaps, Gap{
				CenterLat:         p[0],
				CenterLng:         p[1],
				ServiceType:       serviceType,
				DistanceToNearest: noServiceDistance,
				NeedLevel:         NeedHigh,
				AreaSizeKm2:       cellArea,
				Recommendation:    fmt.Sprintf("Critical: No %s facilities found in area - immediate establishment needed", serviceType),
			})
		}
		return gaps
	}

	for _, p := range points {
		minDistance := math.Inf(1)
		for _, loc := range locations {
			if d := geo.Haversine(p[0], p[1], loc[0], loc[1]); d < minDistance {
				minDistance = d
			}
		}
		level := needLevel(minDistance, serviceType)
		if level == NeedLow {
			continue
		}
		gaps = append(gaps, Gap{
			CenterLat:         p[0],
			CenterLng:         p[1],
			ServiceType:       serviceType,
			DistanceToNearest: minDistance,
			NeedLevel:         level,
			AreaSizeKm2:       cellArea,
			Recommendation:    recommendation(serviceType, level, minDistance),
		})
	}
	return gaps
}

func needLevel(distanceKm float64, serviceType ServiceType) NeedLevel {
	t := serviceThresholds[serviceType]
	switch {
	case distanceKm > t.poor:
		return NeedHigh
	case distanceKm > t.fair:
		return NeedMedium
	default:
		return NeedLow
	}
}

func recommendation(serviceType ServiceType, level NeedLevel, distanceKm float64) string {
	name := serviceNames[serviceType]
	switch level {
	case NeedHigh:
		return fmt.Sprintf("High priority: Establish new %s within 5km (currently %.1fkm away)", name, distanceKm)
	case NeedMedium:
		return fmt.Sprintf("Medium priority: Consider adding %s to improve access (currently %.1fkm away)", name, distanceKm)
	default:
		return fmt.Sprintf("Low priority: %s access is adequate (currently %.1fkm away)", name, distanceKm)
	}
}

func summarize(gaps []Gap) Summary {
	s := Summary{TotalGaps: len(gaps)}
	for _, g := range gaps {
		switch g.NeedLevel {
		case NeedHigh:
			s.HighPriority++
		case NeedMedium:
			s.MediumPriority++
		case NeedLow:
			s.LowPriority++
		}
		s.AvgDistance += g.DistanceToNearest
	}
	if len(gaps) > 0 {
		s.AvgDistance /= float64(len(gaps))
	}
	return s
}

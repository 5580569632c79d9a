package models

import (
	"time"
)

// Bounds is the axis-aligned bounding box of an AOI, in degrees.
type Bounds struct {
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
}

// GeoJSONGeometry is a GeoJSON Polygon geometry as received from the client.
type GeoJSONGeometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// GeoJSONFeature wraps a geometry with client-supplied properties.
type GeoJSONFeature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties,omitempty"`
	Geometry   GeoJSONGeometry `json:"geometry"`
}

// AOICache is one cached analysis region. Records are insert-only; staleness
// is a 30-day filter applied at query time, nothing is ever deleted.
type AOICache struct {
	ID             string
	Geometry       GeoJSONGeometry
	Bounds         Bounds
	AnalysisDate   time.Time
	ProcessingTime float64 // seconds
	TotalAreaHa    float64
}

// VacantLandPolygon is a single scored parcel inside an AOI.
type VacantLandPolygon struct {
	ID                string             `json:"id"`
	Geometry          GeoJSONGeometry    `json:"geometry"`
	AreaHa            float64            `json:"area"`
	HotspotScore      float64            `json:"hotspot_score"`
	LandcoverClass    int                `json:"landcover_class,omitempty"`
	Centroid          [2]float64         `json:"centroid"` // [lng, lat]
	AQI               *float64           `json:"aqi,omitempty"`
	PopulationDensity *float64           `json:"population_density,omitempty"`
	AmenityDistances  map[string]float64 `json:"amenity_distances,omitempty"`
	ScoringMethod     string             `json:"scoring_method,omitempty"`
	ScoringBreakdown  map[string]float64 `json:"scoring_breakdown,omitempty"`
	DataSource        string             `json:"data_source,omitempty"`
}

// VacantLandAnalysis is the persisted result set for one AOI.
type VacantLandAnalysis struct {
	ID              string
	AOICacheID      string
	VacantPolygons  []VacantLandPolygon
	SummaryStats    SummaryStats
	DataSources     map[string]string
	AnalysisVersion string
}

// SummaryStats aggregates one analysis run.
type SummaryStats struct {
	PolygonCount int            `json:"polygon_count"`
	TotalAreaHa  float64        `json:"total_area_ha"`
	AvgScore     float64        `json:"avg_score"`
	MethodCounts map[string]int `json:"method_counts,omitempty"`
}

// AQIResult is an air-quality lookup for one location and date. A missing
// reading is reported through DataAvailable, never as an error.
type AQIResult struct {
	Latitude      float64             `json:"latitude"`
	Longitude     float64             `json:"longitude"`
	Date          string              `json:"date"`
	Timezone      string              `json:"timezone,omitempty"`
	DataAvailable bool                `json:"data_available"`
	Message       string              `json:"message,omitempty"`
	AQI           *float64            `json:"aqi"`
	Pollutants    map[string]*float64 `json:"pollutants"`
	SubIndices    map[string]*float64 `json:"sub_indices"`
}

// CacheStatistics reports on the AOI cache store.
type CacheStatistics struct {
	TotalCachedAOIs  int    `json:"total_cached_aois"`
	TotalAnalyses    int    `json:"total_analyses"`
	RecentAnalyses7d int    `json:"recent_analyses_7d"`
	CacheEnabled     bool   `json:"cache_enabled"`
	Error            string `json:"error,omitempty"`
}

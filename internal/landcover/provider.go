// Package landcover extracts candidate vacant-land parcels for an AOI.
//
// The production data source is the ESA WorldCover 10m classification (class
// 60, bare/sparse vegetation). Raster processing lives behind the Provider
// interface; when no raster backend is configured the service runs its
// documented degraded mode and synthesizes parcels, flagged via DataSource so
// callers can tell real from synthetic results.
package landcover

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/threshold-urban/threshold/internal/models"
)

// WorldCover classes relevant to vacant-land detection.
const (
	ClassGrassland = 30
	ClassBare      = 60 // primary vacant/developable land
)

// Parcel is one unscored candidate parcel.
type Parcel struct {
	Geometry       orb.Polygon
	AreaHa         float64
	LandcoverClass int
	Centroid       [2]float64 // [lng, lat]
	DataSource     string
}

// Provider yields vacant-land parcels inside an AOI.
type Provider interface {
	VacantParcels(ctx context.Context, bounds models.Bounds, aoi orb.Polygon) ([]Parcel, error)
}

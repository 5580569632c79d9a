package landcover

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/threshold-urban/threshold/internal/geo"
	"github.com/threshold-urban/threshold/internal/models"
)

// DataSourceSynthetic flags parcels produced by the degraded mode.
const DataSourceSynthetic = "synthetic_fallback"

// SyntheticProvider generates plausible parcels when no raster backend is
// available. Generation is seeded from the AOI geometry so repeated requests
// for the same region produce the same parcels.
type SyntheticProvider struct{}

func NewSyntheticProvider() *SyntheticProvider {
	return &SyntheticProvider{}
}

func (p *SyntheticProvider) VacantParcels(ctx context.Context, bounds models.Bounds, aoi orb.Polygon) ([]Parcel, error) {
	rng := rand.New(rand.NewSource(seedFromPolygon(aoi)))

	var parcels []Parcel
	count := 3 + rng.Intn(6) // 3-8 parcels
	for i := 0; i < count; i++ {
		centerLng := bounds.MinLng + rng.Float64()*(bounds.MaxLng-bounds.MinLng)
		centerLat := bounds.MinLat + rng.Float64()*(bounds.MaxLat-bounds.MinLat)

		poly := irregularPolygon(rng, centerLng, centerLat)

		// Only keep parcels that actually fall inside the requested AOI.
		if !planar.PolygonContains(aoi, orb.Point{centerLng, centerLat}) {
			continue
		}

		parcels = append(parcels, Parcel{
			Geometry:       poly,
			AreaHa:         roundHa(0.5 + rng.Float64()*7.5),
			LandcoverClass: ClassBare,
			Centroid:       geo.Centroid(poly),
			DataSource:     DataSourceSynthetic,
		})
	}
	return parcels, nil
}

// irregularPolygon builds a slightly noisy 8-vertex ring around a center,
// roughly 80-300m across.
func irregularPolygon(rng *rand.Rand, centerLng, centerLat float64) orb.Polygon {
	baseSize := 0.0008 + rng.Float64()*0.0022

	ring := make(orb.Ring, 0, 9)
	for step := 0; step < 8; step++ {
		angle := float64(step) * math.Pi / 4
		radius := baseSize * (0.7 + rng.Float64()*0.6)
		ring = append(ring, orb.Point{
			centerLng + radius*math.Cos(angle),
			centerLat + radius*math.Sin(angle),
		})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

func seedFromPolygon(poly orb.Polygon) int64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, ring := range poly {
		for _, pt := range ring {
			for _, v := range pt {
				bits := math.Float64bits(v)
				for i := 0; i < 8; i++ {
					buf[i] = byte(bits >> (8 * i))
				}
				h.Write(buf[:])
			}
		}
	}
	return int64(h.Sum64())
}

func roundHa(v float64) float64 {
	return math.Round(v*100) / 100
}

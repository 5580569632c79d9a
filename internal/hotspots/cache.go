package hotspots

import (
	"log"
	"time"

	"github.com/paulmach/orb"

	"github.com/threshold-urban/threshold/internal/geo"
	"github.com/threshold-urban/threshold/internal/models"
	"github.com/threshold-urban/threshold/internal/store"
)

// DefaultOverlapThreshold is the minimum area-normalized overlap for a cached
// AOI to stand in for a requested one.
const DefaultOverlapThreshold = 0.8

// cacheRecencyDays bounds how old a cached analysis may be before it stops
// matching. Stale records are filtered at query time, never deleted.
const cacheRecencyDays = 30

// Matcher finds a previously analyzed AOI that covers a requested polygon
// well enough to reuse its analysis.
type Matcher struct {
	store *store.Store
	now   func() time.Time
}

func NewMatcher(st *store.Store) *Matcher {
	return &Matcher{store: st, now: time.Now}
}

// FindOverlapping returns the first recent cached AOI whose overlap ratio
// (intersection area / union area) meets the threshold. Candidates come from
// a coarse bbox-intersects filter; the first acceptable candidate wins, not
// the best one. Switching to best-overlap would change which cached analysis
// borderline requests resolve to.
func (m *Matcher) FindOverlapping(requested orb.Polygon, bounds models.Bounds, threshold float64) (*models.AOICache, error) {
	since := m.now().UTC().AddDate(0, 0, -cacheRecencyDays)
	candidates, err := m.store.FindIntersectingAOIs(bounds, since)
	if err != nil {
		return nil, err
	}

	for i := range candidates {
		cached := candidates[i]
		cachedPoly, err := geo.ParsePolygon(cached.Geometry)
		if err != nil {
			log.Printf("hotspots: skipping cached AOI %s with bad geometry: %v", cached.ID, err)
			continue
		}
		ratio := geo.OverlapRatio(requested, cachedPoly)
		if ratio >= threshold {
			log.Printf("hotspots: cache match %s with %.0f%% overlap", cached.ID, ratio*100)
			return &cached, nil
		}
	}
	return nil, nil
}

// Package population estimates population density for a location.
//
// The current estimator is a deliberate placeholder: the upstream Kontur
// dataset integration never made it past returning a constant, and the score
// weights were tuned against that constant. Swapping in real data changes
// scoring behavior and should be done as its own change, not silently here.
package population

// DefaultDensity is the flat people-per-km² estimate used everywhere.
const DefaultDensity = 5000.0

// Estimator returns a population density in people per square kilometer.
type Estimator interface {
	DensityAt(lat, lng float64) float64
}

// StaticEstimator ignores the location and returns a fixed density.
type StaticEstimator struct {
	Density float64
}

func NewStaticEstimator() *StaticEstimator {
	return &StaticEstimator{Density: DefaultDensity}
}

func (e *StaticEstimator) DensityAt(lat, lng float64) float64 {
	return e.Density
}

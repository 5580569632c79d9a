package scoring

import "math"

// Distance bands per amenity type, in kilometers. Inside the optimal distance
// an amenity fully satisfies its criterion; beyond the acceptable distance it
// contributes nothing. These constants were tuned alongside the model and the
// rule weights, so they change together or not at all.
type distanceBand struct {
	OptimalKm    float64
	AcceptableKm float64
}

var amenityBands = map[string]distanceBand{
	"hospital": {2.0, 10.0},
	"school":   {1.0, 8.0},
	"bus":      {0.5, 3.0},
	"railway":  {2.0, 15.0},
	"mall":     {1.5, 10.0},
	"airport":  {15.0, 45.0},
}

// DefaultDistances substitute for amenity keys the distance collaborator
// failed to populate.
var DefaultDistances = map[string]float64{
	"hospital": 10.0,
	"school":   8.0,
	"bus":      5.0,
	"railway":  15.0,
	"mall":     10.0,
	"airport":  30.0,
}

// AmenityKeys is the fixed amenity key set, in weight order.
var AmenityKeys = []string{"hospital", "school", "bus", "railway", "mall", "airport"}

// Decay maps a distance onto [0,1]: 1.0 up to optimalKm, then a quadratic
// falloff that reaches 0 at acceptableKm. The curve drops slowly near the
// optimal distance and sharply near the acceptable limit.
//
// A band with acceptableKm <= optimalKm is invalid input and scores 0, as do
// NaN and negative distances.
func Decay(distanceKm, optimalKm, acceptableKm float64) float64 {
	if acceptableKm <= optimalKm {
		return 0
	}
	if math.IsNaN(distanceKm) || distanceKm < 0 {
		return 0
	}
	if distanceKm <= optimalKm {
		return 1.0
	}
	if distanceKm <= acceptableKm {
		t := (distanceKm - optimalKm) / (acceptableKm - optimalKm)
		return math.Max(0, 1-t*t)
	}
	return 0
}

// amenityDecay scores one amenity distance against its fixed band, falling
// back to the key's default distance when missing.
func amenityDecay(key string, distances map[string]float64) float64 {
	band := amenityBands[key]
	dist, ok := distances[key]
	if !ok {
		dist = DefaultDistances[key]
	}
	return Decay(dist, band.OptimalKm, band.AcceptableKm)
}

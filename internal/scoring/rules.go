package scoring

import "math"

// Scoring methods, most preferred first. Each tier is the fallback for the one
// above it.
const (
	MethodMLModel   = "ml_model"
	MethodRuleBased = "rule_based_fallback"
	MethodError     = "error"
)

// Result is the uniform shape every scoring tier returns.
type Result struct {
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Method     string             `json:"method"`
	Breakdown  map[string]float64 `json:"breakdown"`
	ModelType  string             `json:"model_type,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Component weights of the rule-based composite. They sum to exactly 1.00.
const (
	weightAQI        = 0.25 // environmental quality
	weightPopulation = 0.20
	weightHospital   = 0.15
	weightSchool     = 0.15
	weightBus        = 0.10
	weightRailway    = 0.05
	weightMall       = 0.08
	weightAirport    = 0.02
)

// aqiSubScore is a step function on the AQI health-category boundaries,
// deliberately discontinuous at 50/100/150/200.
func aqiSubScore(aqi float64) float64 {
	switch {
	case aqi <= 50:
		return 1.0
	case aqi <= 100:
		return 0.8
	case aqi <= 150:
		return 0.5
	case aqi <= 200:
		return 0.3
	default:
		return 0.1
	}
}

// populationSubScore rewards the livable sweet spot between sparse and
// overcrowded. Density is people per square kilometer.
func populationSubScore(density float64) float64 {
	switch {
	case density < 1000:
		return 0.2 // too rural
	case density < 5000:
		return 0.6
	case density < 15000:
		return 1.0
	case density < 25000:
		return 0.8
	default:
		return 0.4 // too crowded
	}
}

// RuleBased computes the weighted composite suitability score without the
// model: AQI and density step scores plus six distance-decay scores. It is
// pure and total; malformed distances score 0 rather than failing.
func RuleBased(aqi, populationDensity float64, distances map[string]float64) Result {
	aqiScore := aqiSubScore(aqi)
	popScore := populationSubScore(populationDensity)

	hospScore := amenityDecay("hospital", distances)
	schoolScore := amenityDecay("school", distances)
	busScore := amenityDecay("bus", distances)
	railScore := amenityDecay("railway", distances)
	mallScore := amenityDecay("mall", distances)
	airportScore := amenityDecay("airport", distances)

	score := aqiScore*weightAQI +
		popScore*weightPopulation +
		hospScore*weightHospital +
		schoolScore*weightSchool +
		busScore*weightBus +
		railScore*weightRailway +
		mallScore*weightMall +
		airportScore*weightAirport

	return Result{
		Score:      round(clamp01(score), 4),
		Confidence: 0.7,
		Method:     MethodRuleBased,
		Breakdown: map[string]float64{
			"aqi_score":        round(aqiScore, 3),
			"population_score": round(popScore, 3),
			"hospital_score":   round(hospScore, 3),
			"school_score":     round(schoolScore, 3),
			"bus_score":        round(busScore, 3),
			"railway_score":    round(railScore, 3),
			"mall_score":       round(mallScore, 3),
			"airport_score":    round(airportScore, 3),
		},
	}
}

// errorResult is the last-resort tier: a neutral score with zero confidence.
func errorResult(err error) Result {
	res := Result{
		Score:      0.5,
		Confidence: 0,
		Method:     MethodError,
		Breakdown:  map[string]float64{},
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}

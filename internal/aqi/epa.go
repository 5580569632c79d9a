package aqi

import "math"

// EPA AQI breakpoints: concentration band to index band, per pollutant.
type breakpoint struct {
	CLow, CHigh float64
	ILow, IHigh float64
}

var aqiBreakpoints = map[string][]breakpoint{
	"pm2_5": {
		{0.0, 12.0, 0, 50}, {12.1, 35.4, 51, 100}, {35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200}, {150.5, 250.4, 201, 300}, {250.5, 500.4, 301, 500},
	},
	"pm10": {
		{0, 54, 0, 50}, {55, 154, 51, 100}, {155, 254, 101, 150},
		{255, 354, 151, 200}, {355, 424, 201, 300}, {425, 604, 301, 500},
	},
	"ozone_8h": {
		{0, 54, 0, 50}, {55, 70, 51, 100}, {71, 85, 101, 150},
		{86, 105, 151, 200}, {106, 200, 201, 300}, {201, 604, 301, 500},
	},
	"no2_1h": {
		{0, 53, 0, 50}, {54, 100, 51, 100}, {101, 360, 101, 150},
		{361, 649, 151, 200}, {650, 1249, 201, 300}, {1250, 2049, 301, 500},
	},
	"so2_1h": {
		{0, 35, 0, 50}, {36, 75, 51, 100}, {76, 185, 101, 150},
		{186, 304, 151, 200}, {305, 604, 201, 300}, {605, 1004, 301, 500},
	},
	"co_8h": {
		{0.0, 4.4, 0, 50}, {4.5, 9.4, 51, 100}, {9.5, 12.4, 101, 150},
		{12.5, 15.4, 151, 200}, {15.5, 30.4, 201, 300}, {30.5, 50.4, 301, 500},
	},
}

// Open-Meteo reports gases in μg/m³; EPA breakpoints want ppb.
func ugm3ToPpbO3(v float64) float64  { return v * 0.5 }
func ugm3ToPpbNO2(v float64) float64 { return v * 0.532 }
func ugm3ToPpbSO2(v float64) float64 { return v * 0.382 }

// Truncation modes per EPA reporting rules.
const (
	truncateNone    = -1
	truncateInteger = 0
	truncateTenth   = 1
)

// pollutantAQI linearly interpolates a concentration into its index band.
// Returns NaN for missing or out-of-range concentrations.
func pollutantAQI(concentration float64, pollutant string, truncate int) float64 {
	if math.IsNaN(concentration) {
		return math.NaN()
	}
	switch truncate {
	case truncateTenth:
		concentration = math.Floor(concentration*10) / 10
	case truncateInteger:
		concentration = math.Floor(concentration)
	}
	for _, bp := range aqiBreakpoints[pollutant] {
		if concentration >= bp.CLow && concentration <= bp.CHigh {
			return (bp.IHigh-bp.ILow)/(bp.CHigh-bp.CLow)*(concentration-bp.CLow) + bp.ILow
		}
	}
	return math.NaN()
}

// rollingMean returns the right-aligned rolling mean over the previous
// `window` samples, requiring at least minPeriods non-NaN values.
func rollingMean(values []float64, window, minPeriods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		var sum float64
		var count int
		for j := start; j <= i; j++ {
			if !math.IsNaN(values[j]) {
				sum += values[j]
				count++
			}
		}
		if count >= minPeriods {
			out[i] = sum / float64(count)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// hourlyIndices holds the per-hour AQI series computed from raw pollutant
// concentrations.
type hourlyIndices struct {
	PM25, PM10, NO2, O3, SO2, CO []float64
	Overall                      []float64
}

// computeIndices runs the full EPA pipeline over hourly concentrations:
// unit conversion, truncation, 8-hour averages for O3 and CO (needing 6 of 8
// samples), per-pollutant sub-indices and the overall hourly AQI (max of
// sub-indices).
func computeIndices(pm25, pm10, no2, o3, so2, co []float64) hourlyIndices {
	n := len(pm25)
	idx := hourlyIndices{
		PM25:    make([]float64, n),
		PM10:    make([]float64, n),
		NO2:     make([]float64, n),
		O3:      make([]float64, n),
		SO2:     make([]float64, n),
		CO:      make([]float64, n),
		Overall: make([]float64, n),
	}

	o3ppb := make([]float64, n)
	for i := range o3 {
		o3ppb[i] = applyNaN(o3[i], ugm3ToPpbO3)
	}
	o3avg := rollingMean(o3ppb, 8, 6)
	coAvg := rollingMean(co, 8, 6)

	for i := 0; i < n; i++ {
		idx.PM25[i] = pollutantAQI(pm25[i], "pm2_5", truncateTenth)
		idx.PM10[i] = pollutantAQI(pm10[i], "pm10", truncateInteger)
		idx.NO2[i] = pollutantAQI(applyNaN(no2[i], ugm3ToPpbNO2), "no2_1h", truncateInteger)
		idx.SO2[i] = pollutantAQI(applyNaN(so2[i], ugm3ToPpbSO2), "so2_1h", truncateInteger)

		o3c := o3avg[i]
		if !math.IsNaN(o3c) {
			o3c = math.Floor(o3c)
		}
		idx.O3[i] = pollutantAQI(o3c, "ozone_8h", truncateInteger)

		coc := coAvg[i]
		if !math.IsNaN(coc) {
			coc = math.Floor(coc*10) / 10
		}
		idx.CO[i] = pollutantAQI(coc, "co_8h", truncateTenth)

		idx.Overall[i] = nanMax(idx.PM25[i], idx.PM10[i], idx.NO2[i], idx.O3[i], idx.SO2[i], idx.CO[i])
	}
	return idx
}

func applyNaN(v float64, f func(float64) float64) float64 {
	if math.IsNaN(v) {
		return math.NaN()
	}
	return f(v)
}

// nanMax ignores NaN values; all-NaN input yields NaN.
func nanMax(values ...float64) float64 {
	max := math.NaN()
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(max) || v > max {
			max = v
		}
	}
	return max
}

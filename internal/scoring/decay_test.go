package scoring

import (
	"math"
	"testing"
)

func TestDecay(t *testing.T) {
	tests := []struct {
		name       string
		distance   float64
		optimal    float64
		acceptable float64
		want       float64
	}{
		{"well inside optimal", 0.5, 2, 10, 1.0},
		{"exactly at optimal", 2, 2, 10, 1.0},
		{"midpoint of band", 6, 2, 10, 0.75},
		{"exactly at acceptable", 10, 2, 10, 0.0},
		{"beyond acceptable", 12, 2, 10, 0.0},
		{"zero distance", 0, 2, 10, 1.0},
		{"negative distance", -1, 2, 10, 0.0},
		{"NaN distance", math.NaN(), 2, 10, 0.0},
		{"inverted band", 5, 10, 2, 0.0},
		{"degenerate band", 5, 10, 10, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decay(tt.distance, tt.optimal, tt.acceptable)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Decay(%v, %v, %v) = %v, want %v", tt.distance, tt.optimal, tt.acceptable, got, tt.want)
			}
		})
	}
}

func TestDecay_QuadraticShape(t *testing.T) {
	// The falloff should be slow near the optimal distance and steep near the
	// acceptable limit.
	nearOptimal := Decay(3, 2, 10)
	nearLimit := Decay(9, 2, 10)
	if nearOptimal <= 0.9 {
		t.Errorf("Decay near optimal = %v, want > 0.9", nearOptimal)
	}
	if nearLimit >= 0.3 {
		t.Errorf("Decay near acceptable limit = %v, want < 0.3", nearLimit)
	}
	// Monotonic across the band.
	prev := 1.0
	for d := 2.0; d <= 10; d += 0.5 {
		v := Decay(d, 2, 10)
		if v > prev {
			t.Fatalf("Decay not monotonic at %v: %v > %v", d, v, prev)
		}
		prev = v
	}
}

func TestAmenityDecay_Defaults(t *testing.T) {
	// Missing keys fall back to the fixed default distances.
	got := amenityDecay("airport", map[string]float64{})
	want := Decay(30, 15, 45)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("amenityDecay(airport, empty) = %v, want %v", got, want)
	}

	got = amenityDecay("hospital", map[string]float64{"hospital": 1.0})
	if got != 1.0 {
		t.Errorf("amenityDecay(hospital, 1km) = %v, want 1.0", got)
	}
}

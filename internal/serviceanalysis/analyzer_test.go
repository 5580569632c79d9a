package serviceanalysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/threshold-urban/threshold/internal/models"
)

type fakeSource struct {
	locations map[ServiceType][][2]float64
	err       error
}

func (f *fakeSource) Locations(ctx context.Context, serviceType ServiceType, bounds models.Bounds) ([][2]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.locations[serviceType], nil
}

func testBounds() models.Bounds {
	// Roughly 11km x 11km.
	return models.Bounds{MinLng: 77.5, MaxLng: 77.6, MinLat: 12.9, MaxLat: 13.0}
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{
			name: "valid",
			req:  Request{Bounds: testBounds(), ServiceTypes: []ServiceType{ServiceParks}, GridResolution: 2},
		},
		{
			name:    "no service types",
			req:     Request{Bounds: testBounds(), GridResolution: 2},
			wantErr: true,
		},
		{
			name:    "unknown service type",
			req:     Request{Bounds: testBounds(), ServiceTypes: []ServiceType{"schools"}, GridResolution: 2},
			wantErr: true,
		},
		{
			name:    "resolution too fine",
			req:     Request{Bounds: testBounds(), ServiceTypes: []ServiceType{ServiceParks}, GridResolution: 0.1},
			wantErr: true,
		},
		{
			name:    "resolution too coarse",
			req:     Request{Bounds: testBounds(), ServiceTypes: []ServiceType{ServiceParks}, GridResolution: 11},
			wantErr: true,
		},
		{
			name: "inverted bounds",
			req: Request{
				Bounds:         models.Bounds{MinLng: 77.6, MaxLng: 77.5, MinLat: 12.9, MaxLat: 13.0},
				ServiceTypes:   []ServiceType{ServiceParks},
				GridResolution: 2,
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRequestValidate_DefaultResolution(t *testing.T) {
	req := Request{Bounds: testBounds(), ServiceTypes: []ServiceType{ServiceParks}}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if req.GridResolution != DefaultGridResolution {
		t.Errorf("GridResolution = %v, want %v", req.GridResolution, DefaultGridResolution)
	}
}

func TestGridPoints(t *testing.T) {
	points := gridPoints(testBounds(), 2)
	if len(points) == 0 {
		t.Fatal("no grid points generated")
	}
	// 11km at 2km resolution gives 6 rows; columns widen slightly with the
	// cosine correction but stay at 6 for this latitude.
	if len(points) < 25 || len(points) > 49 {
		t.Errorf("len(points) = %d, want a 6x6-ish grid", len(points))
	}
	for _, p := range points {
		if p[0] < 12.9 || p[0] > 13.0 || p[1] < 77.5 || p[1] > 77.6 {
			t.Errorf("point %v outside bounds", p)
		}
	}
}

func TestNeedLevel(t *testing.T) {
	tests := []struct {
		serviceType ServiceType
		distance    float64
		want        NeedLevel
	}{
		{ServiceParks, 1, NeedLow},
		{ServiceParks, 5, NeedLow},
		{ServiceParks, 6, NeedMedium},
		{ServiceParks, 10, NeedMedium},
		{ServiceParks, 11, NeedHigh},
		{ServiceTransport, 3, NeedLow},
		{ServiceTransport, 4, NeedMedium},
		{ServiceTransport, 6, NeedHigh},
		{ServiceHealthcare, 20, NeedMedium},
		{ServiceHealthcare, 26, NeedHigh},
		{ServiceFood, 8, NeedLow},
		{ServiceFood, 16, NeedHigh},
	}
	for _, tt := range tests {
		if got := needLevel(tt.distance, tt.serviceType); got != tt.want {
			t.Errorf("needLevel(%v, %s) = %s, want %s", tt.distance, tt.serviceType, got, tt.want)
		}
	}
}

func TestAnalyze_WithServices(t *testing.T) {
	source := &fakeSource{locations: map[ServiceType][][2]float64{
		// One park at the center of the AOI: most points are within the
		// 5km fair threshold, so few or no gaps.
		ServiceParks: {{12.95, 77.55}},
	}}
	analyzer := NewAnalyzer(source)

	resp, err := analyzer.Analyze(context.Background(), Request{
		Bounds:         testBounds(),
		ServiceTypes:   []ServiceType{ServiceParks},
		GridResolution: 2,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false")
	}
	if resp.DataSource != "OpenStreetMap" {
		t.Errorf("DataSource = %q", resp.DataSource)
	}

	summary := resp.AnalysisSummary[ServiceParks]
	if summary.TotalGaps != len(resp.ServiceGaps[ServiceParks]) {
		t.Errorf("summary gaps = %d, gap list = %d", summary.TotalGaps, len(resp.ServiceGaps[ServiceParks]))
	}
	// Low-need points are not reported as gaps.
	for _, gap := range resp.ServiceGaps[ServiceParks] {
		if gap.NeedLevel == NeedLow {
			t.Errorf("gap at %v,%v has low need", gap.CenterLat, gap.CenterLng)
		}
		if gap.Recommendation == "" {
			t.Error("gap missing recommendation")
		}
	}
}

func TestAnalyze_NoServicesMeansAllHighNeed(t *testing.T) {
	analyzer := NewAnalyzer(&fakeSource{})

	resp, err := analyzer.Analyze(context.Background(), Request{
		Bounds:         testBounds(),
		ServiceTypes:   []ServiceType{ServiceHealthcare},
		GridResolution: 2,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	gaps := resp.ServiceGaps[ServiceHealthcare]
	if len(gaps) == 0 {
		t.Fatal("no gaps reported with zero service locations")
	}
	for _, gap := range gaps {
		if gap.NeedLevel != NeedHigh {
			t.Errorf("need = %s, want high", gap.NeedLevel)
		}
		if gap.DistanceToNearest != noServiceDistance {
			t.Errorf("distance = %v, want %v", gap.DistanceToNearest, noServiceDistance)
		}
	}
	summary := resp.AnalysisSummary[ServiceHealthcare]
	if summary.HighPriority != len(gaps) {
		t.Errorf("HighPriority = %d, want %d", summary.HighPriority, len(gaps))
	}
	if math.Abs(summary.AvgDistance-noServiceDistance) > 1e-9 {
		t.Errorf("AvgDistance = %v, want %v", summary.AvgDistance, noServiceDistance)
	}
}

func TestAnalyze_SourceFailureStillSucceeds(t *testing.T) {
	analyzer := NewAnalyzer(&fakeSource{err: errors.New("overpass down")})

	resp, err := analyzer.Analyze(context.Background(), Request{
		Bounds:         testBounds(),
		ServiceTypes:   []ServiceType{ServiceTransport},
		GridResolution: 2,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false after source failure")
	}
	for _, gap := range resp.ServiceGaps[ServiceTransport] {
		if gap.NeedLevel != NeedHigh {
			t.Errorf("need = %s, want high after source failure", gap.NeedLevel)
		}
	}
}

func TestAnalyze_InvalidRequest(t *testing.T) {
	analyzer := NewAnalyzer(&fakeSource{})
	if _, err := analyzer.Analyze(context.Background(), Request{Bounds: testBounds()}); err == nil {
		t.Error("Analyze without service types succeeded, want error")
	}
}

func TestAnalyze_TotalsAcrossTypes(t *testing.T) {
	analyzer := NewAnalyzer(&fakeSource{})

	resp, err := analyzer.Analyze(context.Background(), Request{
		Bounds:         testBounds(),
		ServiceTypes:   []ServiceType{ServiceParks, ServiceFood},
		GridResolution: 2,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := len(resp.ServiceGaps[ServiceParks]) + len(resp.ServiceGaps[ServiceFood])
	if resp.TotalServiceGaps != want {
		t.Errorf("TotalServiceGaps = %d, want %d", resp.TotalServiceGaps, want)
	}
}

package landcover

import (
	"context"
	"testing"

	"github.com/paulmach/orb"

	"github.com/threshold-urban/threshold/internal/models"
)

func testAOI() (models.Bounds, orb.Polygon) {
	bounds := models.Bounds{MinLng: 77.5, MaxLng: 77.7, MinLat: 12.9, MaxLat: 13.1}
	poly := orb.Polygon{orb.Ring{
		{77.5, 12.9}, {77.7, 12.9}, {77.7, 13.1}, {77.5, 13.1}, {77.5, 12.9},
	}}
	return bounds, poly
}

func TestSyntheticProvider_Deterministic(t *testing.T) {
	provider := NewSyntheticProvider()
	bounds, aoi := testAOI()

	first, err := provider.VacantParcels(context.Background(), bounds, aoi)
	if err != nil {
		t.Fatalf("VacantParcels: %v", err)
	}
	second, err := provider.VacantParcels(context.Background(), bounds, aoi)
	if err != nil {
		t.Fatalf("VacantParcels: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].AreaHa != second[i].AreaHa {
			t.Errorf("parcel %d area differs: %v vs %v", i, first[i].AreaHa, second[i].AreaHa)
		}
		if first[i].Centroid != second[i].Centroid {
			t.Errorf("parcel %d centroid differs: %v vs %v", i, first[i].Centroid, second[i].Centroid)
		}
	}
}

func TestSyntheticProvider_DifferentAOIsDiffer(t *testing.T) {
	provider := NewSyntheticProvider()
	bounds, aoi := testAOI()

	shifted := orb.Polygon{orb.Ring{
		{10.0, 50.0}, {10.2, 50.0}, {10.2, 50.2}, {10.0, 50.2}, {10.0, 50.0},
	}}
	shiftedBounds := models.Bounds{MinLng: 10.0, MaxLng: 10.2, MinLat: 50.0, MaxLat: 50.2}

	a, _ := provider.VacantParcels(context.Background(), bounds, aoi)
	b, _ := provider.VacantParcels(context.Background(), shiftedBounds, shifted)

	if len(a) > 0 && len(b) > 0 && a[0].Centroid == b[0].Centroid {
		t.Error("different AOIs produced identical parcels")
	}
}

func TestSyntheticProvider_ParcelProperties(t *testing.T) {
	provider := NewSyntheticProvider()
	bounds, aoi := testAOI()

	parcels, err := provider.VacantParcels(context.Background(), bounds, aoi)
	if err != nil {
		t.Fatalf("VacantParcels: %v", err)
	}
	if len(parcels) == 0 {
		t.Fatal("no parcels generated for a full-bounds AOI")
	}
	if len(parcels) > 8 {
		t.Errorf("len(parcels) = %d, want at most 8", len(parcels))
	}

	for i, p := range parcels {
		if p.LandcoverClass != ClassBare {
			t.Errorf("parcel %d class = %d, want %d", i, p.LandcoverClass, ClassBare)
		}
		if p.DataSource != DataSourceSynthetic {
			t.Errorf("parcel %d source = %q, want %q", i, p.DataSource, DataSourceSynthetic)
		}
		if p.AreaHa < 0.5 || p.AreaHa > 8 {
			t.Errorf("parcel %d area = %v, want within [0.5, 8]", i, p.AreaHa)
		}
		if len(p.Geometry) == 0 || !p.Geometry[0].Closed() {
			t.Errorf("parcel %d ring not closed", i)
		}
		// The centroid of an irregular ring can drift slightly past its
		// generation point, so allow a small margin around the bounds.
		const margin = 0.01
		if p.Centroid[0] < bounds.MinLng-margin || p.Centroid[0] > bounds.MaxLng+margin ||
			p.Centroid[1] < bounds.MinLat-margin || p.Centroid[1] > bounds.MaxLat+margin {
			t.Errorf("parcel %d centroid %v outside the AOI bounds", i, p.Centroid)
		}
	}
}

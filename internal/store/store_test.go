package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/threshold-urban/threshold/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testGeometry() models.GeoJSONGeometry {
	return models.GeoJSONGeometry{
		Type: "Polygon",
		Coordinates: [][][2]float64{{
			{77.5, 12.9}, {77.6, 12.9}, {77.6, 13.0}, {77.5, 13.0}, {77.5, 12.9},
		}},
	}
}

func testAOI(id string, date time.Time) models.AOICache {
	return models.AOICache{
		ID:             id,
		Geometry:       testGeometry(),
		Bounds:         models.Bounds{MinLng: 77.5, MaxLng: 77.6, MinLat: 12.9, MaxLat: 13.0},
		AnalysisDate:   date,
		ProcessingTime: 1.5,
		TotalAreaHa:    123.4,
	}
}

func TestInsertAndFindAOI(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	if err := store.InsertAOICache(testAOI("aoi-1", now)); err != nil {
		t.Fatalf("InsertAOICache: %v", err)
	}

	since := now.AddDate(0, 0, -30)
	found, err := store.FindIntersectingAOIs(models.Bounds{MinLng: 77.55, MaxLng: 77.65, MinLat: 12.95, MaxLat: 13.05}, since)
	if err != nil {
		t.Fatalf("FindIntersectingAOIs: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("len(found) = %d, want 1", len(found))
	}
	if found[0].ID != "aoi-1" {
		t.Errorf("ID = %q, want aoi-1", found[0].ID)
	}
	if found[0].Geometry.Type != "Polygon" {
		t.Errorf("Geometry.Type = %q, want Polygon", found[0].Geometry.Type)
	}
	if found[0].TotalAreaHa != 123.4 {
		t.Errorf("TotalAreaHa = %v, want 123.4", found[0].TotalAreaHa)
	}
}

func TestFindIntersectingAOIs_NoBBoxOverlap(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	if err := store.InsertAOICache(testAOI("aoi-1", now)); err != nil {
		t.Fatalf("InsertAOICache: %v", err)
	}

	// Far away bounds.
	found, err := store.FindIntersectingAOIs(models.Bounds{MinLng: 10, MaxLng: 11, MinLat: 50, MaxLat: 51}, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("FindIntersectingAOIs: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("len(found) = %d, want 0", len(found))
	}
}

func TestFindIntersectingAOIs_RecencyCutoff(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	if err := store.InsertAOICache(testAOI("fresh", now.AddDate(0, 0, -5))); err != nil {
		t.Fatalf("insert fresh: %v", err)
	}
	if err := store.InsertAOICache(testAOI("stale", now.AddDate(0, 0, -45))); err != nil {
		t.Fatalf("insert stale: %v", err)
	}

	bounds := models.Bounds{MinLng: 77.5, MaxLng: 77.6, MinLat: 12.9, MaxLat: 13.0}
	found, err := store.FindIntersectingAOIs(bounds, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("FindIntersectingAOIs: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("len(found) = %d, want only the fresh record", len(found))
	}
	if found[0].ID != "fresh" {
		t.Errorf("ID = %q, want fresh", found[0].ID)
	}
}

func TestFindIntersectingAOIs_OrderedByDate(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	if err := store.InsertAOICache(testAOI("newer", now.AddDate(0, 0, -1))); err != nil {
		t.Fatalf("insert newer: %v", err)
	}
	if err := store.InsertAOICache(testAOI("older", now.AddDate(0, 0, -10))); err != nil {
		t.Fatalf("insert older: %v", err)
	}

	bounds := models.Bounds{MinLng: 77.5, MaxLng: 77.6, MinLat: 12.9, MaxLat: 13.0}
	found, err := store.FindIntersectingAOIs(bounds, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("FindIntersectingAOIs: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("len(found) = %d, want 2", len(found))
	}
	if found[0].ID != "older" || found[1].ID != "newer" {
		t.Errorf("order = [%s, %s], want [older, newer]", found[0].ID, found[1].ID)
	}
}

func TestInsertAndGetAnalysis(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	if err := store.InsertAOICache(testAOI("aoi-1", now)); err != nil {
		t.Fatalf("InsertAOICache: %v", err)
	}

	density := 5000.0
	analysis := models.VacantLandAnalysis{
		ID:         "an-1",
		AOICacheID: "aoi-1",
		VacantPolygons: []models.VacantLandPolygon{
			{
				ID:                "p-1",
				Geometry:          testGeometry(),
				AreaHa:            2.5,
				HotspotScore:      71.3,
				LandcoverClass:    60,
				Centroid:          [2]float64{77.55, 12.95},
				PopulationDensity: &density,
				ScoringMethod:     "rule_based_fallback",
			},
		},
		SummaryStats: models.SummaryStats{PolygonCount: 1, TotalAreaHa: 2.5, AvgScore: 71.3},
		DataSources:  map[string]string{"satellite": "synthetic_fallback"},
	}
	if err := store.InsertAnalysis(analysis); err != nil {
		t.Fatalf("InsertAnalysis: %v", err)
	}

	got, err := store.GetAnalysisByAOI("aoi-1")
	if err != nil {
		t.Fatalf("GetAnalysisByAOI: %v", err)
	}
	if got == nil {
		t.Fatal("GetAnalysisByAOI returned nil")
	}
	if len(got.VacantPolygons) != 1 {
		t.Fatalf("len(VacantPolygons) = %d, want 1", len(got.VacantPolygons))
	}
	p := got.VacantPolygons[0]
	if p.HotspotScore != 71.3 {
		t.Errorf("HotspotScore = %v, want 71.3", p.HotspotScore)
	}
	if p.PopulationDensity == nil || *p.PopulationDensity != 5000 {
		t.Errorf("PopulationDensity = %v, want 5000", p.PopulationDensity)
	}
	if got.AnalysisVersion != "1.0" {
		t.Errorf("AnalysisVersion = %q, want 1.0", got.AnalysisVersion)
	}
	if got.DataSources["satellite"] != "synthetic_fallback" {
		t.Errorf("DataSources = %v", got.DataSources)
	}
}

func TestGetAnalysisByAOI_Missing(t *testing.T) {
	store := setupTestStore(t)
	got, err := store.GetAnalysisByAOI("nope")
	if err != nil {
		t.Fatalf("GetAnalysisByAOI: %v", err)
	}
	if got != nil {
		t.Errorf("got = %+v, want nil", got)
	}
}

func TestStatistics(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	stats, err := store.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalCachedAOIs != 0 || stats.TotalAnalyses != 0 {
		t.Errorf("empty stats = %+v", stats)
	}
	if !stats.CacheEnabled {
		t.Error("CacheEnabled = false, want true")
	}

	if err := store.InsertAOICache(testAOI("recent", now.AddDate(0, 0, -2))); err != nil {
		t.Fatalf("insert recent: %v", err)
	}
	if err := store.InsertAOICache(testAOI("old", now.AddDate(0, 0, -20))); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if err := store.InsertAnalysis(models.VacantLandAnalysis{ID: "an-1", AOICacheID: "recent"}); err != nil {
		t.Fatalf("insert analysis: %v", err)
	}

	stats, err = store.Statistics()
	if err != nil {
		t.Fatalf("Statistics: %v", err)
	}
	if stats.TotalCachedAOIs != 2 {
		t.Errorf("TotalCachedAOIs = %d, want 2", stats.TotalCachedAOIs)
	}
	if stats.TotalAnalyses != 1 {
		t.Errorf("TotalAnalyses = %d, want 1", stats.TotalAnalyses)
	}
	if stats.RecentAnalyses7d != 1 {
		t.Errorf("RecentAnalyses7d = %d, want 1", stats.RecentAnalyses7d)
	}
}

func TestInsertAOICache_DuplicateID(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now().UTC()

	if err := store.InsertAOICache(testAOI("dup", now)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.InsertAOICache(testAOI("dup", now)); err == nil {
		t.Error("duplicate insert succeeded, want primary key error")
	}
}

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/threshold-urban/threshold/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InsertAOICache records a newly analyzed AOI. Records are never updated or
// deleted; concurrent requests may insert overlapping AOIs and both are kept.
func (s *Store) InsertAOICache(aoi models.AOICache) error {
	geomJSON, err := json.Marshal(aoi.Geometry)
	if err != nil {
		return fmt.Errorf("marshal geometry: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO aoi_cache (id, geometry_json, min_lng, max_lng, min_lat, max_lat, analysis_date, processing_time, total_area_ha)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, aoi.ID, string(geomJSON), aoi.Bounds.MinLng, aoi.Bounds.MaxLng, aoi.Bounds.MinLat, aoi.Bounds.MaxLat,
		aoi.AnalysisDate.UTC(), aoi.ProcessingTime, aoi.TotalAreaHa)
	return err
}

// FindIntersectingAOIs is the coarse candidate filter for overlap matching:
// bounding boxes must intersect and the analysis must be newer than the
// cutoff. The exact overlap-ratio check happens in the caller.
func (s *Store) FindIntersectingAOIs(b models.Bounds, since time.Time) ([]models.AOICache, error) {
	rows, err := s.db.Query(`
		SELECT id, geometry_json, min_lng, max_lng, min_lat, max_lat, analysis_date, processing_time, total_area_ha
		FROM aoi_cache
		WHERE min_lng <= ? AND max_lng >= ?
		  AND min_lat <= ? AND max_lat >= ?
		  AND analysis_date >= ?
		ORDER BY analysis_date
	`, b.MaxLng, b.MinLng, b.MaxLat, b.MinLat, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.AOICache
	for rows.Next() {
		var aoi models.AOICache
		var geomJSON string
		if err := rows.Scan(&aoi.ID, &geomJSON, &aoi.Bounds.MinLng, &aoi.Bounds.MaxLng,
			&aoi.Bounds.MinLat, &aoi.Bounds.MaxLat, &aoi.AnalysisDate, &aoi.ProcessingTime, &aoi.TotalAreaHa); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(geomJSON), &aoi.Geometry); err != nil {
			return nil, fmt.Errorf("unmarshal geometry for %s: %w", aoi.ID, err)
		}
		results = append(results, aoi)
	}
	return results, rows.Err()
}

// InsertAnalysis stores the scored parcel set for a cached AOI.
func (s *Store) InsertAnalysis(a models.VacantLandAnalysis) error {
	polygonsJSON, err := json.Marshal(a.VacantPolygons)
	if err != nil {
		return fmt.Errorf("marshal polygons: %w", err)
	}
	summaryJSON, err := json.Marshal(a.SummaryStats)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	sourcesJSON, err := json.Marshal(a.DataSources)
	if err != nil {
		return fmt.Errorf("marshal data sources: %w", err)
	}
	version := a.AnalysisVersion
	if version == "" {
		version = "1.0"
	}
	_, err = s.db.Exec(`
		INSERT INTO vacant_land_analysis (id, aoi_cache_id, polygons_json, summary_json, data_sources_json, analysis_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.AOICacheID, string(polygonsJSON), string(summaryJSON), string(sourcesJSON), version)
	return err
}

// GetAnalysisByAOI returns the stored analysis for an AOI cache entry, or nil
// when none exists.
func (s *Store) GetAnalysisByAOI(aoiCacheID string) (*models.VacantLandAnalysis, error) {
	row := s.db.QueryRow(`
		SELECT id, aoi_cache_id, polygons_json, summary_json, data_sources_json, analysis_version
		FROM vacant_land_analysis
		WHERE aoi_cache_id = ?
		LIMIT 1
	`, aoiCacheID)

	var a models.VacantLandAnalysis
	var polygonsJSON, summaryJSON, sourcesJSON string
	err := row.Scan(&a.ID, &a.AOICacheID, &polygonsJSON, &summaryJSON, &sourcesJSON, &a.AnalysisVersion)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(polygonsJSON), &a.VacantPolygons); err != nil {
		return nil, fmt.Errorf("unmarshal polygons: %w", err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &a.SummaryStats); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &a.DataSources); err != nil {
		return nil, fmt.Errorf("unmarshal data sources: %w", err)
	}
	return &a, nil
}

// Statistics summarizes the cache for the stats endpoint.
func (s *Store) Statistics() (models.CacheStatistics, error) {
	stats := models.CacheStatistics{CacheEnabled: true}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM aoi_cache`).Scan(&stats.TotalCachedAOIs); err != nil {
		return models.CacheStatistics{CacheEnabled: false, Error: err.Error()}, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM vacant_land_analysis`).Scan(&stats.TotalAnalyses); err != nil {
		return models.CacheStatistics{CacheEnabled: false, Error: err.Error()}, err
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -7)
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM aoi_cache WHERE analysis_date >= ?`, cutoff).Scan(&stats.RecentAnalyses7d); err != nil {
		return models.CacheStatistics{CacheEnabled: false, Error: err.Error()}, err
	}
	return stats, nil
}

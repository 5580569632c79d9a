package store

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS aoi_cache (
		id TEXT PRIMARY KEY,
		geometry_json TEXT NOT NULL,
		min_lng REAL NOT NULL,
		max_lng REAL NOT NULL,
		min_lat REAL NOT NULL,
		max_lat REAL NOT NULL,
		analysis_date TIMESTAMP NOT NULL,
		processing_time REAL NOT NULL DEFAULT 0,
		total_area_ha REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_aoi_cache_bounds
		ON aoi_cache (min_lng, max_lng, min_lat, max_lat)`,
	`CREATE INDEX IF NOT EXISTS idx_aoi_cache_date
		ON aoi_cache (analysis_date)`,
	`CREATE TABLE IF NOT EXISTS vacant_land_analysis (
		id TEXT PRIMARY KEY,
		aoi_cache_id TEXT NOT NULL REFERENCES aoi_cache(id),
		polygons_json TEXT NOT NULL,
		summary_json TEXT NOT NULL,
		data_sources_json TEXT NOT NULL,
		analysis_version TEXT NOT NULL DEFAULT '1.0',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vacant_land_analysis_aoi
		ON vacant_land_analysis (aoi_cache_id)`,
}

// Migrate applies all schema statements. Statements are idempotent, so
// re-running on startup is safe.
func (s *Store) Migrate() error {
	for _, stmt := range migrations {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

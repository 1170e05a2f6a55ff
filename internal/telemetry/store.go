package telemetry

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteMetricsStore implements MetricsStore using SQLite.
type SQLiteMetricsStore struct {
	db *sql.DB
}

// OpenSQLiteMetricsStore opens (or creates) the metrics database at
// path and ensures the schema exists.
func OpenSQLiteMetricsStore(path string) (*SQLiteMetricsStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metrics db: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS search_mode_stats (
		date TEXT NOT NULL,
		mode TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, mode)
	);

	CREATE TABLE IF NOT EXISTS search_latency_stats (
		date TEXT NOT NULL,
		bucket TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (date, bucket)
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create metrics schema: %w", err)
	}
	return &SQLiteMetricsStore{db: db}, nil
}

// SaveModeCounts upserts daily per-mode search counts.
func (s *SQLiteMetricsStore) SaveModeCounts(date string, counts map[string]int64) error {
	return s.upsertCounts(`
		INSERT INTO search_mode_stats (date, mode, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, mode) DO UPDATE SET count = count + excluded.count
	`, date, counts)
}

// GetModeCounts retrieves per-mode counts for a date range.
func (s *SQLiteMetricsStore) GetModeCounts(from, to string) (map[string]int64, error) {
	rows, err := s.db.Query(`
		SELECT mode, SUM(count) as total
		FROM search_mode_stats
		WHERE date >= ? AND date <= ?
		GROUP BY mode
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query mode counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var mode string
		var count int64
		if err := rows.Scan(&mode, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[mode] = count
	}
	return counts, rows.Err()
}

// SaveLatencyCounts upserts daily latency histogram counts.
func (s *SQLiteMetricsStore) SaveLatencyCounts(date string, counts map[LatencyBucket]int64) error {
	plain := make(map[string]int64, len(counts))
	for bucket, count := range counts {
		plain[string(bucket)] = count
	}
	return s.upsertCounts(`
		INSERT INTO search_latency_stats (date, bucket, count)
		VALUES (?, ?, ?)
		ON CONFLICT(date, bucket) DO UPDATE SET count = count + excluded.count
	`, date, plain)
}

// GetLatencyCounts retrieves the latency distribution for a range.
func (s *SQLiteMetricsStore) GetLatencyCounts(from, to string) (map[LatencyBucket]int64, error) {
	rows, err := s.db.Query(`
		SELECT bucket, SUM(count) as total
		FROM search_latency_stats
		WHERE date >= ? AND date <= ?
		GROUP BY bucket
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query latency counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[LatencyBucket]int64)
	for rows.Next() {
		var bucket string
		var count int64
		if err := rows.Scan(&bucket, &count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		counts[LatencyBucket(bucket)] = count
	}
	return counts, rows.Err()
}

func (s *SQLiteMetricsStore) upsertCounts(query, date string, counts map[string]int64) error {
	if len(counts) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("prepare statement: %w", err)
	}
	defer stmt.Close()

	for key, count := range counts {
		if _, err := stmt.Exec(date, key, count); err != nil {
			return fmt.Errorf("upsert count: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteMetricsStore) Close() error {
	return s.db.Close()
}

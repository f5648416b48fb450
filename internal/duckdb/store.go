// Package duckdb caches normalized variants in DuckDB.
// Results are keyed by the input record (chrom, pos, ref, alt) and are tied
// to the reference FASTA they were computed against.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection for caching normalized variants.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS normalized_variants (
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		norm_start BIGINT,
		norm_end BIGINT,
		norm_allele VARCHAR,
		norm_pos BIGINT,
		norm_ref VARCHAR,
		norm_alt VARCHAR,
		shifted BOOLEAN,
		PRIMARY KEY (chrom, pos, ref, alt)
	)`); err != nil {
		return err
	}

	// Appender target for WriteResults; rows are merged into
	// normalized_variants and then removed.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS normalized_staging AS
		SELECT * FROM normalized_variants LIMIT 0`); err != nil {
		return err
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS reference_metadata (
		path VARCHAR,
		size BIGINT,
		mod_time_ns BIGINT
	)`)
	return err
}

package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-norm/internal/normalize"
	"github.com/inodb/vibe-norm/internal/pipeline"
	"github.com/inodb/vibe-norm/internal/vcf"
)

var _ pipeline.ResultCache = (*Store)(nil)

// resultKey is the composite key for deduplicating results before writing.
type resultKey struct {
	chrom, ref, alt string
	pos             int64
}

const resultColumns = `chrom, pos, ref, alt,
	norm_start, norm_end, norm_allele,
	norm_pos, norm_ref, norm_alt, shifted`

// WriteResults batch-inserts normalized results using the Appender API.
// Rows go through a staging table so keys already present in the cache are
// skipped rather than failing the batch.
func (s *Store) WriteResults(results []*pipeline.Result) error {
	if len(results) == 0 {
		return nil
	}

	seen := make(map[resultKey]bool, len(results))
	deduped := make([]*pipeline.Result, 0, len(results))
	for _, r := range results {
		v := r.Variant
		k := resultKey{v.Chrom, v.Ref, v.Alt, v.Pos}
		if !seen[k] {
			seen[k] = true
			deduped = append(deduped, r)
		}
	}

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `DELETE FROM normalized_staging`); err != nil {
		return fmt.Errorf("clear staging table: %w", err)
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "normalized_staging")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, r := range deduped {
		v := r.Variant
		if err := appender.AppendRow(
			v.Chrom, v.Pos, v.Ref, v.Alt,
			int64(r.Interval.Start), int64(r.Interval.End), r.Allele,
			r.Pos, r.Ref, r.Alt, r.Shifted,
		); err != nil {
			appender.Close()
			return fmt.Errorf("append normalized variant: %w", err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush appender: %w", err)
	}

	if _, err := conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO normalized_variants SELECT * FROM normalized_staging`); err != nil {
		return fmt.Errorf("merge staged results: %w", err)
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM normalized_staging`); err != nil {
		return fmt.Errorf("clear staging table: %w", err)
	}
	return nil
}

// Lookup returns the cached result for an input record. The returned
// result's Variant is left nil for the caller to fill in.
func (s *Store) Lookup(chrom string, pos int64, ref, alt string) (*pipeline.Result, bool, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM normalized_variants
		WHERE chrom=? AND pos=? AND ref=? AND alt=?`,
		chrom, pos, ref, alt)
	if err != nil {
		return nil, false, fmt.Errorf("query normalized variant: %w", err)
	}
	defer rows.Close()

	results, err := scanResults(rows)
	if err != nil {
		return nil, false, err
	}
	if len(results) == 0 {
		return nil, false, nil
	}
	r := results[0]
	r.Variant = nil
	return r, true, nil
}

// SearchByChrom returns all cached results on a chromosome ordered by position.
func (s *Store) SearchByChrom(chrom string) ([]*pipeline.Result, error) {
	rows, err := s.db.Query(`SELECT `+resultColumns+`
		FROM normalized_variants
		WHERE chrom=?
		ORDER BY pos, ref, alt`, chrom)
	if err != nil {
		return nil, fmt.Errorf("query by chrom: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// ResultCount returns the number of cached results.
func (s *Store) ResultCount() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM normalized_variants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count normalized variants: %w", err)
	}
	return n, nil
}

// ClearResults removes all cached results.
func (s *Store) ClearResults() error {
	_, err := s.db.Exec("DELETE FROM normalized_variants")
	return err
}

// scanResults scans rows selected with resultColumns.
func scanResults(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*pipeline.Result, error) {
	var results []*pipeline.Result
	for rows.Next() {
		var v vcf.Variant
		var r pipeline.Result
		var start, end int64

		if err := rows.Scan(
			&v.Chrom, &v.Pos, &v.Ref, &v.Alt,
			&start, &end, &r.Allele,
			&r.Pos, &r.Ref, &r.Alt, &r.Shifted,
		); err != nil {
			return nil, fmt.Errorf("scan normalized variant: %w", err)
		}

		r.Variant = &v
		r.Interval = normalize.Interval{Start: int(start), End: int(end)}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate normalized variants: %w", err)
	}
	return results, nil
}

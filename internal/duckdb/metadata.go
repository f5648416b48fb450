package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
// The path is made absolute so the same file reached through different
// relative paths has one fingerprint.
func StatFile(path string) (FileFingerprint, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return FileFingerprint{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    abs,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Equal reports whether two fingerprints identify the same file contents.
func (f FileFingerprint) Equal(o FileFingerprint) bool {
	return f.Path == o.Path && f.Size == o.Size && f.ModTime.Equal(o.ModTime)
}

// ReferenceFingerprint returns the fingerprint of the reference the cached
// results were computed against. ok is false when none is recorded.
func (s *Store) ReferenceFingerprint() (fp FileFingerprint, ok bool, err error) {
	var modTimeNs int64
	err = s.db.QueryRow(`SELECT path, size, mod_time_ns FROM reference_metadata LIMIT 1`).
		Scan(&fp.Path, &fp.Size, &modTimeNs)
	if errors.Is(err, sql.ErrNoRows) {
		return FileFingerprint{}, false, nil
	}
	if err != nil {
		return FileFingerprint{}, false, fmt.Errorf("read reference metadata: %w", err)
	}
	fp.ModTime = time.Unix(0, modTimeNs)
	return fp, true, nil
}

// SetReferenceFingerprint records the reference the cached results belong to.
func (s *Store) SetReferenceFingerprint(fp FileFingerprint) error {
	if _, err := s.db.Exec(`DELETE FROM reference_metadata`); err != nil {
		return fmt.Errorf("clear reference metadata: %w", err)
	}
	if _, err := s.db.Exec(`INSERT INTO reference_metadata VALUES (?, ?, ?)`,
		fp.Path, fp.Size, fp.ModTime.UnixNano()); err != nil {
		return fmt.Errorf("write reference metadata: %w", err)
	}
	return nil
}

// EnsureReference clears cached results computed against a different
// reference and records fp. It returns true if results were cleared.
func (s *Store) EnsureReference(fp FileFingerprint) (bool, error) {
	stored, ok, err := s.ReferenceFingerprint()
	if err != nil {
		return false, err
	}
	if ok && stored.Equal(fp) {
		return false, nil
	}

	cleared := false
	if ok {
		if err := s.ClearResults(); err != nil {
			return false, fmt.Errorf("clear stale results: %w", err)
		}
		cleared = true
	}
	return cleared, s.SetReferenceFingerprint(fp)
}

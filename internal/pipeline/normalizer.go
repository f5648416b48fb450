// Package pipeline normalizes VCF variants against a reference genome.
package pipeline

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/inodb/vibe-norm/internal/normalize"
	"github.com/inodb/vibe-norm/internal/vcf"
)

// Per-variant failures. NormalizeAll logs and skips variants failing with
// any of these.
var (
	ErrMultiAllelic      = errors.New("multi-allelic ALT is not supported")
	ErrUnsupportedAllele = errors.New("symbolic or missing ALT is not supported")
	ErrUnknownChrom      = errors.New("chromosome not found in reference")
	ErrRefMismatch       = errors.New("REF does not match reference")
)

// cacheFlushSize is the number of fresh results buffered before they are
// written to the result cache.
const cacheFlushSize = 10000

// SequenceLookup finds a reference sequence by chromosome name.
type SequenceLookup interface {
	Sequence(name string) ([]byte, bool)
}

// ResultCache stores normalized results keyed by the input variant.
type ResultCache interface {
	Lookup(chrom string, pos int64, ref, alt string) (*Result, bool, error)
	WriteResults(results []*Result) error
}

// ResultWriter defines the interface for writing normalized variants.
type ResultWriter interface {
	WriteHeader() error
	Write(r *Result) error
	Flush() error
}

// Result is the normalized form of one VCF variant.
type Result struct {
	Variant *vcf.Variant

	// Interval and Allele are the minimal 0-based edit.
	Interval normalize.Interval
	Allele   string

	// Pos, Ref and Alt are the normalized VCF record, anchored on an
	// adjacent reference base when the minimal edit is an insertion or
	// deletion.
	Pos int64
	Ref string
	Alt string

	// Shifted reports whether the VCF record changed.
	Shifted bool
	// Cached reports whether the result came from the result cache.
	Cached bool
}

// Stats counts variants seen by NormalizeAll.
// SNVs, Insertions and Deletions classify the normalized input records by
// their REF/ALT lengths; other substitutions are counted in Variants only.
type Stats struct {
	Variants   int
	Shifted    int
	Skipped    int
	Cached     int
	SNVs       int
	Insertions int
	Deletions  int
}

// count classifies a normalized input record.
func (s *Stats) count(v *vcf.Variant) {
	switch {
	case v.IsSNV():
		s.SNVs++
	case !v.IsIndel():
	case v.IsInsertion():
		s.Insertions++
	case v.IsDeletion():
		s.Deletions++
	}
}

// Normalizer normalizes variants against a reference.
type Normalizer struct {
	ref     SequenceLookup
	cache   ResultCache
	workers int
	logger  *zap.Logger
}

// NewNormalizer creates a new normalizer over the given reference.
func NewNormalizer(ref SequenceLookup) *Normalizer {
	return &Normalizer{
		ref:    ref,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for warning and info messages.
func (n *Normalizer) SetLogger(l *zap.Logger) {
	n.logger = l
}

// SetCache enables result caching.
func (n *Normalizer) SetCache(c ResultCache) {
	n.cache = c
}

// SetWorkers sets the worker count for NormalizeAll. 0 means runtime.NumCPU().
func (n *Normalizer) SetWorkers(w int) {
	n.workers = w
}

// Normalize normalizes a single bi-allelic variant.
func (n *Normalizer) Normalize(v *vcf.Variant) (*Result, error) {
	if v.IsMultiAllelic() {
		return nil, fmt.Errorf("%s: %w", v.Alt, ErrMultiAllelic)
	}
	if v.IsSymbolic() {
		return nil, fmt.Errorf("%q: %w", v.Alt, ErrUnsupportedAllele)
	}

	if n.cache != nil {
		r, ok, err := n.cache.Lookup(v.Chrom, v.Pos, v.Ref, v.Alt)
		if err != nil {
			return nil, fmt.Errorf("lookup cached result: %w", err)
		}
		if ok {
			r.Variant = v
			r.Cached = true
			return r, nil
		}
	}

	seq, ok := n.ref.Sequence(v.Chrom)
	if !ok {
		return nil, fmt.Errorf("%s: %w", v.Chrom, ErrUnknownChrom)
	}

	iv := v.Interval()
	if err := iv.Validate(len(seq)); err != nil {
		return nil, fmt.Errorf("%s:%d: %w", v.Chrom, v.Pos, err)
	}
	if got := string(seq[iv.Start:iv.End]); got != v.Ref {
		return nil, fmt.Errorf("%s:%d: %w (REF %s, reference %s)", v.Chrom, v.Pos, ErrRefMismatch, v.Ref, got)
	}

	if v.Ref == v.Alt {
		return &Result{
			Variant:  v,
			Interval: iv,
			Allele:   v.Alt,
			Pos:      v.Pos,
			Ref:      v.Ref,
			Alt:      v.Alt,
		}, nil
	}

	normIv, allele, err := normalize.Normalize(seq, iv, []byte(v.Alt))
	if err != nil {
		return nil, fmt.Errorf("normalize %s:%d: %w", v.Chrom, v.Pos, err)
	}

	pos, ref, alt := anchor(seq, normIv, allele)
	return &Result{
		Variant:  v,
		Interval: normIv,
		Allele:   string(allele),
		Pos:      pos,
		Ref:      ref,
		Alt:      alt,
		Shifted:  pos != v.Pos || ref != v.Ref || alt != v.Alt,
	}, nil
}

// anchor converts a minimal edit into a VCF record. VCF cannot express an
// empty REF or ALT, so insertions and deletions take the preceding reference
// base as anchor, or the following base at the start of the sequence.
func anchor(seq []byte, iv normalize.Interval, allele []byte) (pos int64, ref, alt string) {
	if !iv.IsEmpty() && len(allele) > 0 {
		return int64(iv.Start) + 1, string(seq[iv.Start:iv.End]), string(allele)
	}
	if iv.Start > 0 {
		base := string(seq[iv.Start-1])
		return int64(iv.Start), string(seq[iv.Start-1 : iv.End]), base + string(allele)
	}
	base := string(seq[iv.End])
	return 1, string(seq[iv.Start:iv.End]) + base, string(allele) + base
}

// NormalizeAll normalizes all variants from a parser and writes them in
// input order. Variants that cannot be normalized are logged and skipped.
func (n *Normalizer) NormalizeAll(parser vcf.VariantParser, writer ResultWriter) (Stats, error) {
	workers := n.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	var parseErr error

	go func() {
		defer close(items)
		seq := 0
		for {
			v, err := parser.Next()
			if err != nil {
				parseErr = fmt.Errorf("read variant: %w", err)
				return
			}
			if v == nil {
				return
			}
			items <- WorkItem{Seq: seq, Line: parser.LineNumber(), Variant: v}
			seq++
		}
	}()

	var stats Stats
	var fresh []*Result

	flushCache := func() error {
		if n.cache == nil || len(fresh) == 0 {
			return nil
		}
		if err := n.cache.WriteResults(fresh); err != nil {
			return fmt.Errorf("write result cache: %w", err)
		}
		fresh = fresh[:0]
		return nil
	}

	results := n.ParallelNormalize(items, workers)

	if err := OrderedCollect(results, func(r WorkResult) error {
		stats.Variants++
		if r.Err != nil {
			stats.Skipped++
			n.logger.Warn("skipping variant",
				zap.Int("line", r.Line),
				zap.String("chrom", r.Variant.Chrom),
				zap.Int64("pos", r.Variant.Pos),
				zap.String("ref", r.Variant.Ref),
				zap.String("alt", r.Variant.Alt),
				zap.Error(r.Err))
			return nil
		}
		stats.count(r.Variant)
		if r.Result.Shifted {
			stats.Shifted++
		}
		if r.Result.Cached {
			stats.Cached++
		} else if n.cache != nil {
			fresh = append(fresh, r.Result)
			if len(fresh) >= cacheFlushSize {
				if err := flushCache(); err != nil {
					return err
				}
			}
		}
		if err := writer.Write(r.Result); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
		return nil
	}); err != nil {
		return stats, err
	}

	if parseErr != nil {
		return stats, parseErr
	}

	if err := flushCache(); err != nil {
		return stats, err
	}

	n.logger.Info("normalization complete",
		zap.Int("variants", stats.Variants),
		zap.Int("shifted", stats.Shifted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("cached", stats.Cached),
		zap.Int("snvs", stats.SNVs),
		zap.Int("insertions", stats.Insertions),
		zap.Int("deletions", stats.Deletions))

	return stats, writer.Flush()
}

package pipeline

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/vibe-norm/internal/normalize"
	"github.com/inodb/vibe-norm/internal/vcf"
)

// TCTCAGCAGCATCT, 1-based:
// T1 C2 T3 C4 A5 G6 C7 A8 G9 C10 A11 T12 C13 T14
const demoSeq = "TCTCAGCAGCATCT"

type mapReference map[string]string

func (m mapReference) Sequence(name string) ([]byte, bool) {
	s, ok := m[name]
	if !ok {
		return nil, false
	}
	return []byte(s), true
}

func demoReference() mapReference {
	return mapReference{"demo": demoSeq}
}

type memCache struct {
	results map[string]*Result
	writes  int
}

func newMemCache() *memCache {
	return &memCache{results: make(map[string]*Result)}
}

func (c *memCache) Lookup(chrom string, pos int64, ref, alt string) (*Result, bool, error) {
	r, ok := c.results[vcf.FormatVariantID(chrom, pos, ref, alt)]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

func (c *memCache) WriteResults(results []*Result) error {
	c.writes++
	for _, r := range results {
		v := r.Variant
		c.results[vcf.FormatVariantID(v.Chrom, v.Pos, v.Ref, v.Alt)] = r
	}
	return nil
}

type sliceParser struct {
	variants []*vcf.Variant
	i        int
	err      error
}

func (p *sliceParser) Next() (*vcf.Variant, error) {
	if p.i >= len(p.variants) {
		return nil, p.err
	}
	v := p.variants[p.i]
	p.i++
	return v, nil
}

func (p *sliceParser) Close() error    { return nil }
func (p *sliceParser) LineNumber() int { return p.i }

type recordingWriter struct {
	results  []*Result
	flushed  bool
	writeErr error
}

func (w *recordingWriter) WriteHeader() error { return nil }

func (w *recordingWriter) Write(r *Result) error {
	if w.writeErr != nil {
		return w.writeErr
	}
	w.results = append(w.results, r)
	return nil
}

func (w *recordingWriter) Flush() error {
	w.flushed = true
	return nil
}

func TestNormalizer_Normalize(t *testing.T) {
	tests := []struct {
		name    string
		variant vcf.Variant
		wantIv  normalize.Interval
		allele  string
		pos     int64
		ref     string
		alt     string
		shifted bool
	}{
		{
			name:    "CAG insertion slides to end of repeat",
			variant: vcf.Variant{Chrom: "demo", Pos: 3, Ref: "T", Alt: "TCAG"},
			wantIv:  normalize.Interval{Start: 11, End: 11}, allele: "GCA",
			pos: 11, ref: "A", alt: "AGCA", shifted: true,
		},
		{
			name:    "CAG deletion slides to end of repeat",
			variant: vcf.Variant{Chrom: "demo", Pos: 3, Ref: "TCAG", Alt: "T"},
			wantIv:  normalize.Interval{Start: 8, End: 11}, allele: "",
			pos: 8, ref: "AGCA", alt: "A", shifted: true,
		},
		{
			name:    "padded delins reduces to deletion",
			variant: vcf.Variant{Chrom: "demo", Pos: 4, Ref: "CAGC", Alt: "C"},
			wantIv:  normalize.Interval{Start: 8, End: 11}, allele: "",
			pos: 8, ref: "AGCA", alt: "A", shifted: true,
		},
		{
			name:    "already normalized insertion",
			variant: vcf.Variant{Chrom: "demo", Pos: 11, Ref: "A", Alt: "AGCA"},
			wantIv:  normalize.Interval{Start: 11, End: 11}, allele: "GCA",
			pos: 11, ref: "A", alt: "AGCA", shifted: false,
		},
		{
			name:    "SNV at first base",
			variant: vcf.Variant{Chrom: "demo", Pos: 1, Ref: "T", Alt: "G"},
			wantIv:  normalize.Interval{Start: 0, End: 1}, allele: "G",
			pos: 1, ref: "T", alt: "G", shifted: false,
		},
		{
			name:    "padded MNV trims to SNV",
			variant: vcf.Variant{Chrom: "demo", Pos: 1, Ref: "TCT", Alt: "TCA"},
			wantIv:  normalize.Interval{Start: 2, End: 3}, allele: "A",
			pos: 3, ref: "T", alt: "A", shifted: true,
		},
		{
			name:    "identity record unchanged",
			variant: vcf.Variant{Chrom: "demo", Pos: 2, Ref: "C", Alt: "C"},
			wantIv:  normalize.Interval{Start: 1, End: 2}, allele: "C",
			pos: 2, ref: "C", alt: "C", shifted: false,
		},
	}

	n := NewNormalizer(demoReference())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.variant
			r, err := n.Normalize(&v)
			require.NoError(t, err)
			assert.Same(t, &v, r.Variant)
			assert.Equal(t, tt.wantIv, r.Interval)
			assert.Equal(t, tt.allele, r.Allele)
			assert.Equal(t, tt.pos, r.Pos)
			assert.Equal(t, tt.ref, r.Ref)
			assert.Equal(t, tt.alt, r.Alt)
			assert.Equal(t, tt.shifted, r.Shifted)
			assert.False(t, r.Cached)
		})
	}
}

func TestNormalizer_Normalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		variant vcf.Variant
		want    error
	}{
		{"multi-allelic", vcf.Variant{Chrom: "demo", Pos: 3, Ref: "T", Alt: "TCAG,G"}, ErrMultiAllelic},
		{"symbolic", vcf.Variant{Chrom: "demo", Pos: 3, Ref: "T", Alt: "<DEL>"}, ErrUnsupportedAllele},
		{"spanning deletion", vcf.Variant{Chrom: "demo", Pos: 3, Ref: "T", Alt: "*"}, ErrUnsupportedAllele},
		{"unknown chromosome", vcf.Variant{Chrom: "chr1", Pos: 3, Ref: "T", Alt: "G"}, ErrUnknownChrom},
		{"REF mismatch", vcf.Variant{Chrom: "demo", Pos: 2, Ref: "G", Alt: "T"}, ErrRefMismatch},
		{"REF past end", vcf.Variant{Chrom: "demo", Pos: 14, Ref: "TT", Alt: "T"}, normalize.ErrInvalidInterval},
	}

	n := NewNormalizer(demoReference())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.variant
			r, err := n.Normalize(&v)
			require.ErrorIs(t, err, tt.want)
			assert.Nil(t, r)
		})
	}
}

func TestAnchor(t *testing.T) {
	seq := []byte(demoSeq)

	pos, ref, alt := anchor(seq, normalize.Interval{Start: 0, End: 0}, []byte("GG"))
	assert.Equal(t, int64(1), pos)
	assert.Equal(t, "T", ref)
	assert.Equal(t, "GGT", alt)

	pos, ref, alt = anchor(seq, normalize.Interval{Start: 0, End: 2}, nil)
	assert.Equal(t, int64(1), pos)
	assert.Equal(t, "TCT", ref)
	assert.Equal(t, "T", alt)

	pos, ref, alt = anchor(seq, normalize.Interval{Start: 14, End: 14}, []byte("A"))
	assert.Equal(t, int64(14), pos)
	assert.Equal(t, "T", ref)
	assert.Equal(t, "TA", alt)
}

func TestNormalizer_Cache(t *testing.T) {
	cache := newMemCache()
	n := NewNormalizer(demoReference())
	n.SetCache(cache)

	parser := &sliceParser{variants: []*vcf.Variant{
		{Chrom: "demo", Pos: 3, Ref: "T", Alt: "TCAG"},
		{Chrom: "demo", Pos: 3, Ref: "TCAG", Alt: "T"},
	}}
	w := &recordingWriter{}
	stats, err := n.NormalizeAll(parser, w)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Cached)
	assert.Equal(t, 1, stats.Insertions)
	assert.Equal(t, 1, stats.Deletions)
	assert.Equal(t, 1, cache.writes)
	assert.Len(t, cache.results, 2)

	// A normalizer without the sequence can still answer from the cache.
	n2 := NewNormalizer(mapReference{})
	n2.SetCache(cache)
	v := &vcf.Variant{Chrom: "demo", Pos: 3, Ref: "T", Alt: "TCAG"}
	r, err := n2.Normalize(v)
	require.NoError(t, err)
	assert.True(t, r.Cached)
	assert.Same(t, v, r.Variant)
	assert.Equal(t, int64(11), r.Pos)
	assert.Equal(t, "AGCA", r.Alt)
}

type failingCache struct{}

func (failingCache) Lookup(string, int64, string, string) (*Result, bool, error) {
	return nil, false, errors.New("cache down")
}

func (failingCache) WriteResults([]*Result) error { return nil }

func TestNormalizer_CacheError(t *testing.T) {
	n := NewNormalizer(demoReference())
	n.SetCache(failingCache{})

	_, err := n.Normalize(&vcf.Variant{Chrom: "demo", Pos: 1, Ref: "T", Alt: "G"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lookup cached result")
}

func TestNormalizer_NormalizeAll(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewNormalizer(demoReference())
	n.SetLogger(zap.New(core))
	n.SetWorkers(3)

	var variants []*vcf.Variant
	for i := 0; i < 50; i++ {
		variants = append(variants,
			&vcf.Variant{Chrom: "demo", Pos: 3, Ref: "T", Alt: "TCAG", ID: fmt.Sprintf("ins%d", i)},
			&vcf.Variant{Chrom: "demo", Pos: 1, Ref: "T", Alt: "G", ID: fmt.Sprintf("snv%d", i)},
			&vcf.Variant{Chrom: "demo", Pos: 2, Ref: "A", Alt: "G", ID: fmt.Sprintf("bad%d", i)},
		)
	}

	w := &recordingWriter{}
	stats, err := n.NormalizeAll(&sliceParser{variants: variants}, w)
	require.NoError(t, err)

	assert.Equal(t, Stats{
		Variants:   150,
		Shifted:    50,
		Skipped:    50,
		SNVs:       50,
		Insertions: 50,
	}, stats)
	assert.True(t, w.flushed)
	require.Len(t, w.results, 100)
	for i, r := range w.results {
		prefix := "ins"
		if i%2 == 1 {
			prefix = "snv"
		}
		assert.Equal(t, fmt.Sprintf("%s%d", prefix, i/2), r.Variant.ID)
	}

	skipped := logs.FilterMessage("skipping variant").All()
	require.Len(t, skipped, 50)
	// Every third record fails; the parser reports it as line 3, 6, ...
	assert.Equal(t, int64(3), skipped[0].ContextMap()["line"])
	assert.Equal(t, int64(6), skipped[1].ContextMap()["line"])
}

func TestNormalizer_NormalizeAll_VariantClasses(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewNormalizer(demoReference())
	n.SetLogger(zap.New(core))

	parser := &sliceParser{variants: []*vcf.Variant{
		{Chrom: "demo", Pos: 1, Ref: "T", Alt: "G"},
		{Chrom: "demo", Pos: 1, Ref: "TC", Alt: "GA"},
		{Chrom: "demo", Pos: 3, Ref: "T", Alt: "TCAG"},
		{Chrom: "demo", Pos: 3, Ref: "TCAG", Alt: "T"},
		{Chrom: "demo", Pos: 4, Ref: "CAGC", Alt: "C"},
		{Chrom: "demo", Pos: 2, Ref: "A", Alt: "AT"}, // REF mismatch, not classified
	}}

	stats, err := n.NormalizeAll(parser, &recordingWriter{})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Variants)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.SNVs)
	assert.Equal(t, 1, stats.Insertions)
	assert.Equal(t, 2, stats.Deletions)

	done := logs.FilterMessage("normalization complete").All()
	require.Len(t, done, 1)
	fields := done[0].ContextMap()
	assert.Equal(t, int64(1), fields["snvs"])
	assert.Equal(t, int64(1), fields["insertions"])
	assert.Equal(t, int64(2), fields["deletions"])
}

func TestNormalizer_NormalizeAll_ParseError(t *testing.T) {
	n := NewNormalizer(demoReference())
	parser := &sliceParser{
		variants: []*vcf.Variant{{Chrom: "demo", Pos: 1, Ref: "T", Alt: "G"}},
		err:      &vcf.ParseError{Line: 5, Message: "boom"},
	}

	w := &recordingWriter{}
	stats, err := n.NormalizeAll(parser, w)
	var pe *vcf.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 5, pe.Line)
	assert.Equal(t, 1, stats.Variants)
	assert.False(t, w.flushed)
}

func TestNormalizer_NormalizeAll_WriteError(t *testing.T) {
	n := NewNormalizer(demoReference())
	parser := &sliceParser{variants: []*vcf.Variant{
		{Chrom: "demo", Pos: 1, Ref: "T", Alt: "G"},
		{Chrom: "demo", Pos: 1, Ref: "T", Alt: "A"},
	}}

	w := &recordingWriter{writeErr: errors.New("disk full")}
	_, err := n.NormalizeAll(parser, w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write result: disk full")
}

package normalize

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidInterval is returned when an interval does not lie within the
// reference or has start > end.
var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a half-open range [Start, End) over reference positions.
// Start == End denotes an insertion point.
type Interval struct {
	Start int
	End   int
}

// Len returns the number of reference positions covered.
func (iv Interval) Len() int {
	return iv.End - iv.Start
}

// IsEmpty reports whether the interval is an insertion point.
func (iv Interval) IsEmpty() bool {
	return iv.Start == iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("[%d,%d)", iv.Start, iv.End)
}

// Validate checks that the interval is well-formed over a reference of
// length refLen.
func (iv Interval) Validate(refLen int) error {
	if iv.Start < 0 || iv.Start > iv.End || iv.End > refLen {
		return fmt.Errorf("%w: %s over reference of length %d", ErrInvalidInterval, iv, refLen)
	}
	return nil
}

// Step is one state visited while normalizing.
type Step[E comparable] struct {
	Interval Interval
	Allele   []E
}

// Normalize rewrites the edit "replace ref[iv.Start:iv.End] with allele" into
// its canonical form: shared leading symbols are trimmed, then the edit is
// slid right one reference residue at a time for as long as the extended
// reference and allele still share a leading symbol.
//
// The result describes the same edit of ref. Neither ref nor allele is modified.
func Normalize[E comparable](ref []E, iv Interval, allele []E) (Interval, []E, error) {
	var last Step[E]
	err := walk(ref, iv, allele, func(s Step[E]) { last = s })
	if err != nil {
		return Interval{}, nil, err
	}
	return last.Interval, last.Allele, nil
}

// Trace returns every state Normalize passes through: the input, the state
// after the left trim, and the state after each successful right step.
// The last element is the normalized result.
func Trace[E comparable](ref []E, iv Interval, allele []E) ([]Step[E], error) {
	var steps []Step[E]
	err := walk(ref, iv, allele, func(s Step[E]) { steps = append(steps, s) })
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// NormalizeString is Normalize for string sequences.
func NormalizeString(ref string, iv Interval, allele string) (Interval, string, error) {
	out, a, err := Normalize([]byte(ref), iv, []byte(allele))
	if err != nil {
		return Interval{}, "", err
	}
	return out, string(a), nil
}

func walk[E comparable](ref []E, iv Interval, allele []E, visit func(Step[E])) error {
	if err := iv.Validate(len(ref)); err != nil {
		return err
	}
	visit(Step[E]{Interval: iv, Allele: allele})

	trimmed, rest := TrimLeft(ref[iv.Start:iv.End], allele)
	refAllele, allele := rest[0], rest[1]
	start, end := iv.Start+trimmed, iv.End
	visit(Step[E]{Interval: Interval{start, end}, Allele: allele})

	for end < len(ref) {
		next := ref[end]
		// Clip so appending never writes into ref or the caller's allele.
		trimmed, rest = TrimLeft(
			append(slices.Clip(refAllele), next),
			append(slices.Clip(allele), next),
		)
		if trimmed == 0 {
			break
		}
		refAllele, allele = rest[0], rest[1]
		start += trimmed
		end += trimmed
		visit(Step[E]{Interval: Interval{start, end}, Allele: allele})
	}
	return nil
}

// Package render draws alleles aligned under the reference positions they replace.
//
// A diagram looks like:
//
//	               |T|C|T|C|A|G|C|A|G|C|A|T|C|T|
//	[ 3, 6)              |—————| ⇒
//	[ 8,11)                    |—————| ⇒
//
// Rendering never influences normalization; it only reads its results.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-norm/internal/normalize"
)

const gutterWidth = 15

// Sequence returns the reference ruler line: every symbol boxed by '|'.
func Sequence(ref string) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", gutterWidth))
	b.WriteByte('|')
	for i := 0; i < len(ref); i++ {
		b.WriteByte(ref[i])
		b.WriteByte('|')
	}
	return b.String()
}

// Allele returns one line showing iv under the ruler, followed by the allele.
func Allele(iv normalize.Interval, allele string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s", gutterWidth, fmt.Sprintf("[%2d,%2d)", iv.Start, iv.End))
	b.WriteString(strings.Repeat("  ", iv.Start))
	b.WriteByte('|')
	if iv.End > iv.Start {
		b.WriteString("—")
		b.WriteString(strings.Repeat("——", iv.End-iv.Start-1))
		b.WriteByte('|')
	}
	b.WriteString(" ⇒ ")
	b.WriteString(allele)
	return b.String()
}

// Trace writes the ruler for ref followed by one allele line per step.
func Trace(w io.Writer, ref string, steps []normalize.Step[byte]) error {
	if _, err := fmt.Fprintln(w, Sequence(ref)); err != nil {
		return fmt.Errorf("write sequence: %w", err)
	}
	for _, s := range steps {
		if _, err := fmt.Fprintln(w, Allele(s.Interval, string(s.Allele))); err != nil {
			return fmt.Errorf("write allele: %w", err)
		}
	}
	return nil
}

// Package output provides normalization output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/vibe-norm/internal/pipeline"
	"github.com/inodb/vibe-norm/internal/vcf"
)

// TabWriter writes normalized variants in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Uploaded_variation",
			"Location",
			"Ref",
			"Alt",
			"Norm_Location",
			"Norm_Ref",
			"Norm_Alt",
			"Interval",
			"Allele",
			"Shifted",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single normalized variant.
func (tw *TabWriter) Write(r *pipeline.Result) error {
	v := r.Variant

	id := v.ID
	if id == "" || id == "." {
		id = vcf.FormatVariantID(v.Chrom, v.Pos, v.Ref, v.Alt)
	}

	shifted := "-"
	if r.Shifted {
		shifted = "YES"
	}

	values := []string{
		id,
		fmt.Sprintf("%s:%d", v.Chrom, v.Pos),
		v.Ref,
		v.Alt,
		fmt.Sprintf("%s:%d", v.Chrom, r.Pos),
		r.Ref,
		r.Alt,
		r.Interval.String(),
		dash(r.Allele),
		shifted,
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-norm/internal/pipeline"
)

// OldVariantTag is the INFO key recording the input record of a shifted variant.
const OldVariantTag = "OLD_VARIANT"

// VCFWriter writes normalized variants as VCF records.
// Records are written in input order, so output may need re-sorting when
// variants shift past their neighbours.
type VCFWriter struct {
	w           *bufio.Writer
	headerLines []string // original VCF header lines (## and #CHROM)
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer, headerLines []string) *VCFWriter {
	return &VCFWriter{
		w:           bufio.NewWriter(w),
		headerLines: headerLines,
	}
}

// WriteHeader writes the original VCF header lines with an inserted
// OLD_VARIANT INFO line.
func (vw *VCFWriter) WriteHeader() error {
	infoLine := fmt.Sprintf(
		"##INFO=<ID=%s,Number=1,Type=String,Description=\"Original CHROM:POS:REF:ALT before normalization by vibe-norm\">",
		OldVariantTag,
	)

	wroteInfo := false
	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, "#CHROM") && !wroteInfo {
			if _, err := vw.w.WriteString(infoLine + "\n"); err != nil {
				return err
			}
			wroteInfo = true
		}
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write writes one record with normalized POS, REF and ALT.
func (vw *VCFWriter) Write(r *pipeline.Result) error {
	v := r.Variant

	info := v.Info
	if r.Shifted {
		old := fmt.Sprintf("%s=%s:%d:%s:%s", OldVariantTag, v.Chrom, v.Pos, v.Ref, v.Alt)
		if info == "" || info == "." {
			info = old
		} else {
			info = info + ";" + old
		}
	}

	fields := []string{
		v.Chrom,
		strconv.FormatInt(r.Pos, 10),
		dot(v.ID),
		r.Ref,
		r.Alt,
		dot(v.Qual),
		dot(v.Filter),
		dot(info),
	}
	if v.SampleColumns != "" {
		fields = append(fields, v.SampleColumns)
	}

	_, err := vw.w.WriteString(strings.Join(fields, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

func dot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

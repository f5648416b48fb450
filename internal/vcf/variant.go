// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"strconv"
	"strings"

	"github.com/inodb/vibe-norm/internal/normalize"
)

// Variant represents a single genomic variant from a VCF file.
type Variant struct {
	Chrom         string // Chromosome name (e.g., "12", "chr12")
	Pos           int64  // 1-based genomic position
	ID            string // Variant identifier (e.g., rs ID)
	Ref           string // Reference allele
	Alt           string // Alternate allele(s), comma separated as in the file
	Qual          string // Quality column, kept verbatim
	Filter        string // Filter status (PASS or filter name)
	Info          string // INFO column, kept verbatim
	SampleColumns string // FORMAT and sample columns joined by tabs, if any
}

// IsSNV returns true if the variant is a single nucleotide variant.
func (v *Variant) IsSNV() bool {
	return len(v.Ref) == 1 && len(v.Alt) == 1
}

// IsIndel returns true if the variant is an insertion or deletion.
func (v *Variant) IsIndel() bool {
	return len(v.Ref) != len(v.Alt)
}

// IsInsertion returns true if the variant is an insertion.
func (v *Variant) IsInsertion() bool {
	return len(v.Alt) > len(v.Ref)
}

// IsDeletion returns true if the variant is a deletion.
func (v *Variant) IsDeletion() bool {
	return len(v.Ref) > len(v.Alt)
}

// IsMultiAllelic returns true if ALT lists more than one allele.
func (v *Variant) IsMultiAllelic() bool {
	return strings.Contains(v.Alt, ",")
}

// IsSymbolic returns true if ALT is not a literal base sequence, e.g. <DEL>,
// breakend notation, the '*' spanning deletion or the '.' missing value.
func (v *Variant) IsSymbolic() bool {
	if v.Alt == "" || v.Alt == "." || v.Alt == "*" {
		return true
	}
	return strings.ContainsAny(v.Alt, "<>[]")
}

// NormalizeChrom returns the chromosome name without "chr" prefix.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && chrom[:3] == "chr" {
		return chrom[3:]
	}
	return chrom
}

// Interval returns the 0-based half-open reference range covered by REF.
func (v *Variant) Interval() normalize.Interval {
	start := int(v.Pos - 1)
	return normalize.Interval{Start: start, End: start + len(v.Ref)}
}

// FormatVariantID returns a chrom_pos_ref/alt identifier.
func FormatVariantID(chrom string, pos int64, ref, alt string) string {
	return chrom + "_" + strconv.FormatInt(pos, 10) + "_" + ref + "/" + alt
}

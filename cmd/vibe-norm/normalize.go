package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-norm/internal/normalize"
	"github.com/inodb/vibe-norm/internal/reference"
	"github.com/inodb/vibe-norm/internal/render"
)

func newNormalizeCmd() *cobra.Command {
	var (
		sequence string
		chrom    string
		start    int
		end      int
		allele   string
		show     bool
	)

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a single edit of a reference sequence",
		Long: `Normalize the edit "replace reference[start:end) with allele".

Positions are 0-based and half-open; start == end is an insertion point and an
empty allele is a deletion. The reference is either given literally with
--sequence or read from a FASTA file with --fasta and --chrom.`,
		Example: `  vibe-norm normalize --sequence TCTCAGCAGCATCT --start 3 --end 3 --allele CAG
  vibe-norm normalize --sequence TCTCAGCAGCATCT --start 3 --end 6 --show
  vibe-norm normalize --fasta ref.fa --chrom 12 --start 25245350 --end 25245351 --allele A`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("fasta", cmd.Flags().Lookup("fasta"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync()

			// An explicit --sequence "" is an empty reference, not a missing flag.
			ref := []byte(sequence)
			if !cmd.Flags().Changed("sequence") {
				ref, err = loadSequence(logger, viper.GetString("fasta"), chrom)
				if err != nil {
					return err
				}
			}

			iv := normalize.Interval{Start: start, End: end}
			return runNormalize(cmd.OutOrStdout(), ref, iv, allele, show)
		},
	}

	cmd.Flags().StringVar(&sequence, "sequence", "", "Reference sequence given literally")
	cmd.Flags().String("fasta", "", "Reference FASTA file (plain or .gz)")
	cmd.Flags().StringVar(&chrom, "chrom", "", "Sequence name in the FASTA file")
	cmd.Flags().IntVar(&start, "start", 0, "0-based start of the replaced interval")
	cmd.Flags().IntVar(&end, "end", 0, "0-based exclusive end of the replaced interval")
	cmd.Flags().StringVar(&allele, "allele", "", "Replacement allele (empty for a deletion)")
	cmd.Flags().BoolVar(&show, "show", false, "Draw every normalization step under the reference")

	return cmd
}

// loadSequence returns the named sequence from a FASTA file. A FASTA with a
// single sequence needs no --chrom.
func loadSequence(logger *zap.Logger, fastaPath, chrom string) ([]byte, error) {
	if fastaPath == "" {
		return nil, fmt.Errorf("one of --sequence or --fasta is required")
	}

	loader := reference.NewFASTALoader(fastaPath)
	if err := loader.Load(); err != nil {
		return nil, fmt.Errorf("load reference: %w", err)
	}
	logger.Debug("loaded reference",
		zap.String("path", loader.Path()),
		zap.Int("sequences", loader.SequenceCount()))

	if chrom == "" {
		if loader.SequenceCount() != 1 {
			return nil, fmt.Errorf("--chrom is required: %s has %d sequences", fastaPath, loader.SequenceCount())
		}
		chrom = loader.Names()[0]
	}

	seq, ok := loader.Sequence(chrom)
	if !ok {
		return nil, fmt.Errorf("sequence %q not found in %s", chrom, fastaPath)
	}
	return seq, nil
}

func runNormalize(w io.Writer, ref []byte, iv normalize.Interval, allele string, show bool) error {
	if show {
		steps, err := normalize.Trace(ref, iv, []byte(allele))
		if err != nil {
			return err
		}
		if err := render.Trace(w, string(ref), steps); err != nil {
			return err
		}
	}

	normIv, normAllele, err := normalize.NormalizeString(string(ref), iv, allele)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\t%q\n", normIv, normAllele)
	return err
}

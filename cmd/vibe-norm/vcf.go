package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-norm/internal/duckdb"
	"github.com/inodb/vibe-norm/internal/output"
	"github.com/inodb/vibe-norm/internal/pipeline"
	"github.com/inodb/vibe-norm/internal/reference"
	"github.com/inodb/vibe-norm/internal/vcf"
)

func newVCFCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "vcf <input.vcf>",
		Short: "Normalize every record of a VCF file against a reference",
		Long: `Normalize every biallelic record of a VCF file (plain or gzipped, "-" for
stdin). Records are written in input order; multi-allelic, symbolic and
reference-mismatched records are logged and skipped.`,
		Example: `  vibe-norm vcf --fasta GRCh38.fa input.vcf
  vibe-norm vcf --fasta GRCh38.fa -f vcf -o normalized.vcf input.vcf.gz
  vibe-norm vcf --fasta GRCh38.fa --cache norm.duckdb input.vcf`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range []string{"fasta", "output-format", "workers", "cache"} {
				if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync()

			return runVCF(logger, cmd.OutOrStdout(), args[0], outputFile, vcfOptions{
				fasta:        viper.GetString("fasta"),
				outputFormat: viper.GetString("output-format"),
				workers:      viper.GetInt("workers"),
				cachePath:    viper.GetString("cache"),
			})
		},
	}

	cmd.Flags().String("fasta", "", "Reference FASTA file (plain or .gz)")
	cmd.Flags().StringP("output-format", "f", "tab", "Output format: tab, vcf")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Int("workers", 0, "Number of normalization workers (0 = all CPUs)")
	cmd.Flags().String("cache", "", "DuckDB file caching normalization results")

	return cmd
}

type vcfOptions struct {
	fasta        string
	outputFormat string
	workers      int
	cachePath    string
}

func runVCF(logger *zap.Logger, stdout io.Writer, inputPath, outputFile string, opts vcfOptions) error {
	if opts.fasta == "" {
		return fmt.Errorf("--fasta is required (or set it with: vibe-norm config set fasta <path>)")
	}

	loader := reference.NewFASTALoader(opts.fasta)
	if err := loader.Load(); err != nil {
		return fmt.Errorf("load reference: %w", err)
	}
	logger.Info("loaded reference",
		zap.String("path", loader.Path()),
		zap.Int("sequences", loader.SequenceCount()))

	parser, err := vcf.NewParser(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer parser.Close()
	logger.Info("opened input",
		zap.String("path", inputPath),
		zap.Strings("samples", parser.SampleNames()))

	norm := pipeline.NewNormalizer(loader)
	norm.SetLogger(logger)
	norm.SetWorkers(opts.workers)

	if opts.cachePath != "" {
		store, err := openCache(logger, opts.cachePath, opts.fasta)
		if err != nil {
			return err
		}
		defer store.Close()
		norm.SetCache(store)
	}

	out := stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	var writer pipeline.ResultWriter
	switch opts.outputFormat {
	case "tab":
		writer = output.NewTabWriter(out)
	case "vcf":
		writer = output.NewVCFWriter(out, parser.Header())
	default:
		return fmt.Errorf("unknown output format %q", opts.outputFormat)
	}

	if err := writer.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	stats, err := norm.NormalizeAll(parser, writer)
	if err != nil {
		return err
	}

	logger.Info("done",
		zap.String("input", inputPath),
		zap.Int("variants", stats.Variants),
		zap.Int("shifted", stats.Shifted),
		zap.Int("skipped", stats.Skipped),
		zap.Int("cached", stats.Cached),
		zap.Int("snvs", stats.SNVs),
		zap.Int("insertions", stats.Insertions),
		zap.Int("deletions", stats.Deletions))
	return nil
}

// openCache opens the result cache and drops its contents when the
// reference file has changed since the results were written.
func openCache(logger *zap.Logger, cachePath, fastaPath string) (*duckdb.Store, error) {
	fp, err := duckdb.StatFile(fastaPath)
	if err != nil {
		return nil, fmt.Errorf("stat reference: %w", err)
	}

	store, err := duckdb.Open(cachePath)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	cleared, err := store.EnsureReference(fp)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("check cache reference: %w", err)
	}
	if cleared {
		logger.Info("reference changed, cleared cached results", zap.String("cache", cachePath))
	}
	return store, nil
}

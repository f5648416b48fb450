package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-norm/internal/duckdb"
	"github.com/inodb/vibe-norm/internal/output"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the normalization result cache",
		Example: `  vibe-norm cache stats --cache norm.duckdb
  vibe-norm cache list 12
  vibe-norm cache clear`,
	}
	cmd.PersistentFlags().String("cache", "", "DuckDB file caching normalization results")

	cmd.AddCommand(&cobra.Command{
		Use:     "stats",
		Short:   "Show the cached result count and the reference it belongs to",
		Args:    cobra.NoArgs,
		PreRunE: bindCacheFlag,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(s *duckdb.Store) error {
				return runCacheStats(cmd.OutOrStdout(), s)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "list <chrom>",
		Short:   "List cached results on a chromosome",
		Args:    cobra.ExactArgs(1),
		PreRunE: bindCacheFlag,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(s *duckdb.Store) error {
				return runCacheList(cmd.OutOrStdout(), s, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "clear",
		Short:   "Remove all cached results",
		Args:    cobra.NoArgs,
		PreRunE: bindCacheFlag,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCache(func(s *duckdb.Store) error {
				return runCacheClear(cmd.OutOrStdout(), s)
			})
		},
	})

	return cmd
}

func bindCacheFlag(cmd *cobra.Command, args []string) error {
	return viper.BindPFlag("cache", cmd.Flags().Lookup("cache"))
}

func withCache(fn func(*duckdb.Store) error) error {
	path := viper.GetString("cache")
	if path == "" {
		return fmt.Errorf("--cache is required (or set it with: vibe-norm config set cache <path>)")
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func runCacheStats(w io.Writer, s *duckdb.Store) error {
	n, err := s.ResultCount()
	if err != nil {
		return err
	}
	fp, ok, err := s.ReferenceFingerprint()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "results\t%d\n", n)
	if ok {
		fmt.Fprintf(w, "reference\t%s\n", fp.Path)
		fmt.Fprintf(w, "reference_size\t%d\n", fp.Size)
		fmt.Fprintf(w, "reference_mtime\t%s\n", fp.ModTime.UTC().Format("2006-01-02T15:04:05Z"))
	} else {
		fmt.Fprintln(w, "reference\t-")
	}
	return nil
}

func runCacheList(w io.Writer, s *duckdb.Store, chrom string) error {
	results, err := s.SearchByChrom(chrom)
	if err != nil {
		return err
	}

	tw := output.NewTabWriter(w)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range results {
		if err := tw.Write(r); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runCacheClear(w io.Writer, s *duckdb.Store) error {
	n, err := s.ResultCount()
	if err != nil {
		return err
	}
	if err := s.ClearResults(); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	fmt.Fprintf(w, "Removed %d cached results from %s\n", n, s.Path())
	return nil
}

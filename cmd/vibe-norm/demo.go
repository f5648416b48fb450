package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/inodb/vibe-norm/internal/normalize"
)

// demoReference is a short sequence with a CAG repeat.
const demoReference = "TCTCAGCAGCATCT"

// demoCases are five spellings of edits inside the CAG repeat; the
// insertions normalize to [11,11) GCA and the deletions to [8,11).
var demoCases = []struct {
	iv     normalize.Interval
	allele string
}{
	{normalize.Interval{Start: 3, End: 3}, "CAG"},
	{normalize.Interval{Start: 4, End: 4}, "AGC"},
	{normalize.Interval{Start: 3, End: 6}, ""},
	{normalize.Interval{Start: 3, End: 7}, "C"},
	{normalize.Interval{Start: 3, End: 8}, "CA"},
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Normalize example edits in a CAG repeat and draw each step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout())
		},
	}
}

func runDemo(w io.Writer) error {
	ref := []byte(demoReference)
	for _, c := range demoCases {
		if _, err := fmt.Fprintf(w, "* %s %q\n", c.iv, c.allele); err != nil {
			return err
		}
		if err := runNormalize(w, ref, c.iv, c.allele, true); err != nil {
			return err
		}
	}
	return nil
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ftengine/ftengine/internal/output"
)

func newGCCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Run one fork-GC repair round",
		Long: `GC runs a single synchronous fork-GC repair round over every
term and tag inverted index, reclaiming postings left behind by
document replacement and deletion, and sweeps empty numeric-tree
leaves (spec.md §4.7/§4.8). Vector indexes are not part of the round.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGC(cmd)
		},
	}
}

func runGC(cmd *cobra.Command) error {
	ctx := cmd.Context()
	opened, err := openEngine(ctx, dataDir)
	if err != nil {
		return err
	}
	defer opened.Close(ctx)

	stats := opened.Engine.GC().RepairOnce()

	out := output.New(cmd.OutOrStdout())
	out.Statusf("", "gc round complete: %d entries collected", stats.EntriesCollected)
	return nil
}

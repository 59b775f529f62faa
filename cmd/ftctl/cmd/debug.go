package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ftengine/ftengine/internal/gcstats"
)

func newDebugCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug",
		Short: "Print an INFO-style statistics dump",
		Long: `Debug renders occupancy, field, and GC statistics in the same
INFO-style text block internal/gcstats.Snapshot.Render produces, the
FT.DEBUG introspection analogue. ftctl gathers doc-table and cursor
counts fresh from the opened engine; per-field tallies and GC-round
history reset per invocation since nothing currently persists
internal/gcstats.Collector across process runs (see cmd/ftmonitor for
long-lived monitoring once a daemon hosts the engine).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDebug(cmd)
		},
	}
}

func runDebug(cmd *cobra.Command) error {
	ctx := cmd.Context()
	opened, err := openEngine(ctx, dataDir)
	if err != nil {
		return err
	}
	defer opened.Close(ctx)

	collector := gcstats.New()
	docCount, _ := opened.Engine.Stats()
	collector.SetDocTableSize(docCount)
	collector.SetCursorsOpen(opened.Engine.Cursors().Len())

	fmt.Fprintln(cmd.OutOrStdout(), collector.Snapshot().Render())
	return nil
}

// Package main is the entry point for ftmonitor, a read-only terminal
// dashboard over a ftengine index directory's occupancy and fork-GC
// counters (internal/gcstats) — the long-running counterpart to
// 'ftctl debug', which only ever shows one snapshot per invocation.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ftengine/ftengine/internal/storeopen"
)

func main() {
	var dataDir string
	var interval time.Duration

	root := &cobra.Command{
		Use:   "ftmonitor",
		Short: "Live dashboard over a ftengine index's occupancy and GC stats",
		Long: `ftmonitor opens a ftengine index directory and polls its doc-table
size, cursor occupancy, and fork-GC history on an interval, rendering
them as a Bubble Tea dashboard. Unlike 'ftctl debug', which opens and
closes the engine once per invocation, ftmonitor holds one engine open
for its whole run, so its view of cursor occupancy reflects cursors
opened by other work against the same directory only when those
cursors are hosted by this same process.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), dataDir, interval)
		},
	}
	root.Flags().StringVar(&dataDir, "data-dir", ".ftengine", "Index data directory")
	root.Flags().DurationVar(&interval, "interval", time.Second, "Refresh interval")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir string, interval time.Duration) error {
	opened, err := storeopen.Open(ctx, dataDir)
	if err != nil {
		return err
	}
	defer opened.Close(ctx)

	p := tea.NewProgram(newModel(opened, interval))
	_, err = p.Run()
	return err
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ftengine/ftengine/internal/cursorstore"
	"github.com/ftengine/ftengine/internal/output"
	"github.com/ftengine/ftengine/pkg/searcher"
)

// NOTE: each ftctl invocation opens its own Engine, so a cursor opened
// by 'aggregate' only survives for commands run within the same
// process (tests, or a long-lived process hosting one Engine). A bare
// CLI client cannot keep a cursor alive across separate invocations.

// slicePipeline is a cursorstore.Pipeline over an already-materialized
// row set. internal/engine.Search executes a query's full iterator
// tree eagerly rather than lazily, so pagination over "FT.AGGREGATE"
// style results is naturally implemented by slicing a realized row
// set rather than driving a lazy pipeline stage by stage.
type slicePipeline struct {
	rows []cursorstore.Row
	pos  int
}

func (p *slicePipeline) Resume(_ context.Context, batchSize int) ([]cursorstore.Row, bool, error) {
	if p.pos >= len(p.rows) {
		return nil, true, nil
	}
	end := p.pos + batchSize
	if end > len(p.rows) {
		end = len(p.rows)
	}
	batch := p.rows[p.pos:end]
	p.pos = end
	return batch, p.pos >= len(p.rows), nil
}

func resultsToRows(results []searcher.Result) []cursorstore.Row {
	rows := make([]cursorstore.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, cursorstore.Row{"id": r.ID, "score": r.Score, "payload": string(r.Payload)})
	}
	return rows
}

func newAggregateCmd() *cobra.Command {
	var limit int
	var batchSize int

	cmd := &cobra.Command{
		Use:   "aggregate <query>",
		Short: "Run a query and open a paginated cursor over its results",
		Long: `Aggregate runs a query, opens a cursor over the full result set, and
returns the cursor id plus the first batch. Use 'ftctl cursor read' to
fetch subsequent batches.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd, strings.Join(args, " "), limit, batchSize)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 1000, "Maximum number of results to collect")
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "Rows per cursor read")

	return cmd
}

func runAggregate(cmd *cobra.Command, query string, limit, batchSize int) error {
	ctx := cmd.Context()
	opened, err := openEngine(ctx, dataDir)
	if err != nil {
		return err
	}
	defer opened.Close(ctx)

	s, err := searcher.New(searcher.WithEngine(opened.Engine))
	if err != nil {
		return err
	}
	results, err := s.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("aggregate failed: %w", err)
	}

	id := opened.Engine.Cursors().Open(&slicePipeline{rows: resultsToRows(results)})
	rows, done, err := opened.Engine.Cursors().Read(ctx, id, batchSize)
	if err != nil {
		return fmt.Errorf("failed to read first batch: %w", err)
	}

	return printCursorBatch(cmd, id, rows, done)
}

func newCursorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cursor",
		Short: "Read or close an open cursor",
	}
	cmd.AddCommand(newCursorReadCmd())
	cmd.AddCommand(newCursorDelCmd())
	return cmd
}

func newCursorReadCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "read <cursor-id>",
		Short: "Read the next batch from a cursor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid cursor id %q: %w", args[0], err)
			}
			return runCursorRead(cmd, id, batchSize)
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 10, "Rows to read")
	return cmd
}

func runCursorRead(cmd *cobra.Command, id int64, batchSize int) error {
	ctx := cmd.Context()
	opened, err := openEngine(ctx, dataDir)
	if err != nil {
		return err
	}
	defer opened.Close(ctx)

	rows, done, err := opened.Engine.Cursors().Read(ctx, id, batchSize)
	if err != nil {
		return fmt.Errorf("cursor read failed: %w", err)
	}
	return printCursorBatch(cmd, id, rows, done)
}

func newCursorDelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <cursor-id>",
		Short: "Close a cursor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid cursor id %q: %w", args[0], err)
			}

			ctx := cmd.Context()
			opened, err := openEngine(ctx, dataDir)
			if err != nil {
				return err
			}
			defer opened.Close(ctx)

			ok := opened.Engine.Cursors().Del(id)
			out := output.New(cmd.OutOrStdout())
			if ok {
				out.Status("", fmt.Sprintf("closed cursor %d", id))
			} else {
				out.Status("", fmt.Sprintf("cursor %d not found", id))
			}
			return nil
		},
	}
}

func printCursorBatch(cmd *cobra.Command, id int64, rows []cursorstore.Row, done bool) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		CursorID int64             `json:"cursor_id"`
		Done     bool              `json:"done"`
		Rows     []cursorstore.Row `json:"rows"`
	}{CursorID: id, Done: done, Rows: rows})
}

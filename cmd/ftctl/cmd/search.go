package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ftengine/ftengine/internal/output"
	"github.com/ftengine/ftengine/pkg/searcher"
)

func newSearchCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a text/tag/numeric query",
		Long: `Search parses a query against the index's term, tag, and numeric
fields, e.g.:

  ftctl search "hello world"
  ftctl search "@color:{red} hello"
  ftctl search "@price:[5 20]"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, limit int, format string) error {
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
		return fmt.Errorf("search failed: %w", err)
	}

	return formatResults(cmd, query, results, format)
}

func newVectorSearchCmd() *cobra.Command {
	var field string
	var k int
	var vectorCSV string
	var format string

	cmd := &cobra.Command{
		Use:   "vsearch",
		Short: "Run a k-nearest-neighbor vector query",
		Long: `VSearch runs a k-NN query against one vector field:

  ftctl vsearch --field embedding --vector 0.1,0.2,0.3 --k 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVectorSearch(cmd, field, vectorCSV, k, format)
		},
	}

	cmd.Flags().StringVar(&field, "field", "", "Vector field name")
	cmd.Flags().StringVar(&vectorCSV, "vector", "", "Comma-separated query vector, e.g. 0.1,0.2,0.3")
	cmd.Flags().IntVar(&k, "k", 10, "Number of nearest neighbors")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("field")
	_ = cmd.MarkFlagRequired("vector")

	return cmd
}

func runVectorSearch(cmd *cobra.Command, field, vectorCSV string, k int, format string) error {
	query, err := parseVector(vectorCSV)
	if err != nil {
		return err
	}

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

	results, err := s.VectorSearch(ctx, field, query, k)
	if err != nil {
		return fmt.Errorf("vector search failed: %w", err)
	}

	return formatResults(cmd, field, results, format)
}

func parseVector(csv string) ([]float32, error) {
	parts := strings.Split(csv, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func formatResults(cmd *cobra.Command, query string, results []searcher.Result, format string) error {
	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("no results for %q", query))
		return nil
	}
	out.Statusf("", "%d result(s) for %q:", len(results), query)
	for i, r := range results {
		out.Statusf("", "%d. %s (score: %.4f)", i+1, r.ID, r.Score)
	}
	return nil
}

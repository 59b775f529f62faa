package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ftengine/ftengine/internal/engine"
	"github.com/ftengine/ftengine/pkg/indexer"
)

// jsonFieldValue mirrors engine.FieldValue for JSON document input: a
// document only ever sets the one member matching its field's kind.
type jsonFieldValue struct {
	Text    string    `json:"text,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
	Numeric float64   `json:"numeric,omitempty"`
	Vector  []float32 `json:"vector,omitempty"`
}

type jsonDocument struct {
	Key     string                    `json:"key"`
	Score   float32                   `json:"score"`
	Payload string                    `json:"payload,omitempty"`
	Fields  map[string]jsonFieldValue `json:"fields"`
}

func newAddCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace a document",
		Long: `Add reads one JSON document from --file (or stdin if omitted) and
indexes it:

  {
    "key": "doc:1",
    "score": 1.0,
    "fields": {
      "body": {"text": "the quick brown fox"},
      "color": {"tags": ["red"]},
      "price": {"numeric": 9.99}
    }
  }

Adding a document under an existing key replaces it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Document JSON file (default: stdin)")

	return cmd
}

func runAdd(cmd *cobra.Command, file string) error {
	var r io.Reader = cmd.InOrStdin()
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", file, err)
		}
		defer f.Close()
		r = f
	}

	var doc jsonDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}
	if doc.Key == "" {
		return fmt.Errorf("document is missing a key")
	}

	ctx := cmd.Context()
	opened, err := openEngine(ctx, dataDir)
	if err != nil {
		return err
	}
	defer opened.Close(ctx)

	idx, err := indexer.New(indexer.WithEngine(opened.Engine))
	if err != nil {
		return err
	}
	defer idx.Close()

	fields := make(map[string]engine.FieldValue, len(doc.Fields))
	for name, v := range doc.Fields {
		fields[name] = engine.FieldValue{Text: v.Text, Tags: v.Tags, Numeric: v.Numeric, Vector: v.Vector}
	}

	err = idx.Index(ctx, []indexer.Document{{
		Key:     doc.Key,
		Score:   doc.Score,
		Payload: []byte(doc.Payload),
		Fields:  fields,
	}})
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "indexed %q\n", doc.Key)
	return nil
}

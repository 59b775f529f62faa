// Package storeopen owns the on-disk index-directory layout shared by
// every command-line front end (cmd/ftctl, cmd/ftmonitor): a
// schema.json describing field kinds/bits/vector knobs, and a
// doctable.db snapshot internal/dtsnapshot reads and writes. It exists
// so two independent CLI binaries can open the same directory's engine
// identically without duplicating the JSON schema format between them.
package storeopen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ftengine/ftengine/internal/config"
	"github.com/ftengine/ftengine/internal/dtsnapshot"
	"github.com/ftengine/ftengine/internal/engine"
	"github.com/ftengine/ftengine/internal/planner"
	"github.com/ftengine/ftengine/internal/vecindex"
)

// Field is one field's on-disk schema entry. Vector-only fields carry
// dimension/metric/HNSW knobs; text/tag/numeric fields leave them zero.
type Field struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"` // text, tag, numeric, vector
	Bit        uint64 `json:"bit"`
	Dimensions int    `json:"dimensions,omitempty"`
	Metric     string `json:"metric,omitempty"`
	M          int    `json:"m,omitempty"`
	EfSearch   int    `json:"ef_search,omitempty"`
}

// Schema is the full on-disk schema.json document.
type Schema struct {
	Fields []Field `json:"fields"`
}

// SchemaPath and SnapshotPath are the two files a data dir holds.
func SchemaPath(dir string) string   { return filepath.Join(dir, "schema.json") }
func SnapshotPath(dir string) string { return filepath.Join(dir, "doctable.db") }

// LoadSchema reads and parses dir's schema.json.
func LoadSchema(dir string) (*Schema, error) {
	data, err := os.ReadFile(SchemaPath(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read schema (run 'ftctl create' first): %w", err)
	}
	var sf Schema
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return &sf, nil
}

// SaveSchema writes sf to dir's schema.json, creating dir if needed.
func SaveSchema(dir string, sf *Schema) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	data, err := json.MarshalIndent(sf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return os.WriteFile(SchemaPath(dir), data, 0644)
}

// ToPlannerSchema converts the on-disk schema into the planner.Schema
// and per-field vector configs that internal/engine.New expects. Vector
// fields appear in planner.Schema as planner.FieldVector too, so a
// "@field:<k v1,v2,...>" clause can route through the query-string
// planner (internal/planner's Vector-KNN node) in addition to
// Engine.VectorSearch's direct API.
func (sf *Schema) ToPlannerSchema() (*planner.Schema, map[string]vecindex.Config, error) {
	schema := &planner.Schema{Fields: map[string]planner.Field{}}
	vecCfg := map[string]vecindex.Config{}

	for _, f := range sf.Fields {
		switch f.Kind {
		case "text":
			schema.Fields[f.Name] = planner.Field{Name: f.Name, Kind: planner.FieldText, Bit: f.Bit}
		case "tag":
			schema.Fields[f.Name] = planner.Field{Name: f.Name, Kind: planner.FieldTag, Bit: f.Bit}
		case "numeric":
			schema.Fields[f.Name] = planner.Field{Name: f.Name, Kind: planner.FieldNumeric, Bit: f.Bit}
		case "vector":
			schema.Fields[f.Name] = planner.Field{Name: f.Name, Kind: planner.FieldVector, Bit: f.Bit}
			metric := vecindex.Metric(f.Metric)
			if metric == "" {
				metric = vecindex.MetricCosine
			}
			vecCfg[f.Name] = vecindex.Config{
				Dimensions: f.Dimensions,
				Metric:     metric,
				M:          f.M,
				EfSearch:   f.EfSearch,
			}
		default:
			return nil, nil, fmt.Errorf("unknown field kind %q for field %q", f.Kind, f.Name)
		}
	}
	return schema, vecCfg, nil
}

// Opened bundles an engine with the cleanup it needs: flushing the doc
// table back to its snapshot file and closing vector indexes.
type Opened struct {
	Engine *engine.Engine
}

// Open loads the schema from dir, constructs an engine.Engine, and
// attaches its doc-table snapshot so prior runs' documents are visible.
func Open(ctx context.Context, dir string) (*Opened, error) {
	sf, err := LoadSchema(dir)
	if err != nil {
		return nil, err
	}
	schema, vecCfg, err := sf.ToPlannerSchema()
	if err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	cfg.Snapshot.Path = SnapshotPath(dir)

	eng := engine.New(cfg, schema, vecCfg)

	store, err := dtsnapshot.Open(cfg.Snapshot.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open doc-table snapshot: %w", err)
	}
	if err := eng.AttachSnapshot(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to load doc-table snapshot: %w", err)
	}

	return &Opened{Engine: eng}, nil
}

// Close flushes the engine's doc table back to its snapshot and
// releases vector indexes.
func (o *Opened) Close(ctx context.Context) error {
	if err := o.Engine.Snapshot(ctx); err != nil {
		return fmt.Errorf("failed to save doc-table snapshot: %w", err)
	}
	return o.Engine.Close()
}

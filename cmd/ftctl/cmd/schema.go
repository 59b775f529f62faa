package cmd

import (
	"context"

	"github.com/ftengine/ftengine/internal/storeopen"
)

// schemaFieldFile and schemaFile are ftctl's names for the shared
// on-disk schema format internal/storeopen defines, kept so the rest of
// this package reads the same as before the format moved out to be
// shared with cmd/ftmonitor.
type schemaFieldFile = storeopen.Field
type schemaFile = storeopen.Schema

func schemaPath(dir string) string   { return storeopen.SchemaPath(dir) }
func snapshotPath(dir string) string { return storeopen.SnapshotPath(dir) }

func loadSchemaFile(dir string) (*schemaFile, error) { return storeopen.LoadSchema(dir) }

func saveSchemaFile(dir string, sf *schemaFile) error { return storeopen.SaveSchema(dir, sf) }

// openedEngine is ftctl's name for the shared opened-engine handle.
type openedEngine = storeopen.Opened

// openEngine loads the schema from dir, constructs an engine.Engine,
// and attaches its doc-table snapshot so prior runs' documents are
// visible.
func openEngine(ctx context.Context, dir string) (*openedEngine, error) {
	return storeopen.Open(ctx, dir)
}

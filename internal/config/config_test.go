package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfigPassesValidate(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeForkGCThreshold(t *testing.T) {
	cfg := NewConfig()
	cfg.ForkGC.CleanThreshold = 1.5
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveDocTableSize(t *testing.T) {
	cfg := NewConfig()
	cfg.DocTable.MaxDocTableSize = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	cfg := NewConfig()
	cfg.Logging.Level = "verbose"
	require.Error(t, cfg.Validate())
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	yamlContent := `
doc_table:
  max_doc_table_size: 2048
fork_gc:
  clean_threshold: 0.25
query:
  timeout_ms: 1500
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ftengine.yaml"), []byte(yamlContent), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 2048, cfg.DocTable.MaxDocTableSize)
	require.Equal(t, 0.25, cfg.ForkGC.CleanThreshold)
	require.Equal(t, 1500, cfg.Query.TimeoutMS)
	// Untouched fields keep their defaults.
	require.Equal(t, 1_000_000, cfg.Query.MaxSearchResults)
}

func TestLoadPrefersYmlWhenYamlAbsent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ftengine.yml"), []byte("query:\n  timeout_ms: 999\n"), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 999, cfg.Query.TimeoutMS)
}

func TestEnvOverridesBeatProjectFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ftengine.yaml"), []byte("query:\n  timeout_ms: 1500\n"), 0644))
	t.Setenv("FTENGINE_QUERY_TIMEOUT_MS", "7000")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.Query.TimeoutMS)
}

func TestEnvOverrideBoolParsing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Setenv("FTENGINE_NO_MEM_POOL", "true")

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.True(t, cfg.DocTable.NoMemPool)
}

func TestUserConfigIsOverriddenByProjectConfig(t *testing.T) {
	xdgDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgDir)

	userConfigPath := GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(userConfigPath), 0755))
	require.NoError(t, os.WriteFile(userConfigPath, []byte("query:\n  timeout_ms: 100\n"), 0644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".ftengine.yaml"), []byte("query:\n  timeout_ms: 200\n"), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 200, cfg.Query.TimeoutMS)
}

func TestLoadWithNoFilesReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, NewConfig().Query.TimeoutMS, cfg.Query.TimeoutMS)
}

func TestQueryTimeoutConversion(t *testing.T) {
	cfg := NewConfig()
	cfg.Query.TimeoutMS = 250
	require.Equal(t, 250_000_000, int(cfg.QueryTimeout()))
}

func TestGetUserConfigPathRespectsXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdgtest")
	require.Equal(t, "/tmp/xdgtest/ftengine/config.yaml", GetUserConfigPath())
}

func TestUserConfigExistsFalseWhenAbsent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.False(t, UserConfigExists())
}

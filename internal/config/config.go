// Package config implements ftengine's layered configuration: hardcoded
// defaults, overridden by a user/global YAML file, overridden by a
// project-local YAML file, overridden by FTENGINE_* environment
// variables — the same precedence chain the teacher's internal/config
// uses for AmanMCP's settings, recoded around the knobs spec.md §6
// enumerates for this engine instead of chunking/embedding settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is ftengine's complete configuration.
type Config struct {
	Version int `yaml:"version" json:"version"`

	DocTable    DocTableConfig    `yaml:"doc_table" json:"doc_table"`
	ForkGC      ForkGCConfig      `yaml:"fork_gc" json:"fork_gc"`
	Query       QueryConfig       `yaml:"query" json:"query"`
	Cursor      CursorConfig      `yaml:"cursor" json:"cursor"`
	Coordinator CoordinatorConfig `yaml:"coordinator" json:"coordinator"`
	VecIndex    VecIndexConfig    `yaml:"vector_index" json:"vector_index"`
	Snapshot    SnapshotConfig    `yaml:"snapshot" json:"snapshot"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
}

// DocTableConfig holds the doc-table knobs spec.md §6 names.
type DocTableConfig struct {
	// MaxDocTableSize is the bucket upper bound (spec.md §6 maxDocTableSize).
	MaxDocTableSize int `yaml:"max_doc_table_size" json:"max_doc_table_size"`
	// NoMemPool disables the block allocator pool (spec.md §6 noMemPool).
	NoMemPool bool `yaml:"no_mem_pool" json:"no_mem_pool"`
}

// ForkGCConfig mirrors internal/forkgc.Config's knobs by name, per
// spec.md §6's forkGc* entries.
type ForkGCConfig struct {
	RunIntervalSec         int     `yaml:"run_interval_sec" json:"run_interval_sec"`
	RetryIntervalSec       int     `yaml:"retry_interval_sec" json:"retry_interval_sec"`
	CleanThreshold         float64 `yaml:"clean_threshold" json:"clean_threshold"`
	SleepBeforeExitSec     int     `yaml:"sleep_before_exit_sec" json:"sleep_before_exit_sec"`
	CleanNumericEmptyNodes bool    `yaml:"clean_numeric_empty_nodes" json:"clean_numeric_empty_nodes"`
}

// QueryConfig holds per-query limits (spec.md §6 queryTimeoutMS,
// maxSearchResults). MaxPrefixExpansions/MaxSuffixExpansions resolve
// SPEC_FULL.md's Open Question 1: a term-trie `word*` prefix scan and a
// tag-trie `*suffix`/`*contains*` scan are bounded independently, since
// a tag's suffix trie is typically far narrower than a term-trie
// prefix scan.
type QueryConfig struct {
	TimeoutMS           int `yaml:"timeout_ms" json:"timeout_ms"`
	MaxSearchResults    int `yaml:"max_search_results" json:"max_search_results"`
	MaxPrefixExpansions int `yaml:"max_prefix_expansions" json:"max_prefix_expansions"`
	MaxSuffixExpansions int `yaml:"max_suffix_expansions" json:"max_suffix_expansions"`
}

// CursorConfig holds the cursor store's knobs (spec.md §6 cursorMaxIdle;
// Capacity is SPEC_FULL's LRU-bound addition, internal/cursorstore).
type CursorConfig struct {
	MaxIdleSec int `yaml:"max_idle_sec" json:"max_idle_sec"`
	Capacity   int `yaml:"capacity" json:"capacity"`
}

// CoordinatorConfig holds cluster fan-out knobs for internal/coordinator
// (SPEC_FULL domain-stack addition — not named in spec.md §6, since the
// core spec treats sharding as already-decided topology).
type CoordinatorConfig struct {
	MaxInFlightShardRPCs int `yaml:"max_in_flight_shard_rpcs" json:"max_in_flight_shard_rpcs"`
}

// VecIndexConfig holds internal/vecindex's HNSW parameters.
type VecIndexConfig struct {
	Dimensions int `yaml:"dimensions" json:"dimensions"`
	M          int `yaml:"m" json:"m"`
	EfSearch   int `yaml:"ef_search" json:"ef_search"`
}

// SnapshotConfig holds internal/dtsnapshot's persistence path.
type SnapshotConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig mirrors internal/enginelog.Config's fields by name.
type LoggingConfig struct {
	Level         string `yaml:"level" json:"level"`
	FilePath      string `yaml:"file_path" json:"file_path"`
	MaxSizeMB     int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles      int    `yaml:"max_files" json:"max_files"`
	WriteToStderr bool   `yaml:"write_to_stderr" json:"write_to_stderr"`
}

// NewConfig returns the hardcoded defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DocTable: DocTableConfig{
			MaxDocTableSize: 1 << 20,
			NoMemPool:       false,
		},
		ForkGC: ForkGCConfig{
			RunIntervalSec:         30,
			RetryIntervalSec:       5,
			CleanThreshold:         0.1,
			SleepBeforeExitSec:     0,
			CleanNumericEmptyNodes: true,
		},
		Query: QueryConfig{
			TimeoutMS:           500,
			MaxSearchResults:    1_000_000,
			MaxPrefixExpansions: 128,
			MaxSuffixExpansions: 128,
		},
		Cursor: CursorConfig{
			MaxIdleSec: 300,
			Capacity:   1024,
		},
		Coordinator: CoordinatorConfig{
			MaxInFlightShardRPCs: runtime.NumCPU(),
		},
		VecIndex: VecIndexConfig{
			Dimensions: 0, // 0 triggers auto-detect from the first inserted vector
			M:          16,
			EfSearch:   64,
		},
		Snapshot: SnapshotConfig{
			Path: defaultSnapshotPath(),
		},
		Logging: LoggingConfig{
			Level:         "info",
			FilePath:      defaultLogPath(),
			MaxSizeMB:     10,
			MaxFiles:      5,
			WriteToStderr: true,
		},
	}
}

func defaultDotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ftengine")
	}
	return filepath.Join(home, ".ftengine")
}

func defaultSnapshotPath() string {
	return filepath.Join(defaultDotDir(), "doctable.db")
}

func defaultLogPath() string {
	return filepath.Join(defaultDotDir(), "logs", "engine.log")
}

// GetUserConfigPath returns the path to the user/global configuration
// file, following XDG Base Directory conventions:
// $XDG_CONFIG_HOME/ftengine/config.yaml, or ~/.config/ftengine/config.yaml.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ftengine", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ftengine", "config.yaml")
	}
	return filepath.Join(home, ".config", "ftengine", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user config file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadUserConfig() (*Config, error) {
	path := GetUserConfigPath()
	if !fileExists(path) {
		return nil, nil
	}
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load loads configuration from dir in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/ftengine/config.yaml)
//  3. Project config (.ftengine.yaml in dir)
//  4. FTENGINE_* environment variables
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{".ftengine.yaml", ".ftengine.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return c.loadYAML(path)
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays other's non-zero fields onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.DocTable.MaxDocTableSize != 0 {
		c.DocTable.MaxDocTableSize = other.DocTable.MaxDocTableSize
	}
	if other.DocTable.NoMemPool {
		c.DocTable.NoMemPool = true
	}

	if other.ForkGC.RunIntervalSec != 0 {
		c.ForkGC.RunIntervalSec = other.ForkGC.RunIntervalSec
	}
	if other.ForkGC.RetryIntervalSec != 0 {
		c.ForkGC.RetryIntervalSec = other.ForkGC.RetryIntervalSec
	}
	if other.ForkGC.CleanThreshold != 0 {
		c.ForkGC.CleanThreshold = other.ForkGC.CleanThreshold
	}
	if other.ForkGC.SleepBeforeExitSec != 0 {
		c.ForkGC.SleepBeforeExitSec = other.ForkGC.SleepBeforeExitSec
	}
	if other.ForkGC.CleanNumericEmptyNodes {
		c.ForkGC.CleanNumericEmptyNodes = true
	}

	if other.Query.TimeoutMS != 0 {
		c.Query.TimeoutMS = other.Query.TimeoutMS
	}
	if other.Query.MaxSearchResults != 0 {
		c.Query.MaxSearchResults = other.Query.MaxSearchResults
	}
	if other.Query.MaxPrefixExpansions != 0 {
		c.Query.MaxPrefixExpansions = other.Query.MaxPrefixExpansions
	}
	if other.Query.MaxSuffixExpansions != 0 {
		c.Query.MaxSuffixExpansions = other.Query.MaxSuffixExpansions
	}

	if other.Cursor.MaxIdleSec != 0 {
		c.Cursor.MaxIdleSec = other.Cursor.MaxIdleSec
	}
	if other.Cursor.Capacity != 0 {
		c.Cursor.Capacity = other.Cursor.Capacity
	}

	if other.Coordinator.MaxInFlightShardRPCs != 0 {
		c.Coordinator.MaxInFlightShardRPCs = other.Coordinator.MaxInFlightShardRPCs
	}

	if other.VecIndex.Dimensions != 0 {
		c.VecIndex.Dimensions = other.VecIndex.Dimensions
	}
	if other.VecIndex.M != 0 {
		c.VecIndex.M = other.VecIndex.M
	}
	if other.VecIndex.EfSearch != 0 {
		c.VecIndex.EfSearch = other.VecIndex.EfSearch
	}

	if other.Snapshot.Path != "" {
		c.Snapshot.Path = other.Snapshot.Path
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.FilePath != "" {
		c.Logging.FilePath = other.Logging.FilePath
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
	if other.Logging.WriteToStderr {
		c.Logging.WriteToStderr = true
	}
}

// applyEnvOverrides applies FTENGINE_* environment variable overrides,
// the highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("FTENGINE_MAX_DOC_TABLE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DocTable.MaxDocTableSize = n
		}
	}
	if v := os.Getenv("FTENGINE_NO_MEM_POOL"); v != "" {
		c.DocTable.NoMemPool = parseBool(v)
	}
	if v := os.Getenv("FTENGINE_FORK_GC_RUN_INTERVAL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.ForkGC.RunIntervalSec = n
		}
	}
	if v := os.Getenv("FTENGINE_FORK_GC_CLEAN_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ForkGC.CleanThreshold = f
		}
	}
	if v := os.Getenv("FTENGINE_QUERY_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.TimeoutMS = n
		}
	}
	if v := os.Getenv("FTENGINE_MAX_SEARCH_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.MaxSearchResults = n
		}
	}
	if v := os.Getenv("FTENGINE_MAX_PREFIX_EXPANSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.MaxPrefixExpansions = n
		}
	}
	if v := os.Getenv("FTENGINE_MAX_SUFFIX_EXPANSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Query.MaxSuffixExpansions = n
		}
	}
	if v := os.Getenv("FTENGINE_CURSOR_MAX_IDLE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Cursor.MaxIdleSec = n
		}
	}
	if v := os.Getenv("FTENGINE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("FTENGINE_SNAPSHOT_PATH"); v != "" {
		c.Snapshot.Path = v
	}
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Validate checks the configuration for internally-consistent values.
func (c *Config) Validate() error {
	if c.DocTable.MaxDocTableSize <= 0 {
		return fmt.Errorf("doc_table.max_doc_table_size must be positive, got %d", c.DocTable.MaxDocTableSize)
	}
	if c.ForkGC.CleanThreshold < 0 || c.ForkGC.CleanThreshold > 1 {
		return fmt.Errorf("fork_gc.clean_threshold must be between 0 and 1, got %f", c.ForkGC.CleanThreshold)
	}
	if c.ForkGC.RunIntervalSec <= 0 {
		return fmt.Errorf("fork_gc.run_interval_sec must be positive, got %d", c.ForkGC.RunIntervalSec)
	}
	if c.Query.TimeoutMS <= 0 {
		return fmt.Errorf("query.timeout_ms must be positive, got %d", c.Query.TimeoutMS)
	}
	if c.Query.MaxSearchResults <= 0 {
		return fmt.Errorf("query.max_search_results must be positive, got %d", c.Query.MaxSearchResults)
	}
	if c.Query.MaxPrefixExpansions <= 0 {
		return fmt.Errorf("query.max_prefix_expansions must be positive, got %d", c.Query.MaxPrefixExpansions)
	}
	if c.Query.MaxSuffixExpansions <= 0 {
		return fmt.Errorf("query.max_suffix_expansions must be positive, got %d", c.Query.MaxSuffixExpansions)
	}
	if c.Cursor.MaxIdleSec <= 0 {
		return fmt.Errorf("cursor.max_idle_sec must be positive, got %d", c.Cursor.MaxIdleSec)
	}
	if c.Cursor.Capacity <= 0 {
		return fmt.Errorf("cursor.capacity must be positive, got %d", c.Cursor.Capacity)
	}
	if c.Coordinator.MaxInFlightShardRPCs <= 0 {
		return fmt.Errorf("coordinator.max_in_flight_shard_rpcs must be positive, got %d", c.Coordinator.MaxInFlightShardRPCs)
	}
	if c.VecIndex.Dimensions < 0 {
		return fmt.Errorf("vector_index.dimensions must be non-negative, got %d", c.VecIndex.Dimensions)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %s", c.Logging.Level)
	}
	return nil
}

// QueryTimeout returns Query.TimeoutMS as a time.Duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.Query.TimeoutMS) * time.Millisecond
}

// CursorMaxIdle returns Cursor.MaxIdleSec as a time.Duration.
func (c *Config) CursorMaxIdle() time.Duration {
	return time.Duration(c.Cursor.MaxIdleSec) * time.Second
}

// ForkGCRunInterval and ForkGCRetryInterval convert the ForkGC seconds
// fields into time.Duration for internal/forkgc.Config.
func (c *Config) ForkGCRunInterval() time.Duration {
	return time.Duration(c.ForkGC.RunIntervalSec) * time.Second
}

func (c *Config) ForkGCRetryInterval() time.Duration {
	return time.Duration(c.ForkGC.RetryIntervalSec) * time.Second
}

func (c *Config) ForkGCSleepBeforeExit() time.Duration {
	return time.Duration(c.ForkGC.SleepBeforeExitSec) * time.Second
}

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

// Backend names accepted by Config.Backend.
const (
	BackendBleve  = "bleve"
	BackendSQLite = "sqlite"
)

// Watch modes accepted by WatchConfig.Mode.
const (
	WatchModeFsnotify = "fsnotify"
	WatchModePoll     = "poll"
)

// VaultConfigName is the optional per-vault config file at the notes root.
const VaultConfigName = ".notesearch.yaml"

// Config represents the complete notesearch configuration.
type Config struct {
	// NotesRoot is the directory tree that gets indexed.
	NotesRoot string `yaml:"notes_root" json:"notes_root"`

	// IndexDir holds the persistent index and its lock file.
	IndexDir string `yaml:"index_dir" json:"index_dir"`

	// Backend selects the index implementation: "bleve" (default) or "sqlite".
	Backend string `yaml:"backend" json:"backend"`

	// Extensions lists indexable file extensions, lowercase with the dot.
	Extensions []string `yaml:"extensions" json:"extensions"`

	// Exclude holds glob patterns, relative to NotesRoot, that are never indexed.
	Exclude []string `yaml:"exclude" json:"exclude"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Watch  WatchConfig  `yaml:"watch" json:"watch"`
	Search SearchConfig `yaml:"search" json:"search"`
	Index  IndexConfig  `yaml:"index" json:"index"`
}

// WatchConfig configures the change watcher.
type WatchConfig struct {
	// Debounce is the quiet period per path before an event is dispatched.
	Debounce string `yaml:"debounce" json:"debounce"`
	// Mode is "fsnotify" (default) or "poll" for network mounts.
	Mode         string `yaml:"mode" json:"mode"`
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
	EventBuffer  int    `yaml:"event_buffer" json:"event_buffer"`
}

// SearchConfig configures query handling.
type SearchConfig struct {
	// MinQueryLength is the shortest query, in characters, that reaches the
	// index. Shorter queries return no results.
	MinQueryLength int `yaml:"min_query_length" json:"min_query_length"`
	DefaultLimit   int `yaml:"default_limit" json:"default_limit"`
	MaxLimit       int `yaml:"max_limit" json:"max_limit"`
	// CacheSize is the number of cached result pages; 0 disables the cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// IndexConfig configures rebuild and upsert.
type IndexConfig struct {
	Workers     int   `yaml:"workers" json:"workers"`
	BatchSize   int   `yaml:"batch_size" json:"batch_size"`
	MaxFileSize int64 `yaml:"max_file_size" json:"max_file_size"`
}

// NewConfig returns a Config with default values.
func NewConfig() *Config {
	return &Config{
		NotesRoot:  defaultNotesRoot(),
		IndexDir:   DefaultIndexDir(),
		Backend:    BackendBleve,
		Extensions: []string{".md"},
		Exclude:    []string{},
		LogLevel:   "info",
		Watch: WatchConfig{
			Debounce:     "500ms",
			Mode:         WatchModeFsnotify,
			PollInterval: "5s",
			EventBuffer:  1000,
		},
		Search: SearchConfig{
			MinQueryLength: 3,
			DefaultLimit:   20,
			MaxLimit:       100,
			CacheSize:      256,
		},
		Index: IndexConfig{
			Workers:     runtime.NumCPU(),
			BatchSize:   256,
			MaxFileSize: 10 * 1024 * 1024,
		},
	}
}

func defaultNotesRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "Notes")
	}
	return filepath.Join(home, "Documents", "Notes")
}

// DefaultIndexDir returns <user config dir>/notesearch/search-index.
func DefaultIndexDir() string {
	return filepath.Join(GetUserConfigDir(), "search-index")
}

// GetUserConfigPath returns the user config file location, honoring
// XDG_CONFIG_HOME.
func GetUserConfigPath() string {
	return filepath.Join(GetUserConfigDir(), "config.yaml")
}

// GetUserConfigDir returns the notesearch user config directory.
func GetUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "notesearch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "notesearch")
	}
	return filepath.Join(home, ".config", "notesearch")
}

// Load builds the effective configuration:
//  1. defaults
//  2. user config (path, or the user config location when path is empty)
//  3. vault config (<notes_root>/.notesearch.yaml)
//  4. NOTESEARCH_* environment variables
//
// The result is validated with paths made absolute.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = GetUserConfigPath()
	}
	if fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	} else if explicit {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Env can relocate the vault, so resolve it before reading vault config.
	cfg.applyEnvOverrides()
	vaultPath := filepath.Join(ExpandHome(cfg.NotesRoot), VaultConfigName)
	if fileExists(vaultPath) {
		if err := cfg.loadYAML(vaultPath); err != nil {
			return nil, err
		}
		cfg.applyEnvOverrides()
	}

	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
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

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.NotesRoot != "" {
		c.NotesRoot = other.NotesRoot
	}
	if other.IndexDir != "" {
		c.IndexDir = other.IndexDir
	}
	if other.Backend != "" {
		c.Backend = other.Backend
	}
	if len(other.Extensions) > 0 {
		c.Extensions = other.Extensions
	}
	if len(other.Exclude) > 0 {
		// Merge rather than replace so vault excludes add to user excludes.
		c.Exclude = append(c.Exclude, other.Exclude...)
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}

	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.Mode != "" {
		c.Watch.Mode = other.Watch.Mode
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}
	if other.Watch.EventBuffer != 0 {
		c.Watch.EventBuffer = other.Watch.EventBuffer
	}

	if other.Search.MinQueryLength != 0 {
		c.Search.MinQueryLength = other.Search.MinQueryLength
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxLimit != 0 {
		c.Search.MaxLimit = other.Search.MaxLimit
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}

	if other.Index.Workers != 0 {
		c.Index.Workers = other.Index.Workers
	}
	if other.Index.BatchSize != 0 {
		c.Index.BatchSize = other.Index.BatchSize
	}
	if other.Index.MaxFileSize != 0 {
		c.Index.MaxFileSize = other.Index.MaxFileSize
	}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NOTESEARCH_NOTES_ROOT"); v != "" {
		c.NotesRoot = v
	}
	if v := os.Getenv("NOTESEARCH_INDEX_DIR"); v != "" {
		c.IndexDir = v
	}
	if v := os.Getenv("NOTESEARCH_BACKEND"); v != "" {
		c.Backend = v
	}
	if v := os.Getenv("NOTESEARCH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("NOTESEARCH_WATCH_DEBOUNCE"); v != "" {
		c.Watch.Debounce = v
	}
	if v := os.Getenv("NOTESEARCH_WATCH_MODE"); v != "" {
		c.Watch.Mode = v
	}
	// Zero is accepted here so the length gate can be disabled.
	if v := os.Getenv("NOTESEARCH_MIN_QUERY_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.MinQueryLength = n
		}
	}
}

// Normalize expands "~", makes paths absolute and lowercases extensions.
func (c *Config) Normalize() error {
	var err error
	if c.NotesRoot, err = absPath(c.NotesRoot); err != nil {
		return fmt.Errorf("notes_root: %w", err)
	}
	if c.IndexDir, err = absPath(c.IndexDir); err != nil {
		return fmt.Errorf("index_dir: %w", err)
	}
	for i, ext := range c.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.Extensions[i] = ext
	}
	c.Backend = strings.ToLower(c.Backend)
	c.Watch.Mode = strings.ToLower(c.Watch.Mode)
	c.LogLevel = strings.ToLower(c.LogLevel)
	return nil
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("path is empty")
	}
	return filepath.Abs(ExpandHome(p))
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendBleve, BackendSQLite:
	default:
		return fmt.Errorf("backend must be 'bleve' or 'sqlite', got %q", c.Backend)
	}

	switch c.Watch.Mode {
	case WatchModeFsnotify, WatchModePoll:
	default:
		return fmt.Errorf("watch.mode must be 'fsnotify' or 'poll', got %q", c.Watch.Mode)
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	if _, err := c.PollIntervalDuration(); err != nil {
		return err
	}
	if c.Watch.EventBuffer < 0 {
		return fmt.Errorf("watch.event_buffer must be non-negative, got %d", c.Watch.EventBuffer)
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if len(ext) < 2 {
			return fmt.Errorf("invalid extension %q", ext)
		}
	}

	if c.Search.MinQueryLength < 0 {
		return fmt.Errorf("search.min_query_length must be non-negative, got %d", c.Search.MinQueryLength)
	}
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search.max_limit (%d) must be >= search.default_limit (%d)", c.Search.MaxLimit, c.Search.DefaultLimit)
	}
	if c.Search.CacheSize < 0 {
		return fmt.Errorf("search.cache_size must be non-negative, got %d", c.Search.CacheSize)
	}

	if c.Index.Workers < 1 {
		return fmt.Errorf("index.workers must be positive, got %d", c.Index.Workers)
	}
	if c.Index.BatchSize < 1 {
		return fmt.Errorf("index.batch_size must be positive, got %d", c.Index.BatchSize)
	}
	if c.Index.MaxFileSize < 0 {
		return fmt.Errorf("index.max_file_size must be non-negative, got %d", c.Index.MaxFileSize)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.LogLevel)
	}

	return nil
}

// DebounceDuration parses Watch.Debounce.
func (c *Config) DebounceDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("watch.debounce must be a non-negative duration, got %q", c.Watch.Debounce)
	}
	return d, nil
}

// PollIntervalDuration parses Watch.PollInterval.
func (c *Config) PollIntervalDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Watch.PollInterval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("watch.poll_interval must be a positive duration, got %q", c.Watch.PollInterval)
	}
	return d, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

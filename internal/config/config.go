package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Config is the top-level configuration for icerep
type Config struct {
	// ChipDB is the chip database file; empty selects the built-in fixture
	ChipDB string `json:"chipdb,omitempty"`

	// Fixture sizes the built-in chip database
	Fixture FixtureConfig `json:"fixture,omitempty"`

	// Requests lists the request files processed by a batch run
	Requests RequestsConfig `json:"requests,omitempty"`

	// Lint contains representation lint configuration
	Lint LintConfig `json:"lint,omitempty"`

	// Cache controls reuse of generated representations
	Cache CacheConfig `json:"cache,omitempty"`

	// Timing is the path of the JSONL stage timing file (empty = off)
	Timing string `json:"timing,omitempty"`

	// Log configures the logger
	Log LogConfig `json:"log,omitempty"`

	// Decode contains chromosome decoding options
	Decode DecodeConfig `json:"decode,omitempty"`
}

// FixtureConfig is the logic tile block generated when no chip database is set
type FixtureConfig struct {
	Width  int `json:"width" validate:"min=1,max=64"`
	Height int `json:"height" validate:"min=1,max=64"`
}

// RequestsConfig defines which request files belong to a project
type RequestsConfig struct {
	// Files is a list of glob patterns for request files
	Files []string `json:"files"`

	// Exclude is a list of glob patterns to skip
	Exclude []string `json:"exclude,omitempty"`
}

// LintConfig contains representation lint configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" validate:"dive,oneof=off info warning error"`

	// PolicyDir holds additional .rego files evaluated with the built-in policy
	PolicyDir string `json:"policyDir,omitempty"`
}

// CacheConfig controls the representation cache
type CacheConfig struct {
	// Enabled turns on cache usage
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty"`
}

// LogConfig selects level and handler of the logger
type LogConfig struct {
	Level  string `json:"level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	Format string `json:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// DecodeConfig contains chromosome decoding options
type DecodeConfig struct {
	// Workers limits concurrent decodes (0 = auto)
	Workers int `json:"workers,omitempty" validate:"min=0"`
}

const (
	defaultCacheDir = ".icerep_cache"
	defaultFixture  = 4
)

var structValidate = validator.New()

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Fixture: FixtureConfig{Width: defaultFixture, Height: defaultFixture},
		Requests: RequestsConfig{
			Files:   []string{"*.yaml", "*.yml", "requests/**/*.yaml", "requests/**/*.yml"},
			Exclude: []string{},
		},
		Lint: LintConfig{
			Rules: map[string]string{},
		},
		Cache: CacheConfig{
			Enabled: boolPtr(true),
			Dir:     defaultCacheDir,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./icerep.json (current working directory)
//  2. ./.icerep.json (current working directory)
//  3. <rootPath>/icerep.json (if different from cwd)
//  4. ~/.config/icerep/config.json
//
// Returns DefaultConfig if no config file is found. Environment overrides
// are applied in both cases.
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "icerep.json"),
		filepath.Join(cwd, ".icerep.json"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "icerep.json"),
				filepath.Join(rootPath, ".icerep.json"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "icerep", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	cfg := DefaultConfig()
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile loads configuration from a specific file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return &cfg, nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if c.Fixture.Width == 0 {
		c.Fixture.Width = defaultFixture
	}
	if c.Fixture.Height == 0 {
		c.Fixture.Height = defaultFixture
	}

	if c.Requests.Files == nil {
		c.Requests.Files = DefaultConfig().Requests.Files
	}

	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}

	if c.Cache.Dir == "" {
		c.Cache.Dir = defaultCacheDir
	}
	if c.Cache.Enabled == nil {
		c.Cache.Enabled = boolPtr(true)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// applyEnv lets ICEREP_CHIPDB, ICEREP_LOG_LEVEL and ICEREP_TIMING override the file
func (c *Config) applyEnv() {
	if v := os.Getenv("ICEREP_CHIPDB"); v != "" {
		c.ChipDB = v
	}
	if v := os.Getenv("ICEREP_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ICEREP_TIMING"); v != "" {
		c.Timing = v
	}
}

// Validate checks the field constraints
func (c *Config) Validate() error {
	if err := structValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CacheEnabled reports whether generated representations may be reused
func (c *Config) CacheEnabled() bool {
	return c.Cache.Enabled != nil && *c.Cache.Enabled
}

// CacheDir resolves the cache directory against the project root
func (c *Config) CacheDir(rootPath string) string {
	baseDir := rootPath
	if info, err := os.Stat(rootPath); err == nil && !info.IsDir() {
		baseDir = filepath.Dir(rootPath)
	}
	dir := c.Cache.Dir
	if dir == "" {
		dir = defaultCacheDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(baseDir, dir)
	}
	return dir
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true
}

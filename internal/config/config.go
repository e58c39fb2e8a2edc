package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string
	TestPath    string
	Pattern     string

	// Output settings
	OutputJSONFile string
	OutputJSONDir  string
	ResultsDSN     string

	// Watch settings
	Debounce time.Duration

	// Paths to ignore when scanning
	PathsToIgnore []string

	// Command flags
	Flags Flags
}

// Flags holds command-line flags
type Flags struct {
	ProjectPath string
	TestPath    string
	NameFilter  string
	Pattern     string
	Paths       []string
	Watch       bool
	Verbose     bool
	Quiet       bool
	Debug       bool
	TestCases   bool
	OpenFaills  bool
}

// fileConfig is the layout of .testpass.yml.
type fileConfig struct {
	TestPath   string   `yaml:"test_path"`
	Pattern    string   `yaml:"pattern"`
	Ignore     []string `yaml:"ignore"`
	Debounce   string   `yaml:"debounce"`
	ResultsDSN string   `yaml:"results_dsn"`
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:    DefaultProjectPath,
		TestPath:       DefaultTestPath,
		Pattern:        DefaultPattern,
		OutputJSONFile: DefaultOutputJSONFile,
		OutputJSONDir:  DefaultOutputJSONDir,
		Debounce:       DefaultDebounce,
	}
	// Copy default paths to ignore
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// Load creates a config and applies flags
func Load(flags Flags) (*Config, error) {
	cfg := New()
	if err := cfg.Apply(flags); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply layers the project files, the environment and flags over the
// current values, in that order.
func (c *Config) Apply(flags Flags) error {
	c.Flags = flags
	if flags.ProjectPath != "" {
		c.ProjectPath = flags.ProjectPath
	}

	// Variables already set in the environment win over .env.
	envPath := filepath.Join(c.ProjectPath, EnvFileName)
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envPath, err)
	}

	if err := c.loadFile(filepath.Join(c.ProjectPath, FileName)); err != nil {
		return err
	}
	if err := c.applyEnvOverrides(); err != nil {
		return err
	}

	if flags.Pattern != "" {
		c.Pattern = flags.Pattern
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if file.TestPath != "" {
		c.TestPath = file.TestPath
	}
	if file.Pattern != "" {
		c.Pattern = file.Pattern
	}
	c.PathsToIgnore = append(c.PathsToIgnore, file.Ignore...)
	if file.Debounce != "" {
		d, err := time.ParseDuration(file.Debounce)
		if err != nil {
			return fmt.Errorf("invalid debounce in %s: %w", path, err)
		}
		c.Debounce = d
	}
	if file.ResultsDSN != "" {
		c.ResultsDSN = file.ResultsDSN
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if dsn := os.Getenv(EnvResultsDSN); dsn != "" {
		c.ResultsDSN = dsn
	}
	if pattern := os.Getenv(EnvPattern); pattern != "" {
		c.Pattern = pattern
	}
	if value := os.Getenv(EnvDebounce); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvDebounce, err)
		}
		c.Debounce = d
	}
	return nil
}

// GetTestPath returns the test path, using flag if provided
func (c *Config) GetTestPath() string {
	if c.Flags.TestPath != "" {
		// If TestPath is provided, make it relative to the project path if it's not absolute
		if filepath.IsAbs(c.Flags.TestPath) {
			return c.Flags.TestPath
		}
		return filepath.Join(c.ProjectPath, c.Flags.TestPath)
	}

	// Default: combine project path and test path
	return filepath.Join(c.ProjectPath, c.TestPath)
}

// GetOutputPath returns the full path to the output JSON file (under project so run and faills use the same file).
// Resolves to an absolute path so run and faills always read/write the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// IsIgnored reports whether a directory with the given name is skipped
// when scanning and watching.
func (c *Config) IsIgnored(name string) bool {
	for _, ignored := range c.PathsToIgnore {
		if ignored == name {
			return true
		}
	}
	return false
}

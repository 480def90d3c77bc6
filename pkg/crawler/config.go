package crawler

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/urlharvest/urlharvest/internal/browser"
)

// Config holds all crawler configuration.
type Config struct {
	// Site is the bare host the crawl is scoped to, e.g. "example.com".
	Site string `json:"site" yaml:"site"`

	// StartURL seeds a fresh crawl. Ignored on resume.
	StartURL string `json:"start_url" yaml:"start_url"`

	// Output directory and checkpoint file name
	OutputDir  string `json:"output_dir" yaml:"output_dir"`
	OutputFile string `json:"output_file" yaml:"output_file"`

	// JournalFile is the visit journal database path. Empty disables it.
	JournalFile string `json:"journal_file" yaml:"journal_file"`

	// MaxPages bounds pages processed per session
	MaxPages int `json:"max_pages" yaml:"max_pages"`

	// Delay range between consecutive page visits
	DelayMin time.Duration `json:"delay_min" yaml:"delay_min"`
	DelayMax time.Duration `json:"delay_max" yaml:"delay_max"`

	// Backoff range between retry attempts, wider than the page delay
	BackoffMin time.Duration `json:"backoff_min" yaml:"backoff_min"`
	BackoffMax time.Duration `json:"backoff_max" yaml:"backoff_max"`

	// Per-operation browser timeout
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Retries is the total number of attempts per URL
	Retries int `json:"retries" yaml:"retries"`

	// Stealth runs the browser headless with the anti-detection profile
	Stealth bool `json:"stealth" yaml:"stealth"`

	// Seed fixes the session randomness when non-zero
	Seed int64 `json:"seed" yaml:"seed"`

	// Browser configuration
	Browser browser.Config `json:"browser" yaml:"browser"`

	// Verbose logging
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Debug mode
	Debug bool `json:"debug" yaml:"debug"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:   "urls_job/output_url",
		OutputFile:  "urls.json",
		JournalFile: "",
		MaxPages:    100,
		DelayMin:    2 * time.Second,
		DelayMax:    5 * time.Second,
		BackoffMin:  5 * time.Second,
		BackoffMax:  10 * time.Second,
		Timeout:     30 * time.Second,
		Retries:     3,
		Stealth:     true,
		Browser:     browser.DefaultConfig(),
		Verbose:     false,
		Debug:       false,
	}
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()

	// Try YAML first, then JSON
	if err := yaml.Unmarshal(data, config); err != nil {
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a file.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Site == "" {
		return fmt.Errorf("site is required")
	}

	if c.StartURL == "" {
		return fmt.Errorf("start URL is required")
	}

	if c.MaxPages < 1 {
		return fmt.Errorf("max pages must be at least 1")
	}

	if c.Retries < 1 {
		return fmt.Errorf("retries must be at least 1")
	}

	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("page delay range is invalid")
	}

	if c.BackoffMin < 0 || c.BackoffMax < c.BackoffMin {
		return fmt.Errorf("backoff range is invalid")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	data, _ := json.Marshal(c)
	clone := &Config{}
	json.Unmarshal(data, clone)
	return clone
}

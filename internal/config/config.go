// CLAUDE:SUMMARY Defines flagwatch config structs and parses YAML configuration files with defaults.
// Package config handles flagwatch configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/flagwatch/blocklist"
	"github.com/hazyhaar/flagwatch/engine"
	"github.com/hazyhaar/flagwatch/surface"
)

// Config is the top-level flagwatch configuration.
type Config struct {
	Blocklist BlocklistConfig `yaml:"blocklist"`
	Scan      ScanConfig      `yaml:"scan"`
	Markup    surface.Markup  `yaml:"markup"`
	Label     engine.Label    `yaml:"label"`
	Browser   BrowserConfig   `yaml:"browser"`
	Page      PageConfig      `yaml:"page"`
	Sinks     []SinkConfig    `yaml:"sinks"`
	// Listen is the status server address; empty disables it.
	Listen string `yaml:"listen"`
}

// BlocklistConfig controls the one-shot list retrieval.
type BlocklistConfig struct {
	Source   string        `yaml:"source"` // http(s) URL, file:// URL or path
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
	// UserAgent overrides the loader's default User-Agent header.
	UserAgent string `yaml:"user_agent"`
}

// ScanConfig controls the engine.
type ScanConfig struct {
	Interval   time.Duration `yaml:"interval"`
	Workers    int           `yaml:"workers"`
	QueueSize  int           `yaml:"queue_size"`
	LedgerSize int           `yaml:"ledger_size"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote           string   `yaml:"remote"`
	Mode             string   `yaml:"mode"` // headless | headful
	Stealth          bool     `yaml:"stealth"`
	UserDataDir      string   `yaml:"user_data_dir"`
	ResourceBlocking []string `yaml:"resource_blocking"`
	XvfbDisplay      string   `yaml:"xvfb_display"`
}

// PageConfig defines the page to annotate.
type PageConfig struct {
	URL             string        `yaml:"url"`
	NavigateTimeout time.Duration `yaml:"navigate_timeout"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | sqlite
	Path string `yaml:"path"` // for sqlite

	// webhook
	URL           string        `yaml:"url"`
	Retries       int           `yaml:"retries"`
	Queue         int           `yaml:"queue"`
	Batch         int           `yaml:"batch"`
	FlushInterval time.Duration `yaml:"flush_interval"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch c.Browser.Mode {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.mode %q: want headless or headful", c.Browser.Mode)
	}
	for i, s := range c.Sinks {
		switch s.Type {
		case "stdout":
		case "webhook":
			if s.URL == "" {
				return fmt.Errorf("config: sinks[%d]: webhook needs url", i)
			}
		case "sqlite":
			if s.Path == "" {
				return fmt.Errorf("config: sinks[%d]: sqlite needs path", i)
			}
		default:
			return fmt.Errorf("config: sinks[%d]: unknown type %q", i, s.Type)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Blocklist.Source == "" {
		c.Blocklist.Source = blocklist.DefaultSource
	}
	if c.Blocklist.Timeout <= 0 {
		c.Blocklist.Timeout = 30 * time.Second
	}
	if c.Blocklist.MaxBytes <= 0 {
		c.Blocklist.MaxBytes = blocklist.DefaultMaxBytes
	}
	if c.Scan.Interval <= 0 {
		c.Scan.Interval = time.Second
	}
	if c.Scan.Workers <= 0 {
		c.Scan.Workers = 4
	}
	if c.Scan.QueueSize <= 0 {
		c.Scan.QueueSize = 256
	}
	if c.Scan.LedgerSize <= 0 {
		c.Scan.LedgerSize = surface.DefaultLedgerSize
	}
	c.Markup = c.Markup.WithDefaults()
	c.Label = c.Label.WithDefaults()
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Page.URL == "" {
		c.Page.URL = "https://x.com/home"
	}
	if c.Page.NavigateTimeout <= 0 {
		c.Page.NavigateTimeout = 30 * time.Second
	}
	for i := range c.Sinks {
		s := &c.Sinks[i]
		if s.Type != "webhook" {
			continue
		}
		if s.Retries <= 0 {
			s.Retries = 3
		}
		if s.Queue <= 0 {
			s.Queue = 1024
		}
		if s.Batch <= 0 {
			s.Batch = 32
		}
		if s.FlushInterval <= 0 {
			s.FlushInterval = 2 * time.Second
		}
	}
}

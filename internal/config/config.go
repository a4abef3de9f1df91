// Package config provides configuration management for mdmx.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultAddr    = ":8787"
	DefaultHTMXSrc = "https://unpkg.com/htmx.org@1.9.10"
)

// Config holds the mdmx configuration.
type Config struct {
	Addr             string `yaml:"addr,omitempty"`
	PagesDir         string `yaml:"pages_dir,omitempty"`
	HTMXSrc          string `yaml:"htmx_src,omitempty"`
	LegacyVerbPrefix bool   `yaml:"legacy_verb_prefix,omitempty"`
	UnsafeHTML       *bool  `yaml:"unsafe_html,omitempty"`
}

// EnvVars lists every environment variable that overrides the config file.
var EnvVars = []string{
	"MDMX_ADDR",
	"MDMX_PAGES_DIR",
	"MDMX_HTMX_SRC",
	"MDMX_LEGACY_VERB_PREFIX",
	"MDMX_UNSAFE_HTML",
}

// Validate checks that the configured values are usable.
func (c *Config) Validate() error {
	if c.Addr != "" {
		if _, port, err := net.SplitHostPort(c.Addr); err != nil {
			return fmt.Errorf("addr %q is invalid: %w", c.Addr, err)
		} else if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("addr %q has a non-numeric port", c.Addr)
		}
	}

	if c.HTMXSrc != "" && !strings.HasPrefix(c.HTMXSrc, "https://") && !strings.HasPrefix(c.HTMXSrc, "http://") {
		return errors.New("htmx_src must be an http(s) URL")
	}

	if c.PagesDir != "" {
		info, err := os.Stat(c.PagesDir)
		if err != nil {
			return fmt.Errorf("pages_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("pages_dir %q is not a directory", c.PagesDir)
		}
	}

	return nil
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.HTMXSrc == "" {
		c.HTMXSrc = DefaultHTMXSrc
	}
	if c.UnsafeHTML == nil {
		unsafe := true
		c.UnsafeHTML = &unsafe
	}
}

// AllowUnsafeHTML reports whether raw HTML in pages is emitted. Defaults to true.
func (c *Config) AllowUnsafeHTML() bool {
	return c.UnsafeHTML == nil || *c.UnsafeHTML
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables override existing values only if set and non-empty.
func (c *Config) LoadFromEnv() {
	if addr := os.Getenv("MDMX_ADDR"); addr != "" {
		c.Addr = addr
	}
	if dir := os.Getenv("MDMX_PAGES_DIR"); dir != "" {
		c.PagesDir = dir
	}
	if src := os.Getenv("MDMX_HTMX_SRC"); src != "" {
		c.HTMXSrc = src
	}
	if v, ok := envBool("MDMX_LEGACY_VERB_PREFIX"); ok {
		c.LegacyVerbPrefix = v
	}
	if v, ok := envBool("MDMX_UNSAFE_HTML"); ok {
		c.UnsafeHTML = &v
	}
}

// envBool parses a boolean environment variable. Unparsable values are ignored.
func envBool(name string) (bool, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	// Try XDG config directory first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "mdmx", "config.yml")
	}

	// Fall back to ~/.config/mdmx/config.yml
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".mdmx", "config.yml")
	}

	return filepath.Join(home, ".config", "mdmx", "config.yml")
}

// Save writes the configuration to the specified path.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads the configuration from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from file and overrides with environment variables.
// A missing file is not an error; a malformed one is.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}

	cfg.LoadFromEnv()
	return cfg, nil
}

// Resolve loads the file at path (the default path when empty), applies
// environment overrides and defaults, and validates the result.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	cfg, err := LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

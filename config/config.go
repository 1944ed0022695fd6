// Package config provides configuration loading and management for RoomNote's
// complaint rewrite tooling.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Config represents the complete softsend configuration
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Rewrite  RewriteConfig  `yaml:"rewrite"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig configures the LLM batch provider settings
type ProviderConfig struct {
	// Model is the model slug stamped into every batch request
	Model string `yaml:"model"`
	// DisableStructuredOutput drops the json_schema response format from
	// built requests, for providers that reject it
	DisableStructuredOutput bool `yaml:"disable_structured_output"`
}

// RewriteConfig configures how rewrite requests are assembled
type RewriteConfig struct {
	// PromptVersion is recorded in request metadata and payloads
	PromptVersion string `yaml:"prompt_version"`
	// DefaultTargetLocale is used when a request carries no locale
	DefaultTargetLocale string `yaml:"default_target_locale"`
	// DisableContextSignals sends null context signals instead of the
	// minimized projection
	DisableContextSignals bool `yaml:"disable_context_signals"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Model: "gpt-4.1-mini",
		},
		Rewrite: RewriteConfig{
			PromptVersion:       "complaint_rewrite_v3",
			DefaultTargetLocale: "en-US",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Provider.Model == "" {
		return fmt.Errorf("provider.model is required")
	}
	if c.Rewrite.PromptVersion == "" {
		return fmt.Errorf("rewrite.prompt_version is required")
	}
	if c.Rewrite.DefaultTargetLocale == "" {
		return fmt.Errorf("rewrite.default_target_locale is required")
	}
	if _, err := language.Parse(c.Rewrite.DefaultTargetLocale); err != nil {
		return fmt.Errorf("rewrite.default_target_locale %q is not a BCP 47 tag: %w", c.Rewrite.DefaultTargetLocale, err)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
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

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Provider
	if other.Provider.Model != "" {
		c.Provider.Model = other.Provider.Model
	}
	if other.Provider.DisableStructuredOutput {
		c.Provider.DisableStructuredOutput = true
	}

	// Rewrite
	if other.Rewrite.PromptVersion != "" {
		c.Rewrite.PromptVersion = other.Rewrite.PromptVersion
	}
	if other.Rewrite.DefaultTargetLocale != "" {
		c.Rewrite.DefaultTargetLocale = other.Rewrite.DefaultTargetLocale
	}
	if other.Rewrite.DisableContextSignals {
		c.Rewrite.DisableContextSignals = true
	}

	// Log
	if other.Log.Level != "" {
		c.Log.Level = other.Log.Level
	}
}

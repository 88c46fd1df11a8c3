// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for persona.
//
// Supports TOML configuration with sensible defaults and environment
// variable overrides.
//
// Configuration file locations (in order of precedence):
//   - ~/.persona/config.toml
//   - Built-in defaults
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete persona configuration.
type Config struct {
	// Version of the config schema
	Version string `toml:"version"`

	// DataDir is where the embedded store and snapshots live
	// (default: ~/.persona)
	DataDir string `toml:"data_dir"`

	// Generation holds the default generation parameters for new presets
	Generation GenerationConfig `toml:"generation"`

	// Prompt holds assembly-related settings
	Prompt PromptConfig `toml:"prompt"`
}

// GenerationConfig contains default generation parameters.
type GenerationConfig struct {
	// Temperature is the default generation randomness
	Temperature float64 `toml:"temperature"`
	// MaxTokens is the default generation length cap
	MaxTokens int `toml:"max_tokens"`
	// ContextLength is the default token budget for assembled requests
	ContextLength int `toml:"context_length"`
}

// PromptConfig contains prompt assembly settings.
type PromptConfig struct {
	// TriggerWindow is how many recent messages trigger keywords scan
	TriggerWindow int `toml:"trigger_window"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in defaults.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Version: "1",
		DataDir: filepath.Join(home, ".persona"),
		Generation: GenerationConfig{
			Temperature:   0.8,
			MaxTokens:     1024,
			ContextLength: 8192,
		},
		Prompt: PromptConfig{
			TriggerWindow: 4,
		},
	}
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads configuration from the default location, falling back to
// defaults when no file exists, then applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()

	path := filepath.Join(cfg.DataDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies PERSONA_* environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("PERSONA_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("PERSONA_CONTEXT_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Generation.ContextLength = n
		}
	}
	if v := os.Getenv("PERSONA_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Generation.MaxTokens = n
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration, clamping recoverable values and
// rejecting unusable ones.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.Generation.Temperature < 0 {
		c.Generation.Temperature = 0
	}
	if c.Generation.Temperature > 2 {
		c.Generation.Temperature = 2
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 1024
	}
	if c.Generation.ContextLength <= 0 {
		c.Generation.ContextLength = 8192
	}
	if c.Prompt.TriggerWindow <= 0 {
		c.Prompt.TriggerWindow = 4
	}
	return nil
}

// DatabasePath returns the path of the embedded store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "persona.db")
}

// Save writes the configuration to the default location.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(c.DataDir, "config.toml"))
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

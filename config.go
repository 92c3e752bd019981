// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/hub/identity"
)

// Config controls how a Hub is built. The zero value is valid: every kind
// allocates its own identities and metrics are off.
type Config struct {
	// DefaultMode is the identity mode of every kind not listed in Modes.
	DefaultMode identity.Mode

	// Modes overrides the identity mode per kind.
	Modes map[identity.Kind]identity.Mode

	// MeterProvider, when set, receives registry counters. Not read from
	// config files.
	MeterProvider metric.MeterProvider
}

// DefaultConfig returns a single-process configuration.
func DefaultConfig() Config {
	return Config{DefaultMode: identity.LocalAllocation}
}

// SplitConfig returns a configuration in which every kind binds identities
// issued by a remote client.
func SplitConfig() Config {
	return Config{DefaultMode: identity.ExternalIdentity}
}

// ModeFor returns the identity mode configured for kind.
func (c Config) ModeFor(kind identity.Kind) identity.Mode {
	if m, ok := c.Modes[kind]; ok {
		return m
	}
	return c.DefaultMode
}

// fileConfig is the on-disk form of Config.
type fileConfig struct {
	DefaultMode string            `yaml:"default_mode" json:"default_mode"`
	Modes       map[string]string `yaml:"modes" json:"modes"`
}

// LoadConfig reads a configuration file, choosing the format by extension.
// Supported extensions: .yaml, .yml, .json
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("hub: read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return ParseConfig(data)
	case ".json":
		var fc fileConfig
		if err := json.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("hub: parse json: %w", err)
		}
		return fc.config()
	default:
		return Config{}, fmt.Errorf("hub: unsupported config file extension: %s", ext)
	}
}

// ParseConfig parses YAML configuration:
//
//	default_mode: local
//	modes:
//	  buffer: external
//	  texture: external
//
// Unknown kinds and modes are errors.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("hub: parse yaml: %w", err)
	}
	return fc.config()
}

func (fc fileConfig) config() (Config, error) {
	cfg := DefaultConfig()
	if fc.DefaultMode != "" {
		m, err := identity.ParseMode(fc.DefaultMode)
		if err != nil {
			return Config{}, fmt.Errorf("hub: default_mode: %w", err)
		}
		cfg.DefaultMode = m
	}
	if len(fc.Modes) > 0 {
		cfg.Modes = make(map[identity.Kind]identity.Mode, len(fc.Modes))
	}
	for name, mode := range fc.Modes {
		k, err := identity.ParseKind(name)
		if err != nil {
			return Config{}, fmt.Errorf("hub: modes: %w", err)
		}
		m, err := identity.ParseMode(mode)
		if err != nil {
			return Config{}, fmt.Errorf("hub: modes.%s: %w", name, err)
		}
		cfg.Modes[k] = m
	}
	return cfg, nil
}

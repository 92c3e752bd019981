// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hub

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/hub/identity"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
default_mode: local
modes:
  buffer: external
  texture-view: external_identity
`))
	if err != nil {
		t.Fatalf("ParseConfig() = %v", err)
	}

	tests := []struct {
		kind identity.Kind
		want identity.Mode
	}{
		{identity.KindBuffer, identity.ExternalIdentity},
		{identity.KindTextureView, identity.ExternalIdentity},
		{identity.KindDevice, identity.LocalAllocation},
	}
	for _, tt := range tests {
		if got := cfg.ModeFor(tt.kind); got != tt.want {
			t.Errorf("ModeFor(%v) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := ParseConfig(nil)
	if err != nil {
		t.Fatalf("ParseConfig(nil) = %v", err)
	}
	if cfg.DefaultMode != identity.LocalAllocation || len(cfg.Modes) != 0 {
		t.Errorf("ParseConfig(nil) = %+v", cfg)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad default", "default_mode: remote\n", "default_mode"},
		{"bad kind", "modes:\n  framebuffer: local\n", "unknown resource kind"},
		{"bad mode", "modes:\n  buffer: shared\n", "modes.buffer"},
		{"bad yaml", "modes: [\n", "parse yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("ParseConfig() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "hub.yaml")
	if err := os.WriteFile(yamlPath, []byte("default_mode: external\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(yamlPath)
	if err != nil {
		t.Fatalf("LoadConfig(yaml) = %v", err)
	}
	if cfg.DefaultMode != identity.ExternalIdentity {
		t.Errorf("DefaultMode = %v, want external", cfg.DefaultMode)
	}

	jsonPath := filepath.Join(dir, "hub.json")
	if err := os.WriteFile(jsonPath, []byte(`{"modes":{"sampler":"external"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadConfig(jsonPath)
	if err != nil {
		t.Fatalf("LoadConfig(json) = %v", err)
	}
	if cfg.ModeFor(identity.KindSampler) != identity.ExternalIdentity || cfg.ModeFor(identity.KindBuffer) != identity.LocalAllocation {
		t.Errorf("LoadConfig(json) = %+v", cfg)
	}

	if _, err := LoadConfig(filepath.Join(dir, "hub.toml")); err == nil {
		t.Error("LoadConfig(missing .toml) succeeded")
	}
	tomlPath := filepath.Join(dir, "present.toml")
	_ = os.WriteFile(tomlPath, nil, 0o600)
	if _, err := LoadConfig(tomlPath); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("LoadConfig(.toml) error = %v", err)
	}
}

func TestSplitConfig(t *testing.T) {
	h := New(SplitConfig())
	for _, s := range h.Stats() {
		if s.Mode != identity.ExternalIdentity {
			t.Errorf("%v mode = %v, want external", s.Kind, s.Mode)
		}
	}
}

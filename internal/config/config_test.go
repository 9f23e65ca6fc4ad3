// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration does not validate: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Engine.Alpha != 0.7 {
		t.Errorf("engine.alpha = %g, want 0.7", cfg.Engine.Alpha)
	}
	if cfg.Content.MaxFeatures != 5000 {
		t.Errorf("content.max_features = %d, want 5000", cfg.Content.MaxFeatures)
	}
	if cfg.Collab.Factors != 64 || cfg.Collab.Iterations != 30 {
		t.Errorf("collab = %d factors / %d iterations, want 64/30", cfg.Collab.Factors, cfg.Collab.Iterations)
	}
	if cfg.Popularity.TopN != 50 {
		t.Errorf("popularity.top_n = %d, want 50", cfg.Popularity.TopN)
	}
	if cfg.Training.Interval != 168*time.Hour {
		t.Errorf("training.interval = %s, want 168h", cfg.Training.Interval)
	}
	if cfg.Training.MaxRetries != 2 || cfg.Training.RetryDelay != 60*time.Second {
		t.Errorf("retry budget = %d/%s, want 2/60s", cfg.Training.MaxRetries, cfg.Training.RetryDelay)
	}
	if cfg.Redis.StatusKey != "model:retrain:latest" {
		t.Errorf("redis.status_key = %q", cfg.Redis.StatusKey)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BOOKREC_SERVER_PORT", "9100")
	t.Setenv("BOOKREC_ENGINE_ALPHA", "0.5")
	t.Setenv("BOOKREC_COLLAB_FACTORS", "16")
	t.Setenv("BOOKREC_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("server.port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Engine.Alpha != 0.5 {
		t.Errorf("engine.alpha = %g, want 0.5", cfg.Engine.Alpha)
	}
	if cfg.Collab.Factors != 16 {
		t.Errorf("collab.factors = %d, want 16", cfg.Collab.Factors)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging.level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadUnmappedEnvIgnored(t *testing.T) {
	t.Setenv("BOOKREC_NO_SUCH_KEY", "whatever")

	if _, err := Load(); err != nil {
		t.Fatalf("Load with unmapped env var: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookrec.yaml")
	yaml := []byte("server:\n  port: 9200\nengine:\n  alpha: 0.6\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("server.port = %d, want 9200 from file", cfg.Server.Port)
	}
	if cfg.Engine.Alpha != 0.6 {
		t.Errorf("engine.alpha = %g, want 0.6 from file", cfg.Engine.Alpha)
	}
	// Untouched keys keep their defaults.
	if cfg.Content.MaxFeatures != 5000 {
		t.Errorf("content.max_features = %d, want default 5000", cfg.Content.MaxFeatures)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bookrec.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9200\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("BOOKREC_SERVER_PORT", "9300")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9300 {
		t.Errorf("server.port = %d, want env override 9300", cfg.Server.Port)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"alpha above one", func(c *Config) { c.Engine.Alpha = 1.5 }},
		{"zero factors", func(c *Config) { c.Collab.Factors = 0 }},
		{"default n above max n", func(c *Config) { c.Engine.DefaultN = 100 }},
		{"popularity weights not summing to 1", func(c *Config) { c.Popularity.CountWeight = 0.9 }},
		{"empty artifacts dir", func(c *Config) { c.Artifacts.Dir = "" }},
		{"negative retry delay", func(c *Config) { c.Training.RetryDelay = -time.Second }},
		{"max_df above one", func(c *Config) { c.Content.MaxDF = 1.2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where the config file is searched, first
// match wins.
var DefaultConfigPaths = []string{
	"bookrec.yaml",
	"bookrec.yml",
	"/etc/bookrec/config.yaml",
	"/etc/bookrec/config.yml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "BOOKREC_CONFIG"

// EnvPrefix is the prefix for configuration environment variables.
const EnvPrefix = "BOOKREC_"

// Load resolves the configuration from layered sources:
//  1. Defaults from Default()
//  2. Optional YAML config file
//  3. BOOKREC_* environment variables (highest priority)
//
// The result is validated before being returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransform maps BOOKREC_* variable names to koanf paths. The map is
// explicit so unrelated environment variables never leak into the
// configuration.
//
// Examples:
//   - BOOKREC_SERVER_PORT        -> server.port
//   - BOOKREC_CONTENT_MAX_FEATURES -> content.max_features
//   - BOOKREC_REDIS_ADDR         -> redis.addr
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

	mappings := map[string]string{
		"server_host":    "server.host",
		"server_port":    "server.port",
		"server_timeout": "server.timeout",

		"engine_alpha":     "engine.alpha",
		"engine_default_n": "engine.default_n",
		"engine_max_n":     "engine.max_n",

		"content_max_features": "content.max_features",
		"content_max_df":       "content.max_df",
		"content_min_df":       "content.min_df",

		"collab_factors":        "collab.factors",
		"collab_iterations":     "collab.iterations",
		"collab_regularization": "collab.regularization",
		"collab_alpha":          "collab.alpha",
		"collab_workers":        "collab.num_workers",

		"popularity_top_n":         "popularity.top_n",
		"popularity_count_weight":  "popularity.count_weight",
		"popularity_rating_weight": "popularity.rating_weight",

		"artifacts_dir":               "artifacts.dir",
		"artifacts_remote_enabled":    "artifacts.remote.enabled",
		"artifacts_remote_endpoint":   "artifacts.remote.endpoint",
		"artifacts_remote_access_key": "artifacts.remote.access_key",
		"artifacts_remote_secret_key": "artifacts.remote.secret_key",
		"artifacts_remote_bucket":     "artifacts.remote.bucket",
		"artifacts_remote_use_ssl":    "artifacts.remote.use_ssl",
		"artifacts_remote_timeout":    "artifacts.remote.timeout",

		"training_database_path":         "training.database_path",
		"training_seed_sample_data":      "training.seed_sample_data",
		"training_interval":              "training.interval",
		"training_on_startup":            "training.train_on_startup",
		"training_max_retries":           "training.max_retries",
		"training_retry_delay":           "training.retry_delay",
		"training_engine_url":            "training.engine_url",
		"training_signal_timeout":        "training.signal_timeout",
		"training_eval_k":                "training.eval_k",
		"training_eval_holdout":          "training.eval_holdout",
		"training_eval_min_interactions": "training.eval_min_interactions",
		"training_admin_host":            "training.admin_host",
		"training_admin_port":            "training.admin_port",

		"redis_enabled":    "redis.enabled",
		"redis_addr":       "redis.addr",
		"redis_password":   "redis.password",
		"redis_db":         "redis.db",
		"redis_status_key": "redis.status_key",
		"redis_status_ttl": "redis.status_ttl",
		"redis_timeout":    "redis.timeout",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	// Unmapped keys are skipped.
	return ""
}

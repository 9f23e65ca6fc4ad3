// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package config defines the layered configuration for both Bookrec
// daemons. Values are resolved with koanf: struct defaults first, then
// an optional YAML file, then BOOKREC_* environment variables.
package config

import (
	"time"

	"github.com/bookrec/bookrec/internal/logging"
)

// Config is the root configuration shared by cmd/server and cmd/trainer.
// Each daemon reads only the sections it needs.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Engine     EngineConfig     `koanf:"engine"`
	Content    ContentConfig    `koanf:"content"`
	Collab     CollabConfig     `koanf:"collab"`
	Popularity PopularityConfig `koanf:"popularity"`
	Artifacts  ArtifactsConfig  `koanf:"artifacts"`
	Training   TrainingConfig   `koanf:"training"`
	Redis      RedisConfig      `koanf:"redis"`
	Logging    logging.Config   `koanf:"logging"`
}

// ServerConfig configures the inference daemon's HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// EngineConfig configures inference-time behavior.
type EngineConfig struct {
	// Alpha is the hybrid blend weight for collaborative scores; content
	// scores are weighted 1-alpha.
	Alpha float64 `koanf:"alpha" validate:"min=0,max=1"`

	// DefaultN is the result count when a request omits n.
	DefaultN int `koanf:"default_n" validate:"min=1"`

	// MaxN bounds the per-request result count.
	MaxN int `koanf:"max_n" validate:"min=1,max=500"`
}

// ContentConfig holds TF-IDF vectorizer hyperparameters.
type ContentConfig struct {
	// MaxFeatures caps the vocabulary, keeping the terms with the
	// highest corpus frequency.
	MaxFeatures int `koanf:"max_features" validate:"min=1"`

	// MaxDF excludes terms appearing in more than this fraction of
	// documents.
	MaxDF float64 `koanf:"max_df" validate:"gt=0,max=1"`

	// MinDF excludes terms appearing in fewer than this many documents.
	MinDF int `koanf:"min_df" validate:"min=1"`
}

// CollabConfig holds ALS factorization hyperparameters.
type CollabConfig struct {
	Factors        int     `koanf:"factors" validate:"min=1"`
	Iterations     int     `koanf:"iterations" validate:"min=1"`
	Regularization float64 `koanf:"regularization" validate:"gt=0"`

	// Alpha scales interaction weights into confidence: c = 1 + alpha*w.
	Alpha float64 `koanf:"alpha" validate:"gt=0"`

	// NumWorkers bounds the solver's parallelism. 0 means runtime.NumCPU().
	NumWorkers int `koanf:"num_workers" validate:"min=0"`
}

// PopularityConfig controls the cold-start popularity table.
type PopularityConfig struct {
	TopN int `koanf:"top_n" validate:"min=1"`

	// CountWeight and RatingWeight blend normalized interaction counts
	// with normalized average ratings; they must sum to 1.
	CountWeight  float64 `koanf:"count_weight" validate:"min=0,max=1"`
	RatingWeight float64 `koanf:"rating_weight" validate:"min=0,max=1"`
}

// ArtifactsConfig configures the model artifact store.
type ArtifactsConfig struct {
	// Dir is the local artifact directory.
	Dir string `koanf:"dir" validate:"required"`

	Remote RemoteConfig `koanf:"remote"`
}

// RemoteConfig configures the optional object-store mirror tier.
type RemoteConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Endpoint  string        `koanf:"endpoint" validate:"required_if=Enabled true"`
	AccessKey string        `koanf:"access_key"`
	SecretKey string        `koanf:"secret_key"`
	Bucket    string        `koanf:"bucket" validate:"required_if=Enabled true"`
	UseSSL    bool          `koanf:"use_ssl"`
	Timeout   time.Duration `koanf:"timeout"`
}

// TrainingConfig configures the training daemon.
type TrainingConfig struct {
	// DatabasePath is the DuckDB snapshot holding books + interactions.
	DatabasePath string `koanf:"database_path" validate:"required"`

	// SeedSampleData populates an empty snapshot with the demo corpus
	// at startup, for local runs and CI.
	SeedSampleData bool `koanf:"seed_sample_data"`

	// Interval between scheduled runs.
	Interval time.Duration `koanf:"interval"`

	// TrainOnStartup triggers a run as soon as the daemon is up.
	TrainOnStartup bool `koanf:"train_on_startup"`

	// MaxRetries bounds retryable-failure retries per run; the delay
	// between attempts is fixed.
	MaxRetries int           `koanf:"max_retries" validate:"min=0,max=10"`
	RetryDelay time.Duration `koanf:"retry_delay"`

	// EngineURL receives the best-effort POST /reload after a run.
	EngineURL     string        `koanf:"engine_url"`
	SignalTimeout time.Duration `koanf:"signal_timeout"`

	// Offline evaluation of the collaborative model, computed over a
	// chronological holdout when the dataset is large enough.
	EvalK               int     `koanf:"eval_k" validate:"min=1"`
	EvalHoldout         float64 `koanf:"eval_holdout" validate:"min=0,max=0.5"`
	EvalMinInteractions int     `koanf:"eval_min_interactions" validate:"min=0"`

	// Admin listener for POST /train and GET /status.
	AdminHost string `koanf:"admin_host"`
	AdminPort int    `koanf:"admin_port" validate:"min=1,max=65535"`
}

// RedisConfig configures the training status store.
type RedisConfig struct {
	Enabled   bool          `koanf:"enabled"`
	Addr      string        `koanf:"addr" validate:"required_if=Enabled true"`
	Password  string        `koanf:"password"`
	DB        int           `koanf:"db" validate:"min=0"`
	StatusKey string        `koanf:"status_key"`
	StatusTTL time.Duration `koanf:"status_ttl"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Default returns a Config with all default values. Defaults are the
// first koanf layer; file and environment values override them.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8000,
			Timeout: 30 * time.Second,
		},
		Engine: EngineConfig{
			Alpha:    0.7,
			DefaultN: 10,
			MaxN:     50,
		},
		Content: ContentConfig{
			MaxFeatures: 5000,
			MaxDF:       0.95,
			MinDF:       1,
		},
		Collab: CollabConfig{
			Factors:        64,
			Iterations:     30,
			Regularization: 0.1,
			Alpha:          1.0,
			NumWorkers:     0, // 0 = runtime.NumCPU()
		},
		Popularity: PopularityConfig{
			TopN:         50,
			CountWeight:  0.6,
			RatingWeight: 0.4,
		},
		Artifacts: ArtifactsConfig{
			Dir: "/data/models",
			Remote: RemoteConfig{
				Enabled:  false,
				Endpoint: "",
				Bucket:   "bookrec-models",
				UseSSL:   false,
				Timeout:  10 * time.Second,
			},
		},
		Training: TrainingConfig{
			DatabasePath:        "/data/bookrec.duckdb",
			SeedSampleData:      false,
			Interval:            168 * time.Hour, // weekly
			TrainOnStartup:      false,
			MaxRetries:          2,
			RetryDelay:          60 * time.Second,
			EngineURL:           "http://localhost:8000",
			SignalTimeout:       10 * time.Second,
			EvalK:               10,
			EvalHoldout:         0.1,
			EvalMinInteractions: 100,
			AdminHost:           "0.0.0.0",
			AdminPort:           8001,
		},
		Redis: RedisConfig{
			Enabled:   true,
			Addr:      "localhost:6379",
			Password:  "",
			DB:        0,
			StatusKey: "model:retrain:latest",
			StatusTTL: 24 * time.Hour,
			Timeout:   5 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package main is the entry point for the bookrec training daemon.
//
// The trainer periodically rebuilds all three recommendation models
// (TF-IDF content, ALS collaborative, popularity cold-start) from the
// DuckDB snapshot, publishes the resulting artifacts through the
// artifact store, and signals the inference daemon to reload. A small
// admin API exposes manual control:
//
//   - POST /train    queue a run now (409 while one is active)
//   - GET  /status   latest run status from the status store
//   - GET  /healthz  liveness
//   - GET  /metrics  Prometheus metrics
//
// Run status lives in Redis when configured, so status survives trainer
// restarts and is visible to other processes; otherwise an in-process
// store backs single-node deployments.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown. An in-flight training
// run is canceled through its context; partially written artifacts are
// never published because every save is atomic.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookrec/bookrec/internal/api"
	"github.com/bookrec/bookrec/internal/artifact"
	"github.com/bookrec/bookrec/internal/config"
	"github.com/bookrec/bookrec/internal/database"
	"github.com/bookrec/bookrec/internal/logging"
	"github.com/bookrec/bookrec/internal/recommend"
	"github.com/bookrec/bookrec/internal/supervisor"
	"github.com/bookrec/bookrec/internal/supervisor/services"
	"github.com/bookrec/bookrec/internal/training"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, so fall back to a default logger.
		fallback := logging.New(logging.Config{})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.New(cfg.Logging)
	logger.Info().Msg("Starting bookrec trainer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(cfg.Training.DatabasePath, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing database")
		}
	}()
	logger.Info().Str("path", cfg.Training.DatabasePath).Msg("Database opened")

	if cfg.Training.SeedSampleData {
		logger.Info().Msg("Sample data seeding enabled")
		if err := db.SeedSampleData(ctx, database.DefaultSeedParams()); err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed sample data")
		}
	}

	cache := artifact.NewMemoryCache()
	var remote artifact.Remote
	if cfg.Artifacts.Remote.Enabled {
		minioRemote, err := artifact.NewMinioRemote(artifact.RemoteConfig{
			Endpoint:  cfg.Artifacts.Remote.Endpoint,
			AccessKey: cfg.Artifacts.Remote.AccessKey,
			SecretKey: cfg.Artifacts.Remote.SecretKey,
			Bucket:    cfg.Artifacts.Remote.Bucket,
			UseSSL:    cfg.Artifacts.Remote.UseSSL,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize artifact remote")
		}
		bucketCtx, bucketCancel := context.WithTimeout(ctx, cfg.Artifacts.Remote.Timeout)
		if err := minioRemote.EnsureBucket(bucketCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to ensure artifact bucket (mirroring degraded)")
		}
		bucketCancel()
		remote = minioRemote
		logger.Info().
			Str("endpoint", cfg.Artifacts.Remote.Endpoint).
			Str("bucket", cfg.Artifacts.Remote.Bucket).
			Msg("Artifact remote enabled")
	}

	store, err := artifact.NewStore(cfg.Artifacts.Dir, cache, remote, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize artifact store")
	}

	var notifier *training.ReloadNotifier
	if cfg.Training.EngineURL != "" {
		notifier = training.NewReloadNotifier(
			cfg.Training.EngineURL,
			&http.Client{Timeout: cfg.Training.SignalTimeout},
			logger,
		)
		logger.Info().Str("engine_url", cfg.Training.EngineURL).Msg("Reload notifier enabled")
	} else {
		logger.Info().Msg("Reload notifier disabled - engine picks up artifacts on its own reloads")
	}

	pipeline := training.NewPipeline(db, store, notifier, training.PipelineConfig{
		Content: recommend.ContentParams{
			MaxFeatures: cfg.Content.MaxFeatures,
			MaxDF:       cfg.Content.MaxDF,
			MinDF:       cfg.Content.MinDF,
		},
		Collab: recommend.CollabParams{
			Factors:        cfg.Collab.Factors,
			Iterations:     cfg.Collab.Iterations,
			Regularization: cfg.Collab.Regularization,
			Alpha:          cfg.Collab.Alpha,
			Workers:        cfg.Collab.NumWorkers,
		},
		Popularity: recommend.PopularityParams{
			TopN:         cfg.Popularity.TopN,
			CountWeight:  cfg.Popularity.CountWeight,
			RatingWeight: cfg.Popularity.RatingWeight,
		},
		EvalK:           cfg.Training.EvalK,
		EvalHoldout:     cfg.Training.EvalHoldout,
		MinInteractions: cfg.Training.EvalMinInteractions,
	}, logger)

	var status training.StatusStore
	if cfg.Redis.Enabled {
		redisStatus := training.NewRedisStatusStore(cfg.Redis, logger)
		defer func() {
			if err := redisStatus.Close(); err != nil {
				logger.Error().Err(err).Msg("Error closing status store")
			}
		}()
		pingCtx, pingCancel := context.WithTimeout(ctx, cfg.Redis.Timeout)
		if err := redisStatus.Ping(pingCtx); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Redis (status publishing degraded)")
		} else {
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis status store")
		}
		pingCancel()
		status = redisStatus
	} else {
		status = training.NewMemoryStatusStore()
		logger.Info().Msg("Redis disabled - run status kept in process memory")
	}

	trainer := training.NewService(pipeline, status, training.ServiceConfig{
		Interval:       cfg.Training.Interval,
		TrainOnStartup: cfg.Training.TrainOnStartup,
		MaxRetries:     cfg.Training.MaxRetries,
		RetryDelay:     cfg.Training.RetryDelay,
	}, logger)

	admin := api.NewAdmin(trainer, status, logger)
	adminServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Training.AdminHost, cfg.Training.AdminPort),
		Handler:      admin.Routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree("bookrec-trainer", logger, supervisor.DefaultTreeConfig())
	tree.AddWorker(trainer)
	tree.AddAPI(services.NewHTTPServerService("trainer-admin-http", adminServer, 10*time.Second))
	logger.Info().
		Str("addr", adminServer.Addr).
		Dur("interval", cfg.Training.Interval).
		Bool("train_on_startup", cfg.Training.TrainOnStartup).
		Msg("Training service and admin API added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logger.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logger.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logger.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logger.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logger.Info().Msg("Trainer stopped gracefully")
}

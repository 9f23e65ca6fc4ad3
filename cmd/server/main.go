// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package main is the entry point for the bookrec inference daemon.
//
// The server loads the latest trained model artifacts into an immutable
// in-memory snapshot and answers recommendation queries from it:
//
//   - POST /recommend/top      personalized top-N for a user
//   - POST /recommend/similar  books similar to a given book
//   - POST /reload             atomically swap in newer artifacts
//   - GET  /healthz            liveness and per-model load status
//   - GET  /metrics            Prometheus metrics
//
// # Startup
//
// Components initialize in order: configuration (koanf, layered
// defaults < file < environment), logging (zerolog), the artifact
// store (memory cache over local disk, optionally mirrored from an
// S3-compatible object store), the recommendation engine, and finally
// the HTTP listener under a suture supervision tree.
//
// The initial artifact load is best effort. A fresh deployment with no
// trained model yet still serves: queries answer with an empty result
// and strategy "none" until the trainer publishes artifacts and
// signals POST /reload.
//
// # Configuration
//
// All settings come from config.yaml and BOOKREC_* environment
// variables (environment wins). See internal/config for the full set.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger a graceful shutdown: the listener stops
// accepting connections and in-flight requests get ten seconds to
// finish.
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
	"github.com/bookrec/bookrec/internal/logging"
	"github.com/bookrec/bookrec/internal/recommend"
	"github.com/bookrec/bookrec/internal/supervisor"
	"github.com/bookrec/bookrec/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, so fall back to a default logger.
		fallback := logging.New(logging.Config{})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.New(cfg.Logging)
	logger.Info().Msg("Starting bookrec inference server")

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
		remote = minioRemote
		logger.Info().
			Str("endpoint", cfg.Artifacts.Remote.Endpoint).
			Str("bucket", cfg.Artifacts.Remote.Bucket).
			Msg("Artifact remote enabled")
	} else {
		logger.Info().Msg("Artifact remote disabled - serving from local artifacts only")
	}

	store, err := artifact.NewStore(cfg.Artifacts.Dir, cache, remote, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize artifact store")
	}
	logger.Info().Str("dir", cfg.Artifacts.Dir).Msg("Artifact store initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := recommend.NewEngine(store, cfg.Engine.Alpha, logger)
	// Missing artifacts are normal on first boot; the trainer signals
	// /reload once it has published a model.
	if status := engine.Reload(ctx); !status.Any() {
		logger.Warn().Msg("No model artifacts found - serving empty results until the first training run")
	}

	apiServer := api.NewServer(engine, cfg.Engine, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer.Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree("bookrec-server", logger, supervisor.DefaultTreeConfig())
	tree.AddAPI(services.NewHTTPServerService("inference-http", httpServer, 10*time.Second))
	logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server service added")

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

	logger.Info().Msg("Inference server stopped gracefully")
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package metrics defines the Prometheus collectors for both daemons.
// Collectors are registered on the default registry via promauto and
// exposed on GET /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InferenceDuration observes recommendation latency by endpoint
	// (top, similar) and the strategy that produced the response.
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrec_inference_duration_seconds",
			Help:    "Recommendation inference latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "strategy"},
	)

	// InferenceRequests counts recommendation queries by endpoint and
	// resolved strategy.
	InferenceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_inference_requests_total",
			Help: "Total recommendation queries served",
		},
		[]string{"endpoint", "strategy"},
	)

	// ModelReloads counts snapshot reloads by outcome (ok, failed).
	ModelReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_model_reloads_total",
			Help: "Total model snapshot reloads",
		},
		[]string{"outcome"},
	)

	// ArtifactCacheOps counts artifact store cache lookups (hit, miss).
	ArtifactCacheOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_artifact_cache_ops_total",
			Help: "Artifact store cache lookups by result",
		},
		[]string{"result"},
	)

	// TrainingRuns counts pipeline runs by terminal status
	// (completed, failed).
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_training_runs_total",
			Help: "Total training pipeline runs by status",
		},
		[]string{"status"},
	)

	// TrainingDuration observes end-to-end pipeline run time.
	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrec_training_duration_seconds",
			Help:    "Training pipeline duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	// HTTPRequests counts HTTP requests by status code and route
	// pattern.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrec_http_requests_total",
			Help: "Total HTTP requests by status code and route",
		},
		[]string{"code", "endpoint"},
	)
)

// RecordInference observes one recommendation query.
func RecordInference(endpoint, strategy string, duration time.Duration) {
	InferenceDuration.WithLabelValues(endpoint, strategy).Observe(duration.Seconds())
	InferenceRequests.WithLabelValues(endpoint, strategy).Inc()
}

// RecordReload counts a snapshot reload attempt.
func RecordReload(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	ModelReloads.WithLabelValues(outcome).Inc()
}

// RecordCacheHit counts an artifact cache hit.
func RecordCacheHit() {
	ArtifactCacheOps.WithLabelValues("hit").Inc()
}

// RecordCacheMiss counts an artifact cache miss.
func RecordCacheMiss() {
	ArtifactCacheOps.WithLabelValues("miss").Inc()
}

// RecordTrainingRun records a finished pipeline run.
func RecordTrainingRun(status string, duration time.Duration) {
	TrainingRuns.WithLabelValues(status).Inc()
	TrainingDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest counts one served HTTP request.
func RecordHTTPRequest(statusCode int, endpoint string) {
	HTTPRequests.WithLabelValues(strconv.Itoa(statusCode), endpoint).Inc()
}

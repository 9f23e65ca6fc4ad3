// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/training"
)

const trainerServiceName = "bookrec-trainer"

// Trigger abstracts the training service for the admin surface.
type Trigger interface {
	TriggerRun(ctx context.Context) (string, error)
	Running() bool
}

var _ Trigger = (*training.Service)(nil)

// Admin is the trainer's control surface: trigger runs and read the
// latest status record.
type Admin struct {
	trigger Trigger
	status  training.StatusStore
	logger  zerolog.Logger
}

// NewAdmin builds the trainer admin surface.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewAdmin(trigger Trigger, status training.StatusStore, logger zerolog.Logger) *Admin {
	return &Admin{
		trigger: trigger,
		status:  status,
		logger:  logger.With().Str("component", "admin").Logger(),
	}
}

// Routes assembles the admin router.
func (a *Admin) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(a.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(httpMetrics)

	r.With(rateLimit(a.logger, mutationRateLimit, mutationRateWindow)).Post("/train", a.handleTrain)
	r.Get("/status", a.handleStatus)
	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(a.handleNotFound)
	r.MethodNotAllowed(a.handleMethodNotAllowed)
	return r
}

// handleTrain queues an on-demand run. The run executes on the training
// service's own goroutine; this endpoint only hands over a task id.
func (a *Admin) handleTrain(w http.ResponseWriter, r *http.Request) {
	taskID, err := a.trigger.TriggerRun(r.Context())
	if err != nil {
		if errors.Is(err, training.ErrRunInProgress) {
			respondError(w, a.logger, http.StatusConflict, codeTrainingInProgress,
				"a training run is already in progress", nil)
			return
		}
		respondError(w, a.logger, http.StatusInternalServerError, codeInternal,
			"failed to queue training run", err)
		return
	}

	respondJSON(w, a.logger, http.StatusAccepted, &TrainResponse{
		TaskID: taskID,
		Status: training.StatusQueued,
	})
}

// handleStatus serves the latest run record. Absence is a 404, not an
// error: the store's TTL ages records out and fresh deployments have
// none yet.
func (a *Admin) handleStatus(w http.ResponseWriter, r *http.Request) {
	record, ok, err := a.status.Latest(r.Context())
	if err != nil {
		respondError(w, a.logger, http.StatusInternalServerError, codeInternal,
			"status store unavailable", err)
		return
	}
	if !ok {
		respondError(w, a.logger, http.StatusNotFound, codeNotFound,
			"no training run recorded", nil)
		return
	}
	respondJSON(w, a.logger, http.StatusOK, record)
}

func (a *Admin) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, a.logger, http.StatusOK, &AdminHealthResponse{
		Status:         "ok",
		Service:        trainerServiceName,
		TrainingActive: a.trigger.Running(),
	})
}

func (a *Admin) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, a.logger, http.StatusNotFound, codeNotFound, "route not found", nil)
}

func (a *Admin) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, a.logger, http.StatusMethodNotAllowed, codeValidation, "method not allowed", nil)
}

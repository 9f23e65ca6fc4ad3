// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/config"
	"github.com/bookrec/bookrec/internal/metrics"
	"github.com/bookrec/bookrec/internal/recommend"
	"github.com/bookrec/bookrec/internal/validation"
)

const serverServiceName = "bookrec-server"

// Server is the inference HTTP surface over the recommendation engine.
type Server struct {
	engine   *recommend.Engine
	logger   zerolog.Logger
	defaultN int
	maxN     int
}

// NewServer builds the inference surface.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewServer(engine *recommend.Engine, cfg config.EngineConfig, logger zerolog.Logger) *Server {
	return &Server{
		engine:   engine,
		logger:   logger.With().Str("component", "api").Logger(),
		defaultN: cfg.DefaultN,
		maxN:     cfg.MaxN,
	}
}

// Routes assembles the chi router with the full middleware stack.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(httpMetrics)

	r.Post("/recommend/top", s.handleRecommendTop)
	r.Post("/recommend/similar", s.handleRecommendSimilar)
	r.With(rateLimit(s.logger, mutationRateLimit, mutationRateWindow)).Post("/reload", s.handleReload)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.NotFound(s.handleNotFound)
	r.MethodNotAllowed(s.handleMethodNotAllowed)
	return r
}

func (s *Server) handleRecommendTop(w http.ResponseWriter, r *http.Request) {
	var req TopRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		respondError(w, s.logger, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, s.logger, verr)
		return
	}
	n, apiErr := s.resultCount(req.N)
	if apiErr != nil {
		respondError(w, s.logger, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	start := time.Now()
	recs, strategy := s.engine.RecommendTop(req.UserID, req.LikedItemIDs, n)
	metrics.RecordInference("top", string(strategy), time.Since(start))

	respondJSON(w, s.logger, http.StatusOK, &TopResponse{
		UserID:          req.UserID,
		Recommendations: emptyIfNil(recs),
		Strategy:        strategy,
	})
}

func (s *Server) handleRecommendSimilar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		respondError(w, s.logger, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, s.logger, verr)
		return
	}
	n, apiErr := s.resultCount(req.N)
	if apiErr != nil {
		respondError(w, s.logger, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	start := time.Now()
	recs, strategy := s.engine.RecommendSimilar(req.BookID, n)
	metrics.RecordInference("similar", string(strategy), time.Since(start))

	respondJSON(w, s.logger, http.StatusOK, &SimilarResponse{
		BookID:       req.BookID,
		SimilarItems: emptyIfNil(recs),
		Strategy:     strategy,
	})
}

// handleReload re-reads every artifact and publishes a fresh snapshot.
// Reload is cheap relative to training, so it answers synchronously.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	s.engine.Reload(r.Context())
	snap := s.engine.Current()

	respondJSON(w, s.logger, http.StatusOK, &ReloadResponse{
		Status:       "reloaded",
		Models:       modelsStatus(snap.Status()),
		ModelVersion: snap.ModelVersion,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.logger, http.StatusOK, &HealthResponse{
		Status:  "ok",
		Service: serverServiceName,
		Models:  modelsStatus(s.engine.Current().Status()),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, s.logger, http.StatusNotFound, codeNotFound, "route not found", nil)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, s.logger, http.StatusMethodNotAllowed, codeValidation, "method not allowed", nil)
}

// resultCount applies the configured default and ceiling to a
// requested result count. The floor is enforced by the struct tags.
func (s *Server) resultCount(n int) (int, *apiError) {
	if n == 0 {
		return s.defaultN, nil
	}
	if n > s.maxN {
		return 0, &apiError{
			Code:    codeValidation,
			Message: fmt.Sprintf("n must be between 1 and %d", s.maxN),
		}
	}
	return n, nil
}

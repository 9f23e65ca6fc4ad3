// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/metrics"
)

// Rate limit for the operator-facing mutation endpoints (POST /reload,
// POST /train). Generous for a human, tight enough to stop a scripting
// loop from thrashing the artifact store or the training queue.
const (
	mutationRateLimit  = 10
	mutationRateWindow = time.Minute
)

// requestLogger emits one structured line per request. The probe
// endpoints that monitoring polls are skipped to keep logs readable.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// httpMetrics counts every request by status code and route pattern.
// The pattern is resolved after routing so unknown paths collapse into
// one label value instead of exploding cardinality.
func httpMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		metrics.RecordHTTPRequest(ww.Status(), endpoint)
	})
}

// rateLimit builds an IP-keyed httprate limiter that answers over-limit
// requests with the standard error envelope.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func rateLimit(logger zerolog.Logger, requests int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, logger, http.StatusTooManyRequests, codeRateLimited, "too many requests, slow down", nil)
		}),
	)
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

/*
Package api provides the HTTP surfaces of both daemons on chi routers.

Server is the inference surface (cmd/server):

  - POST /recommend/top      personalized ranking for a user
  - POST /recommend/similar  neighbors of a book
  - POST /reload             re-read model artifacts (rate limited)
  - GET  /healthz            liveness plus per-model loaded flags
  - GET  /metrics            Prometheus

Admin is the trainer's control surface (cmd/trainer):

  - POST /train    queue a training run (rate limited)
  - GET  /status   latest run record from the status store
  - GET  /healthz, GET /metrics

Request bodies are JSON, validated with go-playground/validator and
capped at 1 MiB. Failures use one envelope shape:

	{"error": {"code": "VALIDATION_ERROR", "message": "..."}}

with codes VALIDATION_ERROR, NOT_FOUND, TRAINING_IN_PROGRESS,
RATE_LIMITED, and INTERNAL_ERROR.
*/
package api

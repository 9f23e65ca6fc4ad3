// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/validation"
)

// maxBodyBytes caps request bodies. Recommendation queries are a few
// hundred bytes; anything near the cap is abuse or a client bug.
const maxBodyBytes = 1 << 20

// Error codes carried in the error envelope.
const (
	codeValidation         = "VALIDATION_ERROR"
	codeNotFound           = "NOT_FOUND"
	codeTrainingInProgress = "TRAINING_IN_PROGRESS"
	codeRateLimited        = "RATE_LIMITED"
	codeInternal           = "INTERNAL_ERROR"
)

// apiError is the code/message pair inside the error envelope.
type apiError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// respondJSON writes body as JSON with the given status.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func respondJSON(w http.ResponseWriter, logger zerolog.Logger, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Error().Err(err).Msg("response encode failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Debug().Err(err).Msg("response write failed")
	}
}

// respondError writes the error envelope. cause, when non-nil, is
// logged but never leaked to the client.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func respondError(w http.ResponseWriter, logger zerolog.Logger, status int, code, message string, cause error) {
	if cause != nil {
		logger.Warn().Err(cause).Str("code", code).Msg("request failed")
	}
	respondJSON(w, logger, status, &errorEnvelope{Error: apiError{Code: code, Message: message}})
}

// respondValidation maps a struct validation failure onto the 400
// envelope, keeping the per-field details.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func respondValidation(w http.ResponseWriter, logger zerolog.Logger, verr *validation.RequestValidationError) {
	apiErr := verr.ToAPIError()
	respondJSON(w, logger, http.StatusBadRequest, &errorEnvelope{Error: apiError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}})
}

// decodeJSON reads the request body, capped at maxBodyBytes, into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *apiError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &apiError{Code: codeValidation, Message: "request body exceeds the 1 MiB limit"}
		}
		return &apiError{Code: codeValidation, Message: "request body is not valid JSON"}
	}
	return nil
}

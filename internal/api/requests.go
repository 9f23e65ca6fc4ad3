// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package api

import (
	"github.com/bookrec/bookrec/internal/recommend"
)

// TopRequest is the body of POST /recommend/top. A zero N means "use
// the configured default"; the omitempty tag keeps the validator off
// it until the default is applied.
type TopRequest struct {
	UserID       int64   `json:"user_id" validate:"required,min=1"`
	N            int     `json:"n" validate:"omitempty,min=1"`
	LikedItemIDs []int64 `json:"liked_item_ids" validate:"omitempty,dive,min=1"`
}

// TopResponse carries the personalized ranking and the strategy that
// produced it.
type TopResponse struct {
	UserID          int64                      `json:"user_id"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Strategy        recommend.Strategy         `json:"strategy"`
}

// SimilarRequest is the body of POST /recommend/similar.
type SimilarRequest struct {
	BookID int64 `json:"book_id" validate:"required,min=1"`
	N      int   `json:"n" validate:"omitempty,min=1"`
}

// SimilarResponse carries a book's neighbors.
type SimilarResponse struct {
	BookID       int64                      `json:"book_id"`
	SimilarItems []recommend.Recommendation `json:"similar_items"`
	Strategy     recommend.Strategy         `json:"strategy"`
}

// ModelsStatus reports per-model loaded flags in API field names.
type ModelsStatus struct {
	Content       bool `json:"content"`
	Collaborative bool `json:"collaborative"`
	ColdStart     bool `json:"cold_start"`
}

func modelsStatus(status recommend.LoadStatus) ModelsStatus {
	return ModelsStatus{
		Content:       status.Content,
		Collaborative: status.Collab,
		ColdStart:     status.Popularity,
	}
}

// ReloadResponse is the body of a successful POST /reload.
type ReloadResponse struct {
	Status       string       `json:"status"`
	Models       ModelsStatus `json:"models"`
	ModelVersion string       `json:"model_version,omitempty"`
}

// HealthResponse is the body of GET /healthz on the inference surface.
type HealthResponse struct {
	Status  string       `json:"status"`
	Service string       `json:"service"`
	Models  ModelsStatus `json:"models"`
}

// TrainResponse acknowledges a queued training run.
type TrainResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// AdminHealthResponse is the body of GET /healthz on the trainer.
type AdminHealthResponse struct {
	Status         string `json:"status"`
	Service        string `json:"service"`
	TrainingActive bool   `json:"training_active"`
}

// emptyIfNil keeps empty result arrays as [] rather than null.
func emptyIfNil(recs []recommend.Recommendation) []recommend.Recommendation {
	if recs == nil {
		return []recommend.Recommendation{}
	}
	return recs
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package training implements the offline model pipeline: load the
// tabular snapshot, fit the content, collaborative, and popularity
// models, persist artifacts and run metadata, then signal the serving
// tier to reload. Runs are scheduled and retried by Service.
package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/artifact"
	"github.com/bookrec/bookrec/internal/evaluate"
	"github.com/bookrec/bookrec/internal/recommend"
)

// ErrNoBooks marks an empty catalog. It aborts the run immediately and
// is exempt from the retry budget; retrying cannot conjure data.
var ErrNoBooks = errors.New("no books in snapshot")

// DataSource supplies the training snapshot.
type DataSource interface {
	LoadBooks(ctx context.Context) ([]recommend.Book, error)
	LoadInteractions(ctx context.Context) ([]recommend.Interaction, error)
}

// ArtifactSink persists model artifacts and run metadata.
// *artifact.Store satisfies it.
type ArtifactSink interface {
	Save(ctx context.Context, name, version string, data []byte) error
	SaveMetadata(data []byte) error
}

// PipelineConfig carries the hyperparameters for one run.
type PipelineConfig struct {
	Content    recommend.ContentParams
	Collab     recommend.CollabParams
	Popularity recommend.PopularityParams

	// Offline evaluation of the collaborative model over a
	// chronological holdout. Holdout <= 0 or fewer interactions than
	// MinInteractions disables it.
	EvalK           int
	EvalHoldout     float64
	MinInteractions int
}

// ContentMetrics summarizes the content training step.
type ContentMetrics struct {
	NumBooks       int `json:"n_books"`
	NumFeatures    int `json:"n_features"`
	VocabularySize int `json:"vocabulary_size"`
}

// CollabMetrics summarizes the collaborative training step. Status is
// "skipped" with a reason when there was nothing to train on.
type CollabMetrics struct {
	Status          string           `json:"status,omitempty"`
	Reason          string           `json:"reason,omitempty"`
	NumUsers        int              `json:"n_users,omitempty"`
	NumItems        int              `json:"n_items,omitempty"`
	NumInteractions int              `json:"n_interactions,omitempty"`
	Factors         int              `json:"factors,omitempty"`
	Iterations      int              `json:"iterations,omitempty"`
	Evaluation      *evaluate.Result `json:"evaluation,omitempty"`
}

// DataStats records dataset sizes for the run.
type DataStats struct {
	NumBooks        int `json:"n_books"`
	NumInteractions int `json:"n_interactions"`
	NumUsers        int `json:"n_users"`
}

// Metadata is the per-run record persisted next to the artifacts.
type Metadata struct {
	ModelVersion            string          `json:"model_version"`
	TrainedAt               time.Time       `json:"trained_at"`
	TrainingDurationSeconds float64         `json:"training_duration_seconds"`
	ContentMetrics          *ContentMetrics `json:"content_metrics"`
	CollabMetrics           *CollabMetrics  `json:"collab_metrics"`
	DataStats               DataStats       `json:"data_stats"`
}

// Pipeline executes one full training run.
type Pipeline struct {
	data     DataSource
	store    ArtifactSink
	notifier *ReloadNotifier
	cfg      PipelineConfig
	logger   zerolog.Logger
}

// NewPipeline wires a pipeline. notifier may be nil when no serving
// tier should be signaled.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewPipeline(data DataSource, store ArtifactSink, notifier *ReloadNotifier, cfg PipelineConfig, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		data:     data,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Run executes the pipeline steps in order and returns the run
// metadata. Any error aborts the run; artifacts already written stay in
// place and are overwritten wholesale by the next successful run.
func (p *Pipeline) Run(ctx context.Context) (*Metadata, error) {
	start := time.Now()

	p.logger.Info().Int("step", 1).Msg("loading training snapshot")
	books, err := p.data.LoadBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	if len(books) == 0 {
		return nil, ErrNoBooks
	}
	interactions, err := p.data.LoadInteractions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	p.logger.Info().Int("step", 2).Int("books", len(books)).Msg("training content model")
	contentMetrics, err := p.trainContent(ctx, books)
	if err != nil {
		return nil, err
	}

	p.logger.Info().Int("step", 3).Int("interactions", len(interactions)).Msg("training collaborative model")
	collabMetrics, err := p.trainCollab(ctx, interactions, books)
	if err != nil {
		return nil, err
	}

	p.logger.Info().Int("step", 4).Msg("building popularity table")
	if err := p.buildPopularity(ctx, books); err != nil {
		return nil, err
	}

	meta := &Metadata{
		ModelVersion:            start.UTC().Format("20060102_150405"),
		TrainedAt:               time.Now().UTC(),
		TrainingDurationSeconds: math.Round(time.Since(start).Seconds()*100) / 100,
		ContentMetrics:          contentMetrics,
		CollabMetrics:           collabMetrics,
		DataStats: DataStats{
			NumBooks:        len(books),
			NumInteractions: len(interactions),
			NumUsers:        countUsers(interactions),
		},
	}

	p.logger.Info().Int("step", 5).Str("model_version", meta.ModelVersion).Msg("persisting run metadata")
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	if err := p.store.SaveMetadata(data); err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}

	if p.notifier != nil {
		p.logger.Info().Int("step", 6).Msg("signaling model reload")
		if err := p.notifier.Notify(ctx); err != nil {
			p.logger.Warn().Err(err).Msg("reload signal failed")
		}
	}

	p.logger.Info().
		Str("model_version", meta.ModelVersion).
		Float64("duration_seconds", meta.TrainingDurationSeconds).
		Msg("training run completed")
	return meta, nil
}

func (p *Pipeline) trainContent(ctx context.Context, books []recommend.Book) (*ContentMetrics, error) {
	model, err := recommend.TrainContent(books, p.cfg.Content)
	if err != nil {
		return nil, fmt.Errorf("train content model: %w", err)
	}
	data, err := recommend.EncodeContent(model)
	if err != nil {
		return nil, fmt.Errorf("encode content model: %w", err)
	}
	if err := p.store.Save(ctx, recommend.ArtifactContent, artifact.VersionLatest, data); err != nil {
		return nil, fmt.Errorf("save content model: %w", err)
	}

	stats := model.Stats()
	return &ContentMetrics{
		NumBooks:       stats.NumItems,
		NumFeatures:    stats.NumFeatures,
		VocabularySize: stats.NumFeatures,
	}, nil
}

func (p *Pipeline) trainCollab(ctx context.Context, interactions []recommend.Interaction, books []recommend.Book) (*CollabMetrics, error) {
	if len(interactions) == 0 {
		p.logger.Warn().Msg("no interactions, skipping collaborative model")
		return &CollabMetrics{Status: "skipped", Reason: "no interactions"}, nil
	}

	model, err := recommend.TrainCollab(ctx, interactions, books, p.cfg.Collab)
	if err != nil {
		return nil, fmt.Errorf("train collaborative model: %w", err)
	}
	data, err := recommend.EncodeCollab(model)
	if err != nil {
		return nil, fmt.Errorf("encode collaborative model: %w", err)
	}
	if err := p.store.Save(ctx, recommend.ArtifactCollab, artifact.VersionLatest, data); err != nil {
		return nil, fmt.Errorf("save collaborative model: %w", err)
	}

	stats := model.Stats()
	metrics := &CollabMetrics{
		NumUsers:        stats.NumUsers,
		NumItems:        stats.NumItems,
		NumInteractions: len(interactions),
		Factors:         stats.Factors,
		Iterations:      p.cfg.Collab.Iterations,
	}
	metrics.Evaluation = p.evaluateCollab(ctx, interactions, books)
	return metrics, nil
}

// evaluateCollab measures ranking quality on a chronological holdout.
// A separate model is fitted on the head split so the held-out tail
// stays unseen; the production model still trains on everything.
// Evaluation is advisory and never fails the run.
func (p *Pipeline) evaluateCollab(ctx context.Context, interactions []recommend.Interaction, books []recommend.Book) *evaluate.Result {
	if p.cfg.EvalHoldout <= 0 || p.cfg.EvalK <= 0 || len(interactions) < p.cfg.MinInteractions {
		return nil
	}
	train, test := SplitChronological(interactions, p.cfg.EvalHoldout)
	holdout := BuildHoldout(train, test)
	if len(train) == 0 || len(holdout) == 0 {
		p.logger.Debug().Msg("holdout too small, skipping evaluation")
		return nil
	}

	model, err := recommend.TrainCollab(ctx, train, books, p.cfg.Collab)
	if err != nil {
		p.logger.Warn().Err(err).Msg("evaluation model training failed")
		return nil
	}
	ranker, err := recommend.NewCollabRecommender(model)
	if err != nil {
		p.logger.Warn().Err(err).Msg("evaluation model rejected")
		return nil
	}

	result := evaluate.Evaluate(ranker, holdout, p.cfg.EvalK)
	p.logger.Info().
		Int("k", result.K).
		Float64("precision", result.Precision).
		Float64("recall", result.Recall).
		Float64("ndcg", result.NDCG).
		Float64("map", result.MAP).
		Int("n_users_evaluated", result.UsersEvaluated).
		Msg("offline evaluation")
	return &result
}

func (p *Pipeline) buildPopularity(ctx context.Context, books []recommend.Book) error {
	model, err := recommend.BuildPopularity(books, p.cfg.Popularity)
	if err != nil {
		return fmt.Errorf("build popularity table: %w", err)
	}
	data, err := recommend.EncodePopularity(model)
	if err != nil {
		return fmt.Errorf("encode popularity table: %w", err)
	}
	if err := p.store.Save(ctx, recommend.ArtifactPopularity, artifact.VersionLatest, data); err != nil {
		return fmt.Errorf("save popularity table: %w", err)
	}
	return nil
}

func countUsers(interactions []recommend.Interaction) int {
	seen := make(map[int64]struct{}, len(interactions))
	for _, it := range interactions {
		seen[it.UserID] = struct{}{}
	}
	return len(seen)
}

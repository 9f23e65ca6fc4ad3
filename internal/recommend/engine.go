// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/artifact"
	"github.com/bookrec/bookrec/internal/metrics"
)

// ArtifactSource supplies serialized model artifacts and the run
// metadata of the training run that produced them. Reload drops any
// cached tier so the next Load re-reads backing storage.
type ArtifactSource interface {
	Load(ctx context.Context, name, version string) ([]byte, error)
	LoadMetadata() ([]byte, error)
	Reload()
}

// Snapshot is one immutable generation of serving state. Any model may
// be nil when its artifact was absent or unreadable; serving degrades
// through the remaining tiers.
type Snapshot struct {
	Content    *ContentRecommender
	Collab     *CollabRecommender
	Popularity *PopularityModel

	// ModelVersion tags the training run the artifacts came from.
	// Empty until the first run has published metadata.
	ModelVersion string
	LoadedAt     time.Time
}

// LoadStatus reports which models a reload produced.
type LoadStatus struct {
	Content    bool
	Collab     bool
	Popularity bool
}

// Any reports whether at least one model is loaded.
func (s LoadStatus) Any() bool {
	return s.Content || s.Collab || s.Popularity
}

// Status reports which models this snapshot carries.
func (s *Snapshot) Status() LoadStatus {
	return LoadStatus{
		Content:    s.Content != nil,
		Collab:     s.Collab != nil,
		Popularity: s.Popularity != nil,
	}
}

// userSource adapts the optional collaborative model to the merger's
// interface, keeping a nil model an untyped nil.
func (s *Snapshot) userSource() UserRecommender {
	if s.Collab == nil {
		return nil
	}
	return s.Collab
}

func (s *Snapshot) profileSource() ProfileRecommender {
	if s.Content == nil {
		return nil
	}
	return s.Content
}

func (s *Snapshot) collabSimilarity() ItemSimilarity {
	if s.Collab == nil {
		return nil
	}
	return s.Collab
}

func (s *Snapshot) contentSimilarity() ItemSimilarity {
	if s.Content == nil {
		return nil
	}
	return s.Content
}

// popularItems serves the cold-start popularity tier.
func (s *Snapshot) popularItems(n int) []Recommendation {
	if s.Popularity == nil {
		return nil
	}
	return s.Popularity.Top(n)
}

// newItemNeighbors serves the cold-start tier for items, delegating to
// content similarity when that model is loaded.
func (s *Snapshot) newItemNeighbors(bookID int64, n int) []Recommendation {
	if s.Content == nil {
		return nil
	}
	return s.Content.SimilarItems(bookID, n)
}

// Engine owns the serving state and answers inference queries. Reload
// publishes a fresh immutable snapshot through an atomic pointer, so
// in-flight queries always see a complete model generation.
type Engine struct {
	store   ArtifactSource
	merger  Merger
	logger  zerolog.Logger
	current atomic.Pointer[Snapshot]
}

// NewEngine builds an engine with no models loaded. Call Reload to
// populate the first snapshot.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewEngine(store ArtifactSource, alpha float64, logger zerolog.Logger) *Engine {
	e := &Engine{
		store:  store,
		merger: NewMerger(alpha),
		logger: logger,
	}
	e.current.Store(&Snapshot{})
	return e
}

// Current returns the live snapshot. It is never nil.
func (e *Engine) Current() *Snapshot {
	return e.current.Load()
}

// Reload clears the artifact cache, reads every model artifact back
// from storage, and atomically swaps in the new snapshot. A model that
// fails to load is left out of the snapshot rather than failing the
// reload; missing artifacts are expected before the first training
// run.
func (e *Engine) Reload(ctx context.Context) LoadStatus {
	e.store.Reload()
	snap := &Snapshot{LoadedAt: time.Now().UTC()}

	if model, ok := e.loadContent(ctx); ok {
		snap.Content = NewContentRecommender(model)
	}
	if model, ok := e.loadCollab(ctx); ok {
		rec, err := NewCollabRecommender(model)
		if err != nil {
			e.logger.Warn().Err(err).Msg("collab model failed validation")
		} else {
			snap.Collab = rec
		}
	}
	if model, ok := e.loadPopularity(ctx); ok {
		snap.Popularity = model
	}
	snap.ModelVersion = e.loadModelVersion()

	e.current.Store(snap)
	status := snap.Status()
	metrics.RecordReload(status.Any())
	e.logger.Info().
		Bool("content", status.Content).
		Bool("collab", status.Collab).
		Bool("popularity", status.Popularity).
		Str("model_version", snap.ModelVersion).
		Msg("model snapshot published")
	return status
}

// loadModelVersion extracts the version tag from the trainer's run
// metadata. Absence is normal before the first completed run.
func (e *Engine) loadModelVersion() string {
	data, err := e.store.LoadMetadata()
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) {
			e.logger.Warn().Err(err).Msg("run metadata load failed")
		}
		return ""
	}
	var meta struct {
		ModelVersion string `json:"model_version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		e.logger.Warn().Err(err).Msg("run metadata decode failed")
		return ""
	}
	return meta.ModelVersion
}

func (e *Engine) loadContent(ctx context.Context) (*ContentModel, bool) {
	data, err := e.store.Load(ctx, ArtifactContent, artifact.VersionLatest)
	if err != nil {
		e.logLoadFailure(ArtifactContent, err)
		return nil, false
	}
	model, err := DecodeContent(data)
	if err != nil {
		e.logger.Warn().Err(err).Str("model", ArtifactContent).Msg("artifact decode failed")
		return nil, false
	}
	e.logger.Info().Str("model", ArtifactContent).Time("trained_at", model.trainedAt).Msg("model loaded")
	return model, true
}

func (e *Engine) loadCollab(ctx context.Context) (*CollabModel, bool) {
	data, err := e.store.Load(ctx, ArtifactCollab, artifact.VersionLatest)
	if err != nil {
		e.logLoadFailure(ArtifactCollab, err)
		return nil, false
	}
	model, err := DecodeCollab(data)
	if err != nil {
		e.logger.Warn().Err(err).Str("model", ArtifactCollab).Msg("artifact decode failed")
		return nil, false
	}
	e.logger.Info().Str("model", ArtifactCollab).Time("trained_at", model.trainedAt).Msg("model loaded")
	return model, true
}

func (e *Engine) loadPopularity(ctx context.Context) (*PopularityModel, bool) {
	data, err := e.store.Load(ctx, ArtifactPopularity, artifact.VersionLatest)
	if err != nil {
		e.logLoadFailure(ArtifactPopularity, err)
		return nil, false
	}
	model, err := DecodePopularity(data)
	if err != nil {
		e.logger.Warn().Err(err).Str("model", ArtifactPopularity).Msg("artifact decode failed")
		return nil, false
	}
	return model, true
}

func (e *Engine) logLoadFailure(name string, err error) {
	if errors.Is(err, artifact.ErrNotFound) {
		e.logger.Debug().Str("model", name).Msg("artifact not trained yet")
		return
	}
	e.logger.Warn().Err(err).Str("model", name).Msg("artifact load failed")
}

// RecommendTop produces the personalized ranking for a user. An empty
// liked list is the new-user signal and routes straight to the
// popularity tier; otherwise the merger blends whatever models are
// loaded and the popularity tier backs up a total miss.
func (e *Engine) RecommendTop(userID int64, likedIDs []int64, n int) ([]Recommendation, Strategy) {
	snap := e.Current()

	if len(likedIDs) == 0 {
		if recs := snap.popularItems(n); len(recs) > 0 {
			return recs, StrategyPopularity
		}
		return nil, StrategyNone
	}

	recs, strategy := e.merger.RecommendForUser(snap.userSource(), snap.profileSource(), userID, likedIDs, n)
	if strategy == StrategyNone {
		if fallback := snap.popularItems(n); len(fallback) > 0 {
			return fallback, StrategyPopularity
		}
	}
	return recs, strategy
}

// RecommendSimilar produces neighbors for a book, blending latent
// factor and text similarity. When neither base model can answer, the
// cold-start content delegate gets the last word.
func (e *Engine) RecommendSimilar(bookID int64, n int) ([]Recommendation, Strategy) {
	snap := e.Current()

	recs, strategy := e.merger.SimilarItems(snap.collabSimilarity(), snap.contentSimilarity(), bookID, n)
	if strategy == StrategyNone {
		if neighbors := snap.newItemNeighbors(bookID, n); len(neighbors) > 0 {
			return neighbors, StrategyContentBased
		}
	}
	return recs, strategy
}

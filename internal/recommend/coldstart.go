// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import (
	"errors"
	"sort"
	"time"
)

// PopularityParams controls the cold-start ranking.
type PopularityParams struct {
	// TopN bounds how many entries the model retains.
	TopN int

	// CountWeight and RatingWeight blend normalized interaction
	// volume and normalized average rating.
	CountWeight  float64
	RatingWeight float64
}

// DefaultPopularityParams mirrors the production configuration.
func DefaultPopularityParams() PopularityParams {
	return PopularityParams{
		TopN:         50,
		CountWeight:  0.6,
		RatingWeight: 0.4,
	}
}

// PopularityModel is a precomputed global ranking served to users with
// no interaction history. Entries are ordered best first.
type PopularityModel struct {
	entries   []PopularEntry
	trainedAt time.Time
}

// PopularityStats summarizes the model for run metadata.
type PopularityStats struct {
	NumItems int `json:"n_items"`
}

// BuildPopularity ranks the catalog by blended popularity. When the
// catalog carries no interaction counts at all, the count component is
// meaningless and the ranking falls back to average rating alone.
func BuildPopularity(books []Book, params PopularityParams) (*PopularityModel, error) {
	if len(books) == 0 {
		return nil, errors.New("popularity: no books to rank")
	}
	if params.TopN <= 0 {
		params = DefaultPopularityParams()
	}

	counts := make([]float64, len(books))
	ratings := make([]float64, len(books))
	var totalCount float64
	for i, b := range books {
		counts[i] = float64(b.Interactions)
		ratings[i] = b.AvgRating
		totalCount += counts[i]
	}
	normalizeInPlace(counts)
	normalizeInPlace(ratings)

	entries := make([]PopularEntry, len(books))
	for i, b := range books {
		score := params.CountWeight*counts[i] + params.RatingWeight*ratings[i]
		if totalCount == 0 {
			score = ratings[i]
		}
		entries[i] = PopularEntry{
			BookID: b.ID,
			Title:  b.Title,
			Author: b.Author,
			Genre:  b.Genre,
			Score:  score,
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].BookID < entries[j].BookID
	})
	if len(entries) > params.TopN {
		entries = entries[:params.TopN]
	}

	return &PopularityModel{
		entries:   entries,
		trainedAt: time.Now().UTC(),
	}, nil
}

// Top returns the best n entries as recommendations.
func (m *PopularityModel) Top(n int) []Recommendation {
	if n <= 0 {
		return nil
	}
	if n > len(m.entries) {
		n = len(m.entries)
	}
	recs := make([]Recommendation, n)
	for i, e := range m.entries[:n] {
		recs[i] = Recommendation{
			BookID: e.BookID,
			Title:  e.Title,
			Author: e.Author,
			Genre:  e.Genre,
			Score:  e.Score,
			Reason: ReasonPopularity,
		}
	}
	return recs
}

// Stats returns the model's summary statistics.
func (m *PopularityModel) Stats() PopularityStats {
	return PopularityStats{NumItems: len(m.entries)}
}

// TrainedAt returns the training timestamp carried in the artifact.
func (m *PopularityModel) TrainedAt() time.Time {
	return m.trainedAt
}

// normalizeInPlace rescales values to [0, 1] by min-max. A constant
// column carries no ranking signal, so every value maps to 1.
func normalizeInPlace(values []float64) {
	if len(values) == 0 {
		return
	}
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		for i := range values {
			values[i] = 1
		}
		return
	}
	span := max - min
	for i := range values {
		values[i] = (values[i] - min) / span
	}
}

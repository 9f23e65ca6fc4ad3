// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import "sort"

// Merger blends collaborative and content-based result lists into a
// single ranking. A nil source interface means that model is not
// loaded; the decision table below degrades through the remaining
// sources and ends at StrategyNone when nothing can serve.
//
//	collab    content   outcome
//	non-empty non-empty merge -> hybrid
//	non-empty empty     collab top-n -> collaborative
//	empty     non-empty content top-n -> content-based
//	empty     empty     empty -> none
type Merger struct {
	alpha float64
}

// NewMerger builds a merger with the given collaborative blend weight.
// alpha weights collaborative scores; content scores carry 1-alpha.
func NewMerger(alpha float64) Merger {
	return Merger{alpha: alpha}
}

// RecommendForUser queries both sources at twice the requested depth
// and resolves the result per the decision table. The content side is
// only consulted when the user supplied liked items to profile from.
func (m Merger) RecommendForUser(collab UserRecommender, content ProfileRecommender, userID int64, likedIDs []int64, n int) ([]Recommendation, Strategy) {
	if n <= 0 {
		return nil, StrategyNone
	}

	var collabRecs, contentRecs []Recommendation
	if collab != nil {
		collabRecs = collab.RecommendForUser(userID, 2*n)
	}
	if content != nil && len(likedIDs) > 0 {
		contentRecs = content.RecommendForProfile(likedIDs, 2*n)
	}
	return m.resolve(collabRecs, contentRecs, n)
}

// SimilarItems answers item-to-item queries with the same decision
// table, drawing neighbors from latent factors and text features.
func (m Merger) SimilarItems(collab, content ItemSimilarity, bookID int64, n int) ([]Recommendation, Strategy) {
	if n <= 0 {
		return nil, StrategyNone
	}

	var collabRecs, contentRecs []Recommendation
	if collab != nil {
		collabRecs = collab.SimilarItems(bookID, 2*n)
	}
	if content != nil {
		contentRecs = content.SimilarItems(bookID, 2*n)
	}
	return m.resolve(collabRecs, contentRecs, n)
}

func (m Merger) resolve(collabRecs, contentRecs []Recommendation, n int) ([]Recommendation, Strategy) {
	switch {
	case len(collabRecs) > 0 && len(contentRecs) > 0:
		return m.merge(collabRecs, contentRecs, n), StrategyHybrid
	case len(collabRecs) > 0:
		return truncateRecs(collabRecs, n), StrategyCollaborative
	case len(contentRecs) > 0:
		return truncateRecs(contentRecs, n), StrategyContentBased
	default:
		return nil, StrategyNone
	}
}

// merge normalizes each list's raw scores independently, weights them
// by alpha and 1-alpha, and deduplicates by book id. An id present in
// both lists sums its weighted scores and is tagged hybrid; otherwise
// it keeps its source tag. The final sort is stable, so exact score
// ties keep first-seen order and the ranking is reproducible.
func (m Merger) merge(collabRecs, contentRecs []Recommendation, n int) []Recommendation {
	collabScores := normalizedScores(collabRecs)
	contentScores := normalizedScores(contentRecs)

	entries := make([]Recommendation, 0, len(collabRecs)+len(contentRecs))
	position := make(map[int64]int, len(collabRecs)+len(contentRecs))

	for i, rec := range collabRecs {
		rec.Score = collabScores[i] * m.alpha
		rec.Reason = ReasonCollaborative
		if pos, seen := position[rec.BookID]; seen {
			if rec.Score > entries[pos].Score {
				entries[pos] = rec
			}
			continue
		}
		position[rec.BookID] = len(entries)
		entries = append(entries, rec)
	}
	for i, rec := range contentRecs {
		weighted := contentScores[i] * (1 - m.alpha)
		if pos, seen := position[rec.BookID]; seen {
			entries[pos].Score += weighted
			entries[pos].Reason = ReasonHybrid
			continue
		}
		rec.Score = weighted
		rec.Reason = ReasonContentBased
		position[rec.BookID] = len(entries)
		entries = append(entries, rec)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return truncateRecs(entries, n)
}

func normalizedScores(recs []Recommendation) []float64 {
	scores := make([]float64, len(recs))
	for i, r := range recs {
		scores[i] = r.Score
	}
	normalizeInPlace(scores)
	return scores
}

func truncateRecs(recs []Recommendation, n int) []Recommendation {
	if len(recs) > n {
		return recs[:n]
	}
	return recs
}

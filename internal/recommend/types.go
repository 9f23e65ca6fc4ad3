// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import (
	"time"
)

// InteractionType classifies user-book interactions for implicit
// feedback.
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionLike     InteractionType = "like"
	InteractionRate     InteractionType = "rate"
	InteractionPurchase InteractionType = "purchase"
	InteractionBookmark InteractionType = "bookmark"
)

// Book is the item the engine recommends. The identifier is immutable;
// the aggregate fields are maintained by the upstream serving layer and
// arrive here through training snapshots.
type Book struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Author       string  `json:"author"`
	Genre        string  `json:"genre"`
	Description  string  `json:"description"`
	AvgRating    float64 `json:"avg_rating"`
	Interactions int64   `json:"total_interactions"`
}

// Interaction is one user-book event from the interaction table. Rating
// is 0 unless the type is rate.
type Interaction struct {
	UserID    int64           `json:"user_id"`
	BookID    int64           `json:"book_id"`
	Type      InteractionType `json:"interaction_type"`
	Rating    float64         `json:"rating"`
	CreatedAt time.Time       `json:"created_at"`
}

// Weight converts the interaction into the implicit-feedback strength
// used to build the training matrix. Ratings carry their own value;
// unrecognized types fall back to 1.
func (ia Interaction) Weight() float64 {
	switch ia.Type {
	case InteractionView:
		return 1
	case InteractionLike, InteractionBookmark:
		return 2
	case InteractionPurchase:
		return 5
	case InteractionRate:
		if ia.Rating > 0 {
			return ia.Rating
		}
		return 1
	default:
		return 1
	}
}

// Reason tags a recommendation with the source that produced it.
type Reason string

const (
	ReasonPopularity    Reason = "popularity"
	ReasonContentBased  Reason = "content-based"
	ReasonCollaborative Reason = "collaborative"
	ReasonHybrid        Reason = "hybrid"
)

// Strategy labels a whole response with the recommendation path taken.
type Strategy string

const (
	StrategyPopularity    Strategy = "popularity"
	StrategyContentBased  Strategy = "content-based"
	StrategyCollaborative Strategy = "collaborative"
	StrategyHybrid        Strategy = "hybrid"
	StrategyNone          Strategy = "none"
)

// Recommendation is a single scored result. It is constructed per
// inference call and never persisted.
type Recommendation struct {
	BookID int64   `json:"book_id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Genre  string  `json:"genre"`
	Score  float64 `json:"score"`
	Reason Reason  `json:"reason"`
}

// PopularEntry is one row of the precomputed popularity table.
type PopularEntry struct {
	BookID int64   `json:"book_id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Genre  string  `json:"genre"`
	Score  float64 `json:"score"`
}

// UserRecommender is the capability of producing a personalized ranked
// list for a user.
type UserRecommender interface {
	RecommendForUser(userID int64, n int) []Recommendation
}

// ItemSimilarity is the capability of answering item-to-item
// similarity queries.
type ItemSimilarity interface {
	SimilarItems(bookID int64, n int) []Recommendation
}

// ProfileRecommender is the capability of ranking items against a
// profile built from a set of liked items.
type ProfileRecommender interface {
	RecommendForProfile(likedIDs []int64, n int) []Recommendation
}

// bookMeta is the per-item display metadata carried inside model
// artifacts so each recommender can decorate its own results.
type bookMeta struct {
	Title  string
	Author string
	Genre  string
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package evaluate computes offline ranking quality metrics for trained
// recommenders: Precision@K, Recall@K, NDCG@K, and MAP over a held-out
// interaction set. All metrics use binary relevance.
package evaluate

import (
	"math"
)

// ItemSet is the set of held-out relevant items for one user.
type ItemSet map[int64]struct{}

// NewItemSet builds an ItemSet from item ids.
func NewItemSet(ids ...int64) ItemSet {
	set := make(ItemSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Contains reports whether id is in the set.
func (s ItemSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// PrecisionAtK is the fraction of the top-k recommended items that are
// relevant. The denominator is k even when fewer items were
// recommended, so short lists are penalized.
func PrecisionAtK(recommended []int64, relevant ItemSet, k int) float64 {
	if k <= 0 {
		return 0
	}
	return float64(hitsAtK(recommended, relevant, k)) / float64(k)
}

// RecallAtK is the fraction of relevant items that appear in the top-k
// recommendations. Returns 0 when there are no relevant items.
func RecallAtK(recommended []int64, relevant ItemSet, k int) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(hitsAtK(recommended, relevant, k)) / float64(len(relevant))
}

// NDCGAtK is the normalized discounted cumulative gain over the top-k
// recommendations with binary relevance:
//
//	DCG  = sum over hit positions i of 1/log2(i+2)
//	IDCG = sum over i in [0, min(|relevant|, k)) of 1/log2(i+2)
//
// Returns 0 when there are no relevant items or k is 0.
func NDCGAtK(recommended []int64, relevant ItemSet, k int) float64 {
	if len(relevant) == 0 || k <= 0 {
		return 0
	}

	limit := k
	if len(recommended) < limit {
		limit = len(recommended)
	}
	dcg := 0.0
	for i := 0; i < limit; i++ {
		if relevant.Contains(recommended[i]) {
			dcg += 1 / math.Log2(float64(i+2))
		}
	}

	ideal := len(relevant)
	if ideal > k {
		ideal = k
	}
	idcg := 0.0
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// AveragePrecision samples precision at each relevant hit position and
// divides by the number of relevant items. Returns 0 when there are no
// relevant items.
func AveragePrecision(recommended []int64, relevant ItemSet) float64 {
	if len(relevant) == 0 {
		return 0
	}

	hits := 0
	sum := 0.0
	for i, id := range recommended {
		if relevant.Contains(id) {
			hits++
			sum += float64(hits) / float64(i+1)
		}
	}
	return sum / float64(len(relevant))
}

// MeanAveragePrecision averages AveragePrecision across users, skipping
// users with no relevant items. Returns 0 when no user contributes.
func MeanAveragePrecision(recommended map[int64][]int64, relevant map[int64]ItemSet) float64 {
	sum := 0.0
	n := 0
	for userID, recs := range recommended {
		rel := relevant[userID]
		if len(rel) == 0 {
			continue
		}
		sum += AveragePrecision(recs, rel)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func hitsAtK(recommended []int64, relevant ItemSet, k int) int {
	if len(recommended) > k {
		recommended = recommended[:k]
	}
	hits := 0
	for _, id := range recommended {
		if relevant.Contains(id) {
			hits++
		}
	}
	return hits
}

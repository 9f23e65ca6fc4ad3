// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package evaluate

import (
	"math"
	"testing"

	"github.com/bookrec/bookrec/internal/recommend"
)

// fixedRanker returns a preset ranking per user.
type fixedRanker struct {
	rankings map[int64][]int64
}

func (f *fixedRanker) RecommendForUser(userID int64, n int) []recommend.Recommendation {
	ids := f.rankings[userID]
	if len(ids) > n {
		ids = ids[:n]
	}
	recs := make([]recommend.Recommendation, 0, len(ids))
	for _, id := range ids {
		recs = append(recs, recommend.Recommendation{BookID: id})
	}
	return recs
}

func TestEvaluate(t *testing.T) {
	ranker := &fixedRanker{rankings: map[int64][]int64{
		1: {101, 102, 103},
		2: {201, 999, 202},
	}}
	holdout := Holdout{
		1: NewItemSet(101, 103),
		2: NewItemSet(202),
		3: NewItemSet(301), // unknown to the ranker
		4: NewItemSet(),    // nothing relevant, skipped entirely
	}

	got := Evaluate(ranker, holdout, 3)

	if got.K != 3 || got.UsersEvaluated != 3 {
		t.Fatalf("K = %d, UsersEvaluated = %d; want 3, 3", got.K, got.UsersEvaluated)
	}

	// User 1 hits at ranks 1 and 3, user 2 at rank 3, user 3 nothing.
	wantPrecision := (2.0/3 + 1.0/3 + 0) / 3
	if !approxEq(got.Precision, wantPrecision) {
		t.Fatalf("Precision = %v, want %v", got.Precision, wantPrecision)
	}

	wantRecall := (1.0 + 1.0 + 0) / 3
	if !approxEq(got.Recall, wantRecall) {
		t.Fatalf("Recall = %v, want %v", got.Recall, wantRecall)
	}

	ndcgUser1 := (1 + 1/math.Log2(4)) / (1 + 1/math.Log2(3))
	ndcgUser2 := 1 / math.Log2(4)
	wantNDCG := (ndcgUser1 + ndcgUser2 + 0) / 3
	if !approxEq(got.NDCG, wantNDCG) {
		t.Fatalf("NDCG = %v, want %v", got.NDCG, wantNDCG)
	}

	wantMAP := (5.0/6 + 1.0/3 + 0) / 3
	if !approxEq(got.MAP, wantMAP) {
		t.Fatalf("MAP = %v, want %v", got.MAP, wantMAP)
	}
}

func TestEvaluatePerfectRanker(t *testing.T) {
	ranker := &fixedRanker{rankings: map[int64][]int64{
		1: {11, 12},
		2: {21, 22},
	}}
	holdout := Holdout{
		1: NewItemSet(11, 12),
		2: NewItemSet(21, 22),
	}

	got := Evaluate(ranker, holdout, 2)
	if !approxEq(got.Precision, 1) || !approxEq(got.Recall, 1) || !approxEq(got.NDCG, 1) || !approxEq(got.MAP, 1) {
		t.Fatalf("perfect ranker metrics = %+v, want all 1.0", got)
	}
}

func TestEvaluateEmptyHoldout(t *testing.T) {
	ranker := &fixedRanker{rankings: map[int64][]int64{1: {101}}}

	got := Evaluate(ranker, Holdout{}, 10)
	if got.UsersEvaluated != 0 || got.Precision != 0 || got.MAP != 0 {
		t.Fatalf("empty holdout result = %+v, want zeros", got)
	}
}

func TestEvaluateNilRanker(t *testing.T) {
	got := Evaluate(nil, Holdout{1: NewItemSet(101)}, 10)
	if got.UsersEvaluated != 0 || got.Precision != 0 {
		t.Fatalf("nil ranker result = %+v, want zeros", got)
	}
}

func TestEvaluateZeroK(t *testing.T) {
	ranker := &fixedRanker{rankings: map[int64][]int64{1: {101}}}

	got := Evaluate(ranker, Holdout{1: NewItemSet(101)}, 0)
	if got.UsersEvaluated != 0 || got.Precision != 0 {
		t.Fatalf("k=0 result = %+v, want zeros", got)
	}
}

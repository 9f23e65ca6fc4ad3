// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import (
	"math"
	"testing"
)

func approxEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildPopularityEmpty(t *testing.T) {
	if _, err := BuildPopularity(nil, DefaultPopularityParams()); err == nil {
		t.Fatal("expected error for empty catalog")
	}
}

func TestBuildPopularityBlendedScore(t *testing.T) {
	books := []Book{
		{ID: 1, Title: "A", Interactions: 100, AvgRating: 3.0},
		{ID: 2, Title: "B", Interactions: 50, AvgRating: 5.0},
		{ID: 3, Title: "C", Interactions: 0, AvgRating: 4.0},
	}
	model, err := BuildPopularity(books, DefaultPopularityParams())
	if err != nil {
		t.Fatalf("BuildPopularity: %v", err)
	}

	// Normalized counts are 1, 0.5, 0 and normalized ratings are
	// 0, 1, 0.5, giving blended scores 0.6, 0.7, 0.2.
	want := []struct {
		id    int64
		score float64
	}{
		{2, 0.7},
		{1, 0.6},
		{3, 0.2},
	}
	if len(model.entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(model.entries), len(want))
	}
	for i, w := range want {
		if model.entries[i].BookID != w.id {
			t.Errorf("entry %d = book %d, want %d", i, model.entries[i].BookID, w.id)
		}
		if !approxEq(model.entries[i].Score, w.score) {
			t.Errorf("entry %d score = %v, want %v", i, model.entries[i].Score, w.score)
		}
	}
}

func TestBuildPopularityRatingOnlyFallback(t *testing.T) {
	// No interactions anywhere in the catalog: rank by rating alone.
	books := []Book{
		{ID: 1, AvgRating: 2.0},
		{ID: 2, AvgRating: 4.5},
		{ID: 3, AvgRating: 3.0},
	}
	model, err := BuildPopularity(books, DefaultPopularityParams())
	if err != nil {
		t.Fatalf("BuildPopularity: %v", err)
	}

	wantOrder := []int64{2, 3, 1}
	for i, id := range wantOrder {
		if model.entries[i].BookID != id {
			t.Errorf("entry %d = book %d, want %d", i, model.entries[i].BookID, id)
		}
	}
}

func TestBuildPopularityTruncates(t *testing.T) {
	books := []Book{
		{ID: 1, Interactions: 4, AvgRating: 1},
		{ID: 2, Interactions: 3, AvgRating: 1},
		{ID: 3, Interactions: 2, AvgRating: 1},
		{ID: 4, Interactions: 1, AvgRating: 1},
	}
	params := PopularityParams{TopN: 2, CountWeight: 0.6, RatingWeight: 0.4}
	model, err := BuildPopularity(books, params)
	if err != nil {
		t.Fatalf("BuildPopularity: %v", err)
	}
	if len(model.entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(model.entries))
	}
	if model.entries[0].BookID != 1 || model.entries[1].BookID != 2 {
		t.Errorf("kept books %d, %d; want 1, 2", model.entries[0].BookID, model.entries[1].BookID)
	}
}

func TestBuildPopularityTiesOrderByID(t *testing.T) {
	books := []Book{
		{ID: 30, Interactions: 5, AvgRating: 4},
		{ID: 10, Interactions: 5, AvgRating: 4},
		{ID: 20, Interactions: 5, AvgRating: 4},
	}
	model, err := BuildPopularity(books, DefaultPopularityParams())
	if err != nil {
		t.Fatalf("BuildPopularity: %v", err)
	}

	wantOrder := []int64{10, 20, 30}
	for i, id := range wantOrder {
		if model.entries[i].BookID != id {
			t.Errorf("entry %d = book %d, want %d", i, model.entries[i].BookID, id)
		}
	}
}

func TestPopularityTop(t *testing.T) {
	books := []Book{
		{ID: 1, Title: "A", Interactions: 10, AvgRating: 5},
		{ID: 2, Title: "B", Interactions: 5, AvgRating: 3},
	}
	model, err := BuildPopularity(books, DefaultPopularityParams())
	if err != nil {
		t.Fatalf("BuildPopularity: %v", err)
	}

	recs := model.Top(1)
	if len(recs) != 1 {
		t.Fatalf("Top(1) returned %d entries", len(recs))
	}
	if recs[0].BookID != 1 || recs[0].Reason != ReasonPopularity {
		t.Errorf("Top(1) = %+v, want book 1 with popularity reason", recs[0])
	}

	if got := model.Top(10); len(got) != 2 {
		t.Errorf("Top beyond size returned %d entries, want 2", len(got))
	}
	if got := model.Top(0); got != nil {
		t.Errorf("Top(0) = %v, want nil", got)
	}
}

func TestNormalizeInPlace(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		want []float64
	}{
		{"empty", nil, nil},
		{"single", []float64{7}, []float64{1}},
		{"all equal", []float64{3, 3, 3}, []float64{1, 1, 1}},
		{"spread", []float64{2, 4, 6}, []float64{0, 0.5, 1}},
		{"negative", []float64{-1, 0, 1}, []float64{0, 0.5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := append([]float64(nil), tt.in...)
			normalizeInPlace(vals)
			for i := range tt.want {
				if !approxEq(vals[i], tt.want[i]) {
					t.Errorf("vals[%d] = %v, want %v", i, vals[i], tt.want[i])
				}
			}
		})
	}
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package evaluate

import (
	"sort"

	"github.com/bookrec/bookrec/internal/recommend"
)

// Holdout maps a user id to the relevant items withheld from training
// for that user.
type Holdout map[int64]ItemSet

// Result is the metric aggregate over all evaluated users.
type Result struct {
	K              int     `json:"k"`
	Precision      float64 `json:"precision_at_k"`
	Recall         float64 `json:"recall_at_k"`
	NDCG           float64 `json:"ndcg_at_k"`
	MAP            float64 `json:"map"`
	UsersEvaluated int     `json:"n_users_evaluated"`
}

// Evaluate ranks k items per holdout user through the recommender and
// averages the per-user metrics. Users with no relevant items are
// skipped; users the model cannot rank contribute zero scores, so the
// aggregate reflects coverage as well as ranking quality. Returns a
// zero Result on empty input.
func Evaluate(ranker recommend.UserRecommender, holdout Holdout, k int) Result {
	result := Result{K: k}
	if ranker == nil || k <= 0 {
		return result
	}

	userIDs := make([]int64, 0, len(holdout))
	for userID, relevant := range holdout {
		if len(relevant) > 0 {
			userIDs = append(userIDs, userID)
		}
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	recommended := make(map[int64][]int64, len(userIDs))
	for _, userID := range userIDs {
		relevant := holdout[userID]
		ids := recommendedIDs(ranker, userID, k)
		recommended[userID] = ids

		result.Precision += PrecisionAtK(ids, relevant, k)
		result.Recall += RecallAtK(ids, relevant, k)
		result.NDCG += NDCGAtK(ids, relevant, k)
	}

	result.UsersEvaluated = len(userIDs)
	if result.UsersEvaluated > 0 {
		n := float64(result.UsersEvaluated)
		result.Precision /= n
		result.Recall /= n
		result.NDCG /= n
		result.MAP = MeanAveragePrecision(recommended, holdout)
	}
	return result
}

func recommendedIDs(ranker recommend.UserRecommender, userID int64, k int) []int64 {
	recs := ranker.RecommendForUser(userID, k)
	ids := make([]int64, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.BookID)
	}
	return ids
}

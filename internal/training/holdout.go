// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package training

import (
	"github.com/bookrec/bookrec/internal/evaluate"
	"github.com/bookrec/bookrec/internal/recommend"
)

// SplitChronological cuts the interaction log into a training head and
// a holdout tail. Interactions must already be in chronological order;
// the tail holds the newest floor(fraction*len) events. A fraction
// outside (0, 1) returns everything as training data.
func SplitChronological(interactions []recommend.Interaction, fraction float64) (train, test []recommend.Interaction) {
	if fraction <= 0 || fraction >= 1 || len(interactions) == 0 {
		return interactions, nil
	}
	cut := len(interactions) - int(float64(len(interactions))*fraction)
	if cut <= 0 {
		cut = 1
	}
	if cut >= len(interactions) {
		return interactions, nil
	}
	return interactions[:cut], interactions[cut:]
}

// BuildHoldout converts the holdout tail into per-user relevant sets.
// Items a user already touched during the training window are dropped:
// the recommender filters interacted items from its output, so keeping
// them would make those hits unreachable and bias every metric down.
func BuildHoldout(train, test []recommend.Interaction) evaluate.Holdout {
	seen := make(map[int64]map[int64]struct{})
	for _, ia := range train {
		items := seen[ia.UserID]
		if items == nil {
			items = make(map[int64]struct{})
			seen[ia.UserID] = items
		}
		items[ia.BookID] = struct{}{}
	}

	holdout := make(evaluate.Holdout)
	for _, ia := range test {
		if _, ok := seen[ia.UserID][ia.BookID]; ok {
			continue
		}
		set := holdout[ia.UserID]
		if set == nil {
			set = make(evaluate.ItemSet)
			holdout[ia.UserID] = set
		}
		set[ia.BookID] = struct{}{}
	}
	return holdout
}

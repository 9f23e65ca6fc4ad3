// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package training

import (
	"testing"
	"time"

	"github.com/bookrec/bookrec/internal/recommend"
)

func interactionSeq(pairs ...[2]int64) []recommend.Interaction {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]recommend.Interaction, 0, len(pairs))
	for i, pair := range pairs {
		out = append(out, recommend.Interaction{
			UserID:    pair[0],
			BookID:    pair[1],
			Type:      recommend.InteractionView,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestSplitChronological(t *testing.T) {
	interactions := interactionSeq(
		[2]int64{1, 101}, [2]int64{1, 102}, [2]int64{2, 101}, [2]int64{2, 103},
		[2]int64{3, 104}, [2]int64{3, 101}, [2]int64{4, 102}, [2]int64{4, 105},
		[2]int64{1, 103}, [2]int64{2, 105},
	)

	train, test := SplitChronological(interactions, 0.2)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("split sizes = %d/%d, want 8/2", len(train), len(test))
	}
	// The tail must be the newest events.
	if test[0].UserID != 1 || test[0].BookID != 103 || test[1].UserID != 2 || test[1].BookID != 105 {
		t.Fatalf("test tail = %+v, want the final two interactions", test)
	}
}

func TestSplitChronologicalBounds(t *testing.T) {
	interactions := interactionSeq([2]int64{1, 101}, [2]int64{2, 102})

	if train, test := SplitChronological(interactions, 0); len(train) != 2 || test != nil {
		t.Fatalf("fraction 0: split = %d/%d, want all train", len(train), len(test))
	}
	if train, test := SplitChronological(interactions, 1); len(train) != 2 || test != nil {
		t.Fatalf("fraction 1: split = %d/%d, want all train", len(train), len(test))
	}
	if train, test := SplitChronological(nil, 0.5); train != nil || test != nil {
		t.Fatalf("empty input: split = %v/%v, want nil/nil", train, test)
	}

	// A tiny fraction of a tiny log still leaves at least one training row.
	train, test := SplitChronological(interactions, 0.99)
	if len(train) != 1 || len(test) != 1 {
		t.Fatalf("fraction 0.99 on 2 rows: split = %d/%d, want 1/1", len(train), len(test))
	}
}

func TestBuildHoldout(t *testing.T) {
	train := interactionSeq([2]int64{1, 101}, [2]int64{2, 201})
	test := interactionSeq(
		[2]int64{1, 101}, // seen during training, dropped
		[2]int64{1, 102},
		[2]int64{2, 202},
		[2]int64{2, 202}, // duplicate collapses into the set
		[2]int64{3, 301}, // user absent from training still counts
	)

	holdout := BuildHoldout(train, test)
	if len(holdout) != 3 {
		t.Fatalf("len(holdout) = %d, want 3", len(holdout))
	}
	if !holdout[1].Contains(102) || holdout[1].Contains(101) {
		t.Fatalf("holdout[1] = %v, want exactly {102}", holdout[1])
	}
	if len(holdout[2]) != 1 || !holdout[2].Contains(202) {
		t.Fatalf("holdout[2] = %v, want exactly {202}", holdout[2])
	}
	if !holdout[3].Contains(301) {
		t.Fatalf("holdout[3] = %v, want {301}", holdout[3])
	}
}

func TestBuildHoldoutAllSeen(t *testing.T) {
	train := interactionSeq([2]int64{1, 101})
	test := interactionSeq([2]int64{1, 101})

	if holdout := BuildHoldout(train, test); len(holdout) != 0 {
		t.Fatalf("holdout = %v, want empty", holdout)
	}
}

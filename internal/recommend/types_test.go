// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package recommend

import "testing"

func TestInteractionWeight(t *testing.T) {
	tests := []struct {
		name string
		ia   Interaction
		want float64
	}{
		{"view", Interaction{Type: InteractionView}, 1},
		{"like", Interaction{Type: InteractionLike}, 2},
		{"bookmark", Interaction{Type: InteractionBookmark}, 2},
		{"purchase", Interaction{Type: InteractionPurchase}, 5},
		{"rate carries its value", Interaction{Type: InteractionRate, Rating: 4.5}, 4.5},
		{"rate without a rating", Interaction{Type: InteractionRate}, 1},
		{"unknown type", Interaction{Type: "share"}, 1},
		{"rating ignored off rate", Interaction{Type: InteractionView, Rating: 5}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ia.Weight(); got != tt.want {
				t.Errorf("Weight() = %v, want %v", got, tt.want)
			}
		})
	}
}

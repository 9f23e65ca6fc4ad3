// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package config

import (
	"fmt"
	"math"

	"github.com/bookrec/bookrec/internal/validation"
)

// Validate checks tag constraints and the cross-field invariants the
// tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if c.Engine.DefaultN > c.Engine.MaxN {
		return fmt.Errorf("engine.default_n (%d) exceeds engine.max_n (%d)",
			c.Engine.DefaultN, c.Engine.MaxN)
	}

	if sum := c.Popularity.CountWeight + c.Popularity.RatingWeight; math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("popularity weights must sum to 1, got %g", sum)
	}

	if c.Training.Interval <= 0 {
		return fmt.Errorf("training.interval must be positive, got %s", c.Training.Interval)
	}
	if c.Training.RetryDelay < 0 {
		return fmt.Errorf("training.retry_delay must not be negative, got %s", c.Training.RetryDelay)
	}

	return nil
}

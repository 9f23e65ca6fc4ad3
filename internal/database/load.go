// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bookrec/bookrec/internal/recommend"
)

// LoadBooks returns the full catalog ordered by id. An empty catalog is
// returned as-is; the training pipeline decides whether that is fatal.
func (db *DB) LoadBooks(ctx context.Context) ([]recommend.Book, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, title, author, genre, COALESCE(description, ''), avg_rating, total_interactions
		FROM books
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []recommend.Book
	for rows.Next() {
		var b recommend.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Genre, &b.Description, &b.AvgRating, &b.Interactions); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}

	db.logger.Info().Int("count", len(books)).Msg("books loaded")
	return books, nil
}

// LoadInteractions returns all interactions in chronological order, so
// a holdout split taken from the tail evaluates against the newest
// events.
func (db *DB) LoadInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, book_id, interaction_type, rating, created_at
		FROM user_book_interactions
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	defer rows.Close()

	var interactions []recommend.Interaction
	users := make(map[int64]struct{})
	items := make(map[int64]struct{})
	for rows.Next() {
		var ia recommend.Interaction
		var rating sql.NullFloat64
		if err := rows.Scan(&ia.UserID, &ia.BookID, &ia.Type, &rating, &ia.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if rating.Valid {
			ia.Rating = rating.Float64
		}
		interactions = append(interactions, ia)
		users[ia.UserID] = struct{}{}
		items[ia.BookID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interactions: %w", err)
	}

	event := db.logger.Info().Int("count", len(interactions))
	if len(interactions) > 0 {
		cells := float64(len(users)) * float64(len(items))
		event = event.
			Int("n_users", len(users)).
			Int("n_items", len(items)).
			Float64("sparsity", 1-float64(len(interactions))/cells)
	}
	event.Msg("interactions loaded")
	return interactions, nil
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package database reads the tabular training snapshot (books and
// user-book interactions) out of an embedded DuckDB file. The serving
// tier owns the authoritative relational data; this package only
// consumes the replicated snapshot the trainer works from.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rs/zerolog"
)

// DB wraps the DuckDB connection holding the training snapshot.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the snapshot database and ensures the
// schema exists. Path ":memory:" opens an ephemeral database.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func Open(path string, logger zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("duckdb", path+"?access_mode=read_write")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// The trainer is the only writer and reads sequentially; a small
	// pool keeps DuckDB's CGO surface quiet.
	conn.SetMaxOpenConns(2)
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn, logger: logger}
	if err := db.createTables(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close checkpoints the WAL and closes the connection. The checkpoint
// is best-effort; a failure only risks a replay on next open.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		db.logger.Warn().Err(err).Msg("checkpoint before close failed")
	}
	return db.conn.Close()
}

func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Plain TIMESTAMP columns keep the schema free of extension
	// dependencies (TIMESTAMPTZ pulls in icu).
	queries := []string{
		`CREATE TABLE IF NOT EXISTS books (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			author TEXT NOT NULL,
			genre TEXT NOT NULL,
			description TEXT,
			avg_rating DOUBLE NOT NULL DEFAULT 0,
			total_interactions BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE TABLE IF NOT EXISTS user_book_interactions (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			book_id BIGINT NOT NULL,
			interaction_type TEXT NOT NULL,
			rating DOUBLE,
			created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON user_book_interactions (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_book ON user_book_interactions (book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_created ON user_book_interactions (created_at)`,
	}
	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

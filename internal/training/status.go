// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/config"
)

// Run status values published to the shared status store.
const (
	StatusQueued    = "queued"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// StatusRecord is the externally visible state of the latest training
// run, polled by the trainer's status endpoint and by operators.
type StatusRecord struct {
	TaskID       string     `json:"task_id"`
	Status       string     `json:"status"`
	ModelVersion string     `json:"model_version,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Metrics      *Metadata  `json:"metrics,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// StatusStore publishes and retrieves the latest run status.
type StatusStore interface {
	Publish(ctx context.Context, record StatusRecord) error
	Latest(ctx context.Context) (*StatusRecord, bool, error)
}

// RedisStatusStore keeps the latest status under a single key with a
// TTL, so a dead trainer's status ages out instead of lying forever.
type RedisStatusStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger zerolog.Logger
}

var _ StatusStore = (*RedisStatusStore)(nil)

// NewRedisStatusStore connects the status store. The connection is
// verified lazily; a down Redis degrades to publish failures that the
// caller logs and swallows.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewRedisStatusStore(cfg config.RedisConfig, logger zerolog.Logger) *RedisStatusStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisStatusStore{
		client: client,
		key:    cfg.StatusKey,
		ttl:    cfg.StatusTTL,
		logger: logger,
	}
}

// Ping verifies connectivity.
func (s *RedisStatusStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *RedisStatusStore) Close() error {
	return s.client.Close()
}

// Publish overwrites the latest status record.
func (s *RedisStatusStore) Publish(ctx context.Context, record StatusRecord) error {
	data, err := marshalStatus(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("publish status: %w", err)
	}
	s.logger.Debug().Str("task_id", record.TaskID).Str("status", record.Status).Msg("status published")
	return nil
}

// Latest returns the current status record, or ok=false when none is
// stored (or it has expired).
func (s *RedisStatusStore) Latest(ctx context.Context) (*StatusRecord, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read status: %w", err)
	}
	record, err := unmarshalStatus(data)
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

func marshalStatus(record StatusRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode status: %w", err)
	}
	return data, nil
}

func unmarshalStatus(data []byte) (*StatusRecord, error) {
	var record StatusRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &record, nil
}

// MemoryStatusStore keeps the latest record in process memory. It
// backs single-node deployments that run without Redis; the status is
// lost on restart, which matches the lifetime of the runs it reports.
type MemoryStatusStore struct {
	mu     sync.Mutex
	record *StatusRecord
}

var _ StatusStore = (*MemoryStatusStore)(nil)

// NewMemoryStatusStore returns an empty in-process store.
func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{}
}

// Publish overwrites the latest status record.
func (s *MemoryStatusStore) Publish(_ context.Context, record StatusRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = &record
	return nil
}

// Latest returns a copy of the current record, or ok=false when no run
// has been recorded yet.
func (s *MemoryStatusStore) Latest(context.Context) (*StatusRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, false, nil
	}
	record := *s.record
	return &record, true, nil
}

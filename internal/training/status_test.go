// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package training

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStatusStoreEmpty(t *testing.T) {
	store := NewMemoryStatusStore()

	record, ok, err := store.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if ok || record != nil {
		t.Fatalf("expected no record, got ok=%v record=%+v", ok, record)
	}
}

func TestMemoryStatusStorePublishOverwrites(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	if err := store.Publish(ctx, StatusRecord{TaskID: "a", Status: StatusQueued}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	done := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Publish(ctx, StatusRecord{
		TaskID:       "a",
		Status:       StatusCompleted,
		ModelVersion: "20260301_120000",
		CompletedAt:  &done,
	}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	record, ok, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !ok {
		t.Fatal("expected a record after publish")
	}
	if record.Status != StatusCompleted || record.ModelVersion != "20260301_120000" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestMemoryStatusStoreReturnsCopy(t *testing.T) {
	store := NewMemoryStatusStore()
	ctx := context.Background()

	if err := store.Publish(ctx, StatusRecord{TaskID: "a", Status: StatusQueued}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	first, _, _ := store.Latest(ctx)
	first.Status = StatusFailed

	second, _, _ := store.Latest(ctx)
	if second.Status != StatusQueued {
		t.Fatalf("mutation through returned record leaked into store: %+v", second)
	}
}

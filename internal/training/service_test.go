// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package training

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bookrec/bookrec/internal/logging"
)

// scriptedRunner returns queued results in order, then repeats the
// last one. A nil error yields a fixed metadata record.
type scriptedRunner struct {
	mu      sync.Mutex
	results []error
	calls   int
	block   chan struct{} // non-nil: Run waits here first
}

func (r *scriptedRunner) Run(ctx context.Context) (*Metadata, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.calls
	r.calls++
	if idx >= len(r.results) {
		idx = len(r.results) - 1
	}
	if idx >= 0 && r.results[idx] != nil {
		return nil, r.results[idx]
	}
	return &Metadata{ModelVersion: "20260301_120000"}, nil
}

func (r *scriptedRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// memStatusStore records every published status.
type memStatusStore struct {
	mu      sync.Mutex
	records []StatusRecord
}

func (m *memStatusStore) Publish(_ context.Context, record StatusRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *memStatusStore) Latest(context.Context) (*StatusRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil, false, nil
	}
	last := m.records[len(m.records)-1]
	return &last, true, nil
}

func (m *memStatusStore) snapshot() []StatusRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StatusRecord(nil), m.records...)
}

func testServiceConfig() ServiceConfig {
	return ServiceConfig{
		Interval:   time.Hour,
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
	}
}

func startService(t *testing.T, runner Runner, status StatusStore, cfg ServiceConfig) *Service {
	t.Helper()

	svc := NewService(runner, status, cfg, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = svc.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return svc
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServiceRunsTriggeredTraining(t *testing.T) {
	runner := &scriptedRunner{results: []error{nil}}
	status := &memStatusStore{}
	svc := startService(t, runner, status, testServiceConfig())

	taskID, err := svc.TriggerRun(context.Background())
	if err != nil {
		t.Fatalf("TriggerRun: %v", err)
	}
	if taskID == "" {
		t.Fatal("TriggerRun returned empty task id")
	}

	waitFor(t, "run completion", func() bool { return runner.callCount() == 1 && !svc.Running() })

	records := status.snapshot()
	if len(records) != 2 {
		t.Fatalf("status records = %d, want queued then completed", len(records))
	}
	if records[0].Status != StatusQueued || records[0].TaskID != taskID {
		t.Fatalf("first record = %+v, want queued %s", records[0], taskID)
	}
	last := records[1]
	if last.Status != StatusCompleted || last.TaskID != taskID {
		t.Fatalf("final record = %+v, want completed %s", last, taskID)
	}
	if last.ModelVersion != "20260301_120000" || last.CompletedAt == nil || last.Metrics == nil {
		t.Fatalf("completed record missing fields: %+v", last)
	}
}

func TestServiceRejectsOverlappingRuns(t *testing.T) {
	runner := &scriptedRunner{results: []error{nil}, block: make(chan struct{})}
	svc := startService(t, runner, &memStatusStore{}, testServiceConfig())
	ctx := context.Background()

	if _, err := svc.TriggerRun(ctx); err != nil {
		t.Fatalf("first TriggerRun: %v", err)
	}
	if _, err := svc.TriggerRun(ctx); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("second TriggerRun err = %v, want ErrRunInProgress", err)
	}

	close(runner.block)
	waitFor(t, "first run completion", func() bool { return !svc.Running() })

	runner.block = nil
	if _, err := svc.TriggerRun(ctx); err != nil {
		t.Fatalf("TriggerRun after completion: %v", err)
	}
}

func TestServiceRetriesTransientFailure(t *testing.T) {
	runner := &scriptedRunner{results: []error{errors.New("db timeout"), nil}}
	status := &memStatusStore{}
	svc := startService(t, runner, status, testServiceConfig())

	if _, err := svc.TriggerRun(context.Background()); err != nil {
		t.Fatalf("TriggerRun: %v", err)
	}
	waitFor(t, "retry completion", func() bool { return runner.callCount() == 2 && !svc.Running() })

	last, ok, _ := status.Latest(context.Background())
	if !ok || last.Status != StatusCompleted {
		t.Fatalf("final status = %+v, want completed after retry", last)
	}
}

func TestServiceExhaustsRetryBudget(t *testing.T) {
	runner := &scriptedRunner{results: []error{errors.New("db timeout")}}
	status := &memStatusStore{}
	cfg := testServiceConfig()
	cfg.MaxRetries = 1
	svc := startService(t, runner, status, cfg)

	if _, err := svc.TriggerRun(context.Background()); err != nil {
		t.Fatalf("TriggerRun: %v", err)
	}
	waitFor(t, "run failure", func() bool { return !svc.Running() && runner.callCount() >= 2 })

	if got := runner.callCount(); got != 2 {
		t.Fatalf("attempts = %d, want 2 (1 + MaxRetries)", got)
	}
	last, ok, _ := status.Latest(context.Background())
	if !ok || last.Status != StatusFailed || last.Error == "" {
		t.Fatalf("final status = %+v, want failed with error", last)
	}
}

func TestServiceEmptyCatalogDoesNotRetry(t *testing.T) {
	runner := &scriptedRunner{results: []error{ErrNoBooks}}
	status := &memStatusStore{}
	svc := startService(t, runner, status, testServiceConfig())

	if _, err := svc.TriggerRun(context.Background()); err != nil {
		t.Fatalf("TriggerRun: %v", err)
	}
	waitFor(t, "fatal failure", func() bool { return !svc.Running() && runner.callCount() >= 1 })

	if got := runner.callCount(); got != 1 {
		t.Fatalf("attempts = %d, want 1 (no retries for empty catalog)", got)
	}
	last, ok, _ := status.Latest(context.Background())
	if !ok || last.Status != StatusFailed {
		t.Fatalf("final status = %+v, want failed", last)
	}
}

func TestServiceTrainsOnStartup(t *testing.T) {
	runner := &scriptedRunner{results: []error{nil}}
	cfg := testServiceConfig()
	cfg.TrainOnStartup = true
	svc := startService(t, runner, &memStatusStore{}, cfg)

	waitFor(t, "startup run", func() bool { return runner.callCount() == 1 && !svc.Running() })
}

func TestServiceString(t *testing.T) {
	svc := NewService(&scriptedRunner{}, nil, testServiceConfig(), logging.Nop())
	if svc.String() != "training-service" {
		t.Fatalf("String() = %q", svc.String())
	}
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bookrec/bookrec/internal/logging"
)

// signalService marks when it starts and blocks until canceled.
type signalService struct {
	started chan struct{}
}

func (s *signalService) Serve(ctx context.Context) error {
	select {
	case s.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *signalService) String() string { return "signal-service" }

func TestNewTreeAppliesDefaults(t *testing.T) {
	tree := NewTree("bookrec-test", logging.Nop(), TreeConfig{})

	want := DefaultTreeConfig()
	if tree.config != want {
		t.Fatalf("config = %+v, want defaults %+v", tree.config, want)
	}
}

func TestTreeRunsServicesInBothLayers(t *testing.T) {
	tree := NewTree("bookrec-test", logging.Nop(), DefaultTreeConfig())

	worker := &signalService{started: make(chan struct{}, 1)}
	listener := &signalService{started: make(chan struct{}, 1)}
	tree.AddWorker(worker)
	tree.AddAPI(listener)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	for _, ch := range []chan struct{}{worker.started, listener.started} {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatal("service did not start under supervision")
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("tree stopped with %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Fatalf("unstopped services: %v", report)
	}
}

// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package training

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/metrics"
)

// ErrRunInProgress rejects a trigger while a run is queued or active.
// Overlapping runs would race on the "latest" artifacts.
var ErrRunInProgress = errors.New("training run already in progress")

// Runner abstracts the pipeline for the service loop.
type Runner interface {
	Run(ctx context.Context) (*Metadata, error)
}

// ServiceConfig controls scheduling and retries.
type ServiceConfig struct {
	Interval       time.Duration
	TrainOnStartup bool

	// MaxRetries is the extra attempts after a retryable failure; the
	// delay between attempts is fixed. ErrNoBooks never retries.
	MaxRetries int
	RetryDelay time.Duration
}

// Service runs the pipeline on a schedule and on demand, one run at a
// time. It implements suture.Service.
type Service struct {
	runner Runner
	status StatusStore
	cfg    ServiceConfig
	logger zerolog.Logger

	mu      sync.Mutex
	busy    bool
	trigger chan string
	name    string
}

// NewService builds the training service. status may be nil when no
// shared status store is configured.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewService(runner Runner, status StatusStore, cfg ServiceConfig, logger zerolog.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 168 * time.Hour
	}
	return &Service{
		runner:  runner,
		status:  status,
		cfg:     cfg,
		logger:  logger.With().Str("service", "training").Logger(),
		trigger: make(chan string, 1),
		name:    "training-service",
	}
}

// TriggerRun queues an on-demand training run and returns its task id.
// Returns ErrRunInProgress when a run is already queued or active.
func (s *Service) TriggerRun(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return "", ErrRunInProgress
	}
	s.busy = true

	taskID := uuid.NewString()
	s.publish(ctx, StatusRecord{TaskID: taskID, Status: StatusQueued})
	s.trigger <- taskID
	return taskID, nil
}

// Running reports whether a run is queued or active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Serve implements suture.Service: a ticker drives scheduled runs and
// the trigger channel delivers on-demand ones. Failed runs are marked
// in the status store and the loop keeps going; the next scheduled run
// gets a fresh retry budget.
func (s *Service) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.cfg.Interval).
		Bool("train_on_startup", s.cfg.TrainOnStartup).
		Msg("training service starting")

	if s.cfg.TrainOnStartup {
		if _, err := s.TriggerRun(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("startup training not queued")
		}
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training service shutting down")
			return ctx.Err()

		case taskID := <-s.trigger:
			s.runOnce(ctx, taskID)

		case <-ticker.C:
			if _, err := s.TriggerRun(ctx); err != nil {
				s.logger.Debug().Msg("scheduled run skipped, training in progress")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Service) String() string {
	return s.name
}

func (s *Service) runOnce(ctx context.Context, taskID string) {
	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	start := time.Now()
	logger := s.logger.With().Str("task_id", taskID).Logger()
	logger.Info().Msg("training run started")

	attempts := s.cfg.MaxRetries + 1
	var meta *Metadata
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		meta, err = s.runner.Run(ctx)
		if err == nil {
			break
		}
		if errors.Is(err, ErrNoBooks) || ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("training attempt failed, retrying")
			if !s.sleep(ctx) {
				break
			}
		}
	}

	duration := time.Since(start)
	if err != nil {
		logger.Error().Err(err).Dur("duration", duration).Msg("training run failed")
		metrics.RecordTrainingRun(StatusFailed, duration)
		now := time.Now().UTC()
		s.publish(ctx, StatusRecord{
			TaskID:      taskID,
			Status:      StatusFailed,
			CompletedAt: &now,
			Error:       err.Error(),
		})
		return
	}

	metrics.RecordTrainingRun(StatusCompleted, duration)
	now := time.Now().UTC()
	s.publish(ctx, StatusRecord{
		TaskID:       taskID,
		Status:       StatusCompleted,
		ModelVersion: meta.ModelVersion,
		CompletedAt:  &now,
		Metrics:      meta,
	})
}

func (s *Service) sleep(ctx context.Context) bool {
	timer := time.NewTimer(s.cfg.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Service) publish(ctx context.Context, record StatusRecord) {
	if s.status == nil {
		return
	}
	if err := s.status.Publish(ctx, record); err != nil {
		s.logger.Warn().Err(err).Msg("status publish failed")
	}
}

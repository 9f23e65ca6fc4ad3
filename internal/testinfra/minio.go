// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMinioImage is the MinIO server image used for integration tests.
	DefaultMinioImage = "minio/minio:latest"

	// DefaultMinioPort is MinIO's S3 API port.
	DefaultMinioPort = "9000"

	// Static test credentials; MinIO requires at least 8-character secrets.
	DefaultMinioAccessKey = "bookrec-test"
	DefaultMinioSecretKey = "bookrec-test-secret"
)

// MinioContainer is a running MinIO instance for artifact remote tests.
type MinioContainer struct {
	testcontainers.Container

	// Endpoint is host:port for the S3 API, without a scheme.
	Endpoint  string
	AccessKey string
	SecretKey string
}

// MinioOption configures the MinIO container.
type MinioOption func(*minioConfig)

type minioConfig struct {
	image        string
	startTimeout time.Duration
}

// WithMinioImage sets a custom MinIO Docker image.
func WithMinioImage(image string) MinioOption {
	return func(c *minioConfig) {
		c.image = image
	}
}

// WithMinioStartTimeout sets the startup wait timeout.
func WithMinioStartTimeout(timeout time.Duration) MinioOption {
	return func(c *minioConfig) {
		c.startTimeout = timeout
	}
}

// NewMinioContainer creates and starts a MinIO container.
func NewMinioContainer(ctx context.Context, opts ...MinioOption) (*MinioContainer, error) {
	cfg := &minioConfig{
		image:        DefaultMinioImage,
		startTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultMinioPort + "/tcp"},
		Cmd:          []string{"server", "/data"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     DefaultMinioAccessKey,
			"MINIO_ROOT_PASSWORD": DefaultMinioSecretKey,
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(DefaultMinioPort+"/tcp"),
			wait.ForHTTP("/minio/health/live").WithPort(DefaultMinioPort+"/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("resolve minio host: %w", err)
	}
	port, err := container.MappedPort(ctx, DefaultMinioPort+"/tcp")
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("resolve minio port: %w", err)
	}

	return &MinioContainer{
		Container: container,
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: DefaultMinioAccessKey,
		SecretKey: DefaultMinioSecretKey,
	}, nil
}

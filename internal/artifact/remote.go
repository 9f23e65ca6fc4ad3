// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Remote is the object-store mirror behind the local tier.
type Remote interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// RemoteConfig configures the S3-compatible remote tier.
type RemoteConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioRemote mirrors artifacts to an S3-compatible object store. All
// calls run through a circuit breaker, so an unreachable store fails
// fast instead of stalling every save and load until its timeout.
type MinioRemote struct {
	client  *minio.Client
	bucket  string
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  zerolog.Logger
}

var _ Remote = (*MinioRemote)(nil)

// NewMinioRemote builds the remote tier. The endpoint is not contacted
// here; connectivity problems surface on first use.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewMinioRemote(cfg RemoteConfig, logger zerolog.Logger) (*MinioRemote, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	r := &MinioRemote{client: client, bucket: cfg.Bucket, logger: logger}
	r.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "artifact-remote",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing object is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || isRemoteNotFound(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logger.Warn().Str("breaker", name).Msg("object store circuit opened")
			}
		},
	})
	return r, nil
}

// EnsureBucket creates the artifact bucket when it does not exist.
// The trainer calls this once at startup.
func (r *MinioRemote) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", r.bucket, err)
	}
	if exists {
		return nil
	}
	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", r.bucket, err)
	}
	r.logger.Info().Str("bucket", r.bucket).Msg("artifact bucket created")
	return nil
}

// Put uploads an artifact blob.
func (r *MinioRemote) Put(ctx context.Context, key string, data []byte) error {
	_, err := r.breaker.Execute(func() ([]byte, error) {
		_, err := r.client.PutObject(ctx, r.bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "application/octet-stream"})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Get downloads an artifact blob, mapping missing objects to
// ErrNotFound.
func (r *MinioRemote) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.breaker.Execute(func() ([]byte, error) {
		obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		defer obj.Close()
		return io.ReadAll(obj)
	})
	if err != nil {
		if isRemoteNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return data, nil
}

func isRemoteNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}

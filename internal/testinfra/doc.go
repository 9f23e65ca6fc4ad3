// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package testinfra manages Docker containers for integration tests via
// testcontainers-go, so the artifact remote and the status store can be
// exercised against real MinIO and Redis instances instead of mocks.
//
// All harness code is behind the integration build tag:
//
//	go test -tags integration ./...
//
// Tests skip gracefully when Docker is unavailable:
//
//	func TestRemoteRoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    minio, err := testinfra.NewMinioContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, minio)
//	    // Use minio.Endpoint, minio.AccessKey, minio.SecretKey.
//	}
//
// First run may need to download container images; subsequent runs use
// cached images.
package testinfra

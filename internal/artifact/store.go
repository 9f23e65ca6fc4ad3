// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

// Package artifact persists versioned model blobs through three tiers:
// an injected in-memory cache, the local filesystem, and an optional
// remote object store mirror. Absence of an artifact is a normal
// outcome, and remote failures degrade to local-only operation rather
// than aborting the caller.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bookrec/bookrec/internal/metrics"
)

// VersionLatest is the version tag every training run overwrites
// wholesale.
const VersionLatest = "latest"

// metadataFile is the run metadata record co-located with the
// artifacts.
const metadataFile = "metadata.json"

// ErrNotFound reports an artifact absent from every tier. Callers
// treat it as "model unavailable", not as a failure.
var ErrNotFound = errors.New("artifact: not found")

// Store reads and writes model artifacts. It is safe for concurrent
// use.
type Store struct {
	dir    string
	cache  Cacher
	remote Remote
	logger zerolog.Logger
}

// NewStore creates the local artifact directory and wires the tiers.
// remote may be nil for local-only deployments.
//
//nolint:gocritic // zerolog.Logger is passed by value per library convention
func NewStore(dir string, cache Cacher, remote Remote, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Store{dir: dir, cache: cache, remote: remote, logger: logger}, nil
}

// Save writes the artifact locally and mirrors it to the remote tier.
// The local write goes through a temp file and rename, so a concurrent
// reader never sees a half-written artifact. Remote failures are
// logged and swallowed.
func (s *Store) Save(ctx context.Context, name, version string, data []byte) error {
	if err := writeFileAtomic(s.localPath(name, version), data); err != nil {
		return fmt.Errorf("save artifact %s: %w", name, err)
	}
	s.cache.Set(cacheKey(name, version), data)
	s.logger.Info().
		Str("artifact", name).
		Str("version", version).
		Int("bytes", len(data)).
		Msg("artifact saved")

	if s.remote != nil {
		if err := s.remote.Put(ctx, remoteKey(name, version), data); err != nil {
			s.logger.Error().Err(err).Str("artifact", name).Msg("remote mirror failed")
		}
	}
	return nil
}

// Load resolves an artifact through cache, local disk, then remote.
// A remote hit is laid down locally so later loads stay off the
// network. Returns ErrNotFound when no tier has the artifact.
func (s *Store) Load(ctx context.Context, name, version string) ([]byte, error) {
	key := cacheKey(name, version)
	if data, ok := s.cache.Get(key); ok {
		metrics.RecordCacheHit()
		return data, nil
	}
	metrics.RecordCacheMiss()

	path := s.localPath(name, version)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		data, err = s.fetchRemote(ctx, name, version, path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read artifact %s: %w", name, err)
	}

	s.cache.Set(key, data)
	return data, nil
}

func (s *Store) fetchRemote(ctx context.Context, name, version, path string) ([]byte, error) {
	if s.remote == nil {
		return nil, fmt.Errorf("%w: %s_%s", ErrNotFound, name, version)
	}
	data, err := s.remote.Get(ctx, remoteKey(name, version))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("artifact", name).Msg("remote fetch failed")
		}
		return nil, fmt.Errorf("%w: %s_%s", ErrNotFound, name, version)
	}

	if err := writeFileAtomic(path, data); err != nil {
		s.logger.Warn().Err(err).Str("artifact", name).Msg("local mirror of remote artifact failed")
	}
	s.logger.Info().Str("artifact", name).Str("version", version).Msg("artifact fetched from remote")
	return data, nil
}

// Reload drops the cache tier, forcing the next Load of each artifact
// to re-read backing storage.
func (s *Store) Reload() {
	s.cache.Clear()
	s.logger.Info().Msg("artifact cache cleared")
}

// SaveMetadata writes the run metadata record next to the artifacts.
func (s *Store) SaveMetadata(data []byte) error {
	if err := writeFileAtomic(filepath.Join(s.dir, metadataFile), data); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads the run metadata record of the last completed
// training run. Returns ErrNotFound before the first run.
func (s *Store) LoadMetadata() ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, metadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return data, nil
}

func (s *Store) localPath(name, version string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.model", name, version))
}

func cacheKey(name, version string) string {
	return name + "_" + version
}

// remoteKey follows the models/{name}_{version} mirror layout.
func remoteKey(name, version string) string {
	return "models/" + name + "_" + version
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

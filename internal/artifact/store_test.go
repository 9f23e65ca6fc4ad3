// Bookrec - Hybrid Book Recommendation Engine
// Copyright 2026 The Bookrec Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/bookrec/bookrec

package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bookrec/bookrec/internal/logging"
)

// fakeRemote is a map-backed Remote with injectable failures.
type fakeRemote struct {
	objects map[string][]byte
	putErr  error
	getErr  error
	puts    int
	gets    int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{objects: make(map[string][]byte)}
}

func (f *fakeRemote) Put(_ context.Context, key string, data []byte) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	f.objects[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Get on empty cache reported a hit")
	}

	c.Set("a", []byte("one"))
	c.Set("b", []byte("two"))
	if got := c.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	data, ok := c.Get("a")
	if !ok || !bytes.Equal(data, []byte("one")) {
		t.Fatalf("Get(a) = %q, %v; want \"one\", true", data, ok)
	}

	c.Set("a", []byte("replaced"))
	data, _ = c.Get("a")
	if !bytes.Equal(data, []byte("replaced")) {
		t.Fatalf("Get(a) after overwrite = %q, want \"replaced\"", data)
	}

	c.Clear()
	if got := c.Len(); got != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", got)
	}
	if _, ok := c.Get("a"); ok {
		t.Fatal("Get(a) after Clear reported a hit")
	}
}

func newTestStore(t *testing.T, remote Remote) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir(), NewMemoryCache(), remote, logging.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStoreSaveLoadLocal(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	payload := []byte("model bytes")

	if err := store.Save(ctx, "content", VersionLatest, payload); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "content", VersionLatest)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Load = %q, want %q", got, payload)
	}

	path := filepath.Join(store.dir, "content_latest.model")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected artifact file at %s: %v", path, err)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t, nil)

	_, err := store.Load(context.Background(), "collab", VersionLatest)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load missing artifact: err = %v, want ErrNotFound", err)
	}
}

func TestStoreServesFromCache(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()
	payload := []byte("cached bytes")

	if err := store.Save(ctx, "content", VersionLatest, payload); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Save populates the cache, so the artifact survives losing the
	// local file until the cache is purged.
	path := filepath.Join(store.dir, "content_latest.model")
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove local file: %v", err)
	}

	got, err := store.Load(ctx, "content", VersionLatest)
	if err != nil {
		t.Fatalf("Load after removing local file: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Load = %q, want %q", got, payload)
	}

	store.Reload()
	if _, err := store.Load(ctx, "content", VersionLatest); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load after Reload with no local file: err = %v, want ErrNotFound", err)
	}
}

func TestStoreReloadPicksUpNewFile(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	if err := store.Save(ctx, "content", VersionLatest, []byte("v1")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Load(ctx, "content", VersionLatest); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Swap the file behind the cache's back. Load keeps serving the
	// cached copy until Reload purges it.
	path := filepath.Join(store.dir, "content_latest.model")
	if err := os.WriteFile(path, []byte("v2"), 0o600); err != nil {
		t.Fatalf("rewrite local file: %v", err)
	}

	got, err := store.Load(ctx, "content", VersionLatest)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Fatalf("Load before Reload = %q, want cached \"v1\"", got)
	}

	store.Reload()
	got, err = store.Load(ctx, "content", VersionLatest)
	if err != nil {
		t.Fatalf("Load after Reload: %v", err)
	}
	if !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("Load after Reload = %q, want \"v2\"", got)
	}
}

func TestStoreFetchesFromRemote(t *testing.T) {
	remote := newFakeRemote()
	remote.objects["models/collab_latest"] = []byte("remote bytes")
	store := newTestStore(t, remote)
	ctx := context.Background()

	got, err := store.Load(ctx, "collab", VersionLatest)
	if err != nil {
		t.Fatalf("Load from remote: %v", err)
	}
	if !bytes.Equal(got, []byte("remote bytes")) {
		t.Fatalf("Load = %q, want remote payload", got)
	}

	// The download is laid down locally so later loads skip the remote.
	path := filepath.Join(store.dir, "collab_latest.model")
	if data, err := os.ReadFile(path); err != nil || !bytes.Equal(data, []byte("remote bytes")) {
		t.Fatalf("local copy after remote fetch = %q, %v", data, err)
	}

	store.Reload()
	if _, err := store.Load(ctx, "collab", VersionLatest); err != nil {
		t.Fatalf("Load after Reload: %v", err)
	}
	if remote.gets != 1 {
		t.Fatalf("remote gets = %d, want 1 (second load should hit local disk)", remote.gets)
	}
}

func TestStoreRemoteMissDegradesToNotFound(t *testing.T) {
	store := newTestStore(t, newFakeRemote())

	_, err := store.Load(context.Background(), "content", VersionLatest)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load with empty remote: err = %v, want ErrNotFound", err)
	}
}

func TestStoreRemoteFailureDegradesToNotFound(t *testing.T) {
	remote := newFakeRemote()
	remote.getErr = errors.New("connection refused")
	store := newTestStore(t, remote)

	_, err := store.Load(context.Background(), "content", VersionLatest)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load with failing remote: err = %v, want ErrNotFound", err)
	}
}

func TestStoreSaveMirrorsToRemote(t *testing.T) {
	remote := newFakeRemote()
	store := newTestStore(t, remote)
	ctx := context.Background()

	if err := store.Save(ctx, "popularity", VersionLatest, []byte("pop")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, ok := remote.objects["models/popularity_latest"]
	if !ok || !bytes.Equal(data, []byte("pop")) {
		t.Fatalf("remote object = %q, %v; want mirrored payload", data, ok)
	}
}

func TestStoreSaveSwallowsRemoteError(t *testing.T) {
	remote := newFakeRemote()
	remote.putErr = errors.New("bucket unavailable")
	store := newTestStore(t, remote)
	ctx := context.Background()

	if err := store.Save(ctx, "content", VersionLatest, []byte("local only")); err != nil {
		t.Fatalf("Save with failing remote returned error: %v", err)
	}

	got, err := store.Load(ctx, "content", VersionLatest)
	if err != nil || !bytes.Equal(got, []byte("local only")) {
		t.Fatalf("Load after Save = %q, %v; want local payload", got, err)
	}
}

func TestStoreMetadata(t *testing.T) {
	store := newTestStore(t, nil)

	if _, err := store.LoadMetadata(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadMetadata before save: err = %v, want ErrNotFound", err)
	}

	meta := []byte(`{"model_version":"20260301120000"}`)
	if err := store.SaveMetadata(meta); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	got, err := store.LoadMetadata()
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if !bytes.Equal(got, meta) {
		t.Fatalf("LoadMetadata = %q, want %q", got, meta)
	}
}

func TestStoreVersionedPaths(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	if err := store.Save(ctx, "content", "20260301120000", []byte("pinned")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(ctx, "content", VersionLatest, []byte("current")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	pinned, err := store.Load(ctx, "content", "20260301120000")
	if err != nil || !bytes.Equal(pinned, []byte("pinned")) {
		t.Fatalf("Load pinned = %q, %v", pinned, err)
	}
	current, err := store.Load(ctx, "content", VersionLatest)
	if err != nil || !bytes.Equal(current, []byte("current")) {
		t.Fatalf("Load latest = %q, %v", current, err)
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codegraph

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codescope/services/codegraph/config"
	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// newWatchingService wires a Service with filesystem watching enabled and a
// fetcher returning testRawGraph.
func newWatchingService(t *testing.T) *Service {
	t.Helper()

	cfg := config.Default()
	cfg.CacheDir = t.TempDir()

	svc := NewService(cfg, nil,
		WithFetcher(func(ctx context.Context, directory, cacheKey string) (*graph.RawGraph, error) {
			return testRawGraph(), nil
		}),
		WithWatch(),
	)
	t.Cleanup(svc.Close)
	return svc
}

func TestService_WatcherOutlivesRequestContext(t *testing.T) {
	svc := newWatchingService(t)
	dir := t.TempDir()

	reqCtx, cancel := context.WithCancel(context.Background())
	_, err := svc.Resolve(reqCtx, dir, "")
	require.NoError(t, err)
	cancel() // the request scope ends; the watcher must keep running
	require.Equal(t, 1, svc.CacheSize())

	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for svc.CacheSize() != 0 && time.Now().Before(deadline) {
		time.Sleep(25 * time.Millisecond)
	}
	assert.Equal(t, 0, svc.CacheSize(), "file change never invalidated the entry")
}

func TestService_InvalidateWatchedUsesResolvedKeys(t *testing.T) {
	svc := newWatchingService(t)
	dir := t.TempDir()

	g, err := svc.Resolve(context.Background(), dir, "")
	require.NoError(t, err)

	// Simulate the key drift a source edit causes in a git checkout: the
	// entry sits under a dirty-status key that no fresh derivation of the
	// directory would reproduce.
	driftKey := g.CacheKey + "-0f0f0f0"
	svc.store.Set(driftKey, g)
	svc.store.Invalidate(g.CacheKey)
	require.Equal(t, 1, svc.CacheSize())

	svc.watchMu.Lock()
	svc.watchers[dir].keys = map[string]struct{}{driftKey: {}}
	svc.watchMu.Unlock()

	svc.invalidateWatched(dir)
	assert.Equal(t, 0, svc.CacheSize(),
		"invalidation must hit the key captured at resolve time")
}

func TestService_PersistCarriesCommitSegment(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()

	_, err := svc.Resolve(context.Background(), dir, "")
	require.NoError(t, err)

	entries, err := os.ReadDir(svc.cfg.CacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(svc.cfg.CacheDir, entries[0].Name()))
	require.NoError(t, err)

	var payload struct {
		CommitHash string `json:"commitHash"`
	}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.NotEmpty(t, payload.CommitHash,
		"live fetches record the commit segment for warm-load aliasing")
}

func TestService_WatcherTracksKeyPerResolve(t *testing.T) {
	svc := newWatchingService(t)
	dir := t.TempDir()

	g, err := svc.Resolve(context.Background(), dir, "")
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), dir, "calls")
	require.NoError(t, err)

	svc.watchMu.Lock()
	w := svc.watchers[dir]
	require.NotNil(t, w)
	keyCount := len(w.keys)
	_, tracked := w.keys[g.CacheKey]
	svc.watchMu.Unlock()

	assert.Equal(t, 2, keyCount, "one key per graph type")
	assert.True(t, tracked)

	svc.invalidateWatched(dir)
	assert.Equal(t, 0, svc.CacheSize(), "all graph types for the directory drop together")
}

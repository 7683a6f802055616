// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codescope/services/codegraph/faults"
	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// slowFetcher counts invocations and blocks long enough for concurrent
// callers to pile onto the same flight.
type slowFetcher struct {
	calls int32
	delay time.Duration
	err   error
}

func (f *slowFetcher) fetch(ctx context.Context, directory, cacheKey string) (*graph.RawGraph, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &graph.RawGraph{
		Nodes: []graph.RawNode{
			{ID: "n1", Labels: []string{graph.LabelFunction}, Properties: graph.NodeProperties{Name: "fn"}},
		},
	}, nil
}

func TestCoordinator_SingleFlight(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		return "", errors.New("not a git repository")
	})

	store, _ := newTestStore(t)
	fetcher := &slowFetcher{delay: 50 * time.Millisecond}
	coord := NewCoordinator(store, fetcher.fetch, nil)

	dir := t.TempDir()
	const callers = 8

	var wg sync.WaitGroup
	results := make([]*graph.IndexedGraph, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = coord.ResolveOrFetch(context.Background(), dir)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls),
		"concurrent callers for one key share a single fetch")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i], "all callers observe the same graph instance")
	}
}

func TestCoordinator_HitSkipsFetch(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		return "", errors.New("not a git repository")
	})

	store, _ := newTestStore(t)
	fetcher := &slowFetcher{}
	coord := NewCoordinator(store, fetcher.fetch, nil)
	dir := t.TempDir()

	first, err := coord.ResolveOrFetch(context.Background(), dir)
	require.NoError(t, err)

	second, err := coord.ResolveOrFetch(context.Background(), dir)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.calls))
}

func TestCoordinator_NoFallbackMode(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		return "", errors.New("not a git repository")
	})

	store, _ := newTestStore(t)
	fetcher := &slowFetcher{}
	coord := NewCoordinator(store, fetcher.fetch, nil, WithNoFallback(true))

	_, err := coord.ResolveOrFetch(context.Background(), t.TempDir())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFallbackDisabled)
	assert.True(t, faults.IsKind(err, faults.KindNotFound))
	assert.Zero(t, atomic.LoadInt32(&fetcher.calls), "cache-only mode never fetches")
}

func TestCoordinator_FailedFlightIsRetriable(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		return "", errors.New("not a git repository")
	})

	store, _ := newTestStore(t)
	fetchErr := faults.New(faults.KindNetwork, "analyzer.Analyze", "connection refused")
	fetcher := &slowFetcher{err: fetchErr}
	coord := NewCoordinator(store, fetcher.fetch, nil)
	dir := t.TempDir()

	_, err := coord.ResolveOrFetch(context.Background(), dir)
	require.Error(t, err)
	assert.True(t, faults.IsKind(err, faults.KindNetwork), "fetch errors propagate unmodified")

	// The failed flight must not linger: a second call fetches again.
	fetcher.err = nil
	g, err := coord.ResolveOrFetch(context.Background(), dir)
	require.NoError(t, err)
	assert.NotNil(t, g)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls))
}

func TestCoordinator_PersistHookBestEffort(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		return "", errors.New("not a git repository")
	})

	store, _ := newTestStore(t)
	fetcher := &slowFetcher{}

	var persisted int32
	var persistedKey string
	coord := NewCoordinator(store, fetcher.fetch, nil,
		WithPersist(func(directory, cacheKey string, raw *graph.RawGraph) error {
			atomic.AddInt32(&persisted, 1)
			persistedKey = cacheKey
			return errors.New("disk full") // must not surface
		}))

	g, err := coord.ResolveOrFetch(context.Background(), t.TempDir())
	require.NoError(t, err, "persistence failures never fail the fetch")
	assert.NotNil(t, g)
	assert.Equal(t, int32(1), atomic.LoadInt32(&persisted))
	assert.Equal(t, g.CacheKey, persistedKey, "the hook sees the derived key")
	assert.NotEmpty(t, CommitFromKey(persistedKey))
}

func TestCoordinator_Invalidate(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		return "", errors.New("not a git repository")
	})

	store, _ := newTestStore(t)
	fetcher := &slowFetcher{}
	coord := NewCoordinator(store, fetcher.fetch, nil)
	dir := t.TempDir()

	_, err := coord.ResolveOrFetch(context.Background(), dir)
	require.NoError(t, err)

	removed, err := coord.Invalidate(dir)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = coord.ResolveOrFetch(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.calls), "invalidation forces a refetch")
}

func TestCoordinator_KeyDerivationErrorPropagates(t *testing.T) {
	store, _ := newTestStore(t)
	coord := NewCoordinator(store, (&slowFetcher{}).fetch, nil)

	_, err := coord.ResolveOrFetch(context.Background(), "")
	assert.True(t, faults.IsKind(err, faults.KindValidation))
}

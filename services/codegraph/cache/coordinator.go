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
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/codescope/services/codegraph/faults"
	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// FetchFunc produces a raw graph for a directory, typically by packaging a
// snapshot and calling the external analysis service. The cache key is
// passed through as an idempotency token.
type FetchFunc func(ctx context.Context, directory, cacheKey string) (*graph.RawGraph, error)

// PersistFunc saves a freshly fetched raw graph to durable storage. The
// cache key carries the commit segment the graph was derived at. Invoked
// best-effort after a successful fetch; failures are logged, never
// propagated.
type PersistFunc func(directory, cacheKey string, raw *graph.RawGraph) error

// Coordinator resolves directories to indexed graphs, using the store when
// possible and deduplicating concurrent fetches per cache key.
//
// Thread Safety:
//
//	Safe for concurrent use. The singleflight group guarantees at most one
//	in-flight fetch per key; all concurrent callers for that key observe
//	the same resolved graph or the same error, and a failed flight is
//	cleared so the next caller may retry.
type Coordinator struct {
	store     *Store
	fetch     FetchFunc
	persist   PersistFunc
	flight    singleflight.Group
	graphType string
	noFetch   bool
	logger    *slog.Logger
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithGraphType sets the purpose tag used in key derivation.
func WithGraphType(t string) CoordinatorOption {
	return func(c *Coordinator) {
		if t != "" {
			c.graphType = t
		}
	}
}

// WithNoFallback puts the coordinator in cache-only mode: a miss fails
// immediately with ErrFallbackDisabled instead of fetching.
func WithNoFallback(disabled bool) CoordinatorOption {
	return func(c *Coordinator) { c.noFetch = disabled }
}

// WithPersist registers a best-effort persistence hook for fetched graphs.
func WithPersist(fn PersistFunc) CoordinatorOption {
	return func(c *Coordinator) { c.persist = fn }
}

// NewCoordinator creates a Coordinator over the given store and fetcher.
func NewCoordinator(store *Store, fetch FetchFunc, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Coordinator{
		store:     store,
		fetch:     fetch,
		graphType: DefaultGraphType,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveOrFetch returns the indexed graph for a directory.
//
// Description:
//
//  1. Derive the cache key from directory identity.
//  2. Store hit returns immediately (the sub-millisecond path).
//  3. On miss, run the fetch-and-index sequence under singleflight so
//     concurrent callers for the same key share one expensive fetch.
//     The result is stored before any caller observes it.
//
// Inputs:
//
//	ctx - Governs the external fetch. The first caller's context bounds a
//	shared flight.
//	directory - Repository path.
//
// Outputs:
//
//	*graph.IndexedGraph - The resolved graph.
//	error - Key derivation failures, ErrFallbackDisabled in cache-only
//	mode, or the classified fetch error propagated unmodified. The
//	coordinator never retries; that is a caller decision given the cost
//	of re-fetching.
func (c *Coordinator) ResolveOrFetch(ctx context.Context, directory string) (*graph.IndexedGraph, error) {
	key, err := DeriveKey(directory, c.graphType)
	if err != nil {
		return nil, err
	}

	if g, ok := c.store.Get(key); ok {
		return g, nil
	}

	if c.noFetch {
		return nil, faults.Wrap(faults.KindNotFound, "cache.ResolveOrFetch",
			fmt.Errorf("%w (key %s)", ErrFallbackDisabled, key))
	}

	v, err, shared := c.flight.Do(key, func() (any, error) {
		// A flight that just completed may have populated the store
		// between our miss and this callback.
		if g, ok := c.store.Get(key); ok {
			return g, nil
		}
		return c.fetchAndIndex(ctx, directory, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("joined in-flight fetch", "key", key)
	}
	return v.(*graph.IndexedGraph), nil
}

// fetchAndIndex runs the slow path: external fetch, index build, store
// population, and the optional persistence hook.
func (c *Coordinator) fetchAndIndex(ctx context.Context, directory, key string) (*graph.IndexedGraph, error) {
	fetchTotal.Inc()
	start := time.Now()
	c.logger.Info("fetching graph", "key", key, "directory", directory)

	raw, err := c.fetch(ctx, directory, key)
	if err != nil {
		fetchErrors.WithLabelValues(string(faults.KindOf(err))).Inc()
		return nil, err
	}

	g := graph.BuildIndexes(raw, key)
	c.store.Set(key, g)
	fetchDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("graph cached",
		"key", key,
		"nodes", g.Summary.NodeCount,
		"relationships", g.Summary.RelationshipCount,
		"duration", time.Since(start))

	if c.persist != nil {
		if err := c.persist(directory, key, raw); err != nil {
			c.logger.Warn("failed to persist fetched graph", "key", key, "error", err)
		}
	}
	return g, nil
}

// Invalidate removes the cache entry for a directory, if present. The key
// is derived from the directory's current state; entries cached under a
// superseded dirty-status hash need Store.Invalidate with their exact key.
func (c *Coordinator) Invalidate(directory string) (bool, error) {
	key, err := DeriveKey(directory, c.graphType)
	if err != nil {
		return false, err
	}
	return c.store.Invalidate(key), nil
}

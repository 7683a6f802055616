// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides the bounded in-memory store of indexed graphs and
// the fetch coordinator that fills it.
//
// The store is a TTL-aware LRU keyed by derived cache keys (see keys.go).
// Capacity is bounded two ways: entry count and total node count across all
// entries, since a single monorepo graph can dwarf twenty small ones.
//
// Thread Safety:
//
//	All exported types are safe for concurrent use. The store never performs
//	blocking I/O; Get/Set/Invalidate are synchronous and fast.
package cache

import (
	"container/list"
	"time"

	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// Default capacity limits.
const (
	// DefaultMaxEntries is the default maximum number of cached graphs.
	DefaultMaxEntries = 20

	// DefaultMaxNodes is the default cap on total node count summed
	// across all cached graphs.
	DefaultMaxNodes = 1_000_000

	// DefaultTTL is the default time-to-live for cached entries.
	DefaultTTL = time.Hour
)

// entry wraps one cached graph with its LRU bookkeeping.
type entry struct {
	graph        *graph.IndexedGraph
	insertedAt   time.Time
	lastAccessAt time.Time
	lruElement   *list.Element
}

// Options configures a Store.
type Options struct {
	// MaxEntries caps the number of cached graphs.
	MaxEntries int

	// MaxNodes caps the total node count across all cached graphs.
	MaxNodes int

	// TTL is how long an entry stays valid after insertion.
	// Zero disables expiry.
	TTL time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxEntries: DefaultMaxEntries,
		MaxNodes:   DefaultMaxNodes,
		TTL:        DefaultTTL,
	}
}

// Option is a functional option for configuring a Store.
type Option func(*Options)

// WithMaxEntries caps the number of cached graphs. Non-positive values
// keep the default.
func WithMaxEntries(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxEntries = n
		}
	}
}

// WithMaxNodes caps the total node count across all cached graphs.
// Non-positive values keep the default.
func WithMaxNodes(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxNodes = n
		}
	}
}

// WithTTL sets the entry time-to-live. Zero disables expiry; negative
// values keep the default.
func WithTTL(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.TTL = d
		}
	}
}

// EntryStatus is one row of store introspection output.
type EntryStatus struct {
	// Key is the cache key.
	Key string `json:"key"`

	// NodeCount is the graph's node total.
	NodeCount int `json:"nodeCount"`

	// Age is time since insertion.
	Age time.Duration `json:"age"`

	// SinceAccess is time since the last Get hit.
	SinceAccess time.Duration `json:"sinceAccess"`

	// Summary is the graph's precomputed counts.
	Summary graph.Summary `json:"summary"`
}

// Stats carries store counters for diagnostics.
type Stats struct {
	Entries    int   `json:"entries"`
	TotalNodes int   `json:"totalNodes"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	Expiries   int64 `json:"expiries"`
}

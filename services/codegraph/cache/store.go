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
	"container/list"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// Store is a bounded, TTL-aware, LRU-evicting map from cache key to
// IndexedGraph. Construct one per process and pass it by reference;
// there is deliberately no package-level instance.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recently used, element value = key
	options Options
	logger  *slog.Logger

	// now is swappable in tests.
	now func() time.Time

	hits      int64
	misses    int64
	evictions int64
	expiries  int64
}

// NewStore creates a Store with the given options.
func NewStore(logger *slog.Logger, opts ...Option) *Store {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		entries: make(map[string]*entry),
		lru:     list.New(),
		options: options,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the graph stored under key, or nil and false on a miss.
//
// Expired entries count as misses and are removed on the spot. A hit
// refreshes the entry's LRU position and last-access time.
func (s *Store) Get(key string) (*graph.IndexedGraph, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		atomic.AddInt64(&s.misses, 1)
		cacheMisses.Inc()
		return nil, false
	}

	if s.expiredLocked(e) {
		s.removeLocked(key, e)
		atomic.AddInt64(&s.expiries, 1)
		atomic.AddInt64(&s.misses, 1)
		cacheMisses.Inc()
		s.logger.Debug("cache entry expired", "key", key)
		return nil, false
	}

	e.lastAccessAt = s.now()
	s.lru.MoveToFront(e.lruElement)
	atomic.AddInt64(&s.hits, 1)
	cacheHits.Inc()
	return e.graph, true
}

// Set stores a graph under key, evicting least-recently-used entries as
// needed to satisfy both the entry-count and total-node-count limits.
//
// A single graph larger than the node budget is still admitted after
// everything else has been evicted; rejecting it would make the largest
// repositories permanently uncacheable. The condition is logged as a
// capacity concern.
func (s *Store) Set(key string, g *graph.IndexedGraph) {
	if g == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[key]; ok {
		// Wholesale replacement; readers holding the old graph are fine.
		s.removeLocked(key, old)
	}

	incoming := g.Summary.NodeCount

	for len(s.entries) >= s.options.MaxEntries {
		if !s.evictOldestLocked() {
			break
		}
	}
	for len(s.entries) > 0 && s.totalNodesLocked()+incoming > s.options.MaxNodes {
		if !s.evictOldestLocked() {
			break
		}
	}

	if incoming > s.options.MaxNodes {
		s.logger.Warn("graph exceeds node budget by itself, admitting anyway",
			"key", key,
			"node_count", incoming,
			"max_nodes", s.options.MaxNodes)
	}

	now := s.now()
	e := &entry{
		graph:        g,
		insertedAt:   now,
		lastAccessAt: now,
	}
	e.lruElement = s.lru.PushFront(key)
	s.entries[key] = e
}

// Invalidate removes an entry. Returns true if the key was present.
// Used when the caller knows the underlying repository changed.
func (s *Store) Invalidate(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false
	}
	s.removeLocked(key, e)
	s.logger.Debug("cache entry invalidated", "key", key)
	return true
}

// Size returns the number of cached graphs.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Status returns per-entry summaries, most recently used first.
func (s *Store) Status() []EntryStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	statuses := make([]EntryStatus, 0, len(s.entries))
	for el := s.lru.Front(); el != nil; el = el.Next() {
		key := el.Value.(string)
		e := s.entries[key]
		statuses = append(statuses, EntryStatus{
			Key:         key,
			NodeCount:   e.graph.Summary.NodeCount,
			Age:         now.Sub(e.insertedAt),
			SinceAccess: now.Sub(e.lastAccessAt),
			Summary:     e.graph.Summary,
		})
	}
	return statuses
}

// Stats returns current counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Entries:    len(s.entries),
		TotalNodes: s.totalNodesLocked(),
		Hits:       atomic.LoadInt64(&s.hits),
		Misses:     atomic.LoadInt64(&s.misses),
		Evictions:  atomic.LoadInt64(&s.evictions),
		Expiries:   atomic.LoadInt64(&s.expiries),
	}
}

// expiredLocked checks the TTL. Caller must hold s.mu.
func (s *Store) expiredLocked(e *entry) bool {
	if s.options.TTL == 0 {
		return false
	}
	return s.now().Sub(e.insertedAt) > s.options.TTL
}

// totalNodesLocked sums node counts across all entries. Caller must hold s.mu.
func (s *Store) totalNodesLocked() int {
	total := 0
	for _, e := range s.entries {
		total += e.graph.Summary.NodeCount
	}
	return total
}

// evictOldestLocked removes the least-recently-used entry. LRU order is by
// last access; entries never accessed since insertion keep insertion order,
// so ties resolve oldest-insert first. Caller must hold s.mu.
func (s *Store) evictOldestLocked() bool {
	back := s.lru.Back()
	if back == nil {
		return false
	}
	key := back.Value.(string)
	e := s.entries[key]
	s.removeLocked(key, e)
	atomic.AddInt64(&s.evictions, 1)
	cacheEvictions.Inc()
	s.logger.Debug("evicted cache entry",
		"key", key,
		"node_count", e.graph.Summary.NodeCount)
	return true
}

// removeLocked deletes an entry from both the map and the LRU list.
// Caller must hold s.mu.
func (s *Store) removeLocked(key string, e *entry) {
	if e.lruElement != nil {
		s.lru.Remove(e.lruElement)
		e.lruElement = nil
	}
	delete(s.entries, key)
}

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
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// testGraph builds a minimal indexed graph with the given node count.
func testGraph(key string, nodeCount int) *graph.IndexedGraph {
	return &graph.IndexedGraph{
		CacheKey: key,
		Summary:  graph.Summary{NodeCount: nodeCount},
	}
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	s := NewStore(nil, opts...)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = clock.now
	return s, clock
}

func TestStore_GetSetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)

	g := testGraph("k1", 10)
	s.Set("k1", g)

	got, ok := s.Get("k1")
	require.True(t, ok)
	assert.Same(t, g, got)

	_, ok = s.Get("absent")
	assert.False(t, ok)
}

func TestStore_CapacityInvariants(t *testing.T) {
	s, _ := newTestStore(t, WithMaxEntries(5), WithMaxNodes(100))

	for i := 0; i < 30; i++ {
		s.Set(fmt.Sprintf("k%d", i), testGraph(fmt.Sprintf("k%d", i), 10+i))
	}

	stats := s.Stats()
	assert.LessOrEqual(t, stats.Entries, 5)
	assert.LessOrEqual(t, stats.TotalNodes, 100)
	assert.Equal(t, s.Size(), stats.Entries)
}

func TestStore_EvictsForNodeBudget(t *testing.T) {
	s, _ := newTestStore(t, WithMaxEntries(10), WithMaxNodes(100))

	s.Set("a", testGraph("a", 60))
	s.Set("b", testGraph("b", 50))

	// a must have been evicted to fit b.
	_, ok := s.Get("a")
	assert.False(t, ok)
	_, ok = s.Get("b")
	assert.True(t, ok)
}

func TestStore_OversizedGraphStillAdmitted(t *testing.T) {
	s, _ := newTestStore(t, WithMaxEntries(10), WithMaxNodes(100))

	s.Set("small", testGraph("small", 10))
	s.Set("huge", testGraph("huge", 500))

	_, ok := s.Get("huge")
	assert.True(t, ok, "a graph bigger than the whole budget is admitted alone")
	_, ok = s.Get("small")
	assert.False(t, ok, "everything else is evicted first")
	assert.Equal(t, 1, s.Size())
}

func TestStore_LRUEvictionOrder(t *testing.T) {
	s, _ := newTestStore(t, WithMaxEntries(3))

	s.Set("a", testGraph("a", 1))
	s.Set("b", testGraph("b", 1))
	s.Set("c", testGraph("c", 1))

	// Touch a: b becomes the least recently accessed.
	_, ok := s.Get("a")
	require.True(t, ok)

	s.Set("d", testGraph("d", 1))

	_, ok = s.Get("b")
	assert.False(t, ok, "b was least recently accessed")
	for _, key := range []string{"a", "c", "d"} {
		_, ok = s.Get(key)
		assert.True(t, ok, "key %s should survive", key)
	}
}

func TestStore_EvictionTieBreaksOldestInsert(t *testing.T) {
	s, _ := newTestStore(t, WithMaxEntries(3))

	// Never accessed: insertion order is the tie break.
	s.Set("first", testGraph("first", 1))
	s.Set("second", testGraph("second", 1))
	s.Set("third", testGraph("third", 1))
	s.Set("fourth", testGraph("fourth", 1))

	_, ok := s.Get("first")
	assert.False(t, ok)
	_, ok = s.Get("second")
	assert.True(t, ok)
}

func TestStore_TTLExpiry(t *testing.T) {
	s, clock := newTestStore(t, WithTTL(time.Hour))

	s.Set("k", testGraph("k", 1))

	clock.advance(time.Hour - time.Millisecond)
	_, ok := s.Get("k")
	assert.True(t, ok, "just inside the TTL")

	clock.advance(2 * time.Millisecond)
	_, ok = s.Get("k")
	assert.False(t, ok, "just past the TTL")

	assert.Equal(t, 0, s.Size(), "expired entry removed lazily on access")
	assert.Equal(t, int64(1), s.Stats().Expiries)
}

func TestStore_ZeroTTLNeverExpires(t *testing.T) {
	s, clock := newTestStore(t, WithTTL(0))

	s.Set("k", testGraph("k", 1))
	clock.advance(1000 * time.Hour)

	_, ok := s.Get("k")
	assert.True(t, ok)
}

func TestStore_Invalidate(t *testing.T) {
	s, _ := newTestStore(t)

	s.Set("k", testGraph("k", 1))
	assert.True(t, s.Invalidate("k"))
	assert.False(t, s.Invalidate("k"), "second invalidate is a no-op")

	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestStore_ReplaceExistingKey(t *testing.T) {
	s, _ := newTestStore(t, WithMaxEntries(3))

	s.Set("k", testGraph("k", 10))
	replacement := testGraph("k", 20)
	s.Set("k", replacement)

	assert.Equal(t, 1, s.Size())
	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, 20, s.Stats().TotalNodes)
}

func TestStore_Status(t *testing.T) {
	s, clock := newTestStore(t)

	s.Set("old", testGraph("old", 5))
	clock.advance(time.Minute)
	s.Set("new", testGraph("new", 7))

	statuses := s.Status()
	require.Len(t, statuses, 2)
	assert.Equal(t, "new", statuses[0].Key, "most recently used first")
	assert.Equal(t, 7, statuses[0].NodeCount)
	assert.Equal(t, "old", statuses[1].Key)
	assert.Equal(t, time.Minute, statuses[1].Age)
}

func TestStore_StatsCounters(t *testing.T) {
	s, _ := newTestStore(t, WithMaxEntries(1))

	s.Set("a", testGraph("a", 1))
	s.Get("a")
	s.Get("missing")
	s.Set("b", testGraph("b", 1)) // evicts a

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Evictions)
}

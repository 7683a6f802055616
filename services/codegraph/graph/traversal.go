// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

// Traversal depth limits.
const (
	// DefaultMaxDepth is the default BFS depth bound.
	DefaultMaxDepth = 10

	// MaxTraversalDepth is the maximum allowed depth bound.
	MaxTraversalDepth = 100
)

// FindShortestPath finds the shortest path (by hop count) from any source
// node to any target node.
//
// Description:
//
//	Multi-source BFS over the union of call and import adjacency, traversed
//	in both directions (a path may follow a call edge backwards). Depth is
//	bounded by maxDepth hops; maxDepth <= 0 uses DefaultMaxDepth and values
//	above MaxTraversalDepth are clamped.
//
//	Neighbor expansion order is fixed (call out, call in, import out,
//	import in, each in adjacency-list order), so ties among equal-length
//	paths resolve deterministically: the first path discovered wins.
//
// Inputs:
//
//	g - The indexed graph.
//	fromIDs - Candidate source node ids. Unknown ids are ignored.
//	toIDs - Candidate target node ids. Unknown ids are ignored.
//	maxDepth - Maximum number of hops.
//
// Outputs:
//
//	[]string - Node ids from source to target inclusive, or nil if no
//	target is reachable within the bound (or no valid endpoints exist).
func FindShortestPath(g *IndexedGraph, fromIDs, toIDs []string, maxDepth int) []string {
	if g == nil {
		return nil
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxDepth > MaxTraversalDepth {
		maxDepth = MaxTraversalDepth
	}

	targets := make(map[string]bool, len(toIDs))
	for _, id := range toIDs {
		if g.NodeByID[id] != nil {
			targets[id] = true
		}
	}
	if len(targets) == 0 {
		return nil
	}

	type queueItem struct {
		id    string
		depth int
	}

	visited := make(map[string]bool)
	parent := make(map[string]string)
	var queue []queueItem

	for _, id := range fromIDs {
		if g.NodeByID[id] == nil || visited[id] {
			continue
		}
		if targets[id] {
			return []string{id}
		}
		visited[id] = true
		queue = append(queue, queueItem{id, 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		if item.depth >= maxDepth {
			continue
		}

		for _, next := range g.neighbors(item.id) {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = item.id

			if targets[next] {
				return reconstructPath(parent, next)
			}
			queue = append(queue, queueItem{next, item.depth + 1})
		}
	}

	return nil
}

// neighbors returns the undirected neighborhood of id over call and import
// edges, in deterministic order.
func (g *IndexedGraph) neighbors(id string) []string {
	var out []string
	if adj := g.CallAdj[id]; adj != nil {
		out = append(out, adj.Out...)
		out = append(out, adj.In...)
	}
	if adj := g.ImportAdj[id]; adj != nil {
		out = append(out, adj.Out...)
		out = append(out, adj.In...)
	}
	return out
}

// reconstructPath walks parent pointers back from the target.
func reconstructPath(parent map[string]string, target string) []string {
	path := []string{target}
	for {
		p, ok := parent[path[len(path)-1]]
		if !ok {
			break
		}
		path = append(path, p)
	}

	// Reverse in place: BFS recorded target-to-source.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

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

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MatchStrategy records how a symbol match was found.
type MatchStrategy string

const (
	// MatchExact is a case-insensitive whole-name match.
	MatchExact MatchStrategy = "exact"

	// MatchQualified is a "Container.member" dotted match.
	MatchQualified MatchStrategy = "qualified"

	// MatchSubstring is a one-directional substring match
	// (symbol name contains the query).
	MatchSubstring MatchStrategy = "substring"
)

// SymbolKind classifies a node for ranking purposes.
type SymbolKind int

// Kinds in ranking priority order: functions before classes before types.
const (
	KindFunction SymbolKind = iota
	KindClass
	KindType
	KindOther
)

// String returns the display name of the kind.
func (k SymbolKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindType:
		return "type"
	default:
		return "other"
	}
}

// KindOf derives the ranking kind from a node's labels.
func KindOf(n *RawNode) SymbolKind {
	switch {
	case n == nil:
		return KindOther
	case n.HasLabel(LabelFunction) || n.HasLabel(LabelMethod):
		return KindFunction
	case n.HasLabel(LabelClass):
		return KindClass
	case n.HasLabel(LabelInterface) || n.HasLabel(LabelType) || n.HasLabel(LabelTypeAlias):
		return KindType
	default:
		return KindOther
	}
}

// SymbolMatch is one ranked result from ResolveSymbol.
type SymbolMatch struct {
	// ID is the matched node id.
	ID string

	// Node is the matched node.
	Node *RawNode

	// Strategy records which resolution pass produced the match.
	Strategy MatchStrategy

	// Kind is the ranking kind of the node.
	Kind SymbolKind

	// CallerCount is the number of incoming call edges, used for ranking.
	CallerCount int

	// prefix is true when the symbol name starts with the query
	// (substring matches only).
	prefix bool
}

// ResolveSymbol resolves a free-text query to ranked symbol matches.
//
// Description:
//
//	Three passes, first non-empty wins:
//	1. Exact case-insensitive name match.
//	2. "Container.member" dotted match: the member name is matched, then
//	   filtered to nodes sharing a file path with a node named Container.
//	3. Substring match over all names: the symbol name must contain the
//	   query (one-directional; a query longer than the name never matches).
//
//	Substring results rank prefix matches before infix matches, then by
//	kind (function > class > type), then by caller count descending.
//	Single-rune queries skip the substring pass to avoid pathological
//	fan-out on large graphs.
//
// Inputs:
//
//	g - The indexed graph to search.
//	query - Free-text symbol query. Whitespace is trimmed.
//
// Outputs:
//
//	[]SymbolMatch - Ranked matches, best first. Nil if nothing matched.
func ResolveSymbol(g *IndexedGraph, query string) []SymbolMatch {
	query = strings.TrimSpace(query)
	if g == nil || query == "" {
		return nil
	}
	lower := strings.ToLower(query)

	if ids := g.NameIndex[lower]; len(ids) > 0 {
		return rankMatches(g.toMatches(ids, MatchExact, false))
	}

	if dot := strings.LastIndex(query, "."); dot > 0 && dot < len(query)-1 {
		if matches := g.resolveQualified(query[:dot], query[dot+1:]); len(matches) > 0 {
			return rankMatches(matches)
		}
	}

	if utf8.RuneCountInString(query) <= 1 {
		return nil
	}
	return rankMatches(g.resolveSubstring(lower))
}

// resolveQualified handles "Container.member" queries: member-name matches
// restricted to files that also define a node named like the container.
func (g *IndexedGraph) resolveQualified(container, member string) []SymbolMatch {
	memberIDs := g.NameIndex[strings.ToLower(strings.TrimSpace(member))]
	if len(memberIDs) == 0 {
		return nil
	}

	containerPaths := make(map[string]bool)
	for _, id := range g.NameIndex[strings.ToLower(strings.TrimSpace(container))] {
		if n := g.NodeByID[id]; n != nil {
			if fp := NormalizePath(n.Properties.FilePath); fp != "" {
				containerPaths[fp] = true
			}
		}
	}
	if len(containerPaths) == 0 {
		return nil
	}

	var filtered []string
	for _, id := range memberIDs {
		n := g.NodeByID[id]
		if n != nil && containerPaths[NormalizePath(n.Properties.FilePath)] {
			filtered = append(filtered, id)
		}
	}
	return g.toMatches(filtered, MatchQualified, false)
}

// resolveSubstring scans every indexed name for ones containing the query.
func (g *IndexedGraph) resolveSubstring(lowerQuery string) []SymbolMatch {
	var matches []SymbolMatch
	for name, ids := range g.NameIndex {
		if !strings.Contains(name, lowerQuery) {
			continue
		}
		isPrefix := strings.HasPrefix(name, lowerQuery)
		matches = append(matches, g.toMatches(ids, MatchSubstring, isPrefix)...)
	}
	return matches
}

// toMatches wraps node ids as SymbolMatch values, dropping unknown ids.
func (g *IndexedGraph) toMatches(ids []string, strategy MatchStrategy, prefix bool) []SymbolMatch {
	matches := make([]SymbolMatch, 0, len(ids))
	for _, id := range ids {
		n := g.NodeByID[id]
		if n == nil {
			continue
		}
		matches = append(matches, SymbolMatch{
			ID:          id,
			Node:        n,
			Strategy:    strategy,
			Kind:        KindOf(n),
			CallerCount: len(g.Callers(id)),
			prefix:      prefix,
		})
	}
	return matches
}

// rankMatches sorts matches into their final order. The comparator is a
// total order (ending on node id) so results are deterministic regardless
// of map iteration order during collection.
func rankMatches(matches []SymbolMatch) []SymbolMatch {
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.prefix != b.prefix {
			return a.prefix
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.CallerCount != b.CallerCount {
			return a.CallerCount > b.CallerCount
		}
		an := strings.ToLower(a.Node.Properties.Name)
		bn := strings.ToLower(b.Node.Properties.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
	return matches
}

// FileOverview returns the nodes defined in a source file. The path is
// normalized before lookup, so "./src/a.ts" and "src\a.ts" both resolve.
func FileOverview(g *IndexedGraph, filePath string) (*FileEntry, bool) {
	if g == nil {
		return nil, false
	}
	entry, ok := g.PathIndex[NormalizePath(filePath)]
	return entry, ok
}

// FilesInDirectory returns the normalized file paths directly under dir.
func FilesInDirectory(g *IndexedGraph, dir string) []string {
	if g == nil {
		return nil
	}
	return g.DirIndex[NormalizePath(dir)]
}

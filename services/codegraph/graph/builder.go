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
	"path"
	"strings"
	"time"
)

// Relationship type names, compared case-insensitively with separators
// stripped (the analyzer has emitted both "belongsTo" and "BELONGS_TO"
// across versions).
const (
	relCalls     = "calls"
	relImports   = "imports"
	relBelongsTo = "belongsto"
	relPartOf    = "partof"
)

// BuildIndexes derives an IndexedGraph from raw analyzer output.
//
// Description:
//
//	Pure transformation, O(nodes + relationships), three passes:
//	1. Populate NodeByID (last write wins on duplicate ids).
//	2. One pass over nodes building label, path, dir, and name indexes.
//	3. One pass over relationships building call/import adjacency and
//	   the domain indexes.
//
// Inputs:
//
//	raw - Analyzer output. May be partial or malformed; never trusted.
//	cacheKey - Key the resulting graph will be stored under.
//
// Outputs:
//
//	*IndexedGraph - Fully indexed, immutable graph. Never nil.
//
// Behavior:
//
//	Never fails. Nodes without a name or file path are indexed by id and
//	label only. Relationships whose endpoints are not in NodeByID are
//	skipped entirely, so every id in every index is resolvable. Index
//	ordering follows raw input order, which makes construction
//	deterministic for identical input.
func BuildIndexes(raw *RawGraph, cacheKey string) *IndexedGraph {
	if raw == nil {
		raw = &RawGraph{}
	}

	g := &IndexedGraph{
		Raw:          raw,
		NodeByID:     make(map[string]*RawNode, len(raw.Nodes)),
		LabelIndex:   make(map[string][]string),
		PathIndex:    make(map[string]*FileEntry),
		DirIndex:     make(map[string][]string),
		NameIndex:    make(map[string][]string),
		CallAdj:      make(map[string]*Adjacency),
		ImportAdj:    make(map[string]*Adjacency),
		DomainIndex:  make(map[string]*DomainEntry),
		DomainParent: make(map[string]string),
		CachedAt:     time.Now(),
		CacheKey:     cacheKey,
	}

	for i := range raw.Nodes {
		n := &raw.Nodes[i]
		if n.ID == "" {
			continue
		}
		g.NodeByID[n.ID] = n
	}

	langCounts := make(map[string]int)
	for i := range raw.Nodes {
		n := &raw.Nodes[i]
		if n.ID == "" || g.NodeByID[n.ID] != n {
			continue // empty id or shadowed duplicate
		}

		for _, label := range n.Labels {
			g.LabelIndex[label] = append(g.LabelIndex[label], n.ID)
		}

		if name := n.Properties.Name; name != "" {
			lower := strings.ToLower(name)
			g.NameIndex[lower] = append(g.NameIndex[lower], n.ID)
		}

		if fp := NormalizePath(n.Properties.FilePath); fp != "" {
			g.indexByPath(fp, n)
		}

		if lang := n.Properties.Language; lang != "" {
			langCounts[lang]++
		}
	}

	for i := range raw.Relationships {
		g.indexRelationship(&raw.Relationships[i])
	}

	g.Summary = Summary{
		Files:             len(g.PathIndex),
		Functions:         len(g.LabelIndex[LabelFunction]) + len(g.LabelIndex[LabelMethod]),
		Classes:           len(g.LabelIndex[LabelClass]),
		Types:             len(g.LabelIndex[LabelInterface]) + len(g.LabelIndex[LabelType]) + len(g.LabelIndex[LabelTypeAlias]),
		Domains:           len(g.DomainIndex),
		NodeCount:         len(g.NodeByID),
		RelationshipCount: len(raw.Relationships),
		PrimaryLanguage:   primaryLanguage(langCounts, g.PathIndex),
	}

	return g
}

// NormalizePath canonicalizes a file path for use as a PathIndex key:
// backslashes become forward slashes, a leading "./" is stripped, and
// redundant segments are cleaned. Returns "" for empty input.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}
	p = strings.ReplaceAll(p, `\`, "/")
	p = path.Clean(p)
	if p == "." || p == "/" {
		return ""
	}
	p = strings.TrimPrefix(p, "./")
	return p
}

// indexByPath adds a node to the path and directory indexes.
func (g *IndexedGraph) indexByPath(fp string, n *RawNode) {
	entry := g.PathIndex[fp]
	if entry == nil {
		entry = &FileEntry{}
		g.PathIndex[fp] = entry

		dir := path.Dir(fp)
		if dir == "." {
			dir = ""
		}
		g.DirIndex[dir] = append(g.DirIndex[dir], fp)
	}

	switch {
	case n.HasLabel(LabelFile):
		entry.FileID = n.ID
	case n.HasLabel(LabelFunction) || n.HasLabel(LabelMethod):
		entry.FunctionIDs = append(entry.FunctionIDs, n.ID)
	case n.HasLabel(LabelClass):
		entry.ClassIDs = append(entry.ClassIDs, n.ID)
	case n.HasLabel(LabelInterface) || n.HasLabel(LabelType) || n.HasLabel(LabelTypeAlias):
		entry.TypeIDs = append(entry.TypeIDs, n.ID)
	}
}

// indexRelationship dispatches one raw edge into the adjacency and domain
// indexes. Edges with unresolvable endpoints are dropped here, which is what
// keeps the dangling-edge invariant: nothing past this point ever sees them.
func (g *IndexedGraph) indexRelationship(rel *RawRelationship) {
	from := g.NodeByID[rel.StartNode]
	to := g.NodeByID[rel.EndNode]
	if from == nil || to == nil {
		return
	}

	switch normalizeRelType(rel.Type) {
	case relCalls:
		addEdge(g.CallAdj, rel.StartNode, rel.EndNode)
	case relImports:
		addEdge(g.ImportAdj, rel.StartNode, rel.EndNode)
	case relBelongsTo:
		// member --belongsTo--> domain/subdomain
		entry := g.domainEntry(to)
		if entry != nil {
			entry.MemberIDs = append(entry.MemberIDs, rel.StartNode)
			entry.Relationships = append(entry.Relationships, rel)
		}
	case relPartOf:
		// subdomain --partOf--> domain; the parent registers first so
		// DomainOrder lists domains before their subdomains.
		dom := g.domainEntry(to)
		sub := g.domainEntry(from)
		if sub != nil && dom != nil {
			subName := from.Properties.Name
			domName := to.Properties.Name
			if subName != "" && domName != "" {
				g.DomainParent[subName] = domName
			}
			sub.Relationships = append(sub.Relationships, rel)
			dom.Relationships = append(dom.Relationships, rel)
		}
	}
}

// domainEntry returns (creating on first sight) the DomainEntry for a
// Domain/Subdomain node. Returns nil for nodes that are neither, or that
// have no usable name.
func (g *IndexedGraph) domainEntry(n *RawNode) *DomainEntry {
	if !n.HasLabel(LabelDomain) && !n.HasLabel(LabelSubdomain) {
		return nil
	}
	name := n.Properties.Name
	if name == "" {
		name = n.ID
	}
	entry := g.DomainIndex[name]
	if entry == nil {
		entry = &DomainEntry{NodeID: n.ID}
		g.DomainIndex[name] = entry
		g.DomainOrder = append(g.DomainOrder, name)
	}
	return entry
}

// addEdge records a directed edge in an adjacency index, creating the
// Adjacency values on demand.
func addEdge(adj map[string]*Adjacency, from, to string) {
	fa := adj[from]
	if fa == nil {
		fa = &Adjacency{}
		adj[from] = fa
	}
	fa.Out = append(fa.Out, to)

	ta := adj[to]
	if ta == nil {
		ta = &Adjacency{}
		adj[to] = ta
	}
	ta.In = append(ta.In, from)
}

// normalizeRelType lowercases a relationship type and strips separators so
// "belongsTo", "BELONGS_TO", and "belongs-to" all compare equal.
func normalizeRelType(t string) string {
	t = strings.ToLower(t)
	t = strings.ReplaceAll(t, "_", "")
	t = strings.ReplaceAll(t, "-", "")
	return t
}

// extensionLanguages maps common source extensions to a display language,
// used only when the analyzer did not tag nodes with a language.
var extensionLanguages = map[string]string{
	".go":   "Go",
	".py":   "Python",
	".ts":   "TypeScript",
	".tsx":  "TypeScript",
	".js":   "JavaScript",
	".jsx":  "JavaScript",
	".java": "Java",
	".rb":   "Ruby",
	".rs":   "Rust",
	".c":    "C",
	".h":    "C",
	".cpp":  "C++",
	".cs":   "C#",
}

// primaryLanguage picks the most frequent language, preferring analyzer tags
// over extension inference. Ties break lexicographically for determinism.
func primaryLanguage(langCounts map[string]int, paths map[string]*FileEntry) string {
	counts := langCounts
	if len(counts) == 0 {
		counts = make(map[string]int)
		for fp := range paths {
			if lang, ok := extensionLanguages[path.Ext(fp)]; ok {
				counts[lang]++
			}
		}
	}

	best, bestCount := "", 0
	for lang, c := range counts {
		if c > bestCount || (c == bestCount && (best == "" || lang < best)) {
			best, bestCount = lang, c
		}
	}
	return best
}

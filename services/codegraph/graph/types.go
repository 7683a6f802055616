// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph holds the raw analyzer output, the derived in-memory indexes
// built from it, and the read-only query primitives that operate on those
// indexes.
//
// A RawGraph is what the analysis service returns: flat node and relationship
// lists with open-ended property bags. BuildIndexes turns one RawGraph into an
// IndexedGraph whose lookup structures answer symbol, call-graph, domain, and
// file queries without touching the raw lists again.
//
// Thread Safety:
//
//	An IndexedGraph is immutable after BuildIndexes returns and may be shared
//	freely across goroutines. The cache layer only ever replaces whole
//	IndexedGraph values, never mutates them in place.
package graph

import (
	"encoding/json"
	"time"
)

// Well-known node labels emitted by the analyzer.
const (
	LabelFile      = "File"
	LabelFunction  = "Function"
	LabelMethod    = "Method"
	LabelClass     = "Class"
	LabelInterface = "Interface"
	LabelType      = "Type"
	LabelTypeAlias = "TypeAlias"
	LabelDomain    = "Domain"
	LabelSubdomain = "Subdomain"
)

// NodeProperties is the typed view of an analyzer property bag.
//
// The analyzer is free to attach arbitrary metadata to nodes; only the fields
// the cache actually reads are promoted to struct fields. Everything else is
// preserved in Extra so persisted graphs round-trip losslessly.
type NodeProperties struct {
	// Name is the symbol name. Empty for nodes the analyzer could not name;
	// such nodes are excluded from the name index but still indexed by id.
	Name string

	// FilePath is the source file the node belongs to, as emitted by the
	// analyzer (separators not yet normalized).
	FilePath string

	// StartLine and EndLine bound the node's source range (1-based, 0 if unknown).
	StartLine int
	EndLine   int

	// Language is the source language, when the analyzer reports one.
	Language string

	// Extra holds analyzer-specific metadata not interpreted here.
	Extra map[string]any
}

// knownPropertyKeys are the bag keys promoted to struct fields.
var knownPropertyKeys = map[string]bool{
	"name":      true,
	"filePath":  true,
	"startLine": true,
	"endLine":   true,
	"language":  true,
}

// UnmarshalJSON decodes the open property bag, promoting known keys.
func (p *NodeProperties) UnmarshalJSON(data []byte) error {
	var bag map[string]json.RawMessage
	if err := json.Unmarshal(data, &bag); err != nil {
		return err
	}

	// Tolerate wrong types on known keys: a bad value just leaves the
	// field at its zero value, matching the builder's degrade-don't-fail
	// contract for malformed analyzer output.
	if v, ok := bag["name"]; ok {
		_ = json.Unmarshal(v, &p.Name)
	}
	if v, ok := bag["filePath"]; ok {
		_ = json.Unmarshal(v, &p.FilePath)
	}
	if v, ok := bag["startLine"]; ok {
		_ = json.Unmarshal(v, &p.StartLine)
	}
	if v, ok := bag["endLine"]; ok {
		_ = json.Unmarshal(v, &p.EndLine)
	}
	if v, ok := bag["language"]; ok {
		_ = json.Unmarshal(v, &p.Language)
	}

	for k, raw := range bag {
		if knownPropertyKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(raw, &val); err != nil {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[k] = val
	}
	return nil
}

// MarshalJSON re-flattens promoted fields back into the bag.
func (p NodeProperties) MarshalJSON() ([]byte, error) {
	bag := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		bag[k] = v
	}
	if p.Name != "" {
		bag["name"] = p.Name
	}
	if p.FilePath != "" {
		bag["filePath"] = p.FilePath
	}
	if p.StartLine != 0 {
		bag["startLine"] = p.StartLine
	}
	if p.EndLine != 0 {
		bag["endLine"] = p.EndLine
	}
	if p.Language != "" {
		bag["language"] = p.Language
	}
	return json.Marshal(bag)
}

// RawNode is a single node as received from the analyzer.
type RawNode struct {
	ID         string         `json:"id"`
	Labels     []string       `json:"labels"`
	Properties NodeProperties `json:"properties"`
}

// HasLabel reports whether the node carries the given label.
func (n *RawNode) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// RawRelationship is a single directed edge as received from the analyzer.
type RawRelationship struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	StartNode  string         `json:"startNode"`
	EndNode    string         `json:"endNode"`
	Properties map[string]any `json:"properties,omitempty"`
}

// RawGraph is the unindexed analyzer output. Immutable once received; the
// index builder is its sole consumer during construction. A reference is
// retained on the IndexedGraph for queries that need raw relationship
// metadata not present in the adjacency lists.
type RawGraph struct {
	Nodes         []RawNode         `json:"nodes"`
	Relationships []RawRelationship `json:"relationships"`
}

// Adjacency holds the outgoing and incoming neighbor ids for one node.
type Adjacency struct {
	Out []string
	In  []string
}

// FileEntry groups the nodes defined in one source file.
type FileEntry struct {
	// FileID is the id of the File node itself, if the analyzer emitted one.
	FileID string

	ClassIDs    []string
	FunctionIDs []string
	TypeIDs     []string
}

// DomainEntry describes one domain or subdomain.
type DomainEntry struct {
	// NodeID is the id of the Domain/Subdomain node.
	NodeID string

	// MemberIDs are the nodes that belong to this domain, in raw order.
	MemberIDs []string

	// Relationships are the raw belongsTo/partOf edges touching this domain.
	Relationships []*RawRelationship
}

// Summary carries precomputed counts for a graph, used for capacity
// accounting in the cache and for overview responses.
type Summary struct {
	Files             int    `json:"files"`
	Functions         int    `json:"functions"`
	Classes           int    `json:"classes"`
	Types             int    `json:"types"`
	Domains           int    `json:"domains"`
	NodeCount         int    `json:"nodeCount"`
	RelationshipCount int    `json:"relationshipCount"`
	PrimaryLanguage   string `json:"primaryLanguage,omitempty"`
}

// IndexedGraph is the cache's unit of storage: one raw graph plus every
// derived lookup structure. Read-only after construction.
type IndexedGraph struct {
	// Raw is the original analyzer output, retained for queries that need
	// relationship metadata not present in the adjacency lists.
	Raw *RawGraph

	// NodeByID is the single source of truth for node objects. Every id
	// appearing in any other index exists here.
	NodeByID map[string]*RawNode

	// LabelIndex maps a label to node ids in raw insertion order.
	LabelIndex map[string][]string

	// PathIndex maps a normalized file path to the nodes defined there.
	PathIndex map[string]*FileEntry

	// DirIndex maps a directory path to the normalized file paths under it.
	DirIndex map[string][]string

	// NameIndex maps a lowercased symbol name to node ids, raw order.
	NameIndex map[string][]string

	// CallAdj holds call edges ("calls" relationships) per node.
	CallAdj map[string]*Adjacency

	// ImportAdj holds import edges ("imports" relationships) per node.
	ImportAdj map[string]*Adjacency

	// DomainIndex maps a domain or subdomain name to its entry.
	DomainIndex map[string]*DomainEntry

	// DomainOrder lists DomainIndex keys in first-seen order, so linear
	// scans over domains are deterministic.
	DomainOrder []string

	// DomainParent maps a subdomain name to its enclosing domain name,
	// derived from partOf relationships.
	DomainParent map[string]string

	// Summary holds precomputed counts.
	Summary Summary

	// CachedAt is when BuildIndexes ran.
	CachedAt time.Time

	// CacheKey is the key this graph is stored under.
	CacheKey string
}

// Node returns the node for id, or nil.
func (g *IndexedGraph) Node(id string) *RawNode {
	return g.NodeByID[id]
}

// Callers returns the ids of nodes with a call edge into id.
func (g *IndexedGraph) Callers(id string) []string {
	if adj := g.CallAdj[id]; adj != nil {
		return adj.In
	}
	return nil
}

// Callees returns the ids of nodes id calls.
func (g *IndexedGraph) Callees(id string) []string {
	if adj := g.CallAdj[id]; adj != nil {
		return adj.Out
	}
	return nil
}

// Importers returns the ids of nodes that import id.
func (g *IndexedGraph) Importers(id string) []string {
	if adj := g.ImportAdj[id]; adj != nil {
		return adj.In
	}
	return nil
}

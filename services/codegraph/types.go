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
	"time"

	"github.com/AleutianAI/codescope/services/codegraph/cache"
	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// ResolveRequest is the request body for POST /v1/graph/resolve.
type ResolveRequest struct {
	// Directory is the repository path to resolve. Required.
	Directory string `json:"directory" binding:"required"`

	// GraphType tags the cache key by purpose. Default: "overview".
	GraphType string `json:"graph_type,omitempty"`
}

// ResolveResponse is the response for POST /v1/graph/resolve.
type ResolveResponse struct {
	// CacheKey identifies the resolved graph in the cache.
	CacheKey string `json:"cache_key"`

	// Summary carries the graph's precomputed counts.
	Summary graph.Summary `json:"summary"`

	// CachedAt is when the graph entered the cache.
	CachedAt time.Time `json:"cached_at"`
}

// SymbolInfo is one ranked match in a SymbolResponse.
type SymbolInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FilePath  string `json:"file_path,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`

	// Strategy records which resolution pass produced the match.
	Strategy string `json:"strategy"`

	// Callers is the number of incoming call edges.
	Callers int `json:"callers"`
}

// SymbolResponse is the response for GET /v1/graph/symbol.
type SymbolResponse struct {
	Query   string       `json:"query"`
	Matches []SymbolInfo `json:"matches"`
}

// PathResponse is the response for GET /v1/graph/path.
type PathResponse struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Found is false when no path exists within the depth bound.
	Found bool `json:"found"`

	// Path is the node id sequence from source to target, inclusive.
	Path []string `json:"path,omitempty"`
}

// FileResponse is the response for GET /v1/graph/file.
type FileResponse struct {
	Path      string   `json:"path"`
	FileID    string   `json:"file_id,omitempty"`
	Classes   []string `json:"classes,omitempty"`
	Functions []string `json:"functions,omitempty"`
	Types     []string `json:"types,omitempty"`

	// Siblings lists other files in the same directory when the exact
	// path has no entry, as a navigation aid.
	Siblings []string `json:"siblings,omitempty"`
}

// DomainResponse is the response for GET /v1/graph/domain.
type DomainResponse struct {
	Domain  string   `json:"domain"`
	Parent  string   `json:"parent,omitempty"`
	Members []string `json:"members,omitempty"`
}

// CacheStatusResponse is the response for GET /v1/cache/status.
type CacheStatusResponse struct {
	Entries []cache.EntryStatus `json:"entries"`
	Stats   cache.Stats         `json:"stats"`
}

// InvalidateResponse is the response for DELETE /v1/cache/:key.
type InvalidateResponse struct {
	Key     string `json:"key"`
	Removed bool   `json:"removed"`
}

// HealthResponse is the response for GET /v1/health.
type HealthResponse struct {
	// Status is "healthy" or "degraded".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`

	// CacheEntries is the number of cached graphs.
	CacheEntries int `json:"cache_entries"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error kind (optional).
	Code string `json:"code,omitempty"`
}

func symbolInfos(matches []graph.SymbolMatch) []SymbolInfo {
	infos := make([]SymbolInfo, 0, len(matches))
	for _, m := range matches {
		infos = append(infos, SymbolInfo{
			ID:        m.ID,
			Name:      m.Node.Properties.Name,
			FilePath:  graph.NormalizePath(m.Node.Properties.FilePath),
			StartLine: m.Node.Properties.StartLine,
			EndLine:   m.Node.Properties.EndLine,
			Strategy:  string(m.Strategy),
			Callers:   m.CallerCount,
		})
	}
	return infos
}

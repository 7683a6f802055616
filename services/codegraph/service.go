// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package codegraph provides the codescope HTTP service over cached code
// graphs.
//
// The service exposes endpoints for:
//   - Resolving a repository directory to an indexed graph (cache or fetch)
//   - Symbol, path, file, and domain queries against cached graphs
//   - Cache inspection and invalidation
package codegraph

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/AleutianAI/codescope/pkg/validation"
	"github.com/AleutianAI/codescope/services/codegraph/analyzer"
	"github.com/AleutianAI/codescope/services/codegraph/cache"
	"github.com/AleutianAI/codescope/services/codegraph/config"
	"github.com/AleutianAI/codescope/services/codegraph/faults"
	"github.com/AleutianAI/codescope/services/codegraph/graph"
	"github.com/AleutianAI/codescope/services/codegraph/persist"
	"github.com/AleutianAI/codescope/services/codegraph/watch"
)

// WatchDebounce is how long filesystem change bursts settle before an
// invalidation fires.
const WatchDebounce = 500 * time.Millisecond

// Service owns the cache store, the analysis client, and one fetch
// coordinator per graph type.
//
// Thread Safety:
//
//	Safe for concurrent use. Coordinators and watchers are created lazily
//	under their own locks; the store synchronizes itself.
type Service struct {
	cfg    config.Config
	logger *slog.Logger
	store  *cache.Store
	fetch  cache.FetchFunc

	// ctx bounds background work (watcher loops). Canceled by Close, never
	// by request contexts.
	ctx    context.Context
	cancel context.CancelFunc

	coordMu sync.Mutex
	coords  map[string]*cache.Coordinator

	watchMu  sync.Mutex
	watchers map[string]*dirWatch
	watching bool
}

// dirWatch pairs a directory's watcher with the cache keys resolved for it.
// Keys are captured at resolve time because the edit that fires the watcher
// also changes the dirty-status hash, so re-deriving would miss the entry.
type dirWatch struct {
	inv  *watch.Invalidator
	keys map[string]struct{}
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithFetcher overrides the graph fetcher. The default packages a snapshot
// and calls the configured analysis service.
func WithFetcher(fn cache.FetchFunc) ServiceOption {
	return func(s *Service) { s.fetch = fn }
}

// WithWatch enables filesystem watching: each resolved directory gets a
// recursive watcher that invalidates its cache entry after changes settle.
func WithWatch() ServiceOption {
	return func(s *Service) { s.watching = true }
}

// NewService wires the store, analysis client, and persistence from config.
func NewService(cfg config.Config, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	store := cache.NewStore(logger,
		cache.WithMaxEntries(cfg.MaxEntries),
		cache.WithMaxNodes(cfg.MaxNodes),
		cache.WithTTL(cfg.TTL),
	)

	client := analyzer.NewClient(cfg.AnalyzerURL,
		analyzer.WithRequestTimeout(cfg.RequestTimeout),
		analyzer.WithAPIKey(cfg.AnalyzerAPIKey),
		analyzer.WithMaxArchiveBytes(cfg.MaxArchiveBytes),
		analyzer.WithLogger(logger),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		fetch:    client.FetchGraph,
		ctx:      ctx,
		cancel:   cancel,
		coords:   make(map[string]*cache.Coordinator),
		watchers: make(map[string]*dirWatch),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Warm loads persisted graphs from the cache directory into the store.
// Missing or partially corrupt state degrades to a cold start.
func (s *Service) Warm() int {
	repos, err := persist.Load(s.cfg.CacheDir, s.store, s.logger)
	if err != nil {
		s.logger.Warn("cache warm-up failed", "dir", s.cfg.CacheDir, "error", err)
		return 0
	}
	return len(repos)
}

// coordinatorFor returns the coordinator for a graph type, creating it on
// first use. All coordinators share the store, so the entry and node
// budgets hold across graph types.
func (s *Service) coordinatorFor(graphType string) *cache.Coordinator {
	if graphType == "" {
		graphType = cache.DefaultGraphType
	}

	s.coordMu.Lock()
	defer s.coordMu.Unlock()

	if c, ok := s.coords[graphType]; ok {
		return c
	}

	c := cache.NewCoordinator(s.store, s.fetch, s.logger,
		cache.WithGraphType(graphType),
		cache.WithNoFallback(s.cfg.NoFallback),
		cache.WithPersist(func(directory, cacheKey string, raw *graph.RawGraph) error {
			return persist.Save(s.cfg.CacheDir, filepath.Base(directory), raw,
				cache.CommitFromKey(cacheKey))
		}),
	)
	s.coords[graphType] = c
	return c
}

// Resolve returns the indexed graph for a directory, fetching on miss
// unless the service runs cache-only.
func (s *Service) Resolve(ctx context.Context, directory, graphType string) (*graph.IndexedGraph, error) {
	if err := validation.ValidateDirectory(directory); err != nil {
		return nil, faults.Wrap(faults.KindValidation, "codegraph.Resolve", err)
	}
	if graphType != "" {
		sanitized, err := validation.SanitizeGraphType(graphType)
		if err != nil {
			return nil, faults.Wrap(faults.KindValidation, "codegraph.Resolve", err)
		}
		graphType = sanitized
	}

	coord := s.coordinatorFor(graphType)
	g, err := coord.ResolveOrFetch(ctx, directory)
	if err != nil {
		return nil, err
	}
	if s.watching {
		s.ensureWatcher(directory, g.CacheKey)
	}
	return g, nil
}

// Symbol resolves a free-text symbol query against a directory's graph.
func (s *Service) Symbol(ctx context.Context, directory, graphType, query string) ([]graph.SymbolMatch, error) {
	if query == "" {
		return nil, faults.New(faults.KindValidation, "codegraph.Symbol", "symbol query must not be empty")
	}
	g, err := s.Resolve(ctx, directory, graphType)
	if err != nil {
		return nil, err
	}
	return graph.ResolveSymbol(g, query), nil
}

// Path finds the shortest call/import path between two symbols. Each
// endpoint is resolved first; all of its matches seed the search.
func (s *Service) Path(ctx context.Context, directory, graphType, from, to string, maxDepth int) ([]string, error) {
	if from == "" || to == "" {
		return nil, faults.New(faults.KindValidation, "codegraph.Path", "both path endpoints are required")
	}

	g, err := s.Resolve(ctx, directory, graphType)
	if err != nil {
		return nil, err
	}

	fromIDs := matchIDs(graph.ResolveSymbol(g, from))
	if len(fromIDs) == 0 {
		return nil, faults.New(faults.KindNotFound, "codegraph.Path", "symbol %q not found", from)
	}
	toIDs := matchIDs(graph.ResolveSymbol(g, to))
	if len(toIDs) == 0 {
		return nil, faults.New(faults.KindNotFound, "codegraph.Path", "symbol %q not found", to)
	}

	return graph.FindShortestPath(g, fromIDs, toIDs, maxDepth), nil
}

// File returns the symbols defined in a file. When the exact path has no
// entry, sibling files in the same directory are returned instead.
func (s *Service) File(ctx context.Context, directory, graphType, filePath string) (*FileResponse, error) {
	if filePath == "" {
		return nil, faults.New(faults.KindValidation, "codegraph.File", "file path must not be empty")
	}

	g, err := s.Resolve(ctx, directory, graphType)
	if err != nil {
		return nil, err
	}

	normalized := graph.NormalizePath(filePath)
	if entry, ok := graph.FileOverview(g, normalized); ok {
		return &FileResponse{
			Path:      normalized,
			FileID:    entry.FileID,
			Classes:   namesOf(g, entry.ClassIDs),
			Functions: namesOf(g, entry.FunctionIDs),
			Types:     namesOf(g, entry.TypeIDs),
		}, nil
	}

	siblings := graph.FilesInDirectory(g, filepath.Dir(normalized))
	if len(siblings) == 0 {
		return nil, faults.New(faults.KindNotFound, "codegraph.File", "file %q not in graph", normalized)
	}
	return &FileResponse{Path: normalized, Siblings: siblings}, nil
}

// Domain returns a domain's parent and members by domain name.
func (s *Service) Domain(ctx context.Context, directory, graphType, name string) (*DomainResponse, error) {
	if name == "" {
		return nil, faults.New(faults.KindValidation, "codegraph.Domain", "domain name must not be empty")
	}

	g, err := s.Resolve(ctx, directory, graphType)
	if err != nil {
		return nil, err
	}

	members := graph.DomainMembers(g, name)
	parent, ok := graph.ParentDomain(g, name)
	if !ok && len(members) == 0 {
		return nil, faults.New(faults.KindNotFound, "codegraph.Domain", "domain %q not in graph", name)
	}

	resp := &DomainResponse{Domain: name, Members: namesOf(g, members)}
	if parent != name {
		resp.Parent = parent
	}
	return resp, nil
}

// CacheStatus returns per-entry status (MRU first) and store counters.
func (s *Service) CacheStatus() CacheStatusResponse {
	return CacheStatusResponse{
		Entries: s.store.Status(),
		Stats:   s.store.Stats(),
	}
}

// InvalidateKey removes one cache entry by its exact key.
func (s *Service) InvalidateKey(key string) bool {
	return s.store.Invalidate(key)
}

// CacheSize returns the number of cached graphs.
func (s *Service) CacheSize() int {
	return s.store.Size()
}

// ensureWatcher tracks a resolved cache key for a directory, starting the
// directory's filesystem watcher on first sight. Watchers run on the
// service-lifetime context so they survive the request that created them.
// Watcher failures are logged and the directory simply goes unwatched;
// staleness is bounded by the TTL either way.
func (s *Service) ensureWatcher(directory, key string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if w, ok := s.watchers[directory]; ok {
		w.keys[key] = struct{}{}
		return
	}

	inv, err := watch.NewInvalidator(directory, func() {
		s.invalidateWatched(directory)
	}, WatchDebounce, s.logger)
	if err != nil {
		s.logger.Warn("cannot watch directory", "directory", directory, "error", err)
		return
	}
	if err := inv.Start(s.ctx); err != nil {
		s.logger.Warn("cannot start watcher", "directory", directory, "error", err)
		return
	}
	s.watchers[directory] = &dirWatch{inv: inv, keys: map[string]struct{}{key: {}}}
}

// invalidateWatched drops every entry resolved for a directory, by the exact
// keys captured at resolve time. The next resolve re-tracks its new key.
func (s *Service) invalidateWatched(directory string) {
	s.watchMu.Lock()
	var keys []string
	if w, ok := s.watchers[directory]; ok {
		keys = make([]string, 0, len(w.keys))
		for k := range w.keys {
			keys = append(keys, k)
		}
		w.keys = make(map[string]struct{})
	}
	s.watchMu.Unlock()

	for _, key := range keys {
		if s.store.Invalidate(key) {
			s.logger.Info("repository changed, entry invalidated",
				"directory", directory, "key", key)
		}
	}
}

// Close stops all filesystem watchers.
func (s *Service) Close() {
	s.cancel()

	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	for dir, w := range s.watchers {
		w.inv.Stop()
		delete(s.watchers, dir)
	}
}

func matchIDs(matches []graph.SymbolMatch) []string {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	return ids
}

func namesOf(g *graph.IndexedGraph, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if n := g.NodeByID[id]; n != nil && n.Properties.Name != "" {
			names = append(names, n.Properties.Name)
		} else {
			names = append(names, id)
		}
	}
	return names
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package persist serializes raw graphs to a cache directory for startup
// warm-loading and cross-process reuse. One JSON file per repository
// identity; the pre-index raw graph is what gets written, since indexes are
// cheap to rebuild and their in-memory layout is not a stable format.
package persist

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/AleutianAI/codescope/services/codegraph/cache"
	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// fileExt is the cache file extension.
const fileExt = ".json"

// cacheFile is the on-disk format: the raw graph plus identifying metadata.
type cacheFile struct {
	Name       string          `json:"name"`
	CommitHash string          `json:"commitHash,omitempty"`
	SavedAt    time.Time       `json:"savedAt"`
	Graph      *graph.RawGraph `json:"graph"`
}

// RepoMap maps repository display names (and "commit:<hash>" aliases) to
// loaded graphs, so later resolution can match by either.
type RepoMap map[string]*graph.IndexedGraph

// unsafeNameChars matches everything not allowed in a cache filename.
var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeName reduces a repo identifier to a safe filename stem.
func SanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "repo"
	}
	return name
}

// Save writes a raw graph to the cache directory under a sanitized
// filename derived from name. Creates the directory if needed. The write
// goes through a temp file and rename so readers never see a torn file.
func Save(dir, name string, raw *graph.RawGraph, commitHash string) error {
	if raw == nil {
		return fmt.Errorf("persist.Save: nil graph for %q", name)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("persist.Save: create cache dir: %w", err)
	}

	payload := cacheFile{
		Name:       name,
		CommitHash: commitHash,
		SavedAt:    time.Now().UTC(),
		Graph:      raw,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("persist.Save: encode %q: %w", name, err)
	}

	target := filepath.Join(dir, SanitizeName(name)+fileExt)
	tmp, err := os.CreateTemp(dir, ".cache-*")
	if err != nil {
		return fmt.Errorf("persist.Save: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("persist.Save: write %q: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist.Save: close %q: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("persist.Save: rename %q: %w", target, err)
	}
	return nil
}

// Load scans the cache directory, indexes every readable graph, populates
// the store, and returns a lookup map keyed by repo name and, when a commit
// hash was saved, by "commit:<hash>".
//
// Corrupt or unreadable files are logged and skipped; a partial cache
// directory must never prevent startup. A missing directory yields an
// empty map and no error.
func Load(dir string, store *cache.Store, logger *slog.Logger) (RepoMap, error) {
	if logger == nil {
		logger = slog.Default()
	}
	repos := make(RepoMap)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return repos, nil
		}
		return nil, fmt.Errorf("persist.Load: read cache dir: %w", err)
	}

	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		path := filepath.Join(dir, de.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("skipping unreadable cache file", "path", path, "error", err)
			continue
		}

		var payload cacheFile
		if err := json.Unmarshal(data, &payload); err != nil {
			logger.Warn("skipping corrupt cache file", "path", path, "error", err)
			continue
		}
		if payload.Graph == nil || payload.Name == "" {
			logger.Warn("skipping incomplete cache file", "path", path)
			continue
		}

		key := entryKey(payload.Name, payload.CommitHash)
		g := graph.BuildIndexes(payload.Graph, key)
		if store != nil {
			store.Set(key, g)
		}

		repos[payload.Name] = g
		if payload.CommitHash != "" {
			repos["commit:"+payload.CommitHash] = g
		}
		logger.Info("loaded cached graph",
			"name", payload.Name,
			"commit", payload.CommitHash,
			"nodes", g.Summary.NodeCount,
			"saved_at", payload.SavedAt)
	}

	return repos, nil
}

// entryKey names a warm-loaded graph in the store. Disk entries have no
// originating absolute path, so the key is name-based rather than the
// directory-derived format used for live fetches.
func entryKey(name, commitHash string) string {
	if commitHash != "" {
		return fmt.Sprintf("disk:%s@%s", SanitizeName(name), commitHash)
	}
	return "disk:" + SanitizeName(name)
}

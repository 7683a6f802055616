// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads environment configuration for the codescope service.
//
// Invalid values never abort startup: each one is logged and replaced with
// its default, so a typo in one variable degrades that knob only.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/codescope/services/codegraph/analyzer"
	"github.com/AleutianAI/codescope/services/codegraph/cache"
)

// Environment variable names.
const (
	EnvCacheDir       = "CODESCOPE_CACHE_DIR"
	EnvAnalyzerURL    = "CODESCOPE_ANALYZER_URL"
	EnvAnalyzerAPIKey = "CODESCOPE_ANALYZER_API_KEY"
	EnvNoFallback     = "CODESCOPE_NO_FALLBACK"
	EnvRequestTimeout = "CODESCOPE_REQUEST_TIMEOUT"
	EnvMaxArchiveMB   = "CODESCOPE_MAX_ARCHIVE_MB"
	EnvMaxEntries     = "CODESCOPE_CACHE_MAX_ENTRIES"
	EnvMaxNodes       = "CODESCOPE_CACHE_MAX_NODES"
	EnvTTL            = "CODESCOPE_CACHE_TTL"
)

// DefaultAnalyzerURL is the analysis service endpoint used when none is
// configured.
const DefaultAnalyzerURL = "http://localhost:8701"

// Config is the resolved service configuration.
type Config struct {
	// CacheDir is where raw graphs are persisted across processes.
	CacheDir string

	// AnalyzerURL is the base URL of the external analysis service.
	AnalyzerURL string

	// AnalyzerAPIKey is the bearer token for the analysis service, if any.
	AnalyzerAPIKey string

	// NoFallback puts the service in cache-only mode: misses fail instead
	// of triggering external fetches.
	NoFallback bool

	// RequestTimeout bounds one analysis request end to end.
	RequestTimeout time.Duration

	// MaxArchiveBytes caps the packaged snapshot size.
	MaxArchiveBytes int64

	// MaxEntries, MaxNodes, and TTL override the cache store limits.
	MaxEntries int
	MaxNodes   int
	TTL        time.Duration
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	cacheDir := ".codescope/cache"
	if home, err := os.UserHomeDir(); err == nil {
		cacheDir = filepath.Join(home, ".codescope", "cache")
	}

	return Config{
		CacheDir:        cacheDir,
		AnalyzerURL:     DefaultAnalyzerURL,
		RequestTimeout:  analyzer.DefaultRequestTimeout,
		MaxArchiveBytes: analyzer.DefaultMaxArchiveBytes,
		MaxEntries:      cache.DefaultMaxEntries,
		MaxNodes:        cache.DefaultMaxNodes,
		TTL:             cache.DefaultTTL,
	}
}

// Load reads configuration from the environment on top of defaults.
func Load(logger *slog.Logger) Config {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := Default()

	if v := os.Getenv(EnvCacheDir); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv(EnvAnalyzerURL); v != "" {
		cfg.AnalyzerURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvAnalyzerAPIKey); v != "" {
		cfg.AnalyzerAPIKey = v
	}
	cfg.NoFallback = envBool(logger, EnvNoFallback, cfg.NoFallback)
	cfg.RequestTimeout = envDuration(logger, EnvRequestTimeout, cfg.RequestTimeout)
	cfg.TTL = envDuration(logger, EnvTTL, cfg.TTL)
	cfg.MaxEntries = envInt(logger, EnvMaxEntries, cfg.MaxEntries)
	cfg.MaxNodes = envInt(logger, EnvMaxNodes, cfg.MaxNodes)

	if mb := envInt(logger, EnvMaxArchiveMB, 0); mb > 0 {
		cfg.MaxArchiveBytes = int64(mb) << 20
	}

	return cfg
}

// envBool parses a boolean variable, keeping the fallback on bad input.
func envBool(logger *slog.Logger, key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warn("invalid boolean in environment, using default",
			"var", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

// envInt parses a positive integer variable, keeping the fallback on bad input.
func envInt(logger *slog.Logger, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("invalid integer in environment, using default",
			"var", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

// envDuration parses a duration variable ("90s", "5m"), keeping the
// fallback on bad input.
func envDuration(logger *slog.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		logger.Warn("invalid duration in environment, using default",
			"var", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

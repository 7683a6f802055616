// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/codescope/services/codegraph/cache"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load(nil)

	assert.Equal(t, DefaultAnalyzerURL, cfg.AnalyzerURL)
	assert.False(t, cfg.NoFallback)
	assert.Equal(t, cache.DefaultMaxEntries, cfg.MaxEntries)
	assert.Equal(t, cache.DefaultMaxNodes, cfg.MaxNodes)
	assert.Equal(t, cache.DefaultTTL, cfg.TTL)
	assert.NotEmpty(t, cfg.CacheDir)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvCacheDir, "/tmp/graphs")
	t.Setenv(EnvAnalyzerURL, "https://analyzer.internal/")
	t.Setenv(EnvNoFallback, "true")
	t.Setenv(EnvRequestTimeout, "90s")
	t.Setenv(EnvMaxArchiveMB, "10")
	t.Setenv(EnvMaxEntries, "5")
	t.Setenv(EnvMaxNodes, "50000")
	t.Setenv(EnvTTL, "30m")

	cfg := Load(nil)

	assert.Equal(t, "/tmp/graphs", cfg.CacheDir)
	assert.Equal(t, "https://analyzer.internal", cfg.AnalyzerURL, "trailing slash trimmed")
	assert.True(t, cfg.NoFallback)
	assert.Equal(t, 90*time.Second, cfg.RequestTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxArchiveBytes)
	assert.Equal(t, 5, cfg.MaxEntries)
	assert.Equal(t, 50000, cfg.MaxNodes)
	assert.Equal(t, 30*time.Minute, cfg.TTL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv(EnvNoFallback, "maybe")
	t.Setenv(EnvRequestTimeout, "soon")
	t.Setenv(EnvMaxEntries, "-3")
	t.Setenv(EnvMaxNodes, "lots")

	cfg := Load(nil)
	defaults := Default()

	assert.Equal(t, defaults.NoFallback, cfg.NoFallback)
	assert.Equal(t, defaults.RequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, defaults.MaxEntries, cfg.MaxEntries)
	assert.Equal(t, defaults.MaxNodes, cfg.MaxNodes)
}

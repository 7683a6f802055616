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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache and fetch operations.
var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescope_graph_cache_hits_total",
		Help: "Total number of graph cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescope_graph_cache_misses_total",
		Help: "Total number of graph cache misses (including expiries)",
	})

	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescope_graph_cache_evictions_total",
		Help: "Total number of graph cache evictions",
	})

	fetchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescope_graph_fetches_total",
		Help: "Total number of external graph fetches started",
	})

	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescope_graph_fetch_errors_total",
		Help: "Total number of failed graph fetches by error kind",
	}, []string{"kind"})

	fetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codescope_graph_fetch_duration_seconds",
		Help:    "Duration of fetch-and-index operations",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
)

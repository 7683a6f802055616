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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all codescope routes with the router.
//
// Description:
//
//	Registers the graph, cache, and health endpoints with the given Gin
//	router group. The group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/graph/resolve - Resolve a directory to an indexed graph
//	GET    /v1/graph/symbol - Ranked symbol resolution
//	GET    /v1/graph/path - Shortest call/import path between symbols
//	GET    /v1/graph/file - Symbols defined in a file
//	GET    /v1/graph/domain - Domain membership lookup
//	GET    /v1/cache/status - Per-entry cache status and counters
//	DELETE /v1/cache/:key - Invalidate one cache entry
//	GET    /v1/health - Health check
//
// Example:
//
//	svc := codegraph.NewService(config.Load(logger), logger)
//	handlers := codegraph.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	codegraph.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	graphs := rg.Group("/graph")
	{
		graphs.POST("/resolve", handlers.HandleResolve)
		graphs.GET("/symbol", handlers.HandleSymbol)
		graphs.GET("/path", handlers.HandlePath)
		graphs.GET("/file", handlers.HandleFile)
		graphs.GET("/domain", handlers.HandleDomain)
	}

	caches := rg.Group("/cache")
	{
		caches.GET("/status", handlers.HandleCacheStatus)
		caches.DELETE("/:key", handlers.HandleCacheInvalidate)
	}

	rg.GET("/health", handlers.HandleHealth)
}

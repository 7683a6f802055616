// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command codescope starts the codescope graph cache API server.
//
// Codescope caches analyzer-produced code graphs per repository and
// exposes symbol, path, file, and domain queries over them:
//   - Bounded in-memory LRU cache with TTL, warm-loaded from disk
//   - Single-flight fetches against the external analysis service
//   - Optional filesystem watching for cache invalidation
//
// Usage:
//
//	go run ./cmd/codescope
//	go run ./cmd/codescope -port 8701
//
// Cache-only mode (never call the analysis service):
//
//	CODESCOPE_NO_FALLBACK=true go run ./cmd/codescope
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/health
//
//	# Resolve a repository to a cached graph
//	curl -X POST http://localhost:8080/v1/graph/resolve \
//	  -H "Content-Type: application/json" \
//	  -d '{"directory": "/path/to/repo"}'
//
//	# Find a symbol
//	curl "http://localhost:8080/v1/graph/symbol?directory=/path/to/repo&name=filter"
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/codescope/pkg/logging"
	"github.com/AleutianAI/codescope/services/codegraph"
	"github.com/AleutianAI/codescope/services/codegraph/config"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	watch := flag.Bool("watch", true, "Invalidate cache entries on filesystem changes")
	logDir := flag.String("log-dir", "", "Directory for JSON log files (empty disables)")
	flag.Parse()

	level := logging.LevelInfo
	if *debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  *logDir,
		Service: "codescope",
	})
	defer logger.Close()

	// Set Gin mode
	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := config.Load(logger.Slog())

	opts := []codegraph.ServiceOption{}
	if *watch {
		opts = append(opts, codegraph.WithWatch())
	}
	svc := codegraph.NewService(cfg, logger.Slog(), opts...)
	defer svc.Close()

	if warmed := svc.Warm(); warmed > 0 {
		logger.Info("Cache warmed from disk", "repos", warmed, "dir", cfg.CacheDir)
	}

	handlers := codegraph.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	codegraph.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port, cfg.NoFallback)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Shutting down codescope server")
		svc.Close()
		logger.Close()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("Starting codescope server", "address", addr, "analyzer", cfg.AnalyzerURL)
	if err := router.Run(addr); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}

func printBanner(port int, noFallback bool) {
	mode := "fetch-on-miss"
	if noFallback {
		mode = "cache-only"
	}
	fmt.Printf(`
  codescope %s
  listening on :%d  (%s)

  POST   /v1/graph/resolve
  GET    /v1/graph/symbol
  GET    /v1/graph/path
  GET    /v1/graph/file
  GET    /v1/graph/domain
  GET    /v1/cache/status
  DELETE /v1/cache/:key
  GET    /v1/health
  GET    /metrics

`, codegraph.ServiceVersion, port, mode)
}

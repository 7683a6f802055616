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
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/codescope/pkg/validation"
	"github.com/AleutianAI/codescope/services/codegraph/faults"
	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// ServiceVersion is the codescope service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers for the codescope service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleResolve handles POST /v1/graph/resolve.
//
// Description:
//
//	Resolves a repository directory to an indexed graph, serving from
//	cache when fresh and fetching from the analysis service otherwise.
//
// Request Body:
//
//	ResolveRequest
//
// Response:
//
//	200 OK: ResolveResponse
//	400 Bad Request: Validation error
//	404 Not Found: Directory missing, or cache miss in cache-only mode
//	502/504: Analysis service failures, classified
func (h *Handlers) HandleResolve(c *gin.Context) {
	logger := h.requestLogger(c, "HandleResolve")

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  string(faults.KindValidation),
		})
		return
	}

	g, err := h.svc.Resolve(c.Request.Context(), req.Directory, req.GraphType)
	if err != nil {
		writeFault(c, logger, err)
		return
	}

	logger.Info("Graph resolved",
		"key", g.CacheKey,
		"nodes", g.Summary.NodeCount,
		"relationships", g.Summary.RelationshipCount)

	c.JSON(http.StatusOK, ResolveResponse{
		CacheKey: g.CacheKey,
		Summary:  g.Summary,
		CachedAt: g.CachedAt,
	})
}

// HandleSymbol handles GET /v1/graph/symbol.
//
// Query Parameters:
//
//	directory: Repository path (required)
//	name: Symbol query (required)
//	graph_type: Cache key purpose tag (optional)
//
// Response:
//
//	200 OK: SymbolResponse (matches may be empty)
func (h *Handlers) HandleSymbol(c *gin.Context) {
	logger := h.requestLogger(c, "HandleSymbol")

	directory := c.Query("directory")
	query := c.Query("name")

	matches, err := h.svc.Symbol(c.Request.Context(), directory, c.Query("graph_type"), query)
	if err != nil {
		writeFault(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, SymbolResponse{
		Query:   query,
		Matches: symbolInfos(matches),
	})
}

// HandlePath handles GET /v1/graph/path.
//
// Query Parameters:
//
//	directory: Repository path (required)
//	from, to: Symbol queries for the endpoints (required)
//	max_depth: Traversal depth bound (optional, default 10, max 100)
//
// Response:
//
//	200 OK: PathResponse (Found false when unreachable within the bound)
func (h *Handlers) HandlePath(c *gin.Context) {
	logger := h.requestLogger(c, "HandlePath")

	from := c.Query("from")
	to := c.Query("to")

	maxDepth := graph.DefaultMaxDepth
	if raw := c.Query("max_depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: "max_depth must be a positive integer",
				Code:  string(faults.KindValidation),
			})
			return
		}
		maxDepth = n
	}

	path, err := h.svc.Path(c.Request.Context(), c.Query("directory"), c.Query("graph_type"), from, to, maxDepth)
	if err != nil {
		writeFault(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, PathResponse{
		From:  from,
		To:    to,
		Found: path != nil,
		Path:  path,
	})
}

// HandleFile handles GET /v1/graph/file.
//
// Query Parameters:
//
//	directory: Repository path (required)
//	path: File path within the repository (required)
//
// Response:
//
//	200 OK: FileResponse
//	404 Not Found: Neither the file nor its directory is in the graph
func (h *Handlers) HandleFile(c *gin.Context) {
	logger := h.requestLogger(c, "HandleFile")

	resp, err := h.svc.File(c.Request.Context(), c.Query("directory"), c.Query("graph_type"), c.Query("path"))
	if err != nil {
		writeFault(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDomain handles GET /v1/graph/domain.
//
// Query Parameters:
//
//	directory: Repository path (required)
//	name: Domain name (required)
//
// Response:
//
//	200 OK: DomainResponse
//	404 Not Found: Domain not present in the graph
func (h *Handlers) HandleDomain(c *gin.Context) {
	logger := h.requestLogger(c, "HandleDomain")

	resp, err := h.svc.Domain(c.Request.Context(), c.Query("directory"), c.Query("graph_type"), c.Query("name"))
	if err != nil {
		writeFault(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleCacheStatus handles GET /v1/cache/status.
func (h *Handlers) HandleCacheStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.CacheStatus())
}

// HandleCacheInvalidate handles DELETE /v1/cache/:key.
//
// Response:
//
//	200 OK: InvalidateResponse with Removed true
//	404 Not Found: No entry under that key
func (h *Handlers) HandleCacheInvalidate(c *gin.Context) {
	logger := h.requestLogger(c, "HandleCacheInvalidate")

	key := c.Param("key")
	if err := validation.ValidateCacheKey(key); err != nil {
		logger.Warn("Malformed cache key", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  string(faults.KindValidation),
		})
		return
	}

	removed := h.svc.InvalidateKey(key)
	if !removed {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error: "no cache entry for key " + key,
			Code:  string(faults.KindNotFound),
		})
		return
	}

	logger.Info("Cache entry invalidated", "key", key)
	c.JSON(http.StatusOK, InvalidateResponse{Key: key, Removed: true})
}

// HandleHealth handles GET /v1/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		Version:      ServiceVersion,
		CacheEntries: h.svc.CacheSize(),
	})
}

// writeFault maps a classified error to its HTTP status and renders the
// standard error body. Internal errors are logged at error level since
// they are the reportable class.
func writeFault(c *gin.Context, logger *slog.Logger, err error) {
	kind := faults.KindOf(err)
	status := statusForKind(kind)

	if kind == faults.KindInternal {
		logger.Error("Request failed", "error", err)
	} else {
		logger.Warn("Request failed", "kind", kind, "error", err)
	}

	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  string(kind),
	})
}

// statusForKind maps error kinds to HTTP statuses.
func statusForKind(kind faults.Kind) int {
	switch kind {
	case faults.KindValidation:
		return http.StatusBadRequest
	case faults.KindNotFound:
		return http.StatusNotFound
	case faults.KindAuthentication:
		return http.StatusUnauthorized
	case faults.KindAuthorization:
		return http.StatusForbidden
	case faults.KindRateLimit:
		return http.StatusTooManyRequests
	case faults.KindTimeout:
		return http.StatusGatewayTimeout
	case faults.KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger builds a request-scoped logger on the service's injected
// logger, carrying the request id and handler name.
func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.svc.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

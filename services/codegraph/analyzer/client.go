// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/AleutianAI/codescope/services/codegraph/faults"
	"github.com/AleutianAI/codescope/services/codegraph/graph"
)

// Timeout defaults. Connect, response-header, and overall phases are
// bounded independently so a stalled service is distinguishable from a
// slow analysis.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultHeaderTimeout  = 30 * time.Second
	DefaultRequestTimeout = 5 * time.Minute
)

// maxErrorBody bounds how much of an error response body is read for the
// error message.
const maxErrorBody = 4096

// Client calls the external analysis service.
//
// Thread Safety:
//
//	Client is safe for concurrent use.
type Client struct {
	baseURL         string
	apiKey          string
	httpClient      *http.Client
	logger          *slog.Logger
	maxArchiveBytes int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRequestTimeout overrides the overall request deadline.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithAPIKey sets the bearer token sent to the service.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithMaxArchiveBytes overrides the snapshot size cap.
func WithMaxArchiveBytes(n int64) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxArchiveBytes = n
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the analysis service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultRequestTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: DefaultConnectTimeout,
				}).DialContext,
				TLSHandshakeTimeout:   DefaultConnectTimeout,
				ResponseHeaderTimeout: DefaultHeaderTimeout,
			},
		},
		logger:          slog.Default(),
		maxArchiveBytes: DefaultMaxArchiveBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze submits a packaged snapshot and decodes the resulting raw graph.
//
// The cache key travels as an idempotency token so a retried submission of
// the same snapshot does not trigger a duplicate analysis server-side.
// Failures are classified per the faults taxonomy and returned unmodified
// to callers; the client never retries.
func (c *Client) Analyze(ctx context.Context, repoName, cacheKey string, snapshot []byte) (*graph.RawGraph, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/analyze", bytes.NewReader(snapshot))
	if err != nil {
		return nil, faults.Wrap(faults.KindValidation, "analyzer.Analyze", err)
	}
	req.Header.Set("Content-Type", "application/gzip")
	req.Header.Set("X-Idempotency-Key", cacheKey)
	req.Header.Set("X-Repo-Name", repoName)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var raw graph.RawGraph
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, faults.Wrap(faults.KindInternal, "analyzer.Analyze",
			fmt.Errorf("decode response: %w", err))
	}

	c.logger.Debug("analysis complete",
		"repo", repoName,
		"nodes", len(raw.Nodes),
		"relationships", len(raw.Relationships),
		"duration", time.Since(start))
	return &raw, nil
}

// FetchGraph packages a directory and analyzes it. Matches the cache
// layer's FetchFunc signature so a Client can be wired directly into a
// fetch coordinator.
func (c *Client) FetchGraph(ctx context.Context, directory, cacheKey string) (*graph.RawGraph, error) {
	snapshot, err := PackageSnapshot(directory, c.maxArchiveBytes)
	if err != nil {
		return nil, err
	}
	return c.Analyze(ctx, filepath.Base(directory), cacheKey, snapshot)
}

// classifyTransport maps a transport-level failure into the taxonomy:
// deadline and timeout conditions are timeout_error, everything else that
// produced no response is network_error.
func classifyTransport(err error) *faults.Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return faults.Wrap(faults.KindTimeout, "analyzer.Analyze", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return faults.Wrap(faults.KindTimeout, "analyzer.Analyze", err)
	default:
		return faults.Wrap(faults.KindNetwork, "analyzer.Analyze", err)
	}
}

// classifyStatus maps a non-200 response into the taxonomy.
func classifyStatus(resp *http.Response) *faults.Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := string(bytes.TrimSpace(body))
	if detail == "" {
		detail = resp.Status
	}

	var kind faults.Kind
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		kind = faults.KindAuthentication
	case resp.StatusCode == http.StatusForbidden:
		kind = faults.KindAuthorization
	case resp.StatusCode == http.StatusNotFound:
		kind = faults.KindNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		kind = faults.KindRateLimit
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		kind = faults.KindTimeout
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		kind = faults.KindValidation
	default:
		kind = faults.KindInternal
	}
	return faults.New(kind, "analyzer.Analyze", "service returned %d: %s", resp.StatusCode, detail)
}

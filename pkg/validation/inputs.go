// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for security-critical operations.
//
// This package contains validators for user-provided inputs that are used in
// file paths, cache keys, or subprocess calls. Using these validators
// prevents injection attacks (command injection, path traversal) and keeps
// derived cache keys parseable.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// graphTypePattern matches valid graph type tags.
// Allows: lowercase letters, digits, underscores. Max length: 32 characters.
// The tag is embedded between colons in derived cache keys, so the colon
// and whitespace are structurally forbidden.
var graphTypePattern = regexp.MustCompile(`^[a-z0-9_]{1,32}$`)

// ValidateGraphType validates a graph type tag before it enters a cache key.
//
// Valid tags:
//   - 1-32 characters
//   - Lowercase letters a-z
//   - Digits 0-9
//   - Underscores (_)
//
// Returns an error if the tag is invalid.
//
// Example:
//
//	if err := validation.ValidateGraphType(graphType); err != nil {
//	    return nil, fmt.Errorf("invalid graph type: %w", err)
//	}
//	// Safe to embed in a cache key
func ValidateGraphType(graphType string) error {
	if graphType == "" {
		return fmt.Errorf("graph type cannot be empty")
	}

	if !graphTypePattern.MatchString(graphType) {
		return fmt.Errorf("invalid graph type: %q (must be 1-32 lowercase alphanumeric chars or underscores)", graphType)
	}

	return nil
}

// SanitizeGraphType normalizes and validates a graph type tag.
// Returns the lowercase tag if valid, or an error if invalid.
func SanitizeGraphType(graphType string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(graphType))
	if err := ValidateGraphType(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}

// ValidateDirectory rejects directory arguments that cannot be a real
// filesystem path. The path is later resolved and stat'd; this check
// exists to fail obviously hostile input before it reaches subprocess
// calls (git runs with the directory as its working dir).
func ValidateDirectory(directory string) error {
	if strings.TrimSpace(directory) == "" {
		return fmt.Errorf("directory cannot be empty")
	}
	if strings.ContainsRune(directory, 0) {
		return fmt.Errorf("directory contains a NUL byte")
	}
	return nil
}

// ValidateCacheKey rejects cache keys that could not have been produced
// by key derivation. Keys arrive from the HTTP delete endpoint as opaque
// strings; structural checks keep log output and metrics labels sane.
func ValidateCacheKey(key string) error {
	if key == "" {
		return fmt.Errorf("cache key cannot be empty")
	}
	if len(key) > 256 {
		return fmt.Errorf("cache key too long (%d chars, max 256)", len(key))
	}
	if strings.ContainsAny(key, " \t\n\x00") {
		return fmt.Errorf("cache key contains whitespace or control characters")
	}
	if strings.Count(key, ":") < 2 {
		return fmt.Errorf("malformed cache key: %q (want name-hash:type:version)", key)
	}
	return nil
}

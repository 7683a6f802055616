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
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/codescope/services/codegraph/faults"
)

// DefaultGraphType tags the default overview/symbol cache. Named graph-type
// endpoints use their own tag so their graphs are keyed separately.
const DefaultGraphType = "overview"

// hashPrefixLen is how many hex chars of a SHA-1 go into a key segment.
const hashPrefixLen = 7

// runGit executes a git subcommand in dir and returns trimmed stdout.
// Swappable in tests.
var runGit = func(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

// DeriveKey computes the cache key for a directory.
//
// Description:
//
//	Key format (must stay bit-exact, it names disk and in-memory entries):
//
//	  {repoBaseName}-{sha1(absPath)[:7]}:{graphType}:{commitOrPathHash}{-statusHash}
//
//	The path hash disambiguates same-named repositories at different
//	locations. The commit segment is `git rev-parse --short HEAD` when the
//	directory is a git repository, otherwise the path hash again. When
//	`git status --porcelain` reports uncommitted changes, a hash of that
//	output is appended so a dirty tree never reuses a clean tree's entry.
//
// Inputs:
//
//	directory - Repository path. Must exist.
//	graphType - Purpose tag; empty uses DefaultGraphType.
//
// Outputs:
//
//	string - The derived key.
//	error - validation_error for empty input, not_found_error when the
//	directory does not exist or is not a directory.
func DeriveKey(directory, graphType string) (string, error) {
	if strings.TrimSpace(directory) == "" {
		return "", faults.New(faults.KindValidation, "cache.DeriveKey", "directory is required")
	}
	if graphType == "" {
		graphType = DefaultGraphType
	}

	abs, err := filepath.Abs(directory)
	if err != nil {
		return "", faults.Wrap(faults.KindValidation, "cache.DeriveKey", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", faults.New(faults.KindNotFound, "cache.DeriveKey", "directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", faults.New(faults.KindValidation, "cache.DeriveKey", "not a directory: %s", abs)
	}

	base := filepath.Base(abs)
	pathHash := sha1Short(abs)

	commit := pathHash
	if head, err := runGit(abs, "rev-parse", "--short", "HEAD"); err == nil && head != "" {
		commit = head
	}

	dirty := ""
	if status, err := runGit(abs, "status", "--porcelain"); err == nil && status != "" {
		dirty = "-" + sha1Short(status)
	}

	return fmt.Sprintf("%s-%s:%s:%s%s", base, pathHash, graphType, commit, dirty), nil
}

// CommitFromKey extracts the commit segment of a derived key, without the
// dirty-status suffix. For non-git directories this is the path hash, which
// still identifies the snapshot. Returns "" for keys in other formats.
func CommitFromKey(key string) string {
	parts := strings.Split(key, ":")
	if len(parts) < 3 {
		return ""
	}
	commit, _, _ := strings.Cut(parts[2], "-")
	return commit
}

// sha1Short returns the first hashPrefixLen hex chars of SHA-1(s).
func sha1Short(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:hashPrefixLen]
}

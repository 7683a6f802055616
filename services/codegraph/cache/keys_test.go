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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codescope/services/codegraph/faults"
)

// mkdirs creates every directory in the list.
func mkdirs(dirs ...string) error {
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// stubGit replaces runGit for the duration of a test.
func stubGit(t *testing.T, fn func(dir string, args ...string) (string, error)) {
	t.Helper()
	orig := runGit
	runGit = fn
	t.Cleanup(func() { runGit = orig })
}

func TestDeriveKey_NonGitDirectory(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		return "", errors.New("not a git repository")
	})

	dir := t.TempDir()
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)

	key, err := DeriveKey(dir, "")
	require.NoError(t, err)

	pathHash := sha1Short(abs)
	want := fmt.Sprintf("%s-%s:overview:%s", filepath.Base(abs), pathHash, pathHash)
	assert.Equal(t, want, key, "commit segment falls back to the path hash")
}

func TestDeriveKey_GitCleanTree(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		switch args[0] {
		case "rev-parse":
			return "abc1234", nil
		case "status":
			return "", nil
		}
		return "", errors.New("unexpected git call")
	})

	dir := t.TempDir()
	abs, _ := filepath.Abs(dir)

	key, err := DeriveKey(dir, "calls")
	require.NoError(t, err)

	want := fmt.Sprintf("%s-%s:calls:abc1234", filepath.Base(abs), sha1Short(abs))
	assert.Equal(t, want, key)
}

func TestDeriveKey_DirtyTreeAppendsStatusHash(t *testing.T) {
	const status = " M src/main.go\n?? notes.txt"
	stubGit(t, func(dir string, args ...string) (string, error) {
		switch args[0] {
		case "rev-parse":
			return "abc1234", nil
		case "status":
			return status, nil
		}
		return "", errors.New("unexpected git call")
	})

	dir := t.TempDir()
	abs, _ := filepath.Abs(dir)

	key, err := DeriveKey(dir, "")
	require.NoError(t, err)

	want := fmt.Sprintf("%s-%s:overview:abc1234-%s",
		filepath.Base(abs), sha1Short(abs), sha1Short(status))
	assert.Equal(t, want, key, "uncommitted changes must change the key")
}

func TestDeriveKey_SameNameDifferentLocation(t *testing.T) {
	stubGit(t, func(dir string, args ...string) (string, error) {
		return "", errors.New("not a git repository")
	})

	root := t.TempDir()
	dirA := filepath.Join(root, "a", "repo")
	dirB := filepath.Join(root, "b", "repo")
	require.NoError(t, mkdirs(dirA, dirB))

	keyA, err := DeriveKey(dirA, "")
	require.NoError(t, err)
	keyB, err := DeriveKey(dirB, "")
	require.NoError(t, err)

	assert.NotEqual(t, keyA, keyB, "path hash disambiguates same-named repos")
}

func TestCommitFromKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"clean tree", "repo-1a2b3c4:overview:abc1234", "abc1234"},
		{"dirty tree strips status hash", "repo-1a2b3c4:overview:abc1234-9f8e7d6", "abc1234"},
		{"non-git path hash", "repo-1a2b3c4:calls:1a2b3c4", "1a2b3c4"},
		{"disk entry format", "disk:repo", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CommitFromKey(tt.key))
		})
	}
}

func TestDeriveKey_Errors(t *testing.T) {
	_, err := DeriveKey("", "")
	assert.True(t, faults.IsKind(err, faults.KindValidation))

	_, err = DeriveKey(filepath.Join(t.TempDir(), "nope"), "")
	assert.True(t, faults.IsKind(err, faults.KindNotFound))
}

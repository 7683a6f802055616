// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestInvalidator_FiresOnceForBurst(t *testing.T) {
	dir := t.TempDir()

	var fired int32
	inv, err := NewInvalidator(dir, func() {
		atomic.AddInt32(&fired, 1)
	}, 100*time.Millisecond, nil)
	require.NoError(t, err)
	defer inv.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, inv.Start(ctx))

	// A burst of writes inside the debounce window.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.True(t, waitFor(t, 2*time.Second, func() bool {
		return atomic.LoadInt32(&fired) >= 1
	}), "debounced invalidation should fire")

	// Settle long enough to catch double fires.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired), "one burst, one invalidation")
}

func TestInvalidator_StopIsIdempotent(t *testing.T) {
	inv, err := NewInvalidator(t.TempDir(), func() {}, 0, nil)
	require.NoError(t, err)
	require.NoError(t, inv.Start(context.Background()))

	inv.Stop()
	inv.Stop()
}

func TestInvalidator_MissingRoot(t *testing.T) {
	inv, err := NewInvalidator(filepath.Join(t.TempDir(), "absent"), func() {}, 0, nil)
	require.NoError(t, err)

	err = inv.Start(context.Background())
	assert.Error(t, err)
}

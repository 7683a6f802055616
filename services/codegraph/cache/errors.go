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

import "errors"

// Sentinel errors for the cache layer.
var (
	// ErrFallbackDisabled indicates a cache miss while external fetches
	// are disabled. Distinct from a fetch that was attempted and failed:
	// no data exists and none can be produced until the operator re-enables
	// fallback or warms the cache from disk.
	ErrFallbackDisabled = errors.New("cache miss and external fallback is disabled")
)

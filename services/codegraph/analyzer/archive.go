// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package analyzer packages repository snapshots and calls the external
// analysis service that turns them into raw code graphs. The cache layer
// treats both operations as opaque collaborators; this package owns their
// mechanics and the error classification of their failures.
package analyzer

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/codescope/services/codegraph/faults"
)

// DefaultMaxArchiveBytes caps snapshot size at 100 MiB.
const DefaultMaxArchiveBytes = 100 << 20

// skippedDirs are directory names never included in a snapshot.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	".codescope":   true,
}

// PackageSnapshot builds a gzipped tar of a directory tree for transfer to
// the analysis service.
//
// Description:
//
//	Walks the tree, adding regular files with paths relative to dir.
//	Skips version-control and dependency directories, symlinks, and
//	anything else that is not a regular file. Aborts once the compressed
//	output exceeds maxBytes, since a snapshot the service will reject is
//	not worth finishing.
//
// Inputs:
//
//	dir - Directory to package. Must exist.
//	maxBytes - Compressed size cap; <= 0 uses DefaultMaxArchiveBytes.
//
// Outputs:
//
//	[]byte - The gzipped tar stream.
//	error - not_found_error for a missing directory, validation_error when
//	the size cap is exceeded, internal_error for I/O failures.
func PackageSnapshot(dir string, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxArchiveBytes
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, faults.Wrap(faults.KindValidation, "analyzer.PackageSnapshot", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, faults.New(faults.KindNotFound, "analyzer.PackageSnapshot", "directory not found: %s", root)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (skippedDirs[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		f.Close()
		if err != nil {
			return err
		}

		if int64(buf.Len()) > maxBytes {
			return faults.New(faults.KindValidation, "analyzer.PackageSnapshot",
				"snapshot exceeds %d byte limit", maxBytes)
		}
		return nil
	})
	if walkErr != nil {
		var fe *faults.Error
		if errors.As(walkErr, &fe) {
			return nil, fe
		}
		return nil, faults.Wrap(faults.KindInternal, "analyzer.PackageSnapshot", walkErr)
	}

	if err := tw.Close(); err != nil {
		return nil, faults.Wrap(faults.KindInternal, "analyzer.PackageSnapshot", err)
	}
	if err := gz.Close(); err != nil {
		return nil, faults.Wrap(faults.KindInternal, "analyzer.PackageSnapshot", err)
	}

	if int64(buf.Len()) > maxBytes {
		return nil, faults.New(faults.KindValidation, "analyzer.PackageSnapshot",
			"snapshot exceeds %d byte limit", maxBytes)
	}
	return buf.Bytes(), nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scan discovers the source files to analyze under a project
// root.
package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExcludedDirs are directory names skipped during discovery:
// VCS metadata and common Java build output trees.
var DefaultExcludedDirs = []string{".git", ".gradle", ".idea", "target", "build", "out", "node_modules"}

// Options configures a scan.
type Options struct {
	// Extensions are the file extensions to collect. Defaults to .java.
	Extensions []string

	// ExcludedDirs are directory names skipped entirely.
	// Defaults to DefaultExcludedDirs.
	ExcludedDirs []string
}

// DefaultOptions returns the default scan configuration.
func DefaultOptions() Options {
	return Options{
		Extensions:   []string{".java"},
		ExcludedDirs: DefaultExcludedDirs,
	}
}

// FindFiles walks root and returns matching file paths relative to
// root, sorted lexicographically so downstream processing order never
// depends on directory iteration order.
//
// Hidden directories (dot-prefixed) and the configured excluded
// directory names are skipped. Unreadable subtrees are logged and
// skipped rather than failing the scan.
func FindFiles(root string, opts Options) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("scan: root must not be empty")
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".java"}
	}
	if opts.ExcludedDirs == nil {
		opts.ExcludedDirs = DefaultExcludedDirs
	}

	excluded := make(map[string]bool, len(opts.ExcludedDirs))
	for _, d := range opts.ExcludedDirs {
		excluded[d] = true
	}
	wantExt := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		wantExt[strings.ToLower(e)] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("skipping unreadable path",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			name := d.Name()
			if path != root && (excluded[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !wantExt[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return rerr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan: walking %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

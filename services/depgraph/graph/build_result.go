// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "github.com/sd-74/JavaDependencyGraph/services/depgraph/index"

// FileError records an input that could not contribute to the build.
type FileError struct {
	// FilePath identifies the failed input.
	FilePath string `json:"file_path"`

	// Message describes what went wrong.
	Message string `json:"message"`
}

// BuildStats summarizes one build.
type BuildStats struct {
	// FilesProcessed is the number of fact sheets consumed.
	FilesProcessed int `json:"files_processed"`

	// NodesCreated is the number of graph nodes emitted.
	NodesCreated int `json:"nodes_created"`

	// EdgesCreated is the number of graph edges emitted (pairs count
	// as two).
	EdgesCreated int `json:"edges_created"`

	// DurationMilli is the wall-clock build time in milliseconds.
	DurationMilli int64 `json:"duration_ms"`
}

// BuildResult is the output of Builder.Build.
type BuildResult struct {
	// Graph is the frozen dependency graph.
	Graph *Graph

	// Table holds the symbol tables the graph was resolved against,
	// retained for diagnostics output.
	Table *index.SymbolTable

	// FileErrors lists inputs that were skipped.
	FileErrors []FileError

	// Stats summarizes the build.
	Stats BuildStats
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command javagraph builds and queries Java dependency graphs.
//
// Usage:
//
//	# Analyze a project and write nodes.jsonl / edges.jsonl
//	javagraph analyze --project /path/to/java/project --out ./graph
//
//	# Extract a focused subgraph around seed nodes
//	javagraph subgraph --graph ./graph --seed "class:p.Child" --depth 2
//
//	# Persist / reload snapshots
//	javagraph snapshot save --graph ./graph --project /path/to/java/project
//	javagraph snapshot list
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "javagraph",
	Short: "Static dependency graph engine for Java projects",
	Long: "javagraph scans a Java source tree, extracts structural facts with " +
		"tree-sitter, and builds a typed dependency graph (containment, " +
		"hierarchy, overrides, implementations, calls, instantiations, and " +
		"type usage) serialized as newline-delimited JSON.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

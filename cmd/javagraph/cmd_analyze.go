// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/pipeline"
)

var (
	analyzeProject      string
	analyzeOut          string
	analyzeConfig       string
	analyzeWorkers      int
	analyzeSymbolTables bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Scan a Java project and build its dependency graph",
	Long: "Analyze walks the project tree for .java files, parses each file " +
		"concurrently, builds the dependency graph, and writes nodes.jsonl " +
		"and edges.jsonl to the output directory. Unparseable files are " +
		"reported and skipped.",
	RunE: runAnalyzeCommand,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeProject, "project", "p", "", "root directory of the Java project (required unless --config is set)")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "output directory (default <project>/depgraph)")
	analyzeCmd.Flags().StringVarP(&analyzeConfig, "config", "c", "", "path to a YAML config file")
	analyzeCmd.Flags().IntVarP(&analyzeWorkers, "workers", "w", 0, "parser worker count (default NumCPU)")
	analyzeCmd.Flags().BoolVar(&analyzeSymbolTables, "symbol-tables", false, "also write symbol_tables.json")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyzeCommand(cmd *cobra.Command, _ []string) error {
	var cfg pipeline.Config
	var err error

	if analyzeConfig != "" {
		cfg, err = pipeline.LoadConfig(analyzeConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		if analyzeProject == "" {
			return fmt.Errorf("either --project or --config is required")
		}
		cfg = pipeline.DefaultConfig(analyzeProject)
	}

	// Flags override config file values.
	if analyzeProject != "" {
		cfg.ProjectRoot = analyzeProject
	}
	if analyzeOut != "" {
		cfg.OutputDir = analyzeOut
	}
	if analyzeWorkers > 0 {
		cfg.Workers = analyzeWorkers
	}
	if analyzeSymbolTables {
		cfg.WriteSymbolTables = true
	}

	result, err := pipeline.Run(cmd.Context(), cfg, slog.Default())
	if err != nil {
		return err
	}

	stats := result.Build.Graph.Stats()
	fmt.Printf("Analyzed %d files: %d nodes, %d edges (%d file errors)\n",
		result.FilesScanned, stats.NodeCount, stats.EdgeCount, len(result.FileErrors))
	fmt.Printf("Nodes: %s\nEdges: %s\n", result.NodesPath, result.EdgesPath)
	for _, fe := range result.FileErrors {
		fmt.Printf("  skipped %s: %s\n", fe.FilePath, fe.Message)
	}
	return nil
}

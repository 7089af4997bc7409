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
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/graph"
)

var (
	subgraphDir          string
	subgraphSeeds        []string
	subgraphDepth        int
	subgraphOut          string
	subgraphDependencies bool
	subgraphDependents   bool
)

var subgraphCmd = &cobra.Command{
	Use:   "subgraph",
	Short: "Extract a focused subgraph around seed nodes",
	Long: "Subgraph loads a serialized graph and performs a breadth-first " +
		"traversal from the seed node IDs, following dependency edges " +
		"(what the seeds rely on) and/or dependent edges (what relies on " +
		"the seeds) up to the given depth. The induced subgraph is written " +
		"as nodes.jsonl and edges.jsonl.",
	RunE: runSubgraphCommand,
}

func init() {
	subgraphCmd.Flags().StringVarP(&subgraphDir, "graph", "g", "", "directory containing nodes.jsonl and edges.jsonl (required)")
	subgraphCmd.Flags().StringArrayVarP(&subgraphSeeds, "seed", "s", nil, "seed node ID, repeatable (required)")
	subgraphCmd.Flags().IntVarP(&subgraphDepth, "depth", "d", 2, "maximum traversal depth from any seed")
	subgraphCmd.Flags().StringVarP(&subgraphOut, "out", "o", "", "output directory (default <graph>/subgraph)")
	subgraphCmd.Flags().BoolVar(&subgraphDependencies, "dependencies", true, "include what the seeds depend on")
	subgraphCmd.Flags().BoolVar(&subgraphDependents, "dependents", true, "include what depends on the seeds")
	rootCmd.AddCommand(subgraphCmd)
}

func runSubgraphCommand(_ *cobra.Command, _ []string) error {
	if subgraphDir == "" {
		return fmt.Errorf("--graph is required")
	}
	if len(subgraphSeeds) == 0 {
		return fmt.Errorf("at least one --seed is required")
	}

	nodes, edges, err := graph.LoadFiles(
		filepath.Join(subgraphDir, graph.NodesFileName),
		filepath.Join(subgraphDir, graph.EdgesFileName),
	)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}

	extractor := graph.NewSubgraphExtractor(nodes, edges)
	subNodes, subEdges := extractor.ExtractFocused(subgraphSeeds, graph.SubgraphOptions{
		IncludeDependencies: subgraphDependencies,
		IncludeDependents:   subgraphDependents,
		MaxDepth:            subgraphDepth,
	})

	outDir := subgraphOut
	if outDir == "" {
		outDir = filepath.Join(subgraphDir, "subgraph")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	nodesPath := filepath.Join(outDir, graph.NodesFileName)
	edgesPath := filepath.Join(outDir, graph.EdgesFileName)
	if err := writeJSONL(nodesPath, func(f *os.File) error {
		return graph.WriteNodes(f, subNodes)
	}); err != nil {
		return err
	}
	if err := writeJSONL(edgesPath, func(f *os.File) error {
		return graph.WriteEdges(f, subEdges)
	}); err != nil {
		return err
	}

	fmt.Printf("Subgraph: %d nodes, %d edges (from %d seeds, depth %d)\n",
		len(subNodes), len(subEdges), len(subgraphSeeds), subgraphDepth)
	fmt.Printf("Nodes: %s\nEdges: %s\n", nodesPath, edgesPath)
	return nil
}

func writeJSONL(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

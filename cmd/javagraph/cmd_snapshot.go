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
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/graph"
)

var (
	snapshotDB      string
	snapshotGraph   string
	snapshotProject string
	snapshotLabel   string
	snapshotOut     string
	snapshotLimit   int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save, load, list, and delete graph snapshots",
	Long: "Snapshot persists serialized graphs in a local BadgerDB store as " +
		"gzip-compressed payloads. A per-project latest pointer allows " +
		"reloading the most recent snapshot without knowing its ID.",
}

var snapshotSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a serialized graph as a snapshot",
	RunE:  runSnapshotSaveCommand,
}

var snapshotLoadCmd = &cobra.Command{
	Use:   "load <snapshot-id|latest>",
	Short: "Load a snapshot and write nodes.jsonl / edges.jsonl",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotLoadCommand,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved snapshots, newest first",
	RunE:  runSnapshotListCommand,
}

var snapshotDeleteCmd = &cobra.Command{
	Use:   "delete <snapshot-id>",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshotDeleteCommand,
}

func init() {
	snapshotCmd.PersistentFlags().StringVar(&snapshotDB, "db", defaultSnapshotDB(), "BadgerDB directory")
	snapshotSaveCmd.Flags().StringVarP(&snapshotGraph, "graph", "g", "", "directory containing nodes.jsonl and edges.jsonl (required)")
	snapshotSaveCmd.Flags().StringVarP(&snapshotProject, "project", "p", "", "project root the graph was built from (required)")
	snapshotSaveCmd.Flags().StringVarP(&snapshotLabel, "label", "l", "", "optional snapshot label")
	snapshotLoadCmd.Flags().StringVarP(&snapshotOut, "out", "o", ".", "output directory for the reloaded graph")
	snapshotLoadCmd.Flags().StringVarP(&snapshotProject, "project", "p", "", "project root, required when loading \"latest\"")
	snapshotListCmd.Flags().StringVarP(&snapshotProject, "project", "p", "", "restrict to a single project root")
	snapshotListCmd.Flags().IntVarP(&snapshotLimit, "limit", "n", 0, "maximum snapshots to list (default 100)")

	snapshotCmd.AddCommand(snapshotSaveCmd, snapshotLoadCmd, snapshotListCmd, snapshotDeleteCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func defaultSnapshotDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".javagraph/snapshots"
	}
	return filepath.Join(home, ".javagraph", "snapshots")
}

func openSnapshotManager() (*graph.SnapshotManager, *badger.DB, error) {
	if err := os.MkdirAll(snapshotDB, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := badger.Open(badger.DefaultOptions(snapshotDB).WithLogger(nil))
	if err != nil {
		return nil, nil, fmt.Errorf("open badger db at %s: %w", snapshotDB, err)
	}
	mgr, err := graph.NewSnapshotManager(db, slog.Default())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return mgr, db, nil
}

func runSnapshotSaveCommand(cmd *cobra.Command, _ []string) error {
	if snapshotGraph == "" {
		return fmt.Errorf("--graph is required")
	}
	if snapshotProject == "" {
		return fmt.Errorf("--project is required")
	}

	nodes, edges, err := graph.LoadFiles(
		filepath.Join(snapshotGraph, graph.NodesFileName),
		filepath.Join(snapshotGraph, graph.EdgesFileName),
	)
	if err != nil {
		return fmt.Errorf("load graph: %w", err)
	}
	g, err := graph.FromRecords(snapshotProject, nodes, edges)
	if err != nil {
		return fmt.Errorf("rebuild graph: %w", err)
	}

	mgr, db, err := openSnapshotManager()
	if err != nil {
		return err
	}
	defer db.Close()

	meta, err := mgr.Save(cmd.Context(), g, snapshotLabel)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	fmt.Printf("Saved snapshot %s (%d nodes, %d edges, %d bytes compressed)\n",
		meta.SnapshotID, meta.NodeCount, meta.EdgeCount, meta.CompressedSize)
	return nil
}

func runSnapshotLoadCommand(cmd *cobra.Command, args []string) error {
	mgr, db, err := openSnapshotManager()
	if err != nil {
		return err
	}
	defer db.Close()

	var g *graph.Graph
	var meta *graph.SnapshotMetadata
	if args[0] == "latest" {
		if snapshotProject == "" {
			return fmt.Errorf("--project is required when loading \"latest\"")
		}
		g, meta, err = mgr.LoadLatest(cmd.Context(), graph.ProjectHash(snapshotProject))
	} else {
		g, meta, err = mgr.Load(cmd.Context(), args[0])
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	if err := os.MkdirAll(snapshotOut, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	nodesPath, edgesPath, err := graph.WriteFiles(g, snapshotOut)
	if err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	fmt.Printf("Loaded snapshot %s (%d nodes, %d edges)\n",
		meta.SnapshotID, meta.NodeCount, meta.EdgeCount)
	fmt.Printf("Nodes: %s\nEdges: %s\n", nodesPath, edgesPath)
	return nil
}

func runSnapshotListCommand(cmd *cobra.Command, _ []string) error {
	mgr, db, err := openSnapshotManager()
	if err != nil {
		return err
	}
	defer db.Close()

	projectHash := ""
	if snapshotProject != "" {
		projectHash = graph.ProjectHash(snapshotProject)
	}
	metas, err := mgr.List(cmd.Context(), projectHash, snapshotLimit)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	if len(metas) == 0 {
		fmt.Println("No snapshots found.")
		return nil
	}
	for _, meta := range metas {
		created := time.UnixMilli(meta.CreatedAtMilli).Format(time.RFC3339)
		label := meta.Label
		if label == "" {
			label = "-"
		}
		fmt.Printf("%s  %s  %6d nodes  %6d edges  %s  %s\n",
			meta.SnapshotID, created, meta.NodeCount, meta.EdgeCount, label, meta.ProjectRoot)
	}
	return nil
}

func runSnapshotDeleteCommand(cmd *cobra.Command, args []string) error {
	mgr, db, err := openSnapshotManager()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := mgr.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	fmt.Printf("Deleted snapshot %s\n", args[0])
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline wires scanning, extraction, graph construction, and
// serialization into one analysis run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/ast"
	"github.com/sd-74/JavaDependencyGraph/services/depgraph/graph"
	"github.com/sd-74/JavaDependencyGraph/services/depgraph/scan"
)

// SymbolTablesFileName is the diagnostics dump filename.
const SymbolTablesFileName = "symbol_tables.json"

// Result is the output of one analysis run.
type Result struct {
	// Build is the graph build output.
	Build *graph.BuildResult

	// FilesScanned is the number of source files discovered.
	FilesScanned int

	// FileErrors lists files that could not be read or parsed. These
	// are skipped; the run continues with the remaining files.
	FileErrors []graph.FileError

	// NodesPath and EdgesPath are the written output files.
	NodesPath string
	EdgesPath string
}

// Run executes a full analysis: scan the project, extract facts from
// every file concurrently, build the graph, and write the NDJSON
// output.
//
// Description:
//
//	Extraction runs on a bounded worker pool (cfg.Workers). Results are
//	collected by file index so the fact-sheet order matches the sorted
//	scan order regardless of goroutine scheduling; the graph build is
//	therefore deterministic. Files that fail to read or parse are
//	recorded in Result.FileErrors and skipped.
//
// Inputs:
//   - ctx: Context for cancellation, honored between and during stages.
//   - cfg: Run configuration. Validated before use.
//   - logger: Destination for progress logs. Must not be nil.
//
// Outputs:
//   - *Result: Run output, never nil on success.
//   - error: Non-nil when the scan, build, or output write fails, or
//     when the context is canceled.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (*Result, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("pipeline: logger must not be nil")
	}

	scanOpts := scan.DefaultOptions()
	if cfg.ExcludedDirs != nil {
		scanOpts.ExcludedDirs = cfg.ExcludedDirs
	}
	files, err := scan.FindFiles(cfg.ProjectRoot, scanOpts)
	if err != nil {
		return nil, err
	}
	logger.Info("scan complete",
		slog.String("project_root", cfg.ProjectRoot),
		slog.Int("files", len(files)))

	var parserOpts []ast.JavaParserOption
	if cfg.MaxFileSizeBytes > 0 {
		parserOpts = append(parserOpts, ast.WithMaxFileSize(cfg.MaxFileSizeBytes))
	}
	parser := ast.NewJavaParser(parserOpts...)

	facts := make([]*ast.FileFacts, len(files))
	var (
		mu         sync.Mutex
		fileErrors []graph.FileError
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			content, err := os.ReadFile(filepath.Join(cfg.ProjectRoot, filepath.FromSlash(rel)))
			if err != nil {
				mu.Lock()
				fileErrors = append(fileErrors, graph.FileError{FilePath: rel, Message: "read: " + err.Error()})
				mu.Unlock()
				logger.Warn("skipping unreadable file",
					slog.String("file", rel), slog.String("error", err.Error()))
				return nil
			}

			f, err := parser.Parse(gctx, content, rel)
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				mu.Lock()
				fileErrors = append(fileErrors, graph.FileError{FilePath: rel, Message: "parse: " + err.Error()})
				mu.Unlock()
				logger.Warn("skipping unparseable file",
					slog.String("file", rel), slog.String("error", err.Error()))
				return nil
			}

			facts[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: extraction: %w", err)
	}

	// Compact out skipped files, preserving sorted order.
	kept := make([]*ast.FileFacts, 0, len(facts))
	for _, f := range facts {
		if f != nil {
			kept = append(kept, f)
		}
	}

	builder := graph.NewBuilder(cfg.ProjectRoot)
	build, err := builder.Build(ctx, kept)
	if err != nil {
		return nil, fmt.Errorf("pipeline: build: %w", err)
	}

	nodesPath, edgesPath, err := graph.WriteFiles(build.Graph, cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: writing output: %w", err)
	}

	if cfg.WriteSymbolTables {
		if err := writeSymbolTables(build, cfg.OutputDir); err != nil {
			return nil, err
		}
	}

	logger.Info("analysis complete",
		slog.Int("files", len(kept)),
		slog.Int("skipped", len(fileErrors)),
		slog.Int("nodes", build.Graph.NodeCount()),
		slog.Int("edges", build.Graph.EdgeCount()),
		slog.String("output_dir", cfg.OutputDir))

	return &Result{
		Build:        build,
		FilesScanned: len(files),
		FileErrors:   fileErrors,
		NodesPath:    nodesPath,
		EdgesPath:    edgesPath,
	}, nil
}

// writeSymbolTables dumps the build's symbol tables as indented JSON.
func writeSymbolTables(build *graph.BuildResult, dir string) error {
	data, err := json.MarshalIndent(build.Table.Dump(), "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: marshaling symbol tables: %w", err)
	}
	path := filepath.Join(dir, SymbolTablesFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("pipeline: writing %s: %w", path, err)
	}
	return nil
}

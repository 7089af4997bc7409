// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/graph"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// writeProject lays out a small two-class Java project and returns its
// root.
func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"src/p/Base.java": `package p;

public class Base {
    public String greet() {
        return "hello";
    }
}
`,
		"src/p/Child.java": `package p;

public class Child extends Base {
    public String greet() {
        Base b = new Base();
        return b.greet();
    }

    public String call() {
        return new Base().greet();
    }
}
`,
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func TestRun(t *testing.T) {
	root := writeProject(t)
	outDir := filepath.Join(t.TempDir(), "out")

	cfg := DefaultConfig(root)
	cfg.OutputDir = outDir
	cfg.Workers = 2

	result, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesScanned)
	assert.Empty(t, result.FileErrors)

	g := result.Build.Graph
	assert.True(t, g.IsFrozen())
	assert.True(t, g.HasNode("class:p.Base"))
	assert.True(t, g.HasNode("class:p.Child"))
	assert.True(t, g.HasEdge("class:p.Base", "class:p.Child", graph.LabelBaseClassOf))
	assert.True(t, g.HasEdge("method:p.Child#greet()", "method:p.Base#greet()", graph.LabelOverrides))
	assert.True(t, g.HasEdge("method:p.Child#greet()", "class:p.Base", graph.LabelInstantiates))
	assert.True(t, g.HasEdge("method:p.Child#greet()", "method:p.Base#greet()", graph.LabelCalls))
	assert.True(t, g.HasEdge("method:p.Child#call()", "method:p.Base#greet()", graph.LabelCalls),
		"a call chained on a creation expression resolves to the constructed type")
	assert.True(t, g.HasEdge("method:p.Child#call()", "class:p.Base", graph.LabelInstantiates))

	// Output files round-trip through the serialization layer.
	nodes, edges, err := graph.LoadFiles(result.NodesPath, result.EdgesPath)
	require.NoError(t, err)
	assert.Len(t, nodes, g.NodeCount())
	assert.Len(t, edges, g.EdgeCount())
}

func TestRun_ExampleProject(t *testing.T) {
	root := filepath.Join("..", "..", "..", "test", "fixtures", "example-java-project")
	if _, err := os.Stat(root); err != nil {
		t.Skipf("fixture project not available: %v", err)
	}

	cfg := DefaultConfig(root)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	result, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	assert.Empty(t, result.FileErrors)

	g := result.Build.Graph
	assert.True(t, g.HasNode("module:com.example.app"))
	assert.True(t, g.HasEdge("class:com.example.app.Base", "class:com.example.app.Child", graph.LabelBaseClassOf))
	assert.True(t, g.HasEdge("class:com.example.app.Child", "interface:com.example.app.Greeter", graph.LabelImplements))
	assert.True(t, g.HasEdge(
		"method:com.example.app.Child#greet()",
		"method:com.example.app.Base#greet()",
		graph.LabelOverrides))
	assert.True(t, g.HasEdge(
		"method:com.example.app.Child#helpers()",
		"method:com.example.app.Helper#render(String)",
		graph.LabelCalls), "local receivers resolve through the environment")
	assert.True(t, g.HasEdge(
		"method:com.example.app.Child#helpers()",
		"method:com.example.app.Base#log(String)",
		graph.LabelCalls), "implicit-this calls resolve up the superclass chain")
	assert.True(t, g.HasEdge(
		"method:com.example.app.Child#helpers()",
		"class:com.example.app.Helper",
		graph.LabelUses), "array return types strip to the element type")
}

func TestRun_SkipsBadFiles(t *testing.T) {
	root := writeProject(t)
	// Invalid UTF-8 fails the parse; the run continues without it.
	bad := filepath.Join(root, "src", "p", "Bad.java")
	require.NoError(t, os.WriteFile(bad, []byte{0xff, 0xfe, 0x00, 0x01}, 0o644))

	cfg := DefaultConfig(root)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	result, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 3, result.FilesScanned)
	require.Len(t, result.FileErrors, 1)
	assert.Equal(t, "src/p/Bad.java", result.FileErrors[0].FilePath)
	assert.True(t, result.Build.Graph.HasNode("class:p.Child"),
		"good files must still be analyzed")
}

func TestRun_WritesSymbolTables(t *testing.T) {
	root := writeProject(t)
	outDir := filepath.Join(t.TempDir(), "out")

	cfg := DefaultConfig(root)
	cfg.OutputDir = outDir
	cfg.WriteSymbolTables = true

	_, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(outDir, SymbolTablesFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "p.Child")
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := Run(context.Background(), Config{}, testLogger())
	assert.Error(t, err)
}

func TestRun_NilLogger(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	_, err := Run(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	root := writeProject(t)
	cfg := DefaultConfig(root)
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, testLogger())
	assert.Error(t, err)
}

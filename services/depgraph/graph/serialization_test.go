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

import (
	"bytes"
	"strings"
	"testing"
)

func TestSerialization_RoundTrip(t *testing.T) {
	result := buildFixture(t)
	g := result.Graph

	var nodeBuf, edgeBuf bytes.Buffer
	if err := WriteNodes(&nodeBuf, g.Nodes()); err != nil {
		t.Fatalf("WriteNodes failed: %v", err)
	}
	if err := WriteEdges(&edgeBuf, g.Edges()); err != nil {
		t.Fatalf("WriteEdges failed: %v", err)
	}

	nodes, err := ReadNodes(&nodeBuf)
	if err != nil {
		t.Fatalf("ReadNodes failed: %v", err)
	}
	edges, err := ReadEdges(&edgeBuf)
	if err != nil {
		t.Fatalf("ReadEdges failed: %v", err)
	}

	if len(nodes) != g.NodeCount() {
		t.Errorf("expected %d nodes back, got %d", g.NodeCount(), len(nodes))
	}
	if len(edges) != g.EdgeCount() {
		t.Errorf("expected %d edges back, got %d", g.EdgeCount(), len(edges))
	}

	original := g.Nodes()
	for i := range nodes {
		if nodes[i].ID != original[i].ID || nodes[i].Kind != original[i].Kind {
			t.Fatalf("node %d changed in round trip: %+v vs %+v", i, nodes[i], original[i])
		}
	}
	for i, e := range g.Edges() {
		if *edges[i] != *e {
			t.Fatalf("edge %d changed in round trip: %+v vs %+v", i, edges[i], e)
		}
	}
}

func TestSerialization_Deterministic(t *testing.T) {
	g := buildFixture(t).Graph

	var a, b bytes.Buffer
	if err := WriteNodes(&a, g.Nodes()); err != nil {
		t.Fatalf("WriteNodes failed: %v", err)
	}
	if err := WriteNodes(&b, g.Nodes()); err != nil {
		t.Fatalf("WriteNodes failed: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("expected byte-identical node streams from the same graph")
	}
}

func TestSerialization_ReadErrors(t *testing.T) {
	t.Run("malformed line names its number", func(t *testing.T) {
		input := `{"id":"class:p.A","kind":"class","label":"A","metadata":{}}
not json
`
		_, err := ReadNodes(strings.NewReader(input))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Errorf("expected a line-2 error, got %v", err)
		}
	})

	t.Run("blank lines are skipped", func(t *testing.T) {
		input := `{"id":"class:p.A","kind":"class","label":"A","metadata":{}}

{"id":"class:p.B","kind":"class","label":"B","metadata":{}}
`
		nodes, err := ReadNodes(strings.NewReader(input))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(nodes) != 2 {
			t.Errorf("expected 2 nodes, got %d", len(nodes))
		}
	})

	t.Run("missing trailing newline", func(t *testing.T) {
		input := `{"src":"a","dst":"b","label":"Calls","resolved":true}`
		edges, err := ReadEdges(strings.NewReader(input))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(edges) != 1 || edges[0].Label != LabelCalls {
			t.Errorf("expected the final unterminated line to parse, got %+v", edges)
		}
	})
}

func TestSerialization_Files(t *testing.T) {
	g := buildFixture(t).Graph
	dir := t.TempDir()

	nodesPath, edgesPath, err := WriteFiles(g, dir)
	if err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}

	nodes, edges, err := LoadFiles(nodesPath, edgesPath)
	if err != nil {
		t.Fatalf("LoadFiles failed: %v", err)
	}
	if len(nodes) != g.NodeCount() || len(edges) != g.EdgeCount() {
		t.Errorf("expected %d/%d records, got %d/%d",
			g.NodeCount(), g.EdgeCount(), len(nodes), len(edges))
	}
}

func TestFromRecords(t *testing.T) {
	g := buildFixture(t).Graph

	t.Run("rebuilds an identical frozen graph", func(t *testing.T) {
		rebuilt, err := FromRecords(g.ProjectRoot, g.Nodes(), g.Edges())
		if err != nil {
			t.Fatalf("FromRecords failed: %v", err)
		}
		if !rebuilt.IsFrozen() {
			t.Error("expected a frozen graph")
		}
		if rebuilt.NodeCount() != g.NodeCount() || rebuilt.EdgeCount() != g.EdgeCount() {
			t.Errorf("counts differ: %d/%d vs %d/%d",
				rebuilt.NodeCount(), rebuilt.EdgeCount(), g.NodeCount(), g.EdgeCount())
		}
		for _, e := range g.Edges() {
			if !rebuilt.HasEdge(e.Src, e.Dst, e.Label) {
				t.Errorf("missing edge after rebuild: %+v", e)
			}
		}
	})

	t.Run("rejects dangling edges", func(t *testing.T) {
		nodes := []*Node{classNode("class:p.A")}
		edges := []*Edge{{Src: "class:p.A", Dst: "class:p.Gone", Label: LabelUses, Resolved: true}}
		if _, err := FromRecords("/test", nodes, edges); err == nil {
			t.Error("expected an error for a dangling edge")
		}
	})
}

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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Serialization writes graphs as NDJSON: one JSON object per line,
// nodes and edges in separate streams. Output order is the graph's
// insertion order, so serializing the same build twice produces
// byte-identical files.

// WriteNodes writes nodes as NDJSON to w.
func WriteNodes(w io.Writer, nodes []*Node) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, n := range nodes {
		if err := enc.Encode(n); err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
	}
	return bw.Flush()
}

// WriteEdges writes edges as NDJSON to w.
func WriteEdges(w io.Writer, edges []*Edge) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, e := range edges {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode edge %s-[%s]->%s: %w", e.Src, e.Label, e.Dst, err)
		}
	}
	return bw.Flush()
}

// ReadNodes reads NDJSON nodes from r, preserving line order.
//
// Blank lines are skipped. A malformed line aborts the read with an
// error naming the line number.
func ReadNodes(r io.Reader) ([]*Node, error) {
	var nodes []*Node
	err := readLines(r, func(lineNum int, line []byte) error {
		var n Node
		if err := json.Unmarshal(line, &n); err != nil {
			return fmt.Errorf("nodes line %d: %w", lineNum, err)
		}
		nodes = append(nodes, &n)
		return nil
	})
	return nodes, err
}

// ReadEdges reads NDJSON edges from r, preserving line order.
func ReadEdges(r io.Reader) ([]*Edge, error) {
	var edges []*Edge
	err := readLines(r, func(lineNum int, line []byte) error {
		var e Edge
		if err := json.Unmarshal(line, &e); err != nil {
			return fmt.Errorf("edges line %d: %w", lineNum, err)
		}
		edges = append(edges, &e)
		return nil
	})
	return edges, err
}

// readLines feeds each non-blank line of r to fn.
//
// Uses a bufio.Reader rather than a Scanner: node lines carrying
// source slices can exceed the default Scanner token limit.
func readLines(r io.Reader, fn func(lineNum int, line []byte) error) error {
	br := bufio.NewReader(r)
	lineNum := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNum++
			trimmed := trimLine(line)
			if len(trimmed) > 0 {
				if ferr := fn(lineNum, trimmed); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// trimLine strips trailing newline characters.
func trimLine(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

// Default output filenames.
const (
	// NodesFileName is the node stream filename.
	NodesFileName = "nodes.jsonl"

	// EdgesFileName is the edge stream filename.
	EdgesFileName = "edges.jsonl"
)

// WriteFiles writes the graph's node and edge streams into dir,
// creating it if needed. Returns the two file paths written.
func WriteFiles(g *Graph, dir string) (nodesPath, edgesPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create output dir: %w", err)
	}

	nodesPath = filepath.Join(dir, NodesFileName)
	edgesPath = filepath.Join(dir, EdgesFileName)

	if err := writeFile(nodesPath, func(w io.Writer) error {
		return WriteNodes(w, g.Nodes())
	}); err != nil {
		return "", "", err
	}
	if err := writeFile(edgesPath, func(w io.Writer) error {
		return WriteEdges(w, g.Edges())
	}); err != nil {
		return "", "", err
	}
	return nodesPath, edgesPath, nil
}

// LoadFiles reads node and edge streams written by WriteFiles.
func LoadFiles(nodesPath, edgesPath string) ([]*Node, []*Edge, error) {
	nf, err := os.Open(nodesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open nodes: %w", err)
	}
	defer nf.Close()

	nodes, err := ReadNodes(nf)
	if err != nil {
		return nil, nil, err
	}

	ef, err := os.Open(edgesPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open edges: %w", err)
	}
	defer ef.Close()

	edges, err := ReadEdges(ef)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// FromRecords rebuilds a frozen graph from serialized node and edge
// records.
//
// Edges are inserted exactly as given (both pair directions are
// expected to be present in the input, as WriteEdges emits them).
// An edge referencing a missing node fails with ErrNodeNotFound.
func FromRecords(projectRoot string, nodes []*Node, edges []*Edge, opts ...GraphOption) (*Graph, error) {
	g := NewGraph(projectRoot, opts...)
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if !g.HasNode(e.Src) {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, e.Src)
		}
		if !g.HasNode(e.Dst) {
			return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, e.Dst)
		}
		if err := g.addEdge(e.Src, e.Dst, e.Label); err != nil {
			return nil, err
		}
	}
	g.Freeze()
	return g, nil
}

// writeFile creates path and streams content through fn.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

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

// SubgraphOptions configures a focused subgraph extraction.
type SubgraphOptions struct {
	// IncludeDependencies expands along dependency-labeled edges
	// (Calls, Uses, Instantiates, BaseClassOf, Implements), reaching
	// what the seeds rely on.
	IncludeDependencies bool

	// IncludeDependents expands along dependent-labeled edges
	// (CalledBy, UsedBy, InstantiatedBy, DerivedClassOf,
	// ImplementedBy), reaching what relies on the seeds.
	IncludeDependents bool

	// MaxDepth bounds the traversal. A node exactly MaxDepth hops from
	// a seed is included but not expanded. Zero keeps only the seeds.
	MaxDepth int
}

// DefaultSubgraphOptions expands two hops in both directions.
func DefaultSubgraphOptions() SubgraphOptions {
	return SubgraphOptions{
		IncludeDependencies: true,
		IncludeDependents:   true,
		MaxDepth:            2,
	}
}

// SubgraphExtractor extracts relevance-focused subgraphs from full
// node/edge arrays.
//
// The extractor works on serialized records rather than a live Graph
// so it can run over loaded nodes.jsonl/edges.jsonl output without a
// rebuild. Input order is preserved in the output: extracted nodes and
// edges appear in the same relative order as the input arrays.
//
// Thread Safety:
//
//	The extractor is read-only after construction and safe for
//	concurrent ExtractFocused calls.
type SubgraphExtractor struct {
	nodes    []*Node
	edges    []*Edge
	outgoing map[string][]*Edge
}

// NewSubgraphExtractor indexes the full graph arrays for traversal.
func NewSubgraphExtractor(nodes []*Node, edges []*Edge) *SubgraphExtractor {
	x := &SubgraphExtractor{
		nodes:    nodes,
		edges:    edges,
		outgoing: make(map[string][]*Edge),
	}
	for _, e := range edges {
		x.outgoing[e.Src] = append(x.outgoing[e.Src], e)
	}
	return x
}

// ExtractFocused returns the induced subgraph around a seed set.
//
// Description:
//
//	Runs a bounded breadth-first traversal from the seeds. Both
//	directions follow outgoing edges: the graph stores every relation
//	as a forward/reverse pair, so a dependent-labeled edge such as
//	CalledBy points from a method to its callers.
//	Seeds are always part of the reached set regardless of flags and
//	depth. The result contains every reached node present in the input
//	plus every input edge whose two endpoints were both reached, even
//	edges whose label is outside the traversal allow-lists.
//
// Inputs:
//   - seeds: Seed node ids. Unknown ids contribute nothing but do not
//     error.
//   - opts: Direction flags and depth bound.
//
// Outputs:
//   - []*Node, []*Edge: The induced subgraph in input order.
func (x *SubgraphExtractor) ExtractFocused(seeds []string, opts SubgraphOptions) ([]*Node, []*Edge) {
	reached := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		reached[id] = true
	}

	if opts.IncludeDependencies {
		x.traverse(seeds, opts.MaxDepth, DependencyLabels, reached)
	}
	if opts.IncludeDependents {
		x.traverse(seeds, opts.MaxDepth, DependentLabels, reached)
	}

	outNodes := make([]*Node, 0, len(reached))
	for _, n := range x.nodes {
		if reached[n.ID] {
			outNodes = append(outNodes, n)
		}
	}

	outEdges := make([]*Edge, 0)
	for _, e := range x.edges {
		if reached[e.Src] && reached[e.Dst] {
			outEdges = append(outEdges, e)
		}
	}

	return outNodes, outEdges
}

// traverse runs the bounded BFS from seeds, marking every visited node
// in reached. Only outgoing edges whose label is in allowed are
// followed.
func (x *SubgraphExtractor) traverse(
	seeds []string,
	maxDepth int,
	allowed map[EdgeLabel]bool,
	reached map[string]bool,
) {
	type item struct {
		id    string
		depth int
	}

	queue := make([]item, 0, len(seeds))
	visited := make(map[string]bool, len(seeds))
	for _, id := range seeds {
		queue = append(queue, item{id: id})
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		reached[cur.id] = true

		if cur.depth >= maxDepth {
			continue
		}
		for _, e := range x.outgoing[cur.id] {
			if allowed[e.Label] && !visited[e.Dst] {
				queue = append(queue, item{id: e.Dst, depth: cur.depth + 1})
			}
		}
	}
}

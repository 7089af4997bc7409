// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds and queries the Java dependency graph.
//
// Nodes represent packages, classes, interfaces, and methods; edges
// carry string labels and always come in forward/reverse pairs
// (ParentOf/ChildOf, Calls/CalledBy, ...). The graph is built once by
// Builder, frozen, and then read concurrently by serialization, the
// subgraph extractor, and snapshot storage.
package graph

import (
	"fmt"
	"time"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/ast"
)

// Default configuration values.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000
)

// GraphState represents the lifecycle state of the graph.
type GraphState int

const (
	// GraphStateBuilding indicates the graph is accepting AddNode/AddRelation calls.
	GraphStateBuilding GraphState = iota

	// GraphStateReadOnly indicates the graph is frozen and read-only.
	GraphStateReadOnly
)

// String returns the string representation of the GraphState.
func (s GraphState) String() string {
	switch s {
	case GraphStateBuilding:
		return "building"
	case GraphStateReadOnly:
		return "readonly"
	default:
		return "unknown"
	}
}

// EdgeLabel is the relationship type carried by an edge.
//
// Labels are plain strings on the wire. Every forward label has a
// registered reverse label and relations are always recorded as a
// forward/reverse pair.
type EdgeLabel string

const (
	// LabelParentOf links a container to a member (module to type,
	// type to method). Reverse: ChildOf.
	LabelParentOf EdgeLabel = "ParentOf"

	// LabelChildOf links a member to its container.
	LabelChildOf EdgeLabel = "ChildOf"

	// LabelBaseClassOf links a superclass to a subclass. Reverse: DerivedClassOf.
	LabelBaseClassOf EdgeLabel = "BaseClassOf"

	// LabelDerivedClassOf links a subclass to its superclass.
	LabelDerivedClassOf EdgeLabel = "DerivedClassOf"

	// LabelOverrides links a method to the nearest ancestor method it
	// overrides. Reverse: OverriddenBy.
	LabelOverrides EdgeLabel = "Overrides"

	// LabelOverriddenBy links an ancestor method to an override.
	LabelOverriddenBy EdgeLabel = "OverriddenBy"

	// LabelImplements links a class to a declared interface. Reverse: ImplementedBy.
	LabelImplements EdgeLabel = "Implements"

	// LabelImplementedBy links an interface to an implementing class.
	LabelImplementedBy EdgeLabel = "ImplementedBy"

	// LabelCalls links a caller method to a callee method. Reverse: CalledBy.
	LabelCalls EdgeLabel = "Calls"

	// LabelCalledBy links a callee method to a caller.
	LabelCalledBy EdgeLabel = "CalledBy"

	// LabelInstantiates links a method to a class it constructs. Reverse: InstantiatedBy.
	LabelInstantiates EdgeLabel = "Instantiates"

	// LabelInstantiatedBy links a class to a constructing method.
	LabelInstantiatedBy EdgeLabel = "InstantiatedBy"

	// LabelUses links a method or class to a type it references. Reverse: UsedBy.
	LabelUses EdgeLabel = "Uses"

	// LabelUsedBy links a type to a referencing method or class.
	LabelUsedBy EdgeLabel = "UsedBy"
)

// reverseLabels maps each forward label to its reverse. Both directions
// are registered so Reverse works on either member of a pair.
var reverseLabels = map[EdgeLabel]EdgeLabel{
	LabelParentOf:       LabelChildOf,
	LabelChildOf:        LabelParentOf,
	LabelBaseClassOf:    LabelDerivedClassOf,
	LabelDerivedClassOf: LabelBaseClassOf,
	LabelOverrides:      LabelOverriddenBy,
	LabelOverriddenBy:   LabelOverrides,
	LabelImplements:     LabelImplementedBy,
	LabelImplementedBy:  LabelImplements,
	LabelCalls:          LabelCalledBy,
	LabelCalledBy:       LabelCalls,
	LabelInstantiates:   LabelInstantiatedBy,
	LabelInstantiatedBy: LabelInstantiates,
	LabelUses:           LabelUsedBy,
	LabelUsedBy:         LabelUses,
}

// Reverse returns the paired label for l.
func (l EdgeLabel) Reverse() (EdgeLabel, bool) {
	r, ok := reverseLabels[l]
	return r, ok
}

// DependencyLabels are the outgoing labels followed when walking
// "things this node depends on".
var DependencyLabels = map[EdgeLabel]bool{
	LabelCalls:        true,
	LabelUses:         true,
	LabelInstantiates: true,
	LabelBaseClassOf:  true,
	LabelImplements:   true,
}

// DependentLabels are the incoming labels followed when walking
// "things that depend on this node".
var DependentLabels = map[EdgeLabel]bool{
	LabelCalledBy:       true,
	LabelUsedBy:         true,
	LabelInstantiatedBy: true,
	LabelDerivedClassOf: true,
	LabelImplementedBy:  true,
}

// NodeMetadata carries the source location details of a node.
//
// Only the fields relevant to the node kind are populated; the rest
// are omitted from serialized output.
type NodeMetadata struct {
	// FilePath is the declaring file, relative to project root.
	FilePath string `json:"file_path,omitempty"`

	// LineRange is the inclusive 1-indexed [start, end] line span.
	LineRange [2]int `json:"line_range,omitempty"`

	// OwnerFQN is the fully-qualified name of the declared symbol
	// (types) or its declaring type (methods).
	OwnerFQN string `json:"owner_fqn,omitempty"`

	// IsInterface distinguishes interfaces from classes on type nodes.
	IsInterface *bool `json:"is_interface,omitempty"`

	// ReturnType is the declared return type on method nodes.
	ReturnType string `json:"return_type,omitempty"`

	// Params holds declared parameter types on method nodes.
	Params []string `json:"params,omitempty"`

	// SourceCode is the source slice of the declaration, when captured.
	SourceCode string `json:"source_code,omitempty"`
}

// Node is one vertex of the dependency graph.
type Node struct {
	// ID is the canonical node id: "<kind>:<value>".
	ID string `json:"id"`

	// Kind is the node kind (module, class, interface, method).
	Kind ast.NodeKind `json:"kind"`

	// Label is the human-readable display label, e.g. "Class: Child".
	Label string `json:"label"`

	// Metadata carries source location details.
	Metadata NodeMetadata `json:"metadata"`
}

// Edge is one directed, labeled edge of the dependency graph.
type Edge struct {
	// Src is the source node id.
	Src string `json:"src"`

	// Dst is the destination node id.
	Dst string `json:"dst"`

	// Label is the relationship label.
	Label EdgeLabel `json:"label"`

	// Resolved is true when both endpoints were resolved against the
	// symbol tables. Edges that fail resolution are skipped rather than
	// emitted unresolved, so this is true for all built edges; it is
	// kept on the wire format for forward compatibility.
	Resolved bool `json:"resolved"`
}

// edgeKey identifies an edge for deduplication.
type edgeKey struct {
	src   string
	dst   string
	label EdgeLabel
}

// GraphOptions configures Graph behavior and limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	// Default: 1,000,000
	MaxNodes int

	// MaxEdges is the maximum number of edges the graph can hold.
	// Default: 10,000,000
	MaxEdges int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges the graph can hold.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// Graph is the dependency graph for one Java project.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use during building. It is designed
//	for single-writer access during build, then read-only after Freeze().
//	After Freeze() is called, the graph can be safely read from multiple
//	goroutines, but no further modifications are allowed.
//
// Lifecycle:
//
//  1. Create with NewGraph(projectRoot)
//  2. Build with AddNode() and AddRelation() calls
//  3. Call Freeze() to finalize
//  4. Query with GetNode(), Nodes(), Edges(), etc.
type Graph struct {
	// ProjectRoot is the path to the analyzed project root.
	ProjectRoot string

	// nodes maps node ID to Node.
	nodes map[string]*Node

	// nodeOrder holds node IDs in insertion order. Nodes are inserted
	// from files sorted by path, so this order is deterministic and is
	// what serialization emits.
	nodeOrder []string

	// edges contains all edges in insertion order.
	edges []*Edge

	// edgeSet deduplicates edges on (src, label, dst).
	edgeSet map[edgeKey]bool

	// outgoing maps node ID to its outgoing edges.
	outgoing map[string][]*Edge

	// incoming maps node ID to its incoming edges.
	incoming map[string][]*Edge

	// nodesByKind groups node IDs by kind, for stats and queries.
	nodesByKind map[ast.NodeKind][]string

	// state is the current lifecycle state.
	state GraphState

	// options contains configuration.
	options GraphOptions

	// BuiltAtMilli is the Unix timestamp in milliseconds when Freeze()
	// was called. Zero if the graph has not been frozen.
	BuiltAtMilli int64
}

// NewGraph creates a new empty graph for the given project root.
//
// The graph starts in the Building state, ready to accept AddNode and
// AddRelation calls, and must be frozen with Freeze() before concurrent
// reads.
//
// Example:
//
//	g := NewGraph("/path/to/project", WithMaxNodes(100_000))
func NewGraph(projectRoot string, opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		ProjectRoot: projectRoot,
		nodes:       make(map[string]*Node),
		nodeOrder:   make([]string, 0),
		edges:       make([]*Edge, 0),
		edgeSet:     make(map[edgeKey]bool),
		outgoing:    make(map[string][]*Edge),
		incoming:    make(map[string][]*Edge),
		nodesByKind: make(map[ast.NodeKind][]string),
		state:       GraphStateBuilding,
		options:     options,
	}
}

// State returns the current lifecycle state of the graph.
func (g *Graph) State() GraphState {
	return g.state
}

// IsFrozen returns true if the graph is in read-only mode.
func (g *Graph) IsFrozen() bool {
	return g.state == GraphStateReadOnly
}

// Freeze transitions the graph to read-only mode.
//
// After calling Freeze(), AddNode and AddRelation return ErrGraphFrozen.
// This operation is irreversible. Safe to call more than once; the
// BuiltAtMilli timestamp is set on the first call.
func (g *Graph) Freeze() {
	if g.state == GraphStateReadOnly {
		return
	}
	g.state = GraphStateReadOnly
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// AddNode adds a node to the graph.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrInvalidNode - Node is nil or has an empty ID
//	ErrDuplicateNode - Node with same ID already exists
//	ErrMaxNodesExceeded - Graph is at node capacity
//
// Ownership:
//
//	The graph stores the node pointer but does NOT own it. The node
//	MUST NOT be mutated after this call.
func (g *Graph) AddNode(n *Node) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}

	if n == nil || n.ID == "" {
		return fmt.Errorf("%w: nil node or empty id", ErrInvalidNode)
	}

	if len(g.nodes) >= g.options.MaxNodes {
		return ErrMaxNodesExceeded
	}

	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID)
	}

	g.nodes[n.ID] = n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	g.nodesByKind[n.Kind] = append(g.nodesByKind[n.Kind], n.ID)

	return nil
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, exists := g.nodes[id]
	return exists
}

// GetNode retrieves a node by its ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// AddRelation records a relationship as a forward/reverse edge pair.
//
// Description:
//
//	Adds the forward edge (src, label, dst) and the paired reverse edge
//	(dst, reverse(label), src). Both endpoints must already exist in
//	the graph. Duplicate edges on (src, label, dst) are silently
//	ignored, so recording the same relationship twice is a no-op.
//
// Errors:
//
//	ErrGraphFrozen - Graph has been frozen
//	ErrUnknownLabel - Label has no registered reverse
//	ErrNodeNotFound - Source or target node doesn't exist
//	ErrMaxEdgesExceeded - Graph is at edge capacity
func (g *Graph) AddRelation(src, dst string, label EdgeLabel) error {
	if g.state == GraphStateReadOnly {
		return ErrGraphFrozen
	}

	reverse, ok := label.Reverse()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}

	if !g.HasNode(src) {
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, src)
	}
	if !g.HasNode(dst) {
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, dst)
	}

	if err := g.addEdge(src, dst, label); err != nil {
		return err
	}
	return g.addEdge(dst, src, reverse)
}

// addEdge appends one directed edge, skipping exact duplicates.
func (g *Graph) addEdge(src, dst string, label EdgeLabel) error {
	key := edgeKey{src: src, dst: dst, label: label}
	if g.edgeSet[key] {
		return nil
	}

	if len(g.edges) >= g.options.MaxEdges {
		return ErrMaxEdgesExceeded
	}

	edge := &Edge{Src: src, Dst: dst, Label: label, Resolved: true}
	g.edges = append(g.edges, edge)
	g.edgeSet[key] = true
	g.outgoing[src] = append(g.outgoing[src], edge)
	g.incoming[dst] = append(g.incoming[dst], edge)

	return nil
}

// HasEdge reports whether the exact edge (src, label, dst) exists.
func (g *Graph) HasEdge(src, dst string, label EdgeLabel) bool {
	return g.edgeSet[edgeKey{src: src, dst: dst, label: label}]
}

// Nodes returns all nodes in insertion order.
//
// The returned slice is freshly allocated; the node pointers are shared
// and must not be mutated.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns all edges in insertion order.
//
// Callers must NOT modify the returned slice.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// Outgoing returns the outgoing edges of a node.
//
// Callers must NOT modify the returned slice.
func (g *Graph) Outgoing(id string) []*Edge {
	return g.outgoing[id]
}

// Incoming returns the incoming edges of a node.
//
// Callers must NOT modify the returned slice.
func (g *Graph) Incoming(id string) []*Edge {
	return g.incoming[id]
}

// GraphStats contains statistics about the graph.
//
// Thread Safety: GraphStats is a value type with no internal state.
// Safe for concurrent use as long as the source Graph is frozen.
type GraphStats struct {
	// NodeCount is the total number of nodes.
	NodeCount int `json:"node_count"`

	// EdgeCount is the total number of edges (pairs count as two).
	EdgeCount int `json:"edge_count"`

	// NodesByKind maps each node kind to its count.
	NodesByKind map[ast.NodeKind]int `json:"nodes_by_kind"`

	// EdgesByLabel maps each edge label to its count.
	EdgesByLabel map[EdgeLabel]int `json:"edges_by_label"`

	// State is the current graph state.
	State string `json:"state"`

	// BuiltAtMilli is when Freeze() was called (0 if not frozen).
	BuiltAtMilli int64 `json:"built_at_milli"`
}

// Stats returns statistics about the graph.
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		NodeCount:    len(g.nodes),
		EdgeCount:    len(g.edges),
		NodesByKind:  make(map[ast.NodeKind]int, len(g.nodesByKind)),
		EdgesByLabel: make(map[EdgeLabel]int),
		State:        g.state.String(),
		BuiltAtMilli: g.BuiltAtMilli,
	}
	for kind, ids := range g.nodesByKind {
		stats.NodesByKind[kind] = len(ids)
	}
	for _, e := range g.edges {
		stats.EdgesByLabel[e.Label]++
	}
	return stats
}

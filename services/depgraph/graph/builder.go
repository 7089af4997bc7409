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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/ast"
	"github.com/sd-74/JavaDependencyGraph/services/depgraph/index"
)

// BuilderOption configures a Builder instance.
type BuilderOption func(*Builder)

// WithGraphOptions forwards graph capacity options to the built graph.
func WithGraphOptions(opts ...GraphOption) BuilderOption {
	return func(b *Builder) {
		b.graphOpts = append(b.graphOpts, opts...)
	}
}

// Builder assembles a dependency graph from per-file fact sheets.
//
// Description:
//
//	Build runs a fixed stage pipeline over the fact sheets:
//
//	 1. Containment: module, type, and method nodes plus ParentOf/ChildOf.
//	 2. Symbol tables: project-wide class and method lookup tables.
//	 3. Hierarchy: BaseClassOf/DerivedClassOf from resolved extends
//	    clauses, then Overrides/OverriddenBy against the nearest
//	    ancestor (superclass chain first, declared interfaces second).
//	 4. Implementation: Implements/ImplementedBy for class-to-interface
//	    declarations.
//	 5. Behavior: Calls/CalledBy and Instantiates/InstantiatedBy from
//	    method-body statements, then Uses/UsedBy for local, parameter,
//	    return, and field types.
//
//	Resolution is best-effort throughout: a simple name or call target
//	that cannot be resolved against the symbol tables is skipped with a
//	debug log, never an error. Only names declared in the analyzed
//	project resolve, so JDK and third-party references drop out
//	naturally.
//
// Determinism:
//
//	Given the same fact sheets, Build produces nodes and edges in the
//	same order. Files are processed sorted by path, symbol tables are
//	iterated in sorted order, and statements are resolved sorted by
//	byte offset.
//
// Thread Safety:
//
//	A Builder is stateless between Build calls; each call builds into a
//	fresh graph. Do not share the resulting Graph until it is frozen,
//	which Build does before returning.
type Builder struct {
	projectRoot string
	graphOpts   []GraphOption
}

// NewBuilder creates a Builder for the given project root.
func NewBuilder(projectRoot string, opts ...BuilderOption) *Builder {
	b := &Builder{projectRoot: projectRoot}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build constructs a frozen dependency graph from fact sheets.
//
// Inputs:
//   - ctx: Context for cancellation, checked between stages.
//   - files: Per-file fact sheets. Nil entries are counted as file
//     errors and skipped. The slice is not mutated.
//
// Outputs:
//   - *BuildResult: The frozen graph plus stats and per-file errors.
//   - error: Non-nil only for cancellation or capacity exhaustion.
func (b *Builder) Build(ctx context.Context, files []*ast.FileFacts) (*BuildResult, error) {
	ctx, span := startBuildSpan(ctx, b.projectRoot, len(files))
	defer span.End()

	start := time.Now()

	result := &BuildResult{
		FileErrors: make([]FileError, 0),
	}

	// Work on a path-sorted copy so insertion order never depends on
	// caller ordering.
	sorted := make([]*ast.FileFacts, 0, len(files))
	for i, f := range files {
		if f == nil {
			result.FileErrors = append(result.FileErrors, FileError{
				FilePath: fmt.Sprintf("files[%d]", i),
				Message:  "nil fact sheet",
			})
			continue
		}
		sorted = append(sorted, f)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FilePath < sorted[j].FilePath })

	g := NewGraph(b.projectRoot, b.graphOpts...)

	if err := b.stageContainment(ctx, g, sorted); err != nil {
		recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
		return nil, err
	}

	table := index.Build(sorted)

	if err := b.stageHierarchy(ctx, g, table); err != nil {
		recordBuildMetrics(ctx, time.Since(start), g.NodeCount(), g.EdgeCount(), false)
		return nil, err
	}
	if err := b.stageImplements(ctx, g, table); err != nil {
		recordBuildMetrics(ctx, time.Since(start), g.NodeCount(), g.EdgeCount(), false)
		return nil, err
	}
	if err := b.stageBehavior(ctx, g, table, sorted); err != nil {
		recordBuildMetrics(ctx, time.Since(start), g.NodeCount(), g.EdgeCount(), false)
		return nil, err
	}
	if err := b.stageTypeUsage(ctx, g, table, sorted); err != nil {
		recordBuildMetrics(ctx, time.Since(start), g.NodeCount(), g.EdgeCount(), false)
		return nil, err
	}

	g.Freeze()

	result.Graph = g
	result.Table = table
	result.Stats = BuildStats{
		FilesProcessed: len(sorted),
		NodesCreated:   g.NodeCount(),
		EdgesCreated:   g.EdgeCount(),
		DurationMilli:  time.Since(start).Milliseconds(),
	}

	setBuildSpanResult(span, g.NodeCount(), g.EdgeCount())
	recordBuildMetrics(ctx, time.Since(start), g.NodeCount(), g.EdgeCount(), true)

	slog.Info("dependency graph built",
		slog.Int("files", len(sorted)),
		slog.Int("nodes", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()),
		slog.Int64("duration_ms", result.Stats.DurationMilli))

	return result, nil
}

// stageContainment emits module, type, and method nodes with their
// ParentOf/ChildOf pairs.
//
// One module node is emitted per package; when several files share a
// package, the first file in sorted order supplies the module metadata.
func (b *Builder) stageContainment(ctx context.Context, g *Graph, files []*ast.FileFacts) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build canceled before containment: %w", err)
	}

	for _, f := range files {
		moduleNodeID := ast.ModuleID(f.Package)
		if !g.HasNode(moduleNodeID) {
			err := g.AddNode(&Node{
				ID:    moduleNodeID,
				Kind:  ast.NodeKindModule,
				Label: "Module: " + f.Package,
				Metadata: NodeMetadata{
					FilePath:  f.FilePath,
					LineRange: [2]int{1, f.LineCount},
				},
			})
			if err != nil {
				return err
			}
		}

		for i := range f.Types {
			t := &f.Types[i]
			isIface := t.IsInterface
			label := "Class: " + t.Name
			if isIface {
				label = "Interface: " + t.Name
			}
			err := g.AddNode(&Node{
				ID:    t.NodeID,
				Kind:  t.Kind(),
				Label: label,
				Metadata: NodeMetadata{
					FilePath:    f.FilePath,
					LineRange:   [2]int{t.Span.StartLine, t.Span.EndLine},
					OwnerFQN:    t.FQN,
					IsInterface: &isIface,
					SourceCode:  t.SourceCode,
				},
			})
			if err != nil {
				return err
			}
			if err := g.AddRelation(moduleNodeID, t.NodeID, LabelParentOf); err != nil {
				return err
			}
		}

		for i := range f.Methods {
			m := &f.Methods[i]
			err := g.AddNode(&Node{
				ID:    m.NodeID,
				Kind:  ast.NodeKindMethod,
				Label: "Method: " + m.Name,
				Metadata: NodeMetadata{
					FilePath:   f.FilePath,
					LineRange:  [2]int{m.Span.StartLine, m.Span.EndLine},
					OwnerFQN:   m.OwnerFQN,
					ReturnType: m.ReturnType,
					Params:     m.Params,
					SourceCode: m.SourceCode,
				},
			})
			if err != nil {
				return err
			}

			ownerID := ast.ClassID(m.OwnerFQN)
			if owner, ok := f.TypeByFQN(m.OwnerFQN); ok {
				ownerID = owner.NodeID
			}
			if err := g.AddRelation(ownerID, m.NodeID, LabelParentOf); err != nil {
				return err
			}
		}
	}
	return nil
}

// stageHierarchy resolves extends clauses into the parent map and
// BaseClassOf/DerivedClassOf pairs, then emits Overrides/OverriddenBy
// against the nearest matching ancestor declaration.
//
// A subclass gets at most one parent: the first resolvable extends
// entry in declaration order wins. Overrides match on name and arity
// up the superclass chain; the declared interfaces are consulted in
// order only when no superclass declares a match.
func (b *Builder) stageHierarchy(ctx context.Context, g *Graph, table *index.SymbolTable) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build canceled before hierarchy: %w", err)
	}

	for _, fqn := range table.FQNs() {
		info, _ := table.Class(fqn)
		for _, baseSimple := range info.Extends {
			baseFQN, ok := table.Resolve(baseSimple, info.Package)
			if !ok {
				slog.Debug("unresolved superclass",
					slog.String("type", fqn),
					slog.String("extends", baseSimple))
				continue
			}
			baseInfo, ok := table.Class(baseFQN)
			if !ok {
				continue
			}
			table.SetParent(fqn, baseFQN)
			if err := b.relate(g, baseInfo.NodeID, info.NodeID, LabelBaseClassOf); err != nil {
				return err
			}
			break
		}
	}

	for _, sig := range table.Signatures() {
		rec, _ := table.Method(sig)

		target, ok := b.findOverridden(table, rec)
		if !ok {
			continue
		}
		if err := b.relate(g, rec.NodeID, target.NodeID, LabelOverrides); err != nil {
			return err
		}
	}
	return nil
}

// findOverridden locates the nearest ancestor declaration that rec
// overrides: the superclass chain nearest-first, then the declared
// interfaces in order when no superclass matches.
func (b *Builder) findOverridden(table *index.SymbolTable, rec *index.MethodRecord) (*index.MethodRecord, bool) {
	for _, anc := range table.Ancestors(rec.OwnerFQN) {
		if cand, ok := table.LookupExact(anc, rec.Name, rec.Arity); ok {
			return cand, true
		}
	}

	ownerInfo, ok := table.Class(rec.OwnerFQN)
	if !ok || ownerInfo.IsInterface {
		return nil, false
	}
	for _, ifaceSimple := range ownerInfo.Implements {
		ifaceFQN, ok := table.Resolve(ifaceSimple, ownerInfo.Package)
		if !ok {
			continue
		}
		if cand, ok := table.LookupExact(ifaceFQN, rec.Name, rec.Arity); ok {
			return cand, true
		}
	}
	return nil, false
}

// stageImplements emits Implements/ImplementedBy pairs for every class
// whose implements clause resolves to a declared interface.
func (b *Builder) stageImplements(ctx context.Context, g *Graph, table *index.SymbolTable) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build canceled before implements: %w", err)
	}

	for _, fqn := range table.FQNs() {
		info, _ := table.Class(fqn)
		if info.IsInterface {
			continue
		}
		for _, ifaceSimple := range info.Implements {
			ifaceFQN, ok := table.Resolve(ifaceSimple, info.Package)
			if !ok {
				slog.Debug("unresolved interface",
					slog.String("type", fqn),
					slog.String("implements", ifaceSimple))
				continue
			}
			ifaceInfo, ok := table.Class(ifaceFQN)
			if !ok {
				continue
			}
			if err := b.relate(g, info.NodeID, ifaceInfo.NodeID, LabelImplements); err != nil {
				return err
			}
		}
	}
	return nil
}

// stageBehavior resolves method-body statements into Calls/CalledBy and
// Instantiates/InstantiatedBy pairs.
//
// Statements are grouped per enclosing method and processed in two
// passes over the byte-offset-sorted list: the first pass populates a
// local-variable type environment (seeded with this and super), the
// second resolves object creations and invocations against it.
func (b *Builder) stageBehavior(ctx context.Context, g *Graph, table *index.SymbolTable, files []*ast.FileFacts) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build canceled before behavior: %w", err)
	}

	for _, f := range files {
		// Group statements by owning method, keeping first-appearance
		// order of owners within the file.
		perOwner := make(map[string][]ast.StatementFact)
		ownerOrder := make([]string, 0)
		for _, s := range f.Statements {
			if _, seen := perOwner[s.OwnerMethodID]; !seen {
				ownerOrder = append(ownerOrder, s.OwnerMethodID)
			}
			perOwner[s.OwnerMethodID] = append(perOwner[s.OwnerMethodID], s)
		}

		for _, ownerID := range ownerOrder {
			stmts := perOwner[ownerID]
			sort.SliceStable(stmts, func(i, j int) bool { return stmts[i].Offset < stmts[j].Offset })

			ownerFQN := stmts[0].OwnerFQN
			env := map[string]string{"this": ownerFQN}
			if parent, ok := table.Parent(ownerFQN); ok {
				env["super"] = parent
			}

			// Pass 1: local-variable types.
			for _, s := range stmts {
				if s.Kind != ast.StatementLocal {
					continue
				}
				if fqn, ok := table.Resolve(stripArray(s.TypeName), f.Package); ok {
					env[s.Name] = fqn
				}
			}

			// Pass 2: news and calls.
			for _, s := range stmts {
				switch s.Kind {
				case ast.StatementNew:
					fqn, ok := table.Resolve(stripArray(s.TypeName), f.Package)
					if !ok {
						continue
					}
					info, ok := table.Class(fqn)
					if !ok {
						continue
					}
					if err := b.relate(g, ownerID, info.NodeID, LabelInstantiates); err != nil {
						return err
					}

				case ast.StatementCall:
					recvFQN, ok := b.resolveReceiver(table, s, ownerFQN, env, f.Package)
					if !ok {
						slog.Debug("unresolved call receiver",
							slog.String("method", ownerID),
							slog.String("recv", s.Receiver),
							slog.String("call", s.Method))
						continue
					}
					target, ok := table.LookupMethod(recvFQN, s.Method, s.ArgCount)
					if !ok {
						continue
					}
					if err := b.relate(g, ownerID, target.NodeID, LabelCalls); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// resolveReceiver maps an invocation receiver to a declared type FQN.
//
// Resolution order: implicit/this receivers bind to the enclosing type,
// super binds to its recorded parent, then known locals, then a
// simple-name resolution for static-style calls.
func (b *Builder) resolveReceiver(table *index.SymbolTable, s ast.StatementFact, ownerFQN string, env map[string]string, pkg string) (string, bool) {
	switch {
	case s.Receiver == "" || s.Receiver == "this":
		return ownerFQN, true
	case s.Receiver == "super":
		parent, ok := table.Parent(ownerFQN)
		return parent, ok
	}
	if fqn, ok := env[s.Receiver]; ok {
		return fqn, true
	}
	return table.Resolve(s.Receiver, pkg)
}

// stageTypeUsage emits Uses/UsedBy pairs from local-variable, method
// parameter, method return, and field types.
//
// Only types declared in the analyzed project resolve; primitives, JDK
// types, and external library types are skipped. Array markers are
// stripped before resolution, so Plugin[] depends on Plugin.
func (b *Builder) stageTypeUsage(ctx context.Context, g *Graph, table *index.SymbolTable, files []*ast.FileFacts) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("build canceled before type usage: %w", err)
	}

	for _, f := range files {
		for _, s := range f.Statements {
			if s.Kind != ast.StatementLocal {
				continue
			}
			if err := b.relateTypeUse(g, table, s.OwnerMethodID, s.TypeName, f.Package); err != nil {
				return err
			}
		}

		for i := range f.Methods {
			m := &f.Methods[i]
			for _, ptype := range m.Params {
				if err := b.relateTypeUse(g, table, m.NodeID, ptype, f.Package); err != nil {
					return err
				}
			}
			if m.ReturnType != "" {
				if err := b.relateTypeUse(g, table, m.NodeID, m.ReturnType, f.Package); err != nil {
					return err
				}
			}
		}

		for i := range f.Fields {
			fd := &f.Fields[i]
			ownerInfo, ok := table.Class(fd.OwnerFQN)
			if !ok {
				continue
			}
			if err := b.relateTypeUse(g, table, ownerInfo.NodeID, fd.TypeName, f.Package); err != nil {
				return err
			}
		}
	}
	return nil
}

// relateTypeUse resolves one type reference and records a Uses pair
// from srcID to the resolved type node. Unresolvable names are skipped.
func (b *Builder) relateTypeUse(g *Graph, table *index.SymbolTable, srcID, typeName, pkg string) error {
	if typeName == "" {
		return nil
	}
	fqn, ok := table.Resolve(stripArray(typeName), pkg)
	if !ok {
		return nil
	}
	info, ok := table.Class(fqn)
	if !ok {
		return nil
	}
	return b.relate(g, srcID, info.NodeID, LabelUses)
}

// relate records one relation pair, downgrading missing-endpoint
// failures to a debug log. Capacity and frozen-state errors still
// propagate.
func (b *Builder) relate(g *Graph, src, dst string, label EdgeLabel) error {
	err := g.AddRelation(src, dst, label)
	if err == nil {
		return nil
	}
	if isSkippable(err) {
		slog.Debug("skipping unresolvable edge",
			slog.String("src", src),
			slog.String("dst", dst),
			slog.String("label", string(label)),
			slog.String("reason", err.Error()))
		return nil
	}
	return err
}

// isSkippable reports whether an AddRelation failure is a resolution
// gap rather than a structural problem with the graph.
func isSkippable(err error) bool {
	return errors.Is(err, ErrNodeNotFound)
}

// stripArray removes array markers from a type name.
func stripArray(typeName string) string {
	return strings.TrimSpace(strings.ReplaceAll(typeName, "[]", ""))
}

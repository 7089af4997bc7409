// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index builds the project-wide symbol tables used to resolve
// simple names and method calls during graph construction.
//
// The tables are derived from the fact sheets of every scanned file:
// a class table keyed by fully-qualified name, two method tables (one
// keyed by full signature, one by owner/name/arity for call-site
// lookup), and a single-inheritance parent map populated during the
// hierarchy stage of the build.
//
// All resolution is best-effort: a lookup that fails returns ok=false
// and the caller skips the edge. Resolution is deterministic: ambiguous
// simple names resolve to the first candidate in sorted FQN order.
package index

import (
	"sort"
	"strings"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/ast"
)

// ClassInfo is the class-table record for one declared type.
type ClassInfo struct {
	// FQN is the fully-qualified type name.
	FQN string `json:"fqn"`

	// Name is the simple type name.
	Name string `json:"name"`

	// Package is the declaring package, or ast.DefaultPackage.
	Package string `json:"package"`

	// IsInterface is true for interface declarations.
	IsInterface bool `json:"is_interface"`

	// NodeID is the graph node id ("class:..."/"interface:...").
	NodeID string `json:"node_id"`

	// Extends holds unresolved superclass simple names as declared.
	Extends []string `json:"extends,omitempty"`

	// Implements holds unresolved interface simple names as declared.
	Implements []string `json:"implements,omitempty"`

	// FilePath is the file the type was declared in.
	FilePath string `json:"file_path"`
}

// MethodRecord is the method-table record for one declared method.
type MethodRecord struct {
	// OwnerFQN is the fully-qualified name of the declaring type.
	OwnerFQN string `json:"owner_fqn"`

	// Name is the method name.
	Name string `json:"name"`

	// Arity is the declared parameter count.
	Arity int `json:"arity"`

	// Signature is the full-signature key "<owner>#<name>(<params>)".
	Signature string `json:"signature"`

	// NodeID is the graph node id ("method:...").
	NodeID string `json:"node_id"`
}

// arityKey indexes methods by declaring type, name, and parameter count.
type arityKey struct {
	owner string
	name  string
	arity int
}

// SymbolTable holds the project-wide lookup tables for one build.
//
// A SymbolTable is constructed once per build via Build, then read from
// any number of builder stages. The parent map is the only mutable part
// and is populated by the hierarchy stage through SetParent before any
// stage reads it.
//
// Thread Safety:
//
//	SymbolTable is not safe for concurrent mutation. The builder
//	populates and reads it from a single goroutine.
type SymbolTable struct {
	classes        map[string]*ClassInfo
	sortedFQNs     []string
	methodsBySig   map[string]*MethodRecord
	methodsByArity map[arityKey]*MethodRecord
	sortedSigs     []string
	parents        map[string]string
}

// Build constructs the symbol tables from per-file fact sheets.
//
// Later declarations win on fully-qualified name collisions, matching
// the file order given (callers pass files sorted by path, so the
// outcome is deterministic).
func Build(files []*ast.FileFacts) *SymbolTable {
	t := &SymbolTable{
		classes:        make(map[string]*ClassInfo),
		methodsBySig:   make(map[string]*MethodRecord),
		methodsByArity: make(map[arityKey]*MethodRecord),
		parents:        make(map[string]string),
	}

	for _, f := range files {
		if f == nil {
			continue
		}
		for i := range f.Types {
			tf := &f.Types[i]
			t.classes[tf.FQN] = &ClassInfo{
				FQN:         tf.FQN,
				Name:        tf.Name,
				Package:     f.Package,
				IsInterface: tf.IsInterface,
				NodeID:      tf.NodeID,
				Extends:     tf.Extends,
				Implements:  tf.Implements,
				FilePath:    f.FilePath,
			}
		}
		for i := range f.Methods {
			mf := &f.Methods[i]
			rec := &MethodRecord{
				OwnerFQN:  mf.OwnerFQN,
				Name:      mf.Name,
				Arity:     mf.Arity(),
				Signature: mf.Signature,
				NodeID:    mf.NodeID,
			}
			t.methodsBySig[mf.Signature] = rec
			t.methodsByArity[arityKey{owner: mf.OwnerFQN, name: mf.Name, arity: mf.Arity()}] = rec
		}
	}

	t.sortedFQNs = make([]string, 0, len(t.classes))
	for fqn := range t.classes {
		t.sortedFQNs = append(t.sortedFQNs, fqn)
	}
	sort.Strings(t.sortedFQNs)

	t.sortedSigs = make([]string, 0, len(t.methodsBySig))
	for sig := range t.methodsBySig {
		t.sortedSigs = append(t.sortedSigs, sig)
	}
	sort.Strings(t.sortedSigs)

	return t
}

// Class returns the class-table record for a fully-qualified name.
func (t *SymbolTable) Class(fqn string) (*ClassInfo, bool) {
	info, ok := t.classes[fqn]
	return info, ok
}

// FQNs returns all declared fully-qualified type names in sorted order.
//
// The returned slice is shared; callers must not mutate it.
func (t *SymbolTable) FQNs() []string {
	return t.sortedFQNs
}

// ClassCount returns the number of declared types.
func (t *SymbolTable) ClassCount() int {
	return len(t.classes)
}

// MethodCount returns the number of declared methods.
func (t *SymbolTable) MethodCount() int {
	return len(t.methodsBySig)
}

// Signatures returns all full method signatures in sorted order.
//
// The returned slice is shared; callers must not mutate it.
func (t *SymbolTable) Signatures() []string {
	return t.sortedSigs
}

// Method returns the method record for a full signature.
func (t *SymbolTable) Method(sig string) (*MethodRecord, bool) {
	rec, ok := t.methodsBySig[sig]
	return rec, ok
}

// SetParent records fqn's resolved superclass. Single inheritance: a
// child with an existing parent entry keeps the first one.
func (t *SymbolTable) SetParent(fqn, parentFQN string) {
	if _, exists := t.parents[fqn]; exists {
		return
	}
	t.parents[fqn] = parentFQN
}

// Parent returns the resolved superclass of fqn, if recorded.
func (t *SymbolTable) Parent(fqn string) (string, bool) {
	p, ok := t.parents[fqn]
	return p, ok
}

// Ancestors returns the superclass chain of fqn, nearest first.
//
// The walk carries a visited set so that malformed input with an
// inheritance cycle terminates instead of looping.
func (t *SymbolTable) Ancestors(fqn string) []string {
	var chain []string
	visited := map[string]bool{fqn: true}
	cur := fqn
	for {
		parent, ok := t.parents[cur]
		if !ok || visited[parent] {
			return chain
		}
		visited[parent] = true
		chain = append(chain, parent)
		cur = parent
	}
}

// Resolve maps a simple type name to a declared fully-qualified name.
//
// Resolution order:
//  1. Same-package candidate "<pkg>.<simple>" (the simple name itself
//     for the unnamed package, or when it already carries the package
//     prefix).
//  2. Any declared FQN equal to the simple name, or ending in
//     ".<simple>", scanning candidates in sorted FQN order so that
//     ambiguous names resolve deterministically.
//
// Returns ok=false when nothing matches; callers skip the edge.
func (t *SymbolTable) Resolve(simple, pkg string) (string, bool) {
	if simple == "" {
		return "", false
	}

	candidate := simple
	if pkg != "" && pkg != ast.DefaultPackage && !strings.HasPrefix(simple, pkg) {
		candidate = pkg + "." + simple
	}
	if _, ok := t.classes[candidate]; ok {
		return candidate, true
	}

	suffix := "." + simple
	for _, fqn := range t.sortedFQNs {
		if fqn == simple || strings.HasSuffix(fqn, suffix) {
			return fqn, true
		}
	}
	return "", false
}

// LookupExact returns the method declared directly on owner with the
// given name and arity.
func (t *SymbolTable) LookupExact(owner, name string, arity int) (*MethodRecord, bool) {
	rec, ok := t.methodsByArity[arityKey{owner: owner, name: name, arity: arity}]
	return rec, ok
}

// LookupMethod resolves a call target on owner, walking up the
// superclass chain to find an inherited declaration when owner itself
// does not declare a matching method.
func (t *SymbolTable) LookupMethod(owner, name string, arity int) (*MethodRecord, bool) {
	if rec, ok := t.LookupExact(owner, name, arity); ok {
		return rec, true
	}
	for _, anc := range t.Ancestors(owner) {
		if rec, ok := t.LookupExact(anc, name, arity); ok {
			return rec, true
		}
	}
	return nil, false
}

// Dump returns a serializable view of the tables for diagnostics.
func (t *SymbolTable) Dump() *TableDump {
	d := &TableDump{
		Classes: make([]*ClassInfo, 0, len(t.classes)),
		Methods: make([]*MethodRecord, 0, len(t.methodsBySig)),
		Parents: make(map[string]string, len(t.parents)),
	}
	for _, fqn := range t.sortedFQNs {
		d.Classes = append(d.Classes, t.classes[fqn])
	}
	for _, sig := range t.sortedSigs {
		d.Methods = append(d.Methods, t.methodsBySig[sig])
	}
	for k, v := range t.parents {
		d.Parents[k] = v
	}
	return d
}

// TableDump is the JSON-serializable form of the symbol tables.
type TableDump struct {
	Classes []*ClassInfo      `json:"classes"`
	Methods []*MethodRecord   `json:"methods"`
	Parents map[string]string `json:"parents"`
}

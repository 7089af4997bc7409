// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts structural facts from Java source files.
//
// This package defines the fact-sheet types produced by parsing a single
// Java file with tree-sitter: the declared package, type declarations,
// methods, fields, and the statement facts found inside method bodies.
// Facts are purely syntactic: "extends" and "implements" entries are the
// raw simple names written in the source, resolved later against the
// project-wide symbol table.
//
// Design principles:
//   - Best-effort extraction: anything that cannot be interpreted is
//     captured as raw text or skipped, never a fatal error
//   - Facts are immutable once returned from Parse
//   - No map[string]interface{} - concrete types only
package ast

import (
	"fmt"
	"strings"
)

// DefaultPackage is the sentinel package name used for files that carry
// no package declaration (Java's unnamed package).
const DefaultPackage = "<default>"

// NodeKind identifies the kind of graph node an identifier refers to.
//
// The kind is carried as a first-class field on graph nodes so that
// downstream consumers never have to parse it back out of the node id
// string.
type NodeKind string

const (
	// NodeKindModule represents a Java package.
	NodeKindModule NodeKind = "module"

	// NodeKindClass represents a class declaration.
	NodeKindClass NodeKind = "class"

	// NodeKindInterface represents an interface declaration.
	NodeKindInterface NodeKind = "interface"

	// NodeKindMethod represents a method or constructor declaration.
	NodeKindMethod NodeKind = "method"

	// NodeKindField represents a field declaration.
	NodeKindField NodeKind = "field"
)

// ModuleID returns the canonical node id for a package.
//
// Format: "module:<package>"
func ModuleID(pkg string) string {
	return "module:" + pkg
}

// ClassID returns the canonical node id for a class.
//
// Format: "class:<fqn>"
func ClassID(fqn string) string {
	return "class:" + fqn
}

// InterfaceID returns the canonical node id for an interface.
//
// Format: "interface:<fqn>"
func InterfaceID(fqn string) string {
	return "interface:" + fqn
}

// TypeID returns ClassID or InterfaceID depending on isInterface.
func TypeID(fqn string, isInterface bool) string {
	if isInterface {
		return InterfaceID(fqn)
	}
	return ClassID(fqn)
}

// MethodID returns the canonical node id for a method.
//
// Format: "method:<owner fqn>#<name>(<comma-joined simple param types>)"
// Example: "method:com.example.UserService#createUser(String,String)"
func MethodID(ownerFQN, name string, params []string) string {
	return "method:" + MethodSignature(ownerFQN, name, params)
}

// MethodSignature returns the full-signature key for a method.
//
// Format: "<owner fqn>#<name>(<comma-joined simple param types>)"
func MethodSignature(ownerFQN, name string, params []string) string {
	return fmt.Sprintf("%s#%s(%s)", ownerFQN, name, strings.Join(params, ","))
}

// Span records where a fact appears in its source file.
//
// Byte offsets are 0-indexed and half-open; line numbers are 1-indexed
// and inclusive, matching the convention used by most editors.
type Span struct {
	// StartByte is the byte offset where the fact starts.
	StartByte int `json:"start_byte"`

	// EndByte is the byte offset just past the end of the fact.
	EndByte int `json:"end_byte"`

	// StartLine is the 1-indexed line where the fact starts.
	StartLine int `json:"start_line"`

	// EndLine is the 1-indexed line where the fact ends.
	EndLine int `json:"end_line"`
}

// TypeFact describes a class or interface declaration.
type TypeFact struct {
	// Name is the simple type name as written in source.
	Name string `json:"name"`

	// FQN is the fully-qualified name: "<package>.<name>", or just the
	// simple name for the unnamed package.
	FQN string `json:"fqn"`

	// IsInterface is true for interface declarations.
	IsInterface bool `json:"is_interface"`

	// Extends holds declared superclass simple names, unresolved.
	// Java classes have at most one entry.
	Extends []string `json:"extends,omitempty"`

	// Implements holds declared interface simple names, unresolved.
	Implements []string `json:"implements,omitempty"`

	// NodeID is the canonical graph node id ("class:..."/"interface:...").
	NodeID string `json:"node_id"`

	// SourceCode is the source slice covering the declaration.
	SourceCode string `json:"-"`

	// Span is the location of the declaration.
	Span Span `json:"span"`
}

// Kind returns the node kind for this type.
func (t *TypeFact) Kind() NodeKind {
	if t.IsInterface {
		return NodeKindInterface
	}
	return NodeKindClass
}

// MethodFact describes a method or constructor declaration.
type MethodFact struct {
	// OwnerFQN is the fully-qualified name of the declaring type.
	OwnerFQN string `json:"owner_fqn"`

	// Name is the method name.
	Name string `json:"name"`

	// Params holds the declared parameter types as raw simple-name text,
	// in declaration order.
	Params []string `json:"params"`

	// ReturnType is the declared return type, or empty for constructors.
	ReturnType string `json:"return_type,omitempty"`

	// Signature is the full-signature key "<owner>#<name>(<params>)".
	Signature string `json:"signature"`

	// NodeID is the canonical graph node id ("method:...").
	NodeID string `json:"node_id"`

	// SourceCode is the source slice covering the declaration.
	SourceCode string `json:"-"`

	// Span is the location of the declaration.
	Span Span `json:"span"`
}

// Arity returns the parameter count, the key used for method lookup.
func (m *MethodFact) Arity() int {
	return len(m.Params)
}

// FieldFact describes a single field declarator.
//
// One field_declaration with multiple declarators produces one FieldFact
// per declared name, all sharing the declared type.
type FieldFact struct {
	// OwnerFQN is the fully-qualified name of the declaring type.
	OwnerFQN string `json:"owner_fqn"`

	// Name is the field name.
	Name string `json:"name"`

	// TypeName is the declared type as raw simple-name text.
	TypeName string `json:"type"`
}

// StatementKind identifies the kind of statement fact extracted from a
// method body.
type StatementKind string

const (
	// StatementLocal is a local-variable declaration.
	StatementLocal StatementKind = "local"

	// StatementNew is an object-creation expression.
	StatementNew StatementKind = "new"

	// StatementCall is a method invocation.
	StatementCall StatementKind = "call"
)

// StatementFact is one interesting statement found in a method body.
//
// Only the fields relevant to the statement's kind are populated:
//
//	StatementLocal: Name, TypeName
//	StatementNew:   TypeName
//	StatementCall:  Receiver, Method, ArgCount
//
// Offset orders statements deterministically within a method body and
// is what the builder sorts on before its two resolution passes.
type StatementFact struct {
	// Kind is the statement kind.
	Kind StatementKind `json:"kind"`

	// OwnerMethodID is the node id of the enclosing method.
	OwnerMethodID string `json:"owner_method"`

	// OwnerFQN is the fully-qualified name of the enclosing method's
	// declaring type. Kept alongside OwnerMethodID so consumers never
	// need to parse the id string.
	OwnerFQN string `json:"owner_fqn"`

	// Offset is the byte offset of the statement in the source file.
	Offset int `json:"offset"`

	// Name is the declared variable name (StatementLocal only).
	Name string `json:"name,omitempty"`

	// TypeName is the declared or constructed type as raw text
	// (StatementLocal and StatementNew).
	TypeName string `json:"type,omitempty"`

	// Receiver is the raw receiver text of an invocation, empty for
	// implicit-this calls (StatementCall only).
	Receiver string `json:"recv,omitempty"`

	// Method is the invoked method name (StatementCall only).
	Method string `json:"method,omitempty"`

	// ArgCount is the invocation argument count (StatementCall only).
	ArgCount int `json:"arg_count,omitempty"`
}

// FileFacts is the structural fact sheet extracted from one source file.
type FileFacts struct {
	// FilePath is the path to the parsed file, relative to project root.
	FilePath string `json:"file_path"`

	// Package is the declared package, or DefaultPackage.
	Package string `json:"package"`

	// Types holds the top-level class and interface declarations in
	// source order.
	Types []TypeFact `json:"types"`

	// Methods holds all method declarations in source order.
	Methods []MethodFact `json:"methods"`

	// Fields holds all field declarators in source order.
	Fields []FieldFact `json:"fields"`

	// Statements holds the statement facts from all method bodies.
	Statements []StatementFact `json:"statements"`

	// LineCount is the number of lines in the file.
	LineCount int `json:"line_count"`

	// Hash is the SHA256 hash of the file content at parse time.
	Hash string `json:"hash"`

	// Errors contains non-fatal extraction notes (e.g. syntax errors in
	// the tree). Extraction still produces partial facts.
	Errors []string `json:"errors,omitempty"`
}

// TypeByFQN returns the type declared in this file with the given fqn.
func (f *FileFacts) TypeByFQN(fqn string) (*TypeFact, bool) {
	for i := range f.Types {
		if f.Types[i].FQN == fqn {
			return &f.Types[i], true
		}
	}
	return nil, false
}

// ValidationError represents a validation failure with field context.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks that the fact sheet has sane field values.
//
// Returns nil if valid, or a ValidationError describing the first
// invalid field.
func (f *FileFacts) Validate() error {
	if f.FilePath == "" {
		return ValidationError{Field: "FilePath", Message: "must not be empty"}
	}
	if strings.Contains(f.FilePath, "..") {
		return ValidationError{Field: "FilePath", Message: "must not contain path traversal (..)"}
	}
	if f.Package == "" {
		return ValidationError{Field: "Package", Message: "must not be empty"}
	}
	for i := range f.Types {
		t := &f.Types[i]
		if t.Name == "" {
			return ValidationError{Field: fmt.Sprintf("Types[%d].Name", i), Message: "must not be empty"}
		}
		if t.FQN == "" {
			return ValidationError{Field: fmt.Sprintf("Types[%d].FQN", i), Message: "must not be empty"}
		}
	}
	for i := range f.Methods {
		m := &f.Methods[i]
		if m.OwnerFQN == "" {
			return ValidationError{Field: fmt.Sprintf("Methods[%d].OwnerFQN", i), Message: "must not be empty"}
		}
		if m.Name == "" {
			return ValidationError{Field: fmt.Sprintf("Methods[%d].Name", i), Message: "must not be empty"}
		}
	}
	return nil
}

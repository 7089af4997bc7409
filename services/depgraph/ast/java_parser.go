// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// JavaParserOption configures a JavaParser instance.
type JavaParserOption func(*JavaParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Must be positive.
//
// Example:
//
//	parser := NewJavaParser(WithMaxFileSize(5 * 1024 * 1024)) // 5MB limit
func WithMaxFileSize(bytes int64) JavaParserOption {
	return func(p *JavaParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// JavaParser extracts structural facts from Java source code.
//
// Description:
//
//	JavaParser uses tree-sitter to parse Java source files and extract the
//	fact sheet the graph builder consumes: package, top-level types, method
//	and field declarations, and the local/new/call statements inside method
//	bodies. Each Parse call creates its own tree-sitter parser instance
//	internally.
//
// Thread Safety:
//
//	JavaParser instances are safe for concurrent use. Multiple goroutines
//	may call Parse simultaneously on the same JavaParser instance.
//
// Example:
//
//	parser := NewJavaParser()
//	facts, err := parser.Parse(ctx, src, "p/Child.java")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range facts.Types {
//	    fmt.Printf("%s: %s\n", t.Kind(), t.FQN)
//	}
type JavaParser struct {
	maxFileSize int64
}

// NewJavaParser creates a new JavaParser with the given options.
//
// Inputs:
//   - opts: Optional configuration functions (WithMaxFileSize)
//
// Outputs:
//   - *JavaParser: Configured parser instance, never nil
//
// Thread Safety:
//
//	The returned JavaParser is safe for concurrent use.
func NewJavaParser(opts ...JavaParserOption) *JavaParser {
	p := &JavaParser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Parse extracts structural facts from Java source code.
//
// Description:
//
//	Parse uses tree-sitter to parse the provided Java source and extract the
//	declared package, top-level class and interface declarations, their
//	methods and fields, and the statement facts inside method bodies.
//	The parser is error-tolerant and returns partial facts for syntactically
//	invalid code, with a note appended to FileFacts.Errors.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//     Note: Tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw Java source bytes. Must be valid UTF-8.
//   - filePath: Path to the file, relative to project root, forward slashes.
//
// Outputs:
//   - *FileFacts: Extracted facts. Never nil on success. May contain
//     partial results with errors for syntactically invalid code.
//   - error: Non-nil for complete failures:
//   - ErrFileTooLarge: Content exceeds maxFileSize
//   - ErrInvalidContent: Content is not valid UTF-8
//   - Context errors: Context was canceled or timed out
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *JavaParser) Parse(ctx context.Context, content []byte, filePath string) (*FileFacts, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if content == nil {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, ErrNilContent
	}

	if int64(len(content)) > p.maxFileSize {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// Compute hash before parsing (captures input)
	hash := sha256.Sum256(content)

	// New tree-sitter parser per call for thread safety
	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	facts := &FileFacts{
		FilePath:   filePath,
		Package:    DefaultPackage,
		Types:      make([]TypeFact, 0),
		Methods:    make([]MethodFact, 0),
		Fields:     make([]FieldFact, 0),
		Statements: make([]StatementFact, 0),
		LineCount:  bytes.Count(content, []byte("\n")) + 1,
		Hash:       hex.EncodeToString(hash[:]),
	}

	root := tree.RootNode()
	if root == nil {
		facts.Errors = append(facts.Errors, "tree-sitter returned nil root node")
		return facts, nil
	}

	if root.HasError() {
		facts.Errors = append(facts.Errors, "source contains syntax errors")
	}

	// Package declaration first: type FQNs depend on it.
	p.extractPackage(root, content, facts)

	// Top-level class and interface declarations.
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "class_declaration", "interface_declaration":
			p.extractType(child, content, facts)
		}
	}

	if err := facts.Validate(); err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("fact validation failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), len(facts.Types), false)
		return nil, fmt.Errorf("parse canceled after extraction: %w", err)
	}

	setParseSpanResult(span, len(facts.Types), len(facts.Statements), len(facts.Errors))
	recordParseMetrics(ctx, time.Since(start), len(facts.Types), true)

	return facts, nil
}

// Language returns the canonical language name for this parser.
func (p *JavaParser) Language() string {
	return "java"
}

// Extensions returns the file extensions this parser handles.
func (p *JavaParser) Extensions() []string {
	return []string{".java"}
}

// extractPackage finds the package declaration and records it on facts.
//
// Files with no package declaration keep the DefaultPackage sentinel.
func (p *JavaParser) extractPackage(root *sitter.Node, content []byte, facts *FileFacts) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil || child.Type() != "package_declaration" {
			continue
		}
		if name := child.ChildByFieldName("name"); name != nil {
			facts.Package = strings.TrimSpace(sliceText(content, name))
			return
		}
		// When the name field is absent the package name appears as a
		// scoped_identifier child, or a plain identifier for a
		// single-segment package.
		for j := 0; j < int(child.ChildCount()); j++ {
			gc := child.Child(j)
			if gc == nil {
				continue
			}
			if t := gc.Type(); t == "scoped_identifier" || t == "identifier" {
				facts.Package = strings.TrimSpace(sliceText(content, gc))
				return
			}
		}
	}
}

// extractType extracts one top-level class or interface declaration,
// including its member methods, fields, and body statements.
func (p *JavaParser) extractType(node *sitter.Node, content []byte, facts *FileFacts) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := sliceText(content, nameNode)
	isInterface := node.Type() == "interface_declaration"

	fqn := name
	if facts.Package != DefaultPackage {
		fqn = facts.Package + "." + name
	}

	var extends []string
	if sc := node.ChildByFieldName("superclass"); sc != nil {
		// The superclass field text includes the "extends" keyword.
		base := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(sliceText(content, sc)), "extends"))
		if base != "" {
			extends = append(extends, base)
		}
	}

	var implements []string
	if !isInterface {
		if impls := node.ChildByFieldName("interfaces"); impls != nil {
			implements = extractTypeList(impls, content)
		}
	}

	facts.Types = append(facts.Types, TypeFact{
		Name:        name,
		FQN:         fqn,
		IsInterface: isInterface,
		Extends:     extends,
		Implements:  implements,
		NodeID:      TypeID(fqn, isInterface),
		SourceCode:  sliceText(content, node),
		Span:        spanOf(node),
	})

	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		member := body.Child(i)
		if member == nil {
			continue
		}
		switch member.Type() {
		case "method_declaration":
			p.extractMethod(member, content, fqn, false, facts)
		case "constructor_declaration":
			p.extractMethod(member, content, fqn, true, facts)
		case "field_declaration":
			p.extractFields(member, content, fqn, facts)
		}
	}
}

// extractMethod extracts one method or constructor declaration and the
// statement facts inside its body.
func (p *JavaParser) extractMethod(node *sitter.Node, content []byte, ownerFQN string, isCtor bool, facts *FileFacts) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := sliceText(content, nameNode)

	var params []string
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		for i := 0; i < int(paramsNode.ChildCount()); i++ {
			param := paramsNode.Child(i)
			if param == nil || param.Type() != "formal_parameter" {
				continue
			}
			if t := param.ChildByFieldName("type"); t != nil {
				params = append(params, strings.TrimSpace(sliceText(content, t)))
			}
		}
	}

	returnType := ""
	if !isCtor {
		if t := node.ChildByFieldName("type"); t != nil {
			returnType = strings.TrimSpace(sliceText(content, t))
		}
	}

	methodID := MethodID(ownerFQN, name, params)
	facts.Methods = append(facts.Methods, MethodFact{
		OwnerFQN:   ownerFQN,
		Name:       name,
		Params:     params,
		ReturnType: returnType,
		Signature:  MethodSignature(ownerFQN, name, params),
		NodeID:     methodID,
		SourceCode: sliceText(content, node),
		Span:       spanOf(node),
	})

	if body := node.ChildByFieldName("body"); body != nil {
		p.collectStatements(body, content, methodID, ownerFQN, facts)
	}
}

// extractFields extracts all declarators of one field_declaration.
func (p *JavaParser) extractFields(node *sitter.Node, content []byte, ownerFQN string, facts *FileFacts) {
	typeName := ""
	if t := node.ChildByFieldName("type"); t != nil {
		typeName = strings.TrimSpace(sliceText(content, t))
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		decl := node.Child(i)
		if decl == nil || decl.Type() != "variable_declarator" {
			continue
		}
		fname := decl.ChildByFieldName("name")
		if fname == nil {
			continue
		}
		facts.Fields = append(facts.Fields, FieldFact{
			OwnerFQN: ownerFQN,
			Name:     sliceText(content, fname),
			TypeName: typeName,
		})
	}
}

// collectStatements walks a method body and records local-variable
// declarations, object creations, and method invocations.
//
// The walk is an explicit stack DFS with a depth bound; discovery order
// is irrelevant because the builder sorts statements by byte offset
// before resolving them.
func (p *JavaParser) collectStatements(body *sitter.Node, content []byte, ownerMethodID, ownerFQN string, facts *FileFacts) {
	type frame struct {
		node  *sitter.Node
		depth int
	}
	stack := []frame{{node: body}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := f.node

		if f.depth < MaxStatementDepth {
			for i := 0; i < int(n.ChildCount()); i++ {
				if c := n.Child(i); c != nil {
					stack = append(stack, frame{node: c, depth: f.depth + 1})
				}
			}
		}

		switch n.Type() {
		case "local_variable_declaration":
			t := n.ChildByFieldName("type")
			if t == nil {
				continue
			}
			typeName := strings.TrimSpace(sliceText(content, t))
			for i := 0; i < int(n.ChildCount()); i++ {
				decl := n.Child(i)
				if decl == nil || decl.Type() != "variable_declarator" {
					continue
				}
				dname := decl.ChildByFieldName("name")
				if dname == nil {
					continue
				}
				facts.Statements = append(facts.Statements, StatementFact{
					Kind:          StatementLocal,
					OwnerMethodID: ownerMethodID,
					OwnerFQN:      ownerFQN,
					Offset:        int(n.StartByte()),
					Name:          sliceText(content, dname),
					TypeName:      typeName,
				})
			}

		case "object_creation_expression":
			t := n.ChildByFieldName("type")
			if t == nil {
				continue
			}
			facts.Statements = append(facts.Statements, StatementFact{
				Kind:          StatementNew,
				OwnerMethodID: ownerMethodID,
				OwnerFQN:      ownerFQN,
				Offset:        int(n.StartByte()),
				TypeName:      strings.TrimSpace(sliceText(content, t)),
			})

		case "method_invocation":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			receiver := ""
			if obj := n.ChildByFieldName("object"); obj != nil {
				if obj.Type() == "object_creation_expression" {
					// A call chained on a creation expression, e.g.
					// new Base().greet(), targets the constructed type.
					if t := obj.ChildByFieldName("type"); t != nil {
						receiver = strings.TrimSpace(sliceText(content, t))
					}
				} else {
					receiver = strings.TrimSpace(sliceText(content, obj))
				}
			}
			argCount := 0
			if args := n.ChildByFieldName("arguments"); args != nil {
				argCount = int(args.NamedChildCount())
			}
			facts.Statements = append(facts.Statements, StatementFact{
				Kind:          StatementCall,
				OwnerMethodID: ownerMethodID,
				OwnerFQN:      ownerFQN,
				Offset:        int(n.StartByte()),
				Receiver:      receiver,
				Method:        sliceText(content, nameNode),
				ArgCount:      argCount,
			})
		}
	}
}

// extractTypeList pulls type_identifier names out of a super_interfaces
// clause. Generic arguments are not descended into.
func extractTypeList(node *sitter.Node, content []byte) []string {
	var names []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "type_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				tn := child.Child(j)
				if tn != nil && tn.Type() == "type_identifier" {
					names = append(names, strings.TrimSpace(sliceText(content, tn)))
				}
			}
		case "type_identifier":
			names = append(names, strings.TrimSpace(sliceText(content, child)))
		}
	}
	return names
}

// sliceText returns the source text covered by a node.
func sliceText(content []byte, node *sitter.Node) string {
	return string(content[node.StartByte():node.EndByte()])
}

// spanOf returns the byte and line span of a node.
func spanOf(node *sitter.Node) Span {
	return Span{
		StartByte: int(node.StartByte()),
		EndByte:   int(node.EndByte()),
		StartLine: int(node.StartPoint().Row + 1),
		EndLine:   int(node.EndPoint().Row + 1),
	}
}

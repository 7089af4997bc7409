// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"testing"

	"github.com/sd-74/JavaDependencyGraph/services/depgraph/ast"
)

func factsFile(path, pkg string, types []ast.TypeFact, methods []ast.MethodFact) *ast.FileFacts {
	return &ast.FileFacts{
		FilePath: path,
		Package:  pkg,
		Types:    types,
		Methods:  methods,
	}
}

func typeFact(pkg, name string, isInterface bool) ast.TypeFact {
	fqn := name
	if pkg != ast.DefaultPackage {
		fqn = pkg + "." + name
	}
	return ast.TypeFact{
		Name:        name,
		FQN:         fqn,
		IsInterface: isInterface,
		NodeID:      ast.TypeID(fqn, isInterface),
	}
}

func methodFact(ownerFQN, name string, params ...string) ast.MethodFact {
	return ast.MethodFact{
		OwnerFQN:  ownerFQN,
		Name:      name,
		Params:    params,
		Signature: ast.MethodSignature(ownerFQN, name, params),
		NodeID:    ast.MethodID(ownerFQN, name, params),
	}
}

func testTable(t *testing.T) *SymbolTable {
	t.Helper()
	return Build([]*ast.FileFacts{
		factsFile("a/Base.java", "a",
			[]ast.TypeFact{typeFact("a", "Base", false)},
			[]ast.MethodFact{methodFact("a.Base", "greet"), methodFact("a.Base", "shared", "int")}),
		factsFile("a/Child.java", "a",
			[]ast.TypeFact{typeFact("a", "Child", false)},
			[]ast.MethodFact{methodFact("a.Child", "greet")}),
		factsFile("b/Helper.java", "b",
			[]ast.TypeFact{typeFact("b", "Helper", false)},
			[]ast.MethodFact{methodFact("b.Helper", "assist", "int", "int")}),
		factsFile("b/Greeter.java", "b",
			[]ast.TypeFact{typeFact("b", "Greeter", true)},
			[]ast.MethodFact{methodFact("b.Greeter", "greet")}),
	})
}

func TestBuild_Tables(t *testing.T) {
	table := testTable(t)

	if table.ClassCount() != 4 {
		t.Errorf("expected 4 classes, got %d", table.ClassCount())
	}
	if table.MethodCount() != 5 {
		t.Errorf("expected 5 methods, got %d", table.MethodCount())
	}

	info, ok := table.Class("b.Greeter")
	if !ok {
		t.Fatal("expected b.Greeter in class table")
	}
	if !info.IsInterface || info.NodeID != "interface:b.Greeter" {
		t.Errorf("unexpected record: %+v", info)
	}

	rec, ok := table.Method("b.Helper#assist(int,int)")
	if !ok {
		t.Fatal("expected b.Helper#assist(int,int) in method table")
	}
	if rec.Arity != 2 || rec.NodeID != "method:b.Helper#assist(int,int)" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestBuild_CollisionLastWins(t *testing.T) {
	table := Build([]*ast.FileFacts{
		factsFile("a/Dup.java", "a", []ast.TypeFact{typeFact("a", "Dup", false)}, nil),
		factsFile("z/Dup.java", "a", []ast.TypeFact{typeFact("a", "Dup", true)}, nil),
	})

	info, ok := table.Class("a.Dup")
	if !ok {
		t.Fatal("expected a.Dup in class table")
	}
	if info.FilePath != "z/Dup.java" {
		t.Errorf("expected the later declaration to win, got %q", info.FilePath)
	}
}

func TestSymbolTable_Resolve(t *testing.T) {
	table := testTable(t)

	t.Run("same package first", func(t *testing.T) {
		fqn, ok := table.Resolve("Base", "a")
		if !ok || fqn != "a.Base" {
			t.Errorf("expected a.Base, got %q ok=%v", fqn, ok)
		}
	})

	t.Run("cross package by suffix", func(t *testing.T) {
		fqn, ok := table.Resolve("Helper", "a")
		if !ok || fqn != "b.Helper" {
			t.Errorf("expected b.Helper, got %q ok=%v", fqn, ok)
		}
	})

	t.Run("already qualified", func(t *testing.T) {
		fqn, ok := table.Resolve("a.Base", "a")
		if !ok || fqn != "a.Base" {
			t.Errorf("expected a.Base, got %q ok=%v", fqn, ok)
		}
	})

	t.Run("default package", func(t *testing.T) {
		orphan := Build([]*ast.FileFacts{
			factsFile("Orphan.java", ast.DefaultPackage,
				[]ast.TypeFact{typeFact(ast.DefaultPackage, "Orphan", false)}, nil),
		})
		fqn, ok := orphan.Resolve("Orphan", ast.DefaultPackage)
		if !ok || fqn != "Orphan" {
			t.Errorf("expected bare Orphan, got %q ok=%v", fqn, ok)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		if _, ok := table.Resolve("Missing", "a"); ok {
			t.Error("expected no match for unknown name")
		}
	})

	t.Run("ambiguous name resolves to sorted-first candidate", func(t *testing.T) {
		ambiguous := Build([]*ast.FileFacts{
			factsFile("x/Thing.java", "x", []ast.TypeFact{typeFact("x", "Thing", false)}, nil),
			factsFile("m/Thing.java", "m", []ast.TypeFact{typeFact("m", "Thing", false)}, nil),
		})
		fqn, ok := ambiguous.Resolve("Thing", "q")
		if !ok || fqn != "m.Thing" {
			t.Errorf("expected m.Thing (first in sorted order), got %q ok=%v", fqn, ok)
		}
	})
}

func TestSymbolTable_Parents(t *testing.T) {
	table := testTable(t)

	t.Run("first parent wins", func(t *testing.T) {
		table.SetParent("a.Child", "a.Base")
		table.SetParent("a.Child", "b.Helper")
		parent, ok := table.Parent("a.Child")
		if !ok || parent != "a.Base" {
			t.Errorf("expected first-recorded parent a.Base, got %q ok=%v", parent, ok)
		}
	})

	t.Run("ancestors nearest first", func(t *testing.T) {
		chain := Build(nil)
		chain.SetParent("C", "B")
		chain.SetParent("B", "A")
		got := chain.Ancestors("C")
		if len(got) != 2 || got[0] != "B" || got[1] != "A" {
			t.Errorf("expected [B A], got %v", got)
		}
	})

	t.Run("cycle terminates", func(t *testing.T) {
		cyclic := Build(nil)
		cyclic.SetParent("A", "B")
		cyclic.SetParent("B", "A")
		got := cyclic.Ancestors("A")
		if len(got) != 1 || got[0] != "B" {
			t.Errorf("expected cycle walk to stop at [B], got %v", got)
		}
	})
}

func TestSymbolTable_LookupMethod(t *testing.T) {
	table := testTable(t)
	table.SetParent("a.Child", "a.Base")

	t.Run("direct declaration", func(t *testing.T) {
		rec, ok := table.LookupMethod("a.Child", "greet", 0)
		if !ok || rec.OwnerFQN != "a.Child" {
			t.Errorf("expected a.Child#greet, got %+v ok=%v", rec, ok)
		}
	})

	t.Run("inherited declaration", func(t *testing.T) {
		rec, ok := table.LookupMethod("a.Child", "shared", 1)
		if !ok || rec.OwnerFQN != "a.Base" {
			t.Errorf("expected inherited a.Base#shared, got %+v ok=%v", rec, ok)
		}
	})

	t.Run("arity mismatch", func(t *testing.T) {
		if _, ok := table.LookupMethod("a.Child", "shared", 2); ok {
			t.Error("expected no match for wrong arity")
		}
	})

	t.Run("unknown method", func(t *testing.T) {
		if _, ok := table.LookupMethod("a.Child", "vanish", 0); ok {
			t.Error("expected no match for unknown method")
		}
	})
}

func TestSymbolTable_Dump(t *testing.T) {
	table := testTable(t)
	table.SetParent("a.Child", "a.Base")

	dump := table.Dump()
	if len(dump.Classes) != 4 || len(dump.Methods) != 5 {
		t.Fatalf("unexpected dump sizes: %d classes, %d methods", len(dump.Classes), len(dump.Methods))
	}
	if dump.Classes[0].FQN != "a.Base" {
		t.Errorf("expected sorted class order starting at a.Base, got %q", dump.Classes[0].FQN)
	}
	if dump.Parents["a.Child"] != "a.Base" {
		t.Errorf("expected parent map entry, got %v", dump.Parents)
	}
}

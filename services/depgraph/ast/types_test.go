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
	"errors"
	"testing"
)

func TestNodeIDs(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"module", ModuleID("p"), "module:p"},
		{"default package module", ModuleID(DefaultPackage), "module:<default>"},
		{"class", ClassID("p.Child"), "class:p.Child"},
		{"interface", InterfaceID("p.Greeter"), "interface:p.Greeter"},
		{"type as class", TypeID("p.Child", false), "class:p.Child"},
		{"type as interface", TypeID("p.Greeter", true), "interface:p.Greeter"},
		{"niladic method", MethodID("p.Child", "greet", nil), "method:p.Child#greet()"},
		{"method with params", MethodID("p.Helper", "assist", []string{"int", "int"}), "method:p.Helper#assist(int,int)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestMethodSignature(t *testing.T) {
	sig := MethodSignature("p.Helper", "assist", []string{"int", "String"})
	if sig != "p.Helper#assist(int,String)" {
		t.Errorf("unexpected signature: %q", sig)
	}
}

func TestFileFacts_Validate(t *testing.T) {
	valid := func() *FileFacts {
		return &FileFacts{
			FilePath: "p/Child.java",
			Package:  "p",
			Types: []TypeFact{{
				Name:   "Child",
				FQN:    "p.Child",
				NodeID: "class:p.Child",
			}},
		}
	}

	t.Run("valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("empty file path", func(t *testing.T) {
		f := valid()
		f.FilePath = ""
		assertValidationError(t, f.Validate(), "FilePath")
	})

	t.Run("path traversal", func(t *testing.T) {
		f := valid()
		f.FilePath = "../outside/Child.java"
		assertValidationError(t, f.Validate(), "FilePath")
	})

	t.Run("empty package", func(t *testing.T) {
		f := valid()
		f.Package = ""
		assertValidationError(t, f.Validate(), "Package")
	})

	t.Run("type without name", func(t *testing.T) {
		f := valid()
		f.Types[0].Name = ""
		assertValidationError(t, f.Validate(), "Types[0].Name")
	})
}

func assertValidationError(t *testing.T, err error, field string) {
	t.Helper()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != field {
		t.Errorf("expected field %q, got %q", field, verr.Field)
	}
}

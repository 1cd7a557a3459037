// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

import (
	"fmt"
	"testing"

	"github.com/cgrind/cgrind/profile"
)

func TestStripAlias(t *testing.T) {
	tests := []struct {
		line       string
		idx        int
		compressed bool
		def        bool
		ok         bool
		rest       string
	}{
		{"main.c", 0, false, false, true, "main.c"},
		{"(12) main.c", 12, true, true, true, "main.c"},
		{"(12)", 12, true, false, true, ""},
		{"(x) main.c", 0, false, false, true, "(x) main.c"},
		{"(12 main.c", 0, true, false, false, " main.c"},
	}
	for _, test := range tests {
		var tok Tokenizer
		tok.Reset([]byte(test.line))
		idx, compressed, def, ok := stripAlias(&tok)
		if idx != test.idx || compressed != test.compressed || def != test.def || ok != test.ok || tok.String() != test.rest {
			t.Errorf("stripAlias(%q) = %d, %v, %v, %v leaving %q, want %d, %v, %v, %v leaving %q",
				test.line, idx, compressed, def, ok, tok.String(),
				test.idx, test.compressed, test.def, test.ok, test.rest)
		}
	}
}

func TestCompressedFileAliases(t *testing.T) {
	st := testState()
	var tok Tokenizer

	tok.Reset([]byte("(3) main.c"))
	def := st.compressedFile(&tok)
	if def == nil || def.Name != "main.c" {
		t.Fatalf("definition resolved to %v", def)
	}

	tok.Reset([]byte("(3)"))
	if ref := st.compressedFile(&tok); ref != def {
		t.Errorf("reference resolved to %v, want the defined node", ref)
	}

	// A literal spelling of the same name unifies with the alias.
	tok.Reset([]byte("main.c"))
	if lit := st.compressedFile(&tok); lit != def {
		t.Errorf("literal resolved to %v, want the defined node", lit)
	}

	if len(st.diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", st.diags)
	}
}

func TestCompressedFileUndefinedReference(t *testing.T) {
	st := testState()
	var tok Tokenizer
	tok.Reset([]byte("(9)"))
	if f := st.compressedFile(&tok); f != nil {
		t.Errorf("undefined reference resolved to %v, want nil", f)
	}
	if len(st.diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1", len(st.diags))
	}
}

func TestCompressedObjectTableGrowth(t *testing.T) {
	st := testState()
	var tok Tokenizer

	// Far beyond the initial table size.
	tok.Reset([]byte(fmt.Sprintf("(%d) libbig.so", 5*initObjectAliases)))
	def := st.compressedObject(&tok)
	if def == nil || def.Name != "libbig.so" {
		t.Fatalf("definition resolved to %v", def)
	}
	tok.Reset([]byte(fmt.Sprintf("(%d)", 5*initObjectAliases)))
	if ref := st.compressedObject(&tok); ref != def {
		t.Errorf("reference after growth resolved to %v", ref)
	}
	if len(st.diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", st.diags)
	}
}

func TestCompressedFunctionObjectBinding(t *testing.T) {
	st := testState()
	unknown := st.prof.Object(profile.Unknown)
	file := st.prof.File("a.c")
	var tok Tokenizer

	tok.Reset([]byte("(1) handler"))
	fn := st.compressedFunction(&tok, file, unknown)
	if fn == nil {
		t.Fatal("definition failed")
	}

	// A re-reference with a real object adopts it.
	lib := st.prof.Object("libsrv.so")
	tok.Reset([]byte("(1)"))
	if got := st.compressedFunction(&tok, file, lib); got != fn {
		t.Fatalf("reference resolved to %v", got)
	}
	if fn.Object != lib {
		t.Errorf("Object = %v after adoption, want libsrv.so", fn.Object)
	}
	if len(st.diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", st.diags)
	}

	// A conflicting re-reference keeps the binding and reports it.
	other := st.prof.Object("libother.so")
	tok.Reset([]byte("(1)"))
	if got := st.compressedFunction(&tok, file, other); got != fn {
		t.Fatalf("reference resolved to %v", got)
	}
	if fn.Object != lib {
		t.Errorf("Object = %v, want libsrv.so kept", fn.Object)
	}
	if len(st.diags) != 1 {
		t.Errorf("got %d diagnostics, want 1", len(st.diags))
	}
}

func TestCompressedAliasScopedToImport(t *testing.T) {
	st := testState()
	var tok Tokenizer
	tok.Reset([]byte("(1) first.c"))
	st.compressedFile(&tok)

	st.clearCompression()
	tok.Reset([]byte("(1)"))
	if f := st.compressedFile(&tok); f != nil {
		t.Errorf("reference survived a compression reset: %v", f)
	}
}

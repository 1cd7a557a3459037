// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"reflect"
	"testing"
)

func TestFindOrCreateIdentity(t *testing.T) {
	p := New()

	o := p.Object("libc.so")
	if p.Object("libc.so") != o {
		t.Error("Object returned a new node for a known name")
	}
	f := p.File("main.c")
	if p.File("main.c") != f {
		t.Error("File returned a new node for a known name")
	}
	fn := p.Function("main", f, o)
	if p.Function("main", f, o) != fn {
		t.Error("Function returned a new node for a known key")
	}
	if p.Function("main", f, p.Object("other.so")) == fn {
		t.Error("Function ignored the object in its identity")
	}

	l := p.Line(fn, f, 10)
	if p.Line(fn, f, 10) != l {
		t.Error("Line returned a new node for a known key")
	}
	in := p.Instr(fn, 0x4000)
	if p.Instr(fn, 0x4000) != in {
		t.Error("Instr returned a new node for a known key")
	}

	callee := p.Function("work", f, o)
	c := p.Call(fn, callee)
	if p.Call(fn, callee) != c {
		t.Error("Call returned a new edge for a known pair")
	}
	if p.Call(callee, fn) == c {
		t.Error("Call ignored edge direction")
	}
}

func TestBindObjectFirstWins(t *testing.T) {
	p := New()
	unknown := p.Object(Unknown)
	f := p.File("a.c")
	fn := p.Function("f", f, unknown)

	libA := p.Object("liba.so")
	if kept, ok := p.BindObject(fn, libA); !ok || kept != libA {
		t.Fatalf("BindObject = %v, %v, want liba.so adopted", kept, ok)
	}
	if fn.Object != libA {
		t.Fatalf("Object = %v after adoption, want liba.so", fn.Object)
	}

	// A later conflicting binding must not replace the first one.
	libB := p.Object("libb.so")
	if kept, ok := p.BindObject(fn, libB); ok || kept != libA {
		t.Errorf("BindObject = %v, %v, want liba.so kept and not ok", kept, ok)
	}
	if fn.Object != libA {
		t.Errorf("Object = %v, want liba.so kept", fn.Object)
	}

	// Re-binding the same object is a match, not a conflict.
	if kept, ok := p.BindObject(fn, libA); !ok || kept != libA {
		t.Errorf("matching BindObject = %v, %v, want ok", kept, ok)
	}

	// After adoption the function is findable under its real key.
	if p.LookupFunction("f", f, libA) != fn {
		t.Error("function not re-keyed under adopted object")
	}
}

func TestBindObjectKeyCollision(t *testing.T) {
	p := New()
	f := p.File("a.c")
	lib := p.Object("liba.so")
	bound := p.Function("f", f, lib)
	orphan := p.Function("f", f, p.Object(Unknown))

	// The identity orphan would adopt is already taken, so the
	// sentinel binding stays and the existing node keeps its key.
	kept, ok := p.BindObject(orphan, lib)
	if ok || kept.Name != Unknown {
		t.Errorf("BindObject = %v, %v, want sentinel kept and not ok", kept, ok)
	}
	if orphan.Object.Name != Unknown {
		t.Errorf("Object = %v, want sentinel kept", orphan.Object)
	}
	if p.LookupFunction("f", f, lib) != bound {
		t.Error("existing node lost its key")
	}
	if p.LookupFunction("f", f, orphan.Object) != orphan {
		t.Error("orphan lost its sentinel key")
	}
}

func TestSetCommandFirstWins(t *testing.T) {
	p := New()
	if got, ok := p.SetCommand("ls -l"); !ok || got != "ls -l" {
		t.Fatalf("first SetCommand = %q, %v", got, ok)
	}
	if got, ok := p.SetCommand("rm -rf"); ok || got != "ls -l" {
		t.Errorf("conflicting SetCommand = %q, %v, want first value kept and not ok", got, ok)
	}
	if got, ok := p.SetCommand("ls -l"); !ok || got != "ls -l" {
		t.Errorf("matching SetCommand = %q, %v, want ok", got, ok)
	}
	if p.Command() != "ls -l" {
		t.Errorf("Command = %q, want first value", p.Command())
	}
}

func TestPartPublication(t *testing.T) {
	p := New()
	ir := p.EventTypes().AddType("Ir", "", "")
	f := p.File("a.c")
	fn := p.Function("f", f, p.Object(Unknown))

	part := NewPart("trace.1")
	part.EnsureFunctionCost(fn).Self.AddValue(ir.Index(), 40)

	// Unpublished parts are invisible.
	if got := p.FunctionTotal(fn); !got.Zero() {
		t.Errorf("FunctionTotal before AddPart = %v, want zero", got)
	}

	part.RecomputeTotals(p.EventTypes().Len())
	p.AddPart(part)
	if got, want := p.FunctionTotal(fn), (CostVector{40}); !reflect.DeepEqual(got, want) {
		t.Errorf("FunctionTotal = %v, want %v", got, want)
	}
	if got, want := p.Total(), (CostVector{40}); !reflect.DeepEqual(got, want) {
		t.Errorf("Total = %v, want %v", got, want)
	}

	p.RemovePart(part)
	if got := p.Total(); !got.Zero() {
		t.Errorf("Total after RemovePart = %v, want zero", got)
	}
	if len(p.Parts()) != 0 {
		t.Errorf("Parts after RemovePart = %v, want empty", p.Parts())
	}
}

func TestRecomputeTotals(t *testing.T) {
	p := New()
	p.EventTypes().AddType("Ir", "", "")
	p.EventTypes().AddType("Dr", "", "")
	f := p.File("a.c")
	o := p.Object(Unknown)

	part := NewPart("trace.1")
	part.EnsureFunctionCost(p.Function("f", f, o)).Self = CostVector{10, 1}
	part.EnsureFunctionCost(p.Function("g", f, o)).Self = CostVector{30}

	part.RecomputeTotals(p.EventTypes().Len())
	if want := (CostVector{40, 1}); !reflect.DeepEqual(part.Totals, want) {
		t.Errorf("Totals = %v, want %v", part.Totals, want)
	}
}

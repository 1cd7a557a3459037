// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

import (
	"fmt"

	"github.com/cgrind/cgrind/profile"
)

// Compressed name support. Object, file, and function names may use
// the following compression model:
//
//	"(N) Name"  defines alias N as Name and resolves to it.
//	"(N)"       references a previously defined alias N.
//	"Name"      is a regular, uncompressed name.
//
// Alias tables are scoped to a single import of a single part and are
// never reused across parts: the same index can denote different
// entities in different parts.

// Initial alias-table sizes. Tables double (seeded from the requested
// index) when a definition lands beyond the current capacity.
const (
	initObjectAliases   = 100
	initFileAliases     = 1000
	initFunctionAliases = 10000
)

func (st *importState) clearCompression() {
	st.objectAlias = make([]*profile.Object, initObjectAliases)
	st.fileAlias = make([]*profile.File, initFileAliases)
	st.funcAlias = make([]*profile.Function, initFunctionAliases)
}

// stripAlias classifies the name at the head of t. For a literal name
// it consumes nothing and reports compressed=false. For a compressed
// name it consumes the "(N)" prefix plus following spaces and returns
// the index; def reports whether a name remains in t (a definition).
// ok=false means the parenthesized prefix is malformed.
func stripAlias(t *Tokenizer) (idx int, compressed, def, ok bool) {
	buf := t.Bytes()
	if len(buf) < 2 || buf[0] != '(' || buf[1] < '0' || buf[1] > '9' {
		return 0, false, false, true
	}
	t.StripFirst()
	v, numOK := t.StripUint64(false)
	if !numOK || !t.StripByte(')') {
		return 0, true, false, false
	}
	t.StripSpaces()
	return int(v), true, !t.Empty(), true
}

func (st *importState) compressedObject(t *Tokenizer) *profile.Object {
	t.TrimSpaces()
	idx, compressed, def, ok := stripAlias(t)
	if !compressed {
		return st.prof.Object(t.String())
	}
	if !ok {
		st.diag("invalid compressed object specification")
		return nil
	}
	if def {
		o := st.prof.Object(t.String())
		if idx >= len(st.objectAlias) {
			st.objectAlias = append(st.objectAlias, make([]*profile.Object, idx*2-len(st.objectAlias))...)
		}
		st.objectAlias[idx] = o
		return o
	}
	if idx >= len(st.objectAlias) || st.objectAlias[idx] == nil {
		st.diag(fmt.Sprintf("undefined compressed object index %d", idx))
		return nil
	}
	return st.objectAlias[idx]
}

// Note: some producers give different indexes for the same file when
// references to it come from different objects. Definitions therefore
// overwrite freely; many indexes may map to one entity.
func (st *importState) compressedFile(t *Tokenizer) *profile.File {
	t.TrimSpaces()
	idx, compressed, def, ok := stripAlias(t)
	if !compressed {
		return st.prof.File(t.String())
	}
	if !ok {
		st.diag("invalid compressed file specification")
		return nil
	}
	if def {
		f := st.prof.File(t.String())
		if idx >= len(st.fileAlias) {
			st.fileAlias = append(st.fileAlias, make([]*profile.File, idx*2-len(st.fileAlias))...)
		}
		st.fileAlias[idx] = f
		return f
	}
	if idx >= len(st.fileAlias) || st.fileAlias[idx] == nil {
		st.diag(fmt.Sprintf("undefined compressed file index %d", idx))
		return nil
	}
	return st.fileAlias[idx]
}

func (st *importState) compressedFunction(t *Tokenizer, file *profile.File, object *profile.Object) *profile.Function {
	t.TrimSpaces()
	idx, compressed, def, ok := stripAlias(t)
	if !compressed {
		return st.prof.Function(t.String(), file, object)
	}
	if !ok {
		st.diag("invalid compressed function specification")
		return nil
	}
	if def {
		fn := st.prof.Function(t.String(), file, object)
		if idx >= len(st.funcAlias) {
			st.funcAlias = append(st.funcAlias, make([]*profile.Function, idx*2-len(st.funcAlias))...)
		}
		st.funcAlias[idx] = fn
		return fn
	}
	if idx >= len(st.funcAlias) || st.funcAlias[idx] == nil {
		st.diag(fmt.Sprintf("undefined compressed function index %d", idx))
		return nil
	}
	fn := st.funcAlias[idx]
	// A re-reference may name a different object than the one the
	// function was defined with. The first real binding wins; the
	// whole compare-and-bind runs under the profile lock because other
	// imports may re-reference the same function.
	if object != nil {
		if kept, ok := st.prof.BindObject(fn, object); !ok {
			st.diag(fmt.Sprintf("object mismatch for function %s: have %s, given %s",
				fn.Name, kept.Name, object.Name))
		}
	}
	return fn
}

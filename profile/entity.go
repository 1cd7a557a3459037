// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// Unknown is the name of the sentinel object, file, and function that
// stand in when a trace references costs without ever establishing the
// corresponding context. Substituting the sentinel lets an import
// continue past malformed input.
const Unknown = "???"

// An Object is a shared binary-object (ELF object) node. There is one
// Object per distinct name in a Profile, regardless of how many parts
// reference it.
type Object struct {
	Name string
}

// A File is a shared source-file node, keyed by name.
type File struct {
	Name string
}

// A Function is a shared function node. Identity is the triple of
// name, file, and object; a function is never created without a file
// and an object, though either may be the sentinel.
type Function struct {
	Name   string
	File   *File
	Object *Object

	lines  map[lineKey]*Line
	instrs map[uint64]*Instr
}

type lineKey struct {
	file *File
	line int
}

// A Line is a shared source-line node within a function. The same
// physical line is reused across parts; per-part costs live in each
// Part's cost store. Inlined code means a function's lines may spread
// over several files, so lines are keyed by file and number.
type Line struct {
	Function *Function
	File     *File
	Number   int
}

// An Instr is a shared instruction node within a function, keyed by
// address. Line is the source line the instruction belongs to, when
// both line and address information are present in the input.
type Instr struct {
	Function *Function
	Addr     uint64
	Line     *Line
}

// A Call is a shared call edge. Identity is the caller/callee pair;
// per-part call counts and costs live in each Part's cost store.
type Call struct {
	Caller *Function
	Callee *Function
}

type functionKey struct {
	name   string
	file   *File
	object *Object
}

type callKey struct {
	caller *Function
	callee *Function
}

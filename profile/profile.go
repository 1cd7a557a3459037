// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package profile holds the normalized call-graph cost model built
// from Callgrind-style trace dumps.
//
// A Profile is the shared, cross-part namespace: objects, files,
// functions, lines, instructions, and call edges exist once per
// logical program no matter how many parts reference them. Each
// imported trace file becomes a Part, which owns the per-part cost
// records attached to those shared nodes. All find-or-create
// operations on the shared namespace are serialized, so multiple
// parts may be imported concurrently; a Part is exclusively owned by
// its importer until it is published with AddPart.
package profile

import "sync"

// A Profile is the shared container for one logical program: the
// entity namespace, the event-type registry, and the published parts.
type Profile struct {
	mu      sync.Mutex
	events  *EventTypeSet
	objects map[string]*Object
	files   map[string]*File
	funcs   map[functionKey]*Function
	calls   map[callKey]*Call
	parts   []*Part
	command string
	callMax CostVector
}

// New returns an empty Profile with a fresh event-type registry.
func New() *Profile {
	return &Profile{
		events:  NewEventTypeSet(),
		objects: make(map[string]*Object),
		files:   make(map[string]*File),
		funcs:   make(map[functionKey]*Function),
		calls:   make(map[callKey]*Call),
	}
}

// EventTypes returns the profile's event-type registry.
func (p *Profile) EventTypes() *EventTypeSet { return p.events }

// Object returns the object named name, creating it on first sight.
func (p *Profile) Object(name string) *Object {
	p.mu.Lock()
	defer p.mu.Unlock()
	o, ok := p.objects[name]
	if !ok {
		o = &Object{Name: name}
		p.objects[name] = o
	}
	return o
}

// File returns the file named name, creating it on first sight.
func (p *Profile) File(name string) *File {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.files[name]
	if !ok {
		f = &File{Name: name}
		p.files[name] = f
	}
	return f
}

// Function returns the function with the given name, file, and object,
// creating it on first sight. file and object must be non-nil; use the
// sentinel entities when the input never named them.
func (p *Profile) Function(name string, file *File, object *Object) *Function {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := functionKey{name, file, object}
	fn, ok := p.funcs[key]
	if !ok {
		fn = &Function{
			Name:   name,
			File:   file,
			Object: object,
			lines:  make(map[lineKey]*Line),
			instrs: make(map[uint64]*Instr),
		}
		p.funcs[key] = fn
	}
	return fn
}

// BindObject binds object to fn if fn's object is still the sentinel,
// and returns the binding in effect afterwards. A function's first
// real object binding wins: when fn is already bound to a different
// object, or another function already holds fn's identity under
// object, the existing binding is kept and ok is false. Compressed
// traces re-reference functions by alias from concurrently imported
// parts, so the comparison, the sentinel check, and the re-keying all
// happen under the profile lock.
func (p *Profile) BindObject(fn *Function, object *Object) (kept *Object, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if fn.Object == object {
		return object, true
	}
	if fn.Object != nil && fn.Object.Name != Unknown {
		return fn.Object, false
	}
	newKey := functionKey{fn.Name, fn.File, object}
	if _, taken := p.funcs[newKey]; taken {
		// Another function already carries this identity. Adopting
		// would leave two nodes behind one key, so the sentinel
		// binding stays.
		return fn.Object, false
	}
	delete(p.funcs, functionKey{fn.Name, fn.File, fn.Object})
	fn.Object = object
	p.funcs[newKey] = fn
	return object, true
}

// Line returns the shared line node for the given function, file, and
// line number, creating it on first sight.
func (p *Profile) Line(fn *Function, file *File, number int) *Line {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := lineKey{file, number}
	l, ok := fn.lines[key]
	if !ok {
		l = &Line{Function: fn, File: file, Number: number}
		fn.lines[key] = l
	}
	return l
}

// Instr returns the shared instruction node for the given function and
// address, creating it on first sight.
func (p *Profile) Instr(fn *Function, addr uint64) *Instr {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := fn.instrs[addr]
	if !ok {
		in = &Instr{Function: fn, Addr: addr}
		fn.instrs[addr] = in
	}
	return in
}

// BindInstrLine records the source line an instruction belongs to.
func (p *Profile) BindInstrLine(in *Instr, l *Line) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in.Line = l
}

// Call returns the shared call edge caller -> callee, creating it on
// first sight.
func (p *Profile) Call(caller, callee *Function) *Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := callKey{caller, callee}
	c, ok := p.calls[key]
	if !ok {
		c = &Call{Caller: caller, Callee: callee}
		p.calls[key] = c
	}
	return c
}

// LookupObject returns the object named name, or nil.
func (p *Profile) LookupObject(name string) *Object {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.objects[name]
}

// LookupFile returns the file named name, or nil.
func (p *Profile) LookupFile(name string) *File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.files[name]
}

// LookupFunction returns the function with the given name, file, and
// object, or nil.
func (p *Profile) LookupFunction(name string, file *File, object *Object) *Function {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.funcs[functionKey{name, file, object}]
}

// FunctionsNamed returns all functions with the given name, across all
// files and objects.
func (p *Profile) FunctionsNamed(name string) []*Function {
	p.mu.Lock()
	defer p.mu.Unlock()
	var fns []*Function
	for key, fn := range p.funcs {
		if key.name == name {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Functions returns a snapshot of all functions in the profile.
func (p *Profile) Functions() []*Function {
	p.mu.Lock()
	defer p.mu.Unlock()
	fns := make([]*Function, 0, len(p.funcs))
	for _, fn := range p.funcs {
		fns = append(fns, fn)
	}
	return fns
}

// Calls returns a snapshot of all call edges in the profile.
func (p *Profile) Calls() []*Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	cs := make([]*Call, 0, len(p.calls))
	for _, c := range p.calls {
		cs = append(cs, c)
	}
	return cs
}

// SetCommand records the profiled command. The first recorded value
// wins; a conflicting later value is not stored. It returns the value
// now in effect and whether the given one was accepted.
func (p *Profile) SetCommand(cmd string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.command == "" {
		p.command = cmd
		return cmd, true
	}
	return p.command, p.command == cmd
}

// Command returns the profiled command, or "".
func (p *Profile) Command() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.command
}

// UpdateCallMax raises the program-wide maximum call-cost tracker to
// cover v.
func (p *Profile) UpdateCallMax(v CostVector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callMax.MaxVector(v)
}

// CallMax returns a copy of the program-wide maximum call-cost vector.
func (p *Profile) CallMax() CostVector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callMax.Clone()
}

// AddPart publishes a fully imported part. Before AddPart, the part
// and its cost records are invisible to readers of the profile.
func (p *Profile) AddPart(part *Part) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.parts = append(p.parts, part)
}

// RemovePart detaches a previously published part and its cost
// records.
func (p *Profile) RemovePart(part *Part) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, q := range p.parts {
		if q == part {
			p.parts = append(p.parts[:i], p.parts[i+1:]...)
			return
		}
	}
}

// Parts returns a snapshot of the published parts, in publication
// order.
func (p *Profile) Parts() []*Part {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*Part(nil), p.parts...)
}

// Total returns the sum of all published parts' totals.
func (p *Profile) Total() CostVector {
	p.mu.Lock()
	defer p.mu.Unlock()
	var v CostVector
	for _, part := range p.parts {
		v.AddVector(part.Totals)
	}
	v.Grow(p.events.Len())
	return v
}

// FunctionTotal returns fn's self cost summed across all published
// parts.
func (p *Profile) FunctionTotal(fn *Function) CostVector {
	p.mu.Lock()
	defer p.mu.Unlock()
	var v CostVector
	for _, part := range p.parts {
		if fc := part.fnCost[fn]; fc != nil {
			v.AddVector(fc.Self)
		}
	}
	v.Grow(p.events.Len())
	return v
}

// LineTotal returns l's self cost summed across all published parts.
func (p *Profile) LineTotal(l *Line) CostVector {
	p.mu.Lock()
	defer p.mu.Unlock()
	var v CostVector
	for _, part := range p.parts {
		if lc := part.lineCost[l]; lc != nil {
			v.AddVector(lc.Self)
		}
	}
	v.Grow(p.events.Len())
	return v
}

// InstrTotal returns in's self cost summed across all published parts.
func (p *Profile) InstrTotal(in *Instr) CostVector {
	p.mu.Lock()
	defer p.mu.Unlock()
	var v CostVector
	for _, part := range p.parts {
		if ic := part.instrCost[in]; ic != nil {
			v.AddVector(ic.Self)
		}
	}
	v.Grow(p.events.Len())
	return v
}

// CallTotal returns c's call count and cost summed across all
// published parts.
func (p *Profile) CallTotal(c *Call) (uint64, CostVector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var count uint64
	var v CostVector
	for _, part := range p.parts {
		if cc := part.callCost[c]; cc != nil {
			count += cc.Count
			v.AddVector(cc.Cost)
		}
	}
	v.Grow(p.events.Len())
	return count, v
}

// ObjectTotal returns the self cost of all functions in object o,
// summed across all published parts.
func (p *Profile) ObjectTotal(o *Object) CostVector {
	p.mu.Lock()
	defer p.mu.Unlock()
	var v CostVector
	for _, part := range p.parts {
		for fn, fc := range part.fnCost {
			if fn.Object == o {
				v.AddVector(fc.Self)
			}
		}
	}
	v.Grow(p.events.Len())
	return v
}

// FileTotal returns the self cost of all functions in file f, summed
// across all published parts.
func (p *Profile) FileTotal(f *File) CostVector {
	p.mu.Lock()
	defer p.mu.Unlock()
	var v CostVector
	for _, part := range p.parts {
		for fn, fc := range part.fnCost {
			if fn.File == f {
				v.AddVector(fc.Self)
			}
		}
	}
	v.Grow(p.events.Len())
	return v
}

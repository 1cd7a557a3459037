// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// An EventType is a named cost channel. Raw event types hold counters
// directly in cost vectors; derived event types carry a formula over
// other event-type names and are computed on demand, never stored.
type EventType struct {
	Name     string
	LongName string

	// Formula, if non-empty, makes this a derived type. It is an
	// expression over the names of other event types, for example
	// "Ir + 10 * Bm".
	Formula string

	index int

	compile sync.Once
	program *vm.Program
	compErr error
}

// Index returns the stable vector slot of this event type. The slot is
// assigned at first declaration and never changes.
func (t *EventType) Index() int { return t.index }

// Derived reports whether this event type is computed from a formula.
func (t *EventType) Derived() bool { return t.Formula != "" }

// An EventTypeSet is the registry of event types declared by any part
// of a profile. It is shared across concurrent imports; declaration is
// find-or-create and idempotent.
type EventTypeSet struct {
	mu     sync.RWMutex
	types  []*EventType
	byName map[string]*EventType
}

// NewEventTypeSet returns an empty registry.
func NewEventTypeSet() *EventTypeSet {
	return &EventTypeSet{byName: make(map[string]*EventType)}
}

// Type returns the event type named name, or nil if it was never
// declared.
func (s *EventTypeSet) Type(name string) *EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[name]
}

// AddType declares an event type. If name is already declared, the
// existing type is returned unchanged: the first declaration wins.
func (s *EventTypeSet) AddType(name, longName, formula string) *EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byName[name]; ok {
		return t
	}
	if longName == "" {
		longName = name
	}
	t := &EventType{
		Name:     name,
		LongName: longName,
		Formula:  formula,
		index:    len(s.types),
	}
	s.types = append(s.types, t)
	s.byName[name] = t
	return t
}

// Len returns the number of declared event types.
func (s *EventTypeSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.types)
}

// Types returns a snapshot of the declared event types in declaration
// order.
func (s *EventTypeSet) Types() []*EventType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*EventType(nil), s.types...)
}

// Value returns the value of event type t in vector v. For raw types
// this reads the vector slot; for derived types the formula is
// evaluated against the raw channels of v.
func (s *EventTypeSet) Value(t *EventType, v CostVector) (uint64, error) {
	if !t.Derived() {
		return v.Value(t.index), nil
	}
	t.compile.Do(func() {
		t.program, t.compErr = expr.Compile(t.Formula)
	})
	if t.compErr != nil {
		return 0, fmt.Errorf("event type %s: compiling formula: %w", t.Name, t.compErr)
	}
	env := make(map[string]interface{})
	s.mu.RLock()
	for _, rt := range s.types {
		if !rt.Derived() {
			env[rt.Name] = float64(v.Value(rt.index))
		}
	}
	s.mu.RUnlock()
	out, err := expr.Run(t.program, env)
	if err != nil {
		return 0, fmt.Errorf("event type %s: evaluating formula: %w", t.Name, err)
	}
	switch x := out.(type) {
	case float64:
		if x < 0 {
			return 0, nil
		}
		return uint64(x), nil
	case int:
		if x < 0 {
			return 0, nil
		}
		return uint64(x), nil
	case int64:
		if x < 0 {
			return 0, nil
		}
		return uint64(x), nil
	case uint64:
		return x, nil
	}
	return 0, fmt.Errorf("event type %s: formula yields %T, want number", t.Name, out)
}

// A SubMapping maps positional slots of a cost line to event-type
// vector slots, as declared by an "events:" directive. Cost lines
// with fewer numbers than slots leave the remaining slots at zero.
type SubMapping struct {
	set   *EventTypeSet
	index []int
}

// SubMapping resolves names to event types, declaring missing ones,
// and returns the slot mapping for them in the given order.
func (s *EventTypeSet) SubMapping(names []string) *SubMapping {
	m := &SubMapping{set: s, index: make([]int, len(names))}
	for i, name := range names {
		m.index[i] = s.AddType(name, "", "").index
	}
	return m
}

// Set returns the registry this mapping resolves into.
func (m *SubMapping) Set() *EventTypeSet { return m.set }

// Count returns the number of positional slots.
func (m *SubMapping) Count() int { return len(m.index) }

// TypeIndex returns the vector slot for positional slot i.
func (m *SubMapping) TypeIndex(i int) int { return m.index[i] }

// AddSlots adds the positional values vals to v according to the
// mapping, then zero-extends v to the full registry width so that
// vectors recorded early stay comparable after later declarations.
func (m *SubMapping) AddSlots(v *CostVector, vals []uint64) {
	for i, x := range vals {
		if i >= len(m.index) {
			break
		}
		v.AddValue(m.index[i], x)
	}
	v.Grow(m.set.Len())
}

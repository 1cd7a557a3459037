// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// A CostVector is an ordered sequence of non-negative counters, one
// per event type, indexed by EventType.Index. Vectors grow on demand:
// adding to a slot beyond the current length zero-extends the vector,
// so vectors recorded before later event declarations stay valid.
type CostVector []uint64

// Value returns the counter in slot i, or 0 if the vector is shorter.
func (v CostVector) Value(i int) uint64 {
	if i < 0 || i >= len(v) {
		return 0
	}
	return v[i]
}

// Grow extends v with zero-filled slots so that len(v) >= n.
func (v *CostVector) Grow(n int) {
	if len(*v) >= n {
		return
	}
	if cap(*v) >= n {
		*v = (*v)[:n]
		return
	}
	grown := make(CostVector, n)
	copy(grown, *v)
	*v = grown
}

// AddValue adds x to slot i, extending the vector if needed.
func (v *CostVector) AddValue(i int, x uint64) {
	v.Grow(i + 1)
	(*v)[i] += x
}

// AddVector adds o to v slot-wise. Mismatched lengths are treated as
// zero-extended.
func (v *CostVector) AddVector(o CostVector) {
	v.Grow(len(o))
	for i, x := range o {
		(*v)[i] += x
	}
}

// MaxVector raises each slot of v to the corresponding slot of o if
// that is larger.
func (v *CostVector) MaxVector(o CostVector) {
	v.Grow(len(o))
	for i, x := range o {
		if x > (*v)[i] {
			(*v)[i] = x
		}
	}
}

// Clone returns a copy of v that shares no storage with it.
func (v CostVector) Clone() CostVector {
	if v == nil {
		return nil
	}
	return append(CostVector(nil), v...)
}

// Equal reports whether v and o hold the same counters, comparing as
// if both were zero-extended to the same length.
func (v CostVector) Equal(o CostVector) bool {
	long := v
	if len(o) > len(long) {
		long, o = o, v
	}
	for i, x := range long {
		if x != o.Value(i) {
			return false
		}
	}
	return true
}

// Zero reports whether every slot of v is zero.
func (v CostVector) Zero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

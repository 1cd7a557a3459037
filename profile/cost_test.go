// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"reflect"
	"testing"
)

func TestCostVectorAddValue(t *testing.T) {
	var v CostVector
	v.AddValue(2, 7)
	if want := (CostVector{0, 0, 7}); !reflect.DeepEqual(v, want) {
		t.Errorf("got %v, want %v", v, want)
	}
	v.AddValue(0, 1)
	if want := (CostVector{1, 0, 7}); !reflect.DeepEqual(v, want) {
		t.Errorf("got %v, want %v", v, want)
	}
}

func TestCostVectorAddVector(t *testing.T) {
	tests := []struct {
		name string
		a, b CostVector
		want CostVector
	}{
		{"equalLen", CostVector{1, 2}, CostVector{3, 4}, CostVector{4, 6}},
		{"shortDst", CostVector{1}, CostVector{3, 4}, CostVector{4, 4}},
		{"shortSrc", CostVector{1, 2}, CostVector{3}, CostVector{4, 2}},
		{"nilDst", nil, CostVector{3}, CostVector{3}},
		{"nilSrc", CostVector{1, 2}, nil, CostVector{1, 2}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v := test.a.Clone()
			v.AddVector(test.b)
			if !reflect.DeepEqual(v, test.want) {
				t.Errorf("%v + %v = %v, want %v", test.a, test.b, v, test.want)
			}
		})
	}
}

func TestCostVectorMaxVector(t *testing.T) {
	v := CostVector{5, 1}
	v.MaxVector(CostVector{2, 9, 3})
	if want := (CostVector{5, 9, 3}); !reflect.DeepEqual(v, want) {
		t.Errorf("got %v, want %v", v, want)
	}
}

func TestCostVectorEqual(t *testing.T) {
	tests := []struct {
		a, b CostVector
		want bool
	}{
		{CostVector{1, 2}, CostVector{1, 2}, true},
		{CostVector{1, 2, 0, 0}, CostVector{1, 2}, true},
		{nil, CostVector{0, 0}, true},
		{CostVector{1}, CostVector{1, 2}, false},
		{CostVector{1, 2}, CostVector{2, 1}, false},
	}
	for _, test := range tests {
		if got := test.a.Equal(test.b); got != test.want {
			t.Errorf("%v.Equal(%v) = %v, want %v", test.a, test.b, got, test.want)
		}
		if got := test.b.Equal(test.a); got != test.want {
			t.Errorf("%v.Equal(%v) = %v, want %v", test.b, test.a, got, test.want)
		}
	}
}

func TestCostVectorGrowKeepsValues(t *testing.T) {
	v := CostVector{1, 2}
	v.Grow(5)
	if want := (CostVector{1, 2, 0, 0, 0}); !reflect.DeepEqual(v, want) {
		t.Errorf("got %v, want %v", v, want)
	}
	v.Grow(2) // never shrinks
	if len(v) != 5 {
		t.Errorf("Grow(2) shrank vector to %d slots", len(v))
	}
}

// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

import (
	"strings"
	"testing"
)

func TestCanImport(t *testing.T) {
	tests := []struct {
		name string
		data string
		want bool
	}{
		{"leading", "events: Ir\nfn=main\n1 2\n", true},
		{"afterHeader", "version: 1\ncreator: callgrind\nevents: Ir\n", true},
		{"midLine", "# my events: are here\n", false},
		{"absent", "benchmark output\n", false},
		{"empty", "", false},
		{"beyondWindow", strings.Repeat("#", 4096) + "\nevents: Ir\n", false},
		{"insideWindow", strings.Repeat("#", 100) + "\nevents: Ir\n", true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := CanImport([]byte(test.data)); got != test.want {
				t.Errorf("CanImport = %v, want %v", got, test.want)
			}
		})
	}
}

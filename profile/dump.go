// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Dump writes a stable plain-text rendering of the profile to w. The
// output is deterministic for a given profile state, which makes it
// suitable for debugging and for comparing profiles in tests.
func (p *Profile) Dump(w io.Writer) error {
	types := p.EventTypes().Types()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	if _, err := fmt.Fprintf(w, "events: %s\n", strings.Join(names, " ")); err != nil {
		return err
	}
	if cmd := p.Command(); cmd != "" {
		fmt.Fprintf(w, "command: %s\n", cmd)
	}
	fmt.Fprintf(w, "parts: %d\n", len(p.Parts()))
	fmt.Fprintf(w, "totals: %s\n", costString(p.Total()))

	fns := p.Functions()
	sort.Slice(fns, func(i, j int) bool {
		if fns[i].Name != fns[j].Name {
			return fns[i].Name < fns[j].Name
		}
		if fns[i].File.Name != fns[j].File.Name {
			return fns[i].File.Name < fns[j].File.Name
		}
		return fns[i].Object.Name < fns[j].Object.Name
	})
	for _, fn := range fns {
		fmt.Fprintf(w, "\nfn=%s file=%s object=%s\n", fn.Name, fn.File.Name, fn.Object.Name)
		fmt.Fprintf(w, "  self: %s\n", costString(p.FunctionTotal(fn)))
	}

	calls := p.Calls()
	sort.Slice(calls, func(i, j int) bool {
		if calls[i].Caller.Name != calls[j].Caller.Name {
			return calls[i].Caller.Name < calls[j].Caller.Name
		}
		return calls[i].Callee.Name < calls[j].Callee.Name
	})
	for _, c := range calls {
		count, cost := p.CallTotal(c)
		fmt.Fprintf(w, "\ncall %s -> %s\n", c.Caller.Name, c.Callee.Name)
		fmt.Fprintf(w, "  count: %d cost: %s\n", count, costString(cost))
	}
	return nil
}

func costString(v CostVector) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, " ")
}

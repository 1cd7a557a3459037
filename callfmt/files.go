// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cgrind/cgrind/profile"
)

// ImportAll imports each path as one new part of the shared profile.
// Parts are imported concurrently; each import is self contained, so
// only find-or-create on the shared namespace is serialized.
//
// A fatal error in one part does not abort the others: successfully
// imported parts are returned (in path order) together with all
// diagnostics, and the per-part fatal errors are joined into the
// returned error. Only cancellation of ctx stops the whole batch.
func (imp *Importer) ImportAll(ctx context.Context, paths []string) ([]*profile.Part, []Diagnostic, error) {
	parts := make([]*profile.Part, len(paths))
	diags := make([][]Diagnostic, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			part, d, err := imp.ImportFile(gctx, path)
			parts[i], diags[i] = part, d
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				errs[i] = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, flattenDiags(diags), err
	}

	out := parts[:0]
	for _, p := range parts {
		if p != nil {
			out = append(out, p)
		}
	}
	return out, flattenDiags(diags), errors.Join(errs...)
}

func flattenDiags(diags [][]Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		out = append(out, d...)
	}
	return out
}

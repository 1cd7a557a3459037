// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgrind/cgrind/profile"
)

// writeTrace writes a small one-function trace whose only cost is
// cost, and returns its path.
func writeTrace(t *testing.T, dir, name string, cost int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := fmt.Sprintf(`events: Ir
ob=demo
fl=a.c
fn=main
1 %d
`, cost)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o666))
	return path
}

func TestImportAll(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	var want uint64
	for i := 0; i < 8; i++ {
		paths = append(paths, writeTrace(t, dir, fmt.Sprintf("demo.out.%d", i), 10+i))
		want += uint64(10 + i)
	}

	prof := profile.New()
	imp := NewImporter(prof, nil, nil)
	parts, diags, err := imp.ImportAll(context.Background(), paths)
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, parts, len(paths))

	// Parts come back in argument order regardless of which import
	// finished first.
	for i, part := range parts {
		assert.Equal(t, paths[i], part.FileName)
		assert.Equal(t, profile.CostVector{uint64(10 + i)}, part.Totals)
	}
	assert.Equal(t, profile.CostVector{want}, prof.Total())

	main := prof.LookupFunction("main", prof.LookupFile("a.c"), prof.LookupObject("demo"))
	require.NotNil(t, main)
	assert.Equal(t, profile.CostVector{want}, prof.FunctionTotal(main))
}

func TestImportAllReportsPerFileErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeTrace(t, dir, "good.out", 10)
	missing := filepath.Join(dir, "missing.out")

	prof := profile.New()
	imp := NewImporter(prof, nil, nil)
	parts, _, err := imp.ImportAll(context.Background(), []string{good, missing})
	require.Error(t, err)

	// The good file still came through.
	require.Len(t, parts, 1)
	assert.Equal(t, good, parts[0].FileName)
	assert.Equal(t, profile.CostVector{10}, prof.Total())
}

func TestImportAllCanceled(t *testing.T) {
	dir := t.TempDir()
	path := writeTrace(t, dir, "demo.out", 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prof := profile.New()
	imp := NewImporter(prof, nil, nil)
	_, _, err := imp.ImportAll(ctx, []string{path})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, prof.Parts())
}

// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff computes textual diffs for test failure messages.
package diff

import (
	"fmt"
	"os"
	"os/exec"
)

// Diff returns a human-readable description of the differences between
// got and want. If the "diff" command is available, it returns the
// output of unified diff. If the result is non-empty, the strings
// differ or the diff command failed.
func Diff(got, want string) string {
	if got == want {
		return ""
	}
	if _, err := exec.LookPath("diff"); err != nil {
		return fmt.Sprintf("diff command unavailable\ngot: %q\nwant: %q", got, want)
	}
	f1, err := os.CreateTemp("", "cgrind_test")
	if err != nil {
		return err.Error()
	}
	defer os.Remove(f1.Name())
	defer f1.Close()

	f2, err := os.CreateTemp("", "cgrind_test")
	if err != nil {
		return err.Error()
	}
	defer os.Remove(f2.Name())
	defer f2.Close()

	f1.Write([]byte(got))
	f2.Write([]byte(want))

	data, err := exec.Command("diff", "-u", f1.Name(), f2.Name()).CombinedOutput()
	if len(data) > 0 {
		// diff exits with a non-zero status when the files don't
		// match. Ignore that failure as long as we get output.
		err = nil
	}
	if err != nil {
		data = append(data, []byte(err.Error())...)
	}
	return string(data)
}

// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

import "fmt"

// A Diagnostic reports a recoverable problem on one line of a trace
// file: a malformed alias, a missing entity, an unparseable number, or
// an unrecognized directive. Diagnostics never abort an import; the
// offending line is skipped and parsing continues.
type Diagnostic struct {
	FileName string
	Line     int
	Msg      string
}

// Pos returns the position the diagnostic was raised at.
func (d Diagnostic) Pos() (fileName string, line int) {
	return d.FileName, d.Line
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d: %s", d.FileName, d.Line, d.Msg)
}

// An ImportError is a fatal import failure. Only two conditions are
// fatal: the input cannot be read, and cost or summary data appearing
// before any event declaration. Everything else is a Diagnostic.
type ImportError struct {
	FileName string
	Line     int // 0 if the failure is not tied to a line
	Msg      string
	Err      error // underlying cause, if any
}

func (e *ImportError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.FileName, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.FileName, e.Msg)
}

func (e *ImportError) Unwrap() error { return e.Err }

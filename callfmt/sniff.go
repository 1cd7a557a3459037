// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

import "bytes"

// sniffWindow is how far into a file the format marker is searched
// for.
const sniffWindow = 2047

var eventsMarker = []byte("events:")

// CanImport reports whether data looks like Callgrind-format profile
// data: an "events:" line (at the start of the input or immediately
// after a line break) within the first 2KB.
func CanImport(data []byte) bool {
	if len(data) > sniffWindow {
		data = data[:sniffWindow]
	}
	i := bytes.Index(data, eventsMarker)
	if i < 0 {
		return false
	}
	return i == 0 || data[i-1] == '\n'
}

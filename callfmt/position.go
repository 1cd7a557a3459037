// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

// A PositionSpec is the current position cursor of an import: a source
// line range and an instruction address range. Positions in the input
// are usually encoded as deltas against the previous position, so the
// cursor is threaded through every decoded line.
type PositionSpec struct {
	FromLine int
	ToLine   int
	FromAddr uint64
	ToAddr   uint64
}

// parsePosition decodes a position at the head of t into pos, using
// the import's current position cursor as the delta base. The address
// part is decoded first, then the line part, each gated by the
// "positions:" declaration. It reports false when the line does not
// start with a position; that is not an error, it tells the caller the
// line is a directive instead.
//
// Encodings, per dimension: "*" copies the previous position, "+N" and
// "-N" are deltas, a digit-led literal is absolute (addresses may be
// hex with an 0x prefix). An optional suffix widens the position to a
// range: "+N" sets the end relative to the start, "-N" or ":N" sets it
// absolutely.
func (st *importState) parsePosition(t *Tokenizer, pos *PositionSpec) bool {
	base := st.pos
	out := *pos

	if st.hasAddrInfo {
		c, ok := t.First()
		if !ok {
			return false
		}
		switch {
		case c == '*':
			if !st.posSeeded {
				st.diag("position delta before any absolute position")
				return false
			}
			t.StripFirst()
			out.FromAddr = base.FromAddr
			out.ToAddr = base.ToAddr
		case c == '+':
			if !st.posSeeded {
				st.diag("position delta before any absolute position")
				return false
			}
			t.StripFirst()
			d, ok := t.StripUint64(false)
			if !ok {
				return false
			}
			out.FromAddr = base.FromAddr + d
			out.ToAddr = out.FromAddr
		case c == '-':
			if !st.posSeeded {
				st.diag("position delta before any absolute position")
				return false
			}
			t.StripFirst()
			d, ok := t.StripUint64(false)
			if !ok {
				return false
			}
			if d > base.FromAddr {
				st.diag("address delta underflows, clamping to 0")
				d = base.FromAddr
			}
			out.FromAddr = base.FromAddr - d
			out.ToAddr = out.FromAddr
		case '0' <= c && c <= '9':
			v, ok := stripAddr(t)
			if !ok {
				return false
			}
			out.FromAddr = v
			out.ToAddr = v
			st.posSeeded = true
		default:
			return false
		}

		// Range suffix.
		if c, ok := t.First(); ok {
			if c == '+' {
				t.StripFirst()
				if d, ok := t.StripUint64(true); ok {
					out.ToAddr = out.FromAddr + d
				}
			} else if c == '-' || c == ':' {
				t.StripFirst()
				if v, ok := stripAddr(t); ok {
					out.ToAddr = v
				}
			}
		}
		t.StripSpaces()
	}

	if st.hasLineInfo {
		c, ok := t.First()
		if !ok {
			return false
		}
		switch {
		case c == '*':
			if !st.posSeeded {
				st.diag("position delta before any absolute position")
				return false
			}
			t.StripFirst()
			out.FromLine = base.FromLine
			out.ToLine = base.ToLine
		case c == '+':
			if !st.posSeeded {
				st.diag("position delta before any absolute position")
				return false
			}
			t.StripFirst()
			d, ok := t.StripUint(false)
			if !ok {
				return false
			}
			out.FromLine = base.FromLine + int(d)
			out.ToLine = out.FromLine
		case c == '-':
			if !st.posSeeded {
				st.diag("position delta before any absolute position")
				return false
			}
			t.StripFirst()
			d, ok := t.StripUint(false)
			if !ok {
				return false
			}
			if int(d) > base.FromLine {
				st.diag("line delta underflows, clamping to 0")
				d = uint(base.FromLine)
			}
			out.FromLine = base.FromLine - int(d)
			out.ToLine = out.FromLine
		case '0' <= c && c <= '9':
			v, ok := t.StripUint(false)
			if !ok {
				return false
			}
			out.FromLine = int(v)
			out.ToLine = out.FromLine
			st.posSeeded = true
		default:
			return false
		}

		// Range suffix.
		if c, ok := t.First(); ok {
			if c == '+' {
				t.StripFirst()
				if d, ok := t.StripUint(true); ok {
					out.ToLine = out.FromLine + int(d)
				}
			} else if c == '-' || c == ':' {
				t.StripFirst()
				if v, ok := t.StripUint(true); ok {
					out.ToLine = int(v)
				}
			}
		}
		t.StripSpaces()
	}

	*pos = out
	return true
}

// stripAddr consumes an absolute address: hex with an 0x prefix, or
// decimal.
func stripAddr(t *Tokenizer) (uint64, bool) {
	if t.StripPrefix("0x") || t.StripPrefix("0X") {
		return t.StripHex64(false)
	}
	return t.StripUint64(false)
}

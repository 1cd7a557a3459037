// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package callfmt

// A Tokenizer is a destructive cursor over one line of input. All
// operations narrow a view of the backing buffer; nothing is copied.
// Numeric operations report failure instead of erroring, because the
// trace grammar is ambiguous and callers resolve it by ordered trial:
// "no value" means "try the next line shape".
type Tokenizer struct {
	buf []byte
}

// Reset points the tokenizer at a new line buffer.
func (t *Tokenizer) Reset(buf []byte) { t.buf = buf }

// Bytes returns the remaining view of the line.
func (t *Tokenizer) Bytes() []byte { return t.buf }

// String returns the remaining view as a string. This allocates; use
// it only when the result is retained.
func (t *Tokenizer) String() string { return string(t.buf) }

// Len returns the number of remaining bytes.
func (t *Tokenizer) Len() int { return len(t.buf) }

// Empty reports whether the line is exhausted.
func (t *Tokenizer) Empty() bool { return len(t.buf) == 0 }

// First returns the next byte without consuming it.
func (t *Tokenizer) First() (byte, bool) {
	if len(t.buf) == 0 {
		return 0, false
	}
	return t.buf[0], true
}

// StripFirst consumes and returns the next byte.
func (t *Tokenizer) StripFirst() (byte, bool) {
	if len(t.buf) == 0 {
		return 0, false
	}
	c := t.buf[0]
	t.buf = t.buf[1:]
	return c, true
}

// StripByte consumes the next byte iff it equals c.
func (t *Tokenizer) StripByte(c byte) bool {
	if len(t.buf) == 0 || t.buf[0] != c {
		return false
	}
	t.buf = t.buf[1:]
	return true
}

// StripPrefix consumes prefix iff the line starts with all of it.
func (t *Tokenizer) StripPrefix(prefix string) bool {
	if len(t.buf) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if t.buf[i] != prefix[i] {
			return false
		}
	}
	t.buf = t.buf[len(prefix):]
	return true
}

// StripUint64 consumes a leading run of decimal digits. If skipSpaces
// is set, trailing spaces and tabs are consumed as well. It reports
// failure when no digit leads the line or the value overflows uint64;
// the cursor is unchanged on failure.
func (t *Tokenizer) StripUint64(skipSpaces bool) (uint64, bool) {
	var v uint64
	i := 0
	for i < len(t.buf) {
		d := t.buf[i] - '0'
		if d > 9 {
			break
		}
		if v > (1<<64-1-uint64(d))/10 {
			return 0, false
		}
		v = v*10 + uint64(d)
		i++
	}
	if i == 0 {
		return 0, false
	}
	t.buf = t.buf[i:]
	if skipSpaces {
		t.StripSpaces()
	}
	return v, true
}

// StripHex64 consumes a leading run of hex digits. The "0x" prefix, if
// any, must already be consumed.
func (t *Tokenizer) StripHex64(skipSpaces bool) (uint64, bool) {
	var v uint64
	i := 0
	for i < len(t.buf) {
		d, ok := hexDigit(t.buf[i])
		if !ok {
			break
		}
		if v > (1<<64-1-uint64(d))/16 {
			return 0, false
		}
		v = v*16 + uint64(d)
		i++
	}
	if i == 0 {
		return 0, false
	}
	t.buf = t.buf[i:]
	if skipSpaces {
		t.StripSpaces()
	}
	return v, true
}

// StripUint is StripUint64 narrowed to uint.
func (t *Tokenizer) StripUint(skipSpaces bool) (uint, bool) {
	v, ok := t.StripUint64(skipSpaces)
	if !ok || uint64(uint(v)) != v {
		return 0, false
	}
	return uint(v), ok
}

// StripUntil consumes bytes up to and including the first occurrence
// of delim and returns the bytes before it. If delim does not occur,
// the whole remaining line is consumed and returned.
func (t *Tokenizer) StripUntil(delim byte) []byte {
	for i, c := range t.buf {
		if c == delim {
			out := t.buf[:i]
			t.buf = t.buf[i+1:]
			return out
		}
	}
	out := t.buf
	t.buf = t.buf[len(t.buf):]
	return out
}

// StripName consumes a leading identifier: a letter or underscore
// followed by letters, digits, and underscores.
func (t *Tokenizer) StripName() ([]byte, bool) {
	if len(t.buf) == 0 || !isNameStart(t.buf[0]) {
		return nil, false
	}
	i := 1
	for i < len(t.buf) && isNameByte(t.buf[i]) {
		i++
	}
	out := t.buf[:i]
	t.buf = t.buf[i:]
	return out, true
}

// StripSpaces consumes leading spaces and tabs.
func (t *Tokenizer) StripSpaces() {
	for len(t.buf) > 0 && (t.buf[0] == ' ' || t.buf[0] == '\t') {
		t.buf = t.buf[1:]
	}
}

// TrimSpaces consumes leading and trailing spaces and tabs.
func (t *Tokenizer) TrimSpaces() {
	t.StripSpaces()
	for n := len(t.buf); n > 0 && (t.buf[n-1] == ' ' || t.buf[n-1] == '\t'); n = len(t.buf) {
		t.buf = t.buf[:n-1]
	}
}

func isNameStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isNameByte(c byte) bool {
	return isNameStart(c) || ('0' <= c && c <= '9')
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

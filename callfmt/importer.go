// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package callfmt reads the Callgrind textual trace format.
//
// The format is line oriented and heavily stateful: most lines only
// make sense relative to entities and positions established by earlier
// lines, names may be compressed into small-integer aliases, and
// positions are delta-encoded against a running cursor. An Importer
// runs one full pass over a trace file and commits the decoded costs
// into a shared profile.Profile.
//
// Recoverable problems (malformed aliases, unknown directives, missing
// context) are collected as Diagnostics and the offending lines are
// skipped. Only an unreadable input or cost data appearing before any
// "events:" declaration aborts an import.
package callfmt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cgrind/cgrind/profile"
)

// An Importer imports Callgrind trace files into a shared Profile.
// One Importer may run many imports, sequentially or concurrently;
// each import keeps its own cursor and alias state. The zero value
// with only Profile set is usable; NewImporter additionally wires
// metrics registration.
type Importer struct {
	Profile *profile.Profile

	// Logger receives diagnostics at Warn level and progress at
	// Debug level. Defaults to a nop logger.
	Logger log.Logger

	// Progress, if set, receives coarse completion notifications
	// (label, percent). It is called from the importing goroutine
	// and must not block.
	Progress func(label string, percent int)

	metrics *metrics
}

// NewImporter returns an Importer committing into prof. logger may be
// nil; reg may be nil to skip metrics registration.
func NewImporter(prof *profile.Profile, logger log.Logger, reg prometheus.Registerer) *Importer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Importer{
		Profile: prof,
		Logger:  logger,
		metrics: newMetrics(reg),
	}
}

// getMetrics returns the importer's counters, falling back to
// unregistered ones for literal-constructed Importers.
func (imp *Importer) getMetrics() *metrics {
	if imp.metrics == nil {
		return nopMetrics
	}
	return imp.metrics
}

// lineType classifies how the next position line's tail is
// interpreted.
type lineType int

const (
	selfCostLine lineType = iota
	callCostLine
	boringJumpLine
	condJumpLine
)

// importState is the per-import state: tokenizer, position cursor,
// alias tables, and the "current entity" slots the stateful grammar
// threads from line to line. It is discarded when the import ends.
type importState struct {
	imp     *Importer
	prof    *profile.Profile
	part    *profile.Part
	logger  log.Logger
	metrics *metrics

	fileName string
	lineNo   int
	diags    []Diagnostic

	tok     Tokenizer
	costBuf []uint64

	sub          *profile.SubMapping
	nextLineType lineType
	hasLineInfo  bool
	hasAddrInfo  bool
	pos          PositionSpec
	posSeeded    bool
	targetPos    PositionSpec

	currentObject    *profile.Object
	currentFile      *profile.File
	currentFunction  *profile.Function
	currentFnCost    *profile.FunctionCost
	currentLine      *profile.Line
	currentLineCost  *profile.LineCost
	currentInstr     *profile.Instr
	currentInstrCost *profile.InstrCost

	calledObject   *profile.Object
	calledFile     *profile.File
	calledFunction *profile.Function
	callCount      uint64

	jumpToFile     *profile.File
	jumpToFunction *profile.Function
	jumpsExecuted  uint64
	jumpsFollowed  uint64

	objectAlias []*profile.Object
	fileAlias   []*profile.File
	funcAlias   []*profile.Function

	totalBytes   int64
	readBytes    int64
	lastProgress int
}

// ImportFile imports the trace file at path as one new part.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*profile.Part, []Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		imp.getMetrics().importFailures.Inc()
		return nil, nil, &ImportError{FileName: path, Msg: "cannot open trace file", Err: err}
	}
	defer f.Close()
	var size int64
	if st, err := f.Stat(); err == nil {
		size = st.Size()
	}
	return imp.Import(ctx, f, path, size)
}

// Import runs the full import state machine over r, which holds one
// part's trace data. fileName is used in diagnostics and progress
// labels; size is the total input size in bytes for progress
// reporting, or 0 if unknown.
//
// On success the returned part and its cost records have been
// published to the profile. On error nothing was published. The
// returned diagnostics describe recoverable problems in either case.
func (imp *Importer) Import(ctx context.Context, r io.Reader, fileName string, size int64) (*profile.Part, []Diagnostic, error) {
	logger := imp.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	st := &importState{
		imp:          imp,
		prof:         imp.Profile,
		part:         profile.NewPart(fileName),
		logger:       log.With(logger, "file", fileName),
		metrics:      imp.getMetrics(),
		fileName:     fileName,
		nextLineType: selfCostLine,
		// Default when there is no "positions:" line.
		hasLineInfo:  true,
		totalBytes:   size,
		lastProgress: -1,
	}
	st.clearCompression()

	if err := st.run(ctx, r); err != nil {
		st.metrics.importFailures.Inc()
		return nil, st.diags, err
	}
	st.metrics.partsImported.Inc()
	return st.part, st.diags, nil
}

func (st *importState) run(ctx context.Context, r io.Reader) error {
	level.Debug(st.logger).Log("msg", "loading trace")

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for s.Scan() {
		// Checkpoint cancellation: the in-progress part has not
		// been published yet, so discarding it is clean.
		if err := ctx.Err(); err != nil {
			return &ImportError{FileName: st.fileName, Msg: "import canceled", Err: err}
		}
		st.lineNo++
		st.metrics.linesRead.Inc()
		line := s.Bytes()
		st.readBytes += int64(len(line)) + 1
		if err := st.processLine(line); err != nil {
			return err
		}
	}
	if err := s.Err(); err != nil {
		return &ImportError{FileName: st.fileName, Line: st.lineNo, Msg: "reading trace", Err: err}
	}

	st.finish()
	return nil
}

// processLine dispatches one input line. Anything at or below '9'
// leads a position (digits, '*', '+', '-'); comments and blank lines
// fall out of the position parse as non-matches. Everything else is a
// directive dispatched on its first letter, in rough order of
// probability.
func (st *importState) processLine(line []byte) error {
	t := &st.tok
	t.Reset(line)

	c, ok := t.First()
	if !ok {
		return nil
	}

	if c <= '9' {
		if !st.parsePosition(t, &st.pos) {
			return nil
		}
		return st.addCost(t)
	}

	t.StripFirst()
	switch c {
	case 'f':
		// fl=, fi=, fe=
		if t.StripPrefix("l=") || t.StripPrefix("i=") || t.StripPrefix("e=") {
			st.setFile(t)
			return nil
		}
		// fn=
		if t.StripPrefix("n=") {
			st.setFunction(t)
			st.updateProgress()
			return nil
		}

	case 'c':
		// cob=
		if t.StripPrefix("ob=") {
			st.setCalledObject(t)
			return nil
		}
		// cfi=
		if t.StripPrefix("fi=") {
			st.setCalledFile(t)
			return nil
		}
		// cfn=
		if t.StripPrefix("fn=") {
			st.setCalledFunction(t)
			return nil
		}
		// calls=
		if t.StripPrefix("alls=") {
			// Ignore anything after the count.
			st.callCount, _ = t.StripUint64(true)
			st.nextLineType = callCostLine
			return nil
		}
		// cmd:
		if t.StripPrefix("md:") {
			cmd := strings.TrimSpace(t.String())
			if kept, ok := st.prof.SetCommand(cmd); !ok {
				st.diag(fmt.Sprintf("redefined command %q, keeping %q", cmd, kept))
			}
			return nil
		}
		// creator:
		if t.StripPrefix("reator:") {
			return nil
		}

	case 'j':
		// jcnd=<followed>/<executed> <target position>
		if t.StripPrefix("cnd=") {
			followed, ok1 := t.StripUint64(true)
			ok2 := t.StripByte('/')
			executed, ok3 := t.StripUint64(true)
			if !ok1 || !ok2 || !ok3 || !st.parsePosition(t, &st.targetPos) {
				st.diag("invalid jcnd line")
				return nil
			}
			st.jumpsFollowed, st.jumpsExecuted = followed, executed
			st.nextLineType = condJumpLine
			return nil
		}
		// jump=<executed> <target position>
		if t.StripPrefix("ump=") {
			executed, ok := t.StripUint64(true)
			if !ok || !st.parsePosition(t, &st.targetPos) {
				st.diag("invalid jump line")
				return nil
			}
			st.jumpsExecuted = executed
			st.nextLineType = boringJumpLine
			return nil
		}
		// jfi=
		if t.StripPrefix("fi=") {
			st.jumpToFile = st.compressedFile(t)
			return nil
		}
		// jfn=
		if t.StripPrefix("fn=") {
			file := st.jumpToFile
			if file == nil {
				// Functions need a file.
				file = st.currentFile
			}
			if file == nil {
				file = st.prof.File(profile.Unknown)
			}
			object := st.currentObject
			if object == nil {
				object = st.prof.Object(profile.Unknown)
			}
			st.jumpToFunction = st.compressedFunction(t, file, object)
			return nil
		}

	case 'o':
		// ob=
		if t.StripPrefix("b=") {
			st.setObject(t)
			return nil
		}

	case 't':
		// totals: is ignored; totals are recomputed from the
		// committed records.
		if t.StripPrefix("otals:") {
			return nil
		}
		// thread:
		if t.StripPrefix("hread:") {
			st.part.ThreadID = st.stripIntField(t, "thread id")
			return nil
		}
		// timeframe (BB):
		if t.StripPrefix("imeframe (BB):") {
			t.TrimSpaces()
			st.part.Timeframe = t.String()
			return nil
		}

	case 'd':
		// desc: Trigger: ...  (other descriptions are ignored)
		if t.StripPrefix("esc:") {
			t.TrimSpaces()
			if t.StripPrefix("Trigger:") {
				t.TrimSpaces()
				st.part.Trigger = t.String()
			}
			return nil
		}

	case 'e':
		// events:
		if t.StripPrefix("vents:") {
			st.setEvents(t)
			return nil
		}
		// event:<name>[=<formula>][:<long name>]
		if t.StripPrefix("vent:") {
			st.addEventType(t)
			return nil
		}

	case 'p':
		// part:
		if t.StripPrefix("art:") {
			st.part.Number = st.stripIntField(t, "part number")
			return nil
		}
		// pid:
		if t.StripPrefix("id:") {
			st.part.PID = st.stripIntField(t, "process id")
			return nil
		}
		// positions:
		if t.StripPrefix("ositions:") {
			spec := t.String()
			st.hasLineInfo = strings.Contains(spec, "line")
			st.hasAddrInfo = strings.Contains(spec, "instr")
			return nil
		}

	case 'v':
		// version:
		if t.StripPrefix("ersion:") {
			t.TrimSpaces()
			st.part.Version = t.String()
			return nil
		}

	case 's':
		// summary:
		if t.StripPrefix("ummary:") {
			if st.sub == nil {
				return &ImportError{FileName: st.fileName, Line: st.lineNo,
					Msg: "summary line before any events: declaration"}
			}
			var v profile.CostVector
			st.sub.AddSlots(&v, st.parseCostValues(t))
			st.part.SetSummary(v)
			return nil
		}

	case 'r':
		// rcalls= is emitted by old producers; treat it like
		// calls=, the recursive cost is discarded later anyway.
		if t.StripPrefix("calls=") {
			st.callCount, _ = t.StripUint64(true)
			st.nextLineType = callCostLine
			st.diag("deprecated rcalls= line, handled as calls=")
			return nil
		}
	}

	st.diag(fmt.Sprintf("invalid line %q", string(c)+t.String()))
	return nil
}

// addCost attaches the tail of a successfully decoded position line
// according to the pending line classification.
func (st *importState) addCost(t *Tokenizer) error {
	if st.sub == nil {
		return &ImportError{FileName: st.fileName, Line: st.lineNo,
			Msg: "cost line before any events: declaration"}
	}

	// A cost line always needs a current function.
	st.ensureFunction()

	if st.hasAddrInfo {
		if st.currentInstr == nil || st.currentInstr.Addr != st.pos.FromAddr {
			st.currentInstr = st.prof.Instr(st.currentFunction, st.pos.FromAddr)
			st.currentInstrCost = st.part.EnsureInstrCost(st.currentInstr)
		}
	}
	if st.hasLineInfo {
		if st.currentLine == nil || st.currentLine.Number != st.pos.FromLine {
			st.ensureFile()
			st.currentLine = st.prof.Line(st.currentFunction, st.currentFile, st.pos.FromLine)
			st.currentLineCost = st.part.EnsureLineCost(st.currentLine)
		}
		if st.hasAddrInfo && st.currentInstr != nil {
			st.prof.BindInstrLine(st.currentInstr, st.currentLine)
		}
	}

	switch st.nextLineType {
	case selfCostLine:
		vals := st.parseCostValues(t)
		if st.hasAddrInfo && st.currentInstrCost != nil {
			st.sub.AddSlots(&st.currentInstrCost.Self, vals)
		}
		if st.hasLineInfo && st.currentLineCost != nil {
			st.sub.AddSlots(&st.currentLineCost.Self, vals)
		}
		st.sub.AddSlots(&st.currentFnCost.Self, vals)

	case callCostLine:
		st.nextLineType = selfCostLine
		vals := st.parseCostValues(t)
		if st.calledFunction == nil {
			st.diag("call cost without a called function")
			st.clearCall()
			return nil
		}
		call := st.prof.Call(st.currentFunction, st.calledFunction)
		cc := st.part.EnsureCallCost(call)
		cc.Count += st.callCount
		st.sub.AddSlots(&cc.Cost, vals)
		st.currentFnCost.CalledCount += st.callCount

		if st.hasAddrInfo && st.currentInstr != nil {
			site := cc.EnsureInstrSite(st.currentInstr)
			site.Count += st.callCount
			st.sub.AddSlots(&site.Cost, vals)
			st.prof.UpdateCallMax(site.Cost)
		}
		if st.hasLineInfo && st.currentLine != nil {
			site := cc.EnsureLineSite(st.currentLine)
			site.Count += st.callCount
			st.sub.AddSlots(&site.Cost, vals)
			st.prof.UpdateCallMax(site.Cost)
		}
		st.clearCall()

	default: // boringJumpLine, condJumpLine
		cond := st.nextLineType == condJumpLine
		st.nextLineType = selfCostLine
		to := st.jumpToFunction
		if to == nil {
			to = st.currentFunction
		}
		j := profile.Jump{
			From:        st.currentFunction,
			To:          to,
			Conditional: cond,
			Executed:    st.jumpsExecuted,
			Followed:    st.jumpsFollowed,
		}
		if st.hasLineInfo {
			j.FromLine, j.ToLine = st.pos.FromLine, st.targetPos.FromLine
		}
		if st.hasAddrInfo {
			j.FromAddr, j.ToAddr = st.pos.FromAddr, st.targetPos.FromAddr
		}
		st.part.AddJump(j)
		st.jumpToFunction = nil
		st.jumpToFile = nil
		st.jumpsExecuted, st.jumpsFollowed = 0, 0
	}
	return nil
}

// finish commits the part: totals are recomputed from the recorded
// function self costs (the authoritative value; a declared summary is
// only cross-checked), then the part becomes visible in the profile.
func (st *importState) finish() {
	st.part.Events = st.sub
	st.part.RecomputeTotals(st.prof.EventTypes().Len())
	if s := st.part.Summary(); s != nil && !s.Equal(st.part.Totals) {
		st.diag("declared summary differs from recomputed totals")
	}
	st.prof.AddPart(st.part)
	if st.imp.Progress != nil {
		st.imp.Progress(st.fileName, 100)
	}
	level.Debug(st.logger).Log("msg", "trace loaded", "lines", st.lineNo, "diagnostics", len(st.diags))
}

// parseCostValues reads the whitespace-separated counters at the tail
// of a cost line, at most one per active mapping slot. Missing
// trailing counters are implicitly zero; the returned slice is scratch
// space reused across lines.
func (st *importState) parseCostValues(t *Tokenizer) []uint64 {
	vals := st.costBuf[:0]
	for i := 0; i < st.sub.Count(); i++ {
		t.StripSpaces()
		v, ok := t.StripUint64(true)
		if !ok {
			break
		}
		vals = append(vals, v)
	}
	st.costBuf = vals
	return vals
}

func (st *importState) setEvents(t *Tokenizer) {
	var names []string
	for {
		t.StripSpaces()
		name, ok := t.StripName()
		if !ok {
			break
		}
		names = append(names, string(name))
	}
	st.sub = st.prof.EventTypes().SubMapping(names)
}

func (st *importState) addEventType(t *Tokenizer) {
	t.TrimSpaces()
	name, ok := t.StripName()
	if !ok {
		st.diag("invalid event declaration")
		return
	}
	t.StripSpaces()
	var formula string
	if c, ok := t.First(); ok {
		if c == '=' {
			t.StripFirst()
			formula = strings.TrimSpace(string(t.StripUntil(':')))
		} else if c == ':' {
			t.StripFirst()
		}
	}
	t.TrimSpaces()
	st.prof.EventTypes().AddType(string(name), t.String(), formula)
}

// stripIntField parses a small decimal metadata field, reporting a
// diagnostic and returning 0 on malformed input.
func (st *importState) stripIntField(t *Tokenizer, what string) int {
	t.TrimSpaces()
	v, ok := t.StripUint(true)
	if !ok {
		st.diag("invalid " + what)
		return 0
	}
	return int(v)
}

func (st *importState) updateProgress() {
	if st.totalBytes <= 0 {
		return
	}
	pct := int((100*st.readBytes + st.totalBytes/2) / st.totalBytes)
	if pct == st.lastProgress {
		return
	}
	st.lastProgress = pct
	if st.imp.Progress != nil {
		st.imp.Progress(st.fileName, pct)
	}
}

func (st *importState) diag(msg string) {
	st.diags = append(st.diags, Diagnostic{FileName: st.fileName, Line: st.lineNo, Msg: msg})
	st.metrics.diagnostics.Inc()
	level.Warn(st.logger).Log("msg", msg, "line", st.lineNo)
}

// Current-entity setters. Setting a new object or file invalidates the
// slots derived from it; setting a new function resets any pending
// line and instruction.

func (st *importState) setObject(t *Tokenizer) {
	st.currentObject = st.compressedObject(t)
	if st.currentObject == nil {
		st.diag("invalid object specification, using '" + profile.Unknown + "'")
		st.currentObject = st.prof.Object(profile.Unknown)
	}
	st.currentFunction = nil
	st.currentFnCost = nil
}

func (st *importState) setFile(t *Tokenizer) {
	st.currentFile = st.compressedFile(t)
	if st.currentFile == nil {
		st.diag("invalid file specification, using '" + profile.Unknown + "'")
		st.currentFile = st.prof.File(profile.Unknown)
	}
	st.currentLine = nil
	st.currentLineCost = nil
}

func (st *importState) setFunction(t *Tokenizer) {
	st.ensureFile()
	st.ensureObject()

	fn := st.compressedFunction(t, st.currentFile, st.currentObject)
	if fn == nil {
		st.diag("invalid function specification, using '" + profile.Unknown + "'")
		fn = st.unknownFunction()
	}
	st.currentFunction = fn
	st.currentFnCost = st.part.EnsureFunctionCost(fn)

	st.currentLine = nil
	st.currentLineCost = nil
	st.currentInstr = nil
	st.currentInstrCost = nil
}

func (st *importState) setCalledObject(t *Tokenizer) {
	st.calledObject = st.compressedObject(t)
	if st.calledObject == nil {
		st.diag("invalid called object specification, using '" + profile.Unknown + "'")
		st.calledObject = st.prof.Object(profile.Unknown)
	}
}

func (st *importState) setCalledFile(t *Tokenizer) {
	st.calledFile = st.compressedFile(t)
	if st.calledFile == nil {
		st.diag("invalid called file specification, using '" + profile.Unknown + "'")
		st.calledFile = st.prof.File(profile.Unknown)
	}
}

func (st *importState) setCalledFunction(t *Tokenizer) {
	// Unset called object and file default to the current ones.
	if st.calledObject == nil {
		st.calledObject = st.currentObject
		if st.calledObject == nil {
			st.calledObject = st.prof.Object(profile.Unknown)
		}
	}
	if st.calledFile == nil {
		st.calledFile = st.currentFile
		if st.calledFile == nil {
			st.calledFile = st.prof.File(profile.Unknown)
		}
	}
	st.calledFunction = st.compressedFunction(t, st.calledFile, st.calledObject)
	if st.calledFunction == nil {
		st.diag("invalid called function specification, using '" + profile.Unknown + "'")
		st.calledFunction = st.unknownFunction()
	}
}

func (st *importState) clearCall() {
	st.calledObject = nil
	st.calledFile = nil
	st.calledFunction = nil
	st.callCount = 0
}

// ensureObject makes sure a current object is set, substituting the
// sentinel if the trace never named one.
func (st *importState) ensureObject() {
	if st.currentObject != nil {
		return
	}
	st.diag("object name not set, using '" + profile.Unknown + "'")
	st.currentObject = st.prof.Object(profile.Unknown)
}

// ensureFile makes sure a current file is set, substituting the
// sentinel if the trace never named one.
func (st *importState) ensureFile() {
	if st.currentFile != nil {
		return
	}
	st.diag("source file name not set, using '" + profile.Unknown + "'")
	st.currentFile = st.prof.File(profile.Unknown)
}

// ensureFunction makes sure a current function is set, substituting
// the sentinel if the trace never named one.
func (st *importState) ensureFunction() {
	if st.currentFunction != nil {
		return
	}
	st.diag("function name not set, using '" + profile.Unknown + "'")
	st.currentFunction = st.unknownFunction()
	st.currentFnCost = st.part.EnsureFunctionCost(st.currentFunction)
}

// unknownFunction returns the sentinel function. Its identity is
// context independent so that all orphan costs of a program land on
// one node.
func (st *importState) unknownFunction() *profile.Function {
	return st.prof.Function(profile.Unknown,
		st.prof.File(profile.Unknown), st.prof.Object(profile.Unknown))
}

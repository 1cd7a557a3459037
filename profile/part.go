// Copyright 2024 The cgrind Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package profile

// A Part is one imported trace file: a single profiled run, process,
// or thread. It carries the part's metadata and the per-part cost
// records for every shared entity the trace touched.
//
// A Part is exclusively owned by its importer until it is published
// with Profile.AddPart. After publication it must be treated as
// read-only.
type Part struct {
	// FileName is the path the part was imported from.
	FileName string

	PID       int
	ThreadID  int
	Number    int
	Version   string
	Trigger   string
	Timeframe string

	// Events is the slot mapping declared by the part's "events:"
	// directive: the cost channels this part recorded.
	Events *SubMapping

	// Totals is the sum of all self costs recorded against the part.
	// It is recomputed from the committed records after import;
	// an explicit "summary:" vector in the input is kept separately
	// and only cross-checked.
	Totals CostVector

	summary CostVector

	fnCost    map[*Function]*FunctionCost
	lineCost  map[*Line]*LineCost
	instrCost map[*Instr]*InstrCost
	callCost  map[*Call]*CallCost
	jumps     []Jump
}

// A FunctionCost is a function's per-part cost record.
type FunctionCost struct {
	Self CostVector

	// CalledCount is the number of times calls from this function
	// were recorded in this part.
	CalledCount uint64
}

// A LineCost is a source line's per-part self-cost record.
type LineCost struct {
	Self CostVector
}

// An InstrCost is an instruction's per-part self-cost record.
type InstrCost struct {
	Self CostVector
}

// A CallCost is a call edge's per-part aggregate: the call count and
// cost summed over all call sites, plus optional per-line and
// per-instruction site records.
type CallCost struct {
	Count uint64
	Cost  CostVector

	lineSites  map[*Line]*CallSiteCost
	instrSites map[*Instr]*CallSiteCost
}

// A CallSiteCost is the call count and cost attributed to one call
// site (a line or an instruction) of a call edge.
type CallSiteCost struct {
	Count uint64
	Cost  CostVector
}

// A Jump is a per-part control-flow record. Jumps carry execution
// counters only, never cost vectors.
type Jump struct {
	From *Function
	To   *Function

	FromLine int
	ToLine   int
	FromAddr uint64
	ToAddr   uint64

	// Conditional distinguishes conditional jumps, which track how
	// often the jump was followed in addition to how often it was
	// executed.
	Conditional bool

	Executed uint64
	Followed uint64
}

// NewPart returns an empty part for the given input file.
func NewPart(fileName string) *Part {
	return &Part{
		FileName:  fileName,
		fnCost:    make(map[*Function]*FunctionCost),
		lineCost:  make(map[*Line]*LineCost),
		instrCost: make(map[*Instr]*InstrCost),
		callCost:  make(map[*Call]*CallCost),
	}
}

// EnsureFunctionCost returns fn's cost record in this part, creating
// it on first sight.
func (p *Part) EnsureFunctionCost(fn *Function) *FunctionCost {
	fc, ok := p.fnCost[fn]
	if !ok {
		fc = new(FunctionCost)
		p.fnCost[fn] = fc
	}
	return fc
}

// EnsureLineCost returns l's cost record in this part, creating it on
// first sight.
func (p *Part) EnsureLineCost(l *Line) *LineCost {
	lc, ok := p.lineCost[l]
	if !ok {
		lc = new(LineCost)
		p.lineCost[l] = lc
	}
	return lc
}

// EnsureInstrCost returns in's cost record in this part, creating it
// on first sight.
func (p *Part) EnsureInstrCost(in *Instr) *InstrCost {
	ic, ok := p.instrCost[in]
	if !ok {
		ic = new(InstrCost)
		p.instrCost[in] = ic
	}
	return ic
}

// EnsureCallCost returns c's aggregate record in this part, creating
// it on first sight.
func (p *Part) EnsureCallCost(c *Call) *CallCost {
	cc, ok := p.callCost[c]
	if !ok {
		cc = &CallCost{
			lineSites:  make(map[*Line]*CallSiteCost),
			instrSites: make(map[*Instr]*CallSiteCost),
		}
		p.callCost[c] = cc
	}
	return cc
}

// EnsureLineSite returns the call-site record for line l, creating it
// on first sight.
func (c *CallCost) EnsureLineSite(l *Line) *CallSiteCost {
	sc, ok := c.lineSites[l]
	if !ok {
		sc = new(CallSiteCost)
		c.lineSites[l] = sc
	}
	return sc
}

// EnsureInstrSite returns the call-site record for instruction in,
// creating it on first sight.
func (c *CallCost) EnsureInstrSite(in *Instr) *CallSiteCost {
	sc, ok := c.instrSites[in]
	if !ok {
		sc = new(CallSiteCost)
		c.instrSites[in] = sc
	}
	return sc
}

// LineSites returns the per-line call-site records.
func (c *CallCost) LineSites() map[*Line]*CallSiteCost { return c.lineSites }

// InstrSites returns the per-instruction call-site records.
func (c *CallCost) InstrSites() map[*Instr]*CallSiteCost { return c.instrSites }

// FunctionCosts returns the part's function cost records. The map is
// owned by the part; callers must not modify it.
func (p *Part) FunctionCosts() map[*Function]*FunctionCost { return p.fnCost }

// LineCosts returns the part's line cost records.
func (p *Part) LineCosts() map[*Line]*LineCost { return p.lineCost }

// InstrCosts returns the part's instruction cost records.
func (p *Part) InstrCosts() map[*Instr]*InstrCost { return p.instrCost }

// CallCosts returns the part's call cost records.
func (p *Part) CallCosts() map[*Call]*CallCost { return p.callCost }

// AddJump appends a control-flow record.
func (p *Part) AddJump(j Jump) { p.jumps = append(p.jumps, j) }

// Jumps returns the part's control-flow records in input order.
func (p *Part) Jumps() []Jump { return p.jumps }

// SetSummary records the summary vector declared by the input.
func (p *Part) SetSummary(v CostVector) { p.summary = v.Clone() }

// Summary returns the summary vector declared by the input, or nil.
func (p *Part) Summary() CostVector { return p.summary }

// RecomputeTotals replaces Totals with the sum of the part's function
// self costs, zero-extended to width slots. Every cost line of a trace
// contributes to exactly one function's self cost, so this sum is the
// authoritative part total regardless of any declared summary.
func (p *Part) RecomputeTotals(width int) {
	var v CostVector
	for _, fc := range p.fnCost {
		v.AddVector(fc.Self)
	}
	v.Grow(width)
	p.Totals = v
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: tracer.go
Description: Per-execution line tracer. Receives every (function, line) event of one run,
applies the campaign's one-shot offset correction on the first entry-function event,
maintains the trailing fingerprint window and forwards branch-entry hits to the builder.
*/

package coverage

import (
	"github.com/sirupsen/logrus"
)

// TeardownFunc is the name of the optional target cleanup routine. It runs while the
// tracer is still installed and its events are never recorded, whether it is a
// function or a method.
const TeardownFunc = "Teardown"

// Tracer implements probe.Hook for exactly one execution
type Tracer struct {
	campaign *Campaign
	builder  *SignatureBuilder

	window     []int
	branchHits []SourceLine
	events     int
	last       TraceEvent

	finished  bool
	signature Signature
}

func newTracer(c *Campaign) *Tracer {
	var depth *NestingDepthTable
	if c.model.DepthWeighting {
		depth = c.depth
	}
	return &Tracer{
		campaign: c,
		builder:  NewSignatureBuilder(c.model, depth),
		window:   make([]int, 0, c.model.FingerprintWindow),
	}
}

// Line handles one trace event
func (t *Tracer) Line(function string, line int) {
	if t.finished {
		return
	}
	c := t.campaign
	entries := c.entries

	if function == c.entryFunc && !entries.Corrected() {
		offset, _ := entries.Correct(line)
		c.logger.WithFields(logrus.Fields{
			"entry_func": function,
			"first_line": line,
			"offset":     offset,
		}).Debug("Branch entries corrected")
	}

	if c.ignored(function) {
		return
	}
	t.events++
	t.last = TraceEvent{Func: function, Line: line}

	if c.model.Fingerprint && (!c.model.FingerprintBeforeFinalBranch || line < entries.Final()) {
		t.window = append(t.window, line)
		if len(t.window) == c.model.FingerprintWindow {
			t.window = t.window[:0]
		}
	}

	if entries.Contains(line - 1) {
		t.branchHits = append(t.branchHits, line-1)
	}

	if entries.Contains(line) {
		t.builder.Add(line)
	}
}

// Finish ends the execution, releases the campaign and returns the signature.
// Further calls return the same signature.
func (t *Tracer) Finish() Signature {
	if t.finished {
		return t.signature.Clone()
	}
	t.finished = true

	c := t.campaign
	if !c.entries.Corrected() {
		c.logger.WithField("entry_func", c.entryFunc).Debug("Entry function not reached, branch entries left uncorrected")
	}
	t.signature = t.builder.Build(Tuple(t.window))
	if c.model.DepthWeighting {
		c.depth.EndExecution()
	}
	c.release()

	return t.signature.Clone()
}

// BranchHits returns the branch entries whose following line executed
func (t *Tracer) BranchHits() []SourceLine {
	return append([]SourceLine(nil), t.branchHits...)
}

// Events returns the number of recorded events
func (t *Tracer) Events() int {
	return t.events
}

// LastEvent returns the most recent recorded event
func (t *Tracer) LastEvent() TraceEvent {
	return t.last
}

// BranchEntryHits returns the number of branch entries forwarded to the builder
func (t *Tracer) BranchEntryHits() int {
	return t.builder.Hits()
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: runner.go
Description: In-process instrumented runner. Executes the target's entry function on one
input with a fresh tracer installed for exactly the duration of the call, recovers
panics into crash outcomes and always produces the coverage signature of the run.
*/

package execution

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/probe"
	"github.com/kleascm/akaylee-greybox/pkg/targets"
	"github.com/sirupsen/logrus"
)

// Status is the outcome class of one execution
type Status int

const (
	StatusPass    Status = iota // entry function returned nil
	StatusFail                  // entry function returned an error
	StatusCrash                 // entry function panicked
	StatusSkipped               // context cancelled before execution
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL"
	case StatusCrash:
		return "CRASH"
	case StatusSkipped:
		return "SKIPPED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// CrashSignal carries a recovered panic
type CrashSignal struct {
	Value interface{} `json:"value"`
	Stack []byte      `json:"stack"`
}

func (c *CrashSignal) Error() string {
	return fmt.Sprintf("target panicked: %v", c.Value)
}

// Unwrap exposes a panic value that is itself an error
func (c *CrashSignal) Unwrap() error {
	if err, ok := c.Value.(error); ok {
		return err
	}
	return nil
}

// Outcome is the Result-style record of one execution
type Outcome struct {
	Input      string                `json:"input"`
	Status     Status                `json:"status"`
	Err        error                 `json:"-"`
	Crash      *CrashSignal          `json:"crash,omitempty"`
	Duration   time.Duration         `json:"duration"`
	Events     int                   `json:"events"`
	BranchHits []coverage.SourceLine `json:"branch_hits"`
}

// Runner executes one target under a coverage campaign
type Runner struct {
	target   targets.Target
	campaign *coverage.Campaign
	logger   logrus.FieldLogger

	last     coverage.Signature
	lastHits []coverage.SourceLine
}

// NewRunner creates a runner. logger may be nil.
func NewRunner(target targets.Target, campaign *coverage.Campaign, logger logrus.FieldLogger) (*Runner, error) {
	if target == nil {
		return nil, errors.New("target is required")
	}
	if campaign == nil {
		return nil, errors.New("campaign is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{
		target:   target,
		campaign: campaign,
		logger:   logger.WithField("target", target.Name()),
	}, nil
}

// Execute runs the entry function on input. The signature is captured before the
// outcome is returned, on every exit path. A cancelled context skips the execution.
func (r *Runner) Execute(ctx context.Context, input string) (outcome *Outcome, sig coverage.Signature) {
	if err := ctx.Err(); err != nil {
		return &Outcome{Input: input, Status: StatusSkipped, Err: err}, nil
	}

	tracer := r.campaign.NewTracer()
	restore := probe.Install(tracer)
	start := time.Now()

	defer func() {
		restore()
		sig = tracer.Finish()

		outcome.Duration = time.Since(start)
		outcome.Events = tracer.Events()
		outcome.BranchHits = tracer.BranchHits()

		r.last = sig
		r.lastHits = outcome.BranchHits

		if outcome.Status == StatusCrash {
			r.logger.WithFields(logrus.Fields{
				"input":      input,
				"panic":      fmt.Sprint(outcome.Crash.Value),
				"last_event": tracer.LastEvent(),
			}).Debug("Target crashed")
		}
	}()

	outcome = r.invoke(input)
	return outcome, nil
}

// invoke calls the entry function and its teardown, converting panics to crashes
func (r *Runner) invoke(input string) (out *Outcome) {
	out = &Outcome{Input: input, Status: StatusPass}

	defer func() {
		if v := recover(); v != nil {
			out.Status = StatusCrash
			out.Crash = &CrashSignal{Value: v, Stack: debug.Stack()}
			out.Err = out.Crash
		}
	}()
	defer r.teardown()

	if err := r.target.Entrypoint(input); err != nil {
		out.Status = StatusFail
		out.Err = err
	}
	return out
}

func (r *Runner) teardown() {
	if td, ok := r.target.(targets.Teardowner); ok {
		td.Teardown()
	}
}

// Coverage returns the signature of the most recent execution
func (r *Runner) Coverage() coverage.Signature {
	return r.last.Clone()
}

// BranchHits returns the branch-hit markers of the most recent execution
func (r *Runner) BranchHits() []coverage.SourceLine {
	return append([]coverage.SourceLine(nil), r.lastHits...)
}

// Campaign returns the coverage campaign the runner reports to
func (r *Runner) Campaign() *coverage.Campaign {
	return r.campaign
}

// Target returns the target under test
func (r *Runner) Target() targets.Target {
	return r.target
}

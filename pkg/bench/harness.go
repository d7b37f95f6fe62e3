/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: harness.go
Description: Benchmark harness. Launches a fuzzer executable once per seed input as a
separate process and records the wall-clock time until it exits with the bug exit code.
Runs that end any other way, or fail to start, are recorded with the not-found sentinel.
*/

package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kleascm/akaylee-greybox/pkg/execution"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// BugExitCode is the exit code a fuzzer uses to announce the bug was found
	BugExitCode = 219

	// NotFound marks a run that did not find the bug
	NotFound = -1.0
)

// Harness runs one fuzzer over a list of seeds
type Harness struct {
	Fuzzer   string        // path to the fuzzer executable
	Args     []string      // arguments placed before the seed
	Seeds    []string      // one run per seed, seed appended as the last argument
	Timeout  time.Duration // per-run limit, zero means none
	Parallel int           // concurrent runs, default 1
	BugCode  int           // defaults to BugExitCode

	Logger   logrus.FieldLogger
	Executor *execution.ProcessExecutor
}

// Run executes every seed and returns the per-seed report. An invalid fuzzer path is
// an error and no run is attempted. Individual run failures never abort the sweep.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	logger := h.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	executor := h.Executor
	if executor == nil {
		executor = execution.NewProcessExecutor()
	}
	bugCode := h.BugCode
	if bugCode == 0 {
		bugCode = BugExitCode
	}
	parallel := h.Parallel
	if parallel < 1 {
		parallel = 1
	}

	if err := executor.Validate(execution.ProcessSpec{Path: h.Fuzzer}); err != nil {
		return nil, fmt.Errorf("path invalid: %w", err)
	}
	if len(h.Seeds) == 0 {
		return nil, errors.New("no seeds to run")
	}

	report := &Report{
		Fuzzer: h.Fuzzer,
		Seeds:  append([]string(nil), h.Seeds...),
		Values: make([]float64, len(h.Seeds)),
	}
	for i := range report.Values {
		report.Values[i] = NotFound
	}

	logger.WithFields(logrus.Fields{
		"fuzzer":   h.Fuzzer,
		"runs":     len(h.Seeds),
		"parallel": parallel,
	}).Info("Benchmark started")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, seed := range h.Seeds {
		i, seed := i, seed
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			report.Values[i] = h.runOne(gctx, executor, logger, bugCode, i, seed)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	logger.WithFields(logrus.Fields{
		"fuzzer": h.Fuzzer,
		"found":  report.Found(),
		"runs":   len(report.Values),
	}).Info("Benchmark finished")

	return report, nil
}

// runOne launches the fuzzer for one seed and returns seconds to the bug or NotFound
func (h *Harness) runOne(ctx context.Context, executor *execution.ProcessExecutor, logger logrus.FieldLogger, bugCode, index int, seed string) float64 {
	args := append(append([]string(nil), h.Args...), seed)
	fields := logrus.Fields{"run": index, "seed": seed}

	start := time.Now()
	result, err := executor.Run(ctx, execution.ProcessSpec{
		Path:    h.Fuzzer,
		Args:    args,
		Timeout: h.Timeout,
	})
	elapsed := time.Since(start)

	if err != nil {
		logger.WithFields(fields).WithError(err).Warn("Benchmark run failed to start")
		return NotFound
	}

	fields["exit_code"] = result.ExitCode
	fields["status"] = result.Status.String()
	fields["duration"] = elapsed

	if result.Status == execution.ProcessExited && result.ExitCode == bugCode {
		logger.WithFields(fields).Info("Benchmark run found the bug")
		return elapsed.Seconds()
	}

	logger.WithFields(fields).Debug("Benchmark run ended without the bug")
	return NotFound
}

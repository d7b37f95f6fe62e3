/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: worker.go
Description: Worker implementation for the Akaylee Greybox engine. Wraps an executor,
tracks per-worker execution counters and peak heap usage, and logs every execution at
debug level with the target name attached.
*/

package core

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/execution"
	"github.com/sirupsen/logrus"
)

// memSampleEvery controls how often the worker samples heap usage
const memSampleEvery = 256

// Worker executes inputs against one target
// The engine drives a single worker since the tracer is campaign-exclusive
type Worker struct {
	ID       int
	Target   string
	executor Executor
	logger   logrus.FieldLogger

	// Performance tracking
	executions int64
	crashes    int64
	failures   int64
	busy       time.Duration
	startTime  time.Time
	peakMemory uint64

	mu sync.RWMutex
}

// NewWorker creates a new worker instance
func NewWorker(id int, executor Executor, logger logrus.FieldLogger, target string) (*Worker, error) {
	if executor == nil {
		return nil, errors.New("executor is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Worker{
		ID:        id,
		Target:    target,
		executor:  executor,
		logger:    logger.WithFields(logrus.Fields{"worker_id": id, "target": target}),
		startTime: time.Now(),
	}, nil
}

// Execute runs one input and updates the worker counters
func (w *Worker) Execute(ctx context.Context, input string) (*execution.Outcome, coverage.Signature) {
	outcome, sig := w.executor.Execute(ctx, input)

	w.mu.Lock()
	if outcome.Status != execution.StatusSkipped {
		w.executions++
		w.busy += outcome.Duration
	}
	switch outcome.Status {
	case execution.StatusCrash:
		w.crashes++
	case execution.StatusFail:
		w.failures++
	}
	sample := w.executions%memSampleEvery == 1
	w.mu.Unlock()

	if sample {
		w.sampleMemory()
	}

	w.logger.WithFields(logrus.Fields{
		"input":    input,
		"status":   outcome.Status.String(),
		"duration": outcome.Duration,
		"events":   outcome.Events,
	}).Trace("Execution finished")

	return outcome, sig
}

// sampleMemory records the peak heap allocation observed
func (w *Worker) sampleMemory() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	w.mu.Lock()
	if m.HeapAlloc > w.peakMemory {
		w.peakMemory = m.HeapAlloc
	}
	w.mu.Unlock()
}

// GetStats returns worker statistics
func (w *Worker) GetStats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	uptime := time.Since(w.startTime)
	avg := time.Duration(0)
	if w.executions > 0 {
		avg = w.busy / time.Duration(w.executions)
	}

	return map[string]interface{}{
		"id":              w.ID,
		"target":          w.Target,
		"executions":      w.executions,
		"crashes":         w.crashes,
		"failures":        w.failures,
		"avg_execution":   avg.String(),
		"uptime":          uptime.String(),
		"peak_heap_bytes": w.peakMemory,
	}
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: executor.go
Description: Process executor for whole fuzzer runs. Launches one fuzzer process with its
arguments, waits for it under an optional timeout and reports exit code, terminating
signal and wall-clock duration. Live child processes are tracked so they can be killed
on shutdown.
*/

package execution

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// ProcessStatus classifies how a process ended
type ProcessStatus int

const (
	ProcessExited   ProcessStatus = iota // normal exit, see ExitCode
	ProcessSignaled                      // killed by a signal
	ProcessTimeout                       // killed after the timeout elapsed
	ProcessCanceled                      // killed because the context was cancelled
)

func (s ProcessStatus) String() string {
	switch s {
	case ProcessExited:
		return "exited"
	case ProcessSignaled:
		return "signaled"
	case ProcessTimeout:
		return "timeout"
	case ProcessCanceled:
		return "canceled"
	}
	return fmt.Sprintf("ProcessStatus(%d)", int(s))
}

// maxCapture bounds the stderr tail kept per process
const maxCapture = 4096

const waitDelay = time.Second

// ProcessSpec describes one process launch
type ProcessSpec struct {
	Path    string        `json:"path"`
	Args    []string      `json:"args"`
	Env     []string      `json:"env"`
	Timeout time.Duration `json:"timeout"` // zero means no limit
}

// ProcessResult is the outcome of one launch
type ProcessResult struct {
	ExitCode int           `json:"exit_code"`
	Signal   int           `json:"signal"`
	Status   ProcessStatus `json:"status"`
	Duration time.Duration `json:"duration"`
	Stderr   []byte        `json:"stderr"`
}

// ProcessExecutor launches processes and keeps track of the ones still running
type ProcessExecutor struct {
	mu       sync.Mutex
	children map[int]*os.Process
}

// NewProcessExecutor creates a new process executor instance
func NewProcessExecutor() *ProcessExecutor {
	return &ProcessExecutor{children: make(map[int]*os.Process)}
}

// Validate checks that spec.Path names an executable file
func (e *ProcessExecutor) Validate(spec ProcessSpec) error {
	if spec.Path == "" {
		return errors.New("process path is empty")
	}
	if _, err := exec.LookPath(spec.Path); err != nil {
		return fmt.Errorf("invalid fuzzer path %s: %w", spec.Path, err)
	}
	return nil
}

// Run starts the process and waits for it. An error means the process could not be
// started at all; every other ending is described by the result.
func (e *ProcessExecutor) Run(ctx context.Context, spec ProcessSpec) (*ProcessResult, error) {
	runCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Path, spec.Args...)
	cmd.Env = append(os.Environ(), spec.Env...)
	stderr := &tailBuffer{limit: maxCapture}
	cmd.Stderr = stderr
	// grandchildren may hold stderr open after a kill
	cmd.WaitDelay = waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process: %w", err)
	}
	e.track(cmd.Process)
	defer e.untrack(cmd.Process)

	waitErr := cmd.Wait()
	result := &ProcessResult{
		Duration: time.Since(start),
		Stderr:   stderr.Bytes(),
		ExitCode: -1,
	}

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			result.Signal = int(ws.Signal())
			result.Status = ProcessSignaled
		}
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		result.Status = ProcessTimeout
	case ctx.Err() != nil:
		result.Status = ProcessCanceled
	case waitErr != nil && cmd.ProcessState == nil:
		return nil, fmt.Errorf("process error: %w", waitErr)
	}
	return result, nil
}

func (e *ProcessExecutor) track(p *os.Process) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.children[p.Pid] = p
}

func (e *ProcessExecutor) untrack(p *os.Process) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.children, p.Pid)
}

// Running returns the number of live child processes
func (e *ProcessExecutor) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.children)
}

// Cleanup kills every child process still running
func (e *ProcessExecutor) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for pid, p := range e.children {
		if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("kill %d: %w", pid, err))
		}
		delete(e.children, pid)
	}
	return errors.Join(errs...)
}

// tailBuffer keeps the last limit bytes written to it
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(p)
	t.buf.Write(p)
	if extra := t.buf.Len() - t.limit; extra > 0 {
		t.buf.Next(extra)
	}
	return n, nil
}

func (t *tailBuffer) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]byte(nil), t.buf.Bytes()...)
}

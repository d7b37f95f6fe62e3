/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: crash_triage.go
Description: Crash triage for recovered target panics. Classifies the panic value,
hashes the frames below the panic site for deduplication, and minimizes crashing
inputs by re-executing shrunken candidates until no single deletion still crashes.
*/

package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/execution"
)

// stackFrames is how many frames below the panic site feed the stack hash
const stackFrames = 5

// runnerPrefix marks the frames of the execution package. Frames from there up
// depend on who drove the runner, not on the crash.
var runnerPrefix = reflect.TypeOf(execution.Runner{}).PkgPath() + "."

// CrashSeverity represents the severity level of a crash
type CrashSeverity int

const (
	SeverityLow CrashSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns the string representation of crash severity
func (s CrashSeverity) String() string {
	switch s {
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// CrashType represents the kind of panic observed
type CrashType string

const (
	CrashTypeNilDereference  CrashType = "NIL_DEREFERENCE"
	CrashTypeIndexOutOfRange CrashType = "INDEX_OUT_OF_RANGE"
	CrashTypeDivideByZero    CrashType = "DIVIDE_BY_ZERO"
	CrashTypeTypeAssertion   CrashType = "TYPE_ASSERTION"
	CrashTypeRuntime         CrashType = "RUNTIME_ERROR"
	CrashTypeError           CrashType = "ERROR_VALUE" // panic(err)
	CrashTypeValue           CrashType = "PANIC_VALUE" // panic(anything else)
	CrashTypeUnknown         CrashType = "UNKNOWN"
)

// TriageResult contains the triage analysis of a crash
type TriageResult struct {
	Input        string        `json:"input"`
	Panic        string        `json:"panic"`
	CrashType    CrashType     `json:"crash_type"`
	Severity     CrashSeverity `json:"severity"`
	StackHash    string        `json:"stack_hash"`
	Frames       []string      `json:"frames"`
	Unique       bool          `json:"unique"`
	AnalysisTime time.Duration `json:"analysis_time"`
}

// Executor re-runs inputs during minimization
type Executor interface {
	Execute(ctx context.Context, input string) (*execution.Outcome, coverage.Signature)
}

// CrashTriageEngine classifies and deduplicates crashes
type CrashTriageEngine struct {
	crashPatterns map[CrashType]*regexp.Regexp
	order         []CrashType

	seen map[string]int // stack hash -> occurrences
	mu   sync.Mutex
}

// NewCrashTriageEngine creates a new crash triage engine
func NewCrashTriageEngine() *CrashTriageEngine {
	e := &CrashTriageEngine{
		crashPatterns: make(map[CrashType]*regexp.Regexp),
		seen:          make(map[string]int),
	}
	e.initializePatterns()
	return e
}

// initializePatterns sets up regex patterns for runtime error messages
func (e *CrashTriageEngine) initializePatterns() {
	e.crashPatterns[CrashTypeNilDereference] = regexp.MustCompile(`(?i)(nil pointer dereference|invalid memory address)`)
	e.crashPatterns[CrashTypeIndexOutOfRange] = regexp.MustCompile(`(?i)(index out of range|slice bounds out of range)`)
	e.crashPatterns[CrashTypeDivideByZero] = regexp.MustCompile(`(?i)integer divide by zero`)
	e.crashPatterns[CrashTypeTypeAssertion] = regexp.MustCompile(`(?i)interface conversion`)

	e.order = []CrashType{
		CrashTypeNilDereference,
		CrashTypeIndexOutOfRange,
		CrashTypeDivideByZero,
		CrashTypeTypeAssertion,
	}
}

// TriageCrash analyses one crashing outcome. Non-crash outcomes yield nil.
func (e *CrashTriageEngine) TriageCrash(outcome *execution.Outcome) *TriageResult {
	if outcome == nil || outcome.Status != execution.StatusCrash || outcome.Crash == nil {
		return nil
	}
	start := time.Now()

	frames := PanicFrames(outcome.Crash.Stack)
	result := &TriageResult{
		Input:     outcome.Input,
		Panic:     fmt.Sprint(outcome.Crash.Value),
		CrashType: e.classifyCrashType(outcome.Crash.Value),
		Frames:    frames,
		StackHash: stackHash(frames),
	}
	result.Severity = calculateSeverity(result.CrashType)

	e.mu.Lock()
	e.seen[result.StackHash]++
	result.Unique = e.seen[result.StackHash] == 1
	e.mu.Unlock()

	result.AnalysisTime = time.Since(start)
	return result
}

// UniqueCrashes returns how many distinct stack hashes were triaged
func (e *CrashTriageEngine) UniqueCrashes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.seen)
}

// classifyCrashType maps a panic value to a crash type
func (e *CrashTriageEngine) classifyCrashType(value interface{}) CrashType {
	switch v := value.(type) {
	case nil:
		return CrashTypeUnknown
	case runtime.Error:
		msg := v.Error()
		for _, t := range e.order {
			if e.crashPatterns[t].MatchString(msg) {
				return t
			}
		}
		return CrashTypeRuntime
	case error:
		return CrashTypeError
	default:
		return CrashTypeValue
	}
}

// calculateSeverity ranks memory-safety style runtime errors highest
func calculateSeverity(t CrashType) CrashSeverity {
	switch t {
	case CrashTypeNilDereference, CrashTypeIndexOutOfRange:
		return SeverityHigh
	case CrashTypeDivideByZero, CrashTypeTypeAssertion, CrashTypeRuntime:
		return SeverityMedium
	case CrashTypeError, CrashTypeValue:
		return SeverityLow
	default:
		return SeverityLow
	}
}

// PanicFrames returns the function names below the panic call in a debug.Stack dump,
// innermost first. Arguments and file offsets are dropped. Collection stops at the
// first frame of the execution package.
func PanicFrames(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")

	var funcs []string
	for _, line := range lines {
		if line == "" || strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "goroutine ") {
			continue
		}
		if i := strings.LastIndex(line, "("); i > 0 {
			line = line[:i]
		}
		funcs = append(funcs, line)
	}

	// frames above the last panic call belong to the recovery machinery
	start := 0
	for i, fn := range funcs {
		if fn == "panic" || strings.HasPrefix(fn, "runtime.gopanic") || strings.HasPrefix(fn, "runtime.panic") {
			start = i + 1
		}
	}

	var out []string
	for _, fn := range funcs[start:] {
		if strings.HasPrefix(fn, runnerPrefix) {
			break
		}
		if strings.HasPrefix(fn, "runtime.") {
			continue
		}
		out = append(out, fn)
		if len(out) == stackFrames {
			break
		}
	}
	return out
}

// stackHash creates a short hash of the frames for deduplication
func stackHash(frames []string) string {
	if len(frames) == 0 {
		return ""
	}
	h := sha256.Sum256([]byte(strings.Join(frames, "\n")))
	return hex.EncodeToString(h[:])[:16]
}

// CrashMinimizer defines the interface for crash minimization strategies
type CrashMinimizer interface {
	Minimize(ctx context.Context, input string, crashes func(string) bool) string
	Name() string
}

// CharwiseMinimizer deletes one character at a time, keeping every deletion that
// still crashes, until a full pass removes nothing
type CharwiseMinimizer struct {
	MaxExecutions int // zero means unlimited
}

// Minimize returns the smallest input found that still crashes
func (m *CharwiseMinimizer) Minimize(ctx context.Context, input string, crashes func(string) bool) string {
	executions := 0
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(input); {
			if ctx.Err() != nil || (m.MaxExecutions > 0 && executions >= m.MaxExecutions) {
				return input
			}
			candidate := input[:i] + input[i+1:]
			executions++
			if crashes(candidate) {
				input = candidate
				changed = true
				continue
			}
			i++
		}
	}
	return input
}

// Name returns the minimizer name
func (m *CharwiseMinimizer) Name() string {
	return "CharwiseMinimizer"
}

// MinimizeCrash shrinks result.Input while the executor still reports a crash with the
// same stack hash
func (e *CrashTriageEngine) MinimizeCrash(ctx context.Context, exec Executor, result *TriageResult, minimizer CrashMinimizer) string {
	if minimizer == nil {
		minimizer = &CharwiseMinimizer{}
	}
	return minimizer.Minimize(ctx, result.Input, func(candidate string) bool {
		outcome, _ := exec.Execute(ctx, candidate)
		if outcome.Status != execution.StatusCrash || outcome.Crash == nil {
			return false
		}
		return stackHash(PanicFrames(outcome.Crash.Stack)) == result.StackHash
	})
}

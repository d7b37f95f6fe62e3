/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: engine.go
Description: Greybox fuzzing engine. Runs the initial seeds, then repeatedly picks a seed
through the power schedule, stacks random mutations on it and executes the candidate.
Inputs whose coverage signature was never seen before are retained in the population,
and every execution bumps the frequency of its path for the schedule.
*/

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kleascm/akaylee-greybox/pkg/analysis"
	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/execution"
	"github.com/sirupsen/logrus"
)

// maxStackExponent bounds the stacked mutation count at 1<<maxStackExponent
const maxStackExponent = 5

// NewRand returns a deterministic source for seed != 0 and a time-seeded one otherwise
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Engine drives one greybox campaign against one executor
type Engine struct {
	config *FuzzerConfig
	stats  *FuzzerStats
	logger *logrus.Logger

	// Core components
	worker    *Worker
	mutator   Mutator
	schedule  PowerSchedule
	corpus    *Corpus
	reporters []Reporter
	triage    *analysis.CrashTriageEngine
	rng       *rand.Rand

	// Campaign state
	seeds         []string
	seedIndex     int
	seen          map[string]struct{}
	pathFrequency PathFrequency
	crashes       []*execution.Outcome
	triaged       []*analysis.TriageResult

	lastStatsUpdate time.Time
	lastStatsExecs  int64

	mu sync.RWMutex
}

// NewEngine creates an engine. seeds are executed in order before any mutation.
// rng drives both seed choice and candidate stacking; nil derives one from config.RandSeed.
func NewEngine(config *FuzzerConfig, executor Executor, mutator Mutator, seeds []string, rng *rand.Rand, logger *logrus.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if mutator == nil {
		return nil, errors.New("mutator is required")
	}
	if len(seeds) == 0 {
		return nil, errors.New("at least one seed is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if rng == nil {
		rng = NewRand(config.RandSeed)
	}

	schedule, err := NewSchedule(config.Schedule, config.Exponent)
	if err != nil {
		return nil, err
	}

	worker, err := NewWorker(0, executor, logger, config.Target)
	if err != nil {
		return nil, err
	}

	return &Engine{
		config:        config,
		stats:         &FuzzerStats{},
		logger:        logger,
		worker:        worker,
		mutator:       mutator,
		schedule:      schedule,
		corpus:        NewCorpus(config.MaxCorpusSize),
		triage:        analysis.NewCrashTriageEngine(),
		rng:           rng,
		seeds:         append([]string(nil), seeds...),
		seen:          make(map[string]struct{}),
		pathFrequency: make(PathFrequency),
	}, nil
}

// SetSchedule replaces the power schedule
func (e *Engine) SetSchedule(schedule PowerSchedule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.schedule = schedule
}

// AddReporter registers a telemetry reporter
func (e *Engine) AddReporter(reporter Reporter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reporters = append(e.reporters, reporter)
}

// Run fuzzes until the trial or duration budget is spent, the parent context is
// cancelled, or a crash stops the campaign. A crash under StopOnCrash returns an
// error wrapping ErrBugFound. An exhausted budget returns nil.
func (e *Engine) Run(ctx context.Context) error {
	runCtx := ctx
	if e.config.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.config.Duration)
		defer cancel()
	}

	e.stats.StartTime = time.Now()
	e.lastStatsUpdate = e.stats.StartTime
	e.logger.WithFields(logrus.Fields{
		"target":   e.config.Target,
		"model":    e.config.Model,
		"schedule": e.schedule.Name(),
		"seeds":    len(e.seeds),
		"trials":   e.config.Trials,
	}).Info("Campaign started")
	defer e.finish()

	var trials int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if runCtx.Err() != nil {
			return nil
		}
		seeding := e.seedIndex < len(e.seeds)
		if !seeding && e.config.Trials > 0 && trials >= e.config.Trials {
			return nil
		}
		if !seeding {
			trials++
		}

		if _, err := e.Fuzz(runCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil
			}
			return err
		}
		e.maybeLogStats()
	}
}

// Fuzz performs one iteration: the next seed while any remain, otherwise a mutated candidate
func (e *Engine) Fuzz(ctx context.Context) (*execution.Outcome, error) {
	input, parent, err := e.nextInput()
	if err != nil {
		return nil, err
	}

	outcome, sig := e.worker.Execute(ctx, input)
	if outcome.Status == execution.StatusSkipped {
		return outcome, outcome.Err
	}

	return outcome, e.processOutcome(outcome, sig, parent)
}

// nextInput returns the input to execute and the seed it was derived from
func (e *Engine) nextInput() (string, *Seed, error) {
	if e.seedIndex < len(e.seeds) {
		input := e.seeds[e.seedIndex]
		e.seedIndex++
		return input, nil, nil
	}

	parent := e.schedule.Choose(e.corpus.Population(), e.pathFrequency, e.rng)
	if parent == nil {
		return "", nil, errors.New("population is empty")
	}
	parent.Chosen++
	return e.createCandidate(parent.Data), parent, nil
}

// createCandidate stacks min(len(data), 2^k) mutations with k uniform in [1, 5]
func (e *Engine) createCandidate(data string) string {
	trials := 1 << (1 + e.rng.Intn(maxStackExponent))
	if len(data) < trials {
		trials = len(data)
	}

	candidate := data
	for i := 0; i < trials; i++ {
		candidate = e.mutator.Mutate(candidate)
	}
	return candidate
}

// processOutcome updates statistics, novelty and path frequency for one execution
func (e *Engine) processOutcome(outcome *execution.Outcome, sig coverage.Signature, parent *Seed) error {
	e.stats.Record(outcome.Status)

	e.mu.RLock()
	reporters := e.reporters
	e.mu.RUnlock()

	for _, r := range reporters {
		r.OnExecution(outcome)
	}

	pathID := sig.Hash()
	key := sig.Key()
	if _, seen := e.seen[key]; !seen {
		e.seen[key] = struct{}{}
		atomic.AddInt64(&e.stats.Paths, 1)

		seed := &Seed{
			ID:        uuid.New().String(),
			Data:      outcome.Input,
			CreatedAt: time.Now(),
			Signature: sig.Clone(),
			PathID:    pathID,
			Status:    outcome.Status.String(),
		}
		if parent != nil {
			seed.ParentID = parent.ID
			seed.Generation = parent.Generation + 1
		}

		e.corpus.Add(seed)
		population := e.corpus.Size()
		atomic.StoreInt64(&e.stats.Population, int64(population))
		e.stats.LastNewPathTime = seed.CreatedAt

		for _, r := range reporters {
			r.OnNewPath(seed, population)
		}
	}
	e.pathFrequency[pathID]++

	if outcome.Status == execution.StatusCrash {
		return e.handleCrash(outcome, reporters)
	}
	return nil
}

// handleCrash triages a crashing input and stops the campaign when configured to.
// Only the first input per stack hash is written to the crash directory.
func (e *Engine) handleCrash(outcome *execution.Outcome, reporters []Reporter) error {
	e.stats.LastCrashTime = time.Now()
	e.crashes = append(e.crashes, outcome)

	report := e.triage.TriageCrash(outcome)
	e.triaged = append(e.triaged, report)
	atomic.StoreInt64(&e.stats.UniqueCrashes, int64(e.triage.UniqueCrashes()))

	if e.config.CrashDir != "" && report.Unique {
		e.saveCrashFile(outcome, report)
	}
	for _, r := range reporters {
		r.OnCrash(outcome)
	}

	if e.config.StopOnCrash {
		return fmt.Errorf("%w: input %q: %v", ErrBugFound, outcome.Input, outcome.Crash.Value)
	}
	return nil
}

// crashRecord is the metadata written next to a crashing input
type crashRecord struct {
	Target    string   `json:"target"`
	Input     string   `json:"input"`
	Panic     string   `json:"panic"`
	CrashType string   `json:"crash_type"`
	Severity  string   `json:"severity"`
	StackHash string   `json:"stack_hash"`
	Frames    []string `json:"frames"`
	Stack     string   `json:"stack"`
	Time      string   `json:"time"`
}

// saveCrashFile writes the crashing input and its panic metadata to the crash directory
func (e *Engine) saveCrashFile(outcome *execution.Outcome, report *analysis.TriageResult) {
	crashDir := e.config.CrashDir
	if err := os.MkdirAll(crashDir, 0755); err != nil {
		e.logger.Errorf("Failed to create crash directory: %v", err)
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	base := filepath.Join(crashDir, fmt.Sprintf("crash_%s_%s", timestamp, uuid.New().String()[:8]))

	if err := os.WriteFile(base+".input", []byte(outcome.Input), 0644); err != nil {
		e.logger.Errorf("Failed to save crash file: %v", err)
		return
	}

	record := crashRecord{
		Target:    e.config.Target,
		Input:     outcome.Input,
		Panic:     report.Panic,
		CrashType: string(report.CrashType),
		Severity:  report.Severity.String(),
		StackHash: report.StackHash,
		Frames:    report.Frames,
		Stack:     string(outcome.Crash.Stack),
		Time:      timestamp,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		e.logger.Errorf("Failed to encode crash metadata: %v", err)
		return
	}
	if err := os.WriteFile(base+".json", data, 0644); err != nil {
		e.logger.Errorf("Failed to save crash metadata: %v", err)
	}
}

// maybeLogStats refreshes the execution rate and logs it every StatsInterval
func (e *Engine) maybeLogStats() {
	if e.config.StatsInterval <= 0 || time.Since(e.lastStatsUpdate) < e.config.StatsInterval {
		return
	}
	e.calculateExecutionRate()

	snap := e.stats.Snapshot()
	e.logger.WithFields(logrus.Fields{
		"executions":         snap.Executions,
		"paths":              snap.Paths,
		"population":         snap.Population,
		"crashes":            snap.Crashes,
		"unique_crashes":     snap.UniqueCrashes,
		"executions_per_sec": snap.ExecutionsPerSecond,
	}).Info("Statistics update")
}

// calculateExecutionRate computes the rate since the previous update
func (e *Engine) calculateExecutionRate() {
	now := time.Now()
	duration := now.Sub(e.lastStatsUpdate).Seconds()
	executions := atomic.LoadInt64(&e.stats.Executions)

	if duration > 0 {
		e.stats.ExecutionsPerSecond = float64(executions-e.lastStatsExecs) / duration
	}

	e.lastStatsUpdate = now
	e.lastStatsExecs = executions
}

// finish computes the overall rate and notifies reporters
func (e *Engine) finish() {
	elapsed := time.Since(e.stats.StartTime).Seconds()
	if elapsed > 0 {
		e.stats.ExecutionsPerSecond = float64(atomic.LoadInt64(&e.stats.Executions)) / elapsed
	}

	snap := e.stats.Snapshot()
	e.logger.WithFields(logrus.Fields{
		"executions": snap.Executions,
		"paths":      snap.Paths,
		"crashes":    snap.Crashes,
	}).Info("Campaign finished")

	e.mu.RLock()
	reporters := e.reporters
	e.mu.RUnlock()
	for _, r := range reporters {
		r.OnFinish(snap)
	}
}

// GetStats returns a snapshot of the campaign statistics
func (e *Engine) GetStats() FuzzerStats {
	return e.stats.Snapshot()
}

// GetCorpus returns the population
func (e *Engine) GetCorpus() *Corpus {
	return e.corpus
}

// GetWorker returns the engine's worker
func (e *Engine) GetWorker() *Worker {
	return e.worker
}

// PathFrequency returns a copy of the per-path execution counts
func (e *Engine) PathFrequency() PathFrequency {
	out := make(PathFrequency, len(e.pathFrequency))
	for k, v := range e.pathFrequency {
		out[k] = v
	}
	return out
}

// SeenSignatures returns how many distinct signatures were observed
func (e *Engine) SeenSignatures() int {
	return len(e.seen)
}

// CrashReports returns the triage result of every crash, in order
func (e *Engine) CrashReports() []*analysis.TriageResult {
	return append([]*analysis.TriageResult(nil), e.triaged...)
}

// Triage returns the engine's crash triage
func (e *Engine) Triage() *analysis.CrashTriageEngine {
	return e.triage
}

// Crashes returns the crashing outcomes recorded so far
func (e *Engine) Crashes() []*execution.Outcome {
	return append([]*execution.Outcome(nil), e.crashes...)
}

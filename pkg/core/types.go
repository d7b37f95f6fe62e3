/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: types.go
Description: Core types and interfaces for the Akaylee Greybox engine. Defines seeds,
campaign statistics and configuration, and the collaborator interfaces the engine is
assembled from: an executor producing outcomes and coverage signatures, and a mutator.
*/

package core

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/execution"
)

// DefaultCrashExitCode is the process exit code announcing that the bug was reproduced
const DefaultCrashExitCode = 219

// ErrBugFound is returned by Engine.Run when a crash stops the campaign
var ErrBugFound = errors.New("bug found")

// Seed is one input in the population
type Seed struct {
	ID         string                 `json:"id"`         // Unique identifier
	Data       string                 `json:"data"`       // The input passed to the entry function
	ParentID   string                 `json:"parent_id"`  // Seed this one was mutated from
	Generation int                    `json:"generation"` // 0 = initial corpus, 1+ = mutated
	CreatedAt  time.Time              `json:"created_at"`
	Chosen     int64                  `json:"chosen"`  // Times picked by the power schedule
	Energy     float64                `json:"energy"`  // Last energy assigned by the schedule
	Signature  coverage.Signature     `json:"-"`       // Signature of the run that retained it
	PathID     uint64                 `json:"path_id"` // Signature hash
	Status     string                 `json:"status"`  // Outcome of the retaining run
	Metadata   map[string]interface{} `json:"metadata"`
}

// FuzzerStats tracks campaign statistics
// Uses atomic operations for thread-safe updates
type FuzzerStats struct {
	Executions          int64     `json:"executions"`
	Passes              int64     `json:"passes"`
	Failures            int64     `json:"failures"`
	Crashes             int64     `json:"crashes"`
	UniqueCrashes       int64     `json:"unique_crashes"` // distinct stack hashes
	Skipped             int64     `json:"skipped"`
	Paths               int64     `json:"paths"`      // distinct signatures seen
	Population          int64     `json:"population"` // retained inputs
	StartTime           time.Time `json:"start_time"`
	LastNewPathTime     time.Time `json:"last_new_path_time"`
	LastCrashTime       time.Time `json:"last_crash_time"`
	ExecutionsPerSecond float64   `json:"executions_per_second"`
}

// IncrementExecutions atomically increments the execution counter
func (s *FuzzerStats) IncrementExecutions() {
	atomic.AddInt64(&s.Executions, 1)
}

// IncrementCrashes atomically increments the crash counter
func (s *FuzzerStats) IncrementCrashes() {
	atomic.AddInt64(&s.Crashes, 1)
}

// Record counts one outcome by status
func (s *FuzzerStats) Record(status execution.Status) {
	switch status {
	case execution.StatusPass:
		atomic.AddInt64(&s.Passes, 1)
	case execution.StatusFail:
		atomic.AddInt64(&s.Failures, 1)
	case execution.StatusCrash:
		s.IncrementCrashes()
	case execution.StatusSkipped:
		atomic.AddInt64(&s.Skipped, 1)
		return
	}
	s.IncrementExecutions()
}

// Snapshot returns a copy safe to read while the campaign runs
func (s *FuzzerStats) Snapshot() FuzzerStats {
	return FuzzerStats{
		Executions:          atomic.LoadInt64(&s.Executions),
		Passes:              atomic.LoadInt64(&s.Passes),
		Failures:            atomic.LoadInt64(&s.Failures),
		Crashes:             atomic.LoadInt64(&s.Crashes),
		UniqueCrashes:       atomic.LoadInt64(&s.UniqueCrashes),
		Skipped:             atomic.LoadInt64(&s.Skipped),
		Paths:               atomic.LoadInt64(&s.Paths),
		Population:          atomic.LoadInt64(&s.Population),
		StartTime:           s.StartTime,
		LastNewPathTime:     s.LastNewPathTime,
		LastCrashTime:       s.LastCrashTime,
		ExecutionsPerSecond: s.ExecutionsPerSecond,
	}
}

// FuzzerConfig contains all configuration parameters for a campaign
// Supports both command-line flags and configuration files
type FuzzerConfig struct {
	// Target configuration
	Target  string `json:"target" mapstructure:"target"`   // Registry name of the target
	Model   string `json:"model" mapstructure:"model"`     // Coverage model preset
	Locator string `json:"locator" mapstructure:"locator"` // Branch-entry locator mode

	// Loop configuration
	Trials   int64         `json:"trials" mapstructure:"trials"`     // Executions after the seeds, 0 = unbounded
	Duration time.Duration `json:"duration" mapstructure:"duration"` // Wall-clock budget, 0 = unbounded
	RandSeed int64         `json:"rand_seed" mapstructure:"rand_seed"`
	Seeds    []string      `json:"seeds" mapstructure:"seeds"` // Overrides the target's initial corpus

	// Power schedule configuration
	Schedule string  `json:"schedule" mapstructure:"schedule"` // "aflfast" or "uniform"
	Exponent float64 `json:"exponent" mapstructure:"exponent"`

	// Corpus configuration
	MaxCorpusSize int `json:"max_corpus_size" mapstructure:"max_corpus_size"`

	// Crash configuration
	StopOnCrash   bool   `json:"stop_on_crash" mapstructure:"stop_on_crash"`
	CrashDir      string `json:"crash_dir" mapstructure:"crash_dir"`
	CrashExitCode int    `json:"crash_exit_code" mapstructure:"crash_exit_code"`

	// Reporting configuration
	StatsInterval time.Duration `json:"stats_interval" mapstructure:"stats_interval"`
	MetricsDir    string        `json:"metrics_dir" mapstructure:"metrics_dir"` // empty disables the metrics file
}

// DefaultConfig returns the configuration used by the original experiments
func DefaultConfig() *FuzzerConfig {
	return &FuzzerConfig{
		Model:         coverage.ModelNested,
		Locator:       string(coverage.LocatorLexical),
		Schedule:      ScheduleAFLFast,
		Exponent:      DefaultExponent,
		MaxCorpusSize: 10000,
		StopOnCrash:   true,
		CrashExitCode: DefaultCrashExitCode,
		StatsInterval: 5 * time.Second,
	}
}

// Validate checks the configuration for inconsistent values
func (c *FuzzerConfig) Validate() error {
	if c.Trials < 0 {
		return fmt.Errorf("trials must not be negative")
	}
	if c.Duration < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	if c.MaxCorpusSize <= 0 {
		return fmt.Errorf("max_corpus_size must be positive")
	}
	if c.CrashExitCode < 1 || c.CrashExitCode > 255 {
		return fmt.Errorf("crash_exit_code must be in 1..255")
	}
	if _, err := NewSchedule(c.Schedule, c.Exponent); err != nil {
		return err
	}
	if _, err := coverage.ModelByName(c.Model); err != nil {
		return err
	}
	if _, err := coverage.ParseLocatorMode(c.Locator); err != nil {
		return err
	}
	return nil
}

// Executor runs one input and reports its outcome and coverage signature
type Executor interface {
	Execute(ctx context.Context, input string) (*execution.Outcome, coverage.Signature)
}

// Mutator derives a new input from an existing one
type Mutator interface {
	// Mutate returns a mutated copy of s
	Mutate(s string) string

	// Name returns the name of this mutator
	Name() string
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: reporter.go
Description: Reporter interface and implementations for Akaylee Greybox telemetry.
Supports structured logging of campaign events and a JSON summary written to the
metrics directory when a campaign finishes.
*/

package core

import (
	"sync"
	"time"

	"github.com/kleascm/akaylee-greybox/pkg/execution"
	"github.com/kleascm/akaylee-greybox/pkg/logging"
	"github.com/kleascm/akaylee-greybox/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Reporter defines the interface for telemetry and reporting hooks.
// Allows the engine to notify listeners of execution and population events.
type Reporter interface {
	// OnExecution is called after every execution.
	OnExecution(outcome *execution.Outcome)
	// OnNewPath is called when an input is retained for a new signature.
	OnNewPath(seed *Seed, population int)
	// OnCrash is called when the target panics.
	OnCrash(outcome *execution.Outcome)
	// OnFinish is called once when the campaign stops.
	OnFinish(stats FuzzerStats)
}

// LoggerReporter logs campaign events through the fuzzer logger.
type LoggerReporter struct {
	logger *logging.Logger
	target string
}

// NewLoggerReporter creates a new LoggerReporter.
func NewLoggerReporter(logger *logging.Logger, target string) *LoggerReporter {
	return &LoggerReporter{logger: logger, target: target}
}

// OnExecution logs execution results at debug level.
func (r *LoggerReporter) OnExecution(outcome *execution.Outcome) {
	r.logger.LogExecution(outcome.Input, outcome.Status.String(), outcome.Duration, logrus.Fields{"target": r.target})
}

// OnNewPath logs new path discovery.
func (r *LoggerReporter) OnNewPath(seed *Seed, population int) {
	r.logger.LogNewPath(seed.ID, seed.Signature.String(), population, logrus.Fields{
		"input":      seed.Data,
		"generation": seed.Generation,
	})
}

// OnCrash logs the crashing input and panic value.
func (r *LoggerReporter) OnCrash(outcome *execution.Outcome) {
	var value interface{}
	if outcome.Crash != nil {
		value = outcome.Crash.Value
	}
	r.logger.LogCrash(outcome.Input, value, logrus.Fields{"target": r.target})
}

// OnFinish logs the final statistics.
func (r *LoggerReporter) OnFinish(stats FuzzerStats) {
	r.logger.LogStats(stats.Executions, int(stats.Paths), stats.Crashes, stats.ExecutionsPerSecond, logrus.Fields{
		"population": stats.Population,
		"final":      true,
	})
}

// CampaignSummary is the JSON document written by MetricsReporter
type CampaignSummary struct {
	Target      string      `json:"target"`
	Model       string      `json:"model"`
	Schedule    string      `json:"schedule"`
	Stats       FuzzerStats `json:"stats"`
	Duration    string      `json:"duration"`
	NewPaths    []string    `json:"new_paths"`
	CrashInputs []string    `json:"crash_inputs"`
}

// MetricsReporter collects retained and crashing inputs and writes a summary on finish.
type MetricsReporter struct {
	Dir     string
	Version string

	summary CampaignSummary
	path    string
	err     error
	mu      sync.Mutex
}

// NewMetricsReporter creates a reporter that writes under dir.
func NewMetricsReporter(dir, version string, config *FuzzerConfig) *MetricsReporter {
	return &MetricsReporter{
		Dir:     dir,
		Version: version,
		summary: CampaignSummary{
			Target:   config.Target,
			Model:    config.Model,
			Schedule: config.Schedule,
		},
	}
}

// OnExecution is a no-op; totals come from the final statistics.
func (r *MetricsReporter) OnExecution(outcome *execution.Outcome) {}

// OnNewPath records the retained input.
func (r *MetricsReporter) OnNewPath(seed *Seed, population int) {
	r.mu.Lock()
	r.summary.NewPaths = append(r.summary.NewPaths, seed.Data)
	r.mu.Unlock()
}

// OnCrash records the crashing input.
func (r *MetricsReporter) OnCrash(outcome *execution.Outcome) {
	r.mu.Lock()
	r.summary.CrashInputs = append(r.summary.CrashInputs, outcome.Input)
	r.mu.Unlock()
}

// OnFinish writes the campaign summary.
func (r *MetricsReporter) OnFinish(stats FuzzerStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.summary.Stats = stats
	r.summary.Duration = time.Since(stats.StartTime).Round(time.Millisecond).String()
	r.path, r.err = utils.WriteMetricsResult(r.Dir, "campaign", r.Version, r.summary)
}

// Result returns the file written by OnFinish and any write error.
func (r *MetricsReporter) Result() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path, r.err
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: fuzz.go
Description: Fuzz command implementation for Akaylee Greybox. Builds a campaign for a
registered target from flags, configuration file and environment, runs it until the
budget is spent or the bug is found, and reports the final statistics. A found bug
ends the process with the configured crash exit code.
*/

package commands

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/kleascm/akaylee-greybox/pkg/analysis"
	"github.com/kleascm/akaylee-greybox/pkg/core"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunFuzz executes one fuzzing campaign. A positional argument replaces the target's
// initial corpus with that single seed.
func RunFuzz(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	config := createFuzzerConfig(args)
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	engine, runner, err := core.NewTargetEngine(config, logger.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to setup fuzzer: %w", err)
	}

	engine.AddReporter(core.NewLoggerReporter(logger, config.Target))
	var metrics *core.MetricsReporter
	if config.MetricsDir != "" {
		metrics = core.NewMetricsReporter(config.MetricsDir, Version, config)
		engine.AddReporter(metrics)
	}

	if viper.GetBool("dry_run") {
		printConfig(cmd, config)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := engine.Run(ctx)

	if !viper.GetBool("quiet") {
		printFinalStats(cmd, engine)
	}
	if viper.GetBool("minimize") && len(engine.CrashReports()) > 0 {
		report := engine.CrashReports()[0]
		minimizer := &analysis.CharwiseMinimizer{MaxExecutions: viper.GetInt("minimize_executions")}
		minimized := engine.Triage().MinimizeCrash(context.Background(), runner, report, minimizer)
		logger.GetLogger().WithFields(logrus.Fields{
			"original":   report.Input,
			"minimized":  minimized,
			"stack_hash": report.StackHash,
		}).Info("Crash minimized")
		printField(cmd.ErrOrStderr(), "Minimized input", fmt.Sprintf("%q", minimized))
	}
	if metrics != nil {
		if path, err := metrics.Result(); err != nil {
			logger.GetLogger().WithError(err).Warn("Failed to write campaign metrics")
		} else {
			logger.GetLogger().WithField("path", path).Info("Campaign metrics written")
		}
	}

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, core.ErrBugFound):
		return &ExitError{Code: config.CrashExitCode, Err: runErr}
	case errors.Is(runErr, context.Canceled):
		logger.GetLogger().Info("Campaign interrupted")
		return nil
	default:
		return runErr
	}
}

// createFuzzerConfig builds the campaign configuration from viper
func createFuzzerConfig(args []string) *core.FuzzerConfig {
	config := core.DefaultConfig()

	config.Target = viper.GetString("target")
	config.Model = viper.GetString("model")
	config.Locator = viper.GetString("locator")
	config.Trials = viper.GetInt64("trials")
	config.Duration = viper.GetDuration("duration")
	config.RandSeed = viper.GetInt64("rand_seed")
	config.Schedule = viper.GetString("schedule")
	config.Exponent = viper.GetFloat64("exponent")
	config.MaxCorpusSize = viper.GetInt("max_corpus_size")
	config.StopOnCrash = viper.GetBool("stop_on_crash")
	config.CrashDir = viper.GetString("crash_dir")
	config.CrashExitCode = viper.GetInt("crash_exit_code")
	config.StatsInterval = viper.GetDuration("stats_interval")
	config.MetricsDir = viper.GetString("metrics_dir")

	if len(args) > 0 {
		config.Seeds = args
	} else if seeds := viper.GetStringSlice("seeds"); len(seeds) > 0 {
		config.Seeds = seeds
	}
	return config
}

// printConfig shows the resolved configuration for a dry run
func printConfig(cmd *cobra.Command, config *core.FuzzerConfig) {
	w := cmd.OutOrStdout()
	printBanner(w, "Dry Run")
	printField(w, "Target", config.Target)
	printField(w, "Coverage model", config.Model)
	printField(w, "Locator", config.Locator)
	printField(w, "Schedule", fmt.Sprintf("%s (exponent %g)", config.Schedule, config.Exponent))
	printField(w, "Trials", config.Trials)
	printField(w, "Seeds", config.Seeds)
	printField(w, "Crash exit code", config.CrashExitCode)
	fmt.Fprintln(w, successStyle.Render("Configuration is valid"))
}

// printFinalStats prints the campaign summary
func printFinalStats(cmd *cobra.Command, engine *core.Engine) {
	w := cmd.ErrOrStderr()
	stats := engine.GetStats()

	fmt.Fprintln(w)
	printBanner(w, "Campaign Summary")
	printField(w, "Executions", stats.Executions)
	printField(w, "Passes / failures", fmt.Sprintf("%d / %d", stats.Passes, stats.Failures))
	printField(w, "Distinct signatures", stats.Paths)
	printField(w, "Population", stats.Population)
	printField(w, "Executions per second", fmt.Sprintf("%.2f", stats.ExecutionsPerSecond))

	if stats.Crashes > 0 {
		fmt.Fprintln(w, failureStyle.Render(fmt.Sprintf("Bug found (%d crashing inputs, %d unique)", stats.Crashes, stats.UniqueCrashes)))
		for _, report := range engine.CrashReports() {
			printField(w, "Crashing input", fmt.Sprintf("%q %s [%s]", report.Input, report.CrashType, report.StackHash))
		}
	} else {
		fmt.Fprintln(w, successStyle.Render("No crashes"))
	}
}

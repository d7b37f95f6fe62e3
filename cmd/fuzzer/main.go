/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: main.go
Description: Main command-line interface for Akaylee Greybox. Wires the fuzz, bench,
instrument, locate and inspection commands, binds their flags to viper so that every
setting can also come from a configuration file or an AKAYLEE_ environment variable,
and maps a found bug to the crash exit code.
*/

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kleascm/akaylee-greybox/cmd/fuzzer/commands"
	"github.com/kleascm/akaylee-greybox/pkg/bench"
	"github.com/kleascm/akaylee-greybox/pkg/core"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Register the built-in targets
	_ "github.com/kleascm/akaylee-greybox/pkg/targets/demo"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "akaylee-greybox",
		Short: "Akaylee Greybox - coverage-signature greybox fuzzer",
		Long: `Akaylee Greybox fuzzes instrumented Go functions. Every execution is summarised
by a coverage signature built from the branch entries it took, and inputs producing a
signature never seen before are kept for further mutation under a power schedule.`,
		Version:       commands.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add persistent flags
	rootCmd.PersistentFlags().String("config", "", "Configuration file path")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "custom", "Log format (text, json, custom)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Use JSON log format")
	rootCmd.PersistentFlags().String("log-dir", "", "Log output directory (empty for console only)")
	rootCmd.PersistentFlags().Int("log-max-files", 10, "Maximum number of log files to keep")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable coloured log output")
	rootCmd.PersistentFlags().String("metrics-dir", "", "Directory for JSON metrics (empty disables)")
	rootCmd.PersistentFlags().Int("crash-exit-code", core.DefaultCrashExitCode, "Exit code announcing a found bug")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))
	viper.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	viper.BindPFlag("log_max_files", rootCmd.PersistentFlags().Lookup("log-max-files"))
	viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	viper.BindPFlag("metrics_dir", rootCmd.PersistentFlags().Lookup("metrics-dir"))
	viper.BindPFlag("crash_exit_code", rootCmd.PersistentFlags().Lookup("crash-exit-code"))

	// Add fuzz command
	fuzzCmd := &cobra.Command{
		Use:   "fuzz [seed...]",
		Short: "Fuzz a registered target",
		Long: `Run a greybox campaign against a registered target. Seeds given as arguments
replace the target's initial corpus. The process exits with the crash exit code (219 by
default) as soon as the target panics, unless --stop-on-crash=false.`,
		Args: cobra.ArbitraryArgs,
		RunE: commands.RunFuzz,
	}

	defaults := core.DefaultConfig()
	fuzzCmd.Flags().String("target", "demo", "Registered target name")
	fuzzCmd.Flags().String("model", defaults.Model, "Coverage model (ngram, fingerprint, nested)")
	fuzzCmd.Flags().String("locator", defaults.Locator, "Branch-entry locator (lexical, ast)")
	fuzzCmd.Flags().Int64("trials", 0, "Mutated executions after the seeds (0 = until the bug is found)")
	fuzzCmd.Flags().Duration("duration", 0, "Wall-clock budget (0 = unlimited)")
	fuzzCmd.Flags().Int64("rand-seed", 0, "Random seed (0 = time based)")
	fuzzCmd.Flags().String("schedule", defaults.Schedule, "Power schedule (aflfast, uniform)")
	fuzzCmd.Flags().Float64("exponent", defaults.Exponent, "AFLFast path-frequency exponent")
	fuzzCmd.Flags().Int("max-corpus-size", defaults.MaxCorpusSize, "Maximum population size")
	fuzzCmd.Flags().Bool("stop-on-crash", defaults.StopOnCrash, "Stop at the first crash")
	fuzzCmd.Flags().String("crash-dir", "", "Directory for crashing inputs (empty disables)")
	fuzzCmd.Flags().Duration("stats-interval", defaults.StatsInterval, "Statistics logging interval")
	fuzzCmd.Flags().StringSlice("seeds", nil, "Seed inputs replacing the target's initial corpus")
	fuzzCmd.Flags().Bool("dry-run", false, "Validate configuration and exit without fuzzing")
	fuzzCmd.Flags().Bool("quiet", false, "Skip the final summary")
	fuzzCmd.Flags().Bool("minimize", false, "Shrink the first crashing input after the campaign")
	fuzzCmd.Flags().Int("minimize-executions", 10000, "Execution budget for minimization (0 = unlimited)")

	viper.BindPFlag("target", fuzzCmd.Flags().Lookup("target"))
	viper.BindPFlag("model", fuzzCmd.Flags().Lookup("model"))
	viper.BindPFlag("locator", fuzzCmd.Flags().Lookup("locator"))
	viper.BindPFlag("trials", fuzzCmd.Flags().Lookup("trials"))
	viper.BindPFlag("duration", fuzzCmd.Flags().Lookup("duration"))
	viper.BindPFlag("rand_seed", fuzzCmd.Flags().Lookup("rand-seed"))
	viper.BindPFlag("schedule", fuzzCmd.Flags().Lookup("schedule"))
	viper.BindPFlag("exponent", fuzzCmd.Flags().Lookup("exponent"))
	viper.BindPFlag("max_corpus_size", fuzzCmd.Flags().Lookup("max-corpus-size"))
	viper.BindPFlag("stop_on_crash", fuzzCmd.Flags().Lookup("stop-on-crash"))
	viper.BindPFlag("crash_dir", fuzzCmd.Flags().Lookup("crash-dir"))
	viper.BindPFlag("stats_interval", fuzzCmd.Flags().Lookup("stats-interval"))
	viper.BindPFlag("seeds", fuzzCmd.Flags().Lookup("seeds"))
	viper.BindPFlag("dry_run", fuzzCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("quiet", fuzzCmd.Flags().Lookup("quiet"))
	viper.BindPFlag("minimize", fuzzCmd.Flags().Lookup("minimize"))
	viper.BindPFlag("minimize_executions", fuzzCmd.Flags().Lookup("minimize-executions"))

	// Add bench command
	benchCmd := &cobra.Command{
		Use:   "bench [fuzzer]",
		Short: "Benchmark a fuzzer executable over generated seeds",
		Long: `Launch the fuzzer once per seed as a separate process, appending the seed as the
last argument, and record the time until it exits with the crash exit code. Results are
written to <fuzzer name>.csv: one row per seed (-1 when the bug was not found), then the
mean and variance when at least one run found it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: commands.RunBench,
	}

	benchCmd.Flags().String("fuzzer", "", "Path to the fuzzer executable")
	benchCmd.Flags().StringSlice("fuzzer-args", nil, "Arguments placed before the seed")
	benchCmd.Flags().Int("runs", bench.DefaultRuns, "Number of seeds")
	benchCmd.Flags().Int("seed-length", bench.DefaultSeedLength, "Length of each seed")
	benchCmd.Flags().Int64("rand-seed", bench.DefaultRandSeed, "Seed for seed generation")
	benchCmd.Flags().Duration("timeout", 10*time.Minute, "Per-run time limit (0 = unlimited)")
	benchCmd.Flags().Int("parallel", 1, "Concurrent runs")
	benchCmd.Flags().String("output-dir", ".", "Directory for the CSV file")

	viper.BindPFlag("bench.fuzzer", benchCmd.Flags().Lookup("fuzzer"))
	viper.BindPFlag("bench.fuzzer_args", benchCmd.Flags().Lookup("fuzzer-args"))
	viper.BindPFlag("bench.runs", benchCmd.Flags().Lookup("runs"))
	viper.BindPFlag("bench.seed_length", benchCmd.Flags().Lookup("seed-length"))
	viper.BindPFlag("bench.rand_seed", benchCmd.Flags().Lookup("rand-seed"))
	viper.BindPFlag("bench.timeout", benchCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("bench.parallel", benchCmd.Flags().Lookup("parallel"))
	viper.BindPFlag("bench.output_dir", benchCmd.Flags().Lookup("output-dir"))

	// Add instrument command
	instrumentCmd := &cobra.Command{
		Use:   "instrument",
		Short: "Insert line probes into a Go source file",
		Long: `Rewrite a Go source file so every statement first reports its original line number
to the probe package. The output is marked as generated and keeps the input's line
numbers in its probe calls, so branch entries located in the pristine file match.`,
		RunE: commands.RunInstrument,
	}

	instrumentCmd.Flags().String("in", "", "Source file to instrument")
	instrumentCmd.Flags().String("out", "", "Output file")
	instrumentCmd.Flags().StringSlice("functions", nil, "Only instrument these functions (Type.Method for methods)")
	instrumentCmd.MarkFlagRequired("in")
	instrumentCmd.MarkFlagRequired("out")

	viper.BindPFlag("instrument.in", instrumentCmd.Flags().Lookup("in"))
	viper.BindPFlag("instrument.out", instrumentCmd.Flags().Lookup("out"))
	viper.BindPFlag("instrument.functions", instrumentCmd.Flags().Lookup("functions"))

	// Add locate command
	locateCmd := &cobra.Command{
		Use:   "locate [target]",
		Short: "Print the branch entries of a target's entry function",
		Args:  cobra.MaximumNArgs(1),
		RunE:  commands.RunLocate,
	}

	locateCmd.Flags().String("target", "demo", "Registered target name")
	locateCmd.Flags().String("locator", defaults.Locator, "Branch-entry locator (lexical, ast)")

	viper.BindPFlag("locate.target", locateCmd.Flags().Lookup("target"))
	viper.BindPFlag("locate.locator", locateCmd.Flags().Lookup("locator"))

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list-targets",
		Short: "List registered targets",
		RunE:  commands.ListTargets,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list-mutators",
		Short: "List mutators, power schedules and coverage models",
		Run:   commands.ListMutators,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate targets, output directories and configuration",
		RunE:  commands.PerformSelfCheck,
	})

	rootCmd.AddCommand(fuzzCmd, benchCmd, instrumentCmd, locateCmd)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "%v\n", exitErr.Err)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

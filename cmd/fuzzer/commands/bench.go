/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bench.go
Description: Bench command. Runs a fuzzer executable once per generated seed, writes the
per-seed times to <fuzzer>.csv and prints a summary table.
*/

package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/kleascm/akaylee-greybox/pkg/bench"
	"github.com/kleascm/akaylee-greybox/pkg/execution"
	"github.com/kleascm/akaylee-greybox/pkg/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RunBench executes a benchmark sweep
func RunBench(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := SetupLogging()
	if err != nil {
		return err
	}
	defer logger.Close()

	fuzzer := viper.GetString("bench.fuzzer")
	if len(args) > 0 {
		fuzzer = args[0]
	}

	executor := execution.NewProcessExecutor()
	defer executor.Cleanup()

	harness := &bench.Harness{
		Fuzzer: fuzzer,
		Args:   viper.GetStringSlice("bench.fuzzer_args"),
		Seeds: bench.GenerateSeeds(
			viper.GetInt("bench.runs"),
			viper.GetInt("bench.seed_length"),
			viper.GetInt64("bench.rand_seed"),
		),
		Timeout:  viper.GetDuration("bench.timeout"),
		Parallel: viper.GetInt("bench.parallel"),
		BugCode:  viper.GetInt("crash_exit_code"),
		Logger:   logger.GetLogger(),
		Executor: executor,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := harness.Run(ctx)
	if err != nil {
		return fmt.Errorf("benchmark failed: %w", err)
	}

	path, err := report.WriteCSV(viper.GetString("bench.output_dir"))
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("path", path).Info("Benchmark results written")

	if dir := viper.GetString("metrics_dir"); dir != "" {
		if mpath, err := utils.WriteMetricsResult(dir, "bench", Version, report); err != nil {
			logger.GetLogger().WithError(err).Warn("Failed to write benchmark metrics")
		} else {
			logger.GetLogger().WithField("path", mpath).Info("Benchmark metrics written")
		}
	}

	w := cmd.OutOrStdout()
	printBanner(w, "Benchmark")
	report.RenderTable(w)
	fmt.Fprintf(w, "\n%d bugs found, results in %s\n", report.Found(), path)
	return nil
}

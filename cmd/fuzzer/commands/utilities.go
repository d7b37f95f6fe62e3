/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utilities.go
Description: Utility commands for Akaylee Greybox. Provides list-mutators, which also
shows the schedules and coverage models, and a self-check validating targets, output
directories and configuration before a campaign.
*/

package commands

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/kleascm/akaylee-greybox/pkg/core"
	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/strategies"
	"github.com/kleascm/akaylee-greybox/pkg/targets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ListMutators lists the mutators, power schedules and coverage models
func ListMutators(cmd *cobra.Command, args []string) {
	w := cmd.OutOrStdout()
	printBanner(w, "Mutators")

	rng := rand.New(rand.NewSource(1))
	mutators := []strategies.Mutator{
		strategies.NewDeleteCharMutator(rng),
		strategies.NewInsertCharMutator(rng),
		strategies.NewFlipCharMutator(rng),
		strategies.NewDefaultMutator(rng),
	}
	for i, m := range mutators {
		fmt.Fprintf(w, "%d. %s\n   %s\n", i+1, m.Name(), m.Description())
	}

	fmt.Fprintln(w)
	printField(w, "Power schedules", core.ScheduleNames())
	printField(w, "Coverage models", coverage.ModelNames())
	printField(w, "Locator modes", []coverage.LocatorMode{coverage.LocatorLexical, coverage.LocatorAST})
}

// PerformSelfCheck validates targets, directories and configuration
func PerformSelfCheck(cmd *cobra.Command, args []string) error {
	if err := LoadConfig(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	w := cmd.OutOrStdout()
	printBanner(w, "Self-Check")

	checks := []struct {
		name     string
		function func() error
	}{
		{"Target sources", checkTargetSources},
		{"Crash directory", func() error { return checkWritable(viper.GetString("crash_dir")) }},
		{"Log directory", func() error { return checkWritable(viper.GetString("log_dir")) }},
		{"Campaign configuration", checkConfigurationValidation},
	}

	passed := 0
	for _, check := range checks {
		if err := check.function(); err != nil {
			printField(w, check.name, failureStyle.Render("FAILED: "+err.Error()))
			continue
		}
		printField(w, check.name, successStyle.Render("PASSED"))
		passed++
	}

	fmt.Fprintf(w, "\nResults: %d/%d checks passed\n", passed, len(checks))
	if passed != len(checks) {
		return fmt.Errorf("%d/%d checks failed", len(checks)-passed, len(checks))
	}
	return nil
}

// checkTargetSources locates branch entries for every registered target
func checkTargetSources() error {
	names := targets.Names()
	if len(names) == 0 {
		return fmt.Errorf("no targets registered")
	}
	for _, name := range names {
		t, err := targets.Lookup(name)
		if err != nil {
			return err
		}
		src, err := t.Source()
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		text, _, err := coverage.FunctionSource(src, t.EntryName())
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if _, err := coverage.Locate(text, coverage.LocatorAST); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// checkWritable verifies dir can be created and written. Empty means unused.
func checkWritable(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	probe := filepath.Join(dir, ".akaylee_write_check")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	return os.Remove(probe)
}

// checkConfigurationValidation validates the campaign settings
func checkConfigurationValidation() error {
	config := createFuzzerConfig(nil)
	if config.Target == "" {
		return fmt.Errorf("target not configured")
	}
	if _, err := targets.Lookup(config.Target); err != nil {
		return err
	}
	return config.Validate()
}

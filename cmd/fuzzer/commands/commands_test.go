/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: commands_test.go
Description: Tests for command configuration and the inspection commands.
*/

package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kleascm/akaylee-greybox/pkg/core"
	_ "github.com/kleascm/akaylee-greybox/pkg/targets/demo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	return cmd, &buf
}

func TestCreateFuzzerConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("target", "demo")
	viper.Set("model", "ngram")
	viper.Set("locator", "ast")
	viper.Set("trials", 50)
	viper.Set("schedule", "uniform")
	viper.Set("exponent", 2.0)
	viper.Set("max_corpus_size", 100)
	viper.Set("crash_exit_code", 219)
	viper.Set("seeds", []string{"one", "two"})

	config := createFuzzerConfig(nil)
	assert.Equal(t, "demo", config.Target)
	assert.Equal(t, "ngram", config.Model)
	assert.Equal(t, "ast", config.Locator)
	assert.EqualValues(t, 50, config.Trials)
	assert.Equal(t, "uniform", config.Schedule)
	assert.Equal(t, []string{"one", "two"}, config.Seeds)
	assert.NoError(t, config.Validate())

	config = createFuzzerConfig([]string{"positional"})
	assert.Equal(t, []string{"positional"}, config.Seeds)
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 219, Err: core.ErrBugFound}
	assert.Equal(t, "bug found", err.Error())
	assert.True(t, errors.Is(err, core.ErrBugFound))
}

func TestListTargets(t *testing.T) {
	cmd, buf := newTestCommand()
	require.NoError(t, ListTargets(cmd, nil))
	assert.Contains(t, buf.String(), "demo")
	assert.Contains(t, buf.String(), "Entrypoint")
}

func TestRunLocate(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("locate.locator", "ast")

	cmd, buf := newTestCommand()
	require.NoError(t, RunLocate(cmd, []string{"demo"}))
	out := buf.String()
	assert.Contains(t, out, "Entrypoint (line 17)")
	assert.Contains(t, out, "46")

	cmd, _ = newTestCommand()
	assert.Error(t, RunLocate(cmd, []string{"missing"}))
}

func TestRunInstrument(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	dir := t.TempDir()
	in := filepath.Join(dir, "target.go")
	out := filepath.Join(dir, "target_instrumented.go")
	require.NoError(t, os.WriteFile(in, []byte("package target\n\nfunc F(x int) int {\n\tif x > 0 {\n\t\treturn 1\n\t}\n\treturn 0\n}\n"), 0644))

	viper.Set("instrument.in", in)
	viper.Set("instrument.out", out)
	viper.Set("log_level", "error")

	cmd, _ := newTestCommand()
	require.NoError(t, RunInstrument(cmd, nil))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `probe.Line("F", 4)`)
	assert.Contains(t, string(data), "DO NOT EDIT")

	viper.Set("instrument.out", "")
	assert.Error(t, RunInstrument(cmd, nil))
}

func TestRunFuzzDryRun(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("target", "demo")
	viper.Set("model", "nested")
	viper.Set("locator", "lexical")
	viper.Set("schedule", "aflfast")
	viper.Set("exponent", 5.0)
	viper.Set("max_corpus_size", 100)
	viper.Set("crash_exit_code", 219)
	viper.Set("stop_on_crash", true)
	viper.Set("dry_run", true)
	viper.Set("log_level", "error")

	cmd, buf := newTestCommand()
	require.NoError(t, RunFuzz(cmd, nil))
	assert.Contains(t, buf.String(), "Configuration is valid")
}

func TestRunFuzzBugFound(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("target", "demo")
	viper.Set("model", "nested")
	viper.Set("schedule", "aflfast")
	viper.Set("exponent", 5.0)
	viper.Set("max_corpus_size", 100)
	viper.Set("crash_exit_code", 219)
	viper.Set("stop_on_crash", true)
	viper.Set("quiet", true)
	viper.Set("log_level", "error")

	cmd, _ := newTestCommand()
	err := RunFuzz(cmd, []string{"fuzz!"})

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 219, exitErr.Code)
	assert.ErrorIs(t, err, core.ErrBugFound)
}

func TestRunFuzzMinimize(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("target", "demo")
	viper.Set("model", "nested")
	viper.Set("schedule", "aflfast")
	viper.Set("exponent", 5.0)
	viper.Set("max_corpus_size", 100)
	viper.Set("crash_exit_code", 219)
	viper.Set("stop_on_crash", true)
	viper.Set("quiet", true)
	viper.Set("minimize", true)
	viper.Set("log_level", "error")

	cmd, buf := newTestCommand()
	err := RunFuzz(cmd, []string{"fuzzzz!"})
	assert.ErrorIs(t, err, core.ErrBugFound)
	assert.Contains(t, buf.String(), "Minimized input")
	assert.Contains(t, buf.String(), `"fuzz!"`)
}

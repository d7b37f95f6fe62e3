/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: bench_test.go
Description: Tests for seed generation, the benchmark harness and report output.
*/

package bench

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestGenerateSeeds(t *testing.T) {
	seeds := GenerateSeeds(DefaultRuns, DefaultSeedLength, DefaultRandSeed)
	require.Len(t, seeds, 100)
	for _, s := range seeds {
		assert.Len(t, s, 20)
		assert.Equal(t, "", strings.Trim(s, lowercase))
	}

	assert.Equal(t, seeds, GenerateSeeds(100, 20, 10))
	assert.NotEqual(t, seeds, GenerateSeeds(100, 20, 11))
	assert.Nil(t, GenerateSeeds(0, 20, 10))
}

func TestHarnessNoBugFound(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fuzzer := writeScript(t, "baseline_fuzzer.py", "exit 0")

	h := &Harness{
		Fuzzer:   fuzzer,
		Seeds:    GenerateSeeds(100, 20, 10),
		Parallel: 8,
		Logger:   logger,
	}
	report, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Found())

	dir := t.TempDir()
	path, err := report.WriteCSV(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "baseline_fuzzer.csv"), path)

	lines := readLines(t, path)
	require.Len(t, lines, 100)
	for _, line := range lines {
		assert.Equal(t, "-1", line)
	}
}

func TestHarnessMixedResults(t *testing.T) {
	logger, hook := test.NewNullLogger()
	// the seed is the third argument
	fuzzer := writeScript(t, "fuzzer_a", `case "$3" in a*) exit 219;; esac
exit 1`)

	h := &Harness{
		Fuzzer: fuzzer,
		Args:   []string{"fuzz", "--target"},
		Seeds:  []string{"abc", "xyz", "aaa", "zzz"},
		Logger: logger,
	}
	report, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Found())
	assert.Greater(t, report.Values[0], 0.0)
	assert.Equal(t, NotFound, report.Values[1])
	assert.Greater(t, report.Values[2], 0.0)
	assert.Equal(t, NotFound, report.Values[3])

	path, err := report.WriteCSV(t.TempDir())
	require.NoError(t, err)
	assert.Len(t, readLines(t, path), 6)
	assert.NotEmpty(t, hook.AllEntries())
}

func TestHarnessTimeout(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fuzzer := writeScript(t, "slow", "exec sleep 5")

	h := &Harness{
		Fuzzer:  fuzzer,
		Seeds:   []string{"a"},
		Timeout: 100 * time.Millisecond,
		Logger:  logger,
	}
	report, err := h.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{NotFound}, report.Values)
}

func TestHarnessInvalidPath(t *testing.T) {
	dir := t.TempDir()
	h := &Harness{
		Fuzzer: filepath.Join(dir, "missing_fuzzer.py"),
		Seeds:  []string{"a"},
	}
	report, err := h.Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHarnessNoSeeds(t *testing.T) {
	h := &Harness{Fuzzer: writeScript(t, "f", "exit 0")}
	_, err := h.Run(context.Background())
	assert.Error(t, err)
}

func TestReportStatistics(t *testing.T) {
	r := &Report{Fuzzer: "/opt/fuzzers/fuzzer_b.py", Values: []float64{1, NotFound, 3}}

	mean, ok := r.Mean()
	require.True(t, ok)
	assert.Equal(t, 2.0, mean)

	variance, ok := r.Variance()
	require.True(t, ok)
	assert.Equal(t, 1.0, variance)

	assert.Equal(t, "fuzzer_b.csv", r.CSVName())

	path, err := r.WriteCSV(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "-1", "3", "2", "1"}, readLines(t, path))
}

func TestReportNoneFound(t *testing.T) {
	r := &Report{Fuzzer: "fuzzer", Values: []float64{NotFound, NotFound}}
	_, ok := r.Mean()
	assert.False(t, ok)
	_, ok = r.Variance()
	assert.False(t, ok)
	assert.Equal(t, "fuzzer.csv", r.CSVName())
}

func TestRenderTable(t *testing.T) {
	r := &Report{Fuzzer: "/bin/fuzzer_b", Values: []float64{1, NotFound, 3}}
	var buf bytes.Buffer
	r.RenderTable(&buf)

	out := buf.String()
	assert.Contains(t, out, "FUZZER")
	assert.Contains(t, out, "fuzzer_b")
	assert.Contains(t, out, "2.000")
	assert.Contains(t, out, "1.000")

	buf.Reset()
	(&Report{Fuzzer: "f", Values: []float64{NotFound}}).RenderTable(&buf)
	assert.Contains(t, buf.String(), "-")
}

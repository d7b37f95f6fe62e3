/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: runner_test.go
Description: Tests for the instrumented runner using the demo target: pass, fail and
crash outcomes, signature capture on every exit path and hook restoration.
*/

package execution

import (
	"context"
	"errors"
	"testing"

	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/kleascm/akaylee-greybox/pkg/probe"
	"github.com/kleascm/akaylee-greybox/pkg/targets"
	"github.com/kleascm/akaylee-greybox/pkg/targets/demo"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDemoRunner(t *testing.T) *Runner {
	t.Helper()
	logger, _ := test.NewNullLogger()

	tgt, err := targets.Lookup(demo.Name)
	require.NoError(t, err)
	src, err := tgt.Source()
	require.NoError(t, err)

	campaign, err := coverage.NewCampaign(src, coverage.CampaignConfig{
		EntryFunc: tgt.EntryName(),
		Logger:    logger,
	})
	require.NoError(t, err)

	r, err := NewRunner(tgt, campaign, logger)
	require.NoError(t, err)
	return r
}

func TestRunnerPass(t *testing.T) {
	r := newDemoRunner(t)

	out, sig := r.Execute(context.Background(), "good")
	assert.Equal(t, StatusPass, out.Status)
	assert.NoError(t, out.Err)
	assert.Nil(t, out.Crash)
	assert.False(t, sig.Empty())
	assert.Equal(t, sig, r.Coverage())
	assert.Greater(t, out.Events, 0)
	assert.False(t, probe.Active())
}

func TestRunnerFail(t *testing.T) {
	r := newDemoRunner(t)

	out, sig := r.Execute(context.Background(), "ab")
	assert.Equal(t, StatusFail, out.Status)
	assert.ErrorIs(t, out.Err, demo.ErrShortInput)
	assert.Equal(t, coverage.Signature{{18, 19, 0, 0}, {18, 19}}, sig)
	assert.Equal(t, []int{18}, r.BranchHits())
	assert.Equal(t, 2, out.Events)
}

func TestRunnerCrashStillProducesSignature(t *testing.T) {
	r := newDemoRunner(t)

	out, sig := r.Execute(context.Background(), "fuzz!")
	require.Equal(t, StatusCrash, out.Status)
	require.NotNil(t, out.Crash)
	assert.NotEmpty(t, out.Crash.Stack)

	var bug demo.BugFound
	require.True(t, errors.As(out.Err, &bug))
	assert.Equal(t, "fuzz!", bug.Input)

	assert.Equal(t, coverage.Signature{
		{18, 23, 25, 27},
		{29, 40, 46, 0},
		{38, 40, 44, 45},
		{-1}, {-1}, {-1}, {-1},
	}, sig)
	assert.Equal(t, sig, r.Coverage())
	assert.False(t, probe.Active())

	// teardown events are not part of the trace
	assert.Equal(t, 15, out.Events)
}

func TestRunnerSharesCorrectedEntries(t *testing.T) {
	r := newDemoRunner(t)
	r.Execute(context.Background(), "good")
	r.Execute(context.Background(), "bad!")

	c := r.Campaign()
	assert.True(t, c.Corrected())
	assert.Equal(t, []int{18, 19, 23, 25, 27, 29, 34, 36, 40, 42, 46}, c.Entries())
	assert.Equal(t, int64(2), c.Executions())
}

func TestRunnerSkipsCancelledContext(t *testing.T) {
	r := newDemoRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, sig := r.Execute(ctx, "good")
	assert.Equal(t, StatusSkipped, out.Status)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Nil(t, sig)
	assert.Equal(t, int64(0), r.Campaign().Executions())
}

func TestRunnerTeardownRunsOnPanic(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cleaned := 0
	tgt := &targets.FuncTarget{
		TargetName: "panicky",
		Entry:      "Entrypoint",
		Fn:         func(string) error { panic("plain value") },
		Cleanup:    func() { cleaned++ },
	}
	campaign, err := coverage.NewCampaignWithEntries(coverage.NewBranchEntrySet(nil), coverage.CampaignConfig{
		EntryFunc: "Entrypoint",
		Logger:    logger,
	})
	require.NoError(t, err)

	r, err := NewRunner(tgt, campaign, logger)
	require.NoError(t, err)

	out, sig := r.Execute(context.Background(), "x")
	assert.Equal(t, StatusCrash, out.Status)
	assert.Equal(t, "plain value", out.Crash.Value)
	assert.Nil(t, out.Crash.Unwrap())
	assert.Equal(t, 1, cleaned)
	assert.False(t, sig.Empty())
}

func TestNewRunnerValidation(t *testing.T) {
	_, err := NewRunner(nil, nil, nil)
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "PASS", StatusPass.String())
	assert.Equal(t, "CRASH", StatusCrash.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}

func TestRunnerSignaturesAreDeterministic(t *testing.T) {
	r := newDemoRunner(t)
	inputs := []string{"good", "bad!", "fuzzy?", "ab", "fuzz!"}

	first := make([]coverage.Signature, len(inputs))
	for i, input := range inputs {
		_, first[i] = r.Execute(context.Background(), input)
		require.False(t, first[i].Empty(), input)
	}

	// the depth table persists across runs
	for round := 0; round < 2; round++ {
		for i, input := range inputs {
			_, sig := r.Execute(context.Background(), input)
			assert.True(t, sig.Equal(first[i]), "input %q round %d: %v != %v", input, round, sig, first[i])
		}
	}
}

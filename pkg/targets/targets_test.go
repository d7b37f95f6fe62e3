/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: targets_test.go
Description: Tests for the target registry and FuncTarget.
*/

package targets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	tgt := &FuncTarget{
		TargetName: "registry-test",
		Entry:      "Entrypoint",
		Src:        []byte("package x"),
		Fn:         func(string) error { return nil },
		Corpus:     []string{"a", "b"},
	}
	require.NoError(t, Register(tgt))
	assert.Error(t, Register(tgt))

	got, err := Lookup("registry-test")
	require.NoError(t, err)
	assert.Same(t, tgt, got)
	assert.Contains(t, Names(), "registry-test")

	_, err = Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownTarget)

	assert.Error(t, Register(&FuncTarget{}))
}

func TestFuncTarget(t *testing.T) {
	boom := errors.New("boom")
	cleaned := 0
	tgt := &FuncTarget{
		TargetName: "func",
		Fn:         func(s string) error { return boom },
		Corpus:     []string{"seed"},
		Cleanup:    func() { cleaned++ },
	}

	assert.ErrorIs(t, tgt.Entrypoint("x"), boom)

	corpus := tgt.InitialCorpus()
	corpus[0] = "changed"
	assert.Equal(t, []string{"seed"}, tgt.InitialCorpus())

	tgt.Teardown()
	assert.Equal(t, 1, cleaned)

	_, err := tgt.Source()
	assert.Error(t, err)
}

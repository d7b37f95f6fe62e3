/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: builder_test.go
Description: Tests for n-gram folding, padding, fingerprint and nesting-depth payloads.
*/

package coverage_test

import (
	"math"
	"testing"

	"github.com/kleascm/akaylee-greybox/pkg/coverage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ngramModel(t *testing.T) coverage.Model {
	t.Helper()
	m, err := coverage.ModelByName(coverage.ModelNGram)
	require.NoError(t, err)
	return m
}

func TestBuilderFullGram(t *testing.T) {
	b := coverage.NewSignatureBuilder(ngramModel(t), nil)
	for _, l := range []int{10, 12, 10, 15} {
		b.Add(l)
	}

	sig := b.Build(nil)
	assert.Equal(t, coverage.Signature{{10, 12, 10, 15}}, sig)
	assert.Equal(t, 4, b.Hits())
}

func TestBuilderPadsPartialGram(t *testing.T) {
	b := coverage.NewSignatureBuilder(ngramModel(t), nil)
	b.Add(10)
	b.Add(12)

	sig := b.Build(nil)
	assert.Equal(t, coverage.Signature{{10, 12, coverage.PadValue, coverage.PadValue}}, sig)
	assert.Equal(t, "(10,12,0,0)", sig.Key())
}

func TestBuilderMultipleGrams(t *testing.T) {
	b := coverage.NewSignatureBuilder(ngramModel(t), nil)
	for _, l := range []int{1, 2, 3, 4, 5, 6} {
		b.Add(l)
	}
	assert.Equal(t, coverage.Signature{{1, 2, 3, 4}, {5, 6, 0, 0}}, b.Build(nil))
}

func TestBuilderNeverEmpty(t *testing.T) {
	b := coverage.NewSignatureBuilder(ngramModel(t), nil)
	sig := b.Build(nil)
	require.False(t, sig.Empty())
	assert.Equal(t, coverage.Signature{{0, 0, 0, 0}}, sig)
}

func TestBuilderFingerprint(t *testing.T) {
	m, err := coverage.ModelByName(coverage.ModelFingerprint)
	require.NoError(t, err)

	b := coverage.NewSignatureBuilder(m, nil)
	b.Add(10)

	fp := coverage.Tuple{7, 8}
	sig := b.Build(fp)
	assert.Equal(t, coverage.Signature{{10, 0, 0, 0}, {7, 8}}, sig)

	// the signature holds its own copy
	fp[0] = 99
	assert.Equal(t, coverage.Tuple{7, 8}, sig[1])
}

func TestBuilderDepthPayloads(t *testing.T) {
	m := coverage.DefaultModel()
	depth := coverage.NewNestingDepthTable()

	b := coverage.NewSignatureBuilder(m, depth)
	b.Add(10)
	b.Add(12)
	b.Add(10)
	sig := b.Build(coverage.Tuple{})
	assert.Equal(t, coverage.Signature{{10, 12, 10, 0}, {}, {-1}, {-1}, {-1}}, sig)

	depth.EndExecution()
	assert.Equal(t, -2, depth.Counter())

	// too few payloads are dropped
	b = coverage.NewSignatureBuilder(m, depth)
	b.Add(15)
	sig = b.Build(coverage.Tuple{})
	assert.Equal(t, coverage.Signature{{15, 0, 0, 0}, {}}, sig)

	w, ok := depth.Lookup(15)
	require.True(t, ok)
	assert.Equal(t, -2, w)
}

func TestBuilderKeepsLastPayloads(t *testing.T) {
	m := coverage.DefaultModel()
	depth := coverage.NewNestingDepthTable()

	// weights: 1 -> -1, then 2 -> -2, then 3 -> -4
	for i, line := range []int{1, 2, 3} {
		b := coverage.NewSignatureBuilder(m, depth)
		b.Add(line)
		b.Build(nil)
		depth.EndExecution()
		assert.Equal(t, -(2 << i), depth.Counter())
	}

	b := coverage.NewSignatureBuilder(m, depth)
	for _, line := range []int{1, 2, 3, 1, 2} {
		b.Add(line)
	}
	sig := b.Build(coverage.Tuple{1})

	require.Len(t, sig, 2+1+m.PayloadLimit)
	payloads := sig[3:]
	assert.Equal(t, coverage.Tuple{-2, -3}, payloads[0])
	assert.Equal(t, coverage.Tuple{-4, -5, -6, -7}, payloads[1])
	assert.Equal(t, coverage.Tuple{-1}, payloads[2])
	assert.Equal(t, coverage.Tuple{-2, -3}, payloads[3])
}

func TestDepthTableDoublesOncePerGrowingExecution(t *testing.T) {
	depth := coverage.NewNestingDepthTable()
	assert.Equal(t, -1, depth.Weight(5))
	assert.Equal(t, -1, depth.Weight(6))
	depth.EndExecution()
	assert.Equal(t, -2, depth.Counter())

	// nothing new, no doubling
	depth.Weight(5)
	depth.EndExecution()
	assert.Equal(t, -2, depth.Counter())
	assert.Equal(t, 2, depth.Len())

	_, ok := depth.Lookup(7)
	assert.False(t, ok)
	assert.Equal(t, 2, depth.Len())
}

func TestDepthCounterStaysInIntRange(t *testing.T) {
	depth := coverage.NewNestingDepthTable()

	// far more growing executions than an int can double through
	for line := 1; line <= 200; line++ {
		depth.Weight(line)
		depth.EndExecution()
		require.Less(t, depth.Counter(), 0)
		require.GreaterOrEqual(t, depth.Counter(), math.MinInt/2)
	}
	assert.Equal(t, 200, depth.Len())
}

func TestPayloadWidthIsCapped(t *testing.T) {
	m := coverage.DefaultModel()
	depth := coverage.NewNestingDepthTable()

	// push the counter far enough that the natural payload exceeds the cap
	for line := 1; line <= 8; line++ {
		depth.Weight(line)
		depth.EndExecution()
	}
	require.Equal(t, -256, depth.Counter())

	b := coverage.NewSignatureBuilder(m, depth)
	for i := 0; i < 3; i++ {
		b.Add(100)
	}
	sig := b.Build(nil)
	last := sig[len(sig)-1]
	assert.Len(t, last, m.MaxPayloadWidth)
	assert.Equal(t, -256, last[0])
	assert.Equal(t, -256-m.MaxPayloadWidth+1, last[len(last)-1])
}

func TestSignatureKeyAndHash(t *testing.T) {
	a := coverage.Signature{{10, 12, 0, 0}, {3, 4}}
	b := a.Clone()
	assert.True(t, a.Equal(b))
	assert.Equal(t, "(10,12,0,0)(3,4)", a.Key())
	assert.Equal(t, a.Hash(), b.Hash())

	b[1][0] = 5
	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, coverage.Tuple{3, 4}, a[1])
}

/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: mutators_test.go
Description: Tests for the character mutators and the composite.
*/

package strategies

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeleteCharMutator(t *testing.T) {
	m := NewDeleteCharMutator(rand.New(rand.NewSource(1)))
	assert.Equal(t, "", m.Mutate(""))

	for i := 0; i < 50; i++ {
		out := m.Mutate("abcdef")
		assert.Len(t, out, 5)
	}
	assert.Equal(t, "", m.Mutate("x"))
}

func TestInsertCharMutator(t *testing.T) {
	m := NewInsertCharMutator(rand.New(rand.NewSource(2)))
	assert.Len(t, m.Mutate(""), 1)

	for i := 0; i < 200; i++ {
		out := m.Mutate("abc")
		assert.Len(t, out, 4)
		for j := 0; j < len(out); j++ {
			assert.GreaterOrEqual(t, int(out[j]), MinPrintable)
			assert.LessOrEqual(t, int(out[j]), MaxPrintable)
		}
	}
}

func TestFlipCharMutator(t *testing.T) {
	m := NewFlipCharMutator(rand.New(rand.NewSource(3)))
	assert.Equal(t, "", m.Mutate(""))

	for i := 0; i < 200; i++ {
		in := "hello"
		out := m.Mutate(in)
		assert.Len(t, out, len(in))

		diff := 0
		for j := range in {
			if x := in[j] ^ out[j]; x != 0 {
				diff++
				assert.Less(t, int(x), 1<<(maxFlipBit+1))
				assert.Equal(t, x&(x-1), byte(0), "exactly one bit flipped")
			}
		}
		assert.Equal(t, 1, diff)
	}
}

func TestCompositeDeterministic(t *testing.T) {
	a := NewDefaultMutator(rand.New(rand.NewSource(42)))
	b := NewDefaultMutator(rand.New(rand.NewSource(42)))

	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Stack("seed input", 4), b.Stack("seed input", 4))
	}
}

func TestCompositeUsesEveryMutator(t *testing.T) {
	c := NewDefaultMutator(rand.New(rand.NewSource(7)))
	lengths := map[int]bool{}
	for i := 0; i < 300; i++ {
		lengths[len(c.Mutate("abcd"))] = true
	}
	// delete, flip and insert produce 3, 4 and 5 characters
	assert.Equal(t, map[int]bool{3: true, 4: true, 5: true}, lengths)
}

func TestCompositeEmpty(t *testing.T) {
	c := NewCompositeMutator(rand.New(rand.NewSource(1)))
	assert.Equal(t, "same", c.Mutate("same"))
	assert.Equal(t, "same", c.Stack("same", 3))
	assert.Contains(t, NewDefaultMutator(rand.New(rand.NewSource(1))).Description(), "FlipCharMutator")
}

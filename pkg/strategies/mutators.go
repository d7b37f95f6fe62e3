/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: mutators.go
Description: Character-level mutation strategies for string inputs. Each mutator performs
exactly one small edit: deleting a character, inserting a printable character, or
flipping one low bit of a character. All randomness comes from an injected source so
runs are reproducible from a seed.
*/

package strategies

import (
	"math/rand"
)

// Printable range used for inserted characters
const (
	MinPrintable = 32
	MaxPrintable = 126
)

// maxFlipBit is the highest bit a flip may touch, keeping ASCII input ASCII
const maxFlipBit = 6

// Mutator performs one edit on a string input
type Mutator interface {
	// Mutate returns a mutated copy of s
	Mutate(s string) string

	// Name returns the name of this mutator
	Name() string

	// Description returns a description of this mutator
	Description() string
}

// DeleteCharMutator removes one character at a random position
type DeleteCharMutator struct {
	rng *rand.Rand
}

// NewDeleteCharMutator creates a new delete mutator
func NewDeleteCharMutator(rng *rand.Rand) *DeleteCharMutator {
	return &DeleteCharMutator{rng: rng}
}

// Mutate removes one character. Empty input is returned unchanged.
func (m *DeleteCharMutator) Mutate(s string) string {
	if s == "" {
		return s
	}
	pos := m.rng.Intn(len(s))
	return s[:pos] + s[pos+1:]
}

// Name returns the name of this mutator
func (m *DeleteCharMutator) Name() string {
	return "DeleteCharMutator"
}

// Description returns a description of this mutator
func (m *DeleteCharMutator) Description() string {
	return "Deletes one character at a random position"
}

// InsertCharMutator inserts one printable character at a random position
type InsertCharMutator struct {
	rng *rand.Rand
}

// NewInsertCharMutator creates a new insert mutator
func NewInsertCharMutator(rng *rand.Rand) *InsertCharMutator {
	return &InsertCharMutator{rng: rng}
}

// Mutate inserts one character; position len(s) appends
func (m *InsertCharMutator) Mutate(s string) string {
	pos := m.rng.Intn(len(s) + 1)
	c := byte(MinPrintable + m.rng.Intn(MaxPrintable-MinPrintable+1))
	return s[:pos] + string(c) + s[pos:]
}

// Name returns the name of this mutator
func (m *InsertCharMutator) Name() string {
	return "InsertCharMutator"
}

// Description returns a description of this mutator
func (m *InsertCharMutator) Description() string {
	return "Inserts one printable character at a random position"
}

// FlipCharMutator flips one of the low seven bits of a random character
type FlipCharMutator struct {
	rng *rand.Rand
}

// NewFlipCharMutator creates a new bit flip mutator
func NewFlipCharMutator(rng *rand.Rand) *FlipCharMutator {
	return &FlipCharMutator{rng: rng}
}

// Mutate flips one bit. Empty input is returned unchanged.
func (m *FlipCharMutator) Mutate(s string) string {
	if s == "" {
		return s
	}
	pos := m.rng.Intn(len(s))
	bit := byte(1) << m.rng.Intn(maxFlipBit+1)

	b := []byte(s)
	b[pos] ^= bit
	return string(b)
}

// Name returns the name of this mutator
func (m *FlipCharMutator) Name() string {
	return "FlipCharMutator"
}

// Description returns a description of this mutator
func (m *FlipCharMutator) Description() string {
	return "Flips one of the low seven bits of a random character"
}

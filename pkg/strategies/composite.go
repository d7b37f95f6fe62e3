/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: composite.go
Description: Composite mutator. Picks one of its mutators uniformly at random per call,
and can stack several calls into a single multi-edit mutation.
*/

package strategies

import (
	"math/rand"
	"strings"
)

// CompositeMutator applies one randomly chosen mutator per call
type CompositeMutator struct {
	rng      *rand.Rand
	mutators []Mutator
}

// NewCompositeMutator creates a composite over mutators
func NewCompositeMutator(rng *rand.Rand, mutators ...Mutator) *CompositeMutator {
	return &CompositeMutator{rng: rng, mutators: mutators}
}

// NewDefaultMutator returns the delete/insert/flip composite sharing rng
func NewDefaultMutator(rng *rand.Rand) *CompositeMutator {
	return NewCompositeMutator(rng,
		NewDeleteCharMutator(rng),
		NewInsertCharMutator(rng),
		NewFlipCharMutator(rng),
	)
}

// Mutate applies one mutator chosen uniformly at random
func (c *CompositeMutator) Mutate(s string) string {
	if len(c.mutators) == 0 {
		return s
	}
	return c.mutators[c.rng.Intn(len(c.mutators))].Mutate(s)
}

// Stack applies n consecutive mutations
func (c *CompositeMutator) Stack(s string, n int) string {
	for i := 0; i < n; i++ {
		s = c.Mutate(s)
	}
	return s
}

// Name returns the name of this mutator.
func (c *CompositeMutator) Name() string {
	return "CompositeMutator"
}

// Description returns a description of this mutator.
func (c *CompositeMutator) Description() string {
	names := make([]string, len(c.mutators))
	for i, m := range c.mutators {
		names[i] = m.Name()
	}
	return "Applies one of " + strings.Join(names, ", ") + " chosen at random"
}

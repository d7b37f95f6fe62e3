/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: corpus.go
Description: Population management for the Akaylee Greybox engine. Keeps retained inputs in
insertion order with an ID index, and a cleanup pass that never evicts initial seeds.
Thread-safe for concurrent readers such as reporters.
*/

package core

import (
	"sort"
	"sync"
)

// Corpus manages the population of retained inputs
type Corpus struct {
	seeds []*Seed          // Insertion order
	index map[string]*Seed // Seed ID to seed
	mu    sync.RWMutex

	maxSize int
	evicted int64
}

// NewCorpus creates a new corpus instance
func NewCorpus(maxSize int) *Corpus {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &Corpus{
		index:   make(map[string]*Seed),
		maxSize: maxSize,
	}
}

// Add appends a seed to the population
// Adding an ID that already exists is a no-op
func (c *Corpus) Add(seed *Seed) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.index[seed.ID]; exists {
		return
	}

	if len(c.seeds) >= c.maxSize {
		c.cleanupInternal(c.maxSize - 1)
	}

	c.seeds = append(c.seeds, seed)
	c.index[seed.ID] = seed
}

// Get retrieves a seed by ID
// Returns nil if the seed doesn't exist
func (c *Corpus) Get(id string) *Seed {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.index[id]
}

// Population returns the retained seeds in insertion order
func (c *Corpus) Population() []*Seed {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Seed, len(c.seeds))
	copy(out, c.seeds)
	return out
}

// Size returns the number of retained seeds
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.seeds)
}

// SetMaxSize changes the population bound, shrinking the corpus if needed
func (c *Corpus) SetMaxSize(maxSize int) {
	if maxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
	if len(c.seeds) > maxSize {
		c.cleanupInternal(maxSize)
	}
}

// Cleanup shrinks the population to target entries and returns how many were removed
func (c *Corpus) Cleanup(target int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cleanupInternal(target)
}

// cleanupInternal evicts the lowest scoring mutated inputs until target remain
// Generation 0 seeds are never evicted, so the result may stay above target
func (c *Corpus) cleanupInternal(target int) int {
	if target < 0 {
		target = 0
	}
	excess := len(c.seeds) - target
	if excess <= 0 {
		return 0
	}

	candidates := make([]int, 0, len(c.seeds))
	for i, s := range c.seeds {
		if s.Generation > 0 {
			candidates = append(candidates, i)
		}
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return removalScore(c.seeds[candidates[a]]) < removalScore(c.seeds[candidates[b]])
	})
	if excess > len(candidates) {
		excess = len(candidates)
	}

	drop := make(map[int]bool, excess)
	for _, i := range candidates[:excess] {
		drop[i] = true
	}

	kept := c.seeds[:0]
	for i, s := range c.seeds {
		if drop[i] {
			delete(c.index, s.ID)
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(c.seeds); i++ {
		c.seeds[i] = nil
	}
	c.seeds = kept
	c.evicted += int64(excess)

	return excess
}

// removalScore ranks seeds for eviction, lowest first
// Crashing inputs are kept longest, then rarely chosen ones
func removalScore(s *Seed) float64 {
	score := s.Energy*100 - float64(s.Chosen)
	if s.Status == "CRASH" {
		score += 1000
	}
	return score
}

// GetStats returns corpus statistics
func (c *Corpus) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	initial := 0
	maxGeneration := 0
	for _, s := range c.seeds {
		if s.Generation == 0 {
			initial++
		}
		if s.Generation > maxGeneration {
			maxGeneration = s.Generation
		}
	}

	return map[string]interface{}{
		"size":           len(c.seeds),
		"max_size":       c.maxSize,
		"initial_seeds":  initial,
		"max_generation": maxGeneration,
		"evicted":        c.evicted,
	}
}

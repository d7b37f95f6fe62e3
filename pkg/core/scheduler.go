/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: scheduler.go
Description: Power schedules for the Akaylee Greybox engine. A schedule assigns energy to
every seed in the population and picks the next seed to mutate with probability
proportional to that energy. Includes a uniform schedule and the AFLFast exponential
schedule that favours seeds exercising rarely seen paths.
*/

package core

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
)

const (
	ScheduleUniform = "uniform"
	ScheduleAFLFast = "aflfast"

	// DefaultExponent is the AFLFast path-frequency exponent
	DefaultExponent = 5.0
)

// PathFrequency counts executions per signature hash
type PathFrequency map[uint64]int

// PowerSchedule defines the interface for pluggable seed selection
type PowerSchedule interface {
	// AssignEnergy sets Energy on every seed in the population
	AssignEnergy(population []*Seed, freq PathFrequency)

	// Choose picks one seed, or nil if the population is empty
	Choose(population []*Seed, freq PathFrequency, rng *rand.Rand) *Seed

	// Name returns the schedule name
	Name() string
}

// NewSchedule creates a schedule by name
func NewSchedule(name string, exponent float64) (PowerSchedule, error) {
	switch strings.ToLower(name) {
	case ScheduleUniform:
		return &UniformSchedule{}, nil
	case ScheduleAFLFast, "":
		if exponent <= 0 || math.IsNaN(exponent) || math.IsInf(exponent, 0) {
			return nil, fmt.Errorf("aflfast exponent must be a positive number, got %v", exponent)
		}
		return &AFLFastSchedule{Exponent: exponent}, nil
	default:
		return nil, fmt.Errorf("unknown schedule %q (expected %s or %s)", name, ScheduleAFLFast, ScheduleUniform)
	}
}

// ScheduleNames returns the supported schedule names
func ScheduleNames() []string {
	names := []string{ScheduleAFLFast, ScheduleUniform}
	sort.Strings(names)
	return names
}

// UniformSchedule gives every seed the same energy
type UniformSchedule struct{}

// AssignEnergy sets energy 1 on every seed
func (s *UniformSchedule) AssignEnergy(population []*Seed, freq PathFrequency) {
	for _, seed := range population {
		seed.Energy = 1
	}
}

// Choose picks a seed uniformly
func (s *UniformSchedule) Choose(population []*Seed, freq PathFrequency, rng *rand.Rand) *Seed {
	return choose(s, population, freq, rng)
}

// Name returns the schedule name
func (s *UniformSchedule) Name() string {
	return ScheduleUniform
}

// AFLFastSchedule assigns energy 1 / f^exponent where f is how often the seed's path was executed
type AFLFastSchedule struct {
	Exponent float64
}

// AssignEnergy sets energy from the path frequency of each seed
func (s *AFLFastSchedule) AssignEnergy(population []*Seed, freq PathFrequency) {
	for _, seed := range population {
		f := freq[seed.PathID]
		if f < 1 {
			f = 1
		}
		seed.Energy = 1 / math.Pow(float64(f), s.Exponent)
	}
}

// Choose picks a seed weighted by normalised energy
func (s *AFLFastSchedule) Choose(population []*Seed, freq PathFrequency, rng *rand.Rand) *Seed {
	return choose(s, population, freq, rng)
}

// Name returns the schedule name
func (s *AFLFastSchedule) Name() string {
	return ScheduleAFLFast
}

// NormalizedEnergy returns each seed's share of the total energy
func NormalizedEnergy(population []*Seed) []float64 {
	total := 0.0
	for _, seed := range population {
		total += seed.Energy
	}

	out := make([]float64, len(population))
	if total <= 0 {
		for i := range out {
			out[i] = 1 / float64(len(population))
		}
		return out
	}
	for i, seed := range population {
		out[i] = seed.Energy / total
	}
	return out
}

// choose samples one seed from the cumulative energy distribution
func choose(s PowerSchedule, population []*Seed, freq PathFrequency, rng *rand.Rand) *Seed {
	if len(population) == 0 {
		return nil
	}
	s.AssignEnergy(population, freq)
	weights := NormalizedEnergy(population)

	r := rng.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if r < acc {
			return population[i]
		}
	}
	// float rounding can leave acc just below 1
	return population[len(population)-1]
}

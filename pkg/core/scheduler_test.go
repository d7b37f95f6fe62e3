/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: scheduler_test.go
Description: Tests for power schedules and the population corpus.
*/

package core

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule(t *testing.T) {
	s, err := NewSchedule("aflfast", 5)
	require.NoError(t, err)
	assert.Equal(t, ScheduleAFLFast, s.Name())

	s, err = NewSchedule("UNIFORM", 0)
	require.NoError(t, err)
	assert.Equal(t, ScheduleUniform, s.Name())

	_, err = NewSchedule("aflfast", 0)
	assert.Error(t, err)
	_, err = NewSchedule("lottery", 5)
	assert.Error(t, err)

	assert.Equal(t, []string{"aflfast", "uniform"}, ScheduleNames())
}

func TestAFLFastEnergy(t *testing.T) {
	population := []*Seed{{PathID: 1}, {PathID: 2}, {PathID: 3}}
	freq := PathFrequency{1: 1, 2: 2}

	s := &AFLFastSchedule{Exponent: 5}
	s.AssignEnergy(population, freq)

	assert.Equal(t, 1.0, population[0].Energy)
	assert.Equal(t, 1.0/32, population[1].Energy)
	// never executed counts as once
	assert.Equal(t, 1.0, population[2].Energy)

	norm := NormalizedEnergy(population)
	total := 2 + 1.0/32
	assert.InDelta(t, 1/total, norm[0], 1e-12)
	assert.InDelta(t, (1.0/32)/total, norm[1], 1e-12)
	assert.InDelta(t, 1.0, norm[0]+norm[1]+norm[2], 1e-12)
}

func TestUniformEnergy(t *testing.T) {
	population := []*Seed{{PathID: 1}, {PathID: 2}}
	(&UniformSchedule{}).AssignEnergy(population, PathFrequency{1: 100})

	assert.Equal(t, []float64{0.5, 0.5}, NormalizedEnergy(population))
}

func TestNormalizedEnergyZeroTotal(t *testing.T) {
	population := []*Seed{{}, {}, {}, {}}
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, NormalizedEnergy(population))
}

func TestChooseFavoursRarePaths(t *testing.T) {
	rare := &Seed{ID: "rare", PathID: 1}
	common := &Seed{ID: "common", PathID: 2}
	population := []*Seed{common, rare}
	freq := PathFrequency{1: 1, 2: 1000}

	s := &AFLFastSchedule{Exponent: 5}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		assert.Same(t, rare, s.Choose(population, freq, rng))
	}
}

func TestChooseUniformCoversPopulation(t *testing.T) {
	population := make([]*Seed, 4)
	for i := range population {
		population[i] = &Seed{ID: fmt.Sprint(i)}
	}

	s := &UniformSchedule{}
	rng := rand.New(rand.NewSource(1))
	counts := map[string]int{}
	for i := 0; i < 4000; i++ {
		counts[s.Choose(population, nil, rng).ID]++
	}
	for _, seed := range population {
		assert.InDelta(t, 1000, counts[seed.ID], 200)
	}
}

func TestChooseEmpty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Nil(t, (&AFLFastSchedule{Exponent: 5}).Choose(nil, PathFrequency{}, rng))
	assert.Nil(t, (&UniformSchedule{}).Choose(nil, nil, rng))
}

func TestCorpusAddAndGet(t *testing.T) {
	c := NewCorpus(10)
	a := &Seed{ID: "a", Data: "first"}
	c.Add(a)
	c.Add(&Seed{ID: "a", Data: "duplicate"})
	c.Add(&Seed{ID: "b", Data: "second"})

	assert.Equal(t, 2, c.Size())
	assert.Same(t, a, c.Get("a"))
	assert.Nil(t, c.Get("zzz"))

	population := c.Population()
	assert.Equal(t, "first", population[0].Data)
	assert.Equal(t, "second", population[1].Data)

	// the returned slice is a copy
	population[0] = nil
	assert.NotNil(t, c.Population()[0])
}

func TestCorpusCleanupKeepsInitialSeeds(t *testing.T) {
	c := NewCorpus(100)
	c.Add(&Seed{ID: "s0", Generation: 0})
	c.Add(&Seed{ID: "s1", Generation: 0})
	c.Add(&Seed{ID: "m0", Generation: 1, Energy: 0.9})
	c.Add(&Seed{ID: "m1", Generation: 1, Energy: 0.1})
	c.Add(&Seed{ID: "m2", Generation: 2, Energy: 0.01, Status: "CRASH"})

	removed := c.Cleanup(3)
	assert.Equal(t, 2, removed)

	var ids []string
	for _, s := range c.Population() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"s0", "s1", "m2"}, ids)
	assert.Nil(t, c.Get("m1"))

	// only initial seeds remain eligible to stay, so the target cannot be met
	removed = c.Cleanup(0)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, 0, c.GetStats()["max_generation"])
	assert.EqualValues(t, 3, c.GetStats()["evicted"])
}

func TestCorpusBoundOnAdd(t *testing.T) {
	c := NewCorpus(2)
	c.Add(&Seed{ID: "s0"})
	c.Add(&Seed{ID: "m0", Generation: 1})
	c.Add(&Seed{ID: "m1", Generation: 1})

	assert.Equal(t, 2, c.Size())
	assert.NotNil(t, c.Get("s0"))
	assert.NotNil(t, c.Get("m1"))

	c.SetMaxSize(1)
	assert.Equal(t, 1, c.Size())
	assert.NotNil(t, c.Get("s0"))
}

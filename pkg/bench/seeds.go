/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: seeds.go
Description: Deterministic seed inputs for benchmark sweeps.
*/

package bench

import "math/rand"

const (
	DefaultRuns       = 100
	DefaultSeedLength = 20
	DefaultRandSeed   = 10
)

const lowercase = "abcdefghijklmnopqrstuvwxyz"

// GenerateSeeds returns n random lowercase strings of the given length.
// The same seed always yields the same inputs.
func GenerateSeeds(n, length int, seed int64) []string {
	if n <= 0 {
		return nil
	}
	if length < 0 {
		length = 0
	}

	rng := rand.New(rand.NewSource(seed))
	seeds := make([]string, n)
	buf := make([]byte, length)
	for i := range seeds {
		for j := range buf {
			buf[j] = lowercase[rng.Intn(len(lowercase))]
		}
		seeds[i] = string(buf)
	}
	return seeds
}

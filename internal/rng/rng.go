// Package rng defines the injectable randomness source threaded through the
// game engine, so tests and benchmarks can pass a seeded source.
package rng

import "math/rand"

// Source is the randomness contract the engine and AI depend on.
type Source interface {
	// Random returns a float64 in [0, 1).
	Random() float64
	// Intn returns an int in [lo, hi].
	Intn(lo, hi int) int
	// Shuffle randomizes the order of n items via swap, following
	// math/rand.Shuffle's contract.
	Shuffle(n int, swap func(i, j int))
}

// mathRandSource wraps *rand.Rand as a Source.
type mathRandSource struct {
	r *rand.Rand
}

// New returns a Source seeded deterministically from seed.
func New(seed int64) Source {
	return &mathRandSource{r: rand.New(rand.NewSource(seed))}
}

func (s *mathRandSource) Random() float64 { return s.r.Float64() }

func (s *mathRandSource) Intn(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Intn(hi-lo+1)
}

func (s *mathRandSource) Shuffle(n int, swap func(i, j int)) {
	s.r.Shuffle(n, swap)
}

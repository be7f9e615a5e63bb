package sim

import (
	"math/rand/v2"
	"sync"
)

// Source is the random source used by an Environment.
//
// *rand.Rand from math/rand/v2 satisfies it. Implementations need not be safe for
// concurrent use; the Environment serializes access.
type Source interface {
	// Float64 returns a uniform value in [0.0, 1.0).
	Float64() float64
	// NormFloat64 returns a standard normal value (mean 0, stddev 1).
	NormFloat64() float64
	// ExpFloat64 returns an exponential value with rate 1 (mean 1).
	ExpFloat64() float64
}

// NewSource returns a deterministic PCG-backed source for seed.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// lockedSource guards a Source with a mutex.
type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (s *lockedSource) uniform(min, max float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return min + s.src.Float64()*(max-min)
}

func (s *lockedSource) bernoulli(p float64) bool {
	if p <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.src.Float64() < p
}

func (s *lockedSource) normal(mean, stddev float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return mean + s.src.NormFloat64()*stddev
}

func (s *lockedSource) exponential(mean float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.src.ExpFloat64() * mean
}

// ABOUTME: Brown noise generator using leaky Brownian integration
// ABOUTME: Produces bounded mono samples one at a time or a buffer at a time
package noise

import (
	"math/rand/v2"
)

const (
	// Coefficient scales each white-noise step before integration
	Coefficient = 0.02

	// Leak bleeds off DC offset after every step
	Leak = 0.998
)

// Generator produces brown noise, power falling 6dB per octave.
// It is not safe for concurrent use; sample N+1 depends on sample N.
type Generator struct {
	rand      *rand.Rand
	lastValue float64
}

// New creates a generator drawing white noise from r.
// A nil r uses a randomly seeded source.
func New(r *rand.Rand) *Generator {
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{rand: r}
}

// NewSeeded creates a deterministic generator
func NewSeeded(seed1, seed2 uint64) *Generator {
	return New(rand.New(rand.NewPCG(seed1, seed2)))
}

// NextSample returns the next sample, always within [-1, 1]
func (g *Generator) NextSample() float32 {
	white := g.rand.Float64()*2 - 1

	g.lastValue += white * Coefficient

	if g.lastValue > 1 {
		g.lastValue = 1
	}
	if g.lastValue < -1 {
		g.lastValue = -1
	}

	g.lastValue *= Leak

	return float32(g.lastValue)
}

// Fill writes one sample per slot, in index order
func (g *Generator) Fill(buf []float32) {
	for i := range buf {
		buf[i] = g.NextSample()
	}
}

// Reset clears the integrator so no state carries across sessions
func (g *Generator) Reset() {
	g.lastValue = 0
}

// Package randengine wraps golang.org/x/exp/rand with the draws the simulator
// needs for sensor noise.
package randengine

import (
	"sync"

	"golang.org/x/exp/rand"
)

// Engine random number engine
// Function: seeded, reproducible draws for sensor noise and dropouts
// Note: the plain methods are not goroutine safe, the *Safe variants lock
type Engine struct {
	*rand.Rand            // underlying generator
	mtx        sync.Mutex // guards the *Safe variants
}

// New creates an engine from a seed. The same seed yields the same sequence.
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed))}
}

// PTrue returns true with probability p (not goroutine safe).
func (e *Engine) PTrue(p float64) bool {
	return e.Float64() < p
}

// Norm draws from N(mean, std²) (not goroutine safe).
// std <= 0 returns mean without consuming randomness.
func (e *Engine) Norm(mean, std float64) float64 {
	if std <= 0 {
		return mean
	}
	return mean + std*e.NormFloat64()
}

// PTrueSafe is the goroutine safe PTrue.
func (e *Engine) PTrueSafe(p float64) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.PTrue(p)
}

// NormSafe is the goroutine safe Norm.
func (e *Engine) NormSafe(mean, std float64) float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Norm(mean, std)
}

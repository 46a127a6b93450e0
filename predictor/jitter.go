package predictor

import "math/rand/v2"

// JitterSource supplies the random offset added to every probability.
type JitterSource interface {
	Jitter() float64
}

// UniformJitter draws uniformly from [-Spread, +Spread].
type UniformJitter struct {
	Spread float64
}

func (u UniformJitter) Jitter() float64 {
	return (rand.Float64()*2 - 1) * u.Spread
}

// FixedJitter always returns the same offset. FixedJitter(0) makes
// predictions deterministic.
type FixedJitter float64

func (f FixedJitter) Jitter() float64 {
	return float64(f)
}

// JitterFunc adapts a plain function to JitterSource.
type JitterFunc func() float64

func (f JitterFunc) Jitter() float64 {
	return f()
}

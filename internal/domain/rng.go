package domain

import "math"

const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407

	// zeroSeedReplacement stands in for seed 0, which would otherwise start
	// every stream from the same all-zero state.
	zeroSeedReplacement = 0x9E3779B97F4A7C15

	minGaussianUniform = 1e-12
)

// RNG is a 64-bit linear congruential generator. It is not safe for
// concurrent use; give each goroutine (or each cell) its own instance.
type RNG struct {
	state uint64
}

// NewRNG seeds a generator. Seed 0 is remapped to a fixed non-zero constant.
func NewRNG(seed uint64) *RNG {
	if seed == 0 {
		seed = zeroSeedReplacement
	}
	return &RNG{state: seed}
}

// Uniform01 advances the state and returns the top 21 bits as a fraction in [0, 1).
func (r *RNG) Uniform01() float64 {
	r.state = r.state*lcgMultiplier + lcgIncrement
	return float64(r.state>>43) / float64(1<<21)
}

// Gaussian draws from N(mean, sigma²) with the Box-Muller transform. It always
// consumes exactly two uniforms.
func (r *RNG) Gaussian(mean, sigma float64) float64 {
	u1 := math.Max(r.Uniform01(), minGaussianUniform)
	u2 := r.Uniform01()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + z*sigma
}

// Package rng provides the per-worker random source used to dice initial
// conditions and surface interactions. Sources are never shared between
// workers, keeping runs reproducible per seed and contention-free.
package rng

import (
	"math"
	"math/rand"
)

// Source wraps a seeded generator with the sampling helpers the tracker
// needs. Not safe for concurrent use; create one per worker.
type Source struct {
	r *rand.Rand
}

// New returns a source seeded deterministically.
func New(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed))}
}

// Uniform samples uniformly from [lo, hi).
func (s *Source) Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.r.Float64()
}

// Exp samples an exponential with the given mean; used for lifetime dicing.
func (s *Source) Exp(mean float64) float64 {
	return -mean * math.Log(1-s.r.Float64())
}

// Bool returns true with probability p.
func (s *Source) Bool(p float64) bool {
	return s.r.Float64() < p
}

// Polarization dices ±1, returning +1 with probability pUp.
func (s *Source) Polarization(pUp float64) int {
	if s.r.Float64() < pUp {
		return 1
	}
	return -1
}

// IsotropicDirection samples a unit vector uniformly over the sphere.
func (s *Source) IsotropicDirection() [3]float64 {
	cosTheta := s.Uniform(-1, 1)
	sinTheta := math.Sqrt(1 - cosTheta*cosTheta)
	phi := s.Uniform(0, 2*math.Pi)
	return [3]float64{sinTheta * math.Cos(phi), sinTheta * math.Sin(phi), cosTheta}
}

// LambertAngles samples the polar and azimuthal angles of a Lambertian
// (cosine-weighted) reflection about the surface normal.
func (s *Source) LambertAngles() (theta, phi float64) {
	theta = math.Asin(math.Sqrt(s.r.Float64()))
	phi = s.Uniform(0, 2*math.Pi)
	return theta, phi
}

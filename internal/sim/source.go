// Package sim runs ensembles of independent trajectories across a worker
// pool, sampling initial conditions from a configured source volume.
package sim

import (
	"github.com/mseidel/trak/internal/phys"
	"github.com/mseidel/trak/internal/rng"
	"github.com/mseidel/trak/internal/species"
)

// Source samples initial conditions: positions uniform in an axis-aligned
// box, kinetic energies uniform in a range, isotropic directions, start
// times uniform in an activity window.
type Source struct {
	Min, Max   [3]float64 // box corners [m]
	EMin, EMax float64    // kinetic energy range [eV]
	TStart     float64    // activity window start [s]
	TEnd       float64    // activity window end [s]
	PolUp      float64    // probability of spin-up polarization
}

// Sample draws one initial condition for the given species.
func (s Source) Sample(src *rng.Source, sp species.Species) (t float64, pos, v [3]float64, pol int) {
	t = src.Uniform(s.TStart, s.TEnd)
	for i := 0; i < 3; i++ {
		pos[i] = src.Uniform(s.Min[i], s.Max[i])
	}
	e := src.Uniform(s.EMin, s.EMax)
	speed := phys.SpeedFromEkin(sp.Mass(), e)
	dir := src.IsotropicDirection()
	for i := 0; i < 3; i++ {
		v[i] = speed * dir[i]
	}
	pol = src.Polarization(s.PolUp)
	return t, pos, v, pol
}

// Package track contains the trajectory-integration core: the trajectory
// record, the solid occupancy stack, the spatial step splitter, the
// collision bisection resolver and the driver loop tying them together.
package track

import (
	"time"

	"github.com/mseidel/trak/internal/phys"
	"github.com/mseidel/trak/internal/species"
)

// Fate is the terminal classification of a trajectory. It is set exactly
// once and never reversed.
type Fate int

const (
	FateUnresolved Fate = iota
	FateDecayed
	FateAbsorbed
	FateExited
	FateNumericalError
	FateExceededBudget
)

func (f Fate) String() string {
	switch f {
	case FateUnresolved:
		return "unresolved"
	case FateDecayed:
		return "decayed"
	case FateAbsorbed:
		return "absorbed"
	case FateExited:
		return "exited"
	case FateNumericalError:
		return "numerical-error"
	case FateExceededBudget:
		return "exceeded-budget"
	default:
		return "unknown"
	}
}

// Record accumulates everything known about one trajectory. It is created at
// trajectory start, mutated only by the driver and resolver, and treated as
// immutable once the fate is resolved.
type Record struct {
	ParticleNo int
	Secondary  int // decay generation index within the particle, 0 for the primary
	Species    species.Species

	TStart, TEnd     float64
	YStart, YEnd     [6]float64
	PolStart, PolEnd int

	Tau     float64 // life-time budget [s]
	MaxTraj float64 // trajectory-length budget [m]

	Fate       Fate
	AbsorbedIn int // solid id, valid when Fate == FateAbsorbed

	PathLength float64
	NStep      int
	NHit       int
	NSpinflip  int

	HStart, HEnd, HMax float64 // total energy [eV]
	EStart, EEnd       float64 // kinetic energy [eV]

	IntTime  time.Duration // wall time spent integrating
	GeomTime time.Duration // wall time spent resolving collisions

	Secondaries []species.Secondary
}

// NewRecord starts a trajectory record for particle n of species sp at time
// t, position pos, velocity v and polarization pol, with life-time budget
// tau and trajectory-length budget maxTraj.
func NewRecord(sp species.Species, n int, t, tau, maxTraj float64, pos, v [3]float64, pol int) *Record {
	r := &Record{
		ParticleNo: n,
		Species:    sp,
		TStart:     t,
		TEnd:       t,
		Tau:        tau,
		MaxTraj:    maxTraj,
		PolStart:   pol,
		PolEnd:     pol,
	}
	copy(r.YStart[:3], pos[:])
	copy(r.YStart[3:], v[:])
	r.YEnd = r.YStart
	return r
}

// setFate records a terminal fate, keeping the first one set.
func (r *Record) setFate(f Fate) {
	if r.Fate == FateUnresolved {
		r.Fate = f
	}
}

// setAbsorbed records absorption in the given solid.
func (r *Record) setAbsorbed(solidID int) {
	if r.Fate == FateUnresolved {
		r.Fate = FateAbsorbed
		r.AbsorbedIn = solidID
	}
}

// Ekin returns the current kinetic energy [eV].
func (r *Record) Ekin(y []float64) float64 {
	return phys.Ekin(r.Species.Mass(), [3]float64{y[3], y[4], y[5]})
}

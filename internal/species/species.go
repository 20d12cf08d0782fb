// Package species defines the per-species capability interface the tracker
// dispatches through (boundary hits, per-step absorption, decay, potential
// energy) and concrete species implementations.
package species

import (
	"github.com/mseidel/trak/internal/field"
	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/rng"
)

// HitOutcome reports what a species did at a material boundary. Entering is
// the solid the particle effectively ends up heading into: on reflection it
// equals the leaving solid.
type HitOutcome struct {
	PathChanged bool
	Absorbed    bool
	Entering    geometry.Solid
}

// Secondary is a particle produced by a decay.
type Secondary struct {
	Species      Species
	Time         float64
	State        [6]float64
	Polarization int
}

// Species is the extension-point interface dispatched by the trajectory
// driver and resolver without compile-time knowledge of the concrete kind.
// Implementations must not retain the state slices they are handed.
type Species interface {
	Name() string
	Charge() float64 // q [C]
	Mass() float64   // m [eV·s²/m²]
	Moment() float64 // μ [J/T]
	// MeanLifetime is the mean of the exponential lifetime distribution [s];
	// zero means stable.
	MeanLifetime() float64

	// OnHit is invoked when the particle crosses a priority-relevant
	// material boundary from (x1,y1) to (x2,y2). It may rewrite x2/y2 and
	// pol in place.
	OnHit(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
		pol *int, normal [3]float64, leaving, entering geometry.Solid) HitOutcome

	// OnStep is invoked for every resolved sub-segment and reports whether
	// the particle was absorbed inside current. It may rewrite x2/y2.
	OnStep(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
		current geometry.Solid) (absorbed bool)

	// Decay produces the secondaries emitted when the particle reaches its
	// lifetime at (t, y).
	Decay(src *rng.Source, t float64, y []float64) []Secondary

	// PotentialEnergy returns the particle's potential energy [eV].
	PotentialEnergy(t float64, y []float64, pol int, f field.Field) float64
}

// Props carries the immutable physical constants shared by all species and
// provides the trivial accessor half of the Species interface.
type Props struct {
	SpeciesName string
	Q           float64
	M           float64
	Mu          float64
	Tau         float64
}

func (p Props) Name() string          { return p.SpeciesName }
func (p Props) Charge() float64       { return p.Q }
func (p Props) Mass() float64         { return p.M }
func (p Props) Moment() float64       { return p.Mu }
func (p Props) MeanLifetime() float64 { return p.Tau }

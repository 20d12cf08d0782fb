package species

import (
	"github.com/mseidel/trak/internal/field"
	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/phys"
	"github.com/mseidel/trak/internal/rng"
)

// Tracer is a neutral, non-interacting massive species used for geometry
// debugging: it feels gravity but passes through every boundary untouched.
type Tracer struct {
	Props
	eval phys.Evaluator
}

// NewTracer returns a tracer with neutron mass and no charge or moment.
func NewTracer() *Tracer {
	p := Props{SpeciesName: "tracer", M: phys.MassNeutron}
	return &Tracer{Props: p, eval: phys.Evaluator{Mass: p.M}}
}

func (tr *Tracer) OnHit(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
	pol *int, normal [3]float64, leaving, entering geometry.Solid) HitOutcome {
	return HitOutcome{Entering: entering}
}

func (tr *Tracer) OnStep(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
	current geometry.Solid) bool {
	return false
}

func (tr *Tracer) Decay(src *rng.Source, t float64, y []float64) []Secondary { return nil }

func (tr *Tracer) PotentialEnergy(t float64, y []float64, pol int, f field.Field) float64 {
	return tr.eval.PotentialEnergy(t, y, pol, f)
}

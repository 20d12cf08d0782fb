package species

import (
	"github.com/mseidel/trak/internal/field"
	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/phys"
	"github.com/mseidel/trak/internal/rng"
)

// Charged is a charged species that is absorbed by any non-default solid it
// hits (protons and electrons stop in the first wall they reach).
type Charged struct {
	Props
	eval phys.Evaluator
}

// NewProton returns a proton.
func NewProton() *Charged {
	return newCharged("proton", phys.EleE, phys.MassProton)
}

// NewElectron returns an electron.
func NewElectron() *Charged {
	return newCharged("electron", -phys.EleE, phys.MassElectron)
}

func newCharged(name string, q, m float64) *Charged {
	p := Props{SpeciesName: name, Q: q, M: m, Mu: 0, Tau: 0}
	return &Charged{Props: p, eval: phys.Evaluator{Charge: q, Mass: m}}
}

func (c *Charged) OnHit(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
	pol *int, normal [3]float64, leaving, entering geometry.Solid) HitOutcome {

	target := entering
	if target.ID == geometry.DefaultSolidID {
		target = leaving
	}
	if target.ID == geometry.DefaultSolidID {
		return HitOutcome{Entering: entering}
	}
	*x2 = x1
	copy(y2, y1)
	return HitOutcome{Absorbed: true, Entering: entering}
}

func (c *Charged) OnStep(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
	current geometry.Solid) bool {
	return false
}

func (c *Charged) Decay(src *rng.Source, t float64, y []float64) []Secondary { return nil }

func (c *Charged) PotentialEnergy(t float64, y []float64, pol int, f field.Field) float64 {
	return c.eval.PotentialEnergy(t, y, pol, f)
}

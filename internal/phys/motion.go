package phys

import (
	"math"

	"github.com/mseidel/trak/internal/field"
)

// Evaluator computes the time derivative of a 6-component particle state
// (position, velocity) under gravity, the Lorentz force and the force on a
// magnetic dipole. It is a pure function of its inputs and safe to call
// concurrently for different particles.
type Evaluator struct {
	Charge float64 // q [C]
	Mass   float64 // m [eV·s²/m²]
	Moment float64 // μ [J/T]
}

// Derivs fills dydx with the state derivative at time t. pol is the particle
// polarization (-1, 0, +1); f may be nil for field-free regions.
//
// The acceleration uses the fully relativistic form
//
//	a = 1/(γm)·(F - v·(v·F)/c²)
//
// which holds in both the low-speed and relativistic regimes and keeps the
// speed strictly below c without any external clamp.
func (e Evaluator) Derivs(t float64, y []float64, pol int, f field.Field, dydx []float64) {
	dydx[0] = y[3]
	dydx[1] = y[4]
	dydx[2] = y[5]

	var F [3]float64 // force scaled by 1/e [N/C], matching mass in eV·s²/m²
	if e.Mass != 0 {
		F[2] -= GravAcc * e.Mass
	}
	if f != nil {
		var b field.Magnetic
		if e.Charge != 0 || (e.Moment != 0 && pol != 0) {
			b = f.Magnetic(y[0], y[1], y[2], t)
		}
		if e.Charge != 0 {
			el := f.Electric(y[0], y[1], y[2], t)
			q := e.Charge / EleE
			F[0] += q * (el.E[0] + y[4]*b.B[2] - y[5]*b.B[1])
			F[1] += q * (el.E[1] + y[5]*b.B[0] - y[3]*b.B[2])
			F[2] += q * (el.E[2] + y[3]*b.B[1] - y[4]*b.B[0])
		}
		if e.Moment != 0 && pol != 0 {
			mu := float64(pol) * e.Moment / EleE
			F[0] += mu * b.DAbs[0]
			F[1] += mu * b.DAbs[1]
			F[2] += mu * b.DAbs[2]
		}
	}

	v2 := y[3]*y[3] + y[4]*y[4] + y[5]*y[5]
	rel := sqrtOneMinus(v2/(C0*C0)) / e.Mass
	vdotF := (y[3]*F[0] + y[4]*F[1] + y[5]*F[2]) / (C0 * C0)
	dydx[3] = rel * (F[0] - y[3]*vdotF)
	dydx[4] = rel * (F[1] - y[4]*vdotF)
	dydx[5] = rel * (F[2] - y[5]*vdotF)
}

// PotentialEnergy returns the default potential energy [eV]: magnetic
// dipole term -σμ|B|/e, electrostatic term qV/e and gravitational term mgz.
func (e Evaluator) PotentialEnergy(t float64, y []float64, pol int, f field.Field) float64 {
	var result float64
	if f != nil && (e.Charge != 0 || e.Moment != 0) {
		if e.Moment != 0 {
			b := f.Magnetic(y[0], y[1], y[2], t)
			result += -float64(pol) * e.Moment / EleE * b.Abs
		}
		if e.Charge != 0 {
			el := f.Electric(y[0], y[1], y[2], t)
			result += e.Charge / EleE * el.V
		}
	}
	result += e.Mass * GravAcc * y[2]
	return result
}

func sqrtOneMinus(x float64) float64 {
	if x >= 1 {
		return 0
	}
	return math.Sqrt(1 - x)
}

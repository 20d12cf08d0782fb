package phys

import "math"

// Speed returns |v| for a 6-component state (position, velocity).
func Speed(y []float64) float64 {
	return math.Sqrt(y[3]*y[3] + y[4]*y[4] + y[5]*y[5])
}

// Ekin returns the kinetic energy [eV] of a particle of mass m [eV·s²/m²]
// with velocity v. Below RelativisticThreshold the classical ½mv² is used,
// above it (γ-1)mc².
func Ekin(m float64, v [3]float64) float64 {
	vabs := math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
	if vabs/C0 < RelativisticThreshold {
		return 0.5 * m * vabs * vabs
	}
	gamma := 1 / math.Sqrt(1-vabs*vabs/(C0*C0))
	return C0 * C0 * m * (gamma - 1)
}

// SpeedFromEkin inverts Ekin: it returns the speed [m/s] of a particle of
// mass m [eV·s²/m²] with kinetic energy e [eV].
func SpeedFromEkin(m, e float64) float64 {
	gamma := e/(m*C0*C0) + 1
	if gamma < 1.0001 {
		return math.Sqrt(2 * e / m)
	}
	return C0 * math.Sqrt(1-1/(gamma*gamma))
}

// Package field defines the electromagnetic field contract consumed by the
// equations of motion, plus a handful of analytic field implementations.
// Interpolated table fields plug in behind the same interface.
package field

import "math"

// Magnetic bundles a magnetic field evaluation: the field vector, its
// spatial gradient, the field magnitude and the magnitude's gradient.
type Magnetic struct {
	B    [3]float64    // field vector [T]
	Grad [3][3]float64 // Grad[i][j] = dB_i/dx_j [T/m]
	Abs  float64       // |B| [T]
	DAbs [3]float64    // d|B|/dx_j [T/m]
}

// Electric bundles an electric field evaluation.
type Electric struct {
	V float64    // potential [V]
	E [3]float64 // field vector [V/m]
}

// Field evaluates electromagnetic fields at a point and time. Implementations
// must accept any position (returning zero outside their domain) and must be
// safe for concurrent read-only use.
type Field interface {
	Magnetic(x, y, z, t float64) Magnetic
	Electric(x, y, z, t float64) Electric
}

// Uniform is a spatially constant field. Its magnitude gradient is zero, so
// it exerts no force on a magnetic moment.
type Uniform struct {
	B [3]float64
	E [3]float64
	V float64
}

func (u Uniform) Magnetic(x, y, z, t float64) Magnetic {
	return Magnetic{B: u.B, Abs: norm3(u.B)}
}

func (u Uniform) Electric(x, y, z, t float64) Electric {
	return Electric{V: u.V, E: u.E}
}

// LinearB is a magnetic field whose z component grows linearly along z:
// B = (0, 0, B0 + G·z). Useful for exercising the magnetic-moment force.
type LinearB struct {
	B0 float64
	G  float64 // dBz/dz [T/m]
}

func (l LinearB) Magnetic(x, y, z, t float64) Magnetic {
	bz := l.B0 + l.G*z
	m := Magnetic{B: [3]float64{0, 0, bz}}
	m.Grad[2][2] = l.G
	if bz >= 0 {
		m.Abs = bz
		m.DAbs = [3]float64{0, 0, l.G}
	} else {
		m.Abs = -bz
		m.DAbs = [3]float64{0, 0, -l.G}
	}
	return m
}

func (l LinearB) Electric(x, y, z, t float64) Electric { return Electric{} }

// Composite sums the contributions of several fields.
type Composite []Field

func (c Composite) Magnetic(x, y, z, t float64) Magnetic {
	var sum Magnetic
	for _, f := range c {
		m := f.Magnetic(x, y, z, t)
		for i := 0; i < 3; i++ {
			sum.B[i] += m.B[i]
			for j := 0; j < 3; j++ {
				sum.Grad[i][j] += m.Grad[i][j]
			}
		}
	}
	sum.finishAbs()
	return sum
}

func (c Composite) Electric(x, y, z, t float64) Electric {
	var sum Electric
	for _, f := range c {
		e := f.Electric(x, y, z, t)
		sum.V += e.V
		for i := 0; i < 3; i++ {
			sum.E[i] += e.E[i]
		}
	}
	return sum
}

// finishAbs recomputes Abs and DAbs from B and Grad. Needed after summing
// components, since magnitudes do not add linearly.
func (m *Magnetic) finishAbs() {
	m.Abs = norm3(m.B)
	if m.Abs == 0 {
		m.DAbs = [3]float64{}
		return
	}
	for j := 0; j < 3; j++ {
		var d float64
		for i := 0; i < 3; i++ {
			d += m.B[i] * m.Grad[i][j]
		}
		m.DAbs[j] = d / m.Abs
	}
}

func norm3(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

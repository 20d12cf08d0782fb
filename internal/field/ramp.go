package field

// Ramp wraps a field and scales its magnetic part with a trapezoidal time
// envelope: zero until NullTime, ramping linearly to full strength over
// RampUp, held for FullTime, then ramping back down over RampDown.
// The electric part is passed through unscaled.
type Ramp struct {
	Inner    Field
	NullTime float64
	RampUp   float64
	FullTime float64
	RampDown float64
}

func (r Ramp) scale(t float64) float64 {
	switch {
	case t < r.NullTime:
		return 0
	case t < r.NullTime+r.RampUp:
		return (t - r.NullTime) / r.RampUp
	case t < r.NullTime+r.RampUp+r.FullTime:
		return 1
	case t < r.NullTime+r.RampUp+r.FullTime+r.RampDown:
		return 1 - (t-r.NullTime-r.RampUp-r.FullTime)/r.RampDown
	default:
		return 0
	}
}

func (r Ramp) Magnetic(x, y, z, t float64) Magnetic {
	m := r.Inner.Magnetic(x, y, z, t)
	s := r.scale(t)
	for i := 0; i < 3; i++ {
		m.B[i] *= s
		m.DAbs[i] *= s
		for j := 0; j < 3; j++ {
			m.Grad[i][j] *= s
		}
	}
	m.Abs *= s
	return m
}

func (r Ramp) Electric(x, y, z, t float64) Electric {
	return r.Inner.Electric(x, y, z, t)
}

package species

import (
	"math"
	"math/cmplx"

	"github.com/mseidel/trak/internal/field"
	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/phys"
	"github.com/mseidel/trak/internal/rng"
)

const hbarEVs = 6.58211899e-16 // ħ [eV·s]

// Neutron models an ultracold-neutron-like species: boundary interaction via
// the material's Fermi pseudo-potential step (reflection/transmission with
// refraction, Lambertian diffuse reflection, per-bounce loss, spin flip),
// bulk absorption via the imaginary potential, and beta decay into a proton
// and an electron.
type Neutron struct {
	Props
	eval phys.Evaluator
}

// NewNeutron returns a neutron with its physical constants.
func NewNeutron() *Neutron {
	p := Props{
		SpeciesName: "neutron",
		Q:           0,
		M:           phys.MassNeutron,
		Mu:          phys.MomentNeutron,
		Tau:         phys.TauNeutron,
	}
	return &Neutron{Props: p, eval: phys.Evaluator{Charge: p.Q, Mass: p.M, Moment: p.Mu}}
}

func (n *Neutron) OnHit(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
	pol *int, normal [3]float64, leaving, entering geometry.Solid) HitOutcome {

	vnorm := y1[3]*normal[0] + y1[4]*normal[1] + y1[5]*normal[2]
	enorm := 0.5 * n.M * vnorm * vnorm // energy in the normal direction [eV]
	estep := (entering.Material.FermiReal - leaving.Material.FermiReal) * 1e-9

	// spin flip dices on every wall interaction
	mat := entering.Material
	if estep < 0 {
		mat = leaving.Material
	}
	if mat.SpinflipProb > 0 && *pol != 0 && src.Bool(mat.SpinflipProb) {
		*pol = -*pol
	}

	transmit := false
	if enorm > estep {
		k1 := math.Sqrt(enorm)
		k2 := math.Sqrt(enorm - estep)
		reflProb := ((k1 - k2) / (k1 + k2)) * ((k1 - k2) / (k1 + k2))
		transmit = !src.Bool(reflProb)
	}

	if transmit {
		// refract: scale only the normal velocity component. The particle
		// stays at the segment end just past the surface so the crossing is
		// not found again after the restart.
		vnormNew := math.Copysign(math.Sqrt(2/n.M*(enorm-estep)), vnorm)
		for i := 0; i < 3; i++ {
			y2[3+i] += (vnormNew - vnorm) * normal[i]
		}
		return HitOutcome{PathChanged: true, Entering: entering}
	}

	// total or probabilistic reflection; dice wall loss first
	if mat.LossPerBounce > 0 && src.Bool(mat.LossPerBounce) {
		*x2 = x1
		copy(y2, y1)
		return HitOutcome{Absorbed: true, Entering: entering}
	}

	*x2 = x1
	copy(y2, y1)
	if mat.DiffProb > 0 && src.Bool(mat.DiffProb) {
		n.reflectDiffuse(src, y2, normal, vnorm)
	} else {
		for i := 0; i < 3; i++ {
			y2[3+i] -= 2 * vnorm * normal[i]
		}
	}
	return HitOutcome{PathChanged: true, Entering: leaving}
}

// reflectDiffuse replaces the velocity with a Lambertian sample about the
// axis opposing the incoming normal component, conserving speed.
func (n *Neutron) reflectDiffuse(src *rng.Source, y []float64, normal [3]float64, vnorm float64) {
	speed := math.Sqrt(y[3]*y[3] + y[4]*y[4] + y[5]*y[5])
	axis := normal
	if vnorm > 0 {
		axis = [3]float64{-normal[0], -normal[1], -normal[2]}
	}
	theta, phi := src.LambertAngles()
	u := perpendicular(axis)
	w := cross(axis, u)
	st, ct := math.Sin(theta), math.Cos(theta)
	for i := 0; i < 3; i++ {
		y[3+i] = speed * (st*math.Cos(phi)*u[i] + st*math.Sin(phi)*w[i] + ct*axis[i])
	}
}

func (n *Neutron) OnStep(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
	current geometry.Solid) bool {

	mat := current.Material
	if mat.FermiImag == 0 {
		return false
	}
	l := math.Sqrt((y2[0]-y1[0])*(y2[0]-y1[0]) + (y2[1]-y1[1])*(y2[1]-y1[1]) + (y2[2]-y1[2])*(y2[2]-y1[2]))
	if l == 0 {
		return false
	}
	e := phys.Ekin(n.M, [3]float64{y1[3], y1[4], y1[5]})
	v := complex(e-mat.FermiReal*1e-9, mat.FermiImag*1e-9)
	k := cmplx.Sqrt(complex(2*n.M, 0)*v) / complex(hbarEVs, 0)
	prob := 1 - math.Exp(-2*imag(k)*l)
	return src.Bool(prob)
}

// Decay emits a proton and an electron with diced kinetic energies and
// isotropic directions at the decay point.
func (n *Neutron) Decay(src *rng.Source, t float64, y []float64) []Secondary {
	secs := make([]Secondary, 0, 2)
	for _, d := range []struct {
		sp   Species
		emax float64
	}{
		{NewProton(), 750.0},
		{NewElectron(), 782e3},
	} {
		e := src.Uniform(0, d.emax)
		v := phys.SpeedFromEkin(d.sp.Mass(), e)
		dir := src.IsotropicDirection()
		var st [6]float64
		copy(st[:3], y[:3])
		for i := 0; i < 3; i++ {
			st[3+i] = v * dir[i]
		}
		secs = append(secs, Secondary{Species: d.sp, Time: t, State: st, Polarization: 0})
	}
	return secs
}

func (n *Neutron) PotentialEnergy(t float64, y []float64, pol int, f field.Field) float64 {
	return n.eval.PotentialEnergy(t, y, pol, f)
}

func perpendicular(v [3]float64) [3]float64 {
	a := [3]float64{1, 0, 0}
	if math.Abs(v[0]) > 0.9 {
		a = [3]float64{0, 1, 0}
	}
	c := cross(v, a)
	n := math.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
	return [3]float64{c[0] / n, c[1] / n, c[2] / n}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

package phys

import (
	"math"
	"testing"

	"github.com/mseidel/trak/internal/field"
)

func TestEkin_LowSpeed(t *testing.T) {
	v := [3]float64{3, 4, 0} // 5 m/s, deeply non-relativistic
	e := Ekin(MassNeutron, v)
	want := 0.5 * MassNeutron * 25
	if math.Abs(e-want) > 1e-20 {
		t.Errorf("Ekin = %g, want %g", e, want)
	}
}

func TestEkin_RelativisticBranch(t *testing.T) {
	v := [3]float64{0.5 * C0, 0, 0}
	e := Ekin(MassNeutron, v)
	gamma := 1 / math.Sqrt(1-0.25)
	want := C0 * C0 * MassNeutron * (gamma - 1)
	if math.Abs(e-want)/want > 1e-12 {
		t.Errorf("Ekin = %g, want %g", e, want)
	}
	classical := 0.5 * MassNeutron * 0.25 * C0 * C0
	if e <= classical {
		t.Error("relativistic kinetic energy should exceed classical value")
	}
}

func TestSpeedFromEkin_InvertsEkin(t *testing.T) {
	for _, e := range []float64{1e-7, 1, 1e3, 1e6, 1e8} {
		v := SpeedFromEkin(MassNeutron, e)
		if v <= 0 || v >= C0 {
			t.Fatalf("e=%g: speed %g out of range", e, v)
		}
		back := Ekin(MassNeutron, [3]float64{v, 0, 0})
		if math.Abs(back-e)/e > 1e-9 {
			t.Errorf("e=%g: roundtrip gives %g", e, back)
		}
	}
}

func TestSpeed(t *testing.T) {
	y := []float64{1, 2, 3, 1, 2, 2}
	if got := Speed(y); got != 3 {
		t.Errorf("Speed = %g, want 3", got)
	}
}

func TestDerivs_GravityOnly(t *testing.T) {
	ev := Evaluator{Mass: MassNeutron}
	y := []float64{0, 0, 1, 5, 0, 0}
	dydx := make([]float64, 6)
	ev.Derivs(0, y, 0, nil, dydx)

	if dydx[0] != 5 || dydx[1] != 0 || dydx[2] != 0 {
		t.Errorf("position derivative %v, want velocity", dydx[:3])
	}
	if math.Abs(dydx[5]+GravAcc) > 1e-9 {
		t.Errorf("z acceleration = %g, want %g", dydx[5], -GravAcc)
	}
	if math.Abs(dydx[3]) > 1e-12 || math.Abs(dydx[4]) > 1e-12 {
		t.Errorf("horizontal acceleration %v, want zero", dydx[3:5])
	}
}

func TestDerivs_LorentzForce(t *testing.T) {
	// positive charge moving +x in B = Bz: F = qv×B points along -y
	ev := Evaluator{Charge: EleE, Mass: MassProton}
	f := field.Uniform{B: [3]float64{0, 0, 1}}
	y := []float64{0, 0, 0, 100, 0, 0}
	dydx := make([]float64, 6)
	ev.Derivs(0, y, 0, f, dydx)

	if dydx[4] >= 0 {
		t.Errorf("ay = %g, want negative (v×B)", dydx[4])
	}
	want := -100.0 / MassProton // qvB/m with q/e = 1, B = 1
	if math.Abs(dydx[4]-want)/math.Abs(want) > 1e-9 {
		t.Errorf("ay = %g, want %g", dydx[4], want)
	}
}

func TestDerivs_MomentForce(t *testing.T) {
	// low-field seeker (negative moment) polarized +1 in a field growing
	// along z is pushed toward weaker field
	ev := Evaluator{Mass: MassNeutron, Moment: MomentNeutron}
	f := field.LinearB{B0: 1, G: 2}
	y := []float64{0, 0, 0, 0, 0, 0}
	dydx := make([]float64, 6)
	ev.Derivs(0, y, 1, f, dydx)

	want := -GravAcc + MomentNeutron/EleE*2/MassNeutron
	if math.Abs(dydx[5]-want)/math.Abs(want) > 1e-9 {
		t.Errorf("az = %g, want %g", dydx[5], want)
	}

	// polarization 0 feels no moment force
	ev.Derivs(0, y, 0, f, dydx)
	if math.Abs(dydx[5]+GravAcc) > 1e-9 {
		t.Errorf("unpolarized az = %g, want %g", dydx[5], -GravAcc)
	}
}

func TestDerivs_RelativisticSuppression(t *testing.T) {
	ev := Evaluator{Mass: MassElectron}
	slow := []float64{0, 0, 0, 10, 0, 0}
	fast := []float64{0, 0, 0, 0.9 * C0, 0, 0}
	dSlow := make([]float64, 6)
	dFast := make([]float64, 6)
	ev.Derivs(0, slow, 0, nil, dSlow)
	ev.Derivs(0, fast, 0, nil, dFast)

	if math.Abs(dFast[5]) >= math.Abs(dSlow[5]) {
		t.Errorf("fast particle accelerates more than slow one: %g >= %g", dFast[5], dSlow[5])
	}
}

func TestPotentialEnergy(t *testing.T) {
	ev := Evaluator{Mass: MassNeutron, Moment: MomentNeutron}
	f := field.Uniform{B: [3]float64{0, 0, 1}}
	y := []float64{0, 0, 2, 0, 0, 0}

	got := ev.PotentialEnergy(0, y, 1, f)
	want := -MomentNeutron/EleE*1 + MassNeutron*GravAcc*2
	if math.Abs(got-want)/math.Abs(want) > 1e-12 {
		t.Errorf("PotentialEnergy = %g, want %g", got, want)
	}

	// neutron gravitational gradient is roughly 102.6 neV/m
	perMeter := ev.PotentialEnergy(0, []float64{0, 0, 1, 0, 0, 0}, 0, nil)
	if math.Abs(perMeter-102.6e-9)/102.6e-9 > 0.01 {
		t.Errorf("mgz per meter = %g eV, want about 102.6 neV", perMeter)
	}
}

package species

import (
	"math"
	"testing"

	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/phys"
	"github.com/mseidel/trak/internal/rng"
)

func vacuum() geometry.Solid {
	return geometry.Solid{ID: 1, Name: "vacuum"}
}

func wall(fermiReal float64, mutate ...func(*geometry.Material)) geometry.Solid {
	m := geometry.Material{Name: "wall", FermiReal: fermiReal}
	for _, f := range mutate {
		f(&m)
	}
	return geometry.Solid{ID: 2, Name: "wall", Material: m}
}

// hitWall drives one neutron boundary interaction with the wall below, the
// particle coming in with velocity v. The normal points out of the wall.
func hitWall(n *Neutron, src *rng.Source, v [3]float64, entering geometry.Solid, pol *int) (HitOutcome, float64, []float64) {
	y1 := []float64{0, 0, 0, v[0], v[1], v[2]}
	x2 := 1e-9
	y2 := append([]float64(nil), y1...)
	out := n.OnHit(src, 0, y1, &x2, y2, pol, [3]float64{0, 0, 1}, vacuum(), entering)
	return out, x2, y2
}

func speed(y []float64) float64 {
	return math.Sqrt(y[3]*y[3] + y[4]*y[4] + y[5]*y[5])
}

func TestNeutron_TotalReflectionBelowStep(t *testing.T) {
	n := NewNeutron()
	pol := 1

	// 47 neV of normal energy against a 200 neV step
	out, x2, y2 := hitWall(n, rng.New(1), [3]float64{1, 0, -3}, wall(200), &pol)

	if out.Absorbed {
		t.Fatal("totally reflected neutron was absorbed")
	}
	if out.Entering.ID != vacuum().ID {
		t.Errorf("entering solid %d, want reflection back into %d", out.Entering.ID, vacuum().ID)
	}
	if !out.PathChanged {
		t.Error("reflection must report a path change")
	}
	if x2 != 0 {
		t.Errorf("reflection time = %g, want collision time 0", x2)
	}
	if math.Abs(y2[5]-3) > 1e-12 {
		t.Errorf("reflected vz = %g, want 3", y2[5])
	}
	if math.Abs(y2[3]-1) > 1e-12 {
		t.Errorf("tangential vx = %g, want unchanged 1", y2[3])
	}
	if math.Abs(speed(y2)-math.Sqrt(10)) > 1e-12 {
		t.Errorf("speed = %g, want %g", speed(y2), math.Sqrt(10))
	}
}

func TestNeutron_TransmissionAboveStep(t *testing.T) {
	n := NewNeutron()
	pol := 1

	// 522 neV of normal energy against a 1 neV step: the reflection
	// probability is ~2e-7, so the draw transmits
	out, _, y2 := hitWall(n, rng.New(1), [3]float64{2, 0, -10}, wall(1), &pol)

	if out.Absorbed {
		t.Fatal("transmitted neutron was absorbed")
	}
	if out.Entering.ID != 2 {
		t.Fatalf("entering solid %d, want transmission into 2", out.Entering.ID)
	}
	if !out.PathChanged {
		t.Error("refraction must report a path change")
	}
	if math.Abs(y2[3]-2) > 1e-12 {
		t.Errorf("tangential vx = %g, want unchanged 2", y2[3])
	}
	wantVz := -math.Sqrt(100 - 2e-9/n.Mass())
	if math.Abs(y2[5]-wantVz) > 1e-9 {
		t.Errorf("refracted vz = %g, want %g", y2[5], wantVz)
	}
}

func TestNeutron_SpinFlip(t *testing.T) {
	n := NewNeutron()

	pol := 1
	hitWall(n, rng.New(1), [3]float64{0, 0, -3}, wall(200, func(m *geometry.Material) { m.SpinflipProb = 1 }), &pol)
	if pol != -1 {
		t.Errorf("pol = %d after certain spin flip, want -1", pol)
	}

	pol = 1
	hitWall(n, rng.New(1), [3]float64{0, 0, -3}, wall(200), &pol)
	if pol != 1 {
		t.Errorf("pol = %d without spin flip, want 1", pol)
	}
}

func TestNeutron_WallLoss(t *testing.T) {
	n := NewNeutron()
	pol := 1

	out, _, _ := hitWall(n, rng.New(1), [3]float64{0, 0, -3}, wall(200, func(m *geometry.Material) { m.LossPerBounce = 1 }), &pol)
	if !out.Absorbed {
		t.Fatal("neutron not absorbed with certain per-bounce loss")
	}
	if out.Entering.ID != 2 {
		t.Errorf("absorbed in solid %d, want 2", out.Entering.ID)
	}
}

func TestNeutron_DiffuseReflectionConservesSpeed(t *testing.T) {
	n := NewNeutron()
	pol := 1

	for seed := int64(0); seed < 20; seed++ {
		out, _, y2 := hitWall(n, rng.New(seed), [3]float64{1, 0, -3},
			wall(200, func(m *geometry.Material) { m.DiffProb = 1 }), &pol)
		if out.Absorbed {
			t.Fatal("diffusely reflected neutron was absorbed")
		}
		if math.Abs(speed(y2)-math.Sqrt(10)) > 1e-12 {
			t.Errorf("seed %d: speed = %g, want %g", seed, speed(y2), math.Sqrt(10))
		}
		if y2[5] <= 0 {
			t.Errorf("seed %d: diffuse vz = %g, want directed away from the wall", seed, y2[5])
		}
	}
}

func TestNeutron_OnStepAbsorption(t *testing.T) {
	n := NewNeutron()
	src := rng.New(1)

	absorber := geometry.Solid{ID: 2, Material: geometry.Material{FermiImag: 1e5}}
	y1 := []float64{0, 0, 0, 3, 0, 0}
	y2 := []float64{0.01, 0, 0, 3, 0, 0}
	x2 := 0.01 / 3
	if !n.OnStep(src, 0, y1, &x2, y2, absorber) {
		t.Error("neutron survived a centimetre of strongly absorbing bulk")
	}

	if n.OnStep(src, 0, y1, &x2, y2, vacuum()) {
		t.Error("neutron absorbed in vacuum")
	}

	if n.OnStep(src, 0, y1, &x2, y1, absorber) {
		t.Error("zero-length step absorbed")
	}
}

func TestNeutron_DecayEmitsProtonAndElectron(t *testing.T) {
	n := NewNeutron()
	y := []float64{0.1, 0.2, 0.3, 5, 0, 0}

	secs := n.Decay(rng.New(1), 42, y)
	if len(secs) != 2 {
		t.Fatalf("decay produced %d secondaries, want 2", len(secs))
	}
	names := []string{"proton", "electron"}
	for i, s := range secs {
		if s.Species.Name() != names[i] {
			t.Errorf("secondary %d = %s, want %s", i, s.Species.Name(), names[i])
		}
		if s.Time != 42 {
			t.Errorf("secondary %d time = %g, want 42", i, s.Time)
		}
		for k := 0; k < 3; k++ {
			if s.State[k] != y[k] {
				t.Errorf("secondary %d not emitted at the decay point: %v", i, s.State)
			}
		}
		if v := math.Sqrt(s.State[3]*s.State[3] + s.State[4]*s.State[4] + s.State[5]*s.State[5]); v <= 0 {
			t.Errorf("secondary %d at rest", i)
		}
	}
}

func TestCharged_AbsorbedOnFirstWall(t *testing.T) {
	p := NewProton()
	pol := 0

	y1 := []float64{0, 0, 0, 0, 0, -100}
	x2 := 1e-9
	y2 := append([]float64(nil), y1...)
	out := p.OnHit(rng.New(1), 0, y1, &x2, y2, &pol, [3]float64{0, 0, 1}, vacuum(), wall(0))
	if !out.Absorbed {
		t.Fatal("proton not absorbed entering a wall")
	}

	// crossings between default-solid regions pass through
	out = p.OnHit(rng.New(1), 0, y1, &x2, y2, &pol, [3]float64{0, 0, 1}, vacuum(), vacuum())
	if out.Absorbed || out.PathChanged {
		t.Error("proton interacted with a default-solid crossing")
	}
}

func TestSpeciesConstants(t *testing.T) {
	n := NewNeutron()
	if n.Charge() != 0 || n.Mass() != phys.MassNeutron || n.MeanLifetime() != phys.TauNeutron {
		t.Error("neutron constants wrong")
	}
	p := NewProton()
	if p.Charge() != phys.EleE || p.Mass() != phys.MassProton {
		t.Error("proton constants wrong")
	}
	e := NewElectron()
	if e.Charge() != -phys.EleE || e.Mass() != phys.MassElectron {
		t.Error("electron constants wrong")
	}
	tr := NewTracer()
	if tr.Charge() != 0 || tr.Moment() != 0 || tr.MeanLifetime() != 0 {
		t.Error("tracer must be neutral, momentless and stable")
	}
}

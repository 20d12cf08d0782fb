package track

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/mseidel/trak/internal/field"
	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/phys"
	"github.com/mseidel/trak/internal/rng"
	"github.com/mseidel/trak/internal/species"
)

// fakeSpecies is a configurable species for driving boundary scenarios.
type fakeSpecies struct {
	species.Props
	absorbEnter int // absorb when entering this solid id
	absorbStep  int // absorb during any step inside this solid id
	reflect     bool
	// transmit makes every transmission report a rewritten path into
	// transmitInto, the effective solid handed back to the resolver
	transmit     bool
	transmitInto geometry.Solid
	secondaries  []species.Secondary
	hits         []fakeHit
}

type fakeHit struct {
	t                 float64
	leaving, entering int
}

func newFake() *fakeSpecies {
	return &fakeSpecies{Props: species.Props{SpeciesName: "fake", M: phys.MassNeutron}}
}

func (f *fakeSpecies) OnHit(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
	pol *int, normal [3]float64, leaving, entering geometry.Solid) species.HitOutcome {
	f.hits = append(f.hits, fakeHit{t: x1, leaving: leaving.ID, entering: entering.ID})
	if f.absorbEnter != 0 && entering.ID == f.absorbEnter {
		return species.HitOutcome{Absorbed: true, Entering: entering}
	}
	if f.reflect {
		*x2 = x1
		copy(y2, y1)
		d := y2[3]*normal[0] + y2[4]*normal[1] + y2[5]*normal[2]
		for i := 0; i < 3; i++ {
			y2[3+i] -= 2 * d * normal[i]
		}
		return species.HitOutcome{Entering: leaving}
	}
	if f.transmit {
		return species.HitOutcome{PathChanged: true, Entering: f.transmitInto}
	}
	return species.HitOutcome{Entering: entering}
}

func (f *fakeSpecies) OnStep(src *rng.Source, x1 float64, y1 []float64, x2 *float64, y2 []float64,
	current geometry.Solid) bool {
	return f.absorbStep != 0 && current.ID == f.absorbStep
}

func (f *fakeSpecies) Decay(src *rng.Source, t float64, y []float64) []species.Secondary {
	return f.secondaries
}

func (f *fakeSpecies) PotentialEnergy(t float64, y []float64, pol int, fl field.Field) float64 {
	return f.M * phys.GravAcc * y[2]
}

func testGeometry(t *testing.T, solids []geometry.Solid, boxes geometry.Boxes) *geometry.Geometry {
	t.Helper()
	def := geometry.Solid{Name: "default", Material: geometry.Material{Name: "vacuum"}}
	g, err := geometry.New(def, solids, boxes)
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	return g
}

func testDriver(g *geometry.Geometry, sp species.Species, tmax float64) *Driver {
	return &Driver{
		Geometry: g,
		Field:    field.Uniform{},
		Species:  sp,
		Log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		TMax:     tmax,
	}
}

func TestIntegrate_FreeFallAbsorbed(t *testing.T) {
	g := testGeometry(t,
		[]geometry.Solid{
			{ID: 2, Name: "world"},
			{ID: 3, Name: "ground"},
		},
		geometry.Boxes{
			{SolidID: 2, Min: [3]float64{-1, -1, -0.5}, Max: [3]float64{1, 1, 2}},
			{SolidID: 3, Min: [3]float64{-0.9, -0.9, -0.4}, Max: [3]float64{0.9, 0.9, 0}},
		})

	sp := newFake()
	sp.absorbEnter = 3
	d := testDriver(g, sp, 10)

	rec := NewRecord(sp, 0, 0, math.Inf(1), 1000, [3]float64{0, 0, 1}, [3]float64{}, 1)
	d.Integrate(context.Background(), rec, rng.New(1))

	if rec.Fate != FateAbsorbed {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateAbsorbed)
	}
	if rec.AbsorbedIn != 3 {
		t.Errorf("absorbed in solid %d, want 3", rec.AbsorbedIn)
	}
	if rec.NHit != 1 {
		t.Errorf("NHit = %d, want 1", rec.NHit)
	}
	wantT := math.Sqrt(2 / phys.GravAcc)
	if math.Abs(rec.TEnd-wantT) > 1e-6 {
		t.Errorf("TEnd = %g, want %g", rec.TEnd, wantT)
	}
	if math.Abs(rec.YEnd[2]) > 1e-6 {
		t.Errorf("final z = %g, want ~0", rec.YEnd[2])
	}
	if len(sp.hits) != 1 || sp.hits[0].leaving != 2 || sp.hits[0].entering != 3 {
		t.Errorf("hits = %+v, want one 2->3 hit", sp.hits)
	}
}

func TestIntegrate_ImmediateDecay(t *testing.T) {
	g := testGeometry(t,
		[]geometry.Solid{{ID: 2, Name: "world"}},
		geometry.Boxes{{SolidID: 2, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}})

	sp := newFake()
	sp.secondaries = []species.Secondary{{Species: newFake(), Polarization: 1}}
	d := testDriver(g, sp, 10)

	rec := NewRecord(sp, 0, 0, 0, 1000, [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, 1)
	d.Integrate(context.Background(), rec, rng.New(1))

	if rec.Fate != FateDecayed {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateDecayed)
	}
	if rec.NStep != 0 {
		t.Errorf("NStep = %d, want 0 for zero lifetime", rec.NStep)
	}
	if rec.TEnd != rec.TStart {
		t.Errorf("TEnd = %g, want TStart %g", rec.TEnd, rec.TStart)
	}
	if len(rec.Secondaries) != 1 {
		t.Errorf("secondaries = %d, want 1", len(rec.Secondaries))
	}
}

func TestIntegrate_TouchingSurfaces(t *testing.T) {
	// two boxes sharing the z=0 plane: the crossings cannot be separated
	g := testGeometry(t,
		[]geometry.Solid{
			{ID: 2, Name: "upper"},
			{ID: 3, Name: "lower"},
		},
		geometry.Boxes{
			{SolidID: 2, Min: [3]float64{-1, -1, 0}, Max: [3]float64{1, 1, 1}},
			{SolidID: 3, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 0}},
		})

	sp := newFake()
	d := testDriver(g, sp, 10)

	rec := NewRecord(sp, 0, 0, math.Inf(1), 1000, [3]float64{0, 0, 0.5}, [3]float64{0, 0, -1}, 1)
	d.Integrate(context.Background(), rec, rng.New(1))

	if rec.Fate != FateNumericalError {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateNumericalError)
	}
}

func TestIntegrate_PassThroughLowerPriority(t *testing.T) {
	// inner solid with a lower id than the surrounding one: entering and
	// leaving it must not trigger the species, only the final world exit does
	g := testGeometry(t,
		[]geometry.Solid{
			{ID: 2, Name: "inner"},
			{ID: 3, Name: "world"},
		},
		geometry.Boxes{
			{SolidID: 2, Min: [3]float64{-0.2, -0.2, -0.2}, Max: [3]float64{0.2, 0.2, 0.2}},
			{SolidID: 3, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}},
		})

	sp := newFake()
	d := testDriver(g, sp, 10)

	rec := NewRecord(sp, 0, 0, math.Inf(1), 1000, [3]float64{0, 0, 0.5}, [3]float64{0, 0, -2}, 1)
	d.Integrate(context.Background(), rec, rng.New(1))

	if rec.Fate != FateExited {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateExited)
	}
	if rec.NHit != 1 {
		t.Errorf("NHit = %d, want 1", rec.NHit)
	}
	if len(sp.hits) != 1 || sp.hits[0].leaving != 3 || sp.hits[0].entering != geometry.DefaultSolidID {
		t.Errorf("hits = %+v, want one world exit", sp.hits)
	}
}

func TestIntegrate_IgnoredCrossings(t *testing.T) {
	// a gate whose boundaries are transparent for the whole run: crossing it
	// must update the occupancy silently without invoking the species, and
	// leaving it again must find the stack consistent
	g := testGeometry(t,
		[]geometry.Solid{
			{ID: 2, Name: "world"},
			{ID: 3, Name: "gate", IgnoreTimes: []geometry.TimeWindow{{Start: 0, End: 100}}},
		},
		geometry.Boxes{
			{SolidID: 2, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}},
			{SolidID: 3, Min: [3]float64{-0.2, -0.2, -0.2}, Max: [3]float64{0.2, 0.2, 0.2}},
		})

	sp := newFake()
	d := testDriver(g, sp, 10)

	rec := NewRecord(sp, 0, 0, math.Inf(1), 1000, [3]float64{0, 0, 0.5}, [3]float64{0, 0, -2}, 1)
	d.Integrate(context.Background(), rec, rng.New(1))

	if rec.Fate != FateExited {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateExited)
	}
	if rec.NHit != 1 {
		t.Errorf("NHit = %d, want 1", rec.NHit)
	}
	if len(sp.hits) != 1 || sp.hits[0].leaving != 2 || sp.hits[0].entering != geometry.DefaultSolidID {
		t.Errorf("hits = %+v, want only the world exit", sp.hits)
	}
}

func TestIntegrate_ReflectUntilTimeLimit(t *testing.T) {
	g := testGeometry(t,
		[]geometry.Solid{{ID: 2, Name: "world"}},
		geometry.Boxes{{SolidID: 2, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}})

	sp := newFake()
	sp.reflect = true
	d := testDriver(g, sp, 2)

	rec := NewRecord(sp, 0, 0, math.Inf(1), 1000, [3]float64{0, 0, 0.5}, [3]float64{}, 1)
	d.Integrate(context.Background(), rec, rng.New(1))

	if rec.Fate != FateExceededBudget {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateExceededBudget)
	}
	if math.Abs(rec.TEnd-2) > 1e-9 {
		t.Errorf("TEnd = %g, want 2", rec.TEnd)
	}
	if rec.NHit < 2 {
		t.Errorf("NHit = %d, want at least 2 bounces", rec.NHit)
	}
	if rec.YEnd[2] < -1 || rec.YEnd[2] > 1 {
		t.Errorf("final z = %g, want inside the box", rec.YEnd[2])
	}
}

func TestIntegrate_StepAbsorption(t *testing.T) {
	g := testGeometry(t,
		[]geometry.Solid{{ID: 2, Name: "world"}},
		geometry.Boxes{{SolidID: 2, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}})

	sp := newFake()
	sp.absorbStep = 2
	d := testDriver(g, sp, 10)

	rec := NewRecord(sp, 0, 0, math.Inf(1), 1000, [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, 1)
	d.Integrate(context.Background(), rec, rng.New(1))

	if rec.Fate != FateAbsorbed {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateAbsorbed)
	}
	if rec.AbsorbedIn != 2 {
		t.Errorf("absorbed in solid %d, want 2", rec.AbsorbedIn)
	}
	if rec.NHit != 0 {
		t.Errorf("NHit = %d, want 0", rec.NHit)
	}
}

func TestIntegrate_CancelledContext(t *testing.T) {
	g := testGeometry(t,
		[]geometry.Solid{{ID: 2, Name: "world"}},
		geometry.Boxes{{SolidID: 2, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}})

	sp := newFake()
	d := testDriver(g, sp, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := NewRecord(sp, 0, 0, math.Inf(1), 1000, [3]float64{0, 0, 0}, [3]float64{1, 0, 0}, 1)
	d.Integrate(ctx, rec, rng.New(1))

	if rec.Fate != FateExceededBudget {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateExceededBudget)
	}
	if rec.NStep != 0 {
		t.Errorf("NStep = %d, want 0", rec.NStep)
	}
}

func TestIntegrate_EnergyConservation(t *testing.T) {
	g := testGeometry(t,
		[]geometry.Solid{{ID: 2, Name: "world"}},
		geometry.Boxes{{SolidID: 2, Min: [3]float64{-1, -1, -1}, Max: [3]float64{1, 1, 1}}})

	sp := species.NewTracer()
	d := testDriver(g, sp, 10)

	rec := NewRecord(sp, 0, 0, math.Inf(1), 1000, [3]float64{0, 0, 0.5}, [3]float64{1, 0.5, 0}, 1)
	d.Integrate(context.Background(), rec, rng.New(1))

	if rec.Fate != FateExited {
		t.Fatalf("fate = %v, want %v", rec.Fate, FateExited)
	}
	if math.Abs(rec.HEnd-rec.HStart) > 1e-12 {
		t.Errorf("energy drift = %g eV over the trajectory", rec.HEnd-rec.HStart)
	}
	if rec.HMax < rec.HStart-1e-12 {
		t.Errorf("HMax = %g below HStart = %g", rec.HMax, rec.HStart)
	}
	if rec.PathLength <= 0 {
		t.Error("path length not accumulated")
	}
}

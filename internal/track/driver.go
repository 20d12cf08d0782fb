package track

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/mseidel/trak/internal/field"
	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/phys"
	"github.com/mseidel/trak/internal/rng"
	"github.com/mseidel/trak/internal/species"
	"github.com/mseidel/trak/internal/stepper"
)

const (
	// absTolerance is the absolute truncation-error tolerance handed to the
	// stepper; the relative tolerance is zero so accuracy does not degrade
	// with growing coordinate values.
	absTolerance = 1e-13
	relTolerance = 0
)

// Logger receives trajectory output events. Implementations decide what to
// persist; all methods may be called from multiple worker goroutines, each
// with its own Record.
type Logger interface {
	// TrackPoint is called along the trajectory, at least MinSampleDist
	// apart.
	TrackPoint(rec *Record, t float64, y []float64, pol int, hTotal, eKin float64) error
	// Hit is called for every species boundary interaction, with the state
	// before and after.
	Hit(rec *Record, t float64, y1, y2 []float64, pol1, pol2 int, normal [3]float64, leavingID, enteringID int) error
	// Snapshot is called when the trajectory passes a configured snapshot
	// time.
	Snapshot(rec *Record, t float64, y []float64, pol int, hTotal, eKin float64) error
}

// Driver integrates single-particle trajectories through a geometry under a
// field, dispatching material interactions to the species. It is stateless
// across particles and safe to share between goroutines.
type Driver struct {
	Geometry *geometry.Geometry
	Field    field.Field
	Species  species.Species
	Logger   Logger       // optional trajectory output
	Log      *slog.Logger // optional, defaults to slog.Default
	TMax     float64      // global simulation time limit [s]
	// Snapshots are times at which the interpolated state is reported to
	// the Logger, ascending.
	Snapshots []float64
}

// Integrate runs one trajectory until a fate is assigned, mutating rec in
// place. The context is checked between steps; cancellation ends the
// trajectory with the budget-exceeded fate.
func (d *Driver) Integrate(ctx context.Context, rec *Record, src *rng.Source) {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("particle", rec.ParticleNo, "species", rec.Species.Name())

	pol := rec.PolStart
	eval := phys.Evaluator{
		Charge: rec.Species.Charge(),
		Mass:   rec.Species.Mass(),
		Moment: rec.Species.Moment(),
	}

	x := rec.TStart
	y := append([]float64(nil), rec.YStart[:]...)

	rec.EStart = rec.Ekin(y)
	rec.HStart = rec.EStart + rec.Species.PotentialEnergy(x, y, pol, d.Field)
	rec.HMax = rec.HStart

	occ := NewOccupancy(d.Geometry.SolidsContaining(x, [3]float64{y[0], y[1], y[2]}))

	st := stepper.New(func(t float64, y, dydx []float64) {
		eval.Derivs(t, y, pol, d.Field, dydx)
	}, x, y, absTolerance, relTolerance, true)

	res := &resolver{
		geo: d.Geometry, sp: rec.Species, src: src, st: st,
		occ: occ, rec: rec, pol: &pol, log: log, hits: d.Logger,
	}

	snaps := d.Snapshots
	for len(snaps) > 0 && snaps[0] < x {
		snaps = snaps[1:]
	}

	var lastLogged [3]float64
	copy(lastLogged[:], y[:3])
	if d.Logger != nil {
		if err := d.Logger.TrackPoint(rec, x, y, pol, rec.HStart, rec.EStart); err != nil {
			log.Error("track log failed", "err", err)
		}
	}

	decayAt := rec.TStart + rec.Tau
	h := initialStep(y)
	yStep := make([]float64, 6)
	y2 := make([]float64, 6)

	for rec.Fate == FateUnresolved {
		if x >= decayAt {
			rec.setFate(FateDecayed)
			rec.Secondaries = rec.Species.Decay(src, x, y)
			break
		}
		if x >= d.TMax || rec.PathLength >= rec.MaxTraj {
			rec.setFate(FateExceededBudget)
			break
		}
		select {
		case <-ctx.Done():
			rec.setFate(FateExceededBudget)
		default:
		}
		if rec.Fate != FateUnresolved {
			break
		}

		if rem := math.Min(decayAt, d.TMax) - x; h > rem {
			h = rem
		}

		begin := time.Now()
		err := st.Step(h)
		rec.IntTime += time.Since(begin)
		if err != nil {
			log.Error("integration step failed", "err", err, "t", x)
			rec.setFate(FateNumericalError)
			break
		}
		rec.NStep++

		xStep := st.X()
		copy(yStep, st.Y())

		x1 := x
		y1 := y
		for x1 < xStep && rec.Fate == FateUnresolved {
			x2 := nextSample(st, x1, y1, xStep, yStep, y2)

			begin = time.Now()
			ok, changed := res.resolve(x1, y1, &x2, y2)
			rec.GeomTime += time.Since(begin)

			rec.PathLength += dist(y1, y2)

			eKin := rec.Ekin(y2)
			hTot := eKin + rec.Species.PotentialEnergy(x2, y2, pol, d.Field)
			if hTot > rec.HMax {
				rec.HMax = hTot
			}

			if d.Logger != nil {
				if dist3(lastLogged, [3]float64{y2[0], y2[1], y2[2]}) >= MinSampleDist {
					if err := d.Logger.TrackPoint(rec, x2, y2, pol, hTot, eKin); err != nil {
						log.Error("track log failed", "err", err)
					}
					copy(lastLogged[:], y2[:3])
				}
				snaps = d.snapshot(rec, st, snaps, x1, x2, pol, log)
			}

			x = x2
			copy(y, y2)
			if !ok {
				break
			}
			if changed {
				st.Reset(x, y)
				break
			}
			x1 = x2
			copy(y1, y2)
		}

		h = st.Hnext()
	}

	rec.TEnd = x
	copy(rec.YEnd[:], y)
	rec.PolEnd = pol
	rec.EEnd = rec.Ekin(y)
	rec.HEnd = rec.EEnd + rec.Species.PotentialEnergy(x, y, pol, d.Field)

	log.Info("trajectory finished",
		"fate", rec.Fate.String(),
		"t", rec.TEnd,
		"path", rec.PathLength,
		"steps", rec.NStep,
		"hits", rec.NHit,
	)
}

// snapshot reports all snapshot times inside (x1, x2] using the dense
// interpolant of the last accepted step, and returns the remaining times.
func (d *Driver) snapshot(rec *Record, st *stepper.Dopr853, snaps []float64, x1, x2 float64, pol int, log *slog.Logger) []float64 {
	ys := make([]float64, 6)
	for len(snaps) > 0 && snaps[0] <= x2 {
		ts := snaps[0]
		snaps = snaps[1:]
		if ts <= x1 {
			continue
		}
		st.DenseState(ts, ys)
		eKin := rec.Ekin(ys)
		hTot := eKin + rec.Species.PotentialEnergy(ts, ys, pol, d.Field)
		if err := d.Logger.Snapshot(rec, ts, ys, pol, hTot, eKin); err != nil {
			log.Error("snapshot log failed", "err", err)
		}
	}
	return snaps
}

// initialStep picks a first trial step that covers about a millimetre of
// path, leaving the controller to adapt from there.
func initialStep(y []float64) float64 {
	v := math.Sqrt(y[3]*y[3] + y[4]*y[4] + y[5]*y[5])
	if v == 0 {
		return 1e-3
	}
	return 1e-3 / v
}

func dist(y1, y2 []float64) float64 {
	dx := y2[0] - y1[0]
	dy := y2[1] - y1[1]
	dz := y2[2] - y1[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func dist3(p1, p2 [3]float64) float64 {
	dx := p2[0] - p1[0]
	dy := p2[1] - p1[1]
	dz := p2[2] - p1[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

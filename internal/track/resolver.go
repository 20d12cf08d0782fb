package track

import (
	"log/slog"

	"github.com/mseidel/trak/internal/geometry"
	"github.com/mseidel/trak/internal/rng"
	"github.com/mseidel/trak/internal/species"
	"github.com/mseidel/trak/internal/stepper"
)

const (
	// reflectTolerance is the localization threshold: a crossing is accepted
	// once its along-normal distances to both segment ends fall below it.
	reflectTolerance = 1e-8 // m

	// maxIterations caps the bisection depth before a segment is resolved
	// as-is.
	maxIterations = 99
)

// segment is one piece of an accepted integration step awaiting collision
// resolution.
type segment struct {
	x1    float64
	y1    []float64
	x2    float64
	y2    []float64
	depth int
}

// resolver walks the sampling segments of an accepted step, localizes
// material boundary crossings by bisection and dispatches them to the
// species, keeping the occupancy stack consistent along the way.
type resolver struct {
	geo  *geometry.Geometry
	sp   species.Species
	src  *rng.Source
	st   *stepper.Dopr853
	occ  *Occupancy
	rec  *Record
	pol  *int
	log  *slog.Logger
	hits Logger
}

// resolve processes the segment [x1, x2]. It returns ok=false when a fate
// was assigned and integration must stop, and changed=true when a boundary
// interaction rewrote the trajectory; in both cases *x2/y2 hold the new
// endpoint.
func (r *resolver) resolve(x1 float64, y1 []float64, x2 *float64, y2 []float64) (ok, changed bool) {
	work := []segment{{x1: x1, y1: append([]float64(nil), y1...), x2: *x2, y2: append([]float64(nil), y2...), depth: 1}}
	for len(work) > 0 {
		seg := work[0]
		work = work[1:]
		res := r.resolveSegment(&seg, &work)
		if res != segContinue {
			*x2 = seg.x2
			copy(y2, seg.y2)
			return res != segStop, res == segChanged
		}
	}
	return true, false
}

type segResult int

const (
	segContinue segResult = iota
	segStop
	segChanged
)

func (r *resolver) resolveSegment(seg *segment, work *[]segment) segResult {
	p1 := [3]float64{seg.y1[0], seg.y1[1], seg.y1[2]}
	p2 := [3]float64{seg.y2[0], seg.y2[1], seg.y2[2]}

	if !r.geo.BoundingVolumeContains(p1) {
		r.rec.setFate(FateExited)
		return segStop
	}

	crossings, err := r.geo.FindCrossings(seg.x1, p1, seg.x2, p2)
	if err != nil {
		r.log.Error("collision query failed", "err", err, "t", seg.x1)
		return r.fatal(seg)
	}

	if len(crossings) == 0 {
		return r.stepThrough(seg, r.occ.Top(seg.x1))
	}

	localized := len(crossings) == 1 &&
		seg.depth <= maxIterations &&
		crossings[0].S*abs(distNormal(p1, p2, crossings[0].Normal)) < reflectTolerance &&
		(1-crossings[0].S)*abs(distNormal(p1, p2, crossings[0].Normal)) < reflectTolerance

	if localized || seg.depth > maxIterations {
		if len(crossings) > 1 && distinctSolids(crossings) {
			r.log.Error("could not separate boundary crossings, surfaces may touch",
				"t", seg.x1, "solids", crossingIDs(crossings))
			return r.fatal(seg)
		}
		return r.handleCrossing(seg, crossings[0])
	}

	r.bisect(seg, crossings[0].S, work)
	return segContinue
}

// handleCrossing dispatches one localized boundary crossing: bookkeeping on
// the occupancy stack, and the species hit callback when the crossed solid
// is priority relevant.
func (r *resolver) handleCrossing(seg *segment, c geometry.Crossing) segResult {
	p1 := [3]float64{seg.y1[0], seg.y1[1], seg.y1[2]}
	p2 := [3]float64{seg.y2[0], seg.y2[1], seg.y2[2]}
	dn := distNormal(p1, p2, c.Normal)
	if dn == 0 {
		r.log.Error("trajectory parallel to surface at crossing", "t", seg.x1, "solid", c.Solid.ID)
		return r.fatal(seg)
	}
	entering := dn < 0

	if c.Ignored {
		var err error
		if entering {
			err = r.occ.Insert(c.Solid)
		} else {
			err = r.occ.Remove(c.Solid.ID)
		}
		if err != nil {
			r.log.Error("occupancy inconsistency", "err", err, "t", seg.x1)
			return r.fatal(seg)
		}
		return r.stepThrough(seg, r.occ.Top(seg.x1))
	}

	top := r.occ.Top(seg.x1)

	if entering {
		if r.occ.Contains(c.Solid.ID) {
			r.log.Error("entering solid which was entered before", "t", seg.x1,
				"solid", c.Solid.ID, "name", c.Solid.Name)
			return r.fatal(seg)
		}
		if c.Solid.ID > top.ID {
			if res := r.dispatchHit(seg, c.Normal, top, c.Solid); res != segContinue {
				return res
			}
		}
		if err := r.occ.Insert(c.Solid); err != nil {
			r.log.Error("occupancy inconsistency", "err", err, "t", seg.x1)
			return r.fatal(seg)
		}
	} else {
		if !r.occ.Contains(c.Solid.ID) {
			r.log.Error("leaving solid which was not entered before", "t", seg.x1,
				"solid", c.Solid.ID, "name", c.Solid.Name)
			return r.fatal(seg)
		}
		if c.Solid.ID == top.ID {
			below := r.occ.Below(seg.x1, c.Solid.ID)
			if res := r.dispatchHit(seg, c.Normal, c.Solid, below); res != segContinue {
				return res
			}
		}
		if err := r.occ.Remove(c.Solid.ID); err != nil {
			r.log.Error("occupancy inconsistency", "err", err, "t", seg.x1)
			return r.fatal(seg)
		}
	}

	return r.stepThrough(seg, r.occ.Top(seg.x2))
}

// dispatchHit invokes the species boundary callback and logs the hit. It
// returns segChanged when the species reflected (effective entering solid
// equals the leaving one) or otherwise rewrote the path.
func (r *resolver) dispatchHit(seg *segment, normal [3]float64, leaving, entering geometry.Solid) segResult {
	polBefore := *r.pol
	y1 := append([]float64(nil), seg.y1...)
	outcome := r.sp.OnHit(r.src, seg.x1, seg.y1, &seg.x2, seg.y2, r.pol, normal, leaving, entering)
	r.rec.NHit++
	if *r.pol != polBefore {
		r.rec.NSpinflip++
	}
	if r.hits != nil {
		if err := r.hits.Hit(r.rec, seg.x1, y1, seg.y2, polBefore, *r.pol, normal, leaving.ID, entering.ID); err != nil {
			r.log.Error("hit log failed", "err", err)
		}
	}
	if outcome.Absorbed {
		r.rec.setAbsorbed(outcome.Entering.ID)
		return segStop
	}
	if outcome.Entering.ID == leaving.ID {
		// reflected back into the solid it came from: stack stays as it is
		return segChanged
	}
	if outcome.PathChanged {
		// transmitted with an altered trajectory (refraction, scattering)
		if err := r.updateStack(seg, leaving, outcome.Entering); err != nil {
			return r.fatal(seg)
		}
		return segChanged
	}
	return segContinue
}

// updateStack applies the enter/leave bookkeeping for a transmission whose
// path change ends segment processing before the usual bookkeeping runs.
func (r *resolver) updateStack(seg *segment, leaving, entering geometry.Solid) error {
	var err error
	if entering.ID > leaving.ID {
		err = r.occ.Insert(entering)
	} else {
		err = r.occ.Remove(leaving.ID)
	}
	if err != nil {
		r.log.Error("occupancy inconsistency", "err", err, "t", seg.x1)
	}
	return err
}

// stepThrough runs the per-segment species step inside the given solid.
func (r *resolver) stepThrough(seg *segment, current geometry.Solid) segResult {
	if r.sp.OnStep(r.src, seg.x1, seg.y1, &seg.x2, seg.y2, current) {
		r.rec.setAbsorbed(current.ID)
		return segStop
	}
	return segContinue
}

// bisect splits the segment around the first crossing and queues the pieces
// for resolution, widening the cut margin with depth so the loop terminates.
func (r *resolver) bisect(seg *segment, s float64, work *[]segment) {
	d := float64(seg.depth)
	xb1 := seg.x1 + (seg.x2-seg.x1)*s*(1-0.01*d)
	xb2 := seg.x1 + (seg.x2-seg.x1)*s*(1+0.01*d)

	pieces := make([]segment, 0, 3)
	lo, ylo := seg.x1, seg.y1
	if xb1 > lo && xb1 < seg.x2 {
		yb := r.interp(xb1)
		pieces = append(pieces, segment{x1: lo, y1: ylo, x2: xb1, y2: yb, depth: seg.depth + 1})
		lo, ylo = xb1, yb
	}
	if xb2 > lo && xb2 < seg.x2 {
		yb := r.interp(xb2)
		pieces = append(pieces, segment{x1: lo, y1: ylo, x2: xb2, y2: yb, depth: seg.depth + 1})
		lo, ylo = xb2, yb
	}
	pieces = append(pieces, segment{x1: lo, y1: ylo, x2: seg.x2, y2: seg.y2, depth: seg.depth + 1})

	*work = append(pieces, *work...)
}

func (r *resolver) interp(x float64) []float64 {
	y := make([]float64, 6)
	r.st.DenseState(x, y)
	return y
}

// fatal marks the trajectory numerically unresolvable and collapses the
// segment to its start so the particle stops at a consistent state.
func (r *resolver) fatal(seg *segment) segResult {
	r.rec.setFate(FateNumericalError)
	seg.x2 = seg.x1
	copy(seg.y2, seg.y1)
	return segStop
}

// distNormal is the segment displacement projected on the surface normal;
// negative means the particle is moving into the solid the normal points
// out of.
func distNormal(p1, p2, n [3]float64) float64 {
	return (p2[0]-p1[0])*n[0] + (p2[1]-p1[1])*n[1] + (p2[2]-p1[2])*n[2]
}

func distinctSolids(cs []geometry.Crossing) bool {
	for _, c := range cs[1:] {
		if c.Solid.ID != cs[0].Solid.ID {
			return true
		}
	}
	return false
}

func crossingIDs(cs []geometry.Crossing) []int {
	ids := make([]int, len(cs))
	for i, c := range cs {
		ids[i] = c.Solid.ID
	}
	return ids
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

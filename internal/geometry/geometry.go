package geometry

import (
	"fmt"
	"sort"
)

// SegmentHit is one surface crossing reported by a CollisionFinder: the solid
// whose surface was crossed, the normalized position s∈[0,1] along the
// queried segment, and the outward surface normal at the crossing.
type SegmentHit struct {
	SolidID int
	S       float64
	Normal  [3]float64
}

// CollisionFinder answers segment-intersection queries against the solids'
// surfaces. Mesh-backed implementations live outside this package; Boxes
// (box.go) provides an analytic one. Implementations must be safe for
// concurrent read-only use.
type CollisionFinder interface {
	// Collisions returns every surface crossing on the segment p1→p2, in no
	// particular order.
	Collisions(p1, p2 [3]float64) []SegmentHit
	// Bounds returns the outer bounding volume of all surfaces.
	Bounds() (min, max [3]float64)
}

// Crossing is a candidate boundary crossing with its ignore flag resolved
// against the solid's time windows. Ephemeral, produced per query.
type Crossing struct {
	Solid   Solid
	S       float64
	Normal  [3]float64
	Ignored bool
}

// Geometry owns the solid/material definitions and resolves queries through
// a CollisionFinder. Read-only after construction, safely shared across
// concurrent trajectories.
type Geometry struct {
	finder       CollisionFinder
	solids       map[int]Solid
	byName       map[string]Solid
	defaultSolid Solid
}

// New builds a Geometry from a default (background) solid, the remaining
// solids and an intersection backend. Solid ids must be unique, materials
// must pass validation and no solid may reuse the reserved default id.
func New(def Solid, solids []Solid, finder CollisionFinder) (*Geometry, error) {
	g := &Geometry{
		finder:       finder,
		solids:       make(map[int]Solid, len(solids)+1),
		byName:       make(map[string]Solid, len(solids)+1),
		defaultSolid: def,
	}
	def.ID = DefaultSolidID
	g.defaultSolid = def
	g.solids[def.ID] = def
	g.byName[def.Name] = def
	for _, s := range solids {
		if s.ID <= DefaultSolidID {
			return nil, fmt.Errorf("solid %q has id %d; ids must be greater than the default solid's %d", s.Name, s.ID, DefaultSolidID)
		}
		if _, dup := g.solids[s.ID]; dup {
			return nil, fmt.Errorf("duplicate solid id %d; ids have to be unique", s.ID)
		}
		if err := s.Material.Validate(); err != nil {
			return nil, err
		}
		g.solids[s.ID] = s
		g.byName[s.Name] = s
	}
	return g, nil
}

// DefaultSolid returns the background solid.
func (g *Geometry) DefaultSolid() Solid { return g.defaultSolid }

// Solid looks a solid up by id.
func (g *Geometry) Solid(id int) (Solid, error) {
	s, ok := g.solids[id]
	if !ok {
		return Solid{}, fmt.Errorf("no solid with id %d", id)
	}
	return s, nil
}

// SolidByName looks a solid up by name.
func (g *Geometry) SolidByName(name string) (Solid, error) {
	s, ok := g.byName[name]
	if !ok {
		return Solid{}, fmt.Errorf("no solid named %q", name)
	}
	return s, nil
}

// FindCrossings returns all candidate boundary crossings on the segment
// p1→p2 traversed during [t1, t2], ordered by (s, solid id). Each candidate
// carries an Ignored flag if the crossing time falls inside one of the
// solid's ignore windows.
func (g *Geometry) FindCrossings(t1 float64, p1 [3]float64, t2 float64, p2 [3]float64) ([]Crossing, error) {
	hits := g.finder.Collisions(p1, p2)
	if len(hits) == 0 {
		return nil, nil
	}
	out := make([]Crossing, 0, len(hits))
	for _, h := range hits {
		sld, err := g.Solid(h.SolidID)
		if err != nil {
			return nil, err
		}
		t := t1 + (t2-t1)*h.S
		out = append(out, Crossing{
			Solid:   sld,
			S:       h.S,
			Normal:  h.Normal,
			Ignored: sld.Ignored(t),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].S != out[j].S {
			return out[i].S < out[j].S
		}
		return out[i].Solid.ID < out[j].Solid.ID
	})
	return out, nil
}

// ContainedSolid pairs a solid containing a point with its ignore state at
// the query time.
type ContainedSolid struct {
	Solid   Solid
	Ignored bool
}

// SolidsContaining classifies which solids contain point p at time t by
// casting a ray from p to just outside the bounding volume and toggling
// membership at each surface crossing. The default solid is always included.
func (g *Geometry) SolidsContaining(t float64, p [3]float64) []ContainedSolid {
	min, max := g.finder.Bounds()
	// deliberately anisotropic exit point so the ray cannot run along a
	// symmetry diagonal and graze edges or corners
	outside := [3]float64{
		min[0] - 0.0917*(max[0]-min[0]) - 1e-3,
		min[1] - 0.2734*(max[1]-min[1]) - 1e-3,
		min[2] - 0.5871*(max[2]-min[2]) - 1e-3,
	}
	current := []ContainedSolid{{Solid: g.defaultSolid}}
	for _, h := range g.finder.Collisions(p, outside) {
		sld, err := g.Solid(h.SolidID)
		if err != nil {
			continue
		}
		idx := -1
		for i, c := range current {
			if c.Solid.ID == sld.ID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			// crossed twice on the way out: point is not inside after all
			current = append(current[:idx], current[idx+1:]...)
		} else {
			current = append(current, ContainedSolid{Solid: sld, Ignored: sld.Ignored(t)})
		}
	}
	return current
}

// BoundingVolumeContains reports whether p lies inside the outer bounding
// volume of the geometry.
func (g *Geometry) BoundingVolumeContains(p [3]float64) bool {
	min, max := g.finder.Bounds()
	for i := 0; i < 3; i++ {
		if p[i] < min[i] || p[i] > max[i] {
			return false
		}
	}
	return true
}

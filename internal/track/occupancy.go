package track

import (
	"fmt"
	"sort"

	"github.com/mseidel/trak/internal/geometry"
)

// Occupancy is the ordered record of solids currently enclosing the
// particle, keyed by priority id. It always contains at least the default
// background solid; the highest-priority member without an active ignore
// window supplies the material context for forces and absorption.
type Occupancy struct {
	solids []geometry.Solid // ascending by id
}

// NewOccupancy builds the stack from a point-containment query result.
func NewOccupancy(contained []geometry.ContainedSolid) *Occupancy {
	o := &Occupancy{solids: make([]geometry.Solid, 0, len(contained))}
	for _, c := range contained {
		o.solids = append(o.solids, c.Solid)
	}
	sort.Slice(o.solids, func(i, j int) bool { return o.solids[i].ID < o.solids[j].ID })
	return o
}

// Contains reports whether the solid with the given id encloses the particle.
func (o *Occupancy) Contains(id int) bool {
	for _, s := range o.solids {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Insert adds a solid the particle just entered. Re-entering a solid that
// was never exited is a geometry inconsistency.
func (o *Occupancy) Insert(s geometry.Solid) error {
	if o.Contains(s.ID) {
		return fmt.Errorf("entering solid %d (%s) which was entered before; overlapping solids with equal priority?", s.ID, s.Name)
	}
	i := sort.Search(len(o.solids), func(i int) bool { return o.solids[i].ID > s.ID })
	o.solids = append(o.solids, geometry.Solid{})
	copy(o.solids[i+1:], o.solids[i:])
	o.solids[i] = s
	return nil
}

// Remove drops a solid the particle just left. Leaving a solid that was
// never entered is a geometry inconsistency.
func (o *Occupancy) Remove(id int) error {
	for i, s := range o.solids {
		if s.ID == id {
			o.solids = append(o.solids[:i], o.solids[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("leaving solid %d which was not entered before", id)
}

// Top returns the solid providing the material context at time t: the
// highest-priority member whose ignore windows are inactive.
func (o *Occupancy) Top(t float64) geometry.Solid {
	for i := len(o.solids) - 1; i >= 0; i-- {
		if !o.solids[i].Ignored(t) {
			return o.solids[i]
		}
	}
	// the default solid has no ignore windows, so this is unreachable for a
	// well-formed stack; fall back to the lowest entry
	return o.solids[0]
}

// Below returns the context solid the particle falls back to after leaving
// the solid with the given id: the highest-priority member below it with no
// active ignore window.
func (o *Occupancy) Below(t float64, id int) geometry.Solid {
	for i := len(o.solids) - 1; i >= 0; i-- {
		if o.solids[i].ID < id && !o.solids[i].Ignored(t) {
			return o.solids[i]
		}
	}
	return o.solids[0]
}

// Len returns the number of enclosing solids.
func (o *Occupancy) Len() int { return len(o.solids) }

// IDs returns the enclosing solid ids in ascending priority order.
func (o *Occupancy) IDs() []int {
	ids := make([]int, len(o.solids))
	for i, s := range o.solids {
		ids[i] = s.ID
	}
	return ids
}

package geometry

import (
	"fmt"
	"strconv"
	"strings"
)

// Box is an axis-aligned cuboid surface belonging to one solid.
type Box struct {
	SolidID int
	Min     [3]float64
	Max     [3]float64
}

// Boxes is an analytic CollisionFinder over axis-aligned cuboids. It serves
// tests and demo setups; mesh-backed finders satisfy the same interface.
type Boxes []Box

// Collisions returns every face crossing of the segment p1→p2. A crossing at
// the exact segment start (s=0) is attributed to the previous segment and
// skipped.
func (bs Boxes) Collisions(p1, p2 [3]float64) []SegmentHit {
	d := [3]float64{p2[0] - p1[0], p2[1] - p1[1], p2[2] - p1[2]}
	var hits []SegmentHit
	for _, b := range bs {
		for axis := 0; axis < 3; axis++ {
			if d[axis] == 0 {
				continue
			}
			for _, side := range []int{0, 1} {
				plane := b.Min[axis]
				if side == 1 {
					plane = b.Max[axis]
				}
				s := (plane - p1[axis]) / d[axis]
				if s <= 0 || s > 1 {
					continue
				}
				if !b.onFace(p1, d, s, axis) {
					continue
				}
				var n [3]float64
				if side == 1 {
					n[axis] = 1
				} else {
					n[axis] = -1
				}
				hits = append(hits, SegmentHit{SolidID: b.SolidID, S: s, Normal: n})
			}
		}
	}
	return hits
}

// onFace checks that the crossing point at parameter s lies within the box
// extent on the two axes other than the crossed one.
func (b Box) onFace(p1, d [3]float64, s float64, axis int) bool {
	for i := 0; i < 3; i++ {
		if i == axis {
			continue
		}
		c := p1[i] + s*d[i]
		if c < b.Min[i] || c > b.Max[i] {
			return false
		}
	}
	return true
}

// ParseBoxMesh parses the built-in analytic mesh resource
// "box:x0,y0,z0,x1,y1,z1" used by descriptions that need no external mesh.
func ParseBoxMesh(solidID int, spec string) (Box, error) {
	rest, ok := strings.CutPrefix(spec, "box:")
	if !ok {
		return Box{}, fmt.Errorf("mesh resource %q is not a box spec", spec)
	}
	parts := strings.Split(rest, ",")
	if len(parts) != 6 {
		return Box{}, fmt.Errorf("box spec %q needs 6 coordinates, got %d", spec, len(parts))
	}
	var c [6]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Box{}, fmt.Errorf("box spec %q: %w", spec, err)
		}
		c[i] = v
	}
	b := Box{SolidID: solidID, Min: [3]float64{c[0], c[1], c[2]}, Max: [3]float64{c[3], c[4], c[5]}}
	for i := 0; i < 3; i++ {
		if b.Max[i] <= b.Min[i] {
			return Box{}, fmt.Errorf("box spec %q is empty on axis %d", spec, i)
		}
	}
	return b, nil
}

// Bounds returns the union bounding box of all cuboids.
func (bs Boxes) Bounds() (min, max [3]float64) {
	if len(bs) == 0 {
		return
	}
	min, max = bs[0].Min, bs[0].Max
	for _, b := range bs[1:] {
		for i := 0; i < 3; i++ {
			if b.Min[i] < min[i] {
				min[i] = b.Min[i]
			}
			if b.Max[i] > max[i] {
				max[i] = b.Max[i]
			}
		}
	}
	return
}

package geometry

// DefaultSolidID is the reserved id of the implicit background solid. It has
// the lowest priority; every other solid must use a larger id.
const DefaultSolidID = 1

// TimeWindow is a half-open interval [Start, End) during which boundary
// interactions with a solid are ignored (models time-gated apertures).
type TimeWindow struct {
	Start float64
	End   float64
}

func (w TimeWindow) contains(t float64) bool {
	return t >= w.Start && t < w.End
}

// Solid is one prioritized region of the geometry. Larger ids take priority
// over smaller ones when regions overlap. Read-only after load.
type Solid struct {
	ID          int
	Name        string
	Material    Material
	IgnoreTimes []TimeWindow
}

// Ignored reports whether the solid's boundaries are transparent at time t.
func (s Solid) Ignored(t float64) bool {
	for _, w := range s.IgnoreTimes {
		if w.contains(t) {
			return true
		}
	}
	return false
}

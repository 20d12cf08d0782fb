package track

import (
	"math"

	"github.com/mseidel/trak/internal/stepper"
)

const (
	// MaxSampleDist bounds the spatial length of a collision-check segment.
	// Accepted steps longer than this are subdivided with the stepper's
	// dense interpolant before geometry is consulted.
	MaxSampleDist = 0.01 // m

	// MinSampleDist is the minimum spatial spacing between logged track
	// points.
	MinSampleDist = 0.005 // m
)

// nextSample advances the sampling cursor from x1 along the accepted step
// ending at (xEnd, yEnd), covering at most MaxSampleDist of path. It returns
// the segment end time and fills y2 with the interpolated state; the final
// piece lands exactly on the step end.
func nextSample(st *stepper.Dopr853, x1 float64, y1 []float64, xEnd float64, yEnd []float64, y2 []float64) float64 {
	v := math.Sqrt(y1[3]*y1[3] + y1[4]*y1[4] + y1[5]*y1[5])
	if v > 0 {
		x2 := x1 + MaxSampleDist/v
		if x2 < xEnd {
			st.DenseState(x2, y2)
			return x2
		}
	}
	copy(y2, yEnd)
	return xEnd
}

// Package export writes trajectory figures to files, currently as SVG
// polylines of the track's x-z side view.
package export

import (
	"fmt"
	"strings"

	"github.com/mseidel/trak/internal/output"
)

// TrackSVG renders the x-z side view of a track as an SVG document. The
// vertical axis is flipped so larger z draws upward.
func TrackSVG(rows []output.TrackRow, width, height int) string {
	if len(rows) < 2 {
		return ""
	}

	xMin, xMax := rows[0].X, rows[0].X
	zMin, zMax := rows[0].Z, rows[0].Z
	for _, r := range rows {
		xMin, xMax = min(xMin, r.X), max(xMax, r.X)
		zMin, zMax = min(zMin, r.Z), max(zMax, r.Z)
	}
	rx, rz := xMax-xMin, zMax-zMin
	if rx == 0 {
		rx = 1
	}
	if rz == 0 {
		rz = 1
	}
	xMin -= 0.05 * rx
	zMin -= 0.05 * rz
	rx *= 1.1
	rz *= 1.1

	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#ffffff"/>
<path fill="none" stroke="#1f77b4" stroke-width="1.5" d="M`,
		width, height, width, height)

	for i, r := range rows {
		px := (r.X - xMin) / rx * float64(width)
		pz := float64(height) - (r.Z-zMin)/rz*float64(height)
		if i == 0 {
			fmt.Fprintf(&b, "%.1f,%.1f", px, pz)
		} else {
			fmt.Fprintf(&b, " L%.1f,%.1f", px, pz)
		}
	}

	b.WriteString("\"/>\n")
	fmt.Fprintf(&b, `<text x="6" y="%d" font-family="monospace" font-size="11" fill="#555">x = %.3g .. %.3g m, z = %.3g .. %.3g m, particle %d</text>`,
		height-6, xMin, xMin+rx, zMin, zMin+rz, rows[0].ParticleNo)
	b.WriteString("\n</svg>\n")
	return b.String()
}

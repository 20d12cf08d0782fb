// Package viz renders run output in the terminal: asciigraph track plots and
// a live ensemble progress view.
package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/mseidel/trak/internal/output"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// PlotTrack renders the height and kinetic-energy profiles of one particle's
// track rows.
func PlotTrack(rows []output.TrackRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("no track points")
	}

	z := make([]float64, len(rows))
	e := make([]float64, len(rows))
	for i, r := range rows {
		z[i] = r.Z
		e[i] = r.EKin * 1e9 // neV reads better at UCN scale
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("particle %d: height z [m]", rows[0].ParticleNo)))
	b.WriteString("\n")
	b.WriteString(asciigraph.Plot(z,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("t = %.3g .. %.3g s", rows[0].T, rows[len(rows)-1].T)),
	))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("kinetic energy [neV]"))
	b.WriteString("\n")
	b.WriteString(asciigraph.Plot(e,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("along track"),
	))
	b.WriteString("\n")
	return b.String()
}

// ProjectTrack renders a Braille side view (x-z plane) of the track.
func ProjectTrack(rows []output.TrackRow) string {
	if len(rows) == 0 {
		return dimStyle.Render("no track points")
	}

	xMin, xMax := rows[0].X, rows[0].X
	zMin, zMax := rows[0].Z, rows[0].Z
	for _, r := range rows {
		xMin, xMax = min(xMin, r.X), max(xMax, r.X)
		zMin, zMax = min(zMin, r.Z), max(zMax, r.Z)
	}
	padX, padZ := 0.05*(xMax-xMin), 0.05*(zMax-zMin)
	c := NewCanvas(60, 15, xMin-padX, xMax+padX, zMin-padZ, zMax+padZ)
	for i := 1; i < len(rows); i++ {
		c.Line(rows[i-1].X, rows[i-1].Z, rows[i].X, rows[i].Z)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("side view: x-z [m]"))
	b.WriteString("\n")
	b.WriteString(c.String())
	b.WriteString(dimStyle.Render(fmt.Sprintf("x = %.3g .. %.3g   z = %.3g .. %.3g", xMin, xMax, zMin, zMax)))
	b.WriteString("\n")
	return b.String()
}

// FateSummary renders the fate tally of a finished run.
func FateSummary(fates map[string]int, total int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("fates"))
	b.WriteString("\n")
	for _, fate := range []string{"decayed", "absorbed", "exited", "exceeded-budget", "numerical-error", "unresolved"} {
		n, ok := fates[fate]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  %-16s %6d  (%5.1f%%)\n", fate, n, 100*float64(n)/float64(total)))
	}
	return b.String()
}

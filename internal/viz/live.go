package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mseidel/trak/internal/track"
)

var (
	barStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	fateStyle = map[string]lipgloss.Style{
		"decayed":         lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		"absorbed":        lipgloss.NewStyle().Foreground(lipgloss.Color("213")),
		"exited":          lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		"exceeded-budget": lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		"numerical-error": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

type progressMsg struct {
	done int
	fate string
	last string // one-line summary of the finished trajectory
}

type finishedMsg struct{}

// Live is a bubbletea progress view for a running ensemble. Workers report
// finished trajectories through Report; the caller runs the program and
// closes it with Finish.
type Live struct {
	prog *tea.Program
}

func NewLive(total int) *Live {
	m := liveModel{total: total, start: time.Now(), fates: make(map[string]int)}
	return &Live{prog: tea.NewProgram(m)}
}

// Run blocks until the view quits; call from the main goroutine.
func (l *Live) Run() error {
	_, err := l.prog.Run()
	return err
}

// Report is safe to call from worker goroutines.
func (l *Live) Report(done int, rec *track.Record) {
	fate := rec.Fate.String()
	l.prog.Send(progressMsg{
		done: done,
		fate: fate,
		last: fmt.Sprintf("#%d %s %s after %.3g s, %.3g m, %d steps",
			rec.ParticleNo, rec.Species.Name(), fate, rec.TEnd-rec.TStart, rec.PathLength, rec.NStep),
	})
}

// Finish tells the view the run is complete.
func (l *Live) Finish() {
	l.prog.Send(finishedMsg{})
}

type liveModel struct {
	total    int
	done     int
	fates    map[string]int
	last     string
	start    time.Time
	finished bool
	width    int
}

func (m liveModel) Init() tea.Cmd { return nil }

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case progressMsg:
		m.done = msg.done
		m.fates[msg.fate]++
		m.last = msg.last
	case finishedMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

func (m liveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("trak ensemble"))
	b.WriteString("\n\n")

	width := 50
	filled := 0
	if m.total > 0 {
		filled = width * m.done / m.total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	b.WriteString(barStyle.Render(bar))
	b.WriteString(fmt.Sprintf("  %d/%d\n\n", m.done, m.total))

	for _, fate := range []string{"decayed", "absorbed", "exited", "exceeded-budget", "numerical-error"} {
		n := m.fates[fate]
		if n == 0 {
			continue
		}
		style, ok := fateStyle[fate]
		if !ok {
			style = dimStyle
		}
		b.WriteString(fmt.Sprintf("  %s %d\n", style.Render(fmt.Sprintf("%-16s", fate)), n))
	}

	if m.last != "" {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(m.last))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("elapsed %s (q to quit)", time.Since(m.start).Round(time.Second))))
	b.WriteString("\n")
	return b.String()
}

package viz

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/adsorb/internal/sim"
)

const historyCapacity = 600

var (
	statsStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(0, 2)
	headerLine = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	selStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// SampleMsg carries one accepted simulator step.
type SampleMsg sim.Sample

// DoneMsg ends a live run.
type DoneMsg struct {
	Result *sim.Result
	Err    error
}

// Live follows a running uptake simulation.
type Live struct {
	title    string
	labels   []string
	steps    int
	cancel   context.CancelFunc
	samples  int
	last     sim.Sample
	history  [][]float64
	selected int
	metrics  map[string]float64
	done     bool
	err      error
	width    int
}

// NewLive returns a view for a run of the given number of steps. cancel is
// called when the user quits before the run is done.
func NewLive(title string, labels []string, steps int, cancel context.CancelFunc) Live {
	history := make([][]float64, len(labels))
	for i := range history {
		history[i] = make([]float64, 0, historyCapacity)
	}
	sel := 0
	if len(labels) > 1 {
		sel = 1
	}
	return Live{
		title:    title,
		labels:   labels,
		steps:    steps,
		cancel:   cancel,
		history:  history,
		selected: sel,
		width:    80,
	}
}

func (m Live) Init() tea.Cmd { return nil }

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if !m.done && m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.labels)-1 {
				m.selected++
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case SampleMsg:
		m.samples++
		m.last = sim.Sample(msg)
		for i := range m.history {
			if i >= len(msg.Q) {
				break
			}
			h := m.history[i]
			if len(h) == historyCapacity {
				h = append(h[:0], h[1:]...)
			}
			m.history[i] = append(h, msg.Q[i])
		}
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		if msg.Result != nil {
			m.metrics = msg.Result.Metrics
		}
	}
	return m, nil
}

// Samples returns the number of steps seen so far.
func (m Live) Samples() int { return m.samples }

// Selected returns the index of the plotted bound state.
func (m Live) Selected() int { return m.selected }

// Err returns the error the run ended with, if any.
func (m Live) Err() error { return m.err }

func (m Live) View() string {
	var b strings.Builder
	b.WriteString(headerLine.Render(m.title))
	b.WriteString("\n")

	progress := 1.0
	if m.steps > 0 {
		progress = float64(m.samples) / float64(m.steps)
	}
	b.WriteString(fmt.Sprintf("%s %3.0f%%  t=%.4g\n\n", ProgressBar(progress, 40), 100*progress, m.last.Time))

	var stats strings.Builder
	for i, name := range m.labels {
		value := 0.0
		if i < len(m.last.Q) {
			value = m.last.Q[i]
		}
		line := fmt.Sprintf("%-8s %12.6g  %s", name, value, Sparkline(m.history[i], 20))
		if i == m.selected {
			line = selStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		stats.WriteString(line + "\n")
	}
	stats.WriteString("\n" + MetricLine("newton iterations", float64(m.last.Iterations)))
	if len(m.metrics) > 0 {
		names := make([]string, 0, len(m.metrics))
		for name := range m.metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			stats.WriteString("\n" + MetricLine(name, m.metrics[name]))
		}
	}
	b.WriteString(statsStyle.Render(stats.String()))
	b.WriteString("\n")

	if m.selected < len(m.history) && len(m.history[m.selected]) > 1 {
		width := m.width - 12
		if width < 20 {
			width = 20
		}
		graph := asciigraph.Plot(m.history[m.selected],
			asciigraph.Height(8),
			asciigraph.Width(width),
			asciigraph.Caption(m.labels[m.selected]),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(Status(false, m.err.Error()))
	case m.done:
		b.WriteString(Status(true, fmt.Sprintf("%d steps", m.samples)))
	}
	b.WriteString(helpStyle.Render("up/down select state • q quit"))
	return b.String()
}

// Forwarder is a sim.Observer that sends every sample to a program.
type Forwarder struct {
	send func(tea.Msg)
}

func NewForwarder(p *tea.Program) *Forwarder {
	return &Forwarder{send: p.Send}
}

func (f *Forwarder) OnStep(s sim.Sample) { f.send(SampleMsg(s)) }

var _ sim.Observer = (*Forwarder)(nil)

package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ffff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	MetricValue = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00ccff")).
			Bold(true)

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	StatusOK = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	StatusFail = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#444466"))

	barDone = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88"))
	barTodo = lipgloss.NewStyle().Foreground(lipgloss.Color("#444466"))
	spark   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00"))

	cellStyle   = lipgloss.NewStyle().Width(12).Align(lipgloss.Right)
	columnStyle = cellStyle.Bold(true).Foreground(lipgloss.Color("#ffffff"))
)

// MetricLine renders "label: value" with a fixed label width.
func MetricLine(label string, value float64) string {
	return MetricLabel.Render(fmt.Sprintf("%-20s", label)) + MetricValue.Render(fmt.Sprintf("%.6g", value))
}

// Status renders a pass/fail marker followed by msg.
func Status(ok bool, msg string) string {
	if ok {
		return StatusOK.Render("ok") + "   " + msg
	}
	return StatusFail.Render("FAIL") + " " + msg
}

// ProgressBar renders the fraction of completed time steps.
func ProgressBar(fraction float64, width int) string {
	filled := min(max(int(fraction*float64(width)), 0), width)
	return barDone.Render(strings.Repeat("█", filled)) + barTodo.Render(strings.Repeat("░", width-filled))
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders the last width values scaled to their own range, so
// the relaxation of a state towards equilibrium stays visible once the
// trajectory gets long.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return Subtle.Render(strings.Repeat("─", width))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	lo, hi := floats.Min(values), floats.Max(values)
	span := hi - lo
	if span == 0 {
		span = 1
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := int((v - lo) / span * float64(len(sparkRunes)-1))
		out[i] = sparkRunes[min(max(idx, 0), len(sparkRunes)-1)]
	}
	return spark.Render(string(out))
}

// Matrix renders m as a labelled table. Exact zeros are dimmed so the
// sparsity pattern of a Jacobian stands out.
func Matrix(m mat.Matrix, rowLabels, colLabels []string) string {
	r, c := m.Dims()
	var b strings.Builder

	b.WriteString(cellStyle.Render(""))
	for j := 0; j < c; j++ {
		b.WriteString(columnStyle.Render(label(colLabels, j, "c")))
	}
	b.WriteString("\n")

	for i := 0; i < r; i++ {
		b.WriteString(MetricLabel.Inherit(cellStyle).Render(label(rowLabels, i, "r")))
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if v == 0 {
				b.WriteString(Subtle.Inherit(cellStyle).Render("."))
				continue
			}
			b.WriteString(MetricValue.Inherit(cellStyle).Render(fmt.Sprintf("%.4g", v)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func label(labels []string, i int, prefix string) string {
	if i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("%s%d", prefix, i)
}

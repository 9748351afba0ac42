// Package export renders stored uptake trajectories as SVG.
package export

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/adsorb/internal/dynamo"
)

var palette = []string{"#00ff88", "#00ccff", "#ffcc00", "#ff4444", "#cc66ff", "#ff8800"}

const margin = 40

// UptakeSVG draws one polyline per bound state over time. Each state is
// scaled to its own range; salt and protein states differ by orders of
// magnitude. Returns "" unless there are two samples with matching times.
func UptakeSVG(times []float64, states []dynamo.State, labels []string, width, height int) string {
	if len(states) < 2 || len(times) != len(states) {
		return ""
	}
	plotW, plotH := float64(width-2*margin), float64(height-2*margin)
	t0, t1 := times[0], times[len(times)-1]
	xOf := func(t float64) float64 { return margin + scale(t, t0, t1)*plotW }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="monospace" font-size="12">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<rect x="%d" y="%d" width="%.0f" height="%.0f" fill="none" stroke="#444466"/>
<text x="%d" y="%d" fill="#888899">t=%g</text>
<text x="%d" y="%d" fill="#888899" text-anchor="end">t=%g</text>
`, width, height, width, height, margin, margin, plotW, plotH,
		margin, height-margin/2, t0, width-margin, height-margin/2, t1)

	series := make([]float64, len(states))
	for k := range states[0] {
		for i, q := range states {
			series[i] = q[k]
		}
		lo, hi := floats.Min(series), floats.Max(series)

		color := palette[k%len(palette)]
		sb.WriteString(`<polyline fill="none" stroke-width="1.5" stroke="` + color + `" points="`)
		for i, v := range series {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%.1f,%.1f", xOf(times[i]), margin+(1-scale(v, lo, hi))*plotH)
		}
		sb.WriteString("\"/>\n")

		name := fmt.Sprintf("q%d", k)
		if k < len(labels) {
			name = labels[k]
		}
		fmt.Fprintf(&sb, "<text x=\"%d\" y=\"%d\" fill=\"%s\">%s [%.4g, %.4g]</text>\n",
			margin+8, margin+16*(k+1), color, name, lo, hi)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// scale maps v into [0, 1] over [lo, hi]. A flat range maps to the middle.
func scale(v, lo, hi float64) float64 {
	if hi == lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

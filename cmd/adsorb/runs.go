package main

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/adsorb/internal/export"
	"github.com/san-kum/adsorb/internal/storage"
	"github.com/san-kum/adsorb/internal/viz"
)

var runModel string

// listRuns prints stored runs, newest first.
func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if runModel != "" {
		kept := runs[:0]
		for _, r := range runs {
			if strings.EqualFold(r.Model, runModel) {
				kept = append(kept, r)
			}
		}
		runs = kept
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODEL\tCREATED\tSALT\tT_END\tITERS\tTOTAL_BOUND\tJACOBIAN")
	for _, r := range runs {
		salt := math.NaN()
		if len(r.Liquid) > 0 {
			salt = r.Liquid[0]
		}
		jac := "analytic"
		if r.UseAD {
			jac = "ad"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%d\t%.6g\t%s\n",
			r.ID, r.Model, r.Timestamp.Format(time.DateTime), salt, r.Point.Time+r.Duration,
			r.Iterations, r.Metrics["total_bound"], jac)
	}
	return w.Flush()
}

// plotRun draws the salt state on its own axis and the protein states
// together, since their magnitudes differ by orders.
func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) < 2 {
		return fmt.Errorf("run %s has %d samples, nothing to plot", meta.ID, len(states))
	}

	fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("%s  %s", meta.ID, meta.Model)))
	fmt.Printf("t = %g .. %g, %d samples\n\n", times[0], times[len(times)-1], len(states))

	labels := boundLabels(meta.NBound)
	series := make([][]float64, len(states[0]))
	for k := range series {
		series[k] = make([]float64, len(states))
		for i, q := range states {
			series[k][i] = q[k]
		}
	}

	first := 0
	if len(meta.NBound) > 0 && meta.NBound[0] == 1 {
		first = 1
		fmt.Println(asciigraph.Plot(series[0],
			asciigraph.Height(6), asciigraph.Width(80), asciigraph.Caption(labels[0])))
		fmt.Println()
	}
	if first < len(series) {
		fmt.Println(asciigraph.PlotMany(series[first:],
			asciigraph.Height(12), asciigraph.Width(80),
			asciigraph.SeriesColors(seriesColors(len(series)-first)...),
			asciigraph.Caption(strings.Join(labels[first:], " ")),
		))
	}
	return nil
}

var plotColors = []asciigraph.AnsiColor{
	asciigraph.Green, asciigraph.Blue, asciigraph.Yellow, asciigraph.Red, asciigraph.Magenta, asciigraph.Cyan,
}

func seriesColors(n int) []asciigraph.AnsiColor {
	colors := make([]asciigraph.AnsiColor, n)
	for i := range colors {
		colors[i] = plotColors[i%len(plotColors)]
	}
	return colors
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	if svgFile == "" {
		return st.Export(os.Stdout, args[0])
	}

	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	svg := export.UptakeSVG(times, states, boundLabels(meta.NBound), 800, 400)
	if svg == "" {
		return fmt.Errorf("not enough data to export")
	}
	if err := os.WriteFile(svgFile, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgFile)
	return nil
}

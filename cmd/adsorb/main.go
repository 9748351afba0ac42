package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/adsorb/internal/config"
	"github.com/san-kum/adsorb/internal/experiment"
	"github.com/san-kum/adsorb/internal/storage"
	"github.com/san-kum/adsorb/internal/viz"
)

var (
	dataDir  string
	logLevel string

	configFile string
	model      string
	preset     string
	solver     string
	dt         float64
	duration   float64
	tolerance  float64
	atTime     float64
	useAD      bool
	checkJac   bool
	salts      []float64
	svgFile    string
)

// jacobianTolerance is the largest accepted relative difference between the
// analytic and the AD Jacobian.
const jacobianTolerance = 1e-8

func main() {
	rootCmd := &cobra.Command{
		Use:          "adsorb",
		Short:        "adsorption binding model lab",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".adsorb", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "list binding models and solvers",
		RunE:  listModels,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [file]",
		Short: "write a point configuration (yaml or toml)",
		Args:  cobra.ExactArgs(1),
		RunE:  writeConfig,
	}

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "evaluate residual and Jacobians at a point",
		RunE:  evalPoint,
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "cross-check analytic and AD Jacobians of every preset",
		RunE:  checkPresets,
	}
	checkCmd.Flags().StringVar(&solver, "solver", "newton", "nonlinear solver")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "consistent initialization of the bound phase",
		RunE:  initPoint,
	}
	initCmd.Flags().BoolVar(&checkJac, "check-jacobian", false, "log analytic vs AD Jacobian differences")

	sensCmd := &cobra.Command{
		Use:   "sens",
		Short: "residual sensitivities to every registered parameter",
		RunE:  sensitivities,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a batch uptake simulation",
		RunE:  runSimulation,
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a batch uptake simulation with live visualization",
		RunE:  runLive,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "uptake over a range of salt concentrations",
		RunE:  sweepSalt,
	}
	sweepCmd.Flags().Float64SliceVar(&salts, "salts", []float64{25, 50, 100, 200, 400}, "salt concentrations")

	for _, c := range []*cobra.Command{configCmd, evalCmd, initCmd, sensCmd, runCmd, liveCmd, sweepCmd} {
		pointFlags(c)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}
	listCmd.Flags().StringVar(&runModel, "model", "", "only list runs of this model")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCmd.Flags().StringVar(&svgFile, "svg", "", "write the trajectory as SVG to this file")

	rootCmd.AddCommand(modelsCmd, presetsCmd, configCmd, evalCmd, checkCmd, initCmd, sensCmd, runCmd, liveCmd, sweepCmd, listCmd, plotCmd, exportCmd)
	rootCmd.AddCommand(batchCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func pointFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	cmd.Flags().StringVar(&model, "model", "STERIC_MASS_ACTION", "binding model")
	cmd.Flags().StringVar(&preset, "preset", "lysozyme", "preset of the model")
	cmd.Flags().StringVar(&solver, "solver", "newton", "nonlinear solver")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Float64Var(&tolerance, "tol", config.DefaultTolerance, "nonlinear solver tolerance")
	cmd.Flags().Float64Var(&atTime, "at", 0, "simulation time of the point")
	cmd.Flags().BoolVar(&useAD, "ad", false, "use AD Jacobians")
}

// loadPoint reads the config file if given, else the preset. Flags that
// were set explicitly override both.
func loadPoint(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.GetPreset(model, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
	}

	if cmd.Flags().Changed("dt") {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("tol") {
		cfg.Tolerance = tolerance
	}
	if cmd.Flags().Changed("at") {
		cfg.Time = atTime
	}
	if cmd.Flags().Changed("ad") {
		cfg.UseAD = useAD
	}
	return cfg, nil
}

func setupPoint(cmd *cobra.Command, log logrus.FieldLogger) (*config.Config, *experiment.Experiment, error) {
	cfg, err := loadPoint(cmd)
	if err != nil {
		return nil, nil, err
	}
	exp := experiment.New(cfg)
	exp.Log = log
	exp.CheckJacobian = checkJac
	if err := exp.Setup(solver); err != nil {
		return nil, nil, err
	}
	return cfg, exp, nil
}

func boundLabels(nBound []int) []string {
	labels := storage.Columns(nBound)
	if len(labels) > 0 && len(nBound) > 0 && nBound[0] == 1 {
		labels[0] = "salt"
	}
	return labels
}

func liquidLabels(nComp int) []string {
	labels := make([]string, nComp)
	for i := range labels {
		labels[i] = fmt.Sprintf("cp%d", i)
	}
	return labels
}

func listModels(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tSALT\tTIME DEPENDENT\tPRESETS")
	for _, name := range registry.ListModels() {
		m, err := registry.GetModel(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%v\t%v\t%s\n",
			name,
			m.HasSalt(),
			m.DependsOnTime(),
			strings.Join(config.ListPresets(name), ", "),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nsolvers: %s\n", strings.Join(registry.ListSolvers(), ", "))
	return nil
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadPoint(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(args[0], cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s)\n", args[0], cfg.Model)
	return nil
}

func evalPoint(cmd *cobra.Command, args []string) error {
	cfg, exp, err := setupPoint(cmd, logrus.StandardLogger())
	if err != nil {
		return err
	}
	ev, err := exp.Evaluate()
	if err != nil {
		return err
	}

	rows := boundLabels(cfg.NBound)
	fmt.Println(viz.TitleStyle.Render(fmt.Sprintf("%s at t=%g", cfg.Model, cfg.Time)))
	fmt.Println()
	fmt.Println(viz.HeaderStyle.Render("residual"))
	for i, v := range ev.Residual {
		fmt.Println(viz.MetricLine(rows[i], v))
	}
	fmt.Println()

	cols := append(liquidLabels(cfg.NComp), rows...)
	fmt.Println(viz.HeaderStyle.Render("analytic jacobian"))
	fmt.Print(viz.Matrix(ev.Analytic, rows, cols))
	fmt.Println()
	fmt.Println(viz.Status(ev.MaxDiff < jacobianTolerance, fmt.Sprintf("max relative difference to AD: %.3g", ev.MaxDiff)))
	return nil
}

func checkPresets(cmd *cobra.Command, args []string) error {
	registry := experiment.NewRegistry()
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	failed := 0
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPRESET\tJACOBIAN\tINIT\tSTATUS")
	for _, name := range registry.ListModels() {
		for _, p := range config.ListPresets(name) {
			cfg := config.GetPreset(name, p)
			exp := experiment.New(cfg)
			exp.Log = quiet

			status := "ok"
			diff, initErr := math.NaN(), error(nil)
			if err := exp.Setup(solver); err != nil {
				status = err.Error()
			} else {
				ev, err := exp.Evaluate()
				if err != nil {
					status = err.Error()
				} else {
					diff = ev.MaxDiff
				}
				_, _, initErr = exp.Initialize()
			}

			switch {
			case status != "ok":
			case diff >= jacobianTolerance:
				status = "jacobian mismatch"
			case initErr != nil:
				status = initErr.Error()
			}
			if status != "ok" {
				failed++
			}
			fmt.Fprintf(w, "%s\t%s\t%.2e\t%v\t%s\n", name, p, diff, initErr == nil, status)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d presets failed", failed)
	}
	return nil
}

func initPoint(cmd *cobra.Command, args []string) error {
	cfg, exp, err := setupPoint(cmd, logrus.StandardLogger())
	if err != nil {
		return err
	}
	q, phases, err := exp.Initialize()

	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.String()
	}
	fmt.Printf("phases: %s\n\n", strings.Join(names, " -> "))

	labels := boundLabels(cfg.NBound)
	for i, v := range q {
		fmt.Println(viz.MetricLine(labels[i]+" initial", cfg.Bound[i]) + "  " + viz.MetricLine("consistent", v))
	}
	fmt.Println()
	if err != nil {
		fmt.Println(viz.Status(false, err.Error()))
		return err
	}
	fmt.Println(viz.Status(true, "consistent"))
	return nil
}

func sensitivities(cmd *cobra.Command, args []string) error {
	cfg, exp, err := setupPoint(cmd, logrus.StandardLogger())
	if err != nil {
		return err
	}
	sens, err := exp.Sensitivities()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "PARAMETER\t")
	for _, l := range boundLabels(cfg.NBound) {
		fmt.Fprintf(w, "dres/%s\t", l)
	}
	fmt.Fprintln(w)
	for _, s := range sens {
		fmt.Fprintf(w, "%s\t", s.Label())
		for _, d := range s.Deriv {
			fmt.Fprintf(w, "%.4g\t", d)
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, exp, err := setupPoint(cmd, logrus.StandardLogger())
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("running %s uptake...\n", cfg.Model)
	start := time.Now()

	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	runID, err := st.Save(metadata(cfg), result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", len(result.States))
	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6g\n", name, val)
	}

	return nil
}

func metadata(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Model:      cfg.Model,
		NComp:      cfg.NComp,
		NBound:     cfg.NBound,
		Point:      cfg.Point(),
		Liquid:     cfg.Liquid,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Tolerance:  cfg.Tolerance,
		UseAD:      cfg.UseAD,
		Parameters: cfg.Parameters,
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	cfg, exp, err := setupPoint(cmd, quiet)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	title := fmt.Sprintf("%s uptake, dt=%g", cfg.Model, cfg.Dt)
	p := tea.NewProgram(viz.NewLive(title, boundLabels(cfg.NBound), steps, cancel))
	exp.GetSimulator().AddObserver(viz.NewForwarder(p))

	go func() {
		result, err := exp.Run(ctx)
		p.Send(viz.DoneMsg{Result: result, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if live, ok := final.(viz.Live); ok {
		if err := live.Err(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

func sweepSalt(cmd *cobra.Command, args []string) error {
	cfg, err := loadPoint(cmd)
	if err != nil {
		return err
	}

	start := time.Now()
	results, err := experiment.Sweep(cmd.Context(), cfg, salts, logrus.StandardLogger())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	bound := make([]float64, len(results))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SALT\tTOTAL BOUND\tCAPACITY RES\tITERATIONS")
	for i, r := range results {
		bound[i] = r.Metrics["total_bound"]
		fmt.Fprintf(w, "%g\t%.6g\t%.2e\t%d\n", salts[i], bound[i], r.Metrics["capacity_residual"], r.Iterations)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(bound) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(bound,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption("total bound vs salt step"),
		))
	}
	fmt.Printf("\n%d points in %v\n", len(results), elapsed)
	return nil
}

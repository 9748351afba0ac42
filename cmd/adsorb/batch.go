package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/adsorb/internal/automation"
	"github.com/san-kum/adsorb/internal/experiment"
	"github.com/san-kum/adsorb/internal/optim"
	"github.com/san-kum/adsorb/internal/storage"
)

var (
	trials       int
	perturbation float64
	seed         int64
	grids        []string
	metricName   string
	target       float64
)

func batchCommands() []*cobra.Command {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run and store every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "uptake robustness over random liquid phases",
		RunE:  runMonteCarlo,
	}
	monteCarloCmd.Flags().IntVar(&trials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&perturbation, "perturb", 0.2, "relative perturbation of the liquid phase")
	monteCarloCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time based)")

	fitCmd := &cobra.Command{
		Use:   "fit",
		Short: "grid search parameters for a target metric",
		RunE:  fitParameters,
	}
	fitCmd.Flags().StringArrayVar(&grids, "grid", nil, "parameter grid, e.g. SMA_KA[1]=1,10,100 (repeatable)")
	fitCmd.Flags().StringVar(&metricName, "metric", "total_bound", "metric to match")
	fitCmd.Flags().Float64Var(&target, "target", 0, "target metric value")

	for _, c := range []*cobra.Command{monteCarloCmd, fitCmd} {
		pointFlags(c)
	}
	return []*cobra.Command{scenarioCmd, monteCarloCmd, fitCmd}
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	results, err := automation.RunScenario(cmd.Context(), sc, logrus.StandardLogger())
	for _, r := range results {
		runID, saveErr := st.Save(metadata(r.Config), r.Result)
		if saveErr != nil {
			return saveErr
		}
		fmt.Printf("%-12s %s  total_bound=%.6g\n", r.Name, runID, r.Result.Metrics["total_bound"])
	}
	return err
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadPoint(cmd)
	if err != nil {
		return err
	}

	results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
		Base:         cfg,
		Perturbation: perturbation,
		NumTrials:    trials,
		Seed:         seed,
	}, logrus.StandardLogger())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TRIAL\tSALT\tFINAL\tSTATUS")
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(w, "%d\t%.4g\t%v\t%s\n", r.TrialID, r.Liquid[0], r.FinalState, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	converged, failed := automation.MonteCarloStats(results)
	fmt.Printf("\nconverged: %d  failed: %d\n", converged, failed)
	return nil
}

func fitParameters(cmd *cobra.Command, args []string) error {
	cfg, err := loadPoint(cmd)
	if err != nil {
		return err
	}
	if len(grids) == 0 {
		return fmt.Errorf("at least one --grid is required")
	}

	names := make([]string, len(grids))
	ranges := make([][]float64, len(grids))
	for i, g := range grids {
		names[i], ranges[i], err = optim.ParseGrid(g)
		if err != nil {
			return err
		}
	}

	quiet := logrus.New()
	quiet.SetLevel(logrus.WarnLevel)
	build := func() (*experiment.Experiment, error) {
		exp := experiment.New(cfg.Clone())
		exp.Log = quiet
		return exp, exp.Setup(solver)
	}

	best, score, err := optim.NewGridSearch(names, ranges).Search(cmd.Context(), build, optim.MetricTarget(metricName, target))
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s = %g\n", k, best[k])
	}
	fmt.Printf("|%s - %g| = %.6g\n", metricName, target, score)
	return nil
}

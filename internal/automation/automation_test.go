package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: salt steps
description: lysozyme at two salt levels
steps:
  - model: STERIC_MASS_ACTION
    preset: lysozyme
    duration: 1
    liquid: [50, 1, 1, 1]
    save_as: low
  - model: STERIC_MASS_ACTION
    preset: lysozyme
    duration: 1
    liquid: [200, 1, 1, 1]
    parameters:
      SMA_LAMBDA: 1000.0
`

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0644))

	sc, err := LoadScenario(path)
	require.NoError(t, err)
	require.Equal(t, "salt steps", sc.Name)
	require.Len(t, sc.Steps, 2)

	cfg, err := sc.Steps[1].Resolve()
	require.NoError(t, err)
	require.Equal(t, 200.0, cfg.Liquid[0])
	require.Equal(t, 1.0, cfg.Duration)
	require.Equal(t, 1000.0, cfg.Parameters["SMA_LAMBDA"])
	require.Equal(t, 0.05, cfg.Dt, "unset fields keep the preset value")
}

func TestResolve_Errors(t *testing.T) {
	_, err := ScenarioStep{Model: "STERIC_MASS_ACTION", Preset: "nope"}.Resolve()
	require.Error(t, err)

	_, err = ScenarioStep{}.Resolve()
	require.Error(t, err)
}

func TestRunScenario(t *testing.T) {
	sc := &Scenario{Steps: []ScenarioStep{
		{Model: "STERIC_MASS_ACTION", Preset: "lysozyme", Duration: 0.5, SaveAs: "short"},
		{Model: "GENERALIZED_ION_EXCHANGE", Preset: "ph_modulated", Duration: 0.5},
	}}
	logger, _ := test.NewNullLogger()

	results, err := RunScenario(context.Background(), sc, logger)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "short", results[0].Name)
	require.Equal(t, "step2", results[1].Name)
	require.Len(t, results[0].Result.States, 11)

	sc.Steps = append(sc.Steps, ScenarioStep{Model: "LANGMUIR", Preset: "x"})
	results, err = RunScenario(context.Background(), sc, logger)
	require.Error(t, err)
	require.Len(t, results, 2, "completed steps are kept")
}

func TestMonteCarlo(t *testing.T) {
	sc := ScenarioStep{Model: "STERIC_MASS_ACTION", Preset: "lysozyme", Duration: 0.5}
	base, err := sc.Resolve()
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{
		Base:         base,
		Perturbation: 0.2,
		NumTrials:    5,
		Seed:         7,
	}, logger)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for _, r := range results {
		require.InDelta(t, 50, r.Liquid[0], 10+1e-9)
	}
	converged, failed := MonteCarloStats(results)
	require.Equal(t, 5, converged+failed)
	require.Equal(t, 50.0, base.Liquid[0], "base point is not modified")
}

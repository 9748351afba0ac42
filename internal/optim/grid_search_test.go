package optim

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/adsorb/internal/config"
	"github.com/san-kum/adsorb/internal/experiment"
	"github.com/san-kum/adsorb/internal/params"
)

func TestParseParam(t *testing.T) {
	name, comp, err := ParseParam("SMA_KA[2]")
	require.NoError(t, err)
	require.Equal(t, "SMA_KA", name)
	require.Equal(t, 2, comp)

	name, comp, err = ParseParam(" SMA_LAMBDA ")
	require.NoError(t, err)
	require.Equal(t, "SMA_LAMBDA", name)
	require.Equal(t, params.Indep, comp)

	_, _, err = ParseParam("sma_ka[x]")
	require.Error(t, err)
}

func TestParseGrid(t *testing.T) {
	name, values, err := ParseGrid("EXT_SMA_KA_T[1]=0.5, 1,2")
	require.NoError(t, err)
	require.Equal(t, "EXT_SMA_KA_T[1]", name)
	require.Equal(t, []float64{0.5, 1, 2}, values)

	_, _, err = ParseGrid("SMA_KA[1]")
	require.Error(t, err)
	_, _, err = ParseGrid("SMA_KA[1]=1,abc")
	require.Error(t, err)
}

func pointConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Duration = 2
	cfg.Liquid = []float64{50, 1}
	cfg.Bound = []float64{1200, 0}
	cfg.Parameters = map[string]any{
		"SMA_LAMBDA": 1200.0,
		"SMA_KA":     []any{0.0, 10.0},
		"SMA_KD":     []any{0.0, 1.0},
		"SMA_NU":     []any{0.0, 4.7},
		"SMA_SIGMA":  []any{0.0, 11.83},
		"SMA_REFC0":  50.0,
		"SMA_REFQ":   1200.0,
	}
	return cfg
}

func TestGridSearch(t *testing.T) {
	logger, _ := test.NewNullLogger()
	build := func() (*experiment.Experiment, error) {
		exp := experiment.New(pointConfig())
		exp.Log = logger
		return exp, exp.Setup("newton")
	}

	ref, err := build()
	require.NoError(t, err)
	result, err := ref.Run(context.Background())
	require.NoError(t, err)
	target := result.Metrics["total_bound"]

	g := NewGridSearch([]string{"SMA_KA[1]", "SMA_KD[1]"}, [][]float64{{1, 10, 100}, {1, 2}})
	best, score, err := g.Search(context.Background(), build, MetricTarget("total_bound", target))
	require.NoError(t, err)
	require.Equal(t, map[string]float64{"SMA_KA[1]": 10, "SMA_KD[1]": 1}, best)
	require.InDelta(t, 0, score, 1e-12)
}

func TestGridSearch_UnknownParameter(t *testing.T) {
	build := func() (*experiment.Experiment, error) {
		exp := experiment.New(pointConfig())
		return exp, exp.Setup("newton")
	}
	g := NewGridSearch([]string{"SMA_NOPE[1]"}, [][]float64{{1}})
	_, _, err := g.Search(context.Background(), build, MetricTarget("total_bound", 0))
	require.Error(t, err)
}

func TestGridSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGridSearch([]string{"SMA_KA[1]"}, [][]float64{{1, 2}})
	_, _, err := g.Search(ctx, func() (*experiment.Experiment, error) {
		exp := experiment.New(pointConfig())
		return exp, exp.Setup("newton")
	}, MetricTarget("total_bound", 0))
	require.ErrorIs(t, err, context.Canceled)
}

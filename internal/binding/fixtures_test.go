package binding_test

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/binding"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/linalg"
	"github.com/san-kum/adsorb/internal/params"
)

func smaSource(kinetic any) params.MapProvider {
	return params.MapProvider{
		"IS_KINETIC": kinetic,
		"SMA_LAMBDA": 1200.0,
		"SMA_KA":     []any{0.0, 35.5, 1.59},
		"SMA_KD":     []any{0.0, 1000.0, 1000.0},
		"SMA_NU":     []any{0.0, 4.7, 5.29},
		"SMA_SIGMA":  []any{0.0, 11.83, 10.6},
	}
}

// smaEquilibriumSource has well scaled rates so the quasi-stationary
// equilibrium is of order one.
func smaEquilibriumSource() params.MapProvider {
	return params.MapProvider{
		"IS_KINETIC": false,
		"SMA_LAMBDA": 1200.0,
		"SMA_KA":     []any{0.0, 10.0, 5.0},
		"SMA_KD":     []any{0.0, 1.0, 1.0},
		"SMA_NU":     []any{0.0, 4.7, 5.29},
		"SMA_SIGMA":  []any{0.0, 11.83, 10.6},
		"SMA_REFC0":  50.0,
		"SMA_REFQ":   1200.0,
	}
}

func giexSource(kinetic any) params.MapProvider {
	return params.MapProvider{
		"IS_KINETIC":    kinetic,
		"GIEX_LAMBDA":   1200.0,
		"GIEX_KA":       []any{0, 0, 10.0, 5.0},
		"GIEX_KA_LIN":   []any{0, 0, 0.2, 0.1},
		"GIEX_KA_QUAD":  []any{0, 0, -0.02, -0.01},
		"GIEX_KA_SALT":  []any{0, 0, 0.1, 0.05},
		"GIEX_KA_PROT":  []any{0, 0, 0.3, 0.2},
		"GIEX_KD":       []any{0, 0, 1.0, 1.0},
		"GIEX_KD_LIN":   []any{0, 0, 0.05, 0.08},
		"GIEX_KD_QUAD":  []any{0, 0, 0.01, -0.01},
		"GIEX_KD_SALT":  []any{0, 0, 0.2, 0.1},
		"GIEX_KD_PROT":  []any{0, 0, 0.1, 0.1},
		"GIEX_NU":       []any{0, 0, 4.7, 5.29},
		"GIEX_NU_LIN":   []any{0, 0, 0.1, -0.05},
		"GIEX_NU_QUAD":  []any{0, 0, 0.01, 0.02},
		"GIEX_SIGMA":    []any{0, 0, 11.83, 10.6},
		"GIEX_REFC0":    50.0,
		"GIEX_REFQ":     1200.0,
	}
}

// external turns a plain source into one for the EXT_ variant. The base
// value is kept and the linear coefficient is 1% of it.
func external(src params.MapProvider, prefix string) params.MapProvider {
	out := params.MapProvider{}
	for k, v := range src {
		if !strings.HasPrefix(k, prefix) {
			out[k] = v
			continue
		}
		ext := "EXT_" + k
		out[ext] = v
		if strings.HasSuffix(k, "REFC0") || strings.HasSuffix(k, "REFQ") {
			continue
		}
		switch x := v.(type) {
		case []any:
			lin := make([]any, len(x))
			zero := make([]any, len(x))
			for i := range x {
				f, _ := x[i].(float64)
				if n, ok := x[i].(int); ok {
					f = float64(n)
				}
				lin[i] = 0.01 * f
				zero[i] = 0.0
			}
			out[ext+"_T"], out[ext+"_TT"], out[ext+"_TTT"] = lin, zero, zero
		case float64:
			out[ext+"_T"], out[ext+"_TT"], out[ext+"_TTT"] = 0.01*x, 0.0, 0.0
		}
	}
	return out
}

type fixture struct {
	name   string
	model  string
	nComp  int
	nBound []int
	src    params.MapProvider
	y      []float64
	yCp    []float64
}

func fixtures() []fixture {
	return []fixture{
		{
			name: "sma", model: "STERIC_MASS_ACTION", nComp: 3, nBound: []int{1, 1, 1},
			src: smaSource(true), y: []float64{1190, 0.3, 0.1}, yCp: []float64{50, 1.0, 0.5},
		},
		{
			name: "sma non-binding", model: "STERIC_MASS_ACTION", nComp: 4, nBound: []int{1, 1, 0, 1},
			src: params.MapProvider{
				"IS_KINETIC": true,
				"SMA_LAMBDA": 800.0,
				"SMA_KA":     []any{0, 2.0, 9.0, 3.0},
				"SMA_KD":     []any{0, 1.0, 9.0, 2.0},
				"SMA_NU":     []any{0, 3.5, 9.0, 4.2},
				"SMA_SIGMA":  []any{0, 8.0, 9.0, 6.0},
				"SMA_REFC0":  100.0,
				"SMA_REFQ":   800.0,
			},
			y: []float64{700, 2.0, 1.5}, yCp: []float64{80, 0.7, 3.0, 0.4},
		},
		{
			name: "ext sma", model: "EXT_STERIC_MASS_ACTION", nComp: 3, nBound: []int{1, 1, 1},
			src: external(smaSource(true), "SMA_"), y: []float64{1190, 0.3, 0.1}, yCp: []float64{50, 1.0, 0.5},
		},
		{
			name: "giex", model: "GENERALIZED_ION_EXCHANGE", nComp: 4, nBound: []int{1, 0, 1, 1},
			src: giexSource(true), y: []float64{1000, 0.3, 0.1}, yCp: []float64{60, 5.5, 1.0, 0.5},
		},
		{
			name: "ext giex", model: "EXT_GENERALIZED_ION_EXCHANGE", nComp: 4, nBound: []int{1, 0, 1, 1},
			src: external(giexSource(true), "GIEX_"), y: []float64{1000, 0.3, 0.1}, yCp: []float64{60, 5.5, 1.0, 0.5},
		},
	}
}

var testPoint = dynamo.Point{Time: 2, Section: 0, Pos: dynamo.Position{Axial: 0.25, Radial: 0, Particle: 0.5}}

func build(t testing.TB, f fixture) binding.Model {
	t.Helper()
	m, err := binding.Build(f.model, f.nComp, f.nBound, f.src, 0)
	require.NoError(t, err)
	signal, err := params.NewExprFunction("1 + 0.1*t")
	require.NoError(t, err)
	m.SetExternalFunctions([]params.ExternalFunction{signal})
	return m
}

// analyticFull assembles the Jacobian with liquid phase columns first.
func analyticFull(t testing.TB, m binding.Model, f fixture) *mat.Dense {
	t.Helper()
	n := m.NumBoundStates()
	jac := mat.NewDense(n, f.nComp+n, nil)
	require.NoError(t, m.AnalyticJacobian(testPoint, f.y, f.yCp, f.nComp, linalg.NewDenseRow(jac, 0, f.nComp)))
	return jac
}

// adFull differentiates the residual with the same column layout.
func adFull(t testing.TB, m binding.Model, f fixture) *mat.Dense {
	t.Helper()
	n := m.NumBoundStates()
	nDir := f.nComp + n
	cp := ad.Seed(f.yCp, nDir, 0)
	y := ad.Seed(f.y, nDir, f.nComp)
	res := make([]ad.Active, n)
	require.NoError(t, m.ResidualStateActive(testPoint, y, cp, nil, 0, res))
	jac := mat.NewDense(n, nDir, nil)
	ad.ExtractJacobian(res, 0, jac)
	return jac
}

func relDiff(a, b float64) float64 {
	return math.Abs(a-b) / math.Max(1, math.Abs(b))
}

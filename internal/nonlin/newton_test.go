package nonlin_test

import (
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/adsorb/internal/nonlin"
)

func quietNewton() *nonlin.Newton {
	s := nonlin.NewNewton()
	logger, _ := test.NewNullLogger()
	s.Log = logger
	return s
}

func TestNewtonScalar(t *testing.T) {
	s := quietNewton()
	x := []float64{1}
	ws := make([]float64, s.WorkspaceSize(1))

	ok := s.Solve(
		func(x, res []float64) error { res[0] = x[0]*x[0] - 2; return nil },
		func(x []float64, jac *mat.Dense) error { jac.Set(0, 0, 2*x[0]); return nil },
		1e-12, x, ws, nil, 1)

	require.True(t, ok)
	require.InDelta(t, math.Sqrt2, x[0], 1e-12)
	require.LessOrEqual(t, s.Stats().Iterations, 10)
}

// Intersection of the unit circle with the line y = x.
func TestNewtonSystem(t *testing.T) {
	s := quietNewton()
	x := []float64{2, 0.5}
	ws := make([]float64, s.WorkspaceSize(2))
	jac := mat.NewDense(2, 2, nil)

	ok := s.Solve(
		func(x, res []float64) error {
			res[0] = x[0]*x[0] + x[1]*x[1] - 1
			res[1] = x[0] - x[1]
			return nil
		},
		func(x []float64, jac *mat.Dense) error {
			jac.Set(0, 0, 2*x[0])
			jac.Set(0, 1, 2*x[1])
			jac.Set(1, 0, 1)
			jac.Set(1, 1, -1)
			return nil
		},
		1e-12, x, ws, jac, 2)

	require.True(t, ok)
	require.InDelta(t, math.Sqrt(0.5), x[0], 1e-10)
	require.InDelta(t, math.Sqrt(0.5), x[1], 1e-10)
	require.Less(t, s.Stats().Residual, 1e-12)
}

func TestNewtonFailures(t *testing.T) {
	quad := func(x, res []float64) error { res[0] = x[0]*x[0] + 1; return nil }
	dquad := func(x []float64, jac *mat.Dense) error { jac.Set(0, 0, 2*x[0]); return nil }

	t.Run("no root", func(t *testing.T) {
		s := quietNewton()
		s.MaxIterations = 20
		ok := s.Solve(quad, dquad, 1e-10, []float64{3}, make([]float64, 4), nil, 1)
		require.False(t, ok)
	})

	t.Run("singular", func(t *testing.T) {
		s := quietNewton()
		ok := s.Solve(quad, dquad, 1e-10, []float64{0}, make([]float64, 4), nil, 1)
		require.False(t, ok)
		require.Error(t, s.Stats().Err)
	})

	t.Run("residual error", func(t *testing.T) {
		s := quietNewton()
		boom := errors.New("boom")
		ok := s.Solve(func(x, res []float64) error { return boom }, dquad, 1e-10, []float64{1}, make([]float64, 4), nil, 1)
		require.False(t, ok)
		require.ErrorIs(t, s.Stats().Err, boom)
	})

	t.Run("short workspace", func(t *testing.T) {
		s := quietNewton()
		ok := s.Solve(quad, dquad, 1e-10, []float64{1}, make([]float64, 1), nil, 1)
		require.False(t, ok)
		require.Error(t, s.Stats().Err)
	})
}

func TestNewtonLogsIterations(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	s := nonlin.NewNewton()
	s.Log = logger

	ok := s.Solve(
		func(x, res []float64) error { res[0] = x[0] - 3; return nil },
		func(x []float64, jac *mat.Dense) error { jac.Set(0, 0, 1); return nil },
		1e-12, []float64{0}, make([]float64, 4), nil, 1)
	require.True(t, ok)
	require.NotEmpty(t, hook.AllEntries())
	require.Equal(t, 1, hook.LastEntry().Data["iter"])
}

func TestNewtonEmptySystem(t *testing.T) {
	require.True(t, quietNewton().Solve(nil, nil, 1e-10, nil, nil, nil, 0))
}

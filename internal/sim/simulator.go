package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/binding"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/linalg"
	"github.com/san-kum/adsorb/internal/nonlin"
)

// Simulator owns one binding model. Models are not safe for concurrent
// use, so a Simulator must not be shared between goroutines either.
type Simulator struct {
	model     binding.Model
	solver    nonlin.Solver
	metrics   []Metric
	observers []Observer
	pool      *StatePool
	Log       logrus.FieldLogger
}

// New returns a simulator for a configured model. A nil solver selects a
// damped Newton solver.
func New(model binding.Model, solver nonlin.Solver) *Simulator {
	if solver == nil {
		solver = nonlin.NewNewton()
	}
	return &Simulator{
		model:     model,
		solver:    solver,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		Log:       logrus.StandardLogger(),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Model() binding.Model { return s.model }

func (s *Simulator) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// Run integrates the bound phase q0 from p.Time over cfg.Duration with the
// liquid phase yCp held fixed. Unless cfg.SkipInit is set, q0 is first made
// consistent. On failure the partial result is returned with a
// *dynamo.SimulationError.
func (s *Simulator) Run(ctx context.Context, p dynamo.Point, q0, yCp dynamo.State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	n := s.model.NumBoundStates()
	nComp := s.model.Layout().NComp
	if len(q0) != n || len(yCp) != nComp {
		return nil, fmt.Errorf("%w: %s needs %d bound states and %d components, got %d and %d",
			dynamo.ErrDimensionMismatch, s.model.Name(), n, nComp, len(q0), len(yCp))
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		States:  make([]dynamo.State, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	q := q0.Clone()
	if !cfg.SkipInit {
		ci := binding.NewConsistentInitializer(s.solver)
		ci.UseAD = cfg.UseAD
		ci.Log = s.log()
		if err := ci.Run(s.model, p, q, yCp, cfg.Tolerance); err != nil {
			return nil, &dynamo.SimulationError{Step: 0, Time: p.Time, State: q, Wrapped: err}
		}
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result.States = append(result.States, q.Clone())
	result.Times = append(result.Times, p.Time)

	st := s.newStepper(n, yCp, cfg)
	defer st.release()

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		sp := p
		sp.Time = p.Time + float64(i+1)*cfg.Dt
		iters, err := st.step(sp, q)
		if err == nil && !q.IsValid() {
			err = fmt.Errorf("%w: invalid state (NaN/Inf)", dynamo.ErrConvergence)
		}
		if err != nil {
			return result, &dynamo.SimulationError{Step: i + 1, Time: sp.Time, State: q.Clone(), Wrapped: err}
		}
		result.Iterations += iters

		res := make(dynamo.State, n)
		if err := s.model.Residual(sp, q, yCp, nil, 0, res); err != nil {
			return result, &dynamo.SimulationError{Step: i + 1, Time: sp.Time, State: q.Clone(), Wrapped: err}
		}
		sample := Sample{Time: sp.Time, Q: q.Clone(), Residual: res, Iterations: iters}
		for _, m := range s.metrics {
			m.Observe(sample)
		}
		for _, obs := range s.observers {
			obs.OnStep(sample)
		}

		result.States = append(result.States, sample.Q)
		result.Times = append(result.Times, sp.Time)

		s.log().WithFields(logrus.Fields{
			"step":       i + 1,
			"t":          sp.Time,
			"iterations": iters,
		}).Debug("sim: step")
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return dynamo.Invalidf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return dynamo.Invalidf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Tolerance <= 0 {
		return dynamo.Invalidf("tolerance must be positive, got %g", cfg.Tolerance)
	}
	return nil
}

// stepper holds the scratch storage of one run.
type stepper struct {
	s     *Simulator
	pool  *StatePool
	n     int
	dt    float64
	tol   float64
	useAD bool
	yCp   dynamo.State

	prev, yDot, work dynamo.State
	ws               []float64
	jac              *mat.Dense
	yAD, cpAD, resAD []ad.Active
}

func (s *Simulator) newStepper(n int, yCp dynamo.State, cfg Config) *stepper {
	pool := s.pool
	if pool == nil {
		pool = NewStatePool()
	}
	st := &stepper{
		s:     s,
		pool:  pool,
		n:     n,
		dt:    cfg.Dt,
		tol:   cfg.Tolerance,
		useAD: cfg.UseAD,
		yCp:   yCp,
		prev:  pool.Get(n),
		yDot:  pool.Get(n),
		work:  pool.Get(n),
		ws:    make([]float64, s.solver.WorkspaceSize(n)),
		jac:   mat.NewDense(n, n, nil),
	}
	if cfg.UseAD {
		st.yAD = ad.Seed(make([]float64, n), n, 0)
		st.cpAD = ad.ToActive(yCp)
		st.resAD = make([]ad.Active, n)
	}
	return st
}

func (st *stepper) release() {
	st.pool.Put(st.prev)
	st.pool.Put(st.yDot)
	st.pool.Put(st.work)
}

// step advances q in place by one implicit Euler step:
// res(q, (q - q_prev)/dt) = 0 with Jacobian dres/dq + 1/dt on kinetic rows.
func (st *stepper) step(p dynamo.Point, q dynamo.State) (int, error) {
	m := st.s.model
	copy(st.prev, q)
	alpha := 1 / st.dt

	residual := func(x, res []float64) error {
		for i := range st.yDot {
			st.yDot[i] = (x[i] - st.prev[i]) * alpha
		}
		return m.Residual(p, x, st.yCp, st.yDot, 1, res)
	}

	jacobian := func(x []float64, jac *mat.Dense) error {
		jac.Zero()
		if st.useAD {
			ad.CopyToActive(st.yAD, x)
			if err := m.ResidualStateActive(p, st.yAD, st.cpAD, nil, 0, st.resAD); err != nil {
				return err
			}
			ad.ExtractJacobian(st.resAD, 0, jac)
		} else if err := m.AnalyticJacobian(p, x, st.yCp, m.Layout().NComp, linalg.NewDenseRow(jac, 0, 0).Clipped()); err != nil {
			return err
		}
		m.JacobianAddDiscretized(alpha, linalg.NewDenseRow(jac, 0, 0))
		return nil
	}

	ok := st.s.solver.Solve(residual, jacobian, st.tol, q, st.ws, st.jac, st.n)
	iters := 0
	if ns, isNewton := st.s.solver.(interface{ Stats() nonlin.Stats }); isNewton {
		iters = ns.Stats().Iterations
	}
	if ok {
		return iters, nil
	}

	if err := residual(q, st.work); err != nil {
		return iters, err
	}
	return iters, fmt.Errorf("%w: residual %g", dynamo.ErrConvergence, floats.Norm(st.work, 2))
}

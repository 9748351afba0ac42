// Package experiment wires a binding point configuration to a model, a
// nonlinear solver and the uptake simulator.
package experiment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/binding"
	"github.com/san-kum/adsorb/internal/config"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/linalg"
	"github.com/san-kum/adsorb/internal/nonlin"
	"github.com/san-kum/adsorb/internal/params"
	"github.com/san-kum/adsorb/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	model     binding.Model
	solver    nonlin.Solver
	simulator *sim.Simulator
	// CheckJacobian compares analytic and AD Jacobians during
	// initialization and logs the difference at debug level.
	CheckJacobian bool
	Log           logrus.FieldLogger
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		Log:      logrus.StandardLogger(),
	}
}

// BuildModel creates the configured model of cfg with its driving signals
// attached.
func BuildModel(cfg *config.Config) (binding.Model, error) {
	m, err := binding.Build(cfg.Model, cfg.NComp, cfg.NBound, cfg.Source(), cfg.Unit)
	if err != nil {
		return nil, err
	}
	ext, err := cfg.ExternalFunctions()
	if err != nil {
		return nil, err
	}
	m.SetExternalFunctions(ext)
	return m, nil
}

// Setup validates the configuration and builds the model, the named solver
// and a simulator with the default metrics.
func (e *Experiment) Setup(solver string) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	m, err := BuildModel(e.cfg)
	if err != nil {
		return err
	}
	s, err := e.registry.GetSolver(solver, e.Log)
	if err != nil {
		return err
	}
	e.model = m
	e.solver = s
	e.simulator = sim.New(m, s)
	e.simulator.Log = e.Log
	for _, metric := range DefaultMetrics(m) {
		e.simulator.AddMetric(metric)
	}
	return nil
}

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:        e.cfg.Dt,
		Duration:  e.cfg.Duration,
		Tolerance: e.cfg.Tolerance,
		UseAD:     e.cfg.UseAD,
	}
}

// Run integrates the uptake of the configured bound phase.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.cfg.Point(), e.cfg.Bound, e.cfg.Liquid, e.SimConfig())
}

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Model() binding.Model { return e.model }

// Evaluation is the residual and Jacobian of one point. Jacobian columns
// are the liquid phase followed by the bound states.
type Evaluation struct {
	Residual []float64
	Analytic *mat.Dense
	AD       *mat.Dense
	// MaxDiff is the largest relative difference between the two Jacobians.
	MaxDiff float64
}

// Evaluate computes the residual without time derivative and both
// Jacobians at the configured bound phase.
func (e *Experiment) Evaluate() (*Evaluation, error) {
	if e.model == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	m := e.model
	p := e.cfg.Point()
	n := m.NumBoundStates()
	nComp := m.Layout().NComp

	ev := &Evaluation{
		Residual: make([]float64, n),
		Analytic: mat.NewDense(n, nComp+n, nil),
		AD:       mat.NewDense(n, nComp+n, nil),
	}
	if err := m.Residual(p, e.cfg.Bound, e.cfg.Liquid, nil, 0, ev.Residual); err != nil {
		return nil, err
	}
	if err := m.AnalyticJacobian(p, e.cfg.Bound, e.cfg.Liquid, nComp, linalg.NewDenseRow(ev.Analytic, 0, nComp)); err != nil {
		return nil, err
	}

	nDir := nComp + n
	cp := ad.Seed(e.cfg.Liquid, nDir, 0)
	y := ad.Seed(e.cfg.Bound, nDir, nComp)
	res := make([]ad.Active, n)
	if err := m.ResidualStateActive(p, y, cp, nil, 0, res); err != nil {
		return nil, err
	}
	ad.ExtractJacobian(res, 0, ev.AD)
	ev.MaxDiff = ad.CompareJacobian(res, 0, ev.Analytic)
	return ev, nil
}

// Initialize runs consistent initialization on a copy of the configured
// bound phase and returns it with the phases visited.
func (e *Experiment) Initialize() (dynamo.State, []binding.Phase, error) {
	if e.model == nil {
		return nil, nil, fmt.Errorf("experiment not setup")
	}
	ci := binding.NewConsistentInitializer(e.solver)
	ci.UseAD = e.cfg.UseAD
	ci.CheckJacobian = e.CheckJacobian
	ci.Log = e.Log
	q := dynamo.State(e.cfg.Bound).Clone()
	err := ci.Run(e.model, e.cfg.Point(), q, e.cfg.Liquid, e.cfg.Tolerance)
	return q, ci.Phases(), err
}

// SetParameter overwrites a registered parameter of the configured model.
// comp is params.Indep for scalar parameters.
func (e *Experiment) SetParameter(name string, comp int, v float64) error {
	if e.model == nil {
		return fmt.Errorf("experiment not setup")
	}
	bound := 0
	if comp == params.Indep {
		bound = params.Indep
	}
	return e.model.Parameters().Set(params.NewID(name, e.cfg.Unit, comp, bound, params.Indep, params.Indep), v)
}

// Sensitivity is the derivative of every residual row with respect to one
// registered parameter.
type Sensitivity struct {
	Name      string
	Component int
	Deriv     []float64
}

// Sensitivities differentiates the residual at the configured point with
// respect to every registered parameter. Seeds are cleared afterwards.
func (e *Experiment) Sensitivities() ([]Sensitivity, error) {
	if e.model == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	m := e.model
	reg := m.Parameters()
	ids := reg.IDs()
	defer reg.ClearSeeds()
	for k, id := range ids {
		if err := reg.Seed(id, len(ids), k); err != nil {
			return nil, err
		}
	}

	n := m.NumBoundStates()
	res := make([]ad.Active, n)
	p := e.cfg.Point()
	if err := m.ResidualParamActive(ad.Const(p.Time), p, e.cfg.Bound, e.cfg.Liquid, nil, ad.Const(0), res); err != nil {
		return nil, err
	}

	out := make([]Sensitivity, len(ids))
	for k, id := range ids {
		s := Sensitivity{Name: reg.Name(id), Component: id.Component, Deriv: make([]float64, n)}
		for i := range res {
			s.Deriv[i] = res[i].Deriv(k)
		}
		out[k] = s
	}
	return out, nil
}

// Label names a sensitivity by key and component.
func (s Sensitivity) Label() string {
	if s.Component == params.Indep {
		return s.Name
	}
	return fmt.Sprintf("%s[%d]", s.Name, s.Component)
}

// Sweep runs the uptake of cfg once per salt concentration in parallel.
// Each result starts from the configured bound phase.
func Sweep(ctx context.Context, cfg *config.Config, salts []float64, log logrus.FieldLogger) ([]*sim.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ens := sim.NewEnsemble(func() (binding.Model, error) { return BuildModel(cfg) }, DefaultMetrics)
	if log != nil {
		ens.Log = log
	}

	tasks := make([]sim.Task, len(salts))
	for i, salt := range salts {
		liquid := dynamo.State(cfg.Liquid).Clone()
		liquid[0] = salt
		tasks[i] = sim.Task{Point: cfg.Point(), Q0: dynamo.State(cfg.Bound).Clone(), Liquid: liquid}
	}
	return ens.Run(ctx, tasks, sim.Config{
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		Tolerance: cfg.Tolerance,
		UseAD:     cfg.UseAD,
	})
}

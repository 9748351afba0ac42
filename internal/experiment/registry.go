package experiment

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/adsorb/internal/binding"
	"github.com/san-kum/adsorb/internal/metrics"
	"github.com/san-kum/adsorb/internal/nonlin"
	"github.com/san-kum/adsorb/internal/sim"
)

type Registry struct {
	solvers map[string]func(logrus.FieldLogger) nonlin.Solver
}

func NewRegistry() *Registry {
	r := &Registry{
		solvers: make(map[string]func(logrus.FieldLogger) nonlin.Solver),
	}

	r.solvers["newton"] = func(log logrus.FieldLogger) nonlin.Solver {
		s := nonlin.NewNewton()
		s.Log = log
		return s
	}
	// newton-full always takes the full Newton step.
	r.solvers["newton-full"] = func(log logrus.FieldLogger) nonlin.Solver {
		s := nonlin.NewNewton()
		s.MinDamping = 1
		s.Log = log
		return s
	}

	return r
}

func (r *Registry) GetModel(name string) (binding.Model, error) {
	return binding.New(name)
}

func (r *Registry) GetSolver(name string, log logrus.FieldLogger) (nonlin.Solver, error) {
	fn, ok := r.solvers[name]
	if !ok {
		return nil, fmt.Errorf("unknown solver: %s", name)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return fn(log), nil
}

func (r *Registry) ListModels() []string {
	return binding.Names()
}

func (r *Registry) ListSolvers() []string {
	names := make([]string, 0, len(r.solvers))
	for name := range r.solvers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns fresh metrics that apply to m. The salt state is
// excluded from total_bound.
func DefaultMetrics(m binding.Model) []sim.Metric {
	skip := 0
	out := make([]sim.Metric, 0, 3)
	if m.HasSalt() {
		skip = m.Layout().NBound[0]
		out = append(out, metrics.NewCapacityResidual())
	}
	out = append(out,
		metrics.NewTotalBound(skip),
		metrics.NewNewtonIterations(),
	)
	return out
}

package sim_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus/hooks/test"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/adsorb/internal/binding"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/metrics"
	"github.com/san-kum/adsorb/internal/nonlin"
	"github.com/san-kum/adsorb/internal/params"
	"github.com/san-kum/adsorb/internal/sim"
)

const nu = 4.7

func uptakeSource(kinetic bool) params.MapProvider {
	return params.MapProvider{
		"IS_KINETIC": kinetic,
		"SMA_LAMBDA": 1200.0,
		"SMA_KA":     []any{0.0, 10.0},
		"SMA_KD":     []any{0.0, 1.0},
		"SMA_NU":     []any{0.0, nu},
		"SMA_SIGMA":  []any{0.0, 11.83},
		"SMA_REFC0":  50.0,
		"SMA_REFQ":   1200.0,
	}
}

func buildUptake(kinetic bool) binding.Model {
	m, err := binding.Build("STERIC_MASS_ACTION", 2, []int{1, 1}, uptakeSource(kinetic), 0)
	Expect(err).NotTo(HaveOccurred())
	return m
}

type countingMetric struct{ count int }

func (c *countingMetric) Name() string       { return "count" }
func (c *countingMetric) Observe(sim.Sample) { c.count++ }
func (c *countingMetric) Value() float64     { return float64(c.count) }
func (c *countingMetric) Reset()             { c.count = 0 }

type recorder struct{ times []float64 }

func (r *recorder) OnStep(s sim.Sample) { r.times = append(r.times, s.Time) }

// stalled never converges.
type stalled struct{}

func (stalled) WorkspaceSize(int) int { return 0 }
func (stalled) Solve(nonlin.ResidualFunc, nonlin.JacobianFunc, float64, []float64, []float64, *mat.Dense, int) bool {
	return false
}

var _ = Describe("Simulator", func() {
	var (
		liquid dynamo.State
		cfg    sim.Config
	)

	newSim := func(m binding.Model, solver nonlin.Solver) *sim.Simulator {
		logger, _ := test.NewNullLogger()
		s := sim.New(m, solver)
		s.Log = logger
		if n, ok := solver.(*nonlin.Newton); ok {
			n.Log = logger
		}
		return s
	}

	BeforeEach(func() {
		liquid = dynamo.State{50, 1}
		cfg = sim.Config{Dt: 0.1, Duration: 20, Tolerance: 1e-10}
	})

	Context("with kinetic binding", func() {
		It("approaches the binding equilibrium", func() {
			m := buildUptake(true)
			s := newSim(m, nonlin.NewNewton())
			s.AddMetric(metrics.NewTotalBound(1))
			s.AddMetric(metrics.NewCapacityResidual())

			result, err := s.Run(context.Background(), dynamo.Point{}, dynamo.State{0, 0}, liquid, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.States).To(HaveLen(201))
			Expect(result.Times[len(result.Times)-1]).To(BeNumerically("~", 20, 1e-9))

			final := result.Final()
			res := make([]float64, 2)
			Expect(m.Residual(dynamo.Point{}, final, liquid, nil, 0, res)).To(Succeed())
			Expect(floats.Norm(res, 2)).To(BeNumerically("<", 1e-6))
			Expect(final[1]).To(BeNumerically(">", 0))

			Expect(result.Metrics["total_bound"]).To(Equal(final[1]))
			Expect(result.Metrics["capacity_residual"]).To(BeNumerically("<", 1e-9))
		})

		It("keeps the salt balance and loads monotonically", func() {
			s := newSim(buildUptake(true), nonlin.NewNewton())
			result, err := s.Run(context.Background(), dynamo.Point{}, dynamo.State{0, 0}, liquid, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.States[0][0]).To(Equal(1200.0))
			for i, q := range result.States {
				Expect(q[0]+nu*q[1]).To(BeNumerically("~", 1200, 1e-9), "state %d", i)
				if i > 0 {
					Expect(q[1]).To(BeNumerically(">=", result.States[i-1][1]-1e-9), "state %d", i)
				}
			}
		})

		It("gives the same trajectory with AD Jacobians", func() {
			analytic, err := newSim(buildUptake(true), nonlin.NewNewton()).
				Run(context.Background(), dynamo.Point{}, dynamo.State{0, 0}, liquid, cfg)
			Expect(err).NotTo(HaveOccurred())

			cfg.UseAD = true
			withAD, err := newSim(buildUptake(true), nonlin.NewNewton()).
				Run(context.Background(), dynamo.Point{}, dynamo.State{0, 0}, liquid, cfg)
			Expect(err).NotTo(HaveOccurred())

			Expect(withAD.States).To(HaveLen(len(analytic.States)))
			for i := range analytic.States {
				Expect(withAD.States[i][1]).To(BeNumerically("~", analytic.States[i][1], 1e-9))
			}
		})
	})

	Context("with quasi-stationary binding", func() {
		It("starts and stays at equilibrium", func() {
			cfg.Duration = 1
			s := newSim(buildUptake(false), nonlin.NewNewton())
			result, err := s.Run(context.Background(), dynamo.Point{}, dynamo.State{0, 0}, liquid, cfg)
			Expect(err).NotTo(HaveOccurred())

			start := result.States[0]
			Expect(start[1]).To(BeNumerically(">", 0))
			for _, q := range result.States {
				Expect(q[1]).To(BeNumerically("~", start[1], 1e-8))
			}
		})
	})

	It("notifies metrics and observers once per step", func() {
		cfg.Duration = 1
		s := newSim(buildUptake(true), nonlin.NewNewton())
		metric := &countingMetric{}
		obs := &recorder{}
		s.AddMetric(metric)
		s.AddObserver(obs)

		result, err := s.Run(context.Background(), dynamo.Point{Time: 5}, dynamo.State{0, 0}, liquid, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(metric.count).To(Equal(10))
		Expect(result.Metrics).To(HaveKeyWithValue("count", 10.0))
		Expect(obs.times).To(HaveLen(10))
		Expect(obs.times[0]).To(BeNumerically("~", 5.1, 1e-12))
		Expect(result.Iterations).To(BeNumerically(">", 0))
	})

	DescribeTable("rejects invalid configurations",
		func(c sim.Config) {
			s := newSim(buildUptake(true), nil)
			_, err := s.Run(context.Background(), dynamo.Point{}, dynamo.State{0, 0}, liquid, c)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
		},
		Entry("zero dt", sim.Config{Dt: 0, Duration: 1, Tolerance: 1e-10}),
		Entry("negative dt", sim.Config{Dt: -0.1, Duration: 1, Tolerance: 1e-10}),
		Entry("zero duration", sim.Config{Dt: 0.1, Duration: 0, Tolerance: 1e-10}),
		Entry("zero tolerance", sim.Config{Dt: 0.1, Duration: 1}),
	)

	It("rejects mismatched states", func() {
		s := newSim(buildUptake(true), nil)
		_, err := s.Run(context.Background(), dynamo.Point{}, dynamo.State{0, 0, 0}, liquid, cfg)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := newSim(buildUptake(true), nonlin.NewNewton())
		result, err := s.Run(ctx, dynamo.Point{}, dynamo.State{0, 0}, liquid, cfg)
		Expect(err).To(MatchError(context.Canceled))
		Expect(result.States).To(HaveLen(1))
	})

	It("reports the failing step", func() {
		s := newSim(buildUptake(true), stalled{})
		result, err := s.Run(context.Background(), dynamo.Point{}, dynamo.State{0, 0}, liquid, cfg)
		Expect(err).To(MatchError(dynamo.ErrConvergence))

		var simErr *dynamo.SimulationError
		Expect(errors.As(err, &simErr)).To(BeTrue())
		Expect(simErr.Step).To(Equal(1))
		Expect(simErr.Time).To(BeNumerically("~", 0.1, 1e-12))
		Expect(result.States).To(HaveLen(1))
	})
})

var _ = Describe("Ensemble", func() {
	cfg := sim.Config{Dt: 0.1, Duration: 20, Tolerance: 1e-10}

	It("evaluates every point with its own model", func() {
		salts := []float64{50, 100, 200, 400}
		tasks := make([]sim.Task, len(salts))
		for i, c := range salts {
			tasks[i] = sim.Task{Q0: dynamo.State{0, 0}, Liquid: dynamo.State{c, 1}}
		}

		logger, _ := test.NewNullLogger()
		e := sim.NewEnsemble(func() (binding.Model, error) {
			return binding.Build("STERIC_MASS_ACTION", 2, []int{1, 1}, uptakeSource(true), 0)
		}, func(binding.Model) []sim.Metric {
			return []sim.Metric{metrics.NewTotalBound(1)}
		})
		e.Log = logger

		results, err := e.Run(context.Background(), tasks, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(len(salts)))

		for i, r := range results {
			Expect(r.Metrics["total_bound"]).To(Equal(r.Final()[1]))
			if i > 0 {
				Expect(r.Final()[1]).To(BeNumerically("<", results[i-1].Final()[1]), "salt %g", salts[i])
			}
		}
	})

	It("propagates build failures", func() {
		e := sim.NewEnsemble(func() (binding.Model, error) {
			return binding.Build("LANGMUIR", 2, []int{1, 1}, uptakeSource(true), 0)
		}, nil)

		_, err := e.Run(context.Background(), []sim.Task{{Q0: dynamo.State{0, 0}, Liquid: dynamo.State{50, 1}}}, cfg)
		Expect(err).To(MatchError(dynamo.ErrUnknownModel))
	})

	It("returns nothing for no tasks", func() {
		e := sim.NewEnsemble(nil, nil)
		results, err := e.Run(context.Background(), nil, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})
})

package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/adsorb/internal/binding"
	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/nonlin"
)

// Task is one binding point of an ensemble.
type Task struct {
	Point  dynamo.Point
	Q0     dynamo.State
	Liquid dynamo.State
}

// Ensemble runs many binding points in parallel. Every chunk of tasks
// builds its own model and solver.
type Ensemble struct {
	build   func() (binding.Model, error)
	metrics func(binding.Model) []Metric
	// MinChunk is the smallest number of tasks handed to one worker.
	MinChunk int
	Log      logrus.FieldLogger
}

// NewEnsemble returns an ensemble. metrics may be nil; otherwise it is
// called once per task so metric state is never shared.
func NewEnsemble(build func() (binding.Model, error), metrics func(binding.Model) []Metric) *Ensemble {
	return &Ensemble{build: build, metrics: metrics, MinChunk: 1, Log: logrus.StandardLogger()}
}

// Run returns one result per task, in task order. The first failing task
// determines the returned error; results of the other tasks are kept.
func (e *Ensemble) Run(ctx context.Context, tasks []Task, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(tasks))
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}

	pool := NewStatePool()

	dynamo.ParallelFor(len(tasks), e.MinChunk, func(start, end int) {
		model, err := e.build()
		if err != nil {
			for i := start; i < end; i++ {
				errs[i] = err
			}
			return
		}
		newton := nonlin.NewNewton()
		newton.Log = e.Log
		s := New(model, newton)
		s.Log = e.Log
		s.pool = pool

		for i := start; i < end; i++ {
			s.metrics = s.metrics[:0]
			if e.metrics != nil {
				for _, m := range e.metrics(model) {
					s.AddMetric(m)
				}
			}
			t := tasks[i]
			results[i], errs[i] = s.Run(ctx, t.Point, t.Q0, t.Liquid, cfg)
		}
	})

	for i, err := range errs {
		if err != nil {
			return results, fmt.Errorf("task %d: %w", i, err)
		}
	}
	return results, nil
}

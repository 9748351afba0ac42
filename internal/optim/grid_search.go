// Package optim fits registered binding parameters to a target metric by
// exhaustive grid search.
package optim

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/spf13/cast"

	"github.com/san-kum/adsorb/internal/experiment"
	"github.com/san-kum/adsorb/internal/params"
	"github.com/san-kum/adsorb/internal/sim"
)

var paramPattern = regexp.MustCompile(`^([A-Z0-9_]+)(?:\[(\d+)\])?$`)

// ParseParam splits "SMA_KA[1]" into its key and component. A key without
// index is a scalar parameter and returns params.Indep.
func ParseParam(s string) (string, int, error) {
	m := paramPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", 0, fmt.Errorf("invalid parameter: %q", s)
	}
	if m[2] == "" {
		return m[1], params.Indep, nil
	}
	return m[1], cast.ToInt(m[2]), nil
}

// ParseGrid reads "SMA_KA[1]=1,5,10" into a parameter and its values.
func ParseGrid(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid grid %q, want NAME=v1,v2", s)
	}
	if _, _, err := ParseParam(name); err != nil {
		return "", nil, err
	}
	var values []float64
	for _, field := range strings.Split(list, ",") {
		v, err := cast.ToFloat64E(strings.TrimSpace(field))
		if err != nil {
			return "", nil, fmt.Errorf("grid %s: %w", name, err)
		}
		values = append(values, v)
	}
	return strings.TrimSpace(name), values, nil
}

// Objective scores a run; smaller is better.
type Objective func(*sim.Result) float64

// MetricTarget scores the distance of a metric to a target value.
func MetricTarget(metric string, target float64) Objective {
	return func(r *sim.Result) float64 {
		v, ok := r.Metrics[metric]
		if !ok {
			return math.Inf(1)
		}
		return math.Abs(v - target)
	}
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(names []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: names, ranges: ranges}
}

// Search runs every grid point. build returns a set up experiment for the
// point; the parameters are written through the model registry before the
// run. Points whose build or run fails are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	build func() (*experiment.Experiment, error),
	objective Objective,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	var bestParams map[string]float64

	if err := g.searchRecursive(ctx, 0, make(map[string]float64), build, objective, &best, &bestParams); err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("no grid point could be evaluated")
	}

	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build func() (*experiment.Experiment, error),
	objective Objective,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		exp, err := build()
		if err != nil {
			return nil
		}
		for k, v := range current {
			name, comp, err := ParseParam(k)
			if err != nil {
				return err
			}
			if err := exp.SetParameter(name, comp, v); err != nil {
				return err
			}
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil
		}

		val := objective(result)
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64)
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, build, objective, best, bestParams); err != nil {
			return err
		}
	}
	return nil
}

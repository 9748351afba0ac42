package params

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/spf13/cast"
)

// ExternalFunction supplies the driving signal for dependent parameters.
type ExternalFunction interface {
	Evaluate(t, z, rho, r float64, secIdx int) (float64, error)
}

// ConstFunction is a driving signal that never changes.
type ConstFunction float64

func (c ConstFunction) Evaluate(_, _, _, _ float64, _ int) (float64, error) {
	return float64(c), nil
}

// ExprFunction evaluates an arithmetic expression over the variables t, z,
// rho, r and section.
type ExprFunction struct {
	src  string
	expr *govaluate.EvaluableExpression
}

var exprFunctions = map[string]govaluate.ExpressionFunction{
	"exp":  unary("exp", math.Exp),
	"log":  unary("log", math.Log),
	"sqrt": unary("sqrt", math.Sqrt),
	"sin":  unary("sin", math.Sin),
	"cos":  unary("cos", math.Cos),
	"abs":  unary("abs", math.Abs),
	"pow": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("params: got %d arguments for function 'pow', but needs 2", len(args))
		}
		x, err := cast.ToFloat64E(args[0])
		if err != nil {
			return nil, err
		}
		y, err := cast.ToFloat64E(args[1])
		if err != nil {
			return nil, err
		}
		return math.Pow(x, y), nil
	},
	"step": func(args ...interface{}) (interface{}, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("params: got %d arguments for function 'step', but needs 2", len(args))
		}
		x, err := cast.ToFloat64E(args[0])
		if err != nil {
			return nil, err
		}
		at, err := cast.ToFloat64E(args[1])
		if err != nil {
			return nil, err
		}
		if x >= at {
			return 1.0, nil
		}
		return 0.0, nil
	},
}

func unary(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("params: got %d arguments for function '%s', but needs 1", len(args), name)
		}
		x, err := cast.ToFloat64E(args[0])
		if err != nil {
			return nil, err
		}
		return f(x), nil
	}
}

var exprVars = map[string]bool{"t": true, "z": true, "rho": true, "r": true, "section": true}

// NewExprFunction parses src. Unknown variables are rejected up front.
func NewExprFunction(src string) (*ExprFunction, error) {
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(src, exprFunctions)
	if err != nil {
		return nil, fmt.Errorf("params: parse %q: %v", src, err)
	}
	for _, v := range expr.Vars() {
		if !exprVars[v] {
			return nil, fmt.Errorf("params: unknown variable %q in %q", v, src)
		}
	}
	return &ExprFunction{src: src, expr: expr}, nil
}

func (e *ExprFunction) Evaluate(t, z, rho, r float64, secIdx int) (float64, error) {
	out, err := e.expr.Evaluate(map[string]interface{}{
		"t":       t,
		"z":       z,
		"rho":     rho,
		"r":       r,
		"section": float64(secIdx),
	})
	if err != nil {
		return math.NaN(), fmt.Errorf("params: evaluate %q: %v", e.src, err)
	}
	v, err := cast.ToFloat64E(out)
	if err != nil {
		return math.NaN(), fmt.Errorf("params: evaluate %q: %v", e.src, err)
	}
	return v, nil
}

func (e *ExprFunction) String() string { return e.src }

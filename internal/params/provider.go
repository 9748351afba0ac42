// Package params holds the parameter source contract, the parameter registry
// used by sensitivity and estimation tooling, and driving-signal dependent
// parameter values.
package params

import (
	"fmt"

	"github.com/spf13/cast"

	"github.com/san-kum/adsorb/internal/dynamo"
)

// Provider is a source of named parameter values.
type Provider interface {
	Exists(name string) bool
	GetDouble(name string) (float64, error)
	GetDoubleArray(name string) ([]float64, error)
	GetInt(name string) (int, error)
	GetIntArray(name string) ([]int, error)
	GetBool(name string) (bool, error)
	GetBoolArray(name string) ([]bool, error)
	GetString(name string) (string, error)
}

// MapProvider serves parameters from a decoded YAML or TOML map. Values are
// coerced, so "1200", 1200 and 1200.0 are all valid doubles. A scalar read
// as an array yields a one-element array.
type MapProvider map[string]any

var _ Provider = MapProvider(nil)

func (m MapProvider) Exists(name string) bool {
	_, ok := m[name]
	return ok
}

func (m MapProvider) lookup(name string) (any, error) {
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrMissingParameter, name)
	}
	return v, nil
}

func (m MapProvider) GetDouble(name string) (float64, error) {
	v, err := m.lookup(name)
	if err != nil {
		return 0, err
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, dynamo.Invalidf("%s: %v", name, err)
	}
	return f, nil
}

func (m MapProvider) GetDoubleArray(name string) ([]float64, error) {
	v, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	items := elements(v)
	out := make([]float64, len(items))
	for i, it := range items {
		if out[i], err = cast.ToFloat64E(it); err != nil {
			return nil, dynamo.Invalidf("%s[%d]: %v", name, i, err)
		}
	}
	return out, nil
}

func (m MapProvider) GetInt(name string) (int, error) {
	v, err := m.lookup(name)
	if err != nil {
		return 0, err
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, dynamo.Invalidf("%s: %v", name, err)
	}
	return n, nil
}

func (m MapProvider) GetIntArray(name string) ([]int, error) {
	v, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	items := elements(v)
	out := make([]int, len(items))
	for i, it := range items {
		if out[i], err = cast.ToIntE(it); err != nil {
			return nil, dynamo.Invalidf("%s[%d]: %v", name, i, err)
		}
	}
	return out, nil
}

func (m MapProvider) GetBool(name string) (bool, error) {
	v, err := m.lookup(name)
	if err != nil {
		return false, err
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, dynamo.Invalidf("%s: %v", name, err)
	}
	return b, nil
}

func (m MapProvider) GetBoolArray(name string) ([]bool, error) {
	v, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	items := elements(v)
	out := make([]bool, len(items))
	for i, it := range items {
		if out[i], err = cast.ToBoolE(it); err != nil {
			return nil, dynamo.Invalidf("%s[%d]: %v", name, i, err)
		}
	}
	return out, nil
}

func (m MapProvider) GetString(name string) (string, error) {
	v, err := m.lookup(name)
	if err != nil {
		return "", err
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return "", dynamo.Invalidf("%s: %v", name, err)
	}
	return s, nil
}

// elements flattens the slice shapes produced by the YAML and TOML decoders.
func elements(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []float64:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []int:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []int64:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []bool:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	case []string:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out
	default:
		return []any{v}
	}
}

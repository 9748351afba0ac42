package binding

import (
	"fmt"
	"sort"

	"github.com/san-kum/adsorb/internal/dynamo"
	"github.com/san-kum/adsorb/internal/params"
)

var factories = map[string]func() Model{
	"STERIC_MASS_ACTION":           func() Model { return NewStericMassAction(false) },
	"EXT_STERIC_MASS_ACTION":       func() Model { return NewStericMassAction(true) },
	"GENERALIZED_ION_EXCHANGE":     func() Model { return NewGeneralizedIonExchange(false) },
	"EXT_GENERALIZED_ION_EXCHANGE": func() Model { return NewGeneralizedIonExchange(true) },
}

// New returns an unconfigured model by identifier.
func New(name string) (Model, error) {
	fn, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dynamo.ErrUnknownModel, name)
	}
	return fn(), nil
}

// Names lists the known model identifiers in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates and fully configures a model. It returns a nil Model on any
// error.
func Build(name string, nComp int, nBound []int, src params.Provider, unit int) (Model, error) {
	m, err := New(name)
	if err != nil {
		return nil, err
	}
	if err := m.ConfigureDiscretization(nComp, nBound); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if err := m.Configure(src, unit); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

package params

import (
	"github.com/san-kum/adsorb/internal/ad"
	"github.com/san-kum/adsorb/internal/dynamo"
)

// termSuffixes name the base value and the linear, quadratic and cubic
// coefficients of a driving-signal dependent parameter.
var termSuffixes = []string{"", "_T", "_TT", "_TTT"}

// Param is one named parameter, either a scalar or one value per component.
//
// A plain parameter stores one term and its current value aliases that term,
// so writes through a Registry are seen without an Update. A dependent
// parameter stores four terms and its current value is
// base + T*f + TT*f^2 + TTT*f^3, where f is the driving signal.
type Param struct {
	name   string
	scalar bool
	fn     int
	terms  [][]ad.Active
	cur    []ad.Active
}

func (p *Param) Name() string { return p.name }

// Len returns the number of stored values (1 for scalars).
func (p *Param) Len() int { return len(p.cur) }

// Value returns the current value of a scalar parameter.
func (p *Param) Value() ad.Active { return p.cur[0] }

// At returns the current value for component i.
func (p *Param) At(i int) ad.Active { return p.cur[i] }

// Floats returns the plain current values.
func (p *Param) Floats() []float64 {
	out := make([]float64, len(p.cur))
	ad.Values(out, p.cur)
	return out
}

// Set is the parameter collection of one binding model.
type Set struct {
	prefix   string
	external bool
	params   []*Param
	extFun   []int

	refC0 float64
	refQ  float64
}

// NewSet creates an empty collection. prefix is the law prefix such as
// "SMA_"; with external set every key gains the "EXT_" prefix and values
// follow the driving signal.
func NewSet(prefix string, external bool) *Set {
	return &Set{prefix: prefix, external: external, refC0: 1, refQ: 1}
}

// Key returns the source key for a parameter name.
func (s *Set) Key(name string) string {
	if s.external {
		return "EXT_" + s.prefix + name
	}
	return s.prefix + name
}

// Scalar declares a model-wide parameter.
func (s *Set) Scalar(name string) *Param {
	p := &Param{name: name, scalar: true, cur: []ad.Active{{}}}
	s.params = append(s.params, p)
	return p
}

// Vector declares a per-component parameter.
func (s *Set) Vector(name string) *Param {
	p := &Param{name: name}
	s.params = append(s.params, p)
	return p
}

// Params returns the declared parameters in declaration order.
func (s *Set) Params() []*Param { return s.params }

func (s *Set) DependsOnTime() bool { return s.external }

// RefConcentrations returns the liquid and solid phase reference
// concentrations. Both default to 1.
func (s *Set) RefConcentrations() (refC0, refQ float64) { return s.refC0, s.refQ }

func (s *Set) nTerms() int {
	if s.external {
		return len(termSuffixes)
	}
	return 1
}

// Configure reads every declared parameter from src. Component arrays need
// at least nComp entries. Nothing is applied unless every read succeeds.
func (s *Set) Configure(src Provider, nComp int) error {
	staged := make([][][]ad.Active, len(s.params))
	for k, p := range s.params {
		terms := make([][]ad.Active, s.nTerms())
		for j := range terms {
			key := s.Key(p.name) + termSuffixes[j]
			if p.scalar {
				v, err := src.GetDouble(key)
				if err != nil {
					return err
				}
				terms[j] = []ad.Active{ad.Const(v)}
				continue
			}
			vals, err := src.GetDoubleArray(key)
			if err != nil {
				return err
			}
			if len(vals) < nComp {
				return dynamo.Invalidf("%s requires at least %d elements, got %d", key, nComp, len(vals))
			}
			terms[j] = ad.ToActive(vals[:nComp])
		}
		staged[k] = terms
	}

	refC0, refQ := 1.0, 1.0
	for _, ref := range []struct {
		key string
		dst *float64
	}{{s.Key("REFC0"), &refC0}, {s.Key("REFQ"), &refQ}} {
		if !src.Exists(ref.key) {
			continue
		}
		v, err := src.GetDouble(ref.key)
		if err != nil {
			return err
		}
		if v <= 0 {
			return dynamo.Invalidf("%s must be positive, got %g", ref.key, v)
		}
		*ref.dst = v
	}

	extFun := []int{0}
	if s.external && src.Exists("EXTFUN") {
		idx, err := src.GetIntArray("EXTFUN")
		if err != nil {
			return err
		}
		if len(idx) != 1 && len(idx) < len(s.params) {
			return dynamo.Invalidf("EXTFUN requires 1 or %d elements, got %d", len(s.params), len(idx))
		}
		for i, v := range idx {
			if v < 0 {
				return dynamo.Invalidf("EXTFUN[%d] must be non-negative, got %d", i, v)
			}
		}
		extFun = idx
	}

	for k, p := range s.params {
		p.terms = staged[k]
		p.fn = extFun[0]
		if len(extFun) > 1 {
			p.fn = extFun[k]
		}
		if s.external {
			p.cur = make([]ad.Active, len(p.terms[0]))
			copy(p.cur, p.terms[0])
		} else {
			p.cur = p.terms[0]
		}
	}
	s.refC0, s.refQ = refC0, refQ
	s.extFun = extFun
	return nil
}

// Register exposes every stored term under its source key. Component
// parameters are registered for the first bound phase of every binding
// component.
func (s *Set) Register(reg *Registry, unit int, nBound []int) {
	for _, p := range s.params {
		for j, term := range p.terms {
			name := s.Key(p.name) + termSuffixes[j]
			if p.scalar {
				reg.Register(NewID(name, unit, Indep, Indep, Indep, Indep), name, &term[0])
				continue
			}
			for i := range term {
				if i < len(nBound) && nBound[i] == 0 {
					continue
				}
				reg.Register(NewID(name, unit, i, 0, Indep, Indep), name, &term[i])
			}
		}
	}
}

// ExternalIndices returns the external function index used by each
// parameter in declaration order.
func (s *Set) ExternalIndices() []int {
	out := make([]int, len(s.params))
	for k, p := range s.params {
		out[k] = p.fn
	}
	return out
}

// Update recomputes the current values of dependent parameters from the
// driving signal at the given point. It is a no-op for plain parameters.
func (s *Set) Update(t float64, secIdx int, pos dynamo.Position, ext []ExternalFunction) error {
	if !s.external {
		return nil
	}
	for _, p := range s.params {
		if p.fn >= len(ext) || ext[p.fn] == nil {
			return dynamo.Invalidf("%s uses external function %d, but only %d are set", s.Key(p.name), p.fn, len(ext))
		}
		f, err := ext[p.fn].Evaluate(t, pos.Axial, pos.Radial, pos.Particle, secIdx)
		if err != nil {
			return err
		}
		f2 := f * f
		f3 := f2 * f
		for i := range p.cur {
			p.cur[i] = p.terms[0][i].
				Add(p.terms[1][i].Scale(f)).
				Add(p.terms[2][i].Scale(f2)).
				Add(p.terms[3][i].Scale(f3))
		}
	}
	return nil
}

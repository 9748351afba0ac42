package params

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/san-kum/adsorb/internal/ad"
)

// Indep marks an identifier field the parameter does not depend on.
const Indep = -1

// ParameterID addresses one parameter entry independently of the model that
// owns it.
type ParameterID struct {
	Name       uint64
	Unit       int
	Component  int
	BoundPhase int
	Reaction   int
	Section    int
}

// HashName returns the FNV-1a hash used as the Name field of a ParameterID.
func HashName(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// NewID builds an identifier for name. Pass Indep for unused fields.
func NewID(name string, unit, comp, bound, reaction, section int) ParameterID {
	return ParameterID{
		Name:       HashName(name),
		Unit:       unit,
		Component:  comp,
		BoundPhase: bound,
		Reaction:   reaction,
		Section:    section,
	}
}

type entry struct {
	name string
	ref  *ad.Active
}

// Registry maps parameter identifiers to the live storage of their values.
// Writes through the registry are visible to the owning model on its next
// evaluation.
type Registry struct {
	mu      sync.RWMutex
	entries map[ParameterID]entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[ParameterID]entry)}
}

// Register adds a parameter. Registering the same identifier twice replaces
// the earlier entry.
func (r *Registry) Register(id ParameterID, name string, ref *ad.Active) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = entry{name: name, ref: ref}
}

func (r *Registry) Has(id ParameterID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Get returns the current value of a parameter.
func (r *Registry) Get(id ParameterID) (ad.Active, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return ad.Active{}, fmt.Errorf("unknown parameter: %+v", id)
	}
	return *e.ref, nil
}

// Set overwrites the value of a parameter and keeps its derivative seed.
func (r *Registry) Set(id ParameterID, v float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("unknown parameter: %+v", id)
	}
	*e.ref = e.ref.WithValue(v)
	return nil
}

// Seed marks a parameter as the sensitivity direction dir out of nDir.
func (r *Registry) Seed(id ParameterID, nDir, dir int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("unknown parameter: %+v", id)
	}
	*e.ref = ad.Var(e.ref.Value(), nDir, dir)
	return nil
}

// ClearSeeds drops the derivative seeds of every parameter.
func (r *Registry) ClearSeeds() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		*e.ref = ad.Const(e.ref.Value())
	}
}

// Name returns the registered name of a parameter.
func (r *Registry) Name(id ParameterID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[id].name
}

// IDs returns all registered identifiers ordered by name, then component
// and bound phase.
func (r *Registry) IDs() []ParameterID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]ParameterID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if na, nb := r.entries[a].name, r.entries[b].name; na != nb {
			return na < nb
		}
		if a.Component != b.Component {
			return a.Component < b.Component
		}
		return a.BoundPhase < b.BoundPhase
	})
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

package sim

import (
	"sync"

	"github.com/san-kum/adsorb/internal/dynamo"
)

// StatePool recycles scratch states by length. One pool is shared by all
// workers of an ensemble, whose models may differ in size.
type StatePool struct {
	mu    sync.Mutex
	pools map[int]*sync.Pool
}

func NewStatePool() *StatePool {
	return &StatePool{pools: make(map[int]*sync.Pool)}
}

func (p *StatePool) of(n int) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	sp, ok := p.pools[n]
	if !ok {
		sp = &sync.Pool{New: func() any { return make(dynamo.State, n) }}
		p.pools[n] = sp
	}
	return sp
}

// Get returns a zeroed state of length n.
func (p *StatePool) Get(n int) dynamo.State {
	return p.of(n).Get().(dynamo.State)
}

func (p *StatePool) Put(s dynamo.State) {
	if len(s) == 0 {
		return
	}
	clear(s)
	p.of(len(s)).Put(s)
}

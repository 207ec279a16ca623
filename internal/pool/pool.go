// Package pool implements a fixed-slot object pool with transaction-scoped
// deferred destruction, grounded on spec.md §5 ("Object pool allocation/free
// is serialized by the pool") and Design Notes §9 ("model as a two-phase
// free"). Allocation bookkeeping is backed by a libp2p/go-buffer-pool byte
// arena so that repeated MEP create/destroy cycles do not pressure the GC
// with one more []byte per call.
package pool

import (
	pbp "github.com/libp2p/go-buffer-pool"
	"github.com/sasha-s/go-deadlock"
)

// slotSize is the bookkeeping arena size handed out per pool slot. It is
// not interpreted; it exists so the arena is actually exercised rather than
// allocated and immediately discarded.
const slotSize = 64

// Disposable is anything the pool can own and later tear down. Deallocate
// marks an object for removal; Teardown performs the actual destruction
// and is only ever invoked by a Transaction at commit time.
type Disposable interface {
	Teardown()
}

// Ref is a non-owning, generation-checked handle into a Pool. It replaces
// a strong bidirectional pointer (Design Notes §9: "do not model as a
// strong bidirectional pointer — that cycle would prevent deallocation").
type Ref struct {
	pool       *Pool
	index      uint32
	generation uint32
}

// IsNil reports whether r refers to no object.
func (r Ref) IsNil() bool {
	return r.pool == nil
}

// Resolve returns the live object behind r, or ok=false if the slot has
// been freed and possibly reused by a newer object (generation mismatch).
func (r Ref) Resolve() (any, bool) {
	if r.pool == nil {
		return nil, false
	}
	return r.pool.resolve(r.index, r.generation)
}

type slot struct {
	occupied   bool
	generation uint32
	object     Disposable
	arena      []byte
}

// Pool allocates Disposables into fixed slots and defers their destruction
// until a Transaction commits.
type Pool struct {
	mu    deadlock.Mutex
	slots []slot
	free  []uint32
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// Allocate reserves a slot for obj and returns a Ref to it.
func (p *Pool) Allocate(obj Disposable) Ref {
	p.mu.Lock()
	defer p.mu.Unlock()

	var idx uint32
	if n := len(p.free); n > 0 {
		idx = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		idx = uint32(len(p.slots))
		p.slots = append(p.slots, slot{})
	}

	s := &p.slots[idx]
	s.occupied = true
	s.object = obj
	s.arena = pbp.Get(slotSize)

	return Ref{pool: p, index: idx, generation: s.generation}
}

// free releases idx back to the pool, advancing its generation so that any
// outstanding Ref to the old occupant resolves to (nil, false) forever
// after. Called only by Transaction.Commit, never synchronously from
// Deallocate.
func (p *Pool) free(idx uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[idx]
	if !s.occupied {
		return
	}
	pbp.Put(s.arena)
	s.occupied = false
	s.object = nil
	s.arena = nil
	s.generation++
	p.free = append(p.free, idx)
}

func (p *Pool) resolve(idx, generation uint32) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx >= uint32(len(p.slots)) {
		return nil, false
	}
	s := &p.slots[idx]
	if !s.occupied || s.generation != generation {
		return nil, false
	}
	return s.object, true
}

// InUse returns the number of currently occupied slots, for metrics.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots) - len(p.free)
}

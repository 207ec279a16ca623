// Package psmhost models the protocol state machine that owns a Media
// Endpoint, just enough of it to drive the endpoint lifecycle correctly:
// a PSM identity, and the current Transaction any Deallocate must enqueue
// into. A real PSM (call processing, registration, ...) is out of scope
// here; ProtocolSM is the seam internal/mep's owner implements.
package psmhost

import "github.com/arcology-network/mep/internal/pool"

// ProtocolSM is the minimal surface a hosting protocol state machine
// exposes to the Media Endpoint it owns.
type ProtocolSM interface {
	// CurrentTransaction returns the Transaction presently running on this
	// PSM's context, into which any Deallocate this turn must be enqueued.
	CurrentTransaction() *pool.Transaction
	// Pool returns the object pool this PSM's endpoints are allocated
	// from.
	Pool() *pool.Pool
}

// Host is a straightforward ProtocolSM: one pool, and a transaction
// rebuilt at the start of each turn by EndOfTransaction.
type Host struct {
	pool *pool.Pool
	tx   *pool.Transaction
}

// NewHost returns a Host with a fresh pool and an open transaction.
func NewHost() *Host {
	p := pool.New()
	return &Host{pool: p, tx: pool.NewTransaction(p)}
}

func (h *Host) CurrentTransaction() *pool.Transaction { return h.tx }

func (h *Host) Pool() *pool.Pool { return h.pool }

// EndOfTransaction commits the current transaction's disposal list and
// opens a fresh one for the next turn, mirroring the original source's
// per-transaction destructor sweep.
func (h *Host) EndOfTransaction() {
	h.tx.Commit()
	h.tx = pool.NewTransaction(h.pool)
}

package pool

// Transaction is the unit of work during which a session context runs
// without yielding (spec.md §5 Glossary). Deallocate on a pooled object
// enqueues it here instead of tearing it down synchronously; Commit drains
// the disposal list, invoking Teardown on each entry before freeing its
// slot. This realizes "the destructor runs only after the host
// transaction completes" (spec.md §3, invariant #5).
type Transaction struct {
	pool     *Pool
	disposal []Ref
}

// NewTransaction returns a Transaction bound to pool's disposal bookkeeping.
func NewTransaction(p *Pool) *Transaction {
	return &Transaction{pool: p}
}

// Dispose enqueues ref for teardown at Commit time. Calling it more than
// once for the same ref is safe: Commit resolves each ref at drain time and
// silently skips refs that no longer resolve (already disposed).
func (t *Transaction) Dispose(ref Ref) {
	t.disposal = append(t.disposal, ref)
}

// Commit drains the disposal list in FIFO order, calling Teardown on every
// object still resolvable, then freeing its pool slot. It is idempotent:
// calling Commit again on a drained Transaction is a no-op.
func (t *Transaction) Commit() {
	pending := t.disposal
	t.disposal = nil

	for _, ref := range pending {
		obj, ok := ref.Resolve()
		if !ok {
			continue
		}
		if d, ok := obj.(Disposable); ok {
			d.Teardown()
		}
		t.pool.free(ref.index)
	}
}

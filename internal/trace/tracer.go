// Package trace implements the process-wide tracing sink that MEP control
// operations report into (spec.md §6, §9). The sink is gated on two
// independent flags — "is any tracing active right now" and "is this
// specific tool enabled" — so that a record is never built, let alone
// appended, when nothing will read it.
package trace

import (
	"sync"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/sasha-s/go-deadlock"
)

// DefaultCapacity bounds how many records the ring buffer retains before it
// starts evicting the oldest entry, per spec.md §5 ("tracers take a short
// internal lock only while appending a record").
const DefaultCapacity = 4096

// Tracer is the process-wide tracing singleton. It is safe for concurrent
// use; deadlock.Mutex (a teacher dependency) replaces sync.Mutex purely to
// surface lock-order regressions in tests, not because contention is
// expected here in practice.
type Tracer struct {
	mu       deadlock.Mutex
	enabled  map[ToolID]bool
	active   bool
	ring     *queue.RingBuffer
	capacity uint64
}

var (
	instanceOnce sync.Once
	instance     *Tracer
)

// Instance returns the process-wide Tracer singleton, constructing it with
// DefaultCapacity on first use.
func Instance() *Tracer {
	instanceOnce.Do(func() {
		instance = New(DefaultCapacity)
	})
	return instance
}

// New returns a standalone Tracer with the given ring-buffer capacity. Tests
// that need an isolated tracer (rather than the process singleton) should
// use this instead of Instance.
func New(capacity uint64) *Tracer {
	return &Tracer{
		enabled:  make(map[ToolID]bool),
		ring:     queue.NewRingBuffer(capacity),
		capacity: capacity,
	}
}

// SetActive toggles whether the current transaction wants any tracing at
// all, mirroring Context::RunningContext()->TraceOn() in the original
// source.
func (t *Tracer) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = active
}

// Active reports the current transaction-level tracing flag.
func (t *Tracer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// EnableTool turns a specific tool's recording on or off, mirroring
// Tracer::ToolIsOn / the tool-enable bitmap in the original source.
func (t *Tracer) EnableTool(id ToolID, on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled[id] = on
}

// ToolIsOn reports whether id is currently enabled.
func (t *Tracer) ToolIsOn(id ToolID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled[id]
}

// ShouldTrace is the single gate every MEP operation checks before building
// a Record: both "is tracing active" and "is this tool on" must hold.
func (t *Tracer) ShouldTrace(id ToolID) bool {
	return t.Active() && t.ToolIsOn(id)
}

// Append adds rec to the ring buffer, evicting the oldest record first if
// the buffer is at capacity. Callers are expected to have already checked
// ShouldTrace; Append itself does not re-check the gate.
func (t *Tracer) Append(rec Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// The ring buffer rounds its own size up to a power of two, so the
	// eviction bound is the capacity passed to New, not ring.Cap().
	for t.ring.Len() >= t.capacity {
		if _, err := t.ring.Get(); err != nil {
			break
		}
	}
	_ = t.ring.Put(rec)
}

// Records returns a snapshot of everything currently buffered, oldest
// first, without draining the ring. It is intended for the debug server's
// trace-stream endpoint and for tests.
func (t *Tracer) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.ring.Len()
	out := make([]Record, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := t.ring.Get()
		if err != nil {
			break
		}
		rec, _ := v.(Record)
		out = append(out, rec)
		_ = t.ring.Put(v)
	}
	return out
}

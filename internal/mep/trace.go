package mep

import (
	"fmt"

	"github.com/arcology-network/mep/internal/trace"
)

// ChannelTrace records one channel operation (CreateChannel, a
// ModifyChannel* form, Disable/EnableChannel, DestroyChannel), grounded on
// the original source's ChnlTrace (H248Endpt.cpp).
type ChannelTrace struct {
	Psm    PsmID
	CtxID  uint32
	TermID uint32
	Port   uint16
	Tx     bool
	Result Result
}

func (t ChannelTrace) Owner() trace.ToolID { return trace.ContextTracer }
func (t ChannelTrace) EventString() string { return " chnl" }
func (t ChannelTrace) Display() string {
	return fmt.Sprintf("psm=%d ctx=%d term=%d port=%d tx=%v res=%s",
		t.Psm, t.CtxID, t.TermID, t.Port, t.Tx, t.Result)
}

// ConnectionTrace records one connection operation (CreateConnection,
// ModifyConnection, DestroyConnection), grounded on the original source's
// ConnTrace.
type ConnectionTrace struct {
	LocalPsm  PsmID
	RemotePsm PsmID
	Tx        bool
	Rx        bool
	Result    Result
}

func (t ConnectionTrace) Owner() trace.ToolID { return trace.ContextTracer }
func (t ConnectionTrace) EventString() string { return " conn" }
func (t ConnectionTrace) Display() string {
	return fmt.Sprintf("psm=%d tx=%v rx=%v rempsm=%d res=%s",
		t.LocalPsm, t.Tx, t.Rx, t.RemotePsm, t.Result)
}

// traceChannel appends a ChannelTrace if the tracer is active and the
// ContextTracer tool is enabled, per Design Notes §9 ("tracing gating").
func (b *Base) traceChannel(res Result) Result {
	if b.tracer != nil && b.tracer.ShouldTrace(trace.ContextTracer) {
		b.tracer.Append(ChannelTrace{
			Psm:    b.Psm(),
			CtxID:  b.localChannel.Channel.ContextID,
			TermID: b.localChannel.Channel.TerminationID,
			Port:   b.localChannel.Channel.Endpoint.Port,
			Tx:     b.localChannel.Tx,
			Result: res,
		})
	}
	b.metrics.ModifyChannelResults.With("result", res.String()).Add(1)
	return res
}

// traceConnection appends a ConnectionTrace under the same gate as
// traceChannel.
func (b *Base) traceConnection(slot SlotID, res Result) Result {
	if b.tracer != nil && b.tracer.ShouldTrace(trace.ContextTracer) {
		rec := ConnectionTrace{LocalPsm: b.Psm(), Result: res}
		if slot >= 0 && int(slot) < len(b.slots) {
			if s := b.slots[slot]; !s.free() {
				rec.Tx = s.TxEnabled
				rec.Rx = s.RxEnabled
				if peer, ok := s.resolvePeer(); ok {
					rec.RemotePsm = peer.Psm()
				}
			}
		}
		b.tracer.Append(rec)
	}
	b.metrics.ModifyConnectionResults.With("result", res.String()).Add(1)
	return res
}

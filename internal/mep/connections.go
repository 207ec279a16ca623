package mep

import (
	"context"

	"github.com/arcology-network/mep/internal/pool"
)

// freeSlot returns the lowest-indexed unoccupied slot, or NilSlotID if the
// table is full (spec.md §3 invariant: "capacity cap" of MaxSlotID+1
// slots).
func (b *Base) freeSlot() SlotID {
	for i := range b.slots {
		if b.slots[i].free() {
			return SlotID(i)
		}
	}
	return NilSlotID
}

// CreateConnection establishes a symmetric slot-table entry with peer: it
// reserves a local slot, then asks peer to reserve a matching slot via
// InsertConnection. Neither side wires the gateway receive path yet; that
// happens per-slot through ModifyConnection.
func (b *Base) CreateConnection(ctx context.Context, peerRef pool.Ref) (SlotID, Result) {
	if b.state != Assigned {
		return NilSlotID, b.traceConnection(NilSlotID, Error)
	}
	localSlot := b.freeSlot()
	if localSlot == NilSlotID {
		b.metrics.CapacityExhausted.Add(1)
		return NilSlotID, b.traceConnection(NilSlotID, NoResource)
	}
	peer, ok := resolvePeerRef(peerRef)
	if !ok {
		return NilSlotID, b.traceConnection(localSlot, Error)
	}
	peerSlot := peer.InsertConnection(b.self, localSlot)
	if peerSlot == NilSlotID {
		return NilSlotID, b.traceConnection(localSlot, NoResource)
	}
	b.slots[localSlot] = ConnectionSlot{Peer: peerRef, PeerSlot: peerSlot}
	b.metrics.SlotsInUse.Add(1)
	return localSlot, b.traceConnection(localSlot, Ok)
}

// InsertConnection implements Peer: it is the callee side of
// CreateConnection, reserving a local slot for remote without any further
// call back out.
func (b *Base) InsertConnection(remote pool.Ref, peerSlot SlotID) SlotID {
	localSlot := b.freeSlot()
	if localSlot == NilSlotID {
		b.metrics.CapacityExhausted.Add(1)
		return NilSlotID
	}
	b.slots[localSlot] = ConnectionSlot{Peer: remote, PeerSlot: peerSlot}
	b.metrics.SlotsInUse.Add(1)
	return localSlot
}

// RemoteConnectionId reports which (psm, slot) a local slot is connected
// to, for display and debugging only.
func (b *Base) RemoteConnectionId(slot SlotID) (PsmID, SlotID) {
	if slot < 0 || int(slot) >= len(b.slots) {
		return NilPsmID, NilSlotID
	}
	s := b.slots[slot]
	if s.free() {
		return NilPsmID, NilSlotID
	}
	peer, ok := s.resolvePeer()
	if !ok {
		return NilPsmID, s.PeerSlot
	}
	return peer.Psm(), s.PeerSlot
}

// ModifyConnection is the central connection-attribute algorithm
// (spec.md §4.2): it enables or disables transmit and receive on slot.
// Enabling receive wires the gateway (hooks.MakeConnection) using the
// peer's attributes fetched fresh via GetChannelAttributes; disabling
// receive tears that wiring down (hooks.FreeConnection). The single-
// receiver invariant is enforced by refusing (Denied) any attempt to
// enable receive on a second slot while one is already active.
func (b *Base) ModifyConnection(ctx context.Context, slot SlotID, tx, rx bool) Result {
	if slot < 0 || int(slot) >= len(b.slots) {
		b.logger.Log("msg", "software error: slot out of range", "op", "ModifyConnection", "psm", b.psm, "slot", slot)
		return b.traceConnection(slot, Error)
	}
	s := &b.slots[slot]
	if s.free() {
		return b.traceConnection(slot, Error)
	}
	if rx && !s.RxEnabled && b.rxSlot != NilSlotID && b.rxSlot != slot {
		return b.traceConnection(slot, Denied)
	}

	switch {
	case rx && !s.RxEnabled:
		peer, ok := s.resolvePeer()
		if !ok {
			return b.traceConnection(slot, Error)
		}
		remote := peer.GetChannelAttributes(s.PeerSlot)
		if res := b.hooks.MakeConnection(ctx, b.localChannel.Channel, remote); res != Ok {
			return b.traceConnection(slot, res)
		}
		s.RemoteAttrs = remote
		b.rxSlot = slot
	case !rx && s.RxEnabled:
		if res := b.hooks.FreeConnection(ctx, b.localChannel.Channel); res != Ok {
			return b.traceConnection(slot, res)
		}
		b.rxSlot = NilSlotID
	}
	s.RxEnabled = rx
	s.TxEnabled = tx

	res := Ok
	if peer, ok := s.resolvePeer(); ok {
		res = peer.UpdateConnection(s.PeerSlot, b.GetChannelAttributes(slot))
	}
	return b.traceConnection(slot, res)
}

// GetChannelAttributes implements Peer: it reports what this MEP is
// willing to publish for slot, suppressed to NilChannelAttributes when the
// channel is disabled, the slot isn't transmit-enabled, or this MEP isn't
// transmitting at all (disabled-propagation, Design Notes §9).
func (b *Base) GetChannelAttributes(slot SlotID) ChannelAttributes {
	if slot < 0 || int(slot) >= len(b.slots) {
		return NilChannelAttributes
	}
	s := b.slots[slot]
	if s.free() {
		return NilChannelAttributes
	}
	if b.disabled || !s.TxEnabled || !b.localChannel.Tx {
		return NilChannelAttributes
	}
	return b.localChannel
}

// UpdateConnection implements Peer: the peer calls this to notify us that
// its published attributes for our slot changed. If localSlot is the active
// receive slot, the gateway receive path is rewired to attrs through
// hooks.MakeConnection and its Result returned; any other slot returns Ok.
// It does not refresh ConnectionSlot.RemoteAttrs — that cache is only
// refreshed when this side fetches the peer's attributes itself
// (ModifyConnection's rx-enable branch, or updateConnections).
func (b *Base) UpdateConnection(localSlot SlotID, attrs ChannelAttributes) Result {
	if localSlot < 0 || int(localSlot) >= len(b.slots) {
		b.logger.Log("msg", "software error: slot out of range", "op", "UpdateConnection", "psm", b.psm, "slot", localSlot)
		return Error
	}
	if b.slots[localSlot].free() {
		return Error
	}
	if localSlot == b.rxSlot {
		return b.hooks.MakeConnection(context.Background(), b.localChannel.Channel, attrs)
	}
	return Ok
}

// DeleteConnection implements Peer: the peer is unilaterally removing its
// side of localSlot (it was destroyed, or is destroying its own
// connection). No call back out to the peer is made.
func (b *Base) DeleteConnection(localSlot SlotID) {
	if localSlot < 0 || int(localSlot) >= len(b.slots) {
		b.logger.Log("msg", "software error: slot out of range", "op", "DeleteConnection", "psm", b.psm, "slot", localSlot)
		return
	}
	s := &b.slots[localSlot]
	if s.free() {
		return
	}
	if s.RxEnabled && b.rxSlot == localSlot {
		b.hooks.FreeConnection(context.Background(), b.localChannel.Channel)
		b.rxSlot = NilSlotID
	}
	*s = ConnectionSlot{PeerSlot: NilSlotID}
	b.metrics.SlotsInUse.Add(-1)
}

// DestroyConnection tears down one local connection at this MEP's own
// request, notifying the peer via its DeleteConnection.
func (b *Base) DestroyConnection(ctx context.Context, slot SlotID) Result {
	if slot < 0 || int(slot) >= len(b.slots) {
		b.logger.Log("msg", "software error: slot out of range", "op", "DestroyConnection", "psm", b.psm, "slot", slot)
		return b.traceConnection(slot, Error)
	}
	s := &b.slots[slot]
	if s.free() {
		return b.traceConnection(slot, Ok)
	}
	if s.RxEnabled && b.rxSlot == slot {
		if res := b.hooks.FreeConnection(ctx, b.localChannel.Channel); res != Ok {
			return b.traceConnection(slot, res)
		}
		b.rxSlot = NilSlotID
	}
	if peer, ok := s.resolvePeer(); ok {
		peer.DeleteConnection(s.PeerSlot)
	}
	*s = ConnectionSlot{PeerSlot: NilSlotID}
	b.metrics.SlotsInUse.Add(-1)
	return b.traceConnection(slot, Ok)
}

// DestroyConnections tears down every connection on this MEP, releasing
// the gateway receive path first if one is active. Used by DestroyChannel.
func (b *Base) DestroyConnections(ctx context.Context) Result {
	if b.rxSlot != NilSlotID {
		b.hooks.FreeConnection(ctx, b.localChannel.Channel)
		b.rxSlot = NilSlotID
	}
	return b.FreeConnections(ctx)
}

// FreeConnections clears every occupied slot's bookkeeping and notifies
// each peer via DeleteConnection, without touching the gateway. It assumes
// any gateway-side receive wiring has already been released by the
// caller (DestroyConnections does this before calling it).
func (b *Base) FreeConnections(ctx context.Context) Result {
	for i := range b.slots {
		s := &b.slots[i]
		if s.free() {
			continue
		}
		if peer, ok := s.resolvePeer(); ok {
			peer.DeleteConnection(s.PeerSlot)
		}
		*s = ConnectionSlot{PeerSlot: NilSlotID}
		b.metrics.SlotsInUse.Add(-1)
	}
	return Ok
}

// AccessConnection is a read-only accessor for introspection (the debug
// server and tests); ok is false if slot is out of range or unoccupied.
func (b *Base) AccessConnection(slot SlotID) (ConnectionSlot, bool) {
	if slot < 0 || int(slot) >= len(b.slots) {
		return ConnectionSlot{}, false
	}
	s := b.slots[slot]
	return s, !s.free()
}

// updateConnections is the actual "update" behind ModifyChannel*,
// Disable/EnableChannel: it first reestablishes this MEP's own gateway
// receive wiring for the active rx slot (hooks.MakeConnection, using the
// peer's attributes fetched fresh) since the local channel identity may
// have just changed underneath it, then republishes this MEP's current
// attributes to every connected peer so they observe the change too. It
// returns the worst Result observed across both steps, where severity
// increases with the Result ordinal (Ok < NoResource < Denied < Error).
func (b *Base) updateConnections(ctx context.Context) Result {
	worst := Ok
	if b.rxSlot != NilSlotID {
		s := &b.slots[b.rxSlot]
		if peer, ok := s.resolvePeer(); ok {
			remote := peer.GetChannelAttributes(s.PeerSlot)
			if res := b.hooks.MakeConnection(ctx, b.localChannel.Channel, remote); res != Ok {
				worst = res
			} else {
				s.RemoteAttrs = remote
			}
		}
	}
	for i := range b.slots {
		s := &b.slots[i]
		if s.free() {
			continue
		}
		peer, ok := s.resolvePeer()
		if !ok {
			continue
		}
		if res := peer.UpdateConnection(s.PeerSlot, b.GetChannelAttributes(SlotID(i))); res > worst {
			worst = res
		}
	}
	return worst
}

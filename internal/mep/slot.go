package mep

import "github.com/arcology-network/mep/internal/pool"

// ConnectionSlot is one entry in an MEP's fixed-capacity slot table
// (spec.md §3). Peer is a non-owning, generation-checked handle (Design
// Notes §9) rather than a strong pointer, so a deallocated peer can never
// be dereferenced through a stale slot.
type ConnectionSlot struct {
	Peer      pool.Ref
	PeerSlot  SlotID
	TxEnabled bool
	RxEnabled bool

	// RemoteAttrs caches what the peer published the last time this side
	// actively fetched it (at rx-enable time via ModifyConnection, or when
	// updateConnections re-establishes the receive slot). UpdateConnection,
	// the peer's push notification of a change, rewires the receive path
	// but deliberately does NOT refresh this cache. See SPEC_FULL.md's
	// resolution of the remote-channel-cache staleness question.
	RemoteAttrs ChannelAttributes
}

// free reports whether this slot holds no peer, per spec.md §3 invariant
// #4 ("occupancy is tested by peer = none").
func (s ConnectionSlot) free() bool {
	return s.Peer.IsNil()
}

// resolvePeer returns the live Peer behind s.Peer, or ok=false if it has
// since been deallocated (generation mismatch) or the slot was never
// occupied.
func (s ConnectionSlot) resolvePeer() (Peer, bool) {
	return resolvePeerRef(s.Peer)
}

// resolvePeerRef resolves any weak pool reference to a live Peer, or
// ok=false if the reference is nil, stale, or does not implement Peer.
func resolvePeerRef(ref pool.Ref) (Peer, bool) {
	if ref.IsNil() {
		return nil, false
	}
	obj, ok := ref.Resolve()
	if !ok {
		return nil, false
	}
	p, ok := obj.(Peer)
	return p, ok
}

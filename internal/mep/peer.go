package mep

import "github.com/arcology-network/mep/internal/pool"

// Peer is the minimal peer-to-peer slice an MEP exposes to its mate, per
// spec.md §6 ("Peer MEP"). It deliberately does not expose the full MEP
// API: a peer may only insert/update/delete a connection and read this
// MEP's published attributes for that connection, never reach into its
// channel-assignment state machine directly. remote is always a weak pool
// reference, never the live Peer value, so that storing it cannot create a
// strong reference cycle (Design Notes §9).
type Peer interface {
	// InsertConnection is the peer's side of the CreateConnection
	// handshake: find the lowest free local slot, record (remote, peerSlot)
	// in it, and return the local slot id (NilSlotID if full).
	InsertConnection(remote pool.Ref, peerSlot SlotID) SlotID
	// UpdateConnection is invoked when the peer's published attributes for
	// localSlot have changed.
	UpdateConnection(localSlot SlotID, attrs ChannelAttributes) Result
	// DeleteConnection removes localSlot unilaterally (no further peer
	// call back out).
	DeleteConnection(localSlot SlotID)
	// GetChannelAttributes reports what this MEP is willing to present on
	// localSlot.
	GetChannelAttributes(localSlot SlotID) ChannelAttributes
	// Psm returns an identifier for the owning PSM, used only for tracing.
	Psm() PsmID
}

// PsmID identifies the protocol state machine that owns an MEP, purely for
// trace-record display (spec.md §6).
type PsmID uint32

// NilPsmID is the sentinel "no PSM" value.
const NilPsmID PsmID = 0

package mep

import (
	"context"

	"github.com/go-kit/kit/log"

	"github.com/arcology-network/mep/internal/pool"
	"github.com/arcology-network/mep/internal/trace"
)

var (
	_ Peer            = (*Base)(nil)
	_ pool.Disposable = (*Base)(nil)
	_ Hooks           = (*EdgeRole)(nil)
	_ Hooks           = (*ProxyRole)(nil)
)

// Hooks is the set of operations a concrete role (EdgeEndpoint,
// ProxyEndpoint) supplies to Base, mirroring the virtual functions the
// original source declares on its base endpoint class and overrides per
// role. Base drives the channel/connection state machines; Hooks decides
// how each transition actually talks to the gateway.
type Hooks interface {
	// CreateChannel asks the gateway for a new ephemeral channel.
	CreateChannel(ctx context.Context) (EphemeralChannel, Result)
	// ModifyChannelAddress asks the gateway to rebind chnl's local address.
	ModifyChannelAddress(ctx context.Context, chnl EphemeralChannel, addr ChannelAddress) Result
	// ModifyChannelEphemeral asks the gateway to replace chnl's identity
	// outright (e.g. a context/termination reassignment).
	ModifyChannelEphemeral(ctx context.Context, chnl EphemeralChannel, next EphemeralChannel) Result
	// ModifyChannelAttributes asks the gateway to change chnl's published
	// attributes: just the transmit flag from Base.ModifyChannelAttributes,
	// or a whole ChannelAttributes from Base.ModifyChannelAttributesProxy.
	ModifyChannelAttributes(ctx context.Context, chnl EphemeralChannel, attrs ChannelAttributes) Result
	// DestroyChannel releases chnl at the gateway.
	DestroyChannel(ctx context.Context, chnl EphemeralChannel) Result
	// MakeConnection wires local's receive path to remote's published
	// attributes.
	MakeConnection(ctx context.Context, local EphemeralChannel, remote ChannelAttributes) Result
	// FreeConnection tears down whatever MakeConnection last wired for
	// local.
	FreeConnection(ctx context.Context, local EphemeralChannel) Result
}

// Base is the media endpoint itself: the per-PSM object that owns an
// ephemeral gateway channel and up to MaxSlotID+1 peer connection slots
// (spec.md §3). A role (EdgeRole or ProxyRole) is passed to NewBase as its
// Hooks; everything else — the channel FSM, the slot table, tracing, metrics,
// transaction-deferred destruction — lives here once.
//
// A Base is only ever touched by the goroutine processing its owning PSM's
// current transaction, so it carries no internal lock; concurrent safety
// comes from the pool's Ref generation check and the Transaction boundary,
// not from a mutex here.
type Base struct {
	psm   PsmID
	hooks Hooks
	pool  *pool.Pool
	self  pool.Ref

	tracer  *trace.Tracer
	metrics *Metrics
	logger  log.Logger

	state        ChannelState
	localChannel ChannelAttributes
	disabled     bool

	slots  [MaxSlotID + 1]ConnectionSlot
	rxSlot SlotID
}

// NewBase constructs a Base and allocates it into p, returning both the
// Base and the pool.Ref other endpoints will hold as their weak handle to
// it (Design Notes §9). Construction is necessarily two-step: the object
// must exist before it can be handed to pool.Allocate.
func NewBase(psm PsmID, hooks Hooks, p *pool.Pool, tracer *trace.Tracer, metrics *Metrics, logger log.Logger) (*Base, pool.Ref) {
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	b := &Base{
		psm:     psm,
		hooks:   hooks,
		pool:    p,
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
		state:   Idle,
		rxSlot:  NilSlotID,
	}
	for i := range b.slots {
		b.slots[i].PeerSlot = NilSlotID
	}
	b.self = p.Allocate(b)
	return b, b.self
}

// Psm implements Peer.
func (b *Base) Psm() PsmID { return b.psm }

// State reports the current channel-assignment state (spec.md §4.3).
func (b *Base) State() ChannelState { return b.state }

// Disabled reports whether the channel is administratively disabled.
func (b *Base) Disabled() bool { return b.disabled }

// Self returns the weak reference by which peers should address this Base.
func (b *Base) Self() pool.Ref { return b.self }

// LocalChannelAttributes returns what this MEP currently presents to its
// own slot table before any disabled-propagation suppression is applied.
func (b *Base) LocalChannelAttributes() ChannelAttributes { return b.localChannel }

// CreateChannel requests a new ephemeral channel from the gateway
// (spec.md §4.1). It is only valid from Idle; calling it from Requested or
// Assigned returns Error without touching the gateway.
func (b *Base) CreateChannel(ctx context.Context) Result {
	if b.state != Idle {
		return b.traceChannel(Error)
	}
	b.state = Requested
	chnl, res := b.hooks.CreateChannel(ctx)
	if res != Ok {
		b.state = Idle
		return b.traceChannel(res)
	}
	b.state = Assigned
	b.localChannel = ChannelAttributes{Channel: chnl, Tx: false}
	return b.traceChannel(Ok)
}

// ModifyChannelAddress rebinds the channel's local address. It is a no-op
// (Ok, no gateway call) if addr already matches what is published, the
// same "ChnlChanged" significance check the original source performs
// before every gateway round trip.
func (b *Base) ModifyChannelAddress(ctx context.Context, addr ChannelAddress) Result {
	if b.state != Assigned {
		return b.traceChannel(Error)
	}
	if b.localChannel.Channel.Endpoint == addr {
		return b.traceChannel(Ok)
	}
	res := b.hooks.ModifyChannelAddress(ctx, b.localChannel.Channel, addr)
	if res != Ok {
		return b.traceChannel(res)
	}
	b.localChannel.Channel.Endpoint = addr
	return b.traceChannel(b.updateConnections(ctx))
}

// ModifyChannelEphemeral replaces the channel's gateway identity outright
// (e.g. a context/termination reassignment) and republishes the new
// identity to every connected peer.
func (b *Base) ModifyChannelEphemeral(ctx context.Context, next EphemeralChannel) Result {
	if b.state != Assigned {
		return b.traceChannel(Error)
	}
	if b.localChannel.Channel == next {
		return b.traceChannel(Ok)
	}
	res := b.hooks.ModifyChannelEphemeral(ctx, b.localChannel.Channel, next)
	if res != Ok {
		return b.traceChannel(res)
	}
	b.localChannel.Channel = next
	return b.traceChannel(b.updateConnections(ctx))
}

// ModifyChannelAttributes toggles whether this MEP transmits on its
// channel, propagating the new attributes to every connected peer. A
// request for the already-current value is a no-op. EdgeEndpoint does not
// support this operation at all (SPEC_FULL.md's role table) — EdgeRole's
// Hooks implementation refuses it unconditionally with Error regardless of
// tx.
func (b *Base) ModifyChannelAttributes(ctx context.Context, tx bool) Result {
	if b.state != Assigned {
		return b.traceChannel(Error)
	}
	if b.localChannel.Tx == tx {
		return b.traceChannel(Ok)
	}
	attrs := ChannelAttributes{Channel: b.localChannel.Channel, Tx: tx}
	res := b.hooks.ModifyChannelAttributes(ctx, b.localChannel.Channel, attrs)
	if res != Ok {
		return b.traceChannel(res)
	}
	b.localChannel.Tx = tx
	return b.traceChannel(b.updateConnections(ctx))
}

// ModifyChannelAttributesProxy is the proxy-mode ModifyChnl(ChannelAttributes)
// overload: unlike ModifyChannelAttributes's tx-only convenience form, it
// accepts a fully externally-supplied ChannelAttributes — channel identity
// included — and replaces b.localChannel wholesale on success. It is only
// meaningful for ProxyRole; EdgeRole's Hooks implementation refuses it (and
// the tx-only form) unconditionally with Error.
func (b *Base) ModifyChannelAttributesProxy(ctx context.Context, attrs ChannelAttributes) Result {
	if b.state != Assigned {
		return b.traceChannel(Error)
	}
	if b.localChannel == attrs {
		return b.traceChannel(Ok)
	}
	res := b.hooks.ModifyChannelAttributes(ctx, b.localChannel.Channel, attrs)
	if res != Ok {
		return b.traceChannel(res)
	}
	b.localChannel = attrs
	return b.traceChannel(b.updateConnections(ctx))
}

// DisableChannel administratively suspends the channel: every peer
// connection is republished with nil attributes (disabled-propagation,
// Design Notes §9) even though the gateway-side channel and the slot
// table are left intact, so EnableChannel can restore service without
// renegotiating connections. Calling it again while already disabled still
// runs updateConnections — it is a no-op only in the sense that every
// peer observes the same (already nil) attributes a second time, not in
// the sense of skipping the republish.
func (b *Base) DisableChannel(ctx context.Context) Result {
	if b.state != Assigned {
		return b.traceChannel(Error)
	}
	if !b.disabled {
		b.disabled = true
		b.metrics.ChannelsDisabled.Add(1)
	}
	return b.traceChannel(b.updateConnections(ctx))
}

// EnableChannel reverses DisableChannel, republishing real attributes to
// every connected peer. As with DisableChannel, calling it again while
// already enabled still runs updateConnections.
func (b *Base) EnableChannel(ctx context.Context) Result {
	if b.state != Assigned {
		return b.traceChannel(Error)
	}
	if b.disabled {
		b.disabled = false
		b.metrics.ChannelsDisabled.Add(-1)
	}
	return b.traceChannel(b.updateConnections(ctx))
}

// DestroyChannel releases the gateway channel, tears down every
// connection, and returns to Idle. It is valid from Requested or Assigned;
// from Idle it is a no-op.
func (b *Base) DestroyChannel(ctx context.Context) Result {
	if b.state == Idle {
		return b.traceChannel(Ok)
	}
	b.DestroyConnections(ctx)
	var res Result = Ok
	if b.state == Assigned {
		res = b.hooks.DestroyChannel(ctx, b.localChannel.Channel)
	}
	b.state = Idle
	if b.disabled {
		b.disabled = false
		b.metrics.ChannelsDisabled.Add(-1)
	}
	b.localChannel = NilChannelAttributes
	return b.traceChannel(res)
}

// Deallocate enqueues this Base for teardown when tx commits, rather than
// tearing it down synchronously (spec.md §3 invariant #5: "the destructor
// runs only after the host transaction completes").
func (b *Base) Deallocate(tx *pool.Transaction) {
	tx.Dispose(b.self)
}

// Teardown implements pool.Disposable. It is only ever invoked by
// Transaction.Commit, never called directly. Destruction while the channel
// is not Idle is a programmer error (Deallocate should normally follow
// DestroyChannel, not race ahead of it) and is logged as such before the
// forced DestroyChannel runs.
func (b *Base) Teardown() {
	if b.state != Idle {
		b.logger.Log("msg", "software error: deallocate while channel non-idle", "psm", b.psm, "state", b.state.String())
	}
	ctx := context.Background()
	b.DestroyChannel(ctx)
	// DestroyChannel does nothing from Idle, but an Idle MEP can still hold
	// slots a peer inserted through InsertConnection.
	b.DestroyConnections(ctx)
	b.metrics.Deallocations.Add(1)
}

package mep

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arcology-network/mep/internal/gateway"
	"github.com/arcology-network/mep/internal/pool"
)

func newTestMEP(t *testing.T, psm PsmID, p *pool.Pool) (*Base, pool.Ref, *gateway.Fake) {
	t.Helper()
	gw := gateway.NewFake()
	b, ref := NewBase(psm, NewEdgeRole(gw), p, nil, NopMetrics(), nil)
	return b, ref, gw
}

// newTestProxyMEP is newTestMEP's ProxyRole counterpart, for tests that
// exercise operations EdgeRole refuses outright (the proxy-mode
// ModifyChannelAttributesProxy overload, ModifyChannelEphemeral).
func newTestProxyMEP(t *testing.T, psm PsmID, p *pool.Pool) (*Base, pool.Ref, *gateway.Fake) {
	t.Helper()
	gw := gateway.NewFake()
	b, ref := NewBase(psm, NewProxyRole(gw), p, nil, NopMetrics(), nil)
	return b, ref, gw
}

func TestCreateChannelAssignsAndIsIdempotentFromWrongState(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	b, _, _ := newTestMEP(t, 1, p)

	require.Equal(t, Idle, b.State())
	require.Equal(t, Ok, b.CreateChannel(ctx))
	require.Equal(t, Assigned, b.State())
	require.False(t, b.LocalChannelAttributes().Channel.IsNil())

	// Already assigned: a second CreateChannel is refused, state unchanged.
	require.Equal(t, Error, b.CreateChannel(ctx))
	require.Equal(t, Assigned, b.State())
}

func TestCreateChannelNoResourceStaysIdle(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	gw := gateway.NewFake()
	gw.FailAllocate = true
	b, _ := NewBase(1, NewEdgeRole(gw), p, nil, NopMetrics(), nil)

	require.Equal(t, NoResource, b.CreateChannel(ctx))
	require.Equal(t, Idle, b.State())
}

func TestDestroyChannelReturnsToIdleAndFreesConnections(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, aRef, _ := newTestMEP(t, 1, p)
	b, bRef, _ := newTestMEP(t, 2, p)

	require.Equal(t, Ok, a.CreateChannel(ctx))
	require.Equal(t, Ok, b.CreateChannel(ctx))

	slot, res := a.CreateConnection(ctx, bRef)
	require.Equal(t, Ok, res)
	require.NotEqual(t, NilSlotID, slot)
	_ = aRef
	_, peerSlot := a.RemoteConnectionId(slot)

	require.Equal(t, Ok, a.DestroyChannel(ctx))
	require.Equal(t, Idle, a.State())
	_, occupied := a.AccessConnection(slot)
	require.False(t, occupied)

	// b's slot must have been notified and cleared too (symmetry).
	_, occupied = b.AccessConnection(peerSlot)
	require.False(t, occupied)
}

// TestSingleReceiverInvariant is invariant #1: a MEP may never
// have two slots with rx enabled at once.
func TestSingleReceiverInvariant(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, _, _ := newTestMEP(t, 1, p)
	b, bRef, _ := newTestMEP(t, 2, p)
	c, cRef, _ := newTestMEP(t, 3, p)

	require.Equal(t, Ok, a.CreateChannel(ctx))
	require.Equal(t, Ok, b.CreateChannel(ctx))
	require.Equal(t, Ok, c.CreateChannel(ctx))

	slotB, res := a.CreateConnection(ctx, bRef)
	require.Equal(t, Ok, res)
	slotC, res := a.CreateConnection(ctx, cRef)
	require.Equal(t, Ok, res)

	require.Equal(t, Ok, a.ModifyConnection(ctx, slotB, true, true))
	require.Equal(t, Denied, a.ModifyConnection(ctx, slotC, true, true))

	// Disabling the first receiver frees the slot for the second.
	require.Equal(t, Ok, a.ModifyConnection(ctx, slotB, true, false))
	require.Equal(t, Ok, a.ModifyConnection(ctx, slotC, true, true))
}

// TestSymmetryInvariant is invariant #2: CreateConnection always
// produces a matching slot on both sides referencing each other.
func TestSymmetryInvariant(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, aRef, _ := newTestMEP(t, 1, p)
	b, bRef, _ := newTestMEP(t, 2, p)

	require.Equal(t, Ok, a.CreateChannel(ctx))
	require.Equal(t, Ok, b.CreateChannel(ctx))

	slotA, res := a.CreateConnection(ctx, bRef)
	require.Equal(t, Ok, res)

	peerPsm, peerSlot := a.RemoteConnectionId(slotA)
	require.Equal(t, PsmID(2), peerPsm)

	_, occupied := b.AccessConnection(peerSlot)
	require.True(t, occupied)

	remotePsm, remoteSlot := b.RemoteConnectionId(peerSlot)
	require.Equal(t, PsmID(1), remotePsm)
	require.Equal(t, slotA, remoteSlot)
	_ = aRef
}

// TestDisabledPropagationInvariant is invariant #3: while a
// channel is disabled, GetChannelAttributes must report nil regardless of
// the underlying tx flag.
func TestDisabledPropagationInvariant(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, _, _ := newTestProxyMEP(t, 1, p)
	b, bRef, _ := newTestMEP(t, 2, p)

	require.Equal(t, Ok, a.CreateChannel(ctx))
	require.Equal(t, Ok, b.CreateChannel(ctx))
	slotA, res := a.CreateConnection(ctx, bRef)
	require.Equal(t, Ok, res)
	attrs := a.LocalChannelAttributes()
	attrs.Tx = true
	require.Equal(t, Ok, a.ModifyChannelAttributesProxy(ctx, attrs))
	require.Equal(t, Ok, a.ModifyConnection(ctx, slotA, true, false))

	require.False(t, a.GetChannelAttributes(slotA).IsNil())

	require.Equal(t, Ok, a.DisableChannel(ctx))
	require.True(t, a.GetChannelAttributes(slotA).IsNil())

	require.Equal(t, Ok, a.EnableChannel(ctx))
	require.False(t, a.GetChannelAttributes(slotA).IsNil())
}

// TestCapacityCapInvariant is invariant #4: CreateConnection
// fails with NoResource once MaxSlotID+1 slots are occupied.
func TestCapacityCapInvariant(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, _, _ := newTestMEP(t, 1, p)
	require.Equal(t, Ok, a.CreateChannel(ctx))

	for i := 0; i <= int(MaxSlotID); i++ {
		peer, peerRef, _ := newTestMEP(t, PsmID(i+2), p)
		require.Equal(t, Ok, peer.CreateChannel(ctx))
		_, res := a.CreateConnection(ctx, peerRef)
		require.Equal(t, Ok, res)
	}

	overflow, overflowRef, _ := newTestMEP(t, 99, p)
	require.Equal(t, Ok, overflow.CreateChannel(ctx))
	slot, res := a.CreateConnection(ctx, overflowRef)
	require.Equal(t, NilSlotID, slot)
	require.Equal(t, NoResource, res)
}

// TestTransactionDeferredDestruction is invariant #5: Deallocate
// must not tear the object down until the owning Transaction commits.
func TestTransactionDeferredDestruction(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, aRef, gw := newTestMEP(t, 1, p)
	require.Equal(t, Ok, a.CreateChannel(ctx))
	chnl := a.LocalChannelAttributes().Channel

	tx := pool.NewTransaction(p)
	a.Deallocate(tx)

	_, ok := aRef.Resolve()
	require.True(t, ok, "still resolvable before commit")
	_, stillThere := gw.PeerOf(chnl)
	_ = stillThere

	tx.Commit()

	_, ok = aRef.Resolve()
	require.False(t, ok, "must not resolve after commit")
}

// TestUpdateConnectionDoesNotRefreshRemoteChannelCache pins the resolved
// Open Question: UpdateConnection must never refresh
// ConnectionSlot.RemoteAttrs; that cache is refreshed only when this side
// fetches the peer's attributes itself (ModifyConnection's rx-enable path,
// or updateConnections after a change to this side's own channel).
func TestUpdateConnectionDoesNotRefreshRemoteChannelCache(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, _, _ := newTestMEP(t, 1, p)
	b, bRef, _ := newTestProxyMEP(t, 2, p)

	require.Equal(t, Ok, a.CreateChannel(ctx))
	require.Equal(t, Ok, b.CreateChannel(ctx))
	slotA, res := a.CreateConnection(ctx, bRef)
	require.Equal(t, Ok, res)

	battrs := b.LocalChannelAttributes()
	battrs.Tx = true
	require.Equal(t, Ok, b.ModifyChannelAttributesProxy(ctx, battrs))
	require.Equal(t, Ok, a.ModifyConnection(ctx, slotA, false, true))

	cached, _ := a.AccessConnection(slotA)
	before := cached.RemoteAttrs

	// b replaces its ephemeral identity outright; it notifies a via
	// UpdateConnection (through updateConnections), but a's cache must stay
	// exactly as it was captured at rx-enable time.
	next := b.LocalChannelAttributes().Channel
	next.TerminationID++
	require.Equal(t, Ok, b.ModifyChannelEphemeral(ctx, next))

	after, _ := a.AccessConnection(slotA)
	require.Equal(t, before, after.RemoteAttrs)
}

// spyPeer is a minimal Peer implementation for observing how many times a
// real MEP's updateConnections republishes to it, independent of any
// particular peer role's own state machine.
type spyPeer struct {
	updateCalls int
}

func (s *spyPeer) InsertConnection(pool.Ref, SlotID) SlotID { return NilSlotID }
func (s *spyPeer) UpdateConnection(localSlot SlotID, attrs ChannelAttributes) Result {
	s.updateCalls++
	return Ok
}
func (s *spyPeer) DeleteConnection(SlotID)                       {}
func (s *spyPeer) GetChannelAttributes(SlotID) ChannelAttributes { return NilChannelAttributes }
func (s *spyPeer) Psm() PsmID                                    { return 99 }
func (s *spyPeer) Teardown()                                     {}

// TestEnableChannelRedundantCallStillUpdatesConnections pins testable
// property #4: EnableChannel after EnableChannel is a no-op observable only
// through a single redundant UpdateConnection call, not by skipping the
// republish outright.
func TestEnableChannelRedundantCallStillUpdatesConnections(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, _, _ := newTestMEP(t, 1, p)
	require.Equal(t, Ok, a.CreateChannel(ctx))

	spy := &spyPeer{}
	spyRef := p.Allocate(spy)
	a.slots[0] = ConnectionSlot{Peer: spyRef, PeerSlot: 0}

	require.Equal(t, Ok, a.DisableChannel(ctx))
	require.Equal(t, Ok, a.EnableChannel(ctx))
	require.Equal(t, 2, spy.updateCalls, "Disable then Enable must each republish once")

	require.Equal(t, Ok, a.EnableChannel(ctx))
	require.Equal(t, 3, spy.updateCalls, "a redundant EnableChannel must still invoke a republish")
}

// TestModifyChannelAttributesProxySucceedsOnlyForProxyRole exercises the
// proxy-mode full-ChannelAttributes overload against a ProxyRole MEP.
// EdgeRole's refusal of both the tx-only and the full form is checked by
// TestEdgeRoleRefusesModifyChannelAttributes.
func TestModifyChannelAttributesProxySucceedsOnlyForProxyRole(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	proxy, _, _ := newTestProxyMEP(t, 1, p)
	require.Equal(t, Ok, proxy.CreateChannel(ctx))

	attrs := proxy.LocalChannelAttributes()
	attrs.Tx = true
	require.Equal(t, Ok, proxy.ModifyChannelAttributesProxy(ctx, attrs))
	require.True(t, proxy.LocalChannelAttributes().Tx)
}

func TestEdgeRoleRefusesModifyChannelAttributes(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	edge, _, _ := newTestMEP(t, 1, p)
	require.Equal(t, Ok, edge.CreateChannel(ctx))

	require.Equal(t, Error, edge.ModifyChannelAttributes(ctx, true))

	attrs := edge.LocalChannelAttributes()
	attrs.Tx = true
	require.Equal(t, Error, edge.ModifyChannelAttributesProxy(ctx, attrs))
}

func TestTeardownReleasesChannelAndConnections(t *testing.T) {
	ctx := context.Background()
	p := pool.New()
	a, aRef, _ := newTestMEP(t, 1, p)
	b, bRef, _ := newTestMEP(t, 2, p)

	require.Equal(t, Ok, a.CreateChannel(ctx))
	require.Equal(t, Ok, b.CreateChannel(ctx))
	slotA, res := a.CreateConnection(ctx, bRef)
	require.Equal(t, Ok, res)
	_, peerSlot := a.RemoteConnectionId(slotA)

	tx := pool.NewTransaction(p)
	a.Deallocate(tx)
	tx.Commit()

	require.Equal(t, Idle, a.State())
	_, ok := aRef.Resolve()
	require.False(t, ok)
	_, occupied := b.AccessConnection(peerSlot)
	require.False(t, occupied)
}

package mep

import "context"

// EdgeRole implements Hooks by talking to a real GatewayClient, for an MEP
// sitting at the edge of the network (the original source's edge endpoint
// role): it owns the ephemeral channel outright and is the only side that
// allocates and releases it at the gateway.
type EdgeRole struct {
	GW GatewayClient
}

// NewEdgeRole returns an EdgeRole driving gw.
func NewEdgeRole(gw GatewayClient) *EdgeRole {
	return &EdgeRole{GW: gw}
}

func (r *EdgeRole) CreateChannel(ctx context.Context) (EphemeralChannel, Result) {
	chnl, err := r.GW.Allocate(ctx)
	if err != nil {
		return NilEphemeralChannel, NoResource
	}
	return chnl, Ok
}

func (r *EdgeRole) ModifyChannelAddress(ctx context.Context, chnl EphemeralChannel, addr ChannelAddress) Result {
	next := chnl
	next.Endpoint = addr
	if err := r.GW.Modify(ctx, chnl, ChannelAttributes{Channel: next}); err != nil {
		return NoResource
	}
	return Ok
}

func (r *EdgeRole) ModifyChannelEphemeral(ctx context.Context, chnl EphemeralChannel, next EphemeralChannel) Result {
	if err := r.GW.Modify(ctx, chnl, ChannelAttributes{Channel: next}); err != nil {
		return NoResource
	}
	return Ok
}

// ModifyChannelAttributes is unsupported for EdgeEndpoint (SPEC_FULL.md's
// role table): attribute republishing in proxy mode is a ProxyEndpoint-only
// capability, so this always refuses with Error without touching the
// gateway.
func (r *EdgeRole) ModifyChannelAttributes(ctx context.Context, chnl EphemeralChannel, attrs ChannelAttributes) Result {
	return Error
}

func (r *EdgeRole) DestroyChannel(ctx context.Context, chnl EphemeralChannel) Result {
	if err := r.GW.Release(ctx, chnl); err != nil {
		return Error
	}
	return Ok
}

func (r *EdgeRole) MakeConnection(ctx context.Context, local EphemeralChannel, remote ChannelAttributes) Result {
	if err := r.GW.Connect(ctx, local, remote); err != nil {
		return NoResource
	}
	return Ok
}

func (r *EdgeRole) FreeConnection(ctx context.Context, local EphemeralChannel) Result {
	if err := r.GW.Disconnect(ctx, local); err != nil {
		return Error
	}
	return Ok
}

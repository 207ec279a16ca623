package mep

import "context"

// ProxyRole implements Hooks for an MEP that sits between two other MEPs
// rather than owning an edge-facing channel outright (the original
// source's proxy endpoint role). It drives the same GatewayClient as
// EdgeRole but does not support rebinding the channel's address in place:
// a proxied channel's address is assigned once by the gateway for the
// lifetime of the context, so ModifyChannelAddress always fails with
// Error rather than attempting a gateway round trip.
type ProxyRole struct {
	GW GatewayClient
}

// NewProxyRole returns a ProxyRole driving gw.
func NewProxyRole(gw GatewayClient) *ProxyRole {
	return &ProxyRole{GW: gw}
}

func (r *ProxyRole) CreateChannel(ctx context.Context) (EphemeralChannel, Result) {
	chnl, err := r.GW.Allocate(ctx)
	if err != nil {
		return NilEphemeralChannel, NoResource
	}
	return chnl, Ok
}

func (r *ProxyRole) ModifyChannelAddress(ctx context.Context, chnl EphemeralChannel, addr ChannelAddress) Result {
	return Error
}

func (r *ProxyRole) ModifyChannelEphemeral(ctx context.Context, chnl EphemeralChannel, next EphemeralChannel) Result {
	if err := r.GW.Modify(ctx, chnl, ChannelAttributes{Channel: next}); err != nil {
		return NoResource
	}
	return Ok
}

func (r *ProxyRole) ModifyChannelAttributes(ctx context.Context, chnl EphemeralChannel, attrs ChannelAttributes) Result {
	if err := r.GW.Modify(ctx, chnl, attrs); err != nil {
		return NoResource
	}
	return Ok
}

func (r *ProxyRole) DestroyChannel(ctx context.Context, chnl EphemeralChannel) Result {
	if err := r.GW.Release(ctx, chnl); err != nil {
		return Error
	}
	return Ok
}

func (r *ProxyRole) MakeConnection(ctx context.Context, local EphemeralChannel, remote ChannelAttributes) Result {
	if err := r.GW.Connect(ctx, local, remote); err != nil {
		return NoResource
	}
	return Ok
}

func (r *ProxyRole) FreeConnection(ctx context.Context, local EphemeralChannel) Result {
	if err := r.GW.Disconnect(ctx, local); err != nil {
		return Error
	}
	return Ok
}

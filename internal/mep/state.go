package mep

// ChannelState is the channel-assignment state machine described in
// spec.md §4.3:
//
//	Idle --CreateChannel--> Requested --assigned--> Assigned
//	 ^------------------DestroyChannel-------------------|
//
// Deallocate may be invoked from any state.
type ChannelState int

const (
	// Idle: no channel requested, or the channel has been destroyed.
	Idle ChannelState = iota
	// Requested: CreateChannel was called; the gateway has not yet
	// confirmed allocation.
	Requested
	// Assigned: the gateway confirmed allocation.
	Assigned
)

func (s ChannelState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Requested:
		return "Requested"
	case Assigned:
		return "Assigned"
	default:
		return "Unknown"
	}
}

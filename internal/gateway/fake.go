package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/arcology-network/mep/internal/mep"
)

// Fake is an in-memory Client used by tests, mepctl simulate, and the two
// concrete MEP roles when no real gateway is configured. It never performs
// network I/O; Allocate/Modify/Release/Connect/Disconnect all just update
// local bookkeeping, which is enough to exercise every MEP invariant.
type Fake struct {
	mu       sync.Mutex
	seq      idSequence
	channels map[uint32]mep.EphemeralChannel
	conns    map[uint32]mep.ChannelAttributes

	// FailAllocate, when true, makes Allocate return NoResource-shaped
	// errors, for exercising the failure paths in spec.md §4.4.
	FailAllocate bool
}

var _ mep.GatewayClient = (*Fake)(nil)

// NewFake returns a ready-to-use Fake gateway client.
func NewFake() *Fake {
	return &Fake{
		channels: make(map[uint32]mep.EphemeralChannel),
		conns:    make(map[uint32]mep.ChannelAttributes),
	}
}

var errNoResource = errors.New("fake gateway: no resource available")

func (f *Fake) Allocate(_ context.Context) (mep.EphemeralChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailAllocate {
		return mep.NilEphemeralChannel, errNoResource
	}

	id := f.seq.next32()
	ch := mep.EphemeralChannel{
		ContextID:     id,
		TerminationID: id,
		Endpoint:      mep.ChannelAddress{Addr: "127.0.0.1", Port: uint16(10000 + id%50000)},
	}
	f.channels[id] = ch
	return ch, nil
}

func (f *Fake) Modify(_ context.Context, chnl mep.EphemeralChannel, attrs mep.ChannelAttributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.channels[chnl.ContextID]; !ok {
		return errors.Errorf("fake gateway: unknown channel ctx=%d", chnl.ContextID)
	}
	f.channels[chnl.ContextID] = attrs.Channel
	return nil
}

func (f *Fake) Release(_ context.Context, chnl mep.EphemeralChannel) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.channels, chnl.ContextID)
	delete(f.conns, chnl.ContextID)
	return nil
}

func (f *Fake) Connect(_ context.Context, local mep.EphemeralChannel, remote mep.ChannelAttributes) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if remote.IsNil() {
		delete(f.conns, local.ContextID)
		return nil
	}
	f.conns[local.ContextID] = remote
	return nil
}

func (f *Fake) Disconnect(_ context.Context, local mep.EphemeralChannel) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.conns, local.ContextID)
	return nil
}

// PeerOf returns what local is currently connected to, for assertions in
// tests.
func (f *Fake) PeerOf(local mep.EphemeralChannel) (mep.ChannelAttributes, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attrs, ok := f.conns[local.ContextID]
	return attrs, ok
}

func (f *Fake) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("Fake{channels=%d conns=%d}", len(f.channels), len(f.conns))
}

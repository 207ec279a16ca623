package psmhost

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeDisposable struct{ torn bool }

func (f *fakeDisposable) Teardown() { f.torn = true }

func TestEndOfTransactionCommitsAndOpensFresh(t *testing.T) {
	h := NewHost()
	obj := &fakeDisposable{}
	ref := h.Pool().Allocate(obj)

	first := h.CurrentTransaction()
	first.Dispose(ref)

	h.EndOfTransaction()

	require.True(t, obj.torn)
	require.NotSame(t, first, h.CurrentTransaction())
	_, ok := ref.Resolve()
	require.False(t, ok)
}

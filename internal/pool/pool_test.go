package pool

import (
	"testing"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	torn *bool
}

func (f *fakeObject) Teardown() {
	*f.torn = true
}

func TestAllocateResolve(t *testing.T) {
	defer leaktest.Check(t)()

	p := New()
	torn := false
	ref := p.Allocate(&fakeObject{torn: &torn})

	obj, ok := ref.Resolve()
	require.True(t, ok)
	require.Same(t, &torn, obj.(*fakeObject).torn)
	require.Equal(t, 1, p.InUse())
}

func TestTransactionCommitTearsDownAndInvalidatesRef(t *testing.T) {
	defer leaktest.Check(t)()

	p := New()
	torn := false
	ref := p.Allocate(&fakeObject{torn: &torn})

	tx := NewTransaction(p)
	tx.Dispose(ref)

	_, ok := ref.Resolve()
	require.True(t, ok, "ref stays valid until Commit")

	tx.Commit()

	require.True(t, torn)
	_, ok = ref.Resolve()
	require.False(t, ok, "ref must not resolve after commit")
	require.Equal(t, 0, p.InUse())
}

func TestReusedSlotInvalidatesStaleRef(t *testing.T) {
	defer leaktest.Check(t)()

	p := New()
	var torn1, torn2 bool
	ref1 := p.Allocate(&fakeObject{torn: &torn1})

	tx := NewTransaction(p)
	tx.Dispose(ref1)
	tx.Commit()

	ref2 := p.Allocate(&fakeObject{torn: &torn2})

	_, ok := ref1.Resolve()
	require.False(t, ok, "stale ref must not alias the reused slot")

	obj, ok := ref2.Resolve()
	require.True(t, ok)
	require.Same(t, &torn2, obj.(*fakeObject).torn)
}

func TestCommitIsIdempotent(t *testing.T) {
	defer leaktest.Check(t)()

	p := New()
	var torn bool
	ref := p.Allocate(&fakeObject{torn: &torn})

	tx := NewTransaction(p)
	tx.Dispose(ref)
	tx.Commit()
	tx.Commit() // must not panic or double-free

	require.True(t, torn)
}

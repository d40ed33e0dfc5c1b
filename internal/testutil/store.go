package testutil

import (
	"context"
	"testing"
	"time"

	"shelfkeep/internal/library"
	"shelfkeep/internal/persist"
)

// StoreFixture bundles a store with the fakes wired into it, so tests can
// both drive the store and inspect what it did.
type StoreFixture struct {
	Store   *library.Store
	Adapter *persist.MemoryAdapter
	Clock   *StubClock
	IDs     *StubIDGenerator
	Mover   *StubMover
	Sinks   []*RecordingSink
}

// NewStoreFixture builds an initialized store over a memory adapter with a
// long debounce window, so nothing persists until the test flushes
// explicitly. The store is closed when the test completes.
func NewStoreFixture(t *testing.T, sinkNames ...string) *StoreFixture {
	t.Helper()

	adapter := persist.NewMemoryAdapter()
	clock := FixedClock()
	ids := NewStubIDGenerator()
	mover := NewStubMover()

	sinks := make([]*RecordingSink, len(sinkNames))
	libSinks := make([]library.IndexSink, len(sinkNames))
	for i, name := range sinkNames {
		sinks[i] = NewRecordingSink(name)
		libSinks[i] = sinks[i]
	}

	store := library.NewStore(adapter, libSinks, mover, nil, library.NewNopLogger(), clock, ids, library.Options{
		DebounceWindow: time.Hour,
		StorageRoot:    "/srv/shelfkeep",
	})
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initializing store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})

	return &StoreFixture{
		Store:   store,
		Adapter: adapter,
		Clock:   clock,
		IDs:     ids,
		Mover:   mover,
		Sinks:   sinks,
	}
}

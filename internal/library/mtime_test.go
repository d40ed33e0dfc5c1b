package library_test

import (
	"context"
	"testing"
	"time"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
	"shelfkeep/internal/persist"
	"shelfkeep/internal/testutil"
)

func TestMTimeTracker(t *testing.T) {
	ctx := context.Background()

	t.Run("update, set and remove", func(t *testing.T) {
		adapter := persist.NewMemoryAdapter()
		clock := testutil.FixedClock()
		tr := library.NewMTimeTracker(adapter.MTimes(), clock, library.NewNopLogger())

		tr.Update(ctx, "a")
		got, ok := tr.Get("a")
		if !ok || got != clock.Now().UnixMilli() {
			t.Errorf("Get(a) = %d, %v; want now, true", got, ok)
		}

		tr.Set(ctx, "b", 12345)
		if got, _ := tr.Get("b"); got != 12345 {
			t.Errorf("Get(b) = %d, want 12345", got)
		}
		if tr.Count() != 2 {
			t.Errorf("Count() = %d, want 2", tr.Count())
		}

		tr.Remove(ctx, "a")
		if _, ok := tr.Get("a"); ok {
			t.Error("Get(a) found after Remove")
		}
	})

	t.Run("batch update stamps every id the same", func(t *testing.T) {
		adapter := persist.NewMemoryAdapter()
		clock := testutil.FixedClock()
		tr := library.NewMTimeTracker(adapter.MTimes(), clock, library.NewNopLogger())

		tr.UpdateBatch(ctx, []string{"a", "b", "c"})
		all := tr.All()
		if len(all) != 3 {
			t.Fatalf("len(All()) = %d, want 3", len(all))
		}
		want := clock.Now().UnixMilli()
		for id, millis := range all {
			if millis != want {
				t.Errorf("All()[%s] = %d, want %d", id, millis, want)
			}
		}
	})

	t.Run("persists across sessions", func(t *testing.T) {
		adapter := persist.NewMemoryAdapter()
		clock := testutil.FixedClock()
		tr := library.NewMTimeTracker(adapter.MTimes(), clock, library.NewNopLogger())

		tr.Set(ctx, "a", 111)
		tr.Set(ctx, "b", 222)

		tr2 := library.NewMTimeTracker(adapter.MTimes(), clock, library.NewNopLogger())
		if err := tr2.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got, _ := tr2.Get("a"); got != 111 {
			t.Errorf("reloaded Get(a) = %d, want 111", got)
		}
		if tr2.Count() != 2 {
			t.Errorf("reloaded Count() = %d, want 2", tr2.Count())
		}
	})

	t.Run("starts empty when nothing was persisted", func(t *testing.T) {
		adapter := persist.NewMemoryAdapter()
		tr := library.NewMTimeTracker(adapter.MTimes(), testutil.FixedClock(), library.NewNopLogger())

		if err := tr.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if tr.Count() != 0 {
			t.Errorf("Count() = %d, want 0", tr.Count())
		}
	})

	t.Run("tolerates an unavailable store", func(t *testing.T) {
		// The object-store backend has no mtime artifact; operations
		// keep the in-memory map and skip persistence.
		store := unavailableMTimes{}
		tr := library.NewMTimeTracker(store, testutil.FixedClock(), library.NewNopLogger())

		if err := tr.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		tr.Update(ctx, "a")
		if _, ok := tr.Get("a"); !ok {
			t.Error("in-memory entry missing with unavailable store")
		}
	})

	t.Run("advancing clock moves timestamps", func(t *testing.T) {
		adapter := persist.NewMemoryAdapter()
		clock := testutil.FixedClock()
		tr := library.NewMTimeTracker(adapter.MTimes(), clock, library.NewNopLogger())

		tr.Update(ctx, "a")
		first, _ := tr.Get("a")
		clock.Advance(5 * time.Second)
		tr.Update(ctx, "a")
		second, _ := tr.Get("a")
		if second-first != 5000 {
			t.Errorf("timestamp delta = %d, want 5000", second-first)
		}
	})
}

type unavailableMTimes struct{}

func (unavailableMTimes) Available() bool { return false }
func (unavailableMTimes) Load(context.Context) (*model.MTimeIndex, error) {
	return nil, library.ErrNotSupported
}
func (unavailableMTimes) Save(context.Context, *model.MTimeIndex) error {
	return library.ErrNotSupported
}

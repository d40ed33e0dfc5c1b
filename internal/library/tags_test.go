package library_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
	"shelfkeep/internal/testutil"
)

func TestStore_AddTag(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a tag", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		tag, err := fx.Store.AddTag(ctx, library.TagInput{Name: "work", Color: "#aa0000"})
		if err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}
		if tag.ID == "" || tag.Name != "work" {
			t.Errorf("tag = %+v, want generated ID and name work", tag)
		}
	})

	t.Run("rejects an unknown parent", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		_, err := fx.Store.AddTag(ctx, library.TagInput{Name: "orphan", ParentID: "missing"})
		if !errors.Is(err, library.ErrUnknownID) {
			t.Errorf("AddTag() error = %v, want ErrUnknownID", err)
		}
	})
}

func TestStore_DeleteTag(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades to descendants and strips items", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t, "lexical")

		work, err := fx.Store.AddTag(ctx, library.TagInput{Name: "work"})
		if err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}
		urgent, err := fx.Store.AddTag(ctx, library.TagInput{Name: "urgent", ParentID: work.ID})
		if err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}
		other, err := fx.Store.AddTag(ctx, library.TagInput{Name: "personal"})
		if err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}

		item, err := fx.Store.AddItem(ctx, library.AddItemInput{
			Title:  "doc",
			Type:   model.TypeDocument,
			TagIDs: []string{urgent.ID, other.ID},
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		fx.Store.DrainEffects()
		before, _ := fx.Store.MTimes().Get(item.ID)
		indexCallsBefore := len(fx.Sinks[0].Indexed())

		fx.Clock.Advance(time.Second)
		if err := fx.Store.DeleteTag(ctx, work.ID); err != nil {
			t.Fatalf("DeleteTag() error = %v", err)
		}
		fx.Store.DrainEffects()

		tags := fx.Store.Tags()
		if len(tags) != 1 || tags[0].ID != other.ID {
			t.Fatalf("surviving tags = %+v, want only %s", tags, other.Name)
		}

		got, _ := fx.Store.ItemByID(item.ID)
		if len(got.TagIDs) != 1 || got.TagIDs[0] != other.ID {
			t.Errorf("item TagIDs = %v, want only the surviving tag", got.TagIDs)
		}

		after, _ := fx.Store.MTimes().Get(item.ID)
		if after <= before {
			t.Errorf("mtime after cascade = %d, want > %d", after, before)
		}
		if got := len(fx.Sinks[0].Indexed()); got != indexCallsBefore+1 {
			t.Errorf("index calls = %d, want %d (touched item reindexed)", got, indexCallsBefore+1)
		}
	})

	t.Run("items without the tag are untouched", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		doomed, err := fx.Store.AddTag(ctx, library.TagInput{Name: "doomed"})
		if err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}
		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "doc", Type: model.TypeDocument})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		before, _ := fx.Store.MTimes().Get(item.ID)

		fx.Clock.Advance(time.Second)
		if err := fx.Store.DeleteTag(ctx, doomed.ID); err != nil {
			t.Fatalf("DeleteTag() error = %v", err)
		}

		after, _ := fx.Store.MTimes().Get(item.ID)
		if after != before {
			t.Errorf("mtime moved from %d to %d for an untouched item", before, after)
		}
	})

	t.Run("unknown identifier returns ErrUnknownID", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		if err := fx.Store.DeleteTag(ctx, "nope"); !errors.Is(err, library.ErrUnknownID) {
			t.Errorf("DeleteTag() error = %v, want ErrUnknownID", err)
		}
	})

	t.Run("a parent cycle is reported, not looped over", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		a, err := fx.Store.AddTag(ctx, library.TagInput{Name: "a"})
		if err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}
		b, err := fx.Store.AddTag(ctx, library.TagInput{Name: "b", ParentID: a.ID})
		if err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}
		// Corrupt the hierarchy: a's parent becomes its own child.
		if _, err := fx.Store.UpdateTag(ctx, a.ID, library.TagPatch{ParentID: &b.ID}); err != nil {
			t.Fatalf("UpdateTag() error = %v", err)
		}

		if err := fx.Store.DeleteTag(ctx, a.ID); err == nil {
			t.Error("DeleteTag() on a cyclic hierarchy returned nil, want error")
		}
	})
}

func TestStore_RecomputeTagCounts(t *testing.T) {
	ctx := context.Background()
	fx := testutil.NewStoreFixture(t)

	work, err := fx.Store.AddTag(ctx, library.TagInput{Name: "work"})
	if err != nil {
		t.Fatalf("AddTag() error = %v", err)
	}

	var items []*model.ResourceItem
	for i := 0; i < 3; i++ {
		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "doc", Type: model.TypeDocument, TagIDs: []string{work.ID}})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		items = append(items, item)
	}

	// Counts are denormalized: mutations leave them stale.
	if got := fx.Store.Tags()[0].Count; got != 0 {
		t.Fatalf("Count before recompute = %d, want stale 0", got)
	}

	fx.Store.RecomputeTagCounts()
	if got := fx.Store.Tags()[0].Count; got != 3 {
		t.Errorf("Count after recompute = %d, want 3", got)
	}

	if err := fx.Store.DeleteItem(ctx, items[0].ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	// Stale again until the next explicit recompute.
	if got := fx.Store.Tags()[0].Count; got != 3 {
		t.Fatalf("Count after delete = %d, want stale 3", got)
	}
	fx.Store.RecomputeTagCounts()
	if got := fx.Store.Tags()[0].Count; got != 2 {
		t.Errorf("Count after second recompute = %d, want 2", got)
	}
}

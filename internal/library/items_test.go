package library_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
	"shelfkeep/internal/testutil"
)

func TestStore_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("prepends so the newest item is first", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		first, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "first", Type: model.TypeDocument})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		second, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "second", Type: model.TypeDocument})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}

		items := fx.Store.Items()
		if len(items) != 2 {
			t.Fatalf("len(Items()) = %d, want 2", len(items))
		}
		if items[0].ID != second.ID || items[1].ID != first.ID {
			t.Errorf("order = [%s, %s], want newest first", items[0].Title, items[1].Title)
		}
	})

	t.Run("maps unrecognized types to unknown", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "weird", Type: model.ItemType("holo-disc")})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if item.Type != model.TypeUnknown {
			t.Errorf("Type = %q, want %q", item.Type, model.TypeUnknown)
		}
	})

	t.Run("deduplicates tag identifiers", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		tag, err := fx.Store.AddTag(ctx, library.TagInput{Name: "work"})
		if err != nil {
			t.Fatalf("AddTag() error = %v", err)
		}
		item, err := fx.Store.AddItem(ctx, library.AddItemInput{
			Title:  "doc",
			Type:   model.TypeDocument,
			TagIDs: []string{tag.ID, tag.ID, tag.ID},
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if len(item.TagIDs) != 1 {
			t.Errorf("len(TagIDs) = %d, want 1", len(item.TagIDs))
		}
	})

	t.Run("records a change timestamp", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "doc", Type: model.TypeDocument})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		if _, ok := fx.Store.MTimes().Get(item.ID); !ok {
			t.Error("no mtime entry recorded for new item")
		}
	})

	t.Run("writes the shadow record and indexes the item", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t, "lexical")

		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "quarterly report", Type: model.TypePDF})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		fx.Store.DrainEffects()

		rec, err := fx.Store.Shadow().Read(ctx, item.ID)
		if err != nil {
			t.Fatalf("Shadow().Read() error = %v", err)
		}
		if rec == nil || rec.Name != "quarterly report" {
			t.Errorf("shadow record = %+v, want name %q", rec, "quarterly report")
		}

		indexed := fx.Sinks[0].Indexed()
		if len(indexed) != 1 || indexed[0].ID != item.ID {
			t.Fatalf("indexed = %+v, want one call for %s", indexed, item.ID)
		}
		if !strings.Contains(indexed[0].Text, "quarterly report") {
			t.Errorf("indexed text = %q, want it to contain the title", indexed[0].Text)
		}
	})
}

func TestStore_AddItem_DebounceCoalescing(t *testing.T) {
	ctx := context.Background()
	fx := testutil.NewStoreFixture(t)

	for i := 0; i < 5; i++ {
		if _, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "doc", Type: model.TypeDocument}); err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
	}

	// The window has not elapsed; nothing has been written yet.
	if got := fx.Adapter.SaveLibraryCalls; got != 0 {
		t.Fatalf("SaveLibraryCalls before flush = %d, want 0", got)
	}

	if err := fx.Store.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := fx.Adapter.SaveLibraryCalls; got != 1 {
		t.Errorf("SaveLibraryCalls after flush = %d, want 1", got)
	}

	// The single write carries every mutation.
	doc, err := fx.Adapter.LoadLibrary(ctx)
	if err != nil {
		t.Fatalf("LoadLibrary() error = %v", err)
	}
	if len(doc.Items) != 5 {
		t.Errorf("persisted items = %d, want 5", len(doc.Items))
	}
}

func TestStore_UpdateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("merges only the set fields", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "draft", Type: model.TypeDocument, Color: "blue"})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}

		title := "final"
		starred := true
		updated, err := fx.Store.UpdateItem(ctx, item.ID, library.ItemPatch{Title: &title, Starred: &starred})
		if err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}
		if updated.Title != "final" || !updated.Starred {
			t.Errorf("updated = %+v, want title final and starred", updated)
		}
		if updated.Color != "blue" {
			t.Errorf("Color = %q, want untouched %q", updated.Color, "blue")
		}
	})

	t.Run("unknown identifier returns ErrUnknownID", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		title := "x"
		_, err := fx.Store.UpdateItem(ctx, "nope", library.ItemPatch{Title: &title})
		if !errors.Is(err, library.ErrUnknownID) {
			t.Errorf("UpdateItem() error = %v, want ErrUnknownID", err)
		}
	})

	t.Run("update timestamp is strictly increasing under a coarse clock", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "doc", Type: model.TypeDocument})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}

		// The stub clock never advances, so both updates see the same now.
		title := "a"
		u1, err := fx.Store.UpdateItem(ctx, item.ID, library.ItemPatch{Title: &title})
		if err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}
		title = "b"
		u2, err := fx.Store.UpdateItem(ctx, item.ID, library.ItemPatch{Title: &title})
		if err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}

		if !u1.UpdatedAt.After(item.UpdatedAt) {
			t.Errorf("first UpdatedAt %v not after creation %v", u1.UpdatedAt, item.UpdatedAt)
		}
		if !u2.UpdatedAt.After(u1.UpdatedAt) {
			t.Errorf("second UpdatedAt %v not after first %v", u2.UpdatedAt, u1.UpdatedAt)
		}
	})

	t.Run("content changes reindex, cosmetic changes do not", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t, "lexical")

		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "doc", Type: model.TypeDocument})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		fx.Store.DrainEffects()
		base := len(fx.Sinks[0].Indexed())

		color := "red"
		if _, err := fx.Store.UpdateItem(ctx, item.ID, library.ItemPatch{Color: &color}); err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}
		fx.Store.DrainEffects()
		if got := len(fx.Sinks[0].Indexed()); got != base {
			t.Errorf("index calls after color change = %d, want %d", got, base)
		}

		snippet := "fresh content"
		if _, err := fx.Store.UpdateItem(ctx, item.ID, library.ItemPatch{Snippet: &snippet}); err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}
		fx.Store.DrainEffects()
		if got := len(fx.Sinks[0].Indexed()); got != base+1 {
			t.Errorf("index calls after snippet change = %d, want %d", got, base+1)
		}
	})
}

func TestStore_UpdateItem_Relocation(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the file into the folder directory", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		folder, err := fx.Store.AddFolder(ctx, library.FolderInput{Name: "reports"})
		if err != nil {
			t.Fatalf("AddFolder() error = %v", err)
		}
		item, err := fx.Store.AddItem(ctx, library.AddItemInput{
			Title: "report",
			Type:  model.TypePDF,
			Storage: model.StorageDescriptor{
				Mode:      model.ModeReference,
				LocalPath: "/data/inbox/report.pdf",
			},
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}

		updated, err := fx.Store.UpdateItem(ctx, item.ID, library.ItemPatch{FolderID: &folder.ID})
		if err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}

		moves := fx.Mover.Moves()
		if len(moves) != 1 {
			t.Fatalf("recorded %d moves, want 1", len(moves))
		}
		wantDst := "/srv/shelfkeep/files/" + folder.ID + "/report.pdf"
		if moves[0].Src != "/data/inbox/report.pdf" || moves[0].Dst != wantDst {
			t.Errorf("move = %+v, want %s -> %s", moves[0], "/data/inbox/report.pdf", wantDst)
		}
		if updated.Storage.LocalPath != wantDst {
			t.Errorf("LocalPath = %q, want %q", updated.Storage.LocalPath, wantDst)
		}
		if updated.FolderID != folder.ID {
			t.Errorf("FolderID = %q, want %q", updated.FolderID, folder.ID)
		}
	})

	t.Run("a failed move commits the folder but keeps the old path", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)
		fx.Mover.FailMoves = true

		folder, err := fx.Store.AddFolder(ctx, library.FolderInput{Name: "reports"})
		if err != nil {
			t.Fatalf("AddFolder() error = %v", err)
		}
		item, err := fx.Store.AddItem(ctx, library.AddItemInput{
			Title: "report",
			Type:  model.TypePDF,
			Storage: model.StorageDescriptor{
				Mode:      model.ModeReference,
				LocalPath: "/data/inbox/report.pdf",
			},
		})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}

		updated, err := fx.Store.UpdateItem(ctx, item.ID, library.ItemPatch{FolderID: &folder.ID})
		if err != nil {
			t.Fatalf("UpdateItem() error = %v", err)
		}
		if updated.FolderID != folder.ID {
			t.Errorf("FolderID = %q, want the assignment to commit", updated.FolderID)
		}
		if updated.Storage.LocalPath != "/data/inbox/report.pdf" {
			t.Errorf("LocalPath = %q, want the old path kept", updated.Storage.LocalPath)
		}
	})
}

func TestStore_DeleteItem(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the item and its secondary records", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t, "lexical")

		item, err := fx.Store.AddItem(ctx, library.AddItemInput{Title: "doc", Type: model.TypeDocument})
		if err != nil {
			t.Fatalf("AddItem() error = %v", err)
		}
		fx.Store.DrainEffects()

		if err := fx.Store.DeleteItem(ctx, item.ID); err != nil {
			t.Fatalf("DeleteItem() error = %v", err)
		}
		fx.Store.DrainEffects()

		if got := len(fx.Store.Items()); got != 0 {
			t.Errorf("len(Items()) = %d, want 0", got)
		}
		if _, ok := fx.Store.MTimes().Get(item.ID); ok {
			t.Error("mtime entry survived deletion")
		}
		rec, err := fx.Store.Shadow().Read(ctx, item.ID)
		if err != nil {
			t.Fatalf("Shadow().Read() error = %v", err)
		}
		if rec != nil {
			t.Error("shadow record survived deletion")
		}
		deleted := fx.Sinks[0].Deleted()
		if len(deleted) != 1 || deleted[0] != item.ID {
			t.Errorf("index deletes = %v, want [%s]", deleted, item.ID)
		}
	})

	t.Run("unknown identifier returns ErrUnknownID", func(t *testing.T) {
		fx := testutil.NewStoreFixture(t)

		if err := fx.Store.DeleteItem(ctx, "nope"); !errors.Is(err, library.ErrUnknownID) {
			t.Errorf("DeleteItem() error = %v, want ErrUnknownID", err)
		}
	})
}

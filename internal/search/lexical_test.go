package search_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"shelfkeep/internal/model"
	"shelfkeep/internal/search"
	"shelfkeep/internal/search/migrations"
)

func newIndexDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.MigrateUp(db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	return db
}

func meta(title string, tags ...string) model.IndexMetadata {
	return model.IndexMetadata{
		Title:     title,
		Type:      model.TypeDocument,
		Tags:      tags,
		CreatedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestLexicalIndex_Search(t *testing.T) {
	ctx := context.Background()
	idx := search.NewLexicalIndex(newIndexDB(t))

	docs := []struct {
		id, title, body string
		tags            []string
	}{
		{"itm-1", "Quarterly report", "numbers for the third quarter", []string{"work"}},
		{"itm-2", "Grocery list", "milk eggs bread", []string{"home"}},
		{"itm-3", "Report template", "blank quarterly template", nil},
	}
	for _, d := range docs {
		if err := idx.Index(ctx, d.id, d.body, meta(d.title, d.tags...)); err != nil {
			t.Fatalf("Index(%s) error = %v", d.id, err)
		}
	}

	t.Run("matches title and body", func(t *testing.T) {
		ids, err := idx.Search(ctx, "quarterly", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(ids) != 2 {
			t.Fatalf("Search() returned %d ids, want 2: %v", len(ids), ids)
		}
		for _, id := range ids {
			if id != "itm-1" && id != "itm-3" {
				t.Errorf("Search() returned unexpected id %s", id)
			}
		}
	})

	t.Run("matches tags", func(t *testing.T) {
		ids, err := idx.Search(ctx, "home", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(ids) != 1 || ids[0] != "itm-2" {
			t.Errorf("Search(home) = %v, want [itm-2]", ids)
		}
	})

	t.Run("no match", func(t *testing.T) {
		ids, err := idx.Search(ctx, "submarine", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(ids) != 0 {
			t.Errorf("Search(submarine) = %v, want empty", ids)
		}
	})

	t.Run("limit applies", func(t *testing.T) {
		ids, err := idx.Search(ctx, "quarterly", 1)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(ids) != 1 {
			t.Errorf("Search() with limit 1 returned %d ids", len(ids))
		}
	})
}

func TestLexicalIndex_Reindex(t *testing.T) {
	ctx := context.Background()
	idx := search.NewLexicalIndex(newIndexDB(t))

	if err := idx.Index(ctx, "itm-1", "old content about trains", meta("Trains")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := idx.Index(ctx, "itm-1", "new content about planes", meta("Planes")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}

	ids, err := idx.Search(ctx, "trains", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("old content still matches after reindex: %v", ids)
	}

	ids, err = idx.Search(ctx, "planes", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "itm-1" {
		t.Errorf("Search(planes) = %v, want [itm-1]", ids)
	}
}

func TestLexicalIndex_Delete(t *testing.T) {
	ctx := context.Background()
	idx := search.NewLexicalIndex(newIndexDB(t))

	if err := idx.Index(ctx, "itm-1", "findable text", meta("Findable")); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	if err := idx.Delete(ctx, "itm-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	ids, err := idx.Search(ctx, "findable", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Search() after delete = %v, want empty", ids)
	}

	// Deleting an absent id is a no-op.
	if err := idx.Delete(ctx, "itm-missing"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

package library_test

import (
	"testing"
	"time"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
	"shelfkeep/internal/testutil"
)

func TestSearchableText(t *testing.T) {
	tests := []struct {
		name     string
		item     model.ResourceItem
		tagNames []string
		want     string
	}{
		{
			name:     "all fields",
			item:     model.ResourceItem{Title: "report", Snippet: "q3 numbers", Description: "quarterly"},
			tagNames: []string{"work"},
			want:     "report\nq3 numbers\nquarterly\nwork",
		},
		{
			name: "blank fields are skipped",
			item: model.ResourceItem{Title: "report", Snippet: "   "},
			want: "report",
		},
		{
			name: "nothing searchable",
			item: model.ResourceItem{},
			want: "",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := library.SearchableText(&tc.item, tc.tagNames); got != tc.want {
				t.Errorf("SearchableText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIndexSynchronizer_IndexItem(t *testing.T) {
	t.Run("dispatches to every sink", func(t *testing.T) {
		effects := library.NewEffectsQueue(library.NewNopLogger())
		defer effects.Close()
		lexical := testutil.NewRecordingSink("lexical")
		semantic := testutil.NewRecordingSink("semantic")
		sync := library.NewIndexSynchronizer([]library.IndexSink{lexical, semantic}, effects, library.NewNopLogger())

		item := model.ResourceItem{ID: "it-1", Title: "report", Type: model.TypePDF, CreatedAt: time.Now()}
		sync.IndexItem(&item, []string{"work"})
		effects.Drain()

		for _, sink := range []*testutil.RecordingSink{lexical, semantic} {
			calls := sink.Indexed()
			if len(calls) != 1 {
				t.Fatalf("%s indexed %d times, want 1", sink.Name(), len(calls))
			}
			if calls[0].ID != "it-1" || calls[0].Meta.Title != "report" {
				t.Errorf("%s call = %+v, want item it-1", sink.Name(), calls[0])
			}
			if len(calls[0].Meta.Tags) != 1 || calls[0].Meta.Tags[0] != "work" {
				t.Errorf("%s meta tags = %v, want [work]", sink.Name(), calls[0].Meta.Tags)
			}
		}
	})

	t.Run("one failing sink does not affect the other", func(t *testing.T) {
		effects := library.NewEffectsQueue(library.NewNopLogger())
		defer effects.Close()
		failing := testutil.NewRecordingSink("semantic")
		failing.FailIndex = true
		healthy := testutil.NewRecordingSink("lexical")
		sync := library.NewIndexSynchronizer([]library.IndexSink{failing, healthy}, effects, library.NewNopLogger())

		item := model.ResourceItem{ID: "it-1", Title: "report"}
		sync.IndexItem(&item, nil)
		effects.Drain()

		if got := len(healthy.Indexed()); got != 1 {
			t.Errorf("healthy sink indexed %d times, want 1", got)
		}
	})

	t.Run("items with no searchable text are skipped", func(t *testing.T) {
		effects := library.NewEffectsQueue(library.NewNopLogger())
		defer effects.Close()
		sink := testutil.NewRecordingSink("lexical")
		sync := library.NewIndexSynchronizer([]library.IndexSink{sink}, effects, library.NewNopLogger())

		item := model.ResourceItem{ID: "it-1", Title: "   "}
		sync.IndexItem(&item, nil)
		effects.Drain()

		if got := len(sink.Indexed()); got != 0 {
			t.Errorf("indexed %d times, want 0 for empty text", got)
		}
	})
}

func TestIndexSynchronizer_RemoveItem(t *testing.T) {
	effects := library.NewEffectsQueue(library.NewNopLogger())
	defer effects.Close()
	lexical := testutil.NewRecordingSink("lexical")
	semantic := testutil.NewRecordingSink("semantic")
	semantic.FailDelete = true
	sync := library.NewIndexSynchronizer([]library.IndexSink{semantic, lexical}, effects, library.NewNopLogger())

	sync.RemoveItem("it-1")
	effects.Drain()

	deleted := lexical.Deleted()
	if len(deleted) != 1 || deleted[0] != "it-1" {
		t.Errorf("lexical deletes = %v, want [it-1] despite the semantic failure", deleted)
	}
}

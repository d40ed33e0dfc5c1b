package library_test

import (
	"testing"
	"time"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
)

func TestRecordFor(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	t.Run("projects a file item", func(t *testing.T) {
		item := &model.ResourceItem{
			ID:        "it-1",
			Title:     "report",
			Type:      model.TypePDF,
			TagIDs:    []string{"tg-1"},
			FolderID:  "fld-1",
			Color:     "red",
			Starred:   true,
			CreatedAt: created,
			UpdatedAt: updated,
			Storage: model.StorageDescriptor{
				Mode:        model.ModeEmbedded,
				LogicalPath: "files/fld-1/report.pdf",
				Size:        2048,
			},
		}
		rec := library.RecordFor(item)

		if rec.ID != "it-1" || rec.Name != "report" || rec.Size != 2048 {
			t.Errorf("record = %+v, want projected identity fields", rec)
		}
		if rec.Extension != "pdf" {
			t.Errorf("Extension = %q, want pdf", rec.Extension)
		}
		if len(rec.Folders) != 1 || rec.Folders[0] != "fld-1" {
			t.Errorf("Folders = %v, want [fld-1]", rec.Folders)
		}
		if rec.ModifiedAt != updated {
			t.Errorf("ModifiedAt = %v, want the update time", rec.ModifiedAt)
		}
		if rec.URL != "" {
			t.Errorf("URL = %q, want empty for a file item", rec.URL)
		}
	})

	t.Run("links carry their source URL", func(t *testing.T) {
		item := &model.ResourceItem{
			ID:    "it-2",
			Title: "docs site",
			Type:  model.TypeLink,
			Storage: model.StorageDescriptor{
				Mode:       model.ModeReference,
				SourcePath: "https://example.com/docs",
			},
		}
		rec := library.RecordFor(item)
		if rec.URL != "https://example.com/docs" {
			t.Errorf("URL = %q, want the source path", rec.URL)
		}
	})

	t.Run("uncategorized items have no folder list", func(t *testing.T) {
		rec := library.RecordFor(&model.ResourceItem{ID: "it-3", Title: "loose"})
		if rec.Folders != nil {
			t.Errorf("Folders = %v, want nil", rec.Folders)
		}
	})
}

package library

import (
	"context"
	"path"
	"strings"

	"shelfkeep/internal/model"
)

// ShadowWriter mirrors a subset of each item's fields into one record per
// item, independent of the aggregate. Writes are advisory: failures are
// logged and never roll back or block the primary mutation. A record that
// failed to write is retried on the next mutation of the same item.
type ShadowWriter struct {
	store  ShadowStore
	logger Logger
}

// NewShadowWriter creates a writer over the given store.
func NewShadowWriter(store ShadowStore, logger Logger) *ShadowWriter {
	return &ShadowWriter{store: store, logger: logger}
}

// Available reports whether the backend supports shadow records.
func (w *ShadowWriter) Available() bool {
	return w.store.Available()
}

// RecordFor projects an item into its shadow record shape.
func RecordFor(item *model.ResourceItem) *model.ItemMetadataRecord {
	rec := &model.ItemMetadataRecord{
		ID:          item.ID,
		Name:        item.Title,
		Type:        item.Type,
		Size:        item.Storage.Size,
		CreatedAt:   item.CreatedAt,
		ModifiedAt:  item.UpdatedAt,
		Extension:   extensionOf(item),
		Tags:        append([]string(nil), item.TagIDs...),
		Color:       item.Color,
		Starred:     item.Starred,
		Description: item.Description,
	}
	if item.FolderID != "" {
		rec.Folders = []string{item.FolderID}
	}
	if item.Type == model.TypeLink {
		rec.URL = item.Storage.SourcePath
	}
	return rec
}

// Save writes the shadow record for item. Best-effort.
func (w *ShadowWriter) Save(ctx context.Context, item *model.ResourceItem) {
	if !w.store.Available() {
		return
	}
	if err := w.store.Save(ctx, RecordFor(item)); err != nil {
		w.logger.Warn("shadow metadata write failed", "item", item.ID, "error", err)
	}
}

// Delete removes the shadow record for id. Best-effort.
func (w *ShadowWriter) Delete(ctx context.Context, id string) {
	if !w.store.Available() {
		return
	}
	if err := w.store.Delete(ctx, id); err != nil {
		w.logger.Warn("shadow metadata delete failed", "item", id, "error", err)
	}
}

// Read returns the stored record for id, or (nil, nil) when absent.
func (w *ShadowWriter) Read(ctx context.Context, id string) (*model.ItemMetadataRecord, error) {
	if !w.store.Available() {
		return nil, nil
	}
	return w.store.Read(ctx, id)
}

// extensionOf derives a file extension from the item's paths.
func extensionOf(item *model.ResourceItem) string {
	for _, p := range []string{item.Storage.LogicalPath, item.Storage.LocalPath, item.Storage.SourcePath} {
		if ext := path.Ext(p); ext != "" {
			return strings.TrimPrefix(ext, ".")
		}
	}
	return ""
}

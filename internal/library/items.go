package library

import (
	"context"
	"fmt"
	"time"

	"shelfkeep/internal/model"
)

// AddItemInput carries the caller-supplied fields for a new item. The store
// assigns identifier and timestamps.
type AddItemInput struct {
	Title       string
	Type        model.ItemType
	TagIDs      []string
	FolderID    string
	Color       string
	Starred     bool
	Storage     model.StorageDescriptor
	Snippet     string
	Description string
}

// ItemPatch is a partial update; nil fields are left untouched.
type ItemPatch struct {
	Title        *string
	Type         *model.ItemType
	TagIDs       *[]string
	FolderID     *string
	Color        *string
	Starred      *bool
	Snippet      *string
	Description  *string
	Summary      *string
	ThumbnailRef *string
}

// contentAffecting reports whether the patch touches a field that feeds the
// search indices.
func (p *ItemPatch) contentAffecting() bool {
	return p.Title != nil || p.Snippet != nil || p.Description != nil || p.TagIDs != nil
}

// Items returns a copy of the cached items, newest first, or nil before
// Initialize.
func (s *Store) Items() []model.ResourceItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	return copyLibrary(s.library).Items
}

// ItemByID returns a copy of one item, or (nil, false) when unknown.
func (s *Store) ItemByID(id string) (*model.ResourceItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil, false
	}
	for i := range s.library.Items {
		if s.library.Items[i].ID == id {
			item := s.library.Items[i]
			item.TagIDs = append([]string(nil), item.TagIDs...)
			return &item, true
		}
	}
	return nil, false
}

// AddItem creates a new item, prepends it to the list so newest-first
// ordering holds, schedules persistence, and fans out the best-effort
// shadow write and index dispatch. Returns the fully-formed item.
func (s *Store) AddItem(ctx context.Context, input AddItemInput) (*model.ResourceItem, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	typ := input.Type
	if !model.KnownType(typ) {
		typ = model.TypeUnknown
	}

	now := s.clock.Now()
	item := model.ResourceItem{
		ID:          s.idgen.New(),
		Title:       input.Title,
		Type:        typ,
		TagIDs:      dedupe(input.TagIDs),
		FolderID:    input.FolderID,
		Color:       input.Color,
		Starred:     input.Starred,
		CreatedAt:   now,
		UpdatedAt:   now,
		Storage:     input.Storage,
		Snippet:     input.Snippet,
		Description: input.Description,
	}

	s.mu.Lock()
	s.library.Items = append([]model.ResourceItem{item}, s.library.Items...)
	s.touchLocked()
	tagNames := s.tagNamesLocked(item.TagIDs)
	s.mu.Unlock()

	s.libScheduler.Schedule()
	s.mtimes.Update(ctx, item.ID)
	s.fanOutItem(&item, tagNames)

	out := item
	out.TagIDs = append([]string(nil), item.TagIDs...)
	return &out, nil
}

// UpdateItem merges the patch into the item and bumps its update timestamp.
// Unknown identifiers return ErrUnknownID and leave the cache unchanged.
//
// When the patch changes the folder assignment, the file is relocated before
// the path fields are persisted: a relocation failure leaves the old path
// fields intact while the folder assignment itself still commits.
func (s *Store) UpdateItem(ctx context.Context, id string, patch ItemPatch) (*model.ResourceItem, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := -1
	for i := range s.library.Items {
		if s.library.Items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("updating item %s: %w", id, ErrUnknownID)
	}
	item := &s.library.Items[idx]

	if patch.FolderID != nil && *patch.FolderID != item.FolderID {
		desc, err := s.relocator.Relocate(item, *patch.FolderID)
		if err != nil {
			// Accepted degradation: the assignment commits, the path
			// fields stay at their previous values.
			s.logger.Warn("relocation failed, keeping previous path", "item", id, "error", err)
		} else {
			item.Storage = desc
		}
		item.FolderID = *patch.FolderID
	}

	if patch.Title != nil {
		item.Title = *patch.Title
	}
	if patch.Type != nil && model.KnownType(*patch.Type) {
		item.Type = *patch.Type
	}
	if patch.TagIDs != nil {
		item.TagIDs = dedupe(*patch.TagIDs)
	}
	if patch.Color != nil {
		item.Color = *patch.Color
	}
	if patch.Starred != nil {
		item.Starred = *patch.Starred
	}
	if patch.Snippet != nil {
		item.Snippet = *patch.Snippet
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Summary != nil {
		item.Summary = *patch.Summary
	}
	if patch.ThumbnailRef != nil {
		item.ThumbnailRef = *patch.ThumbnailRef
	}

	// Update timestamp is strictly increasing even under a coarse clock.
	now := s.clock.Now()
	if !now.After(item.UpdatedAt) {
		now = item.UpdatedAt.Add(time.Millisecond)
	}
	item.UpdatedAt = now
	s.touchLocked()

	updated := *item
	updated.TagIDs = append([]string(nil), item.TagIDs...)
	tagNames := s.tagNamesLocked(updated.TagIDs)
	s.mu.Unlock()

	s.libScheduler.Schedule()
	s.mtimes.Update(ctx, id)

	itemCopy := updated
	s.effects.Enqueue("shadow:save", func(ctx context.Context) error {
		s.shadow.Save(ctx, &itemCopy)
		return nil
	})
	if patch.contentAffecting() {
		s.indexer.IndexItem(&itemCopy, tagNames)
	}

	return &updated, nil
}

// DeleteItem removes the item from the cache and schedules persistence; the
// shadow record and both index entries are removed best-effort.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	if err := s.checkReady(); err != nil {
		return err
	}

	s.mu.Lock()
	idx := -1
	for i := range s.library.Items {
		if s.library.Items[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("deleting item %s: %w", id, ErrUnknownID)
	}
	s.library.Items = append(s.library.Items[:idx], s.library.Items[idx+1:]...)
	s.touchLocked()
	s.mu.Unlock()

	s.libScheduler.Schedule()
	s.mtimes.Remove(ctx, id)
	s.effects.Enqueue("shadow:delete", func(ctx context.Context) error {
		s.shadow.Delete(ctx, id)
		return nil
	})
	s.indexer.RemoveItem(id)
	return nil
}

// fanOutItem enqueues the shadow write and index dispatch for a new or
// reshaped item.
func (s *Store) fanOutItem(item *model.ResourceItem, tagNames []string) {
	itemCopy := *item
	itemCopy.TagIDs = append([]string(nil), item.TagIDs...)
	s.effects.Enqueue("shadow:save", func(ctx context.Context) error {
		s.shadow.Save(ctx, &itemCopy)
		return nil
	})
	s.indexer.IndexItem(&itemCopy, tagNames)
}

// tagNamesLocked resolves tag identifiers to names. Caller holds s.mu.
func (s *Store) tagNamesLocked(tagIDs []string) []string {
	if len(tagIDs) == 0 {
		return nil
	}
	byID := make(map[string]string, len(s.library.Tags))
	for _, t := range s.library.Tags {
		byID[t.ID] = t.Name
	}
	names := make([]string, 0, len(tagIDs))
	for _, id := range tagIDs {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (s *Store) checkReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return fmt.Errorf("store not initialized")
	}
	return nil
}

// dedupe removes duplicate identifiers preserving first-seen order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

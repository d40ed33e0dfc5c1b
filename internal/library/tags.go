package library

import (
	"context"
	"fmt"

	"shelfkeep/internal/model"
)

// TagInput carries the caller-supplied fields for a new tag.
type TagInput struct {
	Name     string
	ParentID string
	Color    string
}

// TagPatch is a partial tag update; nil fields are left untouched.
type TagPatch struct {
	Name     *string
	ParentID *string
	Color    *string
}

// Tags returns a copy of the cached tag list, or nil before Initialize.
func (s *Store) Tags() []model.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	return append([]model.Tag(nil), s.library.Tags...)
}

// AddTag creates a tag. A parent identifier that does not exist is rejected.
func (s *Store) AddTag(ctx context.Context, input TagInput) (*model.Tag, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if input.ParentID != "" && !s.tagExistsLocked(input.ParentID) {
		s.mu.Unlock()
		return nil, fmt.Errorf("adding tag under %s: %w", input.ParentID, ErrUnknownID)
	}
	tag := model.Tag{
		ID:       s.idgen.New(),
		Name:     input.Name,
		ParentID: input.ParentID,
		Color:    input.Color,
	}
	s.library.Tags = append(s.library.Tags, tag)
	s.touchLocked()
	s.mu.Unlock()

	s.libScheduler.Schedule()
	return &tag, nil
}

// UpdateTag merges the patch into the tag.
func (s *Store) UpdateTag(ctx context.Context, id string, patch TagPatch) (*model.Tag, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := -1
	for i := range s.library.Tags {
		if s.library.Tags[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("updating tag %s: %w", id, ErrUnknownID)
	}
	tag := &s.library.Tags[idx]
	if patch.Name != nil {
		tag.Name = *patch.Name
	}
	if patch.ParentID != nil {
		tag.ParentID = *patch.ParentID
	}
	if patch.Color != nil {
		tag.Color = *patch.Color
	}
	s.touchLocked()
	out := *tag
	s.mu.Unlock()

	s.libScheduler.Schedule()
	return &out, nil
}

// DeleteTag removes the tag and every descendant tag, and strips all deleted
// identifiers from every item's tag set. Items whose tag sets changed get
// fresh change timestamps and are re-indexed, since tag names feed search.
func (s *Store) DeleteTag(ctx context.Context, id string) error {
	if err := s.checkReady(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.tagExistsLocked(id) {
		s.mu.Unlock()
		return fmt.Errorf("deleting tag %s: %w", id, ErrUnknownID)
	}

	children := make(map[string][]string, len(s.library.Tags))
	for _, t := range s.library.Tags {
		if t.ParentID != "" {
			children[t.ParentID] = append(children[t.ParentID], t.ID)
		}
	}
	doomed, err := collectDescendants(id, children)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("deleting tag %s: %w", id, err)
	}

	kept := s.library.Tags[:0]
	for _, t := range s.library.Tags {
		if !doomed[t.ID] {
			kept = append(kept, t)
		}
	}
	s.library.Tags = kept

	var touched []model.ResourceItem
	for i := range s.library.Items {
		item := &s.library.Items[i]
		filtered := item.TagIDs[:0]
		changed := false
		for _, tid := range item.TagIDs {
			if doomed[tid] {
				changed = true
				continue
			}
			filtered = append(filtered, tid)
		}
		if changed {
			item.TagIDs = filtered
			cp := *item
			cp.TagIDs = append([]string(nil), filtered...)
			touched = append(touched, cp)
		}
	}
	s.touchLocked()

	names := make(map[string][]string, len(touched))
	for _, item := range touched {
		names[item.ID] = s.tagNamesLocked(item.TagIDs)
	}
	s.mu.Unlock()

	s.libScheduler.Schedule()
	if len(touched) > 0 {
		ids := make([]string, len(touched))
		for i, item := range touched {
			ids[i] = item.ID
		}
		s.mtimes.UpdateBatch(ctx, ids)
		for i := range touched {
			s.fanOutItem(&touched[i], names[touched[i].ID])
		}
	}
	return nil
}

// RecomputeTagCounts recounts, for every tag, the number of items whose tag
// set contains it. Counts are denormalized on purpose: they go stale as
// items are mutated, and only this explicit operation makes them accurate.
// Callers decide when the O(items x tags) cost is worth paying.
func (s *Store) RecomputeTagCounts() error {
	if err := s.checkReady(); err != nil {
		return err
	}

	s.mu.Lock()
	counts := make(map[string]int, len(s.library.Tags))
	for _, item := range s.library.Items {
		for _, tid := range item.TagIDs {
			counts[tid]++
		}
	}
	for i := range s.library.Tags {
		s.library.Tags[i].Count = counts[s.library.Tags[i].ID]
	}
	s.touchLocked()
	s.mu.Unlock()

	s.libScheduler.Schedule()
	return nil
}

func (s *Store) tagExistsLocked(id string) bool {
	for _, t := range s.library.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

package library

import (
	"context"
	"fmt"

	"shelfkeep/internal/model"
)

// FolderInput carries the caller-supplied fields for a new folder.
type FolderInput struct {
	Name     string
	ParentID string
	Icon     string
}

// FolderPatch is a partial folder update; nil fields are left untouched.
type FolderPatch struct {
	Name     *string
	ParentID *string
	Icon     *string
}

// Folders returns a copy of the cached folder list, or nil before
// Initialize.
func (s *Store) Folders() []model.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return nil
	}
	return append([]model.Folder(nil), s.library.Folders...)
}

// AddFolder creates a folder. A parent identifier that does not exist is
// rejected.
func (s *Store) AddFolder(ctx context.Context, input FolderInput) (*model.Folder, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if input.ParentID != "" && !s.folderExistsLocked(input.ParentID) {
		s.mu.Unlock()
		return nil, fmt.Errorf("adding folder under %s: %w", input.ParentID, ErrUnknownID)
	}
	folder := model.Folder{
		ID:       s.idgen.New(),
		Name:     input.Name,
		ParentID: input.ParentID,
		Icon:     input.Icon,
	}
	s.library.Folders = append(s.library.Folders, folder)
	s.touchLocked()
	s.mu.Unlock()

	s.libScheduler.Schedule()
	return &folder, nil
}

// UpdateFolder merges the patch into the folder.
func (s *Store) UpdateFolder(ctx context.Context, id string, patch FolderPatch) (*model.Folder, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := -1
	for i := range s.library.Folders {
		if s.library.Folders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("updating folder %s: %w", id, ErrUnknownID)
	}
	folder := &s.library.Folders[idx]
	if patch.Name != nil {
		folder.Name = *patch.Name
	}
	if patch.ParentID != nil {
		folder.ParentID = *patch.ParentID
	}
	if patch.Icon != nil {
		folder.Icon = *patch.Icon
	}
	s.touchLocked()
	out := *folder
	s.mu.Unlock()

	s.libScheduler.Schedule()
	return &out, nil
}

// DeleteFolder removes the folder and every descendant folder. Items whose
// folder identifier is among the deleted set are reassigned to uncategorized
// (empty folder identifier), never left dangling. Files on disk stay where
// they are until the item is next moved.
func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	if err := s.checkReady(); err != nil {
		return err
	}

	s.mu.Lock()
	if !s.folderExistsLocked(id) {
		s.mu.Unlock()
		return fmt.Errorf("deleting folder %s: %w", id, ErrUnknownID)
	}

	children := make(map[string][]string, len(s.library.Folders))
	for _, f := range s.library.Folders {
		if f.ParentID != "" {
			children[f.ParentID] = append(children[f.ParentID], f.ID)
		}
	}
	doomed, err := collectDescendants(id, children)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("deleting folder %s: %w", id, err)
	}

	kept := s.library.Folders[:0]
	for _, f := range s.library.Folders {
		if !doomed[f.ID] {
			kept = append(kept, f)
		}
	}
	s.library.Folders = kept

	var touched []model.ResourceItem
	for i := range s.library.Items {
		if doomed[s.library.Items[i].FolderID] {
			s.library.Items[i].FolderID = ""
			cp := s.library.Items[i]
			cp.TagIDs = append([]string(nil), cp.TagIDs...)
			touched = append(touched, cp)
		}
	}
	s.touchLocked()
	s.mu.Unlock()

	s.libScheduler.Schedule()
	if len(touched) > 0 {
		ids := make([]string, len(touched))
		for i, item := range touched {
			ids[i] = item.ID
		}
		s.mtimes.UpdateBatch(ctx, ids)
		// Folder assignment feeds the shadow record but not the search
		// indices, so only the shadow half of the fan-out runs here.
		for i := range touched {
			item := touched[i]
			s.effects.Enqueue("shadow:save", func(ctx context.Context) error {
				s.shadow.Save(ctx, &item)
				return nil
			})
		}
	}
	return nil
}

func (s *Store) folderExistsLocked(id string) bool {
	for _, f := range s.library.Folders {
		if f.ID == id {
			return true
		}
	}
	return false
}

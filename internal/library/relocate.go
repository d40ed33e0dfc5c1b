package library

import (
	"fmt"
	"path/filepath"

	"shelfkeep/internal/model"
)

// UncategorizedDir is the folder key used for items without a folder.
const UncategorizedDir = "uncategorized"

// FolderRelocator moves an item's underlying file when its folder assignment
// changes. Target directories are keyed by the new folder identifier:
// <storage root>/files/<folderID>/<filename>, with UncategorizedDir standing
// in for the empty folder.
//
// Relocation is not transactional: on failure the caller keeps the old path
// fields while still committing the folder assignment, so the in-memory
// record and the on-disk file can disagree until the next successful move.
type FolderRelocator struct {
	mover       FileMover
	storageRoot string
	logger      Logger
}

// NewFolderRelocator creates a relocator rooted at storageRoot.
func NewFolderRelocator(mover FileMover, storageRoot string, logger Logger) *FolderRelocator {
	return &FolderRelocator{mover: mover, storageRoot: storageRoot, logger: logger}
}

// Relocate moves the item's file into the directory for newFolderID and
// returns the updated storage descriptor. Items without a local file are
// returned unchanged (web links, never-materialized references).
func (r *FolderRelocator) Relocate(item *model.ResourceItem, newFolderID string) (model.StorageDescriptor, error) {
	desc := item.Storage
	key := newFolderID
	if key == "" {
		key = UncategorizedDir
	}

	src := desc.LocalPath
	if src == "" && desc.Mode == model.ModeEmbedded && desc.LogicalPath != "" {
		src = filepath.Join(r.storageRoot, filepath.FromSlash(desc.LogicalPath))
	}
	if src == "" {
		return desc, nil
	}

	base := filepath.Base(src)
	dstDir := filepath.Join(r.storageRoot, "files", key)
	dst := filepath.Join(dstDir, base)
	if dst == src {
		return desc, nil
	}

	if err := r.mover.MkdirAll(dstDir); err != nil {
		return desc, fmt.Errorf("creating folder directory %s: %w", dstDir, err)
	}
	if err := r.mover.Move(src, dst); err != nil {
		return desc, fmt.Errorf("moving %s to %s: %w", src, dst, err)
	}

	desc.LocalPath = dst
	if desc.Mode == model.ModeEmbedded {
		desc.LogicalPath = filepath.ToSlash(filepath.Join("files", key, base))
	}
	r.logger.Debug("file relocated", "item", item.ID, "dest", dst)
	return desc, nil
}

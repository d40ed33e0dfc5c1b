package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
)

// Artifact names under the storage root.
const (
	libraryFile  = "library.json"
	settingsFile = "settings.json"
	mtimesFile   = "mtimes.json"
	legacyFile   = "legacy.json"
	metadataDir  = "metadata"
	backupsDir   = "backups"
)

// FilesystemAdapter is the privileged persistence environment: every
// artifact is a file under one root directory.
//
//	<root>/
//	  library.json     (primary aggregate)
//	  settings.json
//	  mtimes.json
//	  legacy.json      (pre-aggregate flat layout, read once by migration)
//	  metadata/<itemID>.json
//	  backups/<timestamp>.json[.age]
//	  files/<folderID>/...
//
// All writes go through a temp file + rename so a crash mid-write never
// leaves a truncated artifact.
type FilesystemAdapter struct {
	root string
}

var _ library.PersistenceAdapter = (*FilesystemAdapter)(nil)

// NewFilesystemAdapter creates an adapter rooted at the given directory,
// creating the directory structure as needed.
func NewFilesystemAdapter(root string) (*FilesystemAdapter, error) {
	for _, dir := range []string{root, filepath.Join(root, metadataDir), filepath.Join(root, backupsDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &FilesystemAdapter{root: root}, nil
}

// Root returns the storage root directory.
func (a *FilesystemAdapter) Root() string { return a.root }

func (a *FilesystemAdapter) LoadLibrary(ctx context.Context) (*model.LibraryDocument, error) {
	var doc model.LibraryDocument
	found, err := a.readJSON(libraryFile, &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

func (a *FilesystemAdapter) SaveLibrary(ctx context.Context, doc *model.LibraryDocument) error {
	return a.writeJSON(libraryFile, doc)
}

func (a *FilesystemAdapter) LoadSettings(ctx context.Context) (*model.SettingsDocument, error) {
	var doc model.SettingsDocument
	found, err := a.readJSON(settingsFile, &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

func (a *FilesystemAdapter) SaveSettings(ctx context.Context, doc *model.SettingsDocument) error {
	return a.writeJSON(settingsFile, doc)
}

// LoadLegacy reads the flat pre-aggregate layout: one JSON object whose
// top-level keys are the legacy key names.
func (a *FilesystemAdapter) LoadLegacy(ctx context.Context) (*model.LegacyPayload, error) {
	var keys map[string]json.RawMessage
	found, err := a.readJSON(legacyFile, &keys)
	if err != nil || !found {
		return nil, err
	}
	return &model.LegacyPayload{Keys: keys}, nil
}

func (a *FilesystemAdapter) Migrate(ctx context.Context, legacy *model.LegacyPayload) (*model.LibraryDocument, *model.SettingsDocument, error) {
	if legacy.Empty() {
		return nil, nil, fmt.Errorf("nothing to migrate: legacy payload is empty")
	}
	lib, set := library.DocumentsFromLegacy(legacy)
	return lib, set, nil
}

func (a *FilesystemAdapter) Shadow() library.ShadowStore  { return &fsShadowStore{a} }
func (a *FilesystemAdapter) Backups() library.BackupStore { return &fsBackupStore{a} }
func (a *FilesystemAdapter) MTimes() library.MTimeStore   { return &fsMTimeStore{a} }

// readJSON decodes the named artifact. Returns (false, nil) when absent.
func (a *FilesystemAdapter) readJSON(name string, into any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(a.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, into); err != nil {
		return false, fmt.Errorf("decoding %s: %w", name, err)
	}
	return true, nil
}

// writeJSON atomically replaces the named artifact.
func (a *FilesystemAdapter) writeJSON(name string, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return atomicWrite(filepath.Join(a.root, name), data)
}

// atomicWrite writes data to path via a temp file in the same directory
// followed by a rename.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// fsShadowStore keeps one JSON file per item under metadata/.
type fsShadowStore struct {
	a *FilesystemAdapter
}

func (s *fsShadowStore) Available() bool { return true }

func (s *fsShadowStore) Save(ctx context.Context, rec *model.ItemMetadataRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding metadata record: %w", err)
	}
	return atomicWrite(filepath.Join(s.a.root, metadataDir, rec.ID+".json"), data)
}

func (s *fsShadowStore) Read(ctx context.Context, id string) (*model.ItemMetadataRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.a.root, metadataDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading metadata record: %w", err)
	}
	var rec model.ItemMetadataRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding metadata record: %w", err)
	}
	return &rec, nil
}

func (s *fsShadowStore) Delete(ctx context.Context, id string) error {
	err := os.Remove(filepath.Join(s.a.root, metadataDir, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting metadata record: %w", err)
	}
	return nil
}

// fsBackupStore keeps one file per snapshot under backups/.
type fsBackupStore struct {
	a *FilesystemAdapter
}

func (s *fsBackupStore) Available() bool { return true }

func (s *fsBackupStore) Write(ctx context.Context, name string, data []byte) error {
	return atomicWrite(filepath.Join(s.a.root, backupsDir, name), data)
}

func (s *fsBackupStore) Read(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.a.root, backupsDir, name))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	return data, nil
}

func (s *fsBackupStore) List(ctx context.Context) ([]library.BackupInfo, error) {
	entries, err := os.ReadDir(filepath.Join(s.a.root, backupsDir))
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	infos := make([]library.BackupInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, library.BackupInfo{
			Name:      e.Name(),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime(),
		})
	}
	// Snapshot names start with a sortable UTC timestamp.
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name > infos[j].Name })
	return infos, nil
}

func (s *fsBackupStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(filepath.Join(s.a.root, backupsDir, name)); err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	return nil
}

// fsMTimeStore persists the change-timestamp index as mtimes.json.
type fsMTimeStore struct {
	a *FilesystemAdapter
}

func (s *fsMTimeStore) Available() bool { return true }

func (s *fsMTimeStore) Load(ctx context.Context) (*model.MTimeIndex, error) {
	var idx model.MTimeIndex
	found, err := s.a.readJSON(mtimesFile, &idx)
	if err != nil || !found {
		return nil, err
	}
	return &idx, nil
}

func (s *fsMTimeStore) Save(ctx context.Context, idx *model.MTimeIndex) error {
	return s.a.writeJSON(mtimesFile, idx)
}

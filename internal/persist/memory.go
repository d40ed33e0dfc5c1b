package persist

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
)

// MemoryAdapter is an in-memory implementation of the full adapter surface,
// secondary stores included. It is used by tests and by the "memory"
// storage type. Safe for concurrent use.
//
// SaveLibraryCalls/SaveSettingsCalls count adapter writes so tests can
// assert debounce coalescing.
type MemoryAdapter struct {
	mu sync.Mutex

	library  *model.LibraryDocument
	settings *model.SettingsDocument
	legacy   *model.LegacyPayload
	mtimes   *model.MTimeIndex
	shadow   map[string]*model.ItemMetadataRecord
	backups  map[string][]byte

	SaveLibraryCalls  int
	SaveSettingsCalls int

	// FailSaves makes every aggregate save fail, for error-path tests.
	FailSaves bool
	// FailMigrate makes Migrate fail, for migration fallback tests.
	FailMigrate bool
}

var _ library.PersistenceAdapter = (*MemoryAdapter)(nil)

// NewMemoryAdapter creates an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		shadow:  make(map[string]*model.ItemMetadataRecord),
		backups: make(map[string][]byte),
	}
}

// SeedLegacy installs a legacy payload for migration tests.
func (a *MemoryAdapter) SeedLegacy(p *model.LegacyPayload) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.legacy = p
}

func (a *MemoryAdapter) LoadLibrary(ctx context.Context) (*model.LibraryDocument, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.library, nil
}

func (a *MemoryAdapter) SaveLibrary(ctx context.Context, doc *model.LibraryDocument) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailSaves {
		return fmt.Errorf("simulated save failure")
	}
	a.library = doc
	a.SaveLibraryCalls++
	return nil
}

func (a *MemoryAdapter) LoadSettings(ctx context.Context) (*model.SettingsDocument, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings, nil
}

func (a *MemoryAdapter) SaveSettings(ctx context.Context, doc *model.SettingsDocument) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.FailSaves {
		return fmt.Errorf("simulated save failure")
	}
	a.settings = doc
	a.SaveSettingsCalls++
	return nil
}

func (a *MemoryAdapter) LoadLegacy(ctx context.Context) (*model.LegacyPayload, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.legacy, nil
}

func (a *MemoryAdapter) Migrate(ctx context.Context, legacy *model.LegacyPayload) (*model.LibraryDocument, *model.SettingsDocument, error) {
	a.mu.Lock()
	fail := a.FailMigrate
	a.mu.Unlock()
	if fail {
		return nil, nil, fmt.Errorf("simulated migration failure")
	}
	if legacy.Empty() {
		return nil, nil, fmt.Errorf("nothing to migrate: legacy payload is empty")
	}
	lib, set := library.DocumentsFromLegacy(legacy)
	return lib, set, nil
}

func (a *MemoryAdapter) Shadow() library.ShadowStore  { return &memShadowStore{a} }
func (a *MemoryAdapter) Backups() library.BackupStore { return &memBackupStore{a} }
func (a *MemoryAdapter) MTimes() library.MTimeStore   { return &memMTimeStore{a} }

type memShadowStore struct {
	a *MemoryAdapter
}

func (s *memShadowStore) Available() bool { return true }

func (s *memShadowStore) Save(ctx context.Context, rec *model.ItemMetadataRecord) error {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	cp := *rec
	s.a.shadow[rec.ID] = &cp
	return nil
}

func (s *memShadowStore) Read(ctx context.Context, id string) (*model.ItemMetadataRecord, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	rec, ok := s.a.shadow[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *memShadowStore) Delete(ctx context.Context, id string) error {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	delete(s.a.shadow, id)
	return nil
}

type memBackupStore struct {
	a *MemoryAdapter
}

func (s *memBackupStore) Available() bool { return true }

func (s *memBackupStore) Write(ctx context.Context, name string, data []byte) error {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	s.a.backups[name] = append([]byte(nil), data...)
	return nil
}

func (s *memBackupStore) Read(ctx context.Context, name string) ([]byte, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	data, ok := s.a.backups[name]
	if !ok {
		return nil, fmt.Errorf("snapshot not found: %s", name)
	}
	return append([]byte(nil), data...), nil
}

func (s *memBackupStore) List(ctx context.Context) ([]library.BackupInfo, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	infos := make([]library.BackupInfo, 0, len(s.a.backups))
	for name, data := range s.a.backups {
		infos = append(infos, library.BackupInfo{Name: name, Size: int64(len(data))})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name > infos[j].Name })
	return infos, nil
}

func (s *memBackupStore) Delete(ctx context.Context, name string) error {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	if _, ok := s.a.backups[name]; !ok {
		return fmt.Errorf("snapshot not found: %s", name)
	}
	delete(s.a.backups, name)
	return nil
}

type memMTimeStore struct {
	a *MemoryAdapter
}

func (s *memMTimeStore) Available() bool { return true }

func (s *memMTimeStore) Load(ctx context.Context) (*model.MTimeIndex, error) {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	return s.a.mtimes, nil
}

func (s *memMTimeStore) Save(ctx context.Context, idx *model.MTimeIndex) error {
	s.a.mu.Lock()
	defer s.a.mu.Unlock()
	s.a.mtimes = idx
	return nil
}

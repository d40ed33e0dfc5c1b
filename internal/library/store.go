package library

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shelfkeep/internal/model"
)

// Options tunes store behavior. Zero values fall back to defaults.
type Options struct {
	DebounceWindow    time.Duration
	BackupMinInterval time.Duration
	BackupKeep        int
	StorageRoot       string
	RecentFilesMax    int
}

// DefaultRecentFilesMax bounds the settings recent-file list.
const DefaultRecentFilesMax = 20

// Store is the façade over the whole persistence subsystem: it owns the
// in-memory library and settings caches and is the only component callers
// talk to. Every mutation updates the cache synchronously under the store
// mutex, then fans out to the debounced writer, the mtime tracker, the
// relocator, and the best-effort shadow/index effects.
//
// Reads return copies; collaborators never see the live cache.
type Store struct {
	adapter PersistenceAdapter
	logger  Logger
	clock   Clock
	idgen   IDGenerator

	libScheduler *WriteScheduler
	setScheduler *WriteScheduler
	mtimes       *MTimeTracker
	backups      *BackupManager
	shadow       *ShadowWriter
	relocator    *FolderRelocator
	indexer      *IndexSynchronizer
	effects      *EffectsQueue

	recentMax int

	mu       sync.Mutex
	library  *model.LibraryDocument
	settings *model.SettingsDocument
	ready    bool
}

// NewStore wires a store from its dependencies. sinks may be empty (search
// disabled) and encryptor may be nil (plaintext backups). Call Initialize
// before any other operation and Close at shutdown.
func NewStore(adapter PersistenceAdapter, sinks []IndexSink, mover FileMover, encryptor Encryptor, logger Logger, clock Clock, idgen IDGenerator, opts Options) *Store {
	if opts.RecentFilesMax <= 0 {
		opts.RecentFilesMax = DefaultRecentFilesMax
	}

	effects := NewEffectsQueue(logger)
	s := &Store{
		adapter:   adapter,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		effects:   effects,
		mtimes:    NewMTimeTracker(adapter.MTimes(), clock, logger),
		backups:   NewBackupManager(adapter.Backups(), encryptor, clock, logger, opts.BackupMinInterval, opts.BackupKeep),
		shadow:    NewShadowWriter(adapter.Shadow(), logger),
		relocator: NewFolderRelocator(mover, opts.StorageRoot, logger),
		indexer:   NewIndexSynchronizer(sinks, effects, logger),
		recentMax: opts.RecentFilesMax,
	}
	s.libScheduler = NewWriteScheduler("library", opts.DebounceWindow, s.writeLibrary, logger)
	s.setScheduler = NewWriteScheduler("settings", opts.DebounceWindow, s.writeSettings, logger)
	return s
}

// Initialize loads the aggregates, migrating legacy data or seeding defaults
// when nothing is found. A second call is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	lib, err := s.adapter.LoadLibrary(ctx)
	if err != nil {
		return fmt.Errorf("loading library: %w", err)
	}

	var set *model.SettingsDocument
	if lib == nil {
		legacy, err := s.adapter.LoadLegacy(ctx)
		if err != nil {
			s.logger.Warn("legacy probe failed", "error", err)
		}
		if !legacy.Empty() {
			res := NewMigrationEngine(s.adapter, s.logger).Run(ctx, legacy)
			lib, set = res.Library, res.Settings
		} else {
			lib = SeedLibrary()
		}
	}

	if set == nil {
		set, err = s.adapter.LoadSettings(ctx)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if set == nil {
			set = SeedSettings()
		}
	}

	if err := s.mtimes.Load(ctx); err != nil {
		s.logger.Warn("mtime index unavailable, starting empty", "error", err)
	}

	s.mu.Lock()
	s.library = lib
	s.settings = set
	s.ready = true
	s.mu.Unlock()

	s.logger.Info("store initialized", "items", len(lib.Items), "tags", len(lib.Tags), "folders", len(lib.Folders))
	return nil
}

// writeLibrary serializes the current cache state. Used by the scheduler, so
// the persisted document always reflects the cache at fire time.
func (s *Store) writeLibrary(ctx context.Context) error {
	s.mu.Lock()
	doc := copyLibrary(s.library)
	s.mu.Unlock()
	return s.adapter.SaveLibrary(ctx, doc)
}

func (s *Store) writeSettings(ctx context.Context) error {
	s.mu.Lock()
	doc := copySettings(s.settings)
	s.mu.Unlock()
	return s.adapter.SaveSettings(ctx, doc)
}

// Flush forces both schedulers to execute immediately and waits for them.
// Use at shutdown or before reading artifacts back from storage.
func (s *Store) Flush(ctx context.Context) error {
	var firstErr error
	if err := s.libScheduler.Flush(ctx); err != nil {
		firstErr = fmt.Errorf("flushing library: %w", err)
	}
	if err := s.setScheduler.Flush(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("flushing settings: %w", err)
	}
	return firstErr
}

// Close flushes pending writes and drains the background effects queue.
func (s *Store) Close() error {
	err := s.Flush(context.Background())
	s.effects.Close()
	return err
}

// DrainEffects blocks until every background effect enqueued so far has
// run. Callers use it before reading the shadow store or indices back.
func (s *Store) DrainEffects() { s.effects.Drain() }

// Backups exposes the backup manager for the host to call around risky
// batch operations.
func (s *Store) Backups() *BackupManager { return s.backups }

// MTimes exposes the change-timestamp tracker.
func (s *Store) MTimes() *MTimeTracker { return s.mtimes }

// Shadow exposes read access to the shadow metadata store.
func (s *Store) Shadow() *ShadowWriter { return s.shadow }

// Snapshot builds a backup snapshot of the current cache.
func (s *Store) Snapshot() (*model.BackupSnapshot, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	doc := copyLibrary(s.library)
	return &model.BackupSnapshot{
		CreatedAt: s.clock.Now(),
		Version:   doc.Version,
		ItemCount: len(doc.Items),
		Items:     doc.Items,
		Tags:      doc.Tags,
		Folders:   doc.Folders,
	}, nil
}

// InstallSnapshot replaces the cached library with a restored snapshot and
// schedules persistence. The secondary stores are not rebuilt here; they
// converge as items are mutated again.
func (s *Store) InstallSnapshot(snap *model.BackupSnapshot) {
	s.mu.Lock()
	s.library = &model.LibraryDocument{
		Version:      model.LibrarySchemaVersion,
		LastModified: s.clock.Now(),
		Items:        append([]model.ResourceItem(nil), snap.Items...),
		Tags:         append([]model.Tag(nil), snap.Tags...),
		Folders:      append([]model.Folder(nil), snap.Folders...),
	}
	s.mu.Unlock()
	s.libScheduler.Schedule()
	s.logger.Info("snapshot installed", "items", len(snap.Items))
}

// RestoreBackup reads the named snapshot and installs it into the live
// cache. BackupManager only hands back the payload; installation lives here.
func (s *Store) RestoreBackup(ctx context.Context, name string, dec DecryptionContext) error {
	snap, err := s.backups.Restore(ctx, name, dec)
	if err != nil {
		return err
	}
	s.InstallSnapshot(snap)
	return nil
}

// touch advances the aggregate's last-modified time under s.mu.
func (s *Store) touchLocked() {
	s.library.LastModified = s.clock.Now()
}

// copyLibrary deep-copies the slices of a library document. Item structs are
// value types whose inner slices (TagIDs) are also copied so cache mutations
// never leak into snapshots already handed out.
func copyLibrary(doc *model.LibraryDocument) *model.LibraryDocument {
	out := &model.LibraryDocument{
		Version:      doc.Version,
		LastModified: doc.LastModified,
		Items:        make([]model.ResourceItem, len(doc.Items)),
		Tags:         append([]model.Tag(nil), doc.Tags...),
		Folders:      append([]model.Folder(nil), doc.Folders...),
	}
	for i, item := range doc.Items {
		item.TagIDs = append([]string(nil), item.TagIDs...)
		out.Items[i] = item
	}
	return out
}

func copySettings(doc *model.SettingsDocument) *model.SettingsDocument {
	out := *doc
	out.RecentFiles = append([]string(nil), doc.RecentFiles...)
	out.FavoriteFolders = append([]string(nil), doc.FavoriteFolders...)
	out.ActiveFilter.Types = append([]model.ItemType(nil), doc.ActiveFilter.Types...)
	out.ActiveFilter.TagIDs = append([]string(nil), doc.ActiveFilter.TagIDs...)
	return &out
}

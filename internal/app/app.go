package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"shelfkeep/internal/config"
	"shelfkeep/internal/encryption"
	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
	"shelfkeep/internal/persist"
	"shelfkeep/internal/search"
)

// App is the host layer between the CLI and the library store. It constructs
// all dependencies from config, exposes high-level operations, and manages
// the store and index DB lifecycle on Close.
type App struct {
	cfg       *config.Config
	store     *library.Store
	indexDB   *sql.DB
	encryptor library.Encryptor
	logFile   *os.File
}

// New creates a fully wired App from the given config. The caller must call
// Close when done.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	sessionID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, sessionID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	adapter, err := persist.Probe(ctx, cfg.Storage, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating storage adapter: %w", err)
	}

	indexDB, sinks, err := search.Open(cfg.Index, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		indexDB.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	store := library.NewStore(adapter, sinks, persist.NewOSFileMover(), enc, logger, library.RealClock{}, library.UUIDGenerator{}, library.Options{
		DebounceWindow:    time.Duration(cfg.Library.DebounceMillis) * time.Millisecond,
		BackupMinInterval: time.Duration(cfg.Backup.MinIntervalSecs) * time.Second,
		BackupKeep:        cfg.Backup.Keep,
		StorageRoot:       cfg.Storage.Root,
		RecentFilesMax:    cfg.Library.RecentFilesMax,
	})
	if err := store.Initialize(ctx); err != nil {
		indexDB.Close()
		logFile.Close()
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	return &App{
		cfg:       cfg,
		store:     store,
		indexDB:   indexDB,
		encryptor: enc,
		logFile:   logFile,
	}, nil
}

// Store exposes the library store for direct operations.
func (a *App) Store() *library.Store { return a.store }

// Encryptor exposes the configured backup encryptor; nil when disabled.
func (a *App) Encryptor() library.Encryptor { return a.encryptor }

// SearchLexical runs a full-text query against the lexical index and
// resolves the matched IDs to items still present in the library.
func (a *App) SearchLexical(ctx context.Context, query string, limit int) ([]model.ResourceItem, error) {
	idx := search.NewLexicalIndex(a.indexDB)
	ids, err := idx.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var items []model.ResourceItem
	for _, id := range ids {
		if item, ok := a.store.ItemByID(id); ok {
			items = append(items, *item)
		}
	}
	return items, nil
}

// CreateBackup takes a manual snapshot of the current library.
func (a *App) CreateBackup(ctx context.Context) (string, error) {
	snap, err := a.store.Snapshot()
	if err != nil {
		return "", err
	}
	return a.store.Backups().Create(ctx, snap)
}

// RestoreBackup decrypts (when needed) and installs the named snapshot. The
// passphrase is only used for encrypted snapshots.
func (a *App) RestoreBackup(ctx context.Context, name string, passphrase string) error {
	var dec library.DecryptionContext
	if a.encryptor != nil && a.encryptor.IsConfigured() {
		var err error
		dec, err = a.encryptor.Unlock(passphrase)
		if err != nil {
			return fmt.Errorf("unlocking encryption key: %w", err)
		}
	}
	return a.store.RestoreBackup(ctx, name, dec)
}

// Close flushes pending writes and releases all resources.
func (a *App) Close() error {
	firstErr := a.store.Close()

	if err := a.indexDB.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing index database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

package library

import (
	"context"
	"errors"
	"io"
	"time"

	"shelfkeep/internal/model"
)

// ErrUnknownID is returned by update/delete operations when the identifier
// does not exist in the cache.
var ErrUnknownID = errors.New("unknown identifier")

// ErrNotSupported is returned by secondary stores on backends that cannot
// provide them. Callers must check Available() before relying on a store.
var ErrNotSupported = errors.New("not supported by this storage backend")

// PersistenceAdapter loads and saves the two aggregate documents over a
// concrete storage environment. Load methods return (nil, nil) when the
// artifact does not exist yet.
//
// Migrate turns a harvested legacy flat key-value payload into fully-formed
// aggregates. It must not persist anything itself; installing and saving the
// results is the caller's job.
type PersistenceAdapter interface {
	LoadLibrary(ctx context.Context) (*model.LibraryDocument, error)
	SaveLibrary(ctx context.Context, doc *model.LibraryDocument) error
	LoadSettings(ctx context.Context) (*model.SettingsDocument, error)
	SaveSettings(ctx context.Context, doc *model.SettingsDocument) error

	// LoadLegacy harvests the legacy flat key-value layout, if present.
	// Returns (nil, nil) when there is no legacy data.
	LoadLegacy(ctx context.Context) (*model.LegacyPayload, error)
	Migrate(ctx context.Context, legacy *model.LegacyPayload) (*model.LibraryDocument, *model.SettingsDocument, error)

	// Secondary stores. Restricted backends return stores whose
	// Available() is false and whose operations fail with ErrNotSupported.
	Shadow() ShadowStore
	Backups() BackupStore
	MTimes() MTimeStore
}

// ShadowStore holds one metadata record per item, outside the aggregate.
type ShadowStore interface {
	Available() bool
	Save(ctx context.Context, rec *model.ItemMetadataRecord) error
	// Read returns (nil, nil) when no record exists for id.
	Read(ctx context.Context, id string) (*model.ItemMetadataRecord, error)
	Delete(ctx context.Context, id string) error
}

// BackupInfo describes one stored snapshot.
type BackupInfo struct {
	Name      string
	Size      int64
	CreatedAt time.Time
}

// BackupStore holds full library snapshots, one artifact per backup.
type BackupStore interface {
	Available() bool
	Write(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	// List returns snapshots sorted newest first.
	List(ctx context.Context) ([]BackupInfo, error)
	Delete(ctx context.Context, name string) error
}

// MTimeStore persists the change-timestamp index as its own artifact.
type MTimeStore interface {
	Available() bool
	// Load returns (nil, nil) when no index has been persisted yet.
	Load(ctx context.Context) (*model.MTimeIndex, error)
	Save(ctx context.Context, idx *model.MTimeIndex) error
}

// IndexSink is one external search index, used write-only. Ranking and
// querying are the collaborator's concern.
type IndexSink interface {
	Name() string
	Index(ctx context.Context, id string, text string, meta model.IndexMetadata) error
	Delete(ctx context.Context, id string) error
}

// FileMover abstracts the filesystem operations the relocator needs, so
// relocation logic is testable without touching the real filesystem.
type FileMover interface {
	MkdirAll(dir string) error
	Move(src, dst string) error
}

// Encryptor encrypts backup snapshots. Decryption requires unlocking with a
// passphrase first, which yields a DecryptionContext.
type Encryptor interface {
	Setup(passphrase string) error
	IsConfigured() bool
	Encrypt(r io.Reader, w io.Writer) error
	Unlock(passphrase string) (DecryptionContext, error)
}

// DecryptionContext holds an unlocked identity for decrypting snapshots.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

package library

import (
	"context"
	"encoding/json"

	"shelfkeep/internal/model"
)

// MigrationEngine performs the one-time conversion from the legacy flat
// key-value layout to the aggregate format. It runs only when Initialize
// finds no library aggregate; once an aggregate exists the engine is never
// consulted again, which is what makes the migration idempotent.
type MigrationEngine struct {
	adapter PersistenceAdapter
	logger  Logger
}

// NewMigrationEngine creates an engine over the given adapter.
func NewMigrationEngine(adapter PersistenceAdapter, logger Logger) *MigrationEngine {
	return &MigrationEngine{adapter: adapter, logger: logger}
}

// MigrationResult carries the converted aggregates. Persisted is false when
// the adapter migration or the follow-up saves failed and the documents
// exist only in memory for this session.
type MigrationResult struct {
	Library   *model.LibraryDocument
	Settings  *model.SettingsDocument
	Persisted bool
}

// Run converts the legacy payload. On adapter success both documents are
// persisted; on any failure the legacy payload is decoded best-effort into
// in-memory-only documents so the session stays usable, and nothing partial
// is ever written.
func (e *MigrationEngine) Run(ctx context.Context, legacy *model.LegacyPayload) *MigrationResult {
	lib, set, err := e.adapter.Migrate(ctx, legacy)
	if err != nil {
		e.logger.Error("legacy migration failed, continuing with in-memory data only", "error", err)
		lib, set = DocumentsFromLegacy(legacy)
		return &MigrationResult{Library: lib, Settings: set, Persisted: false}
	}

	persisted := true
	if err := e.adapter.SaveLibrary(ctx, lib); err != nil {
		e.logger.Error("persisting migrated library failed", "error", err)
		persisted = false
	}
	if err := e.adapter.SaveSettings(ctx, set); err != nil {
		e.logger.Error("persisting migrated settings failed", "error", err)
		persisted = false
	}
	if persisted {
		e.logger.Info("legacy data migrated", "items", len(lib.Items), "tags", len(lib.Tags), "folders", len(lib.Folders))
	}
	return &MigrationResult{Library: lib, Settings: set, Persisted: persisted}
}

// DocumentsFromLegacy decodes a legacy flat payload into fully-formed
// aggregate documents. Unknown or malformed keys are skipped; the result is
// always usable. Adapters build their Migrate on top of this so both
// environments convert identically.
func DocumentsFromLegacy(legacy *model.LegacyPayload) (*model.LibraryDocument, *model.SettingsDocument) {
	lib := SeedLibrary()
	set := SeedSettings()
	if legacy.Empty() {
		return lib, set
	}

	decode := func(key string, into any) bool {
		raw, ok := legacy.Keys[key]
		if !ok {
			return false
		}
		return json.Unmarshal(raw, into) == nil
	}

	decode(model.LegacyKeyItems, &lib.Items)
	decode(model.LegacyKeyTags, &lib.Tags)
	decode(model.LegacyKeyFolders, &lib.Folders)

	decode(model.LegacyKeyColorMode, &set.ColorMode)
	decode(model.LegacyKeyTheme, &set.Theme)
	decode(model.LegacyKeyLocale, &set.Locale)
	decode(model.LegacyKeyStorageRoot, &set.StorageRoot)
	decode(model.LegacyKeyDefaultView, &set.DefaultView)
	decode(model.LegacyKeyActiveFilter, &set.ActiveFilter)
	decode(model.LegacyKeyRecentFiles, &set.RecentFiles)
	decode(model.LegacyKeyFavoriteFolders, &set.FavoriteFolders)

	return lib, set
}

// SeedLibrary returns the default empty library aggregate.
func SeedLibrary() *model.LibraryDocument {
	return &model.LibraryDocument{
		Version: model.LibrarySchemaVersion,
		Items:   []model.ResourceItem{},
		Tags:    []model.Tag{},
		Folders: []model.Folder{},
	}
}

// SeedSettings returns the default settings document.
func SeedSettings() *model.SettingsDocument {
	return &model.SettingsDocument{
		Version:     model.SettingsSchemaVersion,
		ColorMode:   "system",
		Theme:       "default",
		Locale:      "en",
		DefaultView: "grid",
	}
}

package model

import "encoding/json"

// LegacyPayload is the flat key-value layout used before the aggregate
// format existed: one key per collection ("items", "tags", "folders") and
// one key per settings field. It is harvested once during migration and
// never written back.
type LegacyPayload struct {
	Keys map[string]json.RawMessage `json:"keys"`
}

// Legacy key names.
const (
	LegacyKeyItems           = "items"
	LegacyKeyTags            = "tags"
	LegacyKeyFolders         = "folders"
	LegacyKeyColorMode       = "colorMode"
	LegacyKeyTheme           = "theme"
	LegacyKeyLocale          = "locale"
	LegacyKeyStorageRoot     = "storageRoot"
	LegacyKeyDefaultView     = "defaultView"
	LegacyKeyActiveFilter    = "activeFilter"
	LegacyKeyRecentFiles     = "recentFiles"
	LegacyKeyFavoriteFolders = "favoriteFolders"
)

// Empty reports whether the payload carries no keys at all.
func (p *LegacyPayload) Empty() bool {
	return p == nil || len(p.Keys) == 0
}

package model

import "time"

// ItemType classifies a resource item. The set is closed; anything an
// importer cannot recognize becomes TypeUnknown.
type ItemType string

const (
	TypePDF          ItemType = "pdf"
	TypeDocument     ItemType = "document"
	TypeImage        ItemType = "image"
	TypeLink         ItemType = "link"
	TypeSpreadsheet  ItemType = "spreadsheet"
	TypePresentation ItemType = "presentation"
	TypeMarkdown     ItemType = "markdown"
	TypeUnknown      ItemType = "unknown"
)

// KnownType reports whether t is one of the closed enumeration values.
func KnownType(t ItemType) bool {
	switch t {
	case TypePDF, TypeDocument, TypeImage, TypeLink, TypeSpreadsheet, TypePresentation, TypeMarkdown, TypeUnknown:
		return true
	}
	return false
}

// StorageMode says where an item's underlying file lives.
type StorageMode string

const (
	// ModeEmbedded means the file lives inside application-managed storage.
	ModeEmbedded StorageMode = "embedded"
	// ModeReference means the file lives at an external path the user controls.
	ModeReference StorageMode = "reference"
)

// StorageDescriptor records where an item's file is and what it looks like.
type StorageDescriptor struct {
	Mode        StorageMode `json:"mode"`
	LogicalPath string      `json:"logicalPath,omitempty"` // path relative to the managed storage root
	LocalPath   string      `json:"localPath,omitempty"`   // absolute filesystem path
	SourcePath  string      `json:"sourcePath,omitempty"`  // where the file originally came from
	Size        int64       `json:"size"`
	MediaType   string      `json:"mediaType,omitempty"`
}

// ResourceItem is one entry in the user's library.
// ID is immutable once created; UpdatedAt strictly increases on every mutation.
type ResourceItem struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Type      ItemType          `json:"type"`
	TagIDs    []string          `json:"tagIds,omitempty"`
	FolderID  string            `json:"folderId,omitempty"` // empty means uncategorized
	Color     string            `json:"color,omitempty"`
	Starred   bool              `json:"starred,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
	Storage   StorageDescriptor `json:"storage"`

	// Derived fields, populated asynchronously by external pipelines.
	Snippet      string `json:"snippet,omitempty"`
	Description  string `json:"description,omitempty"`
	Summary      string `json:"summary,omitempty"`
	ThumbnailRef string `json:"thumbnailRef,omitempty"`
}

// Tag is a label items can carry. Tags form a tree via ParentID.
// Count is denormalized: it is valid only immediately after an explicit
// recount and goes stale as items are mutated.
type Tag struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Color    string `json:"color,omitempty"`
	Count    int    `json:"count"`
}

// Folder groups items. Folders form a tree via ParentID.
type Folder struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Icon     string `json:"icon,omitempty"`
}

// LibrarySchemaVersion is the current schema version of LibraryDocument.
const LibrarySchemaVersion = 2

// LibraryDocument is the primary aggregate: the whole library serialized as
// one unit. Items are ordered newest first; insertion order is meaningful.
type LibraryDocument struct {
	Version      int            `json:"version"`
	LastModified time.Time      `json:"lastModified"`
	Items        []ResourceItem `json:"items"`
	Tags         []Tag          `json:"tags"`
	Folders      []Folder       `json:"folders"`
}

// SettingsSchemaVersion is the current schema version of SettingsDocument.
const SettingsSchemaVersion = 2

// FilterState is the persisted view filter.
type FilterState struct {
	Types    []ItemType `json:"types,omitempty"`
	TagIDs   []string   `json:"tagIds,omitempty"`
	FolderID string     `json:"folderId,omitempty"`
	Starred  bool       `json:"starred,omitempty"`
	Query    string     `json:"query,omitempty"`
}

// SettingsDocument holds application settings. It is persisted independently
// of the library aggregate through the same adapter mechanism.
type SettingsDocument struct {
	Version         int         `json:"version"`
	ColorMode       string      `json:"colorMode"`
	Theme           string      `json:"theme"`
	Locale          string      `json:"locale"`
	StorageRoot     string      `json:"storageRoot,omitempty"` // custom storage root override
	DefaultView     string      `json:"defaultView"`
	ActiveFilter    FilterState `json:"activeFilter"`
	RecentFiles     []string    `json:"recentFiles,omitempty"`
	FavoriteFolders []string    `json:"favoriteFolders,omitempty"`
}

// MTimeIndex maps item identifier to last-change time in epoch milliseconds.
// It is persisted as its own artifact, independent of the library aggregate.
type MTimeIndex struct {
	Times        map[string]int64 `json:"times"`
	Count        int              `json:"count"`
	LastModified time.Time        `json:"lastModified"`
}

// NewMTimeIndex returns an empty index.
func NewMTimeIndex() *MTimeIndex {
	return &MTimeIndex{Times: make(map[string]int64)}
}

// ItemMetadataRecord is the per-item shadow projection stored outside the
// aggregate. Folders is plural for historical reasons; the store only ever
// writes zero or one entries.
type ItemMetadataRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        ItemType  `json:"type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
	ModifiedAt  time.Time `json:"modifiedAt"`
	Extension   string    `json:"extension,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Folders     []string  `json:"folders,omitempty"`
	Color       string    `json:"color,omitempty"`
	Starred     bool      `json:"starred,omitempty"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description,omitempty"`
}

// BackupSnapshot is a full copy of the library plus snapshot metadata.
type BackupSnapshot struct {
	CreatedAt time.Time      `json:"createdAt"`
	Version   int            `json:"version"`
	ItemCount int            `json:"itemCount"`
	Items     []ResourceItem `json:"items"`
	Tags      []Tag          `json:"tags"`
	Folders   []Folder       `json:"folders"`
}

// IndexMetadata is the metadata subset handed to search index sinks
// alongside the searchable text.
type IndexMetadata struct {
	Title     string    `json:"title"`
	Type      ItemType  `json:"type"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

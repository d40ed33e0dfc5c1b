package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for shelfkeep.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Library    LibraryConfig    `toml:"library"`
	Storage    StorageConfig    `toml:"storage"`
	Index      IndexConfig      `toml:"index"`
	Backup     BackupConfig     `toml:"backup"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// LibraryConfig holds store tunables.
type LibraryConfig struct {
	DebounceMillis int `toml:"debounce_millis"` // debounce window for aggregate writes, default 500
	RecentFilesMax int `toml:"recent_files_max"`
}

// StorageConfig selects the persistence backend.
// This is a tagged union - the Type field determines which other fields are relevant.
type StorageConfig struct {
	Type string `toml:"type"` // "filesystem", "objectstore", or "memory"; empty means probe

	// Filesystem-specific fields (only used when Type == "filesystem")
	Root string `toml:"root,omitempty"`

	// Object-store-specific fields (only used when Type == "objectstore")
	S3Bucket       string `toml:"s3_bucket,omitempty"`
	S3Prefix       string `toml:"s3_prefix,omitempty"`
	S3Region       string `toml:"s3_region,omitempty"`
	S3Endpoint     string `toml:"s3_endpoint,omitempty"` // custom endpoint, e.g. minio
	S3AccessKey    string `toml:"s3_access_key,omitempty"`
	S3SecretKey    string `toml:"s3_secret_key,omitempty"`
	S3UsePathStyle bool   `toml:"s3_use_path_style,omitempty"`
}

// IndexConfig configures the search index database and the embedding client.
type IndexConfig struct {
	Path          string `toml:"path,omitempty"` // sqlite file; ":memory:" for tests
	EmbedAPIKey   string `toml:"embed_api_key,omitempty"`
	EmbedModel    string `toml:"embed_model,omitempty"`
	EmbedEndpoint string `toml:"embed_endpoint,omitempty"`
}

// BackupConfig holds backup retention settings.
type BackupConfig struct {
	MinIntervalSecs int `toml:"min_interval_secs"` // automatic backup rate limit, default 60
	Keep            int `toml:"keep"`              // snapshots retained by prune, default 30
}

// EncryptionConfig holds paths to the age key pair used for backup
// encryption. Type "none" (or empty key paths) disables encryption.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age" (default), "test", or "none"
	PublicKeyPath  string `toml:"public_key_path,omitempty"`
	PrivateKeyPath string `toml:"private_key_path,omitempty"`
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Library: LibraryConfig{DebounceMillis: 500},
		Storage: StorageConfig{Root: filepath.Join(baseDir, "store")},
		Index:   IndexConfig{Path: filepath.Join(baseDir, "index.db")},
		Backup:  BackupConfig{MinIntervalSecs: 60, Keep: 30},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "shelfkeep.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "shelfkeep.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path. It refuses to
// overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

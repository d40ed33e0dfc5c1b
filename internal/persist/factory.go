package persist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"shelfkeep/internal/config"
	"shelfkeep/internal/library"
)

// NewAdapterFromConfig creates a PersistenceAdapter for an explicit storage
// type.
func NewAdapterFromConfig(ctx context.Context, cfg config.StorageConfig) (library.PersistenceAdapter, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryAdapter(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem storage requires root to be set")
		}
		return NewFilesystemAdapter(cfg.Root)
	case "objectstore":
		return NewObjectStoreAdapter(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// Probe selects an adapter by probing host capabilities: a writable
// filesystem root wins; an object-store configuration is the fallback for
// restricted environments. The decision is made once, here, so every other
// component depends on the adapter abstraction rather than on scattered
// capability checks.
func Probe(ctx context.Context, cfg config.StorageConfig, logger library.Logger) (library.PersistenceAdapter, error) {
	if cfg.Type != "" {
		return NewAdapterFromConfig(ctx, cfg)
	}

	if cfg.Root != "" && filesystemWritable(cfg.Root) {
		logger.Debug("storage probe selected filesystem", "root", cfg.Root)
		return NewFilesystemAdapter(cfg.Root)
	}

	if cfg.S3Bucket != "" {
		logger.Debug("storage probe selected object store", "bucket", cfg.S3Bucket)
		return NewObjectStoreAdapter(ctx, cfg)
	}

	return nil, fmt.Errorf("no usable storage backend: root %q not writable and no object store configured", cfg.Root)
}

// filesystemWritable checks that we can create and remove a file under root.
func filesystemWritable(root string) bool {
	if err := os.MkdirAll(root, 0755); err != nil {
		return false
	}
	probe := filepath.Join(root, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return false
	}
	os.Remove(probe)
	return true
}

package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"shelfkeep/internal/model"
)

const (
	// DefaultBackupKeep is how many snapshots CleanupOld retains by default.
	DefaultBackupKeep = 30
	// DefaultBackupMinInterval rate-limits automatic backups.
	DefaultBackupMinInterval = 60 * time.Second

	backupNameLayout = "20060102T150405.000Z"
	backupExt        = ".json"
	encryptedExt     = ".json.age"
)

// BackupManager creates, lists, restores and prunes timestamped full
// snapshots of the library aggregate. Restore returns the raw snapshot
// payload only; installing it into the live cache is the caller's job.
//
// With a configured Encryptor, snapshot bytes are age-encrypted and the
// artifact carries the .age suffix.
type BackupManager struct {
	store     BackupStore
	encryptor Encryptor // may be nil
	clock     Clock
	logger    Logger

	minInterval time.Duration
	keep        int

	mu       sync.Mutex
	lastAuto time.Time
}

// NewBackupManager creates a manager. minInterval and keep fall back to
// defaults when non-positive.
func NewBackupManager(store BackupStore, encryptor Encryptor, clock Clock, logger Logger, minInterval time.Duration, keep int) *BackupManager {
	if minInterval <= 0 {
		minInterval = DefaultBackupMinInterval
	}
	if keep <= 0 {
		keep = DefaultBackupKeep
	}
	return &BackupManager{
		store:       store,
		encryptor:   encryptor,
		clock:       clock,
		logger:      logger,
		minInterval: minInterval,
		keep:        keep,
	}
}

// Available reports whether the backing store supports backups at all.
func (m *BackupManager) Available() bool {
	return m.store.Available()
}

// Create writes a snapshot under a timestamp-derived name and returns that
// name. Manual calls bypass the automatic rate limit.
func (m *BackupManager) Create(ctx context.Context, snap *model.BackupSnapshot) (string, error) {
	if !m.store.Available() {
		return "", fmt.Errorf("creating backup: %w", ErrNotSupported)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	name := snap.CreatedAt.UTC().Format(backupNameLayout) + backupExt
	if m.encryptor != nil && m.encryptor.IsConfigured() {
		var buf bytes.Buffer
		if err := m.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
			return "", fmt.Errorf("encrypting snapshot: %w", err)
		}
		data = buf.Bytes()
		name = snap.CreatedAt.UTC().Format(backupNameLayout) + encryptedExt
	}

	if err := m.store.Write(ctx, name, data); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	m.logger.Info("backup created", "name", name, "items", snap.ItemCount)
	return name, nil
}

// CanAuto reports whether enough time has passed since the last automatic
// backup. Manual Create calls do not move the rate-limit window.
func (m *BackupManager) CanAuto() bool {
	if !m.store.Available() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAuto.IsZero() || m.clock.Now().Sub(m.lastAuto) >= m.minInterval
}

// MaybeCreate creates a snapshot if the rate limit allows it. Returns the
// snapshot name, or "" when the backup was skipped.
func (m *BackupManager) MaybeCreate(ctx context.Context, snap *model.BackupSnapshot) (string, error) {
	if !m.CanAuto() {
		return "", nil
	}
	name, err := m.Create(ctx, snap)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.lastAuto = m.clock.Now()
	m.mu.Unlock()
	return name, nil
}

// List returns stored snapshots, newest first.
func (m *BackupManager) List(ctx context.Context) ([]BackupInfo, error) {
	if !m.store.Available() {
		return nil, fmt.Errorf("listing backups: %w", ErrNotSupported)
	}
	return m.store.List(ctx)
}

// Restore reads and decodes a snapshot by name. Encrypted snapshots require
// a DecryptionContext obtained from Encryptor.Unlock; plaintext snapshots
// ignore dec. A snapshot whose schema version is newer than this binary
// understands is rejected rather than installed.
func (m *BackupManager) Restore(ctx context.Context, name string, dec DecryptionContext) (*model.BackupSnapshot, error) {
	if !m.store.Available() {
		return nil, fmt.Errorf("restoring backup: %w", ErrNotSupported)
	}

	data, err := m.store.Read(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", name, err)
	}

	if strings.HasSuffix(name, ".age") {
		if dec == nil {
			return nil, fmt.Errorf("snapshot %s is encrypted: unlock required", name)
		}
		var buf bytes.Buffer
		if err := dec.Decrypt(bytes.NewReader(data), &buf); err != nil {
			return nil, fmt.Errorf("decrypting snapshot %s: %w", name, err)
		}
		data = buf.Bytes()
	}

	var snap model.BackupSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", name, err)
	}
	if snap.Version > model.LibrarySchemaVersion {
		return nil, fmt.Errorf("snapshot %s has schema version %d, newer than supported %d", name, snap.Version, model.LibrarySchemaVersion)
	}
	return &snap, nil
}

// Delete removes one snapshot by name.
func (m *BackupManager) Delete(ctx context.Context, name string) error {
	if !m.store.Available() {
		return fmt.Errorf("deleting backup: %w", ErrNotSupported)
	}
	return m.store.Delete(ctx, name)
}

// CleanupOld deletes all but the newest keep snapshots. A non-positive keep
// uses the configured retention. Returns the number of snapshots removed.
func (m *BackupManager) CleanupOld(ctx context.Context, keep int) (int, error) {
	if !m.store.Available() {
		return 0, fmt.Errorf("pruning backups: %w", ErrNotSupported)
	}
	if keep <= 0 {
		keep = m.keep
	}

	infos, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing backups: %w", err)
	}
	if len(infos) <= keep {
		return 0, nil
	}

	removed := 0
	for _, info := range infos[keep:] {
		if err := m.store.Delete(ctx, info.Name); err != nil {
			m.logger.Warn("failed to delete old backup", "name", info.Name, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		m.logger.Info("old backups pruned", "removed", removed, "kept", keep)
	}
	return removed, nil
}

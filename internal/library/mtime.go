package library

import (
	"context"
	"fmt"
	"sync"

	"shelfkeep/internal/model"
)

// MTimeTracker maintains the persisted item-identifier -> last-change
// timestamp index. Its writes are independent of the library aggregate write
// path: a persistence failure here is logged and never fails the calling
// mutation.
type MTimeTracker struct {
	store  MTimeStore
	clock  Clock
	logger Logger

	mu  sync.Mutex
	idx *model.MTimeIndex
}

// NewMTimeTracker creates a tracker over the given store.
func NewMTimeTracker(store MTimeStore, clock Clock, logger Logger) *MTimeTracker {
	return &MTimeTracker{
		store:  store,
		clock:  clock,
		logger: logger,
		idx:    model.NewMTimeIndex(),
	}
}

// Load reads the persisted index into memory. Missing or unavailable
// artifacts leave the tracker empty.
func (t *MTimeTracker) Load(ctx context.Context) error {
	if !t.store.Available() {
		return nil
	}
	idx, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading mtime index: %w", err)
	}
	if idx == nil {
		return nil
	}
	if idx.Times == nil {
		idx.Times = make(map[string]int64)
	}
	t.mu.Lock()
	t.idx = idx
	t.mu.Unlock()
	return nil
}

// Update sets the timestamp for id to now.
func (t *MTimeTracker) Update(ctx context.Context, id string) {
	t.Set(ctx, id, t.clock.Now().UnixMilli())
}

// Set records an explicit timestamp for id.
func (t *MTimeTracker) Set(ctx context.Context, id string, millis int64) {
	t.mu.Lock()
	t.idx.Times[id] = millis
	t.finishLocked(ctx)
}

// UpdateBatch sets every given id to now in one persisted write.
func (t *MTimeTracker) UpdateBatch(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	now := t.clock.Now().UnixMilli()
	t.mu.Lock()
	for _, id := range ids {
		t.idx.Times[id] = now
	}
	t.finishLocked(ctx)
}

// Remove drops the timestamp for id.
func (t *MTimeTracker) Remove(ctx context.Context, id string) {
	t.mu.Lock()
	delete(t.idx.Times, id)
	t.finishLocked(ctx)
}

// finishLocked updates the index metadata, persists, and unlocks.
func (t *MTimeTracker) finishLocked(ctx context.Context) {
	t.idx.Count = len(t.idx.Times)
	t.idx.LastModified = t.clock.Now()
	snapshot := &model.MTimeIndex{
		Times:        make(map[string]int64, len(t.idx.Times)),
		Count:        t.idx.Count,
		LastModified: t.idx.LastModified,
	}
	for k, v := range t.idx.Times {
		snapshot.Times[k] = v
	}
	t.mu.Unlock()

	if !t.store.Available() {
		return
	}
	if err := t.store.Save(ctx, snapshot); err != nil {
		t.logger.Warn("mtime index write failed", "error", err)
	}
}

// Get returns the timestamp for id, if present.
func (t *MTimeTracker) Get(id string) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	millis, ok := t.idx.Times[id]
	return millis, ok
}

// All returns a copy of the full map.
func (t *MTimeTracker) All() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.idx.Times))
	for k, v := range t.idx.Times {
		out[k] = v
	}
	return out
}

// Count returns the number of tracked identifiers.
func (t *MTimeTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.idx.Times)
}

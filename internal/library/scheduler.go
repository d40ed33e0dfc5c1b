package library

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounceWindow is how long a WriteScheduler waits after the last
// Schedule call before performing the write.
const DefaultDebounceWindow = 500 * time.Millisecond

// WriteScheduler debounces mutations into a single persistence call per
// aggregate. Schedule restarts the window (coalescing); the write that
// eventually fires always serializes the cache state at fire time, because
// the write function snapshots the cache when invoked, not when scheduled.
//
// At most one write is in flight at a time: the write function runs under
// its own mutex, so a Flush racing a fired timer serializes rather than
// producing duplicate writes.
type WriteScheduler struct {
	name   string
	window time.Duration
	write  func(ctx context.Context) error
	logger Logger

	mu      sync.Mutex // guards timer and pending
	timer   *time.Timer
	pending bool

	writeMu sync.Mutex // serializes calls to write
}

// NewWriteScheduler creates a scheduler for one aggregate. name appears in
// log records ("library", "settings"). A non-positive window falls back to
// DefaultDebounceWindow.
func NewWriteScheduler(name string, window time.Duration, write func(ctx context.Context) error, logger Logger) *WriteScheduler {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &WriteScheduler{
		name:   name,
		window: window,
		write:  write,
		logger: logger,
	}
}

// Schedule (re)starts the debounce window. A call arriving while a previous
// window is pending cancels and restarts it; writes are never queued up.
func (s *WriteScheduler) Schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = true
	s.timer = time.AfterFunc(s.window, s.fire)
}

// fire runs when the debounce window elapses uninterrupted.
func (s *WriteScheduler) fire() {
	s.mu.Lock()
	if !s.pending {
		// A Flush got here first.
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.write(context.Background()); err != nil {
		s.logger.Error("debounced write failed", "aggregate", s.name, "error", err)
	}
}

// Flush cancels any pending timer and performs the write immediately. It
// returns only once no write is running: a window that fired just before
// the call is awaited, not skipped. Calling it on an idle scheduler is a
// no-op.
func (s *WriteScheduler) Flush(ctx context.Context) error {
	s.mu.Lock()
	wasPending := s.pending
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.mu.Unlock()

	if !wasPending {
		// The window may have already fired; wait out the write it
		// started before reporting the scheduler quiet.
		s.writeMu.Lock()
		s.writeMu.Unlock()
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.write(ctx)
}

// Pending reports whether a write is currently scheduled.
func (s *WriteScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

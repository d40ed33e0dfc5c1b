package testutil

import (
	"fmt"
	"sync"
)

// MoveOp records one Move call.
type MoveOp struct {
	Src string
	Dst string
}

// StubMover records filesystem operations without performing them. Set
// FailMoves to exercise relocation error paths.
type StubMover struct {
	mu        sync.Mutex
	dirs      []string
	moves     []MoveOp
	FailMoves bool
}

func NewStubMover() *StubMover {
	return &StubMover{}
}

func (m *StubMover) MkdirAll(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs = append(m.dirs, dir)
	return nil
}

func (m *StubMover) Move(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailMoves {
		return fmt.Errorf("move failed: %s -> %s", src, dst)
	}
	m.moves = append(m.moves, MoveOp{Src: src, Dst: dst})
	return nil
}

// Moves returns a copy of the recorded Move calls.
func (m *StubMover) Moves() []MoveOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MoveOp(nil), m.moves...)
}

// Dirs returns a copy of the recorded MkdirAll calls.
func (m *StubMover) Dirs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dirs...)
}

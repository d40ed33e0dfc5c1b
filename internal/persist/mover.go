package persist

import (
	"fmt"
	"io"
	"os"

	"shelfkeep/internal/library"
)

// OSFileMover moves files on the real filesystem. Rename is tried first;
// moves across filesystems fall back to copy + remove.
type OSFileMover struct{}

var _ library.FileMover = OSFileMover{}

// NewOSFileMover returns a mover backed by the os package.
func NewOSFileMover() OSFileMover { return OSFileMover{} }

func (OSFileMover) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (OSFileMover) Move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating destination: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("copying file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return fmt.Errorf("closing destination: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing source after copy: %w", err)
	}
	return nil
}

package search_test

import (
	"path/filepath"
	"testing"

	"shelfkeep/internal/config"
	"shelfkeep/internal/library"
	"shelfkeep/internal/search"
)

func TestOpen(t *testing.T) {
	t.Run("lexical only without api key", func(t *testing.T) {
		t.Setenv("SHELFKEEP_EMBED_API_KEY", "")
		db, sinks, err := search.Open(config.IndexConfig{Path: ":memory:"}, library.NewNopLogger())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		if len(sinks) != 1 {
			t.Fatalf("Open() returned %d sinks, want 1", len(sinks))
		}
		if sinks[0].Name() != "lexical" {
			t.Errorf("sink name = %s, want lexical", sinks[0].Name())
		}
	})

	t.Run("semantic enabled via env key", func(t *testing.T) {
		t.Setenv("SHELFKEEP_EMBED_API_KEY", "test-key")
		db, sinks, err := search.Open(config.IndexConfig{Path: ":memory:"}, library.NewNopLogger())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close()

		if len(sinks) != 2 {
			t.Fatalf("Open() returned %d sinks, want 2", len(sinks))
		}
		if sinks[1].Name() != "semantic" {
			t.Errorf("second sink name = %s, want semantic", sinks[1].Name())
		}
	})

	t.Run("file-backed database", func(t *testing.T) {
		t.Setenv("SHELFKEEP_EMBED_API_KEY", "")
		path := filepath.Join(t.TempDir(), "index.db")
		db, _, err := search.Open(config.IndexConfig{Path: path}, library.NewNopLogger())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		db.Close()

		// Reopening migrates idempotently.
		db, _, err = search.Open(config.IndexConfig{Path: path}, library.NewNopLogger())
		if err != nil {
			t.Fatalf("Open() reopen error = %v", err)
		}
		db.Close()
	})
}

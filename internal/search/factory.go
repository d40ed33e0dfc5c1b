package search

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"shelfkeep/internal/config"
	"shelfkeep/internal/library"
	"shelfkeep/internal/search/migrations"
)

// Open opens (and migrates) the index database and builds the configured
// sinks. The semantic sink is only created when an embedding API key is
// available; a library without one still gets lexical search. The caller
// owns the returned db and must close it after the store shuts down.
func Open(cfg config.IndexConfig, logger library.Logger) (*sql.DB, []library.IndexSink, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening index database: %w", err)
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrating index database: %w", err)
	}

	sinks := []library.IndexSink{NewLexicalIndex(db)}

	apiKey := cfg.EmbedAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("SHELFKEEP_EMBED_API_KEY")
	}
	if apiKey != "" {
		embedder, err := NewHTTPEmbedder(apiKey, cfg.EmbedModel, cfg.EmbedEndpoint)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("creating embedder: %w", err)
		}
		sinks = append(sinks, NewSemanticIndex(db, embedder))
	} else {
		logger.Info("no embedding api key configured, semantic index disabled")
	}

	return db, sinks, nil
}

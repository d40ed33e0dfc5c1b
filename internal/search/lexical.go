package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
)

// LexicalIndex is the term-statistics search sink, backed by an SQLite FTS5
// virtual table. Indexing replaces the item's row wholesale; BM25 ranking
// happens at query time inside SQLite.
type LexicalIndex struct {
	db *sql.DB
}

var _ library.IndexSink = (*LexicalIndex)(nil)

// NewLexicalIndex creates a sink over an already-migrated index database.
func NewLexicalIndex(db *sql.DB) *LexicalIndex {
	return &LexicalIndex{db: db}
}

func (x *LexicalIndex) Name() string { return "lexical" }

func (x *LexicalIndex) Index(ctx context.Context, id string, text string, meta model.IndexMetadata) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lexical index tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM lexical_index WHERE item_id = ?", id); err != nil {
		return fmt.Errorf("clear lexical entry: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO lexical_index (item_id, title, body, tags) VALUES (?, ?, ?, ?)",
		id, meta.Title, text, strings.Join(meta.Tags, " "),
	)
	if err != nil {
		return fmt.Errorf("insert lexical entry: %w", err)
	}
	return tx.Commit()
}

func (x *LexicalIndex) Delete(ctx context.Context, id string) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM lexical_index WHERE item_id = ?", id); err != nil {
		return fmt.Errorf("delete lexical entry: %w", err)
	}
	return nil
}

// Search returns item identifiers matching the FTS query, best first.
// Query-side behavior belongs to the index, not to the store, which only
// ever writes.
func (x *LexicalIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := x.db.QueryContext(ctx,
		"SELECT item_id FROM lexical_index WHERE lexical_index MATCH ? ORDER BY bm25(lexical_index) LIMIT ?",
		query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lexical result: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

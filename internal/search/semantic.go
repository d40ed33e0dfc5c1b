package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"shelfkeep/internal/library"
	"shelfkeep/internal/model"
)

// SemanticIndex is the embedding search sink: each item's searchable text
// is embedded once at index time and the vector stored next to the lexical
// table. Similarity queries scan the stored vectors; libraries of personal
// size make a linear scan acceptable.
type SemanticIndex struct {
	db       *sql.DB
	embedder Embedder
}

var _ library.IndexSink = (*SemanticIndex)(nil)

// NewSemanticIndex creates a sink over an already-migrated index database.
func NewSemanticIndex(db *sql.DB, embedder Embedder) *SemanticIndex {
	return &SemanticIndex{db: db, embedder: embedder}
}

func (x *SemanticIndex) Name() string { return "semantic" }

func (x *SemanticIndex) Index(ctx context.Context, id string, text string, meta model.IndexMetadata) error {
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding item %s: %w", id, err)
	}
	encoded, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encoding vector: %w", err)
	}

	_, err = x.db.ExecContext(ctx,
		`INSERT INTO semantic_index (item_id, vector, title, kind, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(item_id) DO UPDATE SET vector=excluded.vector, title=excluded.title, kind=excluded.kind`,
		id, string(encoded), meta.Title, string(meta.Type), meta.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert semantic entry: %w", err)
	}
	return nil
}

func (x *SemanticIndex) Delete(ctx context.Context, id string) error {
	if _, err := x.db.ExecContext(ctx, "DELETE FROM semantic_index WHERE item_id = ?", id); err != nil {
		return fmt.Errorf("delete semantic entry: %w", err)
	}
	return nil
}

// Match is one similarity search result.
type Match struct {
	ItemID string
	Score  float64
}

// Search embeds the query and returns the most similar items, best first.
func (x *SemanticIndex) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 10
	}
	qvec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := x.db.QueryContext(ctx, "SELECT item_id, vector FROM semantic_index")
	if err != nil {
		return nil, fmt.Errorf("scanning semantic index: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var id, encoded string
		if err := rows.Scan(&id, &encoded); err != nil {
			return nil, fmt.Errorf("scan semantic row: %w", err)
		}
		var vec []float64
		if err := json.Unmarshal([]byte(encoded), &vec); err != nil {
			continue // skip unreadable vectors
		}
		matches = append(matches, Match{ItemID: id, Score: CosineSimilarity(qvec, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

package library

import (
	"context"
	"strings"

	"shelfkeep/internal/model"
)

// IndexSynchronizer derives searchable text per item and dispatches it to
// the configured index sinks (semantic and lexical). Each dispatch is a
// separate task on the effects queue, so one sink's failure never affects
// the other or the calling mutation.
type IndexSynchronizer struct {
	sinks   []IndexSink
	effects *EffectsQueue
	logger  Logger
}

// NewIndexSynchronizer creates a synchronizer over the given sinks.
func NewIndexSynchronizer(sinks []IndexSink, effects *EffectsQueue, logger Logger) *IndexSynchronizer {
	return &IndexSynchronizer{sinks: sinks, effects: effects, logger: logger}
}

// SearchableText concatenates title, content snippet, description and tag
// names. An all-whitespace result means there is nothing to index.
func SearchableText(item *model.ResourceItem, tagNames []string) string {
	parts := make([]string, 0, 3+len(tagNames))
	for _, p := range []string{item.Title, item.Snippet, item.Description} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	for _, name := range tagNames {
		if strings.TrimSpace(name) != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "\n")
}

// IndexItem dispatches the item to every sink. Items with no searchable
// text are skipped entirely.
func (s *IndexSynchronizer) IndexItem(item *model.ResourceItem, tagNames []string) {
	text := SearchableText(item, tagNames)
	if strings.TrimSpace(text) == "" {
		return
	}

	meta := model.IndexMetadata{
		Title:     item.Title,
		Type:      item.Type,
		Tags:      append([]string(nil), tagNames...),
		CreatedAt: item.CreatedAt,
	}
	id := item.ID
	for _, sink := range s.sinks {
		sink := sink
		s.effects.Enqueue("index:"+sink.Name(), func(ctx context.Context) error {
			return sink.Index(ctx, id, text, meta)
		})
	}
}

// RemoveItem removes the item from every sink, independently per sink.
func (s *IndexSynchronizer) RemoveItem(id string) {
	for _, sink := range s.sinks {
		sink := sink
		s.effects.Enqueue("unindex:"+sink.Name(), func(ctx context.Context) error {
			return sink.Delete(ctx, id)
		})
	}
}

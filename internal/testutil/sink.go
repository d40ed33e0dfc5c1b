package testutil

import (
	"context"
	"fmt"
	"sync"

	"shelfkeep/internal/model"
)

// IndexCall records one Index invocation on a RecordingSink.
type IndexCall struct {
	ID   string
	Text string
	Meta model.IndexMetadata
}

// RecordingSink is an IndexSink that records every call. Set FailIndex or
// FailDelete to exercise error paths.
type RecordingSink struct {
	name string

	mu         sync.Mutex
	indexed    []IndexCall
	deleted    []string
	FailIndex  bool
	FailDelete bool
}

func NewRecordingSink(name string) *RecordingSink {
	return &RecordingSink{name: name}
}

func (s *RecordingSink) Name() string { return s.name }

func (s *RecordingSink) Index(ctx context.Context, id string, text string, meta model.IndexMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailIndex {
		return fmt.Errorf("index failed for %s", id)
	}
	s.indexed = append(s.indexed, IndexCall{ID: id, Text: text, Meta: meta})
	return nil
}

func (s *RecordingSink) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDelete {
		return fmt.Errorf("delete failed for %s", id)
	}
	s.deleted = append(s.deleted, id)
	return nil
}

// Indexed returns a copy of the recorded Index calls.
func (s *RecordingSink) Indexed() []IndexCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]IndexCall(nil), s.indexed...)
}

// Deleted returns a copy of the recorded Delete calls.
func (s *RecordingSink) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

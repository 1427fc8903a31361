package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Index answers top-k similarity queries over a fixed chunk set.
type Index interface {
	Query(ctx context.Context, text string, k int) ([]Hit, error)
}

// BuilderFunc constructs an index over the given chunks. Implementations
// must return a fully usable index or an error, never a partial one.
type BuilderFunc func(ctx context.Context, chunks []Chunk) (Index, error)

// Store holds the chunked corpus and its similarity index. Chunks and the
// index are read-only between builds; concurrent queries need no
// coordination beyond the swap lock.
type Store struct {
	build BuilderFunc

	mu     sync.RWMutex
	chunks []Chunk
	index  Index
}

func NewStore(build BuilderFunc) *Store {
	return &Store{build: build}
}

// Ingest validates all records and appends one chunk per non-empty page
// text. A malformed record fails the whole call and nothing is kept.
func (s *Store) Ingest(records []Record) error {
	chunks, err := chunksFromRecords(records)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, chunks...)
	s.mu.Unlock()

	return nil
}

// BuildIndex embeds every chunk and replaces any prior index. The old index
// stays queryable until the new one is ready.
func (s *Store) BuildIndex(ctx context.Context) error {
	s.mu.RLock()
	chunks := s.chunks
	s.mu.RUnlock()

	if len(chunks) == 0 {
		return ErrEmptyCorpus
	}

	index, err := s.build(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to build similarity index: %w", err)
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	return nil
}

// Replace swaps in a freshly ingested corpus and index in one step. Used by
// the corpus watcher; a failed build leaves the previous corpus untouched.
func (s *Store) Replace(ctx context.Context, records []Record) error {
	chunks, err := chunksFromRecords(records)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return ErrEmptyCorpus
	}

	index, err := s.build(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to rebuild similarity index: %w", err)
	}

	s.mu.Lock()
	s.chunks = chunks
	s.index = index
	s.mu.Unlock()

	return nil
}

// Query returns up to k hits ordered by descending similarity, ties broken
// by chunk insertion order.
func (s *Store) Query(ctx context.Context, text string, k int) ([]Hit, error) {
	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()

	if index == nil {
		return nil, ErrIndexNotBuilt
	}

	return index.Query(ctx, text, k)
}

// ChunkCount reports how many chunks the store currently holds.
func (s *Store) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.chunks)
}

func chunksFromRecords(records []Record) ([]Chunk, error) {
	var chunks []Chunk
	for _, rec := range records {
		if rec.FileName == "" {
			return nil, &IngestError{Reason: "missing file_name"}
		}
		if rec.Content == nil {
			return nil, &IngestError{File: rec.FileName, Reason: "missing content"}
		}

		for _, page := range rec.Content {
			text := strings.TrimSpace(page.Text)
			if text == "" {
				continue
			}

			chunks = append(chunks, Chunk{
				Text:   text,
				Source: rec.FileName,
				Page:   page.Page,
			})
		}
	}

	return chunks, nil
}

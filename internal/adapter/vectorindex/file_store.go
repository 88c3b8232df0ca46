// Package vectorindex adapts the in-process vector store to the passage index
// port, persisting it as a single JSON file.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/vectorstore"
)

// FileStore serves passage searches from an index file. It loads the file
// lazily on first use and swaps the whole index on Build.
type FileStore struct {
	path string

	mu    sync.RWMutex
	index *vectorstore.Index[domain.PassageHit]
}

// NewFileStore creates a store backed by path. The file need not exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

var _ domain.PassageIndexStore = (*FileStore)(nil)

func (s *FileStore) Ready(_ context.Context) (bool, error) {
	s.mu.RLock()
	loaded := s.index != nil
	s.mu.RUnlock()
	if loaded {
		return true, nil
	}

	_, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat index %s: %w", s.path, err)
	}
	return true, nil
}

// Build indexes chunks, writes the file and then publishes the new index.
func (s *FileStore) Build(_ context.Context, chunks []domain.PublicationChunk) error {
	ix := vectorstore.New[domain.PassageHit]()
	for _, c := range chunks {
		hit := domain.PassageHit{Text: c.Content, Publication: c.Publication}
		if err := ix.Add(c.Embedding, hit); err != nil {
			return fmt.Errorf("add chunk %d of %q: %w", c.Ordinal, c.Publication.IdentityKey(), err)
		}
	}
	if err := ix.Save(s.path); err != nil {
		return err
	}

	s.mu.Lock()
	s.index = ix
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Search(_ context.Context, query []float32, k int) ([]domain.PassageHit, error) {
	ix, err := s.open()
	if err != nil {
		return nil, err
	}
	matches, err := ix.Search(query, vectorstore.SearchOptions{K: k})
	if err != nil {
		return nil, err
	}
	hits := make([]domain.PassageHit, len(matches))
	for i, m := range matches {
		hits[i] = m.Item
		hits[i].Score = m.Score
	}
	return hits, nil
}

func (s *FileStore) open() (*vectorstore.Index[domain.PassageHit], error) {
	s.mu.RLock()
	ix := s.index
	s.mu.RUnlock()
	if ix != nil {
		return ix, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index != nil {
		return s.index, nil
	}
	loaded, err := vectorstore.Load[domain.PassageHit](s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("index %s not built: %w", s.path, domain.ErrIndexUnavailable)
	}
	if err != nil {
		return nil, fmt.Errorf("load index: %v: %w", err, domain.ErrIndexUnavailable)
	}
	s.index = loaded
	return loaded, nil
}

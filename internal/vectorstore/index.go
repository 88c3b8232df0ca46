// Package vectorstore is a small in-process cosine similarity index with JSON
// persistence. Reads are safe for concurrent use.
package vectorstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when vectors of different sizes are mixed.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// SearchOptions controls a search. FetchK bounds the pool scored against the
// threshold before K is applied; zero means the whole index.
type SearchOptions struct {
	K              int
	FetchK         int
	ScoreThreshold *float32
}

// Match is a search hit. Position is the insertion order of the item.
type Match[T any] struct {
	Item     T
	Score    float32
	Position int
}

type entry[T any] struct {
	Vector []float32 `json:"vector"`
	Norm   float64   `json:"-"`
	Item   T         `json:"item"`
}

// Index holds vectors with an attached item each.
type Index[T any] struct {
	mu      sync.RWMutex
	dim     int
	entries []entry[T]
}

// New creates an empty index.
func New[T any]() *Index[T] {
	return &Index[T]{}
}

// Threshold is a helper for building SearchOptions.
func Threshold(v float32) *float32 {
	return &v
}

// Add appends vector with item. All vectors must share one dimension.
func (ix *Index[T]) Add(vector []float32, item T) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if ix.dim == 0 {
		ix.dim = len(vector)
	}
	if len(vector) != ix.dim {
		return fmt.Errorf("%w: got %d, index has %d", ErrDimensionMismatch, len(vector), ix.dim)
	}
	ix.entries = append(ix.entries, entry[T]{Vector: vector, Norm: norm(vector), Item: item})
	return nil
}

// Len returns the number of stored vectors.
func (ix *Index[T]) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Search returns the most similar items by cosine similarity, highest first.
// Equal scores keep insertion order. Items scoring below the threshold are
// dropped.
func (ix *Index[T]) Search(query []float32, opts SearchOptions) ([]Match[T], error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.entries) == 0 || opts.K <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), ix.dim)
	}

	qn := norm(query)
	matches := make([]Match[T], len(ix.entries))
	for i, e := range ix.entries {
		matches[i] = Match[T]{Item: e.Item, Score: cosine(query, qn, e.Vector, e.Norm), Position: i}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})

	if opts.FetchK > 0 && len(matches) > opts.FetchK {
		matches = matches[:opts.FetchK]
	}
	if opts.ScoreThreshold != nil {
		kept := matches[:0]
		for _, m := range matches {
			if m.Score >= *opts.ScoreThreshold {
				kept = append(kept, m)
			}
		}
		matches = kept
	}
	if len(matches) > opts.K {
		matches = matches[:opts.K]
	}
	return matches, nil
}

type fileFormat[T any] struct {
	Dimension int        `json:"dimension"`
	Entries   []entry[T] `json:"entries"`
}

// Save writes the index to path atomically.
func (ix *Index[T]) Save(path string) error {
	ix.mu.RLock()
	data, err := json.Marshal(fileFormat[T]{Dimension: ix.dim, Entries: ix.entries})
	ix.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish index: %w", err)
	}
	return nil
}

// Load reads an index written by Save.
func Load[T any](path string) (*Index[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileFormat[T]
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, err)
	}
	ix := &Index[T]{dim: f.Dimension, entries: f.Entries}
	for i := range ix.entries {
		if len(ix.entries[i].Vector) != ix.dim {
			return nil, fmt.Errorf("%w: entry %d in %s", ErrDimensionMismatch, i, path)
		}
		ix.entries[i].Norm = norm(ix.entries[i].Vector)
	}
	return ix, nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, an float64, b []float32, bn float64) float32 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (an * bn))
}

// Package embedcache memoises embeddings in front of a VectorEncoder.
package embedcache

import (
	"context"
	"fmt"

	"recsys-orchestrator/internal/domain"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Encoder is an LRU-cached VectorEncoder. Only texts missing from the cache
// are sent to the wrapped encoder, in one call.
type Encoder struct {
	inner domain.VectorEncoder
	cache *lru.Cache[string, []float32]
}

// New wraps inner with a cache holding up to size embeddings.
func New(inner domain.VectorEncoder, size int) (*Encoder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Encoder{inner: inner, cache: cache}, nil
}

func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := e.cache.Get(e.key(t)); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.inner.Encode(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(vectors))
	}
	for j, v := range vectors {
		out[missingIdx[j]] = v
		e.cache.Add(e.key(missing[j]), v)
	}
	return out, nil
}

func (e *Encoder) Version() string {
	return e.inner.Version()
}

func (e *Encoder) key(text string) string {
	return e.inner.Version() + "\x00" + text
}

var _ domain.VectorEncoder = (*Encoder)(nil)

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase/fanout"
	"recsys-orchestrator/internal/usecase/prompts"
	"recsys-orchestrator/internal/usecase/structured"

	"github.com/google/uuid"
)

// IndexPublicationsUsecase builds the publication passage index.
type IndexPublicationsUsecase interface {
	// EnsureIndex builds the index only when the store is not ready.
	EnsureIndex(ctx context.Context) error
	// Rebuild builds the index unconditionally and returns the chunk count.
	Rebuild(ctx context.Context) (int, error)
}

// IndexOptions bounds enrichment and embedding work.
type IndexOptions struct {
	Workers     int
	CallTimeout time.Duration
	BatchSize   int
}

type indexPublicationsUsecase struct {
	source    domain.PublicationSource
	store     domain.PassageIndexStore
	completer domain.StructuredCompleter
	encoder   domain.VectorEncoder
	chunker   domain.Chunker
	hasher    domain.SourceHashPolicy
	opts      IndexOptions
	logger    *slog.Logger

	mu sync.Mutex
}

// NewIndexPublicationsUsecase creates an IndexPublicationsUsecase.
func NewIndexPublicationsUsecase(
	source domain.PublicationSource,
	store domain.PassageIndexStore,
	completer domain.StructuredCompleter,
	encoder domain.VectorEncoder,
	chunker domain.Chunker,
	hasher domain.SourceHashPolicy,
	opts IndexOptions,
	logger *slog.Logger,
) IndexPublicationsUsecase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	return &indexPublicationsUsecase{
		source:    source,
		store:     store,
		completer: completer,
		encoder:   encoder,
		chunker:   chunker,
		hasher:    hasher,
		opts:      opts,
		logger:    logger,
	}
}

func (u *indexPublicationsUsecase) EnsureIndex(ctx context.Context) error {
	ready, err := u.store.Ready(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if ready {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	// Another caller may have built it while we waited.
	ready, err = u.store.Ready(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if ready {
		return nil
	}
	if _, err := u.build(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

func (u *indexPublicationsUsecase) Rebuild(ctx context.Context) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.build(ctx)
}

func (u *indexPublicationsUsecase) build(ctx context.Context) (int, error) {
	start := time.Now()

	pubs, err := u.source.Publications(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load publications: %w", err)
	}
	for i := range pubs {
		domain.AssignHash(&pubs[i], u.hasher)
	}
	pubs = u.enrich(ctx, pubs)

	var (
		chunks []domain.PublicationChunk
		texts  []string
	)
	for _, p := range pubs {
		if strings.TrimSpace(p.CleanContent) == "" {
			continue
		}
		parts, err := u.chunker.Chunk(p.CleanContent)
		if err != nil {
			return 0, fmt.Errorf("failed to chunk %q: %w", p.IdentityKey(), err)
		}
		for _, part := range parts {
			page, err := structured.Render(prompts.ChunkPage, chunkPageInputs(part.Content, p))
			if err != nil {
				return 0, fmt.Errorf("failed to render chunk page: %w", err)
			}
			chunks = append(chunks, domain.PublicationChunk{
				ID:          uuid.New(),
				Ordinal:     part.Ordinal,
				Content:     page,
				Publication: p,
			})
			texts = append(texts, page)
		}
	}

	for lo := 0; lo < len(texts); lo += u.opts.BatchSize {
		hi := min(lo+u.opts.BatchSize, len(texts))
		vectors, err := u.encoder.Encode(ctx, texts[lo:hi])
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks %d-%d: %w", lo, hi, err)
		}
		if len(vectors) != hi-lo {
			return 0, fmt.Errorf("expected %d embeddings, got %d", hi-lo, len(vectors))
		}
		for i, v := range vectors {
			chunks[lo+i].Embedding = v
		}
	}

	if err := u.store.Build(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to build index: %w", err)
	}

	u.logger.Info("publication_index_built",
		slog.Int("publications", len(pubs)),
		slog.Int("chunks", len(chunks)),
		slog.String("encoder", u.encoder.Version()),
		slog.String("chunker", string(u.chunker.Version())),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return len(chunks), nil
}

type enrichField struct {
	name     string
	template string
	get      func(*domain.Publication) *string
}

var enrichFields = []enrichField{
	{"topics", prompts.PublicationTopics, func(p *domain.Publication) *string { return &p.LLMExtractTopics }},
	{"keywords", prompts.PublicationKeywords, func(p *domain.Publication) *string { return &p.LLMExtractKeywords }},
	{"currencies", prompts.PublicationCurrencies, func(p *domain.Publication) *string { return &p.LLMExtractCurrencies }},
	{"instruments", prompts.PublicationInstruments, func(p *domain.Publication) *string { return &p.LLMExtractInstruments }},
}

// enrich fills missing enrichment fields. A failed call leaves the field empty.
func (u *indexPublicationsUsecase) enrich(ctx context.Context, pubs []domain.Publication) []domain.Publication {
	type slot struct{ pub, field int }
	var (
		slots []slot
		tasks []fanout.Task[string]
	)
	for pi := range pubs {
		if !pubs[pi].NeedsEnrichment() || strings.TrimSpace(pubs[pi].CleanContent) == "" {
			continue
		}
		content := pubs[pi].CleanContent
		for fi, f := range enrichFields {
			if *f.get(&pubs[pi]) != "" {
				continue
			}
			slots = append(slots, slot{pi, fi})
			tasks = append(tasks, fanout.Task[string]{
				Name: pubs[pi].IdentityKey() + "/" + f.name,
				Run: func(ctx context.Context) (string, error) {
					var out prompts.Labels
					if err := u.completer.Invoke(ctx, f.template, map[string]any{"article_content": content}, prompts.LabelSet, &out); err != nil {
						return "", err
					}
					return out.Labels, nil
				},
			})
		}
	}
	if len(tasks) == 0 {
		return pubs
	}

	values := fanout.Values(fanout.Run(ctx, u.opts.Workers, u.opts.CallTimeout, tasks),
		func() string { return "" },
		func(name string, err error) {
			u.logger.Warn("publication_enrichment_failed",
				slog.String("task", name),
				slog.String("error", err.Error()))
		})
	for i, s := range slots {
		*enrichFields[s.field].get(&pubs[s.pub]) = values[i]
	}

	u.logger.Info("publications_enriched", slog.Int("calls", len(tasks)))
	return pubs
}

func chunkPageInputs(chunk string, p domain.Publication) map[string]any {
	return map[string]any{
		"chunk":       chunk,
		"title":       p.Title,
		"summary":     p.Summary,
		"language":    p.Language,
		"asset_class": p.AssetClass,
		"keywords":    p.LLMExtractKeywords,
		"currencies":  p.LLMExtractCurrencies,
		"topics":      p.LLMExtractTopics,
	}
}

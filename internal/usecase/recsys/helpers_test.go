package recsys_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase/recsys"
	"recsys-orchestrator/internal/vectorstore"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

var testPool = recsys.PoolConfig{Workers: 4}

// handler fills out for one template.
type handler func(inputs map[string]any, out any) error

// scriptedCompleter answers by template. Templates without a handler fail.
type scriptedCompleter struct {
	handlers map[string]handler

	mu    sync.Mutex
	calls map[string]int
}

func newScriptedCompleter(handlers map[string]handler) *scriptedCompleter {
	return &scriptedCompleter{handlers: handlers, calls: make(map[string]int)}
}

func (s *scriptedCompleter) Invoke(ctx context.Context, template string, inputs map[string]any, schema domain.Schema, out any) error {
	s.mu.Lock()
	s.calls[template]++
	s.mu.Unlock()
	h, ok := s.handlers[template]
	if !ok {
		return fmt.Errorf("%s: no handler: %w", schema.Name, domain.ErrTransport)
	}
	return h(inputs, out)
}

func (s *scriptedCompleter) count(template string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[template]
}

func failWith(err error) handler {
	return func(map[string]any, any) error { return err }
}

var errSchema = fmt.Errorf("bad reply: %w", domain.ErrSchemaViolation)

// keywordEncoder embeds a text as a bag of known keywords.
type keywordEncoder struct {
	keywords []string
	err      error
	failOn   string
}

func newKeywordEncoder() *keywordEncoder {
	return &keywordEncoder{keywords: []string{"usd", "options", "eur", "rates", "jpy"}}
}

func (e *keywordEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if e.failOn != "" && t == e.failOn {
			return nil, errors.New("embedder unavailable")
		}
		lower := strings.ToLower(t)
		v := make([]float32, len(e.keywords))
		for k, kw := range e.keywords {
			if strings.Contains(lower, kw) {
				v[k] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEncoder) Version() string { return "keywords" }

// memoryIndex serves passage hits from a vectorstore index.
type memoryIndex struct {
	ix  *vectorstore.Index[domain.PassageHit]
	err error
}

func newMemoryIndex(enc *keywordEncoder, hits ...domain.PassageHit) *memoryIndex {
	ix := vectorstore.New[domain.PassageHit]()
	for _, h := range hits {
		v, _ := enc.Encode(context.Background(), []string{h.Text})
		_ = ix.Add(v[0], h)
	}
	return &memoryIndex{ix: ix}
}

func (m *memoryIndex) Search(ctx context.Context, query []float32, k int) ([]domain.PassageHit, error) {
	if m.err != nil {
		return nil, m.err
	}
	matches, err := m.ix.Search(query, vectorstore.SearchOptions{K: k, ScoreThreshold: vectorstore.Threshold(0.01)})
	if err != nil {
		return nil, err
	}
	out := make([]domain.PassageHit, len(matches))
	for i, mt := range matches {
		h := mt.Item
		h.Score = mt.Score
		out[i] = h
	}
	return out, nil
}

func pub(hash, id, title string) domain.Publication {
	return domain.Publication{Hash: hash, PublicationID: id, Title: title}
}

func hit(p domain.Publication, text string) domain.PassageHit {
	return domain.PassageHit{Text: text, Score: 0.9, Publication: p}
}

func msgs(texts ...string) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(texts))
	for i, t := range texts {
		out[i] = domain.ChatMessage{Msg: t, Name: "trader", CompanyName: "Acme", Type: "chat"}
	}
	return out
}

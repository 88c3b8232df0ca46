package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"recsys-orchestrator/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type handler func(inputs map[string]any, out any) error

type scriptedCompleter struct {
	handlers map[string]handler

	mu    sync.Mutex
	calls map[string]int
}

func newScriptedCompleter(handlers map[string]handler) *scriptedCompleter {
	return &scriptedCompleter{handlers: handlers, calls: make(map[string]int)}
}

func (s *scriptedCompleter) Invoke(_ context.Context, template string, inputs map[string]any, schema domain.Schema, out any) error {
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

// keywordEncoder embeds a text as a bag of known keywords.
type keywordEncoder struct{}

var keywords = []string{"usd", "options", "eur", "rates"}

func (keywordEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		v := make([]float32, len(keywords)+1)
		v[len(keywords)] = 0.01
		for k, kw := range keywords {
			if strings.Contains(lower, kw) {
				v[k] = 1
			}
		}
		out[i] = v
	}
	return out, nil
}

func (keywordEncoder) Version() string { return "keywords" }

type staticChats struct {
	msgs []domain.ChatMessage
	err  error
}

func (s staticChats) Transcript(context.Context, domain.ClientInput, time.Time) ([]domain.ChatMessage, error) {
	return s.msgs, s.err
}

type memorySink struct {
	mu   sync.Mutex
	rows []domain.Recommendation
	err  error
}

func (s *memorySink) Write(_ context.Context, _ domain.ClientInput, _ time.Time, rows []domain.Recommendation) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	return "memory://report", nil
}

type staticPublications struct {
	mu    sync.Mutex
	pubs  []domain.Publication
	calls int
}

func (s *staticPublications) Publications(context.Context) ([]domain.Publication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	out := make([]domain.Publication, len(s.pubs))
	copy(out, s.pubs)
	return out, nil
}

func (s *staticPublications) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

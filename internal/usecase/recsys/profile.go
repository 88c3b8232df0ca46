package recsys

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase/fanout"
	"recsys-orchestrator/internal/usecase/prompts"
	"recsys-orchestrator/internal/vectorstore"
)

// Facet names used in logs and task names.
const (
	FacetSummary    = "summary"
	FacetInterest   = "interest"
	FacetProducts   = "products"
	FacetCurrencies = "currencies"
)

var facetTemplates = []struct {
	name     string
	template string
}{
	{FacetSummary, prompts.ChatSummary},
	{FacetInterest, prompts.ChatInterest},
	{FacetProducts, prompts.ChatProducts},
	{FacetCurrencies, prompts.ChatCurrencies},
}

// ExtractProfile fills sc.Profile from sc.Transcript. The four facets are computed
// independently; a failed facet stays empty. The relevant chat history is then
// retrieved from a transient index over the transcript.
func ExtractProfile(
	ctx context.Context,
	sc *StageContext,
	completer domain.StructuredCompleter,
	encoder domain.VectorEncoder,
	pool PoolConfig,
	cfg ProfileConfig,
	logger *slog.Logger,
) {
	start := time.Now()
	joined := joinTranscript(sc.Transcript)

	tasks := make([]fanout.Task[string], len(facetTemplates))
	for i, f := range facetTemplates {
		tasks[i] = fanout.Task[string]{
			Name: f.name,
			Run: func(ctx context.Context) (string, error) {
				var out prompts.Labels
				if err := completer.Invoke(ctx, f.template, map[string]any{"chat_history": joined}, prompts.LabelSet, &out); err != nil {
					return "", err
				}
				return out.Labels, nil
			},
		}
	}
	facets := fanout.Values(fanout.Run(ctx, pool.Workers, pool.CallTimeout, tasks),
		func() string { return "" },
		func(name string, err error) {
			logger.Warn("profile_facet_failed",
				slog.String("run_id", sc.RunID),
				slog.String("facet", name),
				slog.String("error", err.Error()))
		})

	sc.Profile.ChatSummary = facets[0]
	sc.Profile.ChatInterest = facets[1]
	sc.Profile.ChatProducts = facets[2]
	sc.Profile.ChatCurrencies = facets[3]
	sc.Profile.OriginalChatHistory = projectTranscript(sc.Transcript)

	history, err := relevantHistory(ctx, sc, encoder, pool.CallTimeout, cfg)
	if err != nil {
		logger.Warn("chat_history_retrieval_failed",
			slog.String("run_id", sc.RunID),
			slog.String("error", err.Error()))
	}
	sc.Profile.ChatHistory = history

	logger.Info("profile_extracted",
		slog.String("run_id", sc.RunID),
		slog.Int("transcript_messages", len(sc.Transcript)),
		slog.Int("chat_history_messages", len(history)),
		slog.Bool("has_interest", sc.Profile.ChatInterest != ""),
		slog.Bool("has_products", sc.Profile.ChatProducts != ""),
		slog.Bool("has_currencies", sc.Profile.ChatCurrencies != ""),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}

// HistoryQuery is the text the relevant chat history is retrieved with.
func HistoryQuery(p domain.ClientProfile) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.ChatInterest, p.ChatProducts, p.ChatCurrencies} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func relevantHistory(ctx context.Context, sc *StageContext, encoder domain.VectorEncoder, timeout time.Duration, cfg ProfileConfig) ([]domain.ChatMessage, error) {
	query := HistoryQuery(sc.Profile)
	if query == "" || len(sc.Transcript) == 0 {
		return []domain.ChatMessage{}, nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	texts := make([]string, 0, len(sc.Transcript)+1)
	texts = append(texts, query)
	for _, m := range sc.Transcript {
		texts = append(texts, m.Msg)
	}
	vectors, err := encoder.Encode(ctx, texts)
	if err != nil {
		return []domain.ChatMessage{}, fmt.Errorf("embed transcript: %w", err)
	}
	if len(vectors) != len(texts) {
		return []domain.ChatMessage{}, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}

	index := vectorstore.New[domain.ChatMessage]()
	for i, m := range sc.Transcript {
		if err := index.Add(vectors[i+1], m); err != nil {
			return []domain.ChatMessage{}, fmt.Errorf("index transcript: %w", err)
		}
	}
	matches, err := index.Search(vectors[0], vectorstore.SearchOptions{
		K:              cfg.HistoryK,
		FetchK:         cfg.HistoryFetchK,
		ScoreThreshold: vectorstore.Threshold(cfg.HistoryThreshold),
	})
	if err != nil {
		return []domain.ChatMessage{}, fmt.Errorf("search transcript: %w", err)
	}

	out := make([]domain.ChatMessage, len(matches))
	for i, m := range matches {
		out[i] = m.Item
	}
	return out, nil
}

func joinTranscript(msgs []domain.ChatMessage) string {
	texts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		texts = append(texts, m.Msg)
	}
	return strings.Join(texts, "\n\n")
}

func projectTranscript(msgs []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(msgs))
	for i, m := range msgs {
		out[i] = domain.ChatMessage{Name: m.Name, CompanyName: m.CompanyName, Msg: m.Msg, Type: m.Type}
	}
	return out
}

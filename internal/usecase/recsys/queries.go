package recsys

import (
	"context"
	"log/slog"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase/fanout"
	"recsys-orchestrator/internal/usecase/prompts"
)

// queryFacets is the fixed facet order of the generated query set.
var queryFacets = []struct {
	name     string
	template string
}{
	{FacetInterest, prompts.QueriesFromInterest},
	{FacetSummary, prompts.QueriesFromSummary},
	{FacetProducts, prompts.QueriesFromProducts},
	{FacetCurrencies, prompts.QueriesFromCurrencies},
}

// GenerateQueries fills sc.Queries with up to cfg.PerFacet queries per facet,
// concatenated in interest, summary, products, currencies order. A failed facet
// contributes nothing.
func GenerateQueries(
	ctx context.Context,
	sc *StageContext,
	completer domain.StructuredCompleter,
	pool PoolConfig,
	cfg QueryConfig,
	logger *slog.Logger,
) {
	inputs := map[string]any{
		"chat_interest":      sc.Profile.ChatInterest,
		"chat_summary":       sc.Profile.ChatSummary,
		"chat_products":      sc.Profile.ChatProducts,
		"chat_currencies":    sc.Profile.ChatCurrencies,
		"number_of_question": cfg.PerFacet,
	}

	tasks := make([]fanout.Task[[]string], len(queryFacets))
	for i, f := range queryFacets {
		tasks[i] = fanout.Task[[]string]{
			Name: f.name,
			Run: func(ctx context.Context) ([]string, error) {
				var out prompts.Queries
				if err := completer.Invoke(ctx, f.template, inputs, prompts.QueryList, &out); err != nil {
					return nil, err
				}
				return out.Strings(cfg.PerFacet), nil
			},
		}
	}
	perFacet := fanout.Values(fanout.Run(ctx, pool.Workers, pool.CallTimeout, tasks),
		func() []string { return nil },
		func(name string, err error) {
			logger.Warn("query_generation_failed",
				slog.String("run_id", sc.RunID),
				slog.String("facet", name),
				slog.String("error", err.Error()))
		})

	var queries []string
	for _, qs := range perFacet {
		queries = append(queries, qs...)
	}
	sc.Queries = queries

	logger.Info("queries_generated",
		slog.String("run_id", sc.RunID),
		slog.Int("query_count", len(queries)),
		slog.Any("queries", queries))
}

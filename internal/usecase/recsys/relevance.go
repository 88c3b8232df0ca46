package recsys

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase/fanout"
	"recsys-orchestrator/internal/usecase/prompts"
)

// Judge names, in evidence concatenation order.
const (
	JudgeCurrency    = "currency"
	JudgeChatTopic   = "chat_topic"
	JudgeChatProduct = "chat_product"
)

var judges = []struct {
	name     string
	template string
}{
	{JudgeCurrency, prompts.CurrencyRelevance},
	{JudgeChatTopic, prompts.ChatTopicRelevance},
	{JudgeChatProduct, prompts.ChatProductRelevance},
}

// ScoreRelevance runs the three judges for every shortlisted candidate and fills
// sc.Recommendations in shortlist order. A failed judge scores zero with no
// evidences.
func ScoreRelevance(
	ctx context.Context,
	sc *StageContext,
	completer domain.StructuredCompleter,
	pool PoolConfig,
	logger *slog.Logger,
) {
	start := time.Now()

	tasks := make([]fanout.Task[domain.RelevanceResult], 0, len(sc.Shortlist)*len(judges))
	for _, c := range sc.Shortlist {
		inputs := relevanceInputs(sc.Profile, c.Publication)
		for _, j := range judges {
			tasks = append(tasks, fanout.Task[domain.RelevanceResult]{
				Name: j.name + ":" + c.Key,
				Run: func(ctx context.Context) (domain.RelevanceResult, error) {
					var out domain.RelevanceResult
					if err := completer.Invoke(ctx, j.template, inputs, prompts.Relevance, &out); err != nil {
						return domain.RelevanceResult{}, err
					}
					return out, nil
				},
			})
		}
	}

	results := fanout.Values(fanout.Run(ctx, pool.Workers, pool.CallTimeout, tasks),
		domain.NeutralRelevance,
		func(name string, err error) {
			logger.Warn("relevance_judge_failed",
				slog.String("run_id", sc.RunID),
				slog.String("task", name),
				slog.String("error", err.Error()))
		})

	recs := make([]domain.Recommendation, len(sc.Shortlist))
	for i, c := range sc.Shortlist {
		base := i * len(judges)
		recs[i] = BuildRecommendation(c, results[base], results[base+1], results[base+2])
	}
	sc.Recommendations = recs

	logger.Info("relevance_scored",
		slog.String("run_id", sc.RunID),
		slog.Int("candidate_count", len(sc.Shortlist)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}

// BuildRecommendation combines the three judge results of one candidate.
func BuildRecommendation(c domain.Candidate, currency, topic, product domain.RelevanceResult) domain.Recommendation {
	evidences := make([]string, 0, len(currency.Evidences)+len(topic.Evidences)+len(product.Evidences))
	evidences = append(evidences, currency.Evidences...)
	evidences = append(evidences, topic.Evidences...)
	evidences = append(evidences, product.Evidences...)

	return domain.Recommendation{
		Key:                  c.Key,
		Title:                c.Publication.Title,
		CurrencyRelevance:    currency,
		ChatTopicRelevance:   topic,
		ChatProductRelevance: product,
		WeightedAverageScore: domain.WeightedAverage(currency.Score, topic.Score, product.Score),
		Evidences:            evidences,
	}
}

// RankRecommendations orders rows by weighted score, highest first. Ties keep
// the precision order.
func RankRecommendations(recs []domain.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].WeightedAverageScore > recs[j].WeightedAverageScore
	})
}

func relevanceInputs(p domain.ClientProfile, pub domain.Publication) map[string]any {
	currencies := pub.LLMExtractCurrencies
	if currencies == "" {
		currencies = pub.Currencies
	}
	return map[string]any{
		"client_chat_summary":    p.ChatSummary,
		"client_chat_interest":   p.ChatInterest,
		"client_chat_products":   p.ChatProducts,
		"client_chat_currencies": p.ChatCurrencies,
		"candidate_title":        pub.Title,
		"candidate_summary":      pub.Summary,
		"candidate_currencies":   currencies,
		"candidate_topics":       pub.LLMExtractTopics,
		"candidate_keywords":     pub.LLMExtractKeywords,
		"candidate_instruments":  pub.LLMExtractInstruments,
	}
}

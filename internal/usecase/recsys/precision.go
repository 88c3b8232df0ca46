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

// ScorePrecision scores every passage of every candidate and stores the best
// result on each candidate. Failed passages count as the neutral result.
func ScorePrecision(
	ctx context.Context,
	sc *StageContext,
	completer domain.StructuredCompleter,
	pool PoolConfig,
	logger *slog.Logger,
) {
	start := time.Now()

	type slot struct{ candidate, passage int }
	var slots []slot
	var tasks []fanout.Task[domain.PrecisionResult]

	for ci, c := range sc.Candidates {
		for pi, p := range c.Passages {
			inputs := map[string]any{
				"client_chat_interest":   sc.Profile.ChatInterest,
				"client_chat_products":   sc.Profile.ChatProducts,
				"client_chat_currencies": sc.Profile.ChatCurrencies,
				"passage_text":           p.Text,
			}
			slots = append(slots, slot{ci, pi})
			tasks = append(tasks, fanout.Task[domain.PrecisionResult]{
				Name: c.Key,
				Run: func(ctx context.Context) (domain.PrecisionResult, error) {
					var out domain.PrecisionResult
					if err := completer.Invoke(ctx, prompts.PassagePrecision, inputs, prompts.Precision, &out); err != nil {
						return domain.PrecisionResult{}, err
					}
					return out, nil
				},
			})
		}
	}

	failed := 0
	results := fanout.Values(fanout.Run(ctx, pool.Workers, pool.CallTimeout, tasks),
		domain.NeutralPrecision,
		func(name string, err error) {
			failed++
			logger.Warn("passage_precision_failed",
				slog.String("run_id", sc.RunID),
				slog.String("key", name),
				slog.String("error", err.Error()))
		})

	perCandidate := make([][]domain.PrecisionResult, len(sc.Candidates))
	for i, s := range slots {
		perCandidate[s.candidate] = append(perCandidate[s.candidate], results[i])
	}
	for ci := range sc.Candidates {
		if best, ok := BestPassage(perCandidate[ci]); ok {
			sc.Candidates[ci].Best = &best
		}
	}

	logger.Info("precision_scored",
		slog.String("run_id", sc.RunID),
		slog.Int("candidate_count", len(sc.Candidates)),
		slog.Int("passage_count", len(tasks)),
		slog.Int("failed_count", failed),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
}

// BestPassage returns the lexicographically largest (score, confidence) result.
// Ties keep the earliest passage.
func BestPassage(results []domain.PrecisionResult) (domain.PrecisionResult, bool) {
	if len(results) == 0 {
		return domain.PrecisionResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Outranks(best) {
			best = r
		}
	}
	return best, true
}

// FilterPrecision keeps candidates whose best passage matches the relation and
// clears both thresholds, sorts them by (score, confidence) descending with ties
// in input order, and keeps the first cfg.TopN.
func FilterPrecision(candidates []domain.Candidate, cfg PrecisionConfig) []domain.Candidate {
	kept := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		b := c.Best
		if b == nil || !b.RelationMatch {
			continue
		}
		if b.Score < cfg.MinScore || b.RelationConfidence < cfg.MinConfidence {
			continue
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Best.Outranks(*kept[j].Best)
	})

	if cfg.TopN > 0 && len(kept) > cfg.TopN {
		kept = kept[:cfg.TopN]
	}
	return kept
}

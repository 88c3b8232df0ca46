package recsys

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase/fanout"
)

// Recall searches the passage index once per query and flattens the hits in
// query order. No deduplication happens here. An unavailable index aborts the
// stage, and so does a run where every query failed; any other per-query
// failure contributes no hits.
func Recall(
	ctx context.Context,
	sc *StageContext,
	encoder domain.VectorEncoder,
	index domain.PassageIndex,
	pool PoolConfig,
	cfg RecallConfig,
	logger *slog.Logger,
) error {
	start := time.Now()

	tasks := make([]fanout.Task[[]domain.PassageHit], len(sc.Queries))
	for i, q := range sc.Queries {
		tasks[i] = fanout.Task[[]domain.PassageHit]{
			Name: q,
			Run: func(ctx context.Context) ([]domain.PassageHit, error) {
				vectors, err := encoder.Encode(ctx, []string{q})
				if err != nil {
					return nil, fmt.Errorf("encode query: %w", err)
				}
				if len(vectors) != 1 {
					return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
				}
				return index.Search(ctx, vectors[0], cfg.K)
			},
		}
	}
	results := fanout.Run(ctx, pool.Workers, pool.CallTimeout, tasks)

	failed := 0
	var lastErr error
	for _, r := range results {
		if errors.Is(r.Err, domain.ErrIndexUnavailable) {
			return fmt.Errorf("recall %q: %w", r.Name, r.Err)
		}
		if r.Err != nil {
			failed++
			lastErr = r.Err
		}
	}
	if len(results) > 0 && failed == len(results) {
		return fmt.Errorf("%w: all %d recall queries failed: %v", domain.ErrIndexUnavailable, failed, lastErr)
	}

	perQuery := fanout.Values(results,
		func() []domain.PassageHit { return nil },
		func(name string, err error) {
			logger.Warn("recall_query_failed",
				slog.String("run_id", sc.RunID),
				slog.String("query", name),
				slog.String("error", err.Error()))
		})

	var hits []domain.PassageHit
	for _, h := range perQuery {
		hits = append(hits, h...)
	}
	sc.Hits = hits

	logger.Info("recall_completed",
		slog.String("run_id", sc.RunID),
		slog.Int("query_count", len(sc.Queries)),
		slog.Int("hit_count", len(hits)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

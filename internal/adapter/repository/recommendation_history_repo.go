package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"recsys-orchestrator/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recommendationHistorySchema = `
CREATE TABLE IF NOT EXISTS recommendation_history (
	client_id       text NOT NULL,
	publication_key text NOT NULL,
	run_date        date NOT NULL,
	recorded_at     timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (client_id, publication_key)
);
`

type recommendationHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewRecommendationHistoryRepository stores sent recommendations in postgres.
func NewRecommendationHistoryRepository(pool *pgxpool.Pool) domain.RecommendationHistory {
	return &recommendationHistoryRepository{pool: pool}
}

func (r *recommendationHistoryRepository) Recommended(ctx context.Context, clientID string) (map[string]struct{}, error) {
	rows, err := executor(ctx, r.pool).Query(ctx,
		`SELECT publication_key FROM recommendation_history WHERE client_id = $1`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendation history: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan recommendation history: %w", err)
	}

	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out, nil
}

func (r *recommendationHistoryRepository) Record(ctx context.Context, clientID string, runDate time.Time, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, k := range keys {
		batch.Queue(`
			INSERT INTO recommendation_history (client_id, publication_key, run_date)
			VALUES ($1, $2, $3)
			ON CONFLICT (client_id, publication_key) DO UPDATE SET run_date = EXCLUDED.run_date, recorded_at = now()
		`, clientID, k, runDate)
	}
	if err := executor(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to record recommendation history: %w", err)
	}
	return nil
}

// MemoryHistory keeps recommendation history for the life of the process.
type MemoryHistory struct {
	mu   sync.Mutex
	sent map[string]map[string]struct{}
}

// NewMemoryHistory creates an empty in-process history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{sent: make(map[string]map[string]struct{})}
}

func (m *MemoryHistory) Recommended(_ context.Context, clientID string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.sent[clientID]))
	for k := range m.sent[clientID] {
		out[k] = struct{}{}
	}
	return out, nil
}

func (m *MemoryHistory) Record(_ context.Context, clientID string, _ time.Time, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sent[clientID]
	if !ok {
		set = make(map[string]struct{})
		m.sent[clientID] = set
	}
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return nil
}

var _ domain.RecommendationHistory = (*MemoryHistory)(nil)

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"recsys-orchestrator/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// indexBuildLockKey serialises index builds across processes.
const indexBuildLockKey int64 = 0x7265637379730001

const undefinedTable = "42P01"

const publicationChunksSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS publication_chunks (
	id              uuid PRIMARY KEY,
	publication_key text NOT NULL,
	ordinal         integer NOT NULL,
	content         text NOT NULL,
	embedding       vector NOT NULL,
	publication     jsonb NOT NULL,
	created_at      timestamptz NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS publication_chunks_key_idx ON publication_chunks (publication_key, ordinal);
`

type publicationChunkRepository struct {
	pool *pgxpool.Pool
	tx   domain.TransactionManager
}

// NewPublicationChunkRepository creates the pgvector-backed passage index.
func NewPublicationChunkRepository(pool *pgxpool.Pool, tx domain.TransactionManager) domain.PassageIndexStore {
	return &publicationChunkRepository{pool: pool, tx: tx}
}

// EnsureSchema creates the vector extension and the chunk table when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, publicationChunksSchema); err != nil {
		return fmt.Errorf("failed to create publication_chunks: %w", err)
	}
	if _, err := pool.Exec(ctx, recommendationHistorySchema); err != nil {
		return fmt.Errorf("failed to create recommendation_history: %w", err)
	}
	return nil
}

func (r *publicationChunkRepository) Ready(ctx context.Context) (bool, error) {
	var exists bool
	err := executor(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM publication_chunks)`).Scan(&exists)
	if isUndefinedTable(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check publication_chunks: %w", err)
	}
	return exists, nil
}

// Build replaces every chunk in one transaction under an advisory lock.
func (r *publicationChunkRepository) Build(ctx context.Context, chunks []domain.PublicationChunk) error {
	rows := make([][]any, len(chunks))
	for i, c := range chunks {
		meta, err := json.Marshal(c.Publication)
		if err != nil {
			return fmt.Errorf("failed to encode publication metadata: %w", err)
		}
		rows[i] = []any{
			c.ID,
			c.Publication.IdentityKey(),
			c.Ordinal,
			c.Content,
			pgvector.NewVector(c.Embedding),
			meta,
		}
	}

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		exec := executor(ctx, r.pool)
		if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, indexBuildLockKey); err != nil {
			return fmt.Errorf("failed to acquire index build lock: %w", err)
		}
		if _, err := exec.Exec(ctx, `TRUNCATE publication_chunks`); err != nil {
			return fmt.Errorf("failed to truncate publication_chunks: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := exec.CopyFrom(
			ctx,
			pgx.Identifier{"publication_chunks"},
			[]string{"id", "publication_key", "ordinal", "content", "embedding", "publication"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("failed to bulk insert chunks: %w", err)
		}
		return nil
	})
}

func (r *publicationChunkRepository) Search(ctx context.Context, query []float32, k int) ([]domain.PassageHit, error) {
	const sql = `
		SELECT content, publication, 1 - (embedding <=> $1) AS score
		FROM publication_chunks
		ORDER BY embedding <=> $1, publication_key, ordinal
		LIMIT $2
	`
	rows, err := executor(ctx, r.pool).Query(ctx, sql, pgvector.NewVector(query), k)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("publication_chunks missing: %w", domain.ErrIndexUnavailable)
		}
		if isConnectionFailure(err) {
			return nil, fmt.Errorf("failed to search chunks: %v: %w", err, domain.ErrIndexUnavailable)
		}
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.PassageHit
	for rows.Next() {
		var (
			h    domain.PassageHit
			meta []byte
		)
		if err := rows.Scan(&h.Text, &meta, &h.Score); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if err := json.Unmarshal(meta, &h.Publication); err != nil {
			return nil, fmt.Errorf("failed to decode publication metadata: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, fmt.Errorf("publication_chunks missing: %w", domain.ErrIndexUnavailable)
		}
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return hits, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// isConnectionFailure reports errors that mean the database itself is gone:
// failed dials, SQLSTATE class 08 and server shutdown codes.
func isConnectionFailure(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	return false
}

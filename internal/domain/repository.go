package domain

import (
	"context"
	"time"
)

// PassageIndex is a read-only nearest-neighbour index over publication passages.
// It is safe for concurrent searches.
type PassageIndex interface {
	Search(ctx context.Context, query []float32, k int) ([]PassageHit, error)
}

// PassageIndexStore is a passage index that can report readiness and be
// (re)built from scratch.
type PassageIndexStore interface {
	PassageIndex
	// Ready reports whether a built index is available for reads.
	Ready(ctx context.Context) (bool, error)
	// Build replaces the index contents with chunks.
	Build(ctx context.Context, chunks []PublicationChunk) error
}

// RecommendationHistory records which publications were already sent to a client.
type RecommendationHistory interface {
	Recommended(ctx context.Context, clientID string) (map[string]struct{}, error)
	Record(ctx context.Context, clientID string, runDate time.Time, keys []string) error
}

// ClientSource loads the client registry.
type ClientSource interface {
	Clients(ctx context.Context) ([]ClientInput, error)
}

// ChatSource loads a client's transcript for a run date, oldest first.
type ChatSource interface {
	Transcript(ctx context.Context, client ClientInput, runDate time.Time) ([]ChatMessage, error)
}

// PublicationSource loads the raw publications to index.
type PublicationSource interface {
	Publications(ctx context.Context) ([]Publication, error)
}

// ReportSink persists the ranked rows of one run.
type ReportSink interface {
	Write(ctx context.Context, client ClientInput, runDate time.Time, rows []Recommendation) (string, error)
}

// TransactionManager defines the interface for handling database transactions.
type TransactionManager interface {
	// RunInTx executes the given function within a transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

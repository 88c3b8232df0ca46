// Package recsys holds the stages of the recommendation pipeline. Each stage
// reads from and writes to a StageContext and completes fully before the next
// one starts.
package recsys

import (
	"time"

	"recsys-orchestrator/internal/domain"
)

// StageContext carries data between pipeline stages.
type StageContext struct {
	// Input
	RunID      string
	ClientID   string
	RunDate    time.Time
	Transcript []domain.ChatMessage
	Exclude    map[string]struct{}

	// Profile extraction output
	Profile domain.ClientProfile

	// Query generation output
	Queries []string

	// Recall output, flattened in query order
	Hits []domain.PassageHit

	// Aggregation output
	Candidates []domain.Candidate

	// Precision filter output
	Shortlist []domain.Candidate

	// Relevance output
	Recommendations []domain.Recommendation
}

// PoolConfig bounds fan-out in every stage.
type PoolConfig struct {
	Workers     int
	CallTimeout time.Duration
}

// ProfileConfig controls chat history retrieval.
type ProfileConfig struct {
	HistoryK         int
	HistoryFetchK    int
	HistoryThreshold float32
}

// QueryConfig controls query generation.
type QueryConfig struct {
	PerFacet int
}

// RecallConfig controls passage recall.
type RecallConfig struct {
	K int
}

// AggregateConfig controls candidate building.
type AggregateConfig struct {
	MaxPassages int
}

// PrecisionConfig controls the precision gate.
type PrecisionConfig struct {
	MinScore      int
	MinConfidence float64
	TopN          int
}

// Config groups every stage parameter.
type Config struct {
	Pool      PoolConfig
	Profile   ProfileConfig
	Query     QueryConfig
	Recall    RecallConfig
	Aggregate AggregateConfig
	Precision PrecisionConfig
}

// DefaultConfig returns the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		Pool:      PoolConfig{Workers: 10, CallTimeout: 120 * time.Second},
		Profile:   ProfileConfig{HistoryK: 20, HistoryFetchK: 200, HistoryThreshold: 0.5},
		Query:     QueryConfig{PerFacet: 2},
		Recall:    RecallConfig{K: 20},
		Aggregate: AggregateConfig{MaxPassages: 3},
		Precision: PrecisionConfig{MinScore: 5, MinConfidence: 0.5, TopN: 30},
	}
}

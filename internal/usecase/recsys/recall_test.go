package recsys_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase/recsys"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecall_FlattensInQueryOrder(t *testing.T) {
	enc := newKeywordEncoder()
	usd := pub("h-usd", "p1", "USD weekly")
	eur := pub("h-eur", "p2", "EUR rates")
	index := newMemoryIndex(enc, hit(usd, "usd outlook"), hit(eur, "eur rates view"))
	sc := &recsys.StageContext{Queries: []string{"eur", "usd", "nothing"}}

	err := recsys.Recall(context.Background(), sc, enc, index, testPool, recsys.RecallConfig{K: 20}, discardLogger())

	require.NoError(t, err)
	require.Len(t, sc.Hits, 2)
	assert.Equal(t, "h-eur", sc.Hits[0].Publication.Hash)
	assert.Equal(t, "h-usd", sc.Hits[1].Publication.Hash)
}

func TestRecall_KeepsDuplicatesAcrossQueries(t *testing.T) {
	enc := newKeywordEncoder()
	usd := pub("h-usd", "p1", "USD weekly")
	index := newMemoryIndex(enc, hit(usd, "usd options"))
	sc := &recsys.StageContext{Queries: []string{"usd", "options"}}

	err := recsys.Recall(context.Background(), sc, enc, index, testPool, recsys.RecallConfig{K: 20}, discardLogger())

	require.NoError(t, err)
	assert.Len(t, sc.Hits, 2)
}

func TestRecall_FailedQueryIsSkipped(t *testing.T) {
	enc := newKeywordEncoder()
	enc.failOn = "usd"
	index := newMemoryIndex(newKeywordEncoder(), hit(pub("h1", "", "t"), "usd eur"))
	sc := &recsys.StageContext{Queries: []string{"usd", "eur"}}

	err := recsys.Recall(context.Background(), sc, enc, index, testPool, recsys.RecallConfig{K: 20}, discardLogger())

	require.NoError(t, err)
	assert.Len(t, sc.Hits, 1)
}

func TestRecall_IndexUnavailableIsFatal(t *testing.T) {
	enc := newKeywordEncoder()
	index := newMemoryIndex(enc)
	index.err = fmt.Errorf("table missing: %w", domain.ErrIndexUnavailable)
	sc := &recsys.StageContext{Queries: []string{"usd"}}

	err := recsys.Recall(context.Background(), sc, enc, index, testPool, recsys.RecallConfig{K: 20}, discardLogger())

	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestRecall_AllQueriesFailedIsFatal(t *testing.T) {
	enc := newKeywordEncoder()
	index := newMemoryIndex(enc)
	index.err = errors.New("failed to search chunks: dial tcp: connection refused")
	sc := &recsys.StageContext{Queries: []string{"usd", "options", "eur"}}

	err := recsys.Recall(context.Background(), sc, enc, index, testPool, recsys.RecallConfig{K: 20}, discardLogger())

	require.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, sc.Hits)
}

func TestRecall_NoQueriesIsNotAnError(t *testing.T) {
	enc := newKeywordEncoder()
	index := newMemoryIndex(enc)
	index.err = errors.New("unused")
	sc := &recsys.StageContext{}

	err := recsys.Recall(context.Background(), sc, enc, index, testPool, recsys.RecallConfig{K: 20}, discardLogger())

	require.NoError(t, err)
	assert.Empty(t, sc.Hits)
}

package recsys_test

import (
	"context"
	"testing"

	"recsys-orchestrator/internal/usecase/prompts"
	"recsys-orchestrator/internal/usecase/recsys"

	"github.com/stretchr/testify/assert"
)

func queriesReply(qs ...string) handler {
	return func(_ map[string]any, out any) error {
		q := out.(*prompts.Queries)
		for _, s := range qs {
			q.Queries = append(q.Queries, prompts.GeneratedQuery{Query: s})
		}
		q.Normalize()
		return nil
	}
}

func TestGenerateQueries_FixedFacetOrderAndTruncation(t *testing.T) {
	completer := newScriptedCompleter(map[string]handler{
		prompts.QueriesFromCurrencies: queriesReply("usd outlook"),
		prompts.QueriesFromProducts:   queriesReply("fx options", "vol surface", "dropped"),
		prompts.QueriesFromSummary:    queriesReply("payrolls preview"),
		prompts.QueriesFromInterest:   queriesReply("fed path", "", "terminal rate"),
	})
	sc := &recsys.StageContext{}

	recsys.GenerateQueries(context.Background(), sc, completer, testPool, recsys.QueryConfig{PerFacet: 2}, discardLogger())

	assert.Equal(t, []string{
		"fed path", "terminal rate",
		"payrolls preview",
		"fx options", "vol surface",
		"usd outlook",
	}, sc.Queries)
}

func TestGenerateQueries_FailedFacetContributesNothing(t *testing.T) {
	completer := newScriptedCompleter(map[string]handler{
		prompts.QueriesFromInterest:   failWith(errSchema),
		prompts.QueriesFromSummary:    queriesReply("summary q"),
		prompts.QueriesFromProducts:   queriesReply(),
		prompts.QueriesFromCurrencies: queriesReply("usd q"),
	})
	sc := &recsys.StageContext{}

	recsys.GenerateQueries(context.Background(), sc, completer, testPool, recsys.QueryConfig{PerFacet: 2}, discardLogger())

	assert.Equal(t, []string{"summary q", "usd q"}, sc.Queries)
	assert.Equal(t, 1, completer.count(prompts.QueriesFromInterest))
}

func TestGenerateQueries_PassesAllFacets(t *testing.T) {
	var got map[string]any
	completer := newScriptedCompleter(map[string]handler{
		prompts.QueriesFromInterest: func(in map[string]any, out any) error {
			got = in
			return nil
		},
		prompts.QueriesFromSummary:    queriesReply(),
		prompts.QueriesFromProducts:   queriesReply(),
		prompts.QueriesFromCurrencies: queriesReply(),
	})
	sc := &recsys.StageContext{}
	sc.Profile.ChatInterest = "Fed"
	sc.Profile.ChatCurrencies = "USD"

	recsys.GenerateQueries(context.Background(), sc, completer, testPool, recsys.QueryConfig{PerFacet: 3}, discardLogger())

	assert.Equal(t, "Fed", got["chat_interest"])
	assert.Equal(t, "USD", got["chat_currencies"])
	assert.Equal(t, 3, got["number_of_question"])
	assert.Contains(t, got, "chat_summary")
	assert.Contains(t, got, "chat_products")
	assert.Empty(t, sc.Queries)
}

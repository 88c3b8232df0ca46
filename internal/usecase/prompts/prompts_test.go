package prompts_test

import (
	"testing"

	"recsys-orchestrator/internal/usecase/prompts"
	"recsys-orchestrator/internal/usecase/structured"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesRender(t *testing.T) {
	inputs := map[string]any{
		"chat_history":           "client: looking at USD options",
		"chat_summary":           "USD vol",
		"chat_interest":          "Fed path",
		"chat_products":          "options",
		"chat_currencies":        "USD",
		"number_of_question":     2,
		"client_chat_summary":    "USD vol",
		"client_chat_interest":   "Fed path",
		"client_chat_products":   "options",
		"client_chat_currencies": "USD",
		"passage_text":           "USDJPY 1M risk reversals bid",
		"candidate_title":        "Weekly FX",
		"candidate_summary":      "Dollar outlook",
		"candidate_currencies":   "USD, JPY",
		"candidate_topics":       "FX",
		"candidate_keywords":     "dollar",
		"candidate_instruments":  "options",
		"article_content":        "The dollar rallied.",
		"chunk":                  "chunk text",
		"title":                  "Weekly FX",
		"summary":                "Dollar outlook",
		"language":               "en",
		"asset_class":            "FX",
		"keywords":               "dollar",
		"currencies":             "USD",
		"topics":                 "FX",
	}

	templates := map[string]string{
		"chat_summary":           prompts.ChatSummary,
		"chat_interest":          prompts.ChatInterest,
		"chat_products":          prompts.ChatProducts,
		"chat_currencies":        prompts.ChatCurrencies,
		"queries_interest":       prompts.QueriesFromInterest,
		"queries_summary":        prompts.QueriesFromSummary,
		"queries_products":       prompts.QueriesFromProducts,
		"queries_currencies":     prompts.QueriesFromCurrencies,
		"passage_precision":      prompts.PassagePrecision,
		"currency_relevance":     prompts.CurrencyRelevance,
		"chat_topic_relevance":   prompts.ChatTopicRelevance,
		"chat_product_relevance": prompts.ChatProductRelevance,
		"publication_topics":     prompts.PublicationTopics,
		"publication_keywords":   prompts.PublicationKeywords,
		"publication_currencies": prompts.PublicationCurrencies,
		"publication_instrument": prompts.PublicationInstruments,
		"chunk_page":             prompts.ChunkPage,
	}

	for name, tpl := range templates {
		t.Run(name, func(t *testing.T) {
			out, err := structured.Render(tpl, inputs)
			require.NoError(t, err)
			assert.NotContains(t, out, "{{")
		})
	}
}

func TestQueries_NormalizeAndStrings(t *testing.T) {
	q := prompts.Queries{Queries: []prompts.GeneratedQuery{{Query: " usd vol "}, {Query: ""}, {Query: "fed"}, {Query: "cpi"}}}
	q.Normalize()

	assert.Equal(t, []string{"usd vol", "fed", "cpi"}, q.Strings(0))
	assert.Equal(t, []string{"usd vol", "fed"}, q.Strings(2))
}

func TestSchemas_Required(t *testing.T) {
	assert.Equal(t, []string{"score", "evidences"}, prompts.Relevance.Required())
	assert.Contains(t, prompts.Precision.Required(), "relation_match")
	assert.Equal(t, []string{"labels"}, prompts.LabelSet.Required())
}

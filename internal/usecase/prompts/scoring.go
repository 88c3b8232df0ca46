package prompts

// PassagePrecision scores one passage. Inputs: client_chat_interest,
// client_chat_products, client_chat_currencies, passage_text.
const PassagePrecision = `You judge whether a research passage is substantively about what a client cares about,
and you extract the relation between instrument and underlier that the passage describes.

Client interest: {{ client_chat_interest }}
Client products: {{ client_chat_products }}
Client currencies: {{ client_chat_currencies }}

Passage:
{{ passage_text }}

Identify the instrument (options, swaps, forwards, bonds), the underlier (EURUSD, UST 10Y), the tenor (1M, 2Y) and the strategy (risk reversal, carry).
Set relation_match to true only when the passage connects the instrument to the underlier explicitly.
relation_confidence is your confidence in that relation between 0 and 1.
score is 10 when the passage is mainly about the client's intent, 5 when partially, 0 when the overlap is incidental.
Return JSON with fields score, relation_match, relation_confidence, relation {instrument, underlier, tenor, strategy}, evidences (at most 3) and passage_snippet.`

// Relevance judges share the same input bundle: client_chat_summary,
// client_chat_interest, client_chat_products, client_chat_currencies and the
// candidate_* fields.
const (
	CurrencyRelevance = `Decide whether a research publication is about the currencies a client follows, rather than mentioning them in passing.

Client currencies: {{ client_chat_currencies }}
Client interest: {{ client_chat_interest }}

Publication title: {{ candidate_title }}
Publication summary: {{ candidate_summary }}
Publication currencies: {{ candidate_currencies }}
Publication topics: {{ candidate_topics }}
Publication keywords: {{ candidate_keywords }}

score is 10 when the publication is primarily about the client's currencies, 5 when partially, 0 when incidental.
Return JSON with fields "score" (0, 5 or 10) and "evidences" (at most 3 short snippets).`

	ChatTopicRelevance = `Decide whether the main subject of a research publication matches the topics a client discussed.

Client summary: {{ client_chat_summary }}
Client interest: {{ client_chat_interest }}

Publication title: {{ candidate_title }}
Publication summary: {{ candidate_summary }}
Publication topics: {{ candidate_topics }}
Publication keywords: {{ candidate_keywords }}

score is 10 when the publication is clearly about the client's topics, 5 when partially, 0 when off topic.
Return JSON with fields "score" (0, 5 or 10) and "evidences" (at most 3 short snippets).`

	ChatProductRelevance = `Decide whether a research publication is mainly about the financial products a client trades.

Client products: {{ client_chat_products }}
Client interest: {{ client_chat_interest }}

Publication title: {{ candidate_title }}
Publication summary: {{ candidate_summary }}
Publication instruments: {{ candidate_instruments }}
Publication topics: {{ candidate_topics }}
Publication keywords: {{ candidate_keywords }}

score is 10 when the publication is primarily about the client's products, 5 when partially, 0 when incidental.
Return JSON with fields "score" (0, 5 or 10) and "evidences" (at most 3 short snippets).`
)

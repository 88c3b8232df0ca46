// Package prompts holds the jinja templates and reply schemas used by the
// recommendation pipeline.
package prompts

// Chat facet templates take a single input: chat_history.
const (
	ChatSummary = `You summarise conversations between a sales desk and an institutional client.

Transcript:
{{ chat_history }}

Write one or two sentences describing what the client discussed. Return JSON with a single field "labels".
Return an empty string if the transcript has no market content.`

	ChatInterest = `You extract market topics a client is interested in from a chat transcript.

Transcript:
{{ chat_history }}

List the distinct topics (for example "Fed rate path", "euro area inflation") as a comma separated string.
Return JSON with a single field "labels". Return an empty string when no topic is discussed.`

	ChatProducts = `You extract the financial products and instruments a client mentions in a chat transcript.

Transcript:
{{ chat_history }}

List products such as options, forwards, swaps or bonds as a comma separated string.
Return JSON with a single field "labels". Return an empty string when no product is mentioned.`

	ChatCurrencies = `You extract currencies and currency pairs a client mentions in a chat transcript.

Transcript:
{{ chat_history }}

List ISO currency codes or pairs (for example USD, EURUSD) as a comma separated string.
Return JSON with a single field "labels". Return an empty string when no currency is mentioned.`
)

// Query templates take the facet value and number_of_question.
const (
	QueriesFromInterest = `A client is interested in: {{ chat_interest }}

Write up to {{ number_of_question }} short search queries that would find research publications about these interests.
Return JSON {"queries": [{"query": "..."}]}. Return an empty list if the interests are empty.`

	QueriesFromSummary = `Summary of a client's recent conversations: {{ chat_summary }}

Write up to {{ number_of_question }} short search queries that would find research publications relevant to this summary.
Return JSON {"queries": [{"query": "..."}]}. Return an empty list if the summary is empty.`

	QueriesFromProducts = `Products a client trades or asked about: {{ chat_products }}

Write up to {{ number_of_question }} short search queries that would find research publications about these products.
Return JSON {"queries": [{"query": "..."}]}. Return an empty list if no products are given.`

	QueriesFromCurrencies = `Currencies a client follows: {{ chat_currencies }}

Write up to {{ number_of_question }} short search queries that would find research publications about these currencies.
Return JSON {"queries": [{"query": "..."}]}. Return an empty list if no currencies are given.`
)

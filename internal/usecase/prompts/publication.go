package prompts

// Enrichment templates take a single input: article_content.
const (
	PublicationTopics = `Read the research article below and list its main topics as a comma separated string.

{{ article_content }}

Return JSON with a single field "labels".`

	PublicationKeywords = `Read the research article below and list up to ten keywords as a comma separated string.

{{ article_content }}

Return JSON with a single field "labels".`

	PublicationCurrencies = `Read the research article below and list the currencies and currency pairs it discusses as ISO codes, comma separated.

{{ article_content }}

Return JSON with a single field "labels". Use an empty string when none are discussed.`

	PublicationInstruments = `Read the research article below and list the financial instruments it discusses (options, swaps, forwards, bonds), comma separated.

{{ article_content }}

Return JSON with a single field "labels". Use an empty string when none are discussed.`
)

// ChunkPage renders the indexed text of one chunk. Inputs: chunk, title, summary,
// language, asset_class, keywords, currencies, topics.
const ChunkPage = `{{ chunk }}

Title: {{ title }}
Summary: {{ summary }}
Language: {{ language }}
Asset class: {{ asset_class }}
Keywords: {{ keywords }}
Currencies: {{ currencies }}
Topics: {{ topics }}`

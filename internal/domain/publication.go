package domain

import (
	"github.com/google/uuid"
)

// Publication is a research item as supplied by the publication source, plus the
// enrichment fields attached at ingestion time.
type Publication struct {
	PublicationID string `json:"publication_id"`
	Hash          string `json:"hash"`
	Title         string `json:"title"`
	Summary       string `json:"summary"`
	CleanContent  string `json:"clean_content"`
	Author        string `json:"author"`
	Language      string `json:"language"`
	AssetClass    string `json:"asset_class"`
	Region        string `json:"region"`
	PublishedDate string `json:"published_date"`
	Currencies    string `json:"currencies"`

	LLMExtractTopics      string `json:"llm_extract_topics"`
	LLMExtractKeywords    string `json:"llm_extract_keywords"`
	LLMExtractCurrencies  string `json:"llm_extract_currencies"`
	LLMExtractInstruments string `json:"llm_extract_instruments"`
}

// IdentityKey returns the dedup key of the publication: the content hash, falling
// back to the publication id. It is empty when neither is set.
func (p Publication) IdentityKey() string {
	if p.Hash != "" {
		return p.Hash
	}
	return p.PublicationID
}

// NeedsEnrichment reports whether any enrichment field is still missing.
func (p Publication) NeedsEnrichment() bool {
	return p.LLMExtractTopics == "" ||
		p.LLMExtractKeywords == "" ||
		p.LLMExtractCurrencies == "" ||
		p.LLMExtractInstruments == ""
}

// PublicationChunk is one indexed passage of a publication.
type PublicationChunk struct {
	ID          uuid.UUID
	Ordinal     int
	Content     string
	Embedding   []float32
	Publication Publication
}

// PassageHit is a single nearest-neighbour match returned by the passage index.
type PassageHit struct {
	Text        string
	Score       float32
	Publication Publication
}

// Passage is a chunk of a candidate publication. Rank is 1-based among the
// passages kept for that publication.
type Passage struct {
	Text  string   `json:"text"`
	Rank  int      `json:"rank"`
	Score *float32 `json:"score,omitempty"`
}

// Candidate is a publication with its best supporting passages, prior to relevance
// scoring. Best is filled during precision scoring.
type Candidate struct {
	Key         string
	Publication Publication
	Passages    []Passage
	Best        *PrecisionResult
}

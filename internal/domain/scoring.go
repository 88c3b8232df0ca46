package domain

import (
	"math"
	"strings"
)

// Allowed judge scores.
const (
	ScoreNone    = 0
	ScorePartial = 5
	ScoreFull    = 10
)

// MaxEvidences caps the evidence snippets kept per judge reply.
const MaxEvidences = 3

// RelevanceResult is one judge's verdict on a candidate.
type RelevanceResult struct {
	Score     int      `json:"score" validate:"oneof=0 5 10"`
	Evidences []string `json:"evidences" validate:"max=3"`
}

// Normalize trims evidence snippets, drops empty ones and caps the list.
func (r *RelevanceResult) Normalize() {
	r.Evidences = normalizeEvidences(r.Evidences)
}

// Relation describes what a passage is concretely about.
type Relation struct {
	Instrument string `json:"instrument"`
	Underlier  string `json:"underlier"`
	Tenor      string `json:"tenor"`
	Strategy   string `json:"strategy"`
}

// PrecisionResult is the aboutness verdict for a single passage.
type PrecisionResult struct {
	Score              int      `json:"score" validate:"oneof=0 5 10"`
	RelationMatch      bool     `json:"relation_match"`
	RelationConfidence float64  `json:"relation_confidence" validate:"gte=0,lte=1"`
	Relation           Relation `json:"relation"`
	Evidences          []string `json:"evidences" validate:"max=3"`
	PassageSnippet     string   `json:"passage_snippet"`
}

// Normalize trims evidence snippets, drops empty ones and caps the list.
func (r *PrecisionResult) Normalize() {
	r.Evidences = normalizeEvidences(r.Evidences)
	r.PassageSnippet = strings.TrimSpace(r.PassageSnippet)
}

// Outranks reports whether r sorts strictly before other: score first, relation
// confidence as tie-break.
func (r PrecisionResult) Outranks(other PrecisionResult) bool {
	if r.Score != other.Score {
		return r.Score > other.Score
	}
	return r.RelationConfidence > other.RelationConfidence
}

// NeutralPrecision is substituted when a passage could not be scored.
func NeutralPrecision() PrecisionResult {
	return PrecisionResult{
		Score:              ScoreNone,
		RelationMatch:      false,
		RelationConfidence: 0,
		Evidences:          []string{},
	}
}

// NeutralRelevance is substituted when a judge call fails.
func NeutralRelevance() RelevanceResult {
	return RelevanceResult{Score: ScoreNone, Evidences: []string{}}
}

// Recommendation is one output row of the pipeline.
type Recommendation struct {
	Key                  string          `json:"key"`
	Title                string          `json:"title"`
	CurrencyRelevance    RelevanceResult `json:"currency_relevance"`
	ChatTopicRelevance   RelevanceResult `json:"chat_topic_relevance"`
	ChatProductRelevance RelevanceResult `json:"chat_product_relevance"`
	WeightedAverageScore int             `json:"weighted_average_score"`
	Evidences            []string        `json:"evidences"`
}

// WeightedAverage returns the equally weighted mean of scores rounded half away
// from zero. Means of three scores drawn from {0,5,10} never land on .5, so the
// policy only matters for other inputs.
func WeightedAverage(scores ...int) int {
	if len(scores) == 0 {
		return 0
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	return int(math.Round(float64(sum) / float64(len(scores))))
}

func normalizeEvidences(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		out = append(out, e)
		if len(out) == MaxEvidences {
			break
		}
	}
	return out
}

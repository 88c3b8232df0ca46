package prompts

import (
	"strings"

	"recsys-orchestrator/internal/domain"
)

// LabelSet is the reply of facet and enrichment calls.
var LabelSet = domain.Schema{
	Name: "label_set",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"labels": map[string]any{"type": "string"},
		},
		"required": []string{"labels"},
	},
}

// QueryList is the reply of query generation calls.
var QueryList = domain.Schema{
	Name: "query_list",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"queries": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{"type": "string"},
					},
					"required": []string{"query"},
				},
			},
		},
		"required": []string{"queries"},
	},
}

var scoreEnum = map[string]any{"type": "integer", "enum": []int{domain.ScoreNone, domain.ScorePartial, domain.ScoreFull}}

var evidenceList = map[string]any{
	"type":     "array",
	"items":    map[string]any{"type": "string"},
	"maxItems": domain.MaxEvidences,
}

// Relevance is the reply of each relevance judge.
var Relevance = domain.Schema{
	Name: "relevance",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":     scoreEnum,
			"evidences": evidenceList,
		},
		"required": []string{"score", "evidences"},
	},
}

// Precision is the reply of the passage precision scorer.
var Precision = domain.Schema{
	Name: "passage_precision",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":               scoreEnum,
			"relation_match":      map[string]any{"type": "boolean"},
			"relation_confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
			"relation": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"instrument": map[string]any{"type": "string"},
					"underlier":  map[string]any{"type": "string"},
					"tenor":      map[string]any{"type": "string"},
					"strategy":   map[string]any{"type": "string"},
				},
			},
			"evidences":       evidenceList,
			"passage_snippet": map[string]any{"type": "string"},
		},
		"required": []string{"score", "relation_match", "relation_confidence", "relation", "evidences"},
	},
}

// Labels decodes a LabelSet reply.
type Labels struct {
	Labels string `json:"labels"`
}

// Normalize trims the label string.
func (l *Labels) Normalize() {
	l.Labels = strings.TrimSpace(l.Labels)
}

// GeneratedQuery is one entry of a QueryList reply.
type GeneratedQuery struct {
	Query string `json:"query"`
}

// Queries decodes a QueryList reply.
type Queries struct {
	Queries []GeneratedQuery `json:"queries"`
}

// Normalize trims queries and drops empty ones.
func (q *Queries) Normalize() {
	kept := q.Queries[:0]
	for _, gq := range q.Queries {
		gq.Query = strings.TrimSpace(gq.Query)
		if gq.Query != "" {
			kept = append(kept, gq)
		}
	}
	q.Queries = kept
}

// Strings returns the query texts, at most limit of them when limit is positive.
func (q Queries) Strings(limit int) []string {
	out := make([]string, 0, len(q.Queries))
	for _, gq := range q.Queries {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, gq.Query)
	}
	return out
}

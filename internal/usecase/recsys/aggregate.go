package recsys

import (
	"fmt"
	"log/slog"

	"recsys-orchestrator/internal/domain"
)

// Aggregate groups hits by publication identity and caps each group at
// maxPassages, keeping first-seen order for both groups and passages. A
// passage text recalled again for the same publication is kept once, so the
// cap counts distinct passages. Hits without hash or publication id get a
// synthetic key that never equals a real identity key in hits, so they are
// not lost and never merge into a real publication. Groups whose key is in
// exclude are dropped. Aggregate is deterministic for a given hit order.
func Aggregate(hits []domain.PassageHit, maxPassages int, exclude map[string]struct{}, logger *slog.Logger) []domain.Candidate {
	if maxPassages <= 0 {
		maxPassages = 3
	}

	realKeys := make(map[string]struct{}, len(hits))
	for _, hit := range hits {
		if key := hit.Publication.IdentityKey(); key != "" {
			realKeys[key] = struct{}{}
		}
	}

	var order []string
	groups := make(map[string]*domain.Candidate)
	seenText := make(map[string]map[string]struct{})

	for idx, hit := range hits {
		key := hit.Publication.IdentityKey()
		if key == "" {
			key = syntheticKey(idx, realKeys)
			if logger != nil {
				logger.Warn("publication_identity_missing",
					slog.String("synthetic_key", key),
					slog.String("title", hit.Publication.Title),
					slog.String("error", domain.ErrIdentityMissing.Error()))
			}
		} else if _, skip := exclude[key]; skip {
			continue
		}

		c, ok := groups[key]
		if !ok {
			c = &domain.Candidate{Key: key, Publication: hit.Publication}
			groups[key] = c
			seenText[key] = make(map[string]struct{})
			order = append(order, key)
		}
		if len(c.Passages) >= maxPassages {
			continue
		}
		// the same chunk recalled by several queries is scored once
		if _, dup := seenText[key][hit.Text]; dup {
			continue
		}
		seenText[key][hit.Text] = struct{}{}

		score := hit.Score
		c.Passages = append(c.Passages, domain.Passage{
			Text:  hit.Text,
			Rank:  len(c.Passages) + 1,
			Score: &score,
		})
	}

	out := make([]domain.Candidate, 0, len(order))
	for _, key := range order {
		out = append(out, *groups[key])
	}
	return out
}

// syntheticKey returns nohash-<idx>, suffixed until it is not a real key.
func syntheticKey(idx int, taken map[string]struct{}) string {
	key := fmt.Sprintf("nohash-%d", idx)
	for n := 1; ; n++ {
		if _, ok := taken[key]; !ok {
			return key
		}
		key = fmt.Sprintf("nohash-%d~%d", idx, n)
	}
}

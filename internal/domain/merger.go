package domain

import (
	"strings"
	"unicode/utf8"
)

// mergeSplits joins consecutive pieces with separator into chunks of at most the
// chunk size. When a chunk is emitted, pieces are dropped from its front until
// no more than the overlap remains, and those trailing pieces start the next one.
func (c *recursiveChunker) mergeSplits(splits []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)

	var docs []string
	var current []string
	total := 0

	joinedLen := func(n int) int {
		if len(current) > 0 {
			return total + n + sepLen
		}
		return total + n
	}

	for _, piece := range splits {
		n := utf8.RuneCountInString(piece)
		if joinedLen(n) > c.size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.overlap || (total > 0 && joinedLen(n) > c.size) {
				drop := utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}

	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

package domain

import (
	"strings"
	"unicode/utf8"
)

// splitRecursive picks the first separator present in text and splits on it.
// Pieces longer than the chunk size are split again with the remaining
// separators; short pieces are merged.
func (c *recursiveChunker) splitRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var result []string
	var pending []string
	for _, piece := range splitOn(text, separator) {
		if utf8.RuneCountInString(piece) < c.size {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			result = append(result, c.mergeSplits(pending, separator)...)
			pending = nil
		}
		if len(rest) == 0 {
			result = append(result, piece)
			continue
		}
		result = append(result, c.splitRecursive(piece, rest)...)
	}
	if len(pending) > 0 {
		result = append(result, c.mergeSplits(pending, separator)...)
	}
	return result
}

// splitOn splits text on separator and drops empty pieces. The empty separator
// yields one piece per character.
func splitOn(text, separator string) []string {
	var parts []string
	if separator == "" {
		parts = make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(text, separator)
	}

	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

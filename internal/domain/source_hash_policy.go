package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SourceHashPolicy computes the content-addressed identity of a publication.
// Equal title and content (after trimming) always produce the same hash.
type SourceHashPolicy interface {
	Compute(title, content string) string
}

type sourceHashPolicy struct{}

// NewSourceHashPolicy creates the default SHA-256 policy.
func NewSourceHashPolicy() SourceHashPolicy {
	return &sourceHashPolicy{}
}

// Compute hashes trimmed title and content joined by a NUL byte so that
// component boundaries stay unambiguous.
func (p *sourceHashPolicy) Compute(title, content string) string {
	joined := strings.TrimSpace(title) + "\x00" + strings.TrimSpace(content)
	sum := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(sum[:])
}

// AssignHash fills a missing publication hash using policy. Existing hashes are
// left untouched, as are publications with neither title nor content.
func AssignHash(p *Publication, policy SourceHashPolicy) {
	if p.Hash != "" {
		return
	}
	if strings.TrimSpace(p.Title) == "" && strings.TrimSpace(p.CleanContent) == "" {
		return
	}
	p.Hash = policy.Compute(p.Title, p.CleanContent)
}

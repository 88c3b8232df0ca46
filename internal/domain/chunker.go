package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ChunkerVersion identifies the splitting algorithm that produced an index.
type ChunkerVersion string

const (
	// ChunkerVersionRecursiveV1 is the recursive character splitter.
	ChunkerVersionRecursiveV1 ChunkerVersion = "recursive-v1"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of trailing characters repeated at the
	// start of the next chunk.
	DefaultChunkOverlap = 100
)

// DefaultSeparators are tried in order; the empty separator splits into characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunk represents a single piece of a document.
type Chunk struct {
	Ordinal int    // Sequence number (0-indexed)
	Content string // The actual text content
	Hash    string // Stable hash of the content (SHA-256)
}

// Chunker defines the interface for splitting text into chunks.
type Chunker interface {
	Chunk(body string) ([]Chunk, error)
	Version() ChunkerVersion
}

// ChunkerOptions configures the recursive splitter.
type ChunkerOptions struct {
	Size       int
	Overlap    int
	Separators []string
}

type recursiveChunker struct {
	size       int
	overlap    int
	separators []string
}

// NewChunker creates the default recursive splitter (1000/100).
func NewChunker() Chunker {
	return NewChunkerWithOptions(ChunkerOptions{Size: DefaultChunkSize, Overlap: DefaultChunkOverlap})
}

// NewChunkerWithOptions creates a recursive splitter. A non-positive size falls
// back to the default and an overlap not smaller than the size is clamped.
func NewChunkerWithOptions(opts ChunkerOptions) Chunker {
	if opts.Size <= 0 {
		opts.Size = DefaultChunkSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.Overlap >= opts.Size {
		opts.Overlap = opts.Size / 10
	}
	if len(opts.Separators) == 0 {
		opts.Separators = DefaultSeparators
	}
	return &recursiveChunker{size: opts.Size, overlap: opts.Overlap, separators: opts.Separators}
}

func (c *recursiveChunker) Version() ChunkerVersion {
	return ChunkerVersionRecursiveV1
}

// Chunk splits body on the coarsest separator present, recursing into pieces
// that are still too long, then merges neighbours back up to the chunk size with
// the configured overlap.
func (c *recursiveChunker) Chunk(body string) ([]Chunk, error) {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	pieces := c.splitRecursive(normalized, c.separators)

	chunks := make([]Chunk, 0, len(pieces))
	for i, content := range pieces {
		hashBytes := sha256.Sum256([]byte(content))
		chunks = append(chunks, Chunk{
			Ordinal: i,
			Content: content,
			Hash:    hex.EncodeToString(hashBytes[:]),
		})
	}
	return chunks, nil
}

package domain

import "errors"

// Error kinds surfaced by the pipeline. Adapters wrap them with context; callers
// match with errors.Is.
var (
	// ErrTransport means the completion or embedding service was unreachable,
	// timed out or answered with a non-success status.
	ErrTransport = errors.New("transport error")
	// ErrSchemaViolation means a structured reply did not parse into the schema.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrIndexUnavailable means the publication index is missing and could not be built.
	ErrIndexUnavailable = errors.New("similarity index unavailable")
	// ErrIdentityMissing means a retrieved passage carried neither hash nor publication id.
	ErrIdentityMissing = errors.New("publication identity missing")
)

package domain

import "errors"

var (
	// ErrCollaboratorUnavailable signals a transport or service failure in an
	// external collaborator (asset search, metadata, vector store).
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	// ErrEmbedding signals an embedding provider failure. Fatal for the asset
	// being enriched: a record without a vector cannot be indexed.
	ErrEmbedding = errors.New("embedding failed")
	// ErrTaggingDegraded signals a tagging provider failure. Non-fatal: the
	// enrichment pipeline substitutes default tags and continues.
	ErrTaggingDegraded = errors.New("tagging degraded")
	// ErrDimensionMismatch signals vectors of different lengths in a similarity
	// computation or an upsert against an index of another dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNoMatch signals that reconciliation found no acceptable asset for a
	// catalog entry. A valid absent result, not a failure.
	ErrNoMatch = errors.New("no match found")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

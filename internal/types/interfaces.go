package types

import "context"

// Retriever returns the top-k reference chunks for a query, scoped to a
// playbook version. An empty result means the version is unindexed or the
// collection is empty; it is not an error.
type Retriever interface {
	Query(ctx context.Context, versionID, text string, k int) ([]ReferenceChunk, error)
}

// CompletionClient runs a single LLM completion. Implementations must
// return a deterministic fallback with estimated usage when no live
// backend is configured, rather than failing.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, Usage, error)
}

// VersionSource resolves playbook versions for a run.
type VersionSource interface {
	// LatestVersion returns the most recently created version, or nil
	// when no version is stored.
	LatestVersion(ctx context.Context) (*PlaybookVersion, error)
	GetVersion(ctx context.Context, id string) (*PlaybookVersion, error)
}

// EventSink receives progress events from a run. Delivery must be
// non-blocking from the publisher's perspective.
type EventSink interface {
	Publish(analysisID, event string, data any)
}

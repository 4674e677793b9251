package store

import (
	"context"
	"strings"
)

// PersistedQuery is a stored GraphQL query document, addressed by a
// client-supplied opaque ID (typically a hash of the query text).
type PersistedQuery struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Name string `json:"name"`
}

// Store persists query documents keyed by normalized ID.
//
// Storage is write-once: the first Put for an ID wins and later Puts for the
// same ID are no-ops returning success. Get for an ID that was never stored
// reports absence, not an error. IDs are case-insensitive; callers normalize
// with NormalizeID before calling, and implementations must not reintroduce
// case sensitivity in how they index keys.
type Store interface {
	// Get retrieves a stored query by ID. The boolean reports whether the
	// ID had a stored entry; a missing entry is not an error.
	Get(ctx context.Context, id string) (PersistedQuery, bool, error)

	// Put stores a query under the given ID. If an entry already exists
	// the call is a no-op and returns nil.
	Put(ctx context.Context, id, text, name string) error
}

// NormalizeID folds a query ID to its canonical lowercase form. Only the ID
// is folded; query text and operation names keep their original case.
func NormalizeID(id string) string {
	return strings.ToLower(id)
}

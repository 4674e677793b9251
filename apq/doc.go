// Package apq implements the automatic persisted queries (APQ) protocol
// core: the request interceptor that resolves or registers persisted query
// IDs before GraphQL execution, and the status mapper applied to the
// response afterwards.
//
// # Protocol
//
// Clients first probe with only a query ID. On a miss the server answers
// with the PersistedQueryNotFound sentinel and HTTP 202, prompting the
// client to resend the ID together with the full query text, which the
// server stores. Subsequent ID-only requests then hit, and because they
// carry no query text they are GET-safe and edge-cacheable.
//
// Per request the interceptor takes exactly one of three branches:
//
//   - Register (ID and text present): store the text under the lowercased
//     ID if not already stored. The write's outcome never affects the
//     current request.
//   - Resolve (ID only): fill in the stored text, or fail with the
//     sentinel error.
//   - Pass-through (no ID): leave the request alone.
//
// In every branch the query ID is stripped from the outgoing request so no
// downstream persistence layer re-processes it.
//
// # Wire contract
//
// The sentinel message "PersistedQueryNotFound", the placeholder operation
// name "UnnamedQuery", and the 202 status for misses are stable contract
// constants interoperating with existing Apollo client implementations; do
// not treat them as configurable strings.
package apq

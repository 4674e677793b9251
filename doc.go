// Package persistedqueries adds automatic persisted query (APQ) support in
// front of an existing GraphQL HTTP endpoint.
//
// # Protocol
//
// Clients send a hash of their query instead of the full text. The server
// resolves the hash to previously stored query text, or answers with the
// PersistedQueryNotFound sentinel (HTTP 202) instructing the client to
// resend hash and text together so the pair can be stored for future
// optimistic requests. Because ID-only requests are small and
// deterministic, they ride GET and become cacheable at the edge.
//
// # Layout
//
//   - apq: the protocol core — request interceptor state machine and
//     response status mapper
//   - store: the write-once query store contract with memory, NATS
//     JetStream KV and Redis backends
//   - gateway: HTTP middleware and an optional standalone server hosting it
//   - metric: Prometheus registry shared by the instrumented pieces
//   - errors: classified error handling used across packages
//
// # Usage
//
// Wrap an existing GraphQL handler:
//
//	interceptor, _ := apq.NewInterceptor(store.NewMemoryStore())
//	http.Handle("/graphql", gateway.NewMiddleware(interceptor, graphqlHandler, nil))
//
// Or run the standalone gateway with a shared backend:
//
//	cfg := gateway.DefaultConfig()
//	cfg.Backend.Type = gateway.BackendNATS
//	srv, err := gateway.New(ctx, cfg, graphqlHandler, gateway.Dependencies{NATSConn: nc})
//
// This module does not parse, validate or execute GraphQL, does not verify
// that a hash matches its query text, and never evicts stored queries.
package persistedqueries

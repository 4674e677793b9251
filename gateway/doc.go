// Package gateway integrates the persisted queries interceptor with an
// existing GraphQL HTTP endpoint.
//
// The Middleware is the primary surface: it wraps any http.Handler serving
// GraphQL and applies the persisted query protocol to both POST bodies and
// GET query strings before the request reaches the handler, then runs the
// response through the status mapper. Integrators with their own server
// mount the Middleware (or Server.Handler) directly.
//
// The Server is a convenience host for standalone deployments: it resolves
// the configured store backend (memory, NATS JetStream KV, or Redis),
// assembles the interceptor with any load/save overrides, and serves the
// middleware together with health, metrics and playground endpoints under a
// graceful start/stop lifecycle.
//
// Misconfiguration is deliberately non-fatal at the protocol level: an
// empty or unknown backend type disables persistence and the middleware
// forwards every request untouched, exactly as if it were absent.
package gateway

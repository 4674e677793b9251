// Package store defines the persistence contract for persisted GraphQL
// queries and provides its backends.
//
// # Contract
//
// A Store maps a normalized (lowercase) opaque query ID to a stored query
// document. Storage is write-once: the first Put for an ID wins and every
// later Put for the same ID is a silent no-op. Get reports absence with a
// boolean rather than an error, so a never-stored ID is a routine outcome,
// not a failure.
//
// Because writes are idempotent, concurrent registrations for the same ID
// racing across a process fleet are safe by construction; each backend
// supplies the atomicity (map under lock, JetStream KV Create, Redis SETNX)
// that guarantees a single record per ID.
//
// # Backends
//
//   - MemoryStore: in-process map, the default backend
//   - NATSStore: NATS JetStream KV bucket, shared across a fleet
//   - RedisStore: Redis with SETNX, shared across a fleet
//   - InstrumentedStore: Prometheus counter decorator over any backend
//
// Backends never expire or evict records; retention is the deployment's
// concern.
package store

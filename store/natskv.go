package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Quartz/wp-graphql-persisted-queries/errors"
	"github.com/Quartz/wp-graphql-persisted-queries/pkg/retry"
)

// NATSConfig configures the NATS JetStream KV backend.
type NATSConfig struct {
	// Bucket is the KV bucket holding persisted queries (default: "persisted_queries")
	Bucket string

	// Description is applied when the bucket is created by this process
	Description string

	// Timeout bounds each KV operation (default: 5s)
	Timeout time.Duration
}

// withDefaults fills zero-valued fields.
func (c NATSConfig) withDefaults() NATSConfig {
	if c.Bucket == "" {
		c.Bucket = "persisted_queries"
	}
	if c.Description == "" {
		c.Description = "GraphQL persisted query documents"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

// NATSStore persists queries in a NATS JetStream KV bucket. The bucket's
// Create operation is atomic, so concurrent registrations for the same ID
// resolve to a single record without locking: the first writer wins and
// later writers observe a key-exists conflict, which Put treats as success.
type NATSStore struct {
	bucket  jetstream.KeyValue
	timeout time.Duration
	logger  *slog.Logger
}

// NewNATSStore binds (or creates) the configured KV bucket and returns a
// store backed by it. Binding is retried briefly since the middleware often
// starts alongside the NATS server.
func NewNATSStore(ctx context.Context, nc *nats.Conn, cfg NATSConfig, logger *slog.Logger) (*NATSStore, error) {
	if nc == nil {
		return nil, errors.WrapFatal(errors.ErrNoConnection, "NATSStore", "NewNATSStore",
			"NATS connection is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, errors.WrapFatal(err, "NATSStore", "NewNATSStore", "create JetStream context")
	}

	bucket, err := retry.DoWithResult(ctx, retry.Quick(), func() (jetstream.KeyValue, error) {
		kv, err := js.KeyValue(ctx, cfg.Bucket)
		if stderrors.Is(err, jetstream.ErrBucketNotFound) {
			return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
				Bucket:      cfg.Bucket,
				Description: cfg.Description,
			})
		}
		return kv, err
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "NATSStore", "NewNATSStore", "bind KV bucket")
	}

	logger.Info("persisted query store ready", "backend", "nats", "bucket", cfg.Bucket)

	return &NATSStore{
		bucket:  bucket,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "nats-store"),
	}, nil
}

// Get retrieves a stored query by ID.
func (s *NATSStore) Get(ctx context.Context, id string) (PersistedQuery, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry, err := s.bucket.Get(ctx, NormalizeID(id))
	if err != nil {
		if stderrors.Is(err, jetstream.ErrKeyNotFound) {
			return PersistedQuery{}, false, nil
		}
		return PersistedQuery{}, false, errors.WrapTransient(err, "NATSStore", "Get", "kv get")
	}

	var pq PersistedQuery
	if err := json.Unmarshal(entry.Value(), &pq); err != nil {
		return PersistedQuery{}, false, errors.WrapInvalid(err, "NATSStore", "Get", "decode record")
	}

	return pq, true, nil
}

// Put stores a query under the given ID. A key-exists conflict means another
// writer landed first, which satisfies the write-once contract.
func (s *NATSStore) Put(ctx context.Context, id, text, name string) error {
	key := NormalizeID(id)

	data, err := json.Marshal(PersistedQuery{ID: key, Text: text, Name: name})
	if err != nil {
		return errors.WrapInvalid(err, "NATSStore", "Put", "encode record")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.bucket.Create(ctx, key, data); err != nil {
		if stderrors.Is(err, jetstream.ErrKeyExists) {
			return nil
		}
		return errors.WrapTransient(err, "NATSStore", "Put", "kv create")
	}

	s.logger.Debug("persisted query stored", "id", key, "name", name)
	return nil
}

var _ Store = (*NATSStore)(nil)

package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/Quartz/wp-graphql-persisted-queries/errors"
)

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	// KeyPrefix namespaces persisted query keys (default: "apq:")
	KeyPrefix string

	// Timeout bounds each Redis operation (default: 5s)
	Timeout time.Duration
}

func (c RedisConfig) withDefaults() RedisConfig {
	if c.KeyPrefix == "" {
		c.KeyPrefix = "apq:"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	return c
}

// RedisStore persists queries in Redis. SETNX provides the atomic
// first-writer-wins semantics required by the write-once contract. Records
// are stored without expiry; eviction is left to the Redis deployment.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewRedisStore creates a store backed by the given Redis client.
func NewRedisStore(client redis.UniversalClient, cfg RedisConfig, logger *slog.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, errors.WrapFatal(errors.ErrNoConnection, "RedisStore", "NewRedisStore",
			"redis client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	return &RedisStore{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		timeout:   cfg.Timeout,
		logger:    logger.With("component", "redis-store"),
	}, nil
}

func (s *RedisStore) key(id string) string {
	return s.keyPrefix + NormalizeID(id)
}

// Get retrieves a stored query by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (PersistedQuery, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return PersistedQuery{}, false, nil
		}
		return PersistedQuery{}, false, errors.WrapTransient(err, "RedisStore", "Get", "redis get")
	}

	var pq PersistedQuery
	if err := json.Unmarshal(data, &pq); err != nil {
		return PersistedQuery{}, false, errors.WrapInvalid(err, "RedisStore", "Get", "decode record")
	}

	return pq, true, nil
}

// Put stores a query under the given ID via SETNX; an existing key is left
// untouched and the call succeeds.
func (s *RedisStore) Put(ctx context.Context, id, text, name string) error {
	key := NormalizeID(id)

	data, err := json.Marshal(PersistedQuery{ID: key, Text: text, Name: name})
	if err != nil {
		return errors.WrapInvalid(err, "RedisStore", "Put", "encode record")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	created, err := s.client.SetNX(ctx, s.key(id), data, 0).Result()
	if err != nil {
		return errors.WrapTransient(err, "RedisStore", "Put", "redis setnx")
	}

	if created {
		s.logger.Debug("persisted query stored", "id", key, "name", name)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)

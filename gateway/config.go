package gateway

import (
	"fmt"
	"time"

	"github.com/Quartz/wp-graphql-persisted-queries/errors"
)

// Backend type constants for Config.Backend.Type.
const (
	BackendMemory = "memory"
	BackendNATS   = "nats"
	BackendRedis  = "redis"
)

// Config holds configuration for the persisted queries gateway.
type Config struct {
	// BindAddress is the HTTP bind address (default: ":8080")
	BindAddress string `json:"bind_address"`

	// Path is the GraphQL endpoint path (default: "/graphql")
	Path string `json:"path"`

	// EnablePlayground enables the GraphQL Playground UI at / (default: false)
	EnablePlayground bool `json:"enable_playground"`

	// EnableCORS enables CORS headers (default: true)
	EnableCORS bool `json:"enable_cors"`

	// CORSOrigins lists allowed CORS origins (default: ["*"])
	CORSOrigins []string `json:"cors_origins,omitempty"`

	// TimeoutStr is the request timeout (default: "30s")
	TimeoutStr string `json:"timeout,omitempty"`

	// Backend selects and configures the query store backend
	Backend BackendConfig `json:"backend"`

	// timeout is the parsed duration (internal use)
	timeout time.Duration
}

// BackendConfig selects the store backend. An empty or unrecognized Type
// disables persistence entirely: the gateway installs no interceptor and
// every request passes through untouched.
type BackendConfig struct {
	// Type is one of "memory", "nats", "redis"
	Type string `json:"type"`

	// Bucket is the NATS KV bucket name (nats backend)
	Bucket string `json:"bucket,omitempty"`

	// KeyPrefix namespaces keys (redis backend, default "apq:")
	KeyPrefix string `json:"key_prefix,omitempty"`

	// RedisAddr is dialed when no client is injected (redis backend)
	RedisAddr string `json:"redis_addr,omitempty"`

	// RedisDB selects the Redis database (redis backend)
	RedisDB int `json:"redis_db,omitempty"`
}

// Enabled reports whether the backend type selects a known store.
func (b *BackendConfig) Enabled() bool {
	switch b.Type {
	case BackendMemory, BackendNATS, BackendRedis:
		return true
	}
	return false
}

// Validate ensures the configuration is valid, filling defaults in place.
func (c *Config) Validate() error {
	if c.BindAddress == "" {
		c.BindAddress = ":8080"
	}

	if c.Path == "" {
		c.Path = "/graphql"
	}
	if c.Path[0] != '/' {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"path must start with /")
	}

	if c.TimeoutStr == "" {
		c.timeout = 30 * time.Second
	} else {
		timeout, err := time.ParseDuration(c.TimeoutStr)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate",
				fmt.Sprintf("invalid timeout format: %s", c.TimeoutStr))
		}
		if timeout < 100*time.Millisecond || timeout > 5*time.Minute {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"timeout must be between 100ms and 5m")
		}
		c.timeout = timeout
	}

	if c.EnableCORS && len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}

	return nil
}

// Timeout returns the parsed timeout duration.
func (c *Config) Timeout() time.Duration {
	return c.timeout
}

// DefaultConfig returns a configuration with the in-memory backend enabled.
func DefaultConfig() Config {
	return Config{
		BindAddress: ":8080",
		Path:        "/graphql",
		EnableCORS:  true,
		CORSOrigins: []string{"*"},
		TimeoutStr:  "30s",
		Backend: BackendConfig{
			Type: BackendMemory,
		},
	}
}

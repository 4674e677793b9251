package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"

	"github.com/Quartz/wp-graphql-persisted-queries/apq"
	"github.com/Quartz/wp-graphql-persisted-queries/errors"
	"github.com/Quartz/wp-graphql-persisted-queries/metric"
	"github.com/Quartz/wp-graphql-persisted-queries/store"
)

// Dependencies carries the external collaborators the gateway may need.
// Only the collaborators required by the configured backend are consulted.
type Dependencies struct {
	// Logger is the base logger (default: slog.Default())
	Logger *slog.Logger

	// NATSConn is required by the nats backend
	NATSConn *nats.Conn

	// RedisClient is used by the redis backend; when nil, a client is
	// dialed from Backend.RedisAddr
	RedisClient redis.UniversalClient

	// Metrics, when set, instruments the store and interceptor
	Metrics *metric.MetricsRegistry

	// Store fully replaces the backend selected by configuration
	Store store.Store

	// Load and Save replace the interceptor's default store-backed
	// behavior (e.g. an external key-value cache)
	Load apq.LoadFunc
	Save apq.SaveFunc
}

// Server hosts the persisted queries middleware in front of an upstream
// GraphQL handler, with health, playground and metrics endpoints.
type Server struct {
	config      Config
	logger      *slog.Logger
	interceptor *apq.Interceptor
	store       store.Store
	middleware  *Middleware
	httpServer  *http.Server
	mux         *http.ServeMux

	// Lifecycle
	running  bool
	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// New creates a gateway server wrapping upstream with persisted query
// support. Initialization resolves the store backend and any load/save
// overrides exactly once; New is also where misconfiguration turns the
// middleware into a transparent pass-through instead of an error.
func New(ctx context.Context, config Config, upstream http.Handler, deps Dependencies) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Server", "New", "config validation")
	}
	if upstream == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Server", "New",
			"upstream GraphQL handler is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "apq-gateway")

	st, err := buildStore(ctx, config, deps, logger)
	if err != nil {
		return nil, err
	}

	interceptor, err := buildInterceptor(st, deps, logger)
	if err != nil {
		return nil, err
	}
	if interceptor == nil {
		logger.Warn("persisted queries disabled, middleware is pass-through",
			"backend", config.Backend.Type)
	}

	s := &Server{
		config:      config,
		logger:      logger,
		interceptor: interceptor,
		store:       st,
		middleware:  NewMiddleware(interceptor, upstream, logger),
		mux:         http.NewServeMux(),
		stopChan:    make(chan struct{}),
	}
	s.setupRoutes(deps)

	return s, nil
}

// buildStore resolves the configured backend to a Store, nil when
// persistence is disabled.
func buildStore(ctx context.Context, config Config, deps Dependencies, logger *slog.Logger) (store.Store, error) {
	var (
		st      store.Store
		backend = config.Backend.Type
		err     error
	)

	switch {
	case deps.Store != nil:
		st = deps.Store
		backend = "custom"

	case config.Backend.Type == BackendMemory:
		st = store.NewMemoryStore()

	case config.Backend.Type == BackendNATS:
		st, err = store.NewNATSStore(ctx, deps.NATSConn, store.NATSConfig{
			Bucket:  config.Backend.Bucket,
			Timeout: config.Timeout(),
		}, logger)
		if err != nil {
			return nil, err
		}

	case config.Backend.Type == BackendRedis:
		client := deps.RedisClient
		if client == nil {
			if config.Backend.RedisAddr == "" {
				return nil, errors.WrapFatal(errors.ErrMissingConfig, "Server", "New",
					"redis backend requires a client or redis_addr")
			}
			client = redis.NewClient(&redis.Options{
				Addr: config.Backend.RedisAddr,
				DB:   config.Backend.RedisDB,
			})
		}
		st, err = store.NewRedisStore(client, store.RedisConfig{
			KeyPrefix: config.Backend.KeyPrefix,
			Timeout:   config.Timeout(),
		}, logger)
		if err != nil {
			return nil, err
		}

	default:
		// Empty or unrecognized backend type: persistence stays disabled
		return nil, nil
	}

	if deps.Metrics != nil {
		st, err = store.NewInstrumentedStore(st, deps.Metrics, backend)
		if err != nil {
			return nil, err
		}
	}

	return st, nil
}

// buildInterceptor assembles the interceptor, nil when nothing can back it.
func buildInterceptor(st store.Store, deps Dependencies, logger *slog.Logger) (*apq.Interceptor, error) {
	if st == nil && deps.Load == nil && deps.Save == nil {
		return nil, nil
	}

	opts := []apq.Option{apq.WithLogger(logger)}
	if deps.Load != nil {
		opts = append(opts, apq.WithLoad(deps.Load))
	}
	if deps.Save != nil {
		opts = append(opts, apq.WithSave(deps.Save))
	}
	if deps.Metrics != nil {
		opts = append(opts, apq.WithMetrics(deps.Metrics))
	}

	return apq.NewInterceptor(st, opts...)
}

func (s *Server) setupRoutes(deps Dependencies) {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle(s.config.Path, s.middleware)

	if deps.Metrics != nil {
		s.mux.Handle("/metrics", deps.Metrics.Handler())
	}

	if s.config.EnablePlayground {
		s.mux.Handle("/", playground.Handler("GraphQL Playground", s.config.Path))
		s.logger.Info("GraphQL Playground enabled", "address", s.config.BindAddress)
	}

	var handler http.Handler = s.mux
	if s.config.EnableCORS {
		handler = s.corsMiddleware(handler)
	}

	s.httpServer = &http.Server{
		Addr:         s.config.BindAddress,
		Handler:      handler,
		ReadTimeout:  s.config.Timeout(),
		WriteTimeout: s.config.Timeout(),
		IdleTimeout:  60 * time.Second,
	}
}

// Interceptor returns the installed interceptor, nil when persistence is
// disabled.
func (s *Server) Interceptor() *apq.Interceptor {
	return s.interceptor
}

// Store returns the resolved store backend, nil when persistence is
// disabled or fully replaced by load/save overrides.
func (s *Server) Store() store.Store {
	return s.store
}

// Handler returns the fully assembled HTTP handler, for integrators mounting
// the gateway in their own server instead of calling Start.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until ctx is cancelled or Stop is called. The
// ready channel is closed once the server is accepting connections.
// Starting an already running server is an error, so installing the
// middleware twice cannot double-register behavior.
func (s *Server) Start(ctx context.Context, ready chan<- struct{}) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.WrapFatal(errors.ErrAlreadyStarted, "Server", "Start", "server already running")
	}
	s.running = true
	server := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		s.logger.Info("server starting", "address", s.config.BindAddress, "path", s.config.Path)

		// ListenAndServe blocks after binding the socket, so signal ready
		// immediately before the call
		if ready != nil {
			close(ready)
		}

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
			select {
			case errChan <- err:
			case <-ctx.Done():
			case <-s.stopChan:
			}
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("server context cancelled, shutting down")
		return s.Stop(30 * time.Second)

	case <-s.stopChan:
		s.logger.Info("server stop requested")
		return nil

	case err := <-errChan:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return errors.WrapFatal(err, "Server", "Start", "HTTP server failed")
	}
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	server := s.httpServer
	s.mu.Unlock()

	s.logger.Info("server stopping")

	s.stopOnce.Do(func() {
		close(s.stopChan)
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server gracefully", "error", err)
		return errors.WrapTransient(err, "Server", "Stop", "graceful shutdown failed")
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("server stopped")
	return nil
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

// corsMiddleware adds CORS headers to responses.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range s.config.CORSOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

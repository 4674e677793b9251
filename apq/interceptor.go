package apq

import (
	"context"
	stderrors "errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/Quartz/wp-graphql-persisted-queries/errors"
	"github.com/Quartz/wp-graphql-persisted-queries/metric"
	"github.com/Quartz/wp-graphql-persisted-queries/store"
)

const (
	// NotFoundMessage is the exact error message returned when a query ID
	// resolves to nothing. Apollo clients pattern-match this string to
	// decide whether to retry with the full query text, so it is part of
	// the wire contract and must never change.
	NotFoundMessage = "PersistedQueryNotFound"

	// DefaultOperationName labels stored queries whose request carried no
	// operation name. Also part of the wire contract.
	DefaultOperationName = "UnnamedQuery"
)

// Outcomes recorded per processed request.
const (
	outcomeRegister    = "register"
	outcomeHit         = "hit"
	outcomeMiss        = "miss"
	outcomePassthrough = "passthrough"
)

// NotFoundError returns the sentinel error signalling that a persisted
// query ID has no stored text and the client should resend the full query.
func NotFoundError() *gqlerror.Error {
	return &gqlerror.Error{
		Message: NotFoundMessage,
		Extensions: map[string]interface{}{
			"code": "PERSISTED_QUERY_NOT_FOUND",
		},
	}
}

// IsNotFound reports whether err is the persisted-query-not-found sentinel.
func IsNotFound(err error) bool {
	var gqlErr *gqlerror.Error
	if stderrors.As(err, &gqlErr) {
		return gqlErr.Message == NotFoundMessage
	}
	return false
}

// LoadFunc resolves a normalized query ID to its stored text. It replaces
// the default store-backed lookup when injected.
type LoadFunc func(ctx context.Context, id string) (text string, found bool, err error)

// SaveFunc persists a query under a normalized ID. It replaces the default
// store-backed write when injected.
type SaveFunc func(ctx context.Context, id, text, name string) error

// Interceptor applies the automatic persisted query protocol to incoming
// requests before GraphQL execution. It decides per request whether to
// register a new query, resolve an ID to stored text, or pass through, and
// always strips the query ID before the request continues downstream.
type Interceptor struct {
	load   LoadFunc
	save   SaveFunc
	logger *slog.Logger

	registry *metric.MetricsRegistry
	outcomes *prometheus.CounterVec
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger.With("component", "apq-interceptor")
		}
	}
}

// WithLoad replaces the default store-backed load behavior.
func WithLoad(load LoadFunc) Option {
	return func(i *Interceptor) {
		if load != nil {
			i.load = load
		}
	}
}

// WithSave replaces the default store-backed save behavior.
func WithSave(save SaveFunc) Option {
	return func(i *Interceptor) {
		if save != nil {
			i.save = save
		}
	}
}

// WithMetrics records per-request outcome counters in the given registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(i *Interceptor) {
		i.registry = registry
	}
}

// NewInterceptor creates an interceptor backed by st. Load and save
// behavior can be fully replaced via options; overrides are resolved here,
// once, not on every request.
func NewInterceptor(st store.Store, opts ...Option) (*Interceptor, error) {
	i := &Interceptor{
		logger: slog.Default().With("component", "apq-interceptor"),
	}

	if st != nil {
		i.load = func(ctx context.Context, id string) (string, bool, error) {
			pq, found, err := st.Get(ctx, id)
			return pq.Text, found, err
		}
		i.save = func(ctx context.Context, id, text, name string) error {
			return st.Put(ctx, id, text, name)
		}
	}

	for _, opt := range opts {
		opt(i)
	}

	if i.load == nil || i.save == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Interceptor", "NewInterceptor",
			"a store or load/save overrides are required")
	}

	if i.registry != nil {
		i.outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "interceptor",
			Name:      "requests_total",
			Help:      "Processed requests by persisted query outcome",
		}, []string{"outcome"})
		if err := i.registry.Register("interceptor", "requests_total", i.outcomes); err != nil {
			return nil, err
		}
	}

	return i, nil
}

// Process applies the persisted query state machine to req, mutating it in
// place. On a resolve miss it returns the sentinel error; any other return
// is nil and the request is ready to continue downstream. In every case the
// query ID has been stripped from the outgoing request by the time Process
// returns.
func (i *Interceptor) Process(ctx context.Context, req *Request) error {
	defer req.StripID()

	id := store.NormalizeID(req.ID())
	hasText := req.Query != ""

	switch {
	case id != "" && hasText:
		// Register: persist for future ID-only requests. Fire-and-forget;
		// the current request already carries its text and proceeds
		// regardless of the write's outcome.
		i.register(ctx, id, req.Query, req.Operation())
		return nil

	case id != "" && !hasText:
		// Resolve: the request stands or falls on the stored text.
		text, found, err := i.load(ctx, id)
		if err != nil {
			i.logger.Warn("persisted query load failed", "id", id, "error", err)
		}
		if found && text != "" {
			req.Query = text
			i.record(outcomeHit)
			i.logger.Debug("persisted query resolved", "id", id)
			return nil
		}
		i.record(outcomeMiss)
		i.logger.Debug("persisted query not found", "id", id)
		return NotFoundError()

	default:
		// No ID at all: not our request.
		i.record(outcomePassthrough)
		return nil
	}
}

func (i *Interceptor) register(ctx context.Context, id, text, name string) {
	i.record(outcomeRegister)

	if _, found, err := i.load(ctx, id); err != nil {
		i.logger.Warn("persisted query existence check failed", "id", id, "error", err)
		return
	} else if found {
		return
	}

	if err := i.save(ctx, id, text, name); err != nil {
		// The query simply isn't persisted for next time; the current
		// request still succeeds with its own text.
		i.logger.Warn("persisted query save failed", "id", id, "name", name, "error", err)
		return
	}

	i.logger.Info("persisted query registered", "id", id, "name", name)
}

func (i *Interceptor) record(outcome string) {
	if i.outcomes != nil {
		i.outcomes.WithLabelValues(outcome).Inc()
	}
}

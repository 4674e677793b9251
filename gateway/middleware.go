package gateway

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/Quartz/wp-graphql-persisted-queries/apq"
)

// getOrGenerateRequestID extracts the request ID from headers or generates a
// new one for tracing across the middleware and the upstream handler
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}

	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Middleware applies the persisted query protocol in front of an existing
// GraphQL HTTP handler. POST bodies and GET query strings are both handled;
// GET requests carrying only a queryId stay deterministic and cacheable at
// the edge. A nil interceptor makes the middleware fully transparent.
type Middleware struct {
	interceptor *apq.Interceptor
	next        http.Handler
	logger      *slog.Logger
}

// NewMiddleware wraps next with persisted query processing.
func NewMiddleware(interceptor *apq.Interceptor, next http.Handler, logger *slog.Logger) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middleware{
		interceptor: interceptor,
		next:        next,
		logger:      logger.With("component", "apq-middleware"),
	}
}

// ServeHTTP implements http.Handler.
func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Persistence disabled: behave exactly as if this middleware were
	// absent, queryId-only requests included.
	if m.interceptor == nil {
		m.next.ServeHTTP(w, r)
		return
	}

	requestID := getOrGenerateRequestID(r)
	r.Header.Set("X-Request-ID", requestID)
	w.Header().Set("X-Request-ID", requestID)

	switch r.Method {
	case http.MethodGet:
		m.serveGET(w, r, requestID)
	case http.MethodPost:
		m.servePOST(w, r, requestID)
	default:
		m.next.ServeHTTP(w, r)
	}
}

func (m *Middleware) serveGET(w http.ResponseWriter, r *http.Request, requestID string) {
	values := r.URL.Query()

	req, err := apq.RequestFromValues(values)
	if err != nil {
		// Malformed extensions parameter is the engine's problem, not ours
		m.logger.Debug("unparseable GET request, passing through",
			"request_id", requestID, "error", err)
		m.next.ServeHTTP(w, r)
		return
	}

	if err := m.interceptor.Process(r.Context(), req); err != nil {
		m.writeEnvelope(w, err)
		return
	}

	if err := req.ApplyToValues(values); err != nil {
		m.logger.Warn("failed to rewrite GET request", "request_id", requestID, "error", err)
		m.next.ServeHTTP(w, r)
		return
	}

	forwarded := r.Clone(r.Context())
	forwarded.URL.RawQuery = values.Encode()
	m.forward(w, forwarded)
}

func (m *Middleware) servePOST(w http.ResponseWriter, r *http.Request, requestID string) {
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		m.logger.Warn("failed to read request body", "request_id", requestID, "error", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	req, err := apq.ParseRequest(body)
	if err != nil {
		// Not a JSON GraphQL request; forward untouched
		m.logger.Debug("unparseable POST body, passing through",
			"request_id", requestID, "error", err)
		r.Body = io.NopCloser(bytes.NewReader(body))
		m.next.ServeHTTP(w, r)
		return
	}

	if err := m.interceptor.Process(r.Context(), req); err != nil {
		m.writeEnvelope(w, err)
		return
	}

	rewritten, err := json.Marshal(req)
	if err != nil {
		m.logger.Warn("failed to rewrite request body", "request_id", requestID, "error", err)
		r.Body = io.NopCloser(bytes.NewReader(body))
		m.next.ServeHTTP(w, r)
		return
	}

	forwarded := r.Clone(r.Context())
	forwarded.Body = io.NopCloser(bytes.NewReader(rewritten))
	forwarded.ContentLength = int64(len(rewritten))
	forwarded.Header.Set("Content-Length", strconv.Itoa(len(rewritten)))
	m.forward(w, forwarded)
}

// forward runs the upstream handler with the response buffered so the
// status mapper can inspect the envelope before anything reaches the wire.
func (m *Middleware) forward(w http.ResponseWriter, r *http.Request) {
	rec := &bufferedWriter{ResponseWriter: w}
	m.next.ServeHTTP(rec, r)

	status := apq.StatusForBody(rec.buf.Bytes(), rec.status())
	w.WriteHeader(status)
	if rec.buf.Len() > 0 {
		_, _ = w.Write(rec.buf.Bytes())
	}
}

// writeEnvelope emits a GraphQL error envelope produced by the interceptor,
// with the status mapper deciding the HTTP status (202 for a miss).
func (m *Middleware) writeEnvelope(w http.ResponseWriter, procErr error) {
	envelope := &apq.Response{}
	var gqlErr *gqlerror.Error
	if stderrors.As(procErr, &gqlErr) {
		envelope.Errors = gqlerror.List{gqlErr}
	} else {
		envelope.Errors = gqlerror.List{{Message: procErr.Error()}}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apq.StatusForResponse(envelope, http.StatusOK))
	_ = json.NewEncoder(w).Encode(envelope)
}

// bufferedWriter captures the downstream response for status mapping.
// Headers are written straight through to the underlying writer.
type bufferedWriter struct {
	http.ResponseWriter
	buf        bytes.Buffer
	statusCode int
}

func (b *bufferedWriter) WriteHeader(code int) {
	if b.statusCode == 0 {
		b.statusCode = code
	}
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	return b.buf.Write(p)
}

func (b *bufferedWriter) status() int {
	if b.statusCode == 0 {
		return http.StatusOK
	}
	return b.statusCode
}

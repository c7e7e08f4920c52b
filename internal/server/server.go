// Package server exposes the recipe schema over HTTP, together with the
// playground, a health check and the Prometheus metrics endpoint.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/graph-gophers/graphql-go"
	gqlerrors "github.com/graph-gophers/graphql-go/errors"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/recetario/recetario/internal/loader"
	"github.com/recetario/recetario/internal/log"
	"github.com/recetario/recetario/internal/metrics"
	"github.com/recetario/recetario/internal/store"
)

// RequestIDHeader carries the id assigned to each GraphQL request.
const RequestIDHeader = "X-Request-Id"

// Options configures the HTTP surface.
type Options struct {
	// Endpoint is the path the GraphQL handler is mounted on.
	Endpoint string

	// Playground serves GraphQL Playground on GET requests to Endpoint
	// that accept HTML and carry no query.
	Playground bool

	// CORSOrigins lists the allowed origins. "*" allows any origin and
	// an empty list disables CORS headers.
	CORSOrigins []string

	// BatchWait is how long the per-request loaders wait for sibling
	// lookups before querying the store.
	BatchWait time.Duration

	// MaxBodyBytes limits POST bodies. 0 means unlimited.
	MaxBodyBytes int64

	// Metrics, when set, instruments every route and serves /metrics.
	Metrics *metrics.Metrics
}

// Handler serves GraphQL requests against one schema and store.
type Handler struct {
	schema *graphql.Schema
	store  store.Store
	logger *zap.Logger
	opt    Options

	playground http.Handler
}

// NewHandler returns the GraphQL handler alone, without the other routes.
func NewHandler(schema *graphql.Schema, s store.Store, logger *zap.Logger, opt Options) *Handler {
	if opt.Endpoint == "" {
		opt.Endpoint = "/"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		schema:     schema,
		store:      s,
		logger:     logger,
		opt:        opt,
		playground: playground("Recetario", opt.Endpoint),
	}
}

// New builds the complete HTTP surface: the GraphQL endpoint, /healthz and,
// when opt.Metrics is set, /metrics.
func New(schema *graphql.Schema, s store.Store, logger *zap.Logger, opt Options) http.Handler {
	h := NewHandler(schema, s, logger, opt)

	mux := http.NewServeMux()
	mux.Handle("/healthz", health(s, h.logger))
	if opt.Metrics != nil {
		mux.Handle("/metrics", opt.Metrics.Handler())
	}
	mux.Handle(h.opt.Endpoint, h)

	var root http.Handler = cors(mux, opt.CORSOrigins)
	if opt.Metrics != nil {
		root = opt.Metrics.Instrument(root)
	}
	return root
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != h.opt.Endpoint {
		http.NotFound(w, r)
		return
	}
	if r.Method == http.MethodGet && h.opt.Playground && r.URL.Query().Get("query") == "" && acceptsHTML(r.Header.Get("Accept")) {
		h.playground.ServeHTTP(w, r)
		return
	}

	rid := ksuid.New().String()
	w.Header().Set(RequestIDHeader, rid)
	logger := h.logger.With(zap.String("request_id", rid))

	if h.opt.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opt.MaxBodyBytes)
	}
	req, err := parseRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			status = http.StatusMethodNotAllowed
			w.Header().Set("Allow", "GET, POST, OPTIONS")
		}
		logger.Debug("rejected request", zap.Error(err))
		writeJSON(w, logger, status, &graphql.Response{Errors: []*gqlerrors.QueryError{gqlerrors.Errorf("%s", err)}})
		return
	}

	ctx := h.requestContext(r.Context(), logger)
	start := time.Now()
	resp := h.schema.Exec(ctx, req.Query, req.OperationName, req.Variables)
	logger.Debug("graphql request",
		zap.String("operation", req.OperationName),
		zap.Duration("duration", time.Since(start)),
		zap.Int("errors", len(resp.Errors)),
	)
	writeJSON(w, logger, http.StatusOK, resp)
}

// requestContext carries everything resolvers need for one request: a
// logger tagged with the request id and loaders nobody else shares.
func (h *Handler) requestContext(ctx context.Context, logger *zap.Logger) context.Context {
	ctx = log.NewContext(ctx, logger)
	return loader.NewContext(ctx, loader.New(h.store, h.opt.BatchWait))
}

func health(s store.Store, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.Ping(ctx); err != nil {
			writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func cors(next http.Handler, origins []string) http.Handler {
	if len(origins) == 0 {
		return next
	}
	wildcard := contains(origins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && (wildcard || contains(origins, origin)) {
			if wildcard {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
			if r.Method == http.MethodOptions {
				if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
					w.Header().Set("Access-Control-Allow-Headers", hdr)
				}
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			}
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON sends v with status. The header is already out when encoding
// fails, so the failure can only be logged.
func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing response", zap.Int("status", status), zap.Error(err))
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func acceptsHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		if strings.HasPrefix(strings.TrimSpace(part), "text/html") {
			return true
		}
	}
	return false
}

// Package api implements the HTTP handler set this store answers
// requests with: PUT/GET/HEAD/DELETE on a single key, GET /keys for
// paginated listing, POST /batch for sequential multi-op requests,
// and GET /metrics for the Prometheus exposition text.
package api

import (
	"net/http"

	"github.com/cuemby/kvstore/internal/workerpool"
	"github.com/cuemby/kvstore/pkg/auth"
	"github.com/cuemby/kvstore/pkg/compress"
	"github.com/cuemby/kvstore/pkg/kverr"
	"github.com/cuemby/kvstore/pkg/log"
	"github.com/cuemby/kvstore/pkg/metrics"
	"github.com/cuemby/kvstore/pkg/txn"
)

// maxKeyLength bounds a key's byte length; spec is expressed in KiB
// here because that's the unit the original wire contract used.
const maxKeyLength = 256 * 1024

// Router dispatches incoming requests to the handler named by their
// (method, path) pair and carries every dependency a handler needs —
// nothing here is global state, so tests can construct as many Routers
// as they like against independent stores.
type Router struct {
	txn        *txn.Manager
	compressor *compress.Compressor
	auth       *auth.Checker
	metrics    *metrics.Metrics
	pool       *workerpool.Pool
}

// New returns a Router ready to serve requests.
func New(tm *txn.Manager, compressor *compress.Compressor, checker *auth.Checker, m *metrics.Metrics, pool *workerpool.Pool) *Router {
	return &Router{txn: tm, compressor: compressor, auth: checker, metrics: m, pool: pool}
}

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch path {
	case "/healthz":
		rt.handleHealthz(w, r)
		return
	case "/health":
		metrics.HealthHandler()(w, r)
		return
	case "/ready":
		metrics.ReadyHandler()(w, r)
		return
	case "/live":
		metrics.LivenessHandler()(w, r)
		return
	}

	if err := rt.auth.Check(r); err != nil {
		writeError(w, err)
		return
	}

	switch {
	case path == "/metrics" && r.Method == http.MethodGet:
		rt.handleMetrics(w, r)
	case path == "/keys" && r.Method == http.MethodGet:
		rt.handleList(w, r)
	case path == "/batch" && r.Method == http.MethodPost:
		rt.handleBatch(w, r)
	case len(path) > 1:
		key := path[1:]
		switch r.Method {
		case http.MethodPut:
			rt.handlePut(w, r, key)
		case http.MethodGet:
			rt.handleGet(w, r, key)
		case http.MethodHead:
			rt.handleHead(w, r, key)
		case http.MethodDelete:
			rt.handleDelete(w, r, key)
		default:
			http.NotFound(w, r)
		}
	default:
		http.NotFound(w, r)
	}
}

// validateKey enforces the key constraints every keyed handler shares:
// non-empty, at most maxKeyLength bytes, and free of control bytes
// other than tab.
func validateKey(key string) error {
	if key == "" {
		return kverr.InvalidRequest("key must not be empty")
	}
	if len(key) > maxKeyLength {
		return kverr.InvalidRequest("key exceeds maximum length")
	}
	for i := 0; i < len(key); i++ {
		if key[i] < 0x20 && key[i] != '\t' {
			return kverr.InvalidRequest("key contains a disallowed control byte")
		}
	}
	return nil
}

// writeError maps err to a status code and writes it as the response
// body. Server errors (5xx) are logged at error level; client errors
// only at debug level, to avoid drowning real failures in routine 4xx
// noise.
func writeError(w http.ResponseWriter, err error) {
	kerr, ok := err.(*kverr.Error)
	if !ok {
		kerr = kverr.Internal("unexpected error", err)
	}
	if kerr.IsServerError() {
		log.Errorf("request failed", kerr)
	} else {
		log.Debug(kerr.Error())
	}
	http.Error(w, "Error: "+kerr.ClientMessage(), kerr.StatusCode())
}

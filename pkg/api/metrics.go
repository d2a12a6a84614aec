package api

import "net/http"

// handleMetrics refreshes the gauges that depend on a live store scan
// (keys/objects totals aren't tracked incrementally the way puts/gets/
// deletes are) and then serves the metrics exposition. A scraper that
// asks for ?format=legacy gets the hand-formatted kv_storage_* block
// this store's earlier wire format used, instead of the registry-backed
// Prometheus handler every other client gets.
func (rt *Router) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if keys, err := rt.txn.CountKeys(); err == nil {
		rt.metrics.SetKeys(uint64(keys))
	}
	if objects, err := rt.txn.CountObjects(); err == nil {
		rt.metrics.SetObjects(uint64(objects))
	}

	if r.URL.Query().Get("format") == "legacy" {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(rt.metrics.ToText()))
		return
	}

	rt.metrics.Handler().ServeHTTP(w, r)
}

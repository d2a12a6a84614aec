package api

import "net/http"

// handleHealthz answers liveness checks. It does not touch the store:
// by the time a Router exists its store has already opened
// successfully, so there is nothing further to check here.
func (rt *Router) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

package api

import "net/http"

// handleDelete removes key, garbage-collecting its object if this was
// the last key referencing it, and returns 204. 404 if the key did not
// exist.
func (rt *Router) handleDelete(w http.ResponseWriter, r *http.Request, key string) {
	if err := validateKey(key); err != nil {
		writeError(w, err)
		return
	}

	size, err := rt.txn.DeleteKey(key)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.IncDeletes()
	rt.metrics.SubBytes(size)

	w.WriteHeader(http.StatusNoContent)
}

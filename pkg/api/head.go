package api

import (
	"net/http"
	"strconv"

	"github.com/cuemby/kvstore/pkg/hash"
)

// handleHead answers like handleGet but without a body, and adds
// X-Created-At/X-Refs headers describing the key's metadata.
func (rt *Router) handleHead(w http.ResponseWriter, r *http.Request, key string) {
	if err := validateKey(key); err != nil {
		writeError(w, err)
		return
	}

	res, err := rt.txn.GetKey(key)
	if err != nil {
		writeError(w, err)
		return
	}

	refs, err := rt.txn.RefCount(res.Meta.Hash)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatUint(res.Meta.Size, 10))
	w.Header().Set("X-Hash", res.Meta.Hash.String())
	w.Header().Set("X-Hash-Algorithm", hash.Algorithm)
	w.Header().Set("X-Created-At", strconv.FormatInt(res.Meta.CreatedAt, 10))
	w.Header().Set("X-Refs", strconv.Itoa(refs))
	w.WriteHeader(http.StatusOK)
}

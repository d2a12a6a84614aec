package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cuemby/kvstore/pkg/hash"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
	maxOffset    = 1_000_000
)

// KeyInfo describes one entry in a ListResponse.
type KeyInfo struct {
	Key           string `json:"key"`
	Size          uint64 `json:"size"`
	Hash          string `json:"hash"`
	HashAlgorithm string `json:"hash_algorithm"`
	Refs          uint64 `json:"refs"`
	CreatedAt     int64  `json:"created_at"`
}

// ListResponse is the body of GET /keys.
type ListResponse struct {
	Keys  []KeyInfo `json:"keys"`
	Total int       `json:"total"`
}

// handleList answers GET /keys?offset=&limit=. Unparseable offset/limit
// values silently fall back to their defaults and out-of-range values
// are clamped to their valid range; neither is rejected.
func (rt *Router) handleList(w http.ResponseWriter, r *http.Request) {
	offset := clampInt(parseQueryInt(r, "offset", 0), 0, maxOffset)
	limit := clampInt(parseQueryInt(r, "limit", defaultLimit), 1, maxLimit)

	keys, metas, err := rt.txn.ListKeys(offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	total, err := rt.txn.CountKeys()
	if err != nil {
		writeError(w, err)
		return
	}

	resp := ListResponse{Keys: make([]KeyInfo, 0, len(keys)), Total: total}
	for i, key := range keys {
		meta := metas[i]
		refs, err := rt.txn.RefCount(meta.Hash)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.Keys = append(resp.Keys, KeyInfo{
			Key:           key,
			Size:          meta.Size,
			Hash:          meta.Hash.String(),
			HashAlgorithm: hash.Algorithm,
			Refs:          uint64(refs),
			CreatedAt:     meta.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func parseQueryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

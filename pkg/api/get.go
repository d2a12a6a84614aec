package api

import (
	"net/http"
	"strconv"

	"github.com/cuemby/kvstore/internal/workerpool"
	"github.com/cuemby/kvstore/pkg/hash"
	"github.com/cuemby/kvstore/pkg/kverr"
	"github.com/cuemby/kvstore/pkg/log"
	"github.com/cuemby/kvstore/pkg/metrics"
)

// handleGet returns the decompressed body stored under key, or 404 if
// it does not exist.
func (rt *Router) handleGet(w http.ResponseWriter, r *http.Request, key string) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.GetDuration)

	if err := validateKey(key); err != nil {
		writeError(w, err)
		return
	}

	res, err := rt.txn.GetKey(key)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := rt.decompress(res.Compressed)
	if err != nil {
		writeError(w, kverr.New(kverr.KindCompression, "decompress body", err))
		return
	}

	rt.metrics.IncGets()

	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Hash", res.Meta.Hash.String())
	w.Header().Set("X-Hash-Algorithm", hash.Algorithm)
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	log.WithKey(key).Debug().Msg("object read")
}

// decompress mirrors compress's inline/worker-pool split based on the
// compressed payload's size.
func (rt *Router) decompress(data []byte) ([]byte, error) {
	if len(data) <= workerpool.Threshold {
		return rt.compressor.Decompress(data)
	}
	return rt.pool.Run(func() ([]byte, error) { return rt.compressor.Decompress(data) })
}

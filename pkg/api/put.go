package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/cuemby/kvstore/internal/workerpool"
	"github.com/cuemby/kvstore/pkg/hash"
	"github.com/cuemby/kvstore/pkg/kverr"
	"github.com/cuemby/kvstore/pkg/log"
	"github.com/cuemby/kvstore/pkg/metrics"
)

// handlePut stores the request body under key, hashing and compressing
// it first. An existing key is overwritten; see txn.Manager.PutKey for
// the overwrite semantics this delegates to.
func (rt *Router) handlePut(w http.ResponseWriter, r *http.Request, key string) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.PutDuration)

	if err := validateKey(key); err != nil {
		writeError(w, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, kverr.InvalidRequest("failed to read request body"))
		return
	}

	compressed, err := rt.compress(body)
	if err != nil {
		writeError(w, kverr.New(kverr.KindCompression, "compress body", err))
		return
	}

	res, err := rt.txn.PutKey(key, body, compressed)
	if err != nil {
		writeError(w, err)
		return
	}

	rt.metrics.IncPuts()
	if res.Deduped {
		rt.metrics.IncDedupHits()
	}
	if res.Replaced {
		rt.metrics.SubBytes(res.ReplacedSize)
	}
	rt.metrics.AddBytes(res.Size)

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	w.Header().Set("X-Hash", res.Hash.String())
	w.Header().Set("X-Hash-Algorithm", hash.Algorithm)
	w.Header().Set("X-Deduplicated", strconv.FormatBool(res.Deduped))
	w.WriteHeader(status)
	w.Write([]byte(res.Hash.String() + "\n"))

	log.WithHash(res.Hash.String()).Debug().
		Bool("deduplicated", res.Deduped).
		Msg("object stored")
}

// compress runs the compressor inline for small bodies and via the
// worker pool once the payload crosses workerpool.Threshold, so a
// large PUT's CPU cost doesn't sit on the same goroutine accepting the
// next request's frames.
func (rt *Router) compress(data []byte) ([]byte, error) {
	if len(data) <= workerpool.Threshold {
		return rt.compressor.Compress(data)
	}
	return rt.pool.Run(func() ([]byte, error) { return rt.compressor.Compress(data) })
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/cuemby/kvstore/pkg/kverr"
)

// BatchOp is one entry of a POST /batch request body. Only Put
// operations carry Value; Get and Delete need only Key.
type BatchOp struct {
	Op    string `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// BatchResult is the tagged-union result of a single BatchOp. Exactly
// one of Put/Get/Delete/Error is populated, matching whichever op
// produced it (or the validation failure that rejected it).
type BatchResult struct {
	Put    *batchPutResult    `json:"put,omitempty"`
	Get    *batchGetResult    `json:"get,omitempty"`
	Delete *batchDeleteResult `json:"delete,omitempty"`
	Error  *batchErrorResult  `json:"error,omitempty"`
}

type batchPutResult struct {
	Key     string `json:"key"`
	Hash    string `json:"hash"`
	Created bool   `json:"created"`
}

type batchGetResult struct {
	Key   string  `json:"key"`
	Value *string `json:"value,omitempty"`
	Found bool    `json:"found"`
}

type batchDeleteResult struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

type batchErrorResult struct {
	Key   string `json:"key"`
	Error string `json:"error"`
}

// BatchResponse is the body of POST /batch.
type BatchResponse struct {
	Results []BatchResult `json:"results"`
}

// handleBatch executes each operation in the request body sequentially
// in array order and reports one result per operation. A failure on
// one operation does not abort the rest — batch is explicitly not
// atomic across operations, unlike a single PUT/GET/DELETE call.
func (rt *Router) handleBatch(w http.ResponseWriter, r *http.Request) {
	var ops []BatchOp
	if err := json.NewDecoder(r.Body).Decode(&ops); err != nil {
		writeError(w, kverr.InvalidRequest("invalid batch request body"))
		return
	}

	results := make([]BatchResult, len(ops))
	for i, op := range ops {
		results[i] = rt.applyBatchOp(op)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BatchResponse{Results: results})
}

func (rt *Router) applyBatchOp(op BatchOp) BatchResult {
	if err := validateKey(op.Key); err != nil {
		return errorResult(op.Key, err)
	}

	switch op.Op {
	case "put":
		return rt.applyBatchPut(op)
	case "get":
		return rt.applyBatchGet(op)
	case "delete":
		return rt.applyBatchDelete(op)
	default:
		return errorResult(op.Key, kverr.InvalidRequest("unknown batch op: "+op.Op))
	}
}

func (rt *Router) applyBatchPut(op BatchOp) BatchResult {
	raw := []byte(op.Value)
	compressed, err := rt.compress(raw)
	if err != nil {
		return errorResult(op.Key, kverr.New(kverr.KindCompression, "compress body", err))
	}
	res, err := rt.txn.PutKey(op.Key, raw, compressed)
	if err != nil {
		return errorResult(op.Key, err)
	}
	rt.metrics.IncPuts()
	if res.Deduped {
		rt.metrics.IncDedupHits()
	}
	if res.Replaced {
		rt.metrics.SubBytes(res.ReplacedSize)
	}
	rt.metrics.AddBytes(res.Size)
	return BatchResult{Put: &batchPutResult{Key: op.Key, Hash: res.Hash.String(), Created: res.Created}}
}

func (rt *Router) applyBatchGet(op BatchOp) BatchResult {
	res, err := rt.txn.GetKey(op.Key)
	if err != nil {
		if kerr, ok := err.(*kverr.Error); ok && kerr.Kind == kverr.KindNotFound {
			return BatchResult{Get: &batchGetResult{Key: op.Key, Found: false}}
		}
		return errorResult(op.Key, err)
	}
	data, err := rt.decompress(res.Compressed)
	if err != nil {
		return errorResult(op.Key, kverr.New(kverr.KindCompression, "decompress body", err))
	}
	rt.metrics.IncGets()
	value := string(data)
	return BatchResult{Get: &batchGetResult{Key: op.Key, Value: &value, Found: true}}
}

func (rt *Router) applyBatchDelete(op BatchOp) BatchResult {
	size, err := rt.txn.DeleteKey(op.Key)
	if err != nil {
		if kerr, ok := err.(*kverr.Error); ok && kerr.Kind == kverr.KindNotFound {
			return BatchResult{Delete: &batchDeleteResult{Key: op.Key, Deleted: false}}
		}
		return errorResult(op.Key, err)
	}
	rt.metrics.IncDeletes()
	rt.metrics.SubBytes(size)
	return BatchResult{Delete: &batchDeleteResult{Key: op.Key, Deleted: true}}
}

func errorResult(key string, err error) BatchResult {
	return BatchResult{Error: &batchErrorResult{Key: key, Error: err.Error()}}
}

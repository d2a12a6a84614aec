// Package txn composes pkg/storage's per-bucket operations into the
// atomic multi-bucket semantics a PUT or DELETE needs: write a key's
// metadata, conditionally store a new object, and adjust the refs that
// decide when an object is safe to garbage-collect — all inside one
// storage transaction.
package txn

import (
	"time"

	"github.com/cuemby/kvstore/pkg/hash"
	"github.com/cuemby/kvstore/pkg/kverr"
	"github.com/cuemby/kvstore/pkg/storage"
)

// Clock returns the current time as a Unix timestamp; tests substitute
// a fixed clock to keep CreatedAt assertions deterministic.
type Clock func() int64

func systemClock() int64 { return time.Now().Unix() }

// Manager wraps a storage.Store with the key-level operations the api
// package calls. It holds no state of its own beyond the store and a
// clock, so it is safe to share across request goroutines — all
// exclusion happens inside storage.Store's transactions.
type Manager struct {
	store storage.Store
	now   Clock
}

// New returns a Manager backed by store, using the system clock.
func New(store storage.Store) *Manager {
	return &Manager{store: store, now: systemClock}
}

// PutResult describes the outcome of a single key write.
type PutResult struct {
	Hash         hash.Hash
	Size         uint64
	Created      bool   // true if this key did not exist before the call
	Deduped      bool   // true if an object with this hash already existed
	Replaced     bool   // true if this call overwrote an existing key
	ReplacedSize uint64 // the overwritten key's previous uncompressed size, if Replaced
}

// PutKey stores compressed under key, addressed by the content hash of
// raw; compression is the caller's job and happens before this call.
// An existing key is overwritten: its old hash's ref is dropped (and
// the old object garbage-collected if that was its last reference)
// and a new ref is recorded against the new hash. This differs from
// the conflict-on-existing-key behavior of a from-scratch
// content-addressed store, which favored rejecting accidental
// overwrites over the simpler idempotent-PUT semantics callers expect
// from a key/value API.
func (m *Manager) PutKey(key string, raw []byte, compressed []byte) (*PutResult, error) {
	h := hash.Compute(raw)
	size := uint64(len(raw))

	var result PutResult
	var oldHash hash.Hash
	var hadOld bool

	err := m.store.WithTx(func(tx storage.Tx) error {
		existing, found, err := tx.GetKeyMeta(key)
		if err != nil {
			return kverr.Storage("read existing key meta", err)
		}
		if found {
			oldHash = existing.Hash
			hadOld = true
			result.Replaced = true
			result.ReplacedSize = existing.Size
			if oldHash != h {
				if err := tx.DeleteRef(oldHash, key); err != nil {
					return kverr.Storage("drop old ref", err)
				}
			}
		} else {
			result.Created = true
		}

		isNewObject, err := putObjectIfAbsent(tx, h, compressed)
		if err != nil {
			return err
		}
		result.Deduped = !isNewObject

		if oldHash != h || !hadOld {
			if err := tx.PutRef(h, key); err != nil {
				return kverr.Storage("write ref", err)
			}
		}
		refs, err := tx.RefCount(h)
		if err != nil {
			return kverr.Storage("count refs", err)
		}
		meta := &storage.KeyMeta{
			Hash:      h,
			Size:      size,
			Refs:      uint64(refs),
			CreatedAt: m.now(),
		}
		if err := tx.PutKeyMeta(key, meta); err != nil {
			return kverr.Storage("write key meta", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if hadOld && oldHash != h {
		if err := m.gcIfOrphaned(oldHash); err != nil {
			return nil, err
		}
	}

	result.Hash = h
	result.Size = size
	return &result, nil
}

// putObjectIfAbsent stores compressed under h only if no object is
// already there, reporting whether it did so. Caller must still record
// the ref; this only handles deduplication of the object body itself.
func putObjectIfAbsent(tx storage.Tx, h hash.Hash, compressed []byte) (isNew bool, err error) {
	exists, err := tx.ObjectExists(h)
	if err != nil {
		return false, kverr.Storage("check object existence", err)
	}
	if exists {
		return false, nil
	}
	if err := tx.PutObject(h, compressed); err != nil {
		return false, kverr.Storage("write object", err)
	}
	return true, nil
}

// GetResult pairs the object bytes returned by GetKey with the
// metadata that described them, so callers can set Content-Length and
// similar headers without a second lookup.
type GetResult struct {
	Compressed []byte
	Meta       *storage.KeyMeta
}

// GetKey returns the compressed bytes stored for key along with its
// metadata, or a kverr.NotFound error if the key does not exist.
func (m *Manager) GetKey(key string) (*GetResult, error) {
	var result GetResult
	err := m.store.WithReadTx(func(tx storage.Tx) error {
		meta, found, err := tx.GetKeyMeta(key)
		if err != nil {
			return kverr.Storage("read key meta", err)
		}
		if !found {
			return kverr.NotFound("key not found: " + key)
		}
		data, found, err := tx.GetObject(meta.Hash)
		if err != nil {
			return kverr.Storage("read object", err)
		}
		if !found {
			return kverr.Internal("object missing for known key", nil)
		}
		result.Compressed = data
		result.Meta = meta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteKey removes key and, if that was its object's last reference,
// garbage-collects the object too. Returns the deleted key's
// uncompressed size (for byte-accounting callers) or a kverr.NotFound
// error if the key does not exist.
func (m *Manager) DeleteKey(key string) (uint64, error) {
	var h hash.Hash
	var size uint64
	err := m.store.WithTx(func(tx storage.Tx) error {
		meta, found, err := tx.GetKeyMeta(key)
		if err != nil {
			return kverr.Storage("read key meta", err)
		}
		if !found {
			return kverr.NotFound("key not found: " + key)
		}
		h = meta.Hash
		size = meta.Size
		if err := tx.DeleteKeyMeta(key); err != nil {
			return kverr.Storage("delete key meta", err)
		}
		if err := tx.DeleteRef(h, key); err != nil {
			return kverr.Storage("delete ref", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := m.gcIfOrphaned(h); err != nil {
		return 0, err
	}
	return size, nil
}

// gcIfOrphaned deletes the object at h in its own transaction if no
// refs remain for it. This runs outside the write that dropped the
// last ref deliberately: counting refs requires a cursor scan, and
// keeping that scan in the same transaction as the ref deletion that
// might have emptied the prefix it's scanning is never wrong here —
// BoltDB's single-writer model means no concurrent writer can add a
// ref between the two — but splitting them keeps each transaction
// focused on one concern.
func (m *Manager) gcIfOrphaned(h hash.Hash) error {
	return m.store.WithTx(func(tx storage.Tx) error {
		count, err := tx.RefCount(h)
		if err != nil {
			return kverr.Storage("count refs", err)
		}
		if count > 0 {
			return nil
		}
		if err := tx.DeleteObject(h); err != nil {
			return kverr.Storage("delete orphaned object", err)
		}
		return nil
	})
}

// BatchItem is one entry of a BatchPut request.
type BatchItem struct {
	Key        string
	Raw        []byte
	Compressed []byte
}

// BatchResult is the per-item outcome of BatchPut, positionally
// aligned with the input slice. Err is non-nil if that specific item
// failed; the rest of the batch is unaffected, matching the
// best-effort, per-item-independent semantics of the original
// sequential batch_put loop.
type BatchResult struct {
	Result *PutResult
	Err    error
}

// BatchPut applies each item independently via PutKey, overwriting an
// existing key just as a single PutKey call would, and collects one
// result per item.
func (m *Manager) BatchPut(items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))
	for i, item := range items {
		res, err := m.PutKey(item.Key, item.Raw, item.Compressed)
		results[i] = BatchResult{Result: res, Err: err}
	}
	return results
}

// ListKeys returns up to limit keys starting at offset, in the
// underlying bucket's lexical key order.
func (m *Manager) ListKeys(offset, limit int) ([]string, []*storage.KeyMeta, error) {
	keys, metas, err := m.store.ListKeysPaginated(offset, limit)
	if err != nil {
		return nil, nil, kverr.Storage("list keys", err)
	}
	return keys, metas, nil
}

// CountKeys reports the total number of live keys.
func (m *Manager) CountKeys() (int, error) {
	n, err := m.store.CountKeys()
	if err != nil {
		return 0, kverr.Storage("count keys", err)
	}
	return n, nil
}

// CountObjects reports the total number of unique stored objects.
func (m *Manager) CountObjects() (int, error) {
	n, err := m.store.CountObjects()
	if err != nil {
		return 0, kverr.Storage("count objects", err)
	}
	return n, nil
}

// RefCount reports how many keys currently resolve to hash h.
func (m *Manager) RefCount(h hash.Hash) (int, error) {
	n, err := m.store.RefCount(h)
	if err != nil {
		return 0, kverr.Storage("count refs", err)
	}
	return n, nil
}

package storage

import "github.com/cuemby/kvstore/pkg/hash"

// KeyMeta is the metadata stored per key: the hash of the object it
// points at, the object's uncompressed size, a point-in-time reference
// count, and the key's creation time. Refs is informational — callers
// that need an authoritative count should use Store.RefCount, which
// counts the refs bucket directly rather than trusting this field.
type KeyMeta struct {
	Hash      hash.Hash `json:"hash"`
	Size      uint64    `json:"size"`
	Refs      uint64    `json:"refs"`
	CreatedAt int64     `json:"created_at"`
}

// Store defines the bucket-level operations the transaction manager
// composes into atomic key PUT/GET/DELETE semantics. Implementations
// must give all three buckets — keys, objects, refs — a single
// transaction scope so a crash between them is never observable.
type Store interface {
	// Keys bucket: key name -> KeyMeta
	GetKeyMeta(key string) (*KeyMeta, bool, error)
	PutKeyMeta(key string, meta *KeyMeta) error
	DeleteKeyMeta(key string) error
	ListKeysPaginated(offset, limit int) ([]string, []*KeyMeta, error)
	CountKeys() (int, error)

	// Objects bucket: content hash -> compressed bytes
	GetObject(h hash.Hash) ([]byte, bool, error)
	PutObject(h hash.Hash, data []byte) error
	ObjectExists(h hash.Hash) (bool, error)
	DeleteObject(h hash.Hash) error
	CountObjects() (int, error)
	TotalObjectBytes() (uint64, error)

	// Refs bucket: content hash + key name -> presence marker, used both
	// to find which keys point at a hash and to decide when a hash's
	// last reference is gone and its object can be garbage collected.
	PutRef(h hash.Hash, key string) error
	DeleteRef(h hash.Hash, key string) error
	RefCount(h hash.Hash) (int, error)
	CountRefs() (int, error)

	// WithTx runs fn inside a single read-write transaction spanning all
	// three buckets. Callers that need atomicity across more than one
	// bucket operation — the transaction manager, mainly — use this
	// instead of calling the per-bucket methods directly.
	WithTx(fn func(Tx) error) error
	// WithReadTx is the read-only counterpart, usable concurrently with
	// other readers and with a single in-flight WithTx.
	WithReadTx(fn func(Tx) error) error

	Flush() error
	Close() error
}

// Tx exposes the same bucket operations as Store but bound to a single
// in-flight transaction, passed into WithTx/WithReadTx callbacks.
type Tx interface {
	GetKeyMeta(key string) (*KeyMeta, bool, error)
	PutKeyMeta(key string, meta *KeyMeta) error
	DeleteKeyMeta(key string) error

	GetObject(h hash.Hash) ([]byte, bool, error)
	PutObject(h hash.Hash, data []byte) error
	ObjectExists(h hash.Hash) (bool, error)
	DeleteObject(h hash.Hash) error

	PutRef(h hash.Hash, key string) error
	DeleteRef(h hash.Hash, key string) error
	RefCount(h hash.Hash) (int, error)
}

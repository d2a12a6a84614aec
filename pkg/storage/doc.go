/*
Package storage provides BoltDB-backed persistence for the three data
structures this store is built from: keys, content-addressed objects,
and the reference counts that tie them together.

# Architecture

	┌──────────────────── BOLTDB STORAGE ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │              BoltStore                       │          │
	│  │  - File: one database per process           │          │
	│  │  - Format: B+tree with MVCC                  │          │
	│  │  - Transactions: ACID, fsync on commit        │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Bucket Structure                │          │
	│  │  ┌────────────────────────────┐             │          │
	│  │  │ keys     (key name)        │             │          │
	│  │  │ objects  (content hash)    │             │          │
	│  │  │ refs     (hash || key)     │             │          │
	│  │  └────────────────────────────┘             │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

Unlike a storage engine assembled from independently-transacted trees,
a single bolt.DB's *bolt.Tx already spans every bucket opened against
it. A PUT that writes a key's metadata, conditionally inserts a new
object, and records a ref does all three inside one db.Update call —
the three-bucket write either commits together or not at all, with no
separate cross-bucket transaction API required.

# Buckets

keys: maps a caller-supplied key name to a KeyMeta recording the
content hash it resolves to, the object's uncompressed size, a
point-in-time reference count, and a creation timestamp.

objects: maps a content hash to the (possibly compressed) bytes of the
object it names. Entries are written once per distinct hash; PUTs of
already-seen content skip straight to the refs bucket.

refs: maps the concatenation of a content hash and a key name to a
one-byte presence marker. A prefix scan on the hash alone answers "how
many keys currently point at this object," which is what decides
whether a DELETE should garbage-collect the object.

# Transaction Model

Read transactions (db.View) take a consistent MVCC snapshot and can run
concurrently with each other and with a single in-flight writer. Write
transactions (db.Update) are serialized — BoltDB allows exactly one
writer at a time — and fsync on commit by default, so a successful PUT
is durable before the caller's response is sent. Options.FlushInterval
trades that per-commit fsync for a periodic one, the same tradeoff a
cache/flush-interval-tunable store makes.

# Design Patterns

Cached bucket lookups: tx.Bucket is called per-operation rather than
once per Store, since bucket handles are only valid for the lifetime of
the transaction that produced them.

Live ref counting: KeyMeta.Refs is a snapshot taken at write time, not
a counter callers should trust for delete decisions. RefCount always
re-scans the refs bucket, which is the only value consistent with
concurrent writers.

Idempotent cleanup: DeleteKeyMeta and DeleteRef return no error when
the target is already absent, matching BoltDB bucket.Delete's own
semantics and keeping the transaction manager's rollback paths simple.

# Performance Characteristics

Get by key or hash: O(log n) via B+tree lookup. List: O(n) cursor scan,
paginated in-memory rather than via a secondary index — acceptable at
the key counts a single-process store is expected to hold. Write
transactions: single-digit milliseconds including fsync; throughput is
bounded by BoltDB's single-writer model, which is why the transaction
manager keeps each write transaction as short as possible.

# See Also

  - pkg/txn for the PUT/DELETE semantics built on top of this package
  - pkg/hash for the content hash used as the objects bucket's key
  - BoltDB documentation: https://github.com/etcd-io/bbolt
*/
package storage

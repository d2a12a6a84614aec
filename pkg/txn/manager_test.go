package txn

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cuemby/kvstore/pkg/hash"
	"github.com/cuemby/kvstore/pkg/kverr"
	"github.com/cuemby/kvstore/pkg/storage"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewBoltStore(path, storage.Options{})
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store)
}

func TestPutKeyCreatesNewKey(t *testing.T) {
	m := newTestManager(t)
	res, err := m.PutKey("k1", []byte("hello"), []byte("hello"))
	if err != nil {
		t.Fatalf("PutKey: %v", err)
	}
	if !res.Created {
		t.Fatal("expected Created=true for a brand-new key")
	}
	if res.Deduped {
		t.Fatal("first write of a hash should not be deduped")
	}
}

func TestPutKeyOverwriteUpdatesHash(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.PutKey("k1", []byte("v1"), []byte("v1")); err != nil {
		t.Fatalf("first PutKey: %v", err)
	}
	res, err := m.PutKey("k1", []byte("v2"), []byte("v2"))
	if err != nil {
		t.Fatalf("second PutKey: %v", err)
	}
	if res.Created {
		t.Fatal("expected Created=false on overwrite")
	}

	got, err := m.GetKey("k1")
	if err != nil {
		t.Fatalf("GetKey: %v", err)
	}
	if string(got.Compressed) != "v2" {
		t.Fatalf("got %q, want %q", got.Compressed, "v2")
	}
}

func TestPutKeyOverwriteGarbageCollectsOrphanedObject(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.PutKey("k1", []byte("v1"), []byte("v1")); err != nil {
		t.Fatalf("first PutKey: %v", err)
	}
	oldHash := hash.Compute([]byte("v1"))

	if _, err := m.PutKey("k1", []byte("v2"), []byte("v2")); err != nil {
		t.Fatalf("second PutKey: %v", err)
	}

	count, err := m.RefCount(oldHash)
	if err != nil {
		t.Fatalf("RefCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected old hash to have no refs, got %d", count)
	}
}

func TestPutKeyDeduplicatesAcrossKeys(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.PutKey("a", []byte("same"), []byte("same")); err != nil {
		t.Fatalf("PutKey a: %v", err)
	}
	res, err := m.PutKey("b", []byte("same"), []byte("same"))
	if err != nil {
		t.Fatalf("PutKey b: %v", err)
	}
	if !res.Deduped {
		t.Fatal("expected second key with identical content to dedupe")
	}

	count, err := m.RefCount(hash.Compute([]byte("same")))
	if err != nil {
		t.Fatalf("RefCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("got %d refs, want 2", count)
	}
}

func TestGetKeyNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.GetKey("missing")
	var kerr *kverr.Error
	if !errors.As(err, &kerr) || kerr.Kind != kverr.KindNotFound {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestDeleteKeyRemovesObjectWhenLastRef(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.PutKey("k1", []byte("solo"), []byte("solo")); err != nil {
		t.Fatalf("PutKey: %v", err)
	}
	h := hash.Compute([]byte("solo"))

	if _, err := m.DeleteKey("k1"); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}

	if _, err := m.GetKey("k1"); err == nil {
		t.Fatal("expected key to be gone")
	}
	count, err := m.RefCount(h)
	if err != nil {
		t.Fatalf("RefCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 refs after delete, got %d", count)
	}
}

func TestDeleteKeyKeepsObjectWhenOtherRefsRemain(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.PutKey("a", []byte("shared"), []byte("shared")); err != nil {
		t.Fatalf("PutKey a: %v", err)
	}
	if _, err := m.PutKey("b", []byte("shared"), []byte("shared")); err != nil {
		t.Fatalf("PutKey b: %v", err)
	}

	if _, err := m.DeleteKey("a"); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}

	got, err := m.GetKey("b")
	if err != nil {
		t.Fatalf("GetKey b should still resolve: %v", err)
	}
	if string(got.Compressed) != "shared" {
		t.Fatalf("got %q", got.Compressed)
	}
}

func TestDeleteKeyReturnsUncompressedSize(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.PutKey("k1", []byte("hello"), []byte("hello")); err != nil {
		t.Fatalf("PutKey: %v", err)
	}
	size, err := m.DeleteKey("k1")
	if err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if size != 5 {
		t.Fatalf("got size %d, want 5", size)
	}
}

func TestDeleteKeyNotFound(t *testing.T) {
	m := newTestManager(t)
	_, err := m.DeleteKey("missing")
	var kerr *kverr.Error
	if !errors.As(err, &kerr) || kerr.Kind != kverr.KindNotFound {
		t.Fatalf("got %v, want NotFound", err)
	}
}

func TestBatchPutAppliesEachItemIndependently(t *testing.T) {
	m := newTestManager(t)
	results := m.BatchPut([]BatchItem{
		{Key: "a", Raw: []byte("1"), Compressed: []byte("1")},
		{Key: "b", Raw: []byte("2"), Compressed: []byte("2")},
	})
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("item %d: %v", i, r.Err)
		}
		if !r.Result.Created {
			t.Fatalf("item %d: expected Created=true", i)
		}
	}
}

func TestListKeysPagination(t *testing.T) {
	m := newTestManager(t)
	for _, k := range []string{"a", "b", "c"} {
		if _, err := m.PutKey(k, []byte(k), []byte(k)); err != nil {
			t.Fatalf("PutKey %s: %v", k, err)
		}
	}
	keys, metas, err := m.ListKeys(0, 2)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(keys) != 2 || len(metas) != 2 {
		t.Fatalf("got %d keys, want 2", len(keys))
	}
}

package database

import (
	"testing"

	"github.com/mnohosten/clara-db/pkg/compression"
	"github.com/mnohosten/clara-db/pkg/document"
)

func testStore(t *testing.T) *MemoryStore {
	t.Helper()
	compressor, err := compression.NewCompressor(compression.DefaultConfig())
	if err != nil {
		t.Fatalf("NewCompressor failed: %v", err)
	}
	t.Cleanup(func() { compressor.Close() })
	return NewMemoryStore(compressor)
}

func TestStoreInsertFetch(t *testing.T) {
	store := testStore(t)

	doc := mkdoc("_id", 1, "name", "Alice")
	key, err := store.Insert(doc)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	fetched, err := store.Fetch(key)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !document.Equals(doc, fetched) {
		t.Errorf("Expected %v, got %v", doc, fetched)
	}
}

func TestStoreFetchReturnsSnapshot(t *testing.T) {
	store := testStore(t)

	key, _ := store.Insert(mkdoc("_id", 1, "v", 0))

	first, _ := store.Fetch(key)
	first.Set("v", 99)

	second, _ := store.Fetch(key)
	if v, _ := second.Get("v"); document.Compare(v, int64(0)) != 0 {
		t.Errorf("Expected stored content unchanged by snapshot mutation, got %v", v)
	}
}

func TestStoreReplace(t *testing.T) {
	store := testStore(t)

	key, _ := store.Insert(mkdoc("_id", 1, "v", 0))
	if err := store.Replace(key, mkdoc("_id", 1, "v", 1)); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	fetched, _ := store.Fetch(key)
	if v, _ := fetched.Get("v"); document.Compare(v, int64(1)) != 0 {
		t.Errorf("Expected replaced content, got %v", v)
	}

	if err := store.Replace(999, mkdoc("x", 1)); err == nil {
		t.Error("Expected error replacing a missing key")
	}
}

func TestStoreRemoveAndKeys(t *testing.T) {
	store := testStore(t)

	k1, _ := store.Insert(mkdoc("_id", 1))
	k2, _ := store.Insert(mkdoc("_id", 2))
	k3, _ := store.Insert(mkdoc("_id", 3))

	keys := store.Keys()
	if len(keys) != 3 || keys[0] != k1 || keys[1] != k2 || keys[2] != k3 {
		t.Errorf("Expected insertion-ordered keys, got %v", keys)
	}

	if err := store.Remove(k2); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if store.Count() != 2 {
		t.Errorf("Expected 2 documents, got %d", store.Count())
	}
	keys = store.Keys()
	if len(keys) != 2 || keys[0] != k1 || keys[1] != k3 {
		t.Errorf("Expected [k1 k3], got %v", keys)
	}

	if _, err := store.Fetch(k2); err == nil {
		t.Error("Expected fetch of removed key to fail")
	}
	if err := store.Remove(k2); err == nil {
		t.Error("Expected double remove to fail")
	}
}

func TestStoreRoundTripsAllValueKinds(t *testing.T) {
	store := testStore(t)

	doc := mkdoc(
		"_id", document.NewObjectID(),
		"i32", int32(1),
		"i64", int64(2),
		"f", 1.5,
		"s", "str",
		"b", []byte{1, 2, 3},
		"null", nil,
		"bool", true,
		"ts", document.Timestamp{Seconds: 100, Increment: 1},
		"arr", []interface{}{int64(1), mkdoc("k", "v")},
		"doc", mkdoc("nested", int64(3)))

	key, err := store.Insert(doc)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	fetched, err := store.Fetch(key)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if !document.Equals(doc, fetched) {
		t.Errorf("Round trip mismatch:\n  in:  %v\n  out: %v", doc, fetched)
	}
	if v, _ := fetched.Get("i32"); v != int32(1) {
		t.Errorf("Expected int32 kind to survive, got %T", v)
	}
}

package database

import (
	"testing"

	"github.com/mnohosten/clara-db/pkg/document"
)

func TestUpsertInsertsWhenNoMatch(t *testing.T) {
	c := testCollection(t)

	result, err := c.UpdateDocuments(mkdoc("_id", 5), mkdoc("$set", mkdoc("v", 1)), false, true)
	if err != nil {
		t.Fatalf("UpdateDocuments failed: %v", err)
	}

	if n, _ := result.Get("n"); n != int32(1) {
		t.Errorf("Expected n = 1, got %v", n)
	}
	if updated, _ := result.Get("updatedExisting"); updated != false {
		t.Errorf("Expected updatedExisting false, got %v", updated)
	}
	// the selector pinned the identifier, no upserted report
	if result.Has("upserted") {
		t.Error("Expected no upserted field for a pinned identifier")
	}

	doc := findByID(t, c, 5)
	if v, _ := doc.Get("v"); document.Compare(v, int64(1)) != 0 {
		t.Errorf("Expected v = 1, got %v", v)
	}
}

func TestUpsertDerivesIDFromIn(t *testing.T) {
	c := testCollection(t)

	inExpr := mkdoc("$in", []interface{}{42, 43})
	result, err := c.UpdateDocuments(mkdoc("_id", inExpr), mkdoc("$set", mkdoc("v", 1)), false, true)
	if err != nil {
		t.Fatalf("UpdateDocuments failed: %v", err)
	}

	if n, _ := result.Get("n"); n != int32(1) {
		t.Errorf("Expected n = 1, got %v", n)
	}
	if updated, _ := result.Get("updatedExisting"); updated != false {
		t.Errorf("Expected updatedExisting false, got %v", updated)
	}
	upserted, ok := result.Get("upserted")
	if !ok {
		t.Fatal("Expected upserted to be reported")
	}
	if document.Compare(upserted, int64(42)) != 0 {
		t.Errorf("Expected upserted 42, got %v", upserted)
	}

	doc := findByID(t, c, 42)
	if v, _ := doc.Get("v"); document.Compare(v, int64(1)) != 0 {
		t.Errorf("Expected inserted {_id: 42, v: 1}, got %v", doc)
	}
}

func TestUpsertSeedsFromSelector(t *testing.T) {
	c := testCollection(t)

	selector := mkdoc("name", "Alice", "age", mkdoc("$gt", 20), "meta.tag", "x")
	if _, err := c.UpdateDocuments(selector, mkdoc("$set", mkdoc("v", 1)), false, true); err != nil {
		t.Fatalf("UpdateDocuments failed: %v", err)
	}

	docs, err := c.HandleQuery(mkdoc("name", "Alice"), 0, 0, nil)
	if err != nil {
		t.Fatalf("HandleQuery failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 upserted document, got %d", len(docs))
	}
	doc := docs[0]

	// expression values are dropped from the seed, plain values kept,
	// dotted keys become nested documents
	if doc.Has("age") {
		t.Error("Expected expression value to be dropped from the seed")
	}
	if v := document.GetPath(doc, "meta.tag"); v != "x" {
		t.Errorf("Expected nested seed value, got %v", v)
	}
	if v, _ := doc.Get("v"); document.Compare(v, int64(1)) != 0 {
		t.Errorf("Expected update applied to seed, got %v", v)
	}
	// a fresh object id was generated
	id, _ := doc.Get("_id")
	if _, isOID := id.(document.ObjectID); !isOID {
		t.Errorf("Expected generated ObjectID, got %T", id)
	}
}

func TestUpsertSetOnInsertApplies(t *testing.T) {
	c := testCollection(t)

	update := mkdoc(
		"$set", mkdoc("v", 1),
		"$setOnInsert", mkdoc("created", true))
	if _, err := c.UpdateDocuments(mkdoc("_id", 1), update, false, true); err != nil {
		t.Fatalf("UpdateDocuments failed: %v", err)
	}

	doc := findByID(t, c, 1)
	if v, _ := doc.Get("created"); v != true {
		t.Errorf("Expected $setOnInsert applied on insert, got %v", doc)
	}

	// on a plain update of the now-existing document it is ignored
	if _, err := c.UpdateDocuments(mkdoc("_id", 1), mkdoc("$setOnInsert", mkdoc("again", true)), false, true); err != nil {
		t.Fatalf("UpdateDocuments failed: %v", err)
	}
	if findByID(t, c, 1).Has("again") {
		t.Error("Expected $setOnInsert ignored when matching an existing document")
	}
}

func TestUpsertNoInsertWhenMatched(t *testing.T) {
	c := testCollection(t)
	insertOne(t, c, mkdoc("_id", 1, "v", 0))

	result, err := c.UpdateDocuments(mkdoc("_id", 1), mkdoc("$set", mkdoc("v", 1)), false, true)
	if err != nil {
		t.Fatalf("UpdateDocuments failed: %v", err)
	}
	if updated, _ := result.Get("updatedExisting"); updated != true {
		t.Errorf("Expected updatedExisting true, got %v", updated)
	}
	if count, _ := c.Count(nil); count != 1 {
		t.Errorf("Expected no insert, got %d documents", count)
	}
}

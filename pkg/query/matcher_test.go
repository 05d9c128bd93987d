package query

import (
	"testing"

	"github.com/mnohosten/clara-db/pkg/document"
)

func doc(pairs ...interface{}) *document.Document {
	d := document.New()
	for i := 0; i < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1])
	}
	return d
}

func mustMatch(t *testing.T, candidate, q *document.Document) {
	t.Helper()
	ok, err := NewMatcher().Matches(candidate, q)
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected %v to match %v", candidate, q)
	}
}

func mustNotMatch(t *testing.T, candidate, q *document.Document) {
	t.Helper()
	ok, err := NewMatcher().Matches(candidate, q)
	if err != nil {
		t.Fatalf("Matches failed: %v", err)
	}
	if ok {
		t.Errorf("Expected %v not to match %v", candidate, q)
	}
}

func TestMatchesEquality(t *testing.T) {
	candidate := doc("name", "Alice", "age", 30)

	mustMatch(t, candidate, doc("name", "Alice"))
	mustMatch(t, candidate, doc("age", 30.0)) // numeric kinds compare by value
	mustNotMatch(t, candidate, doc("name", "Bob"))
	mustNotMatch(t, candidate, doc("missing", 1))
	mustMatch(t, candidate, document.New()) // empty query matches all
}

func TestMatchesArrayContains(t *testing.T) {
	candidate := doc("tags", []interface{}{"go", "db"})

	// equality against an array matches any element or the whole array
	mustMatch(t, candidate, doc("tags", "go"))
	mustMatch(t, candidate, doc("tags", []interface{}{"go", "db"}))
	mustNotMatch(t, candidate, doc("tags", "rust"))
}

func TestMatchesComparisonOperators(t *testing.T) {
	candidate := doc("age", 30)

	mustMatch(t, candidate, doc("age", doc("$gt", 20)))
	mustMatch(t, candidate, doc("age", doc("$gte", 30)))
	mustMatch(t, candidate, doc("age", doc("$lt", 40)))
	mustMatch(t, candidate, doc("age", doc("$lte", 30)))
	mustNotMatch(t, candidate, doc("age", doc("$gt", 30)))
	mustMatch(t, candidate, doc("age", doc("$eq", 30)))
	mustMatch(t, candidate, doc("age", doc("$ne", 31)))
	mustNotMatch(t, candidate, doc("age", doc("$ne", 30)))
}

func TestMatchesInNin(t *testing.T) {
	candidate := doc("status", "active")

	mustMatch(t, candidate, doc("status", doc("$in", []interface{}{"active", "idle"})))
	mustNotMatch(t, candidate, doc("status", doc("$in", []interface{}{"gone"})))
	mustMatch(t, candidate, doc("status", doc("$nin", []interface{}{"gone"})))
	mustNotMatch(t, candidate, doc("status", doc("$nin", []interface{}{"active"})))

	// $ne and $nin match documents missing the field
	mustMatch(t, candidate, doc("missing", doc("$ne", 1)))
	mustMatch(t, candidate, doc("missing", doc("$nin", []interface{}{1})))
}

func TestMatchesExists(t *testing.T) {
	candidate := doc("present", nil, "x", 1)

	mustMatch(t, candidate, doc("present", doc("$exists", true)))
	mustMatch(t, candidate, doc("absent", doc("$exists", false)))
	mustNotMatch(t, candidate, doc("absent", doc("$exists", true)))
	mustNotMatch(t, candidate, doc("present", doc("$exists", false)))
}

func TestMatchesDottedPath(t *testing.T) {
	address := doc("city", "Prague")
	candidate := doc("address", address)

	mustMatch(t, candidate, doc("address.city", "Prague"))
	mustNotMatch(t, candidate, doc("address.city", "Brno"))
	mustNotMatch(t, candidate, doc("address.zip", doc("$exists", true)))
}

func TestMatchesDottedPathThroughArray(t *testing.T) {
	candidate := doc("arr", []interface{}{doc("x", 1), doc("x", 2), doc("x", 3)})

	mustMatch(t, candidate, doc("arr.x", 2))
	mustNotMatch(t, candidate, doc("arr.x", 9))
	mustMatch(t, candidate, doc("arr.1.x", 2))
	mustNotMatch(t, candidate, doc("arr.0.x", 2))
}

func TestMatchesLogicalOperators(t *testing.T) {
	candidate := doc("a", 1, "b", 2)

	mustMatch(t, candidate, doc("$and", []interface{}{doc("a", 1), doc("b", 2)}))
	mustNotMatch(t, candidate, doc("$and", []interface{}{doc("a", 1), doc("b", 3)}))
	mustMatch(t, candidate, doc("$or", []interface{}{doc("a", 9), doc("b", 2)}))
	mustNotMatch(t, candidate, doc("$or", []interface{}{doc("a", 9), doc("b", 9)}))
	mustMatch(t, candidate, doc("$nor", []interface{}{doc("a", 9), doc("b", 9)}))
	mustNotMatch(t, candidate, doc("$nor", []interface{}{doc("a", 1)}))
}

func TestMatchesAllSizeElemMatch(t *testing.T) {
	candidate := doc("tags", []interface{}{"a", "b", "c"},
		"points", []interface{}{doc("x", 1, "y", 5), doc("x", 2, "y", 9)})

	mustMatch(t, candidate, doc("tags", doc("$all", []interface{}{"a", "c"})))
	mustNotMatch(t, candidate, doc("tags", doc("$all", []interface{}{"a", "z"})))
	mustMatch(t, candidate, doc("tags", doc("$size", 3)))
	mustNotMatch(t, candidate, doc("tags", doc("$size", 2)))

	mustMatch(t, candidate, doc("points", doc("$elemMatch", doc("x", 2, "y", 9))))
	mustNotMatch(t, candidate, doc("points", doc("$elemMatch", doc("x", 1, "y", 9))))

	scores := doc("scores", []interface{}{3, 8})
	mustMatch(t, scores, doc("scores", doc("$elemMatch", doc("$gt", 5))))
	mustNotMatch(t, scores, doc("scores", doc("$elemMatch", doc("$gt", 10))))
}

func TestMatchesRegexTypeModNot(t *testing.T) {
	candidate := doc("name", "Alice", "n", 10)

	mustMatch(t, candidate, doc("name", doc("$regex", "^Ali")))
	mustNotMatch(t, candidate, doc("name", doc("$regex", "^Bob")))
	mustMatch(t, candidate, doc("name", doc("$regex", "^ali", "$options", "i")))

	mustMatch(t, candidate, doc("name", doc("$type", "string")))
	mustMatch(t, candidate, doc("n", doc("$type", "long")))
	mustNotMatch(t, candidate, doc("n", doc("$type", "string")))

	mustMatch(t, candidate, doc("n", doc("$mod", []interface{}{5, 0})))
	mustNotMatch(t, candidate, doc("n", doc("$mod", []interface{}{3, 0})))

	mustMatch(t, candidate, doc("n", doc("$not", doc("$gt", 100))))
	mustNotMatch(t, candidate, doc("n", doc("$not", doc("$gt", 5))))
}

func TestMatchesEqualityOnDocument(t *testing.T) {
	inner := doc("x", 1)
	candidate := doc("sub", inner)

	mustMatch(t, candidate, doc("sub", doc("x", 1)))
	mustNotMatch(t, candidate, doc("sub", doc("x", 2)))
}

func TestMatchPositionSimple(t *testing.T) {
	candidate := doc("arr", []interface{}{doc("x", 1), doc("x", 2), doc("x", 3)})

	pos, err := NewMatcher().MatchPosition(candidate, doc("arr.x", 2))
	if err != nil {
		t.Fatalf("MatchPosition failed: %v", err)
	}
	if pos == nil || *pos != 1 {
		t.Errorf("Expected position 1, got %v", pos)
	}
}

func TestMatchPositionScalarArray(t *testing.T) {
	candidate := doc("t", []interface{}{10, 20, 30})

	pos, err := NewMatcher().MatchPosition(candidate, doc("t", 30))
	if err != nil {
		t.Fatalf("MatchPosition failed: %v", err)
	}
	if pos == nil || *pos != 2 {
		t.Errorf("Expected position 2, got %v", pos)
	}
}

func TestMatchPositionNoArrayClause(t *testing.T) {
	candidate := doc("a", 1)

	pos, err := NewMatcher().MatchPosition(candidate, doc("a", 1))
	if err != nil {
		t.Fatalf("MatchPosition failed: %v", err)
	}
	if pos != nil {
		t.Errorf("Expected no position without an array clause, got %d", *pos)
	}
}

func TestMatchPositionFirstArrayClauseWins(t *testing.T) {
	candidate := doc(
		"a", []interface{}{5, 6},
		"b", []interface{}{7, 8, 9})

	pos, err := NewMatcher().MatchPosition(candidate, doc("a", 6, "b", 9))
	if err != nil {
		t.Fatalf("MatchPosition failed: %v", err)
	}
	if pos == nil || *pos != 1 {
		t.Errorf("Expected position from the first array clause, got %v", pos)
	}
}

func TestMatchPositionNotMatched(t *testing.T) {
	candidate := doc("arr", []interface{}{1, 2})

	pos, err := NewMatcher().MatchPosition(candidate, doc("arr", 9))
	if err != nil {
		t.Fatalf("MatchPosition failed: %v", err)
	}
	if pos != nil {
		t.Error("Expected nil position when the query does not match")
	}
}

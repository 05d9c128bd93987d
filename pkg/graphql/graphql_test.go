package graphql

import (
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/mnohosten/clara-db/pkg/database"
)

func testSchema(t *testing.T) (graphql.Schema, *database.Database) {
	t.Helper()

	db, err := database.Open(database.DefaultConfig("test"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := Schema(db)
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}
	return schema, db
}

func execute(t *testing.T, schema graphql.Schema, query string) map[string]interface{} {
	t.Helper()

	result := graphql.Do(graphql.Params{Schema: schema, RequestString: query})
	if len(result.Errors) > 0 {
		t.Fatalf("GraphQL errors: %v", result.Errors)
	}
	return result.Data.(map[string]interface{})
}

func TestGraphQLInsertAndFind(t *testing.T) {
	schema, _ := testSchema(t)

	data := execute(t, schema, `mutation {
		insert(collection: "users", documents: [{_id: 1, name: "Alice"}, {_id: 2, name: "Bob"}])
	}`)
	if data["insert"] != 2 {
		t.Errorf("Expected 2 inserted, got %v", data["insert"])
	}

	data = execute(t, schema, `{
		find(collection: "users", query: {name: "Alice"})
	}`)
	docs := data["find"].([]interface{})
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	if docs[0].(map[string]interface{})["name"] != "Alice" {
		t.Errorf("Expected Alice, got %v", docs[0])
	}
}

func TestGraphQLCountAndDistinct(t *testing.T) {
	schema, _ := testSchema(t)

	execute(t, schema, `mutation {
		insert(collection: "users", documents: [
			{_id: 1, city: "Prague"},
			{_id: 2, city: "Brno"},
			{_id: 3, city: "Prague"}])
	}`)

	data := execute(t, schema, `{ count(collection: "users", query: {city: "Prague"}) }`)
	if data["count"] != 2 {
		t.Errorf("Expected count 2, got %v", data["count"])
	}

	data = execute(t, schema, `{ distinct(collection: "users", key: "city") }`)
	values := data["distinct"].([]interface{})
	if len(values) != 2 || values[0] != "Brno" || values[1] != "Prague" {
		t.Errorf("Expected sorted [Brno Prague], got %v", values)
	}
}

func TestGraphQLUpdateAndDelete(t *testing.T) {
	schema, _ := testSchema(t)

	execute(t, schema, `mutation {
		insert(collection: "users", documents: [{_id: 1, v: 0}])
	}`)

	// operator keys are not valid GraphQL names, the update document
	// travels as a variable
	updateResult := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `mutation($u: JSON!) { update(collection: "users", query: {_id: 1}, update: $u) }`,
		VariableValues: map[string]interface{}{
			"u": map[string]interface{}{"$set": map[string]interface{}{"v": 5}},
		},
	})
	if len(updateResult.Errors) > 0 {
		t.Fatalf("GraphQL errors: %v", updateResult.Errors)
	}
	data := updateResult.Data.(map[string]interface{})
	result := data["update"].(map[string]interface{})
	if result["updatedExisting"] != true {
		t.Errorf("Expected updatedExisting true, got %v", result)
	}

	data = execute(t, schema, `mutation {
		delete(collection: "users", query: {_id: 1})
	}`)
	if data["delete"] != 1 {
		t.Errorf("Expected 1 deleted, got %v", data["delete"])
	}
}

func TestGraphQLCollections(t *testing.T) {
	schema, db := testSchema(t)

	db.Collection("a")
	db.Collection("b")

	data := execute(t, schema, `{ collections }`)
	names := data["collections"].([]interface{})
	if len(names) != 2 {
		t.Errorf("Expected 2 collections, got %v", names)
	}
}

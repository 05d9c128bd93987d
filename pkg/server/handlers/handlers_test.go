package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/mnohosten/clara-db/pkg/database"
)

func testRouter(t *testing.T) (*chi.Mux, *database.Database) {
	t.Helper()

	db, err := database.Open(database.DefaultConfig("test"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	h := New(db, NewChangeHub())
	router := chi.NewRouter()
	router.Get("/collections", h.ListCollections)
	router.Route("/collections/{collection}", func(r chi.Router) {
		r.Delete("/", h.DropCollection)
		r.Post("/documents", h.Insert)
		r.Post("/query", h.Query)
		r.Post("/update", h.Update)
		r.Post("/delete", h.Delete)
		r.Post("/count", h.Count)
		r.Post("/distinct", h.Distinct)
		r.Post("/find-and-modify", h.FindAndModify)
		r.Get("/stats", h.Stats)
	})
	return router, db
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestInsertAndQueryEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	rec, response := doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{
			{"_id": 1, "name": "Alice"},
			{"_id": 2, "name": "Bob"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if response["n"] != float64(2) {
		t.Errorf("Expected n = 2, got %v", response["n"])
	}

	rec, response = doRequest(t, router, "POST", "/collections/users/query", map[string]interface{}{
		"query": map[string]interface{}{"name": "Alice"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	docs := response["documents"].([]interface{})
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	if docs[0].(map[string]interface{})["name"] != "Alice" {
		t.Errorf("Expected Alice, got %v", docs[0])
	}
}

func TestInsertDuplicateReturnsConflict(t *testing.T) {
	router, _ := testRouter(t)

	doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{{"_id": 1}},
	})
	rec, response := doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{{"_id": 1}},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", rec.Code)
	}
	if response["n"] != float64(0) {
		t.Errorf("Expected n = 0, got %v", response["n"])
	}
}

func TestUpdateEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{{"_id": 1, "v": 0}},
	})

	rec, response := doRequest(t, router, "POST", "/collections/users/update", map[string]interface{}{
		"query":  map[string]interface{}{"_id": 1},
		"update": map[string]interface{}{"$set": map[string]interface{}{"v": 5}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if response["n"] != float64(1) || response["updatedExisting"] != true {
		t.Errorf("Unexpected update response: %v", response)
	}
}

func TestUpdateErrorCarriesCode(t *testing.T) {
	router, _ := testRouter(t)

	doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{{"_id": 1}},
	})

	rec, response := doRequest(t, router, "POST", "/collections/users/update", map[string]interface{}{
		"query":  map[string]interface{}{"_id": 1},
		"update": map[string]interface{}{"$set": map[string]interface{}{"_id": 2}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
	if response["code"] != float64(10148) {
		t.Errorf("Expected code 10148, got %v", response["code"])
	}
}

func TestDeleteAndCountEndpoints(t *testing.T) {
	router, _ := testRouter(t)

	doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{
			{"_id": 1, "active": true},
			{"_id": 2, "active": false},
			{"_id": 3, "active": true},
		},
	})

	rec, response := doRequest(t, router, "POST", "/collections/users/count", map[string]interface{}{
		"query": map[string]interface{}{"active": true},
	})
	if rec.Code != http.StatusOK || response["n"] != float64(2) {
		t.Errorf("Expected count 2, got %v (%d)", response["n"], rec.Code)
	}

	rec, response = doRequest(t, router, "POST", "/collections/users/delete", map[string]interface{}{
		"query": map[string]interface{}{"active": true},
		"limit": 0,
	})
	if rec.Code != http.StatusOK || response["n"] != float64(2) {
		t.Errorf("Expected 2 deleted, got %v (%d)", response["n"], rec.Code)
	}
}

func TestDistinctEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{
			{"_id": 1, "city": "Prague"},
			{"_id": 2, "city": "Brno"},
			{"_id": 3, "city": "Prague"},
		},
	})

	rec, response := doRequest(t, router, "POST", "/collections/users/distinct", map[string]interface{}{
		"key": "city",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	values := response["values"].([]interface{})
	if len(values) != 2 || values[0] != "Brno" || values[1] != "Prague" {
		t.Errorf("Expected sorted [Brno Prague], got %v", values)
	}
}

func TestFindAndModifyEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{{"_id": 1, "v": 0}},
	})

	rec, response := doRequest(t, router, "POST", "/collections/users/find-and-modify", map[string]interface{}{
		"query":  map[string]interface{}{"_id": 1},
		"update": map[string]interface{}{"$set": map[string]interface{}{"v": 1}},
		"new":    true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	value := response["value"].(map[string]interface{})
	if value["v"] != float64(1) {
		t.Errorf("Expected post-image v = 1, got %v", value)
	}
	if response["ok"] != float64(1) {
		t.Errorf("Expected ok 1, got %v", response["ok"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	router, _ := testRouter(t)

	doRequest(t, router, "POST", "/collections/users/documents", map[string]interface{}{
		"documents": []map[string]interface{}{{"_id": 1}},
	})

	rec, response := doRequest(t, router, "GET", "/collections/users/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if response["ns"] != "test.users" {
		t.Errorf("Expected ns test.users, got %v", response["ns"])
	}
	if response["count"] != float64(1) {
		t.Errorf("Expected count 1, got %v", response["count"])
	}
}

func TestListAndDropCollections(t *testing.T) {
	router, db := testRouter(t)

	db.Collection("a")
	db.Collection("b")

	rec, response := doRequest(t, router, "GET", "/collections", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	names := response["collections"].([]interface{})
	if len(names) != 2 {
		t.Errorf("Expected 2 collections, got %v", names)
	}

	rec, _ = doRequest(t, router, "DELETE", "/collections/a", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	rec, _ = doRequest(t, router, "DELETE", "/collections/a", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing collection, got %d", rec.Code)
	}
}

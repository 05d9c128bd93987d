package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mnohosten/clara-db/pkg/database"
	"github.com/mnohosten/clara-db/pkg/document"
	"github.com/mnohosten/clara-db/pkg/index"
)

// Handlers holds the database instance and provides HTTP handlers
type Handlers struct {
	db  *database.Database
	hub *ChangeHub
}

// New creates a new Handlers instance
func New(db *database.Database, hub *ChangeHub) *Handlers {
	return &Handlers{db: db, hub: hub}
}

// getCollection resolves a collection and wires it into the change hub
func (h *Handlers) getCollection(name string) *database.Collection {
	coll := h.db.Collection(name)
	if coll != nil && h.hub != nil {
		h.hub.Attach(coll)
	}
	return coll
}

// parseJSONBody parses the JSON request body into target
func parseJSONBody(r *http.Request, target interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return errors.New("failed to read request body")
	}
	defer r.Body.Close()

	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.New("invalid JSON: " + err.Error())
	}
	return nil
}

// docFromJSON converts a decoded JSON object into a document
func docFromJSON(m map[string]interface{}) *document.Document {
	if m == nil {
		return document.New()
	}
	return document.FromMap(m)
}

// docsToJSON converts documents to JSON-friendly maps
func docsToJSON(docs []*document.Document) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.ToMap())
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError maps errors onto HTTP responses, preserving server error codes
func writeError(w http.ResponseWriter, err error) {
	var serverErr *database.ServerError
	if errors.As(err, &serverErr) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": serverErr.Message,
			"code":  serverErr.Code,
		})
		return
	}

	var dup *index.DuplicateKeyError
	if errors.As(err, &dup) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": dup.Error(),
			"code":  dup.Code(),
		})
		return
	}

	if errors.Is(err, database.ErrCollectionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mnohosten/clara-db/pkg/document"
)

// InsertRequest is the body of an insert call
type InsertRequest struct {
	Documents []map[string]interface{} `json:"documents"`
}

// Insert handles POST /collections/{collection}/documents
func (h *Handlers) Insert(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))

	var req InsertRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Documents) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "no documents to insert"})
		return
	}

	docs := make([]*document.Document, 0, len(req.Documents))
	for _, m := range req.Documents {
		docs = append(docs, docFromJSON(m))
	}

	n, err := coll.InsertDocuments(docs)
	if err != nil {
		// report partial progress the way the collection does
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"error": err.Error(),
			"n":     n,
		})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"n": n, "ok": 1})
}

// UpdateRequest is the body of an update call
type UpdateRequest struct {
	Query  map[string]interface{} `json:"query"`
	Update map[string]interface{} `json:"update"`
	Multi  bool                   `json:"multi"`
	Upsert bool                   `json:"upsert"`
}

// Update handles POST /collections/{collection}/update
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))

	var req UpdateRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := coll.UpdateDocuments(docFromJSON(req.Query), docFromJSON(req.Update), req.Multi, req.Upsert)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.ToMap())
}

// DeleteRequest is the body of a delete call
type DeleteRequest struct {
	Query map[string]interface{} `json:"query"`
	Limit int                    `json:"limit"`
}

// Delete handles POST /collections/{collection}/delete
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))

	var req DeleteRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	n, err := coll.DeleteDocuments(docFromJSON(req.Query), req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"n": n, "ok": 1})
}

// FindAndModify handles POST /collections/{collection}/find-and-modify
func (h *Handlers) FindAndModify(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))

	var spec map[string]interface{}
	if err := parseJSONBody(r, &spec); err != nil {
		writeError(w, err)
		return
	}

	result, err := coll.FindAndModify(docFromJSON(spec))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result.ToMap())
}

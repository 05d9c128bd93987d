package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mnohosten/clara-db/pkg/index"
)

// ListCollections handles GET /collections
func (h *Handlers) ListCollections(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"collections": h.db.ListCollections(),
		"ok":          1,
	})
}

// DropCollection handles DELETE /collections/{collection}
func (h *Handlers) DropCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	if err := h.db.DropCollection(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dropped": name, "ok": 1})
}

// Stats handles GET /collections/{collection}/stats
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))
	writeJSON(w, http.StatusOK, coll.GetStats().ToMap())
}

// Validate handles GET /collections/{collection}/validate
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))
	writeJSON(w, http.StatusOK, coll.Validate().ToMap())
}

// CreateIndexRequest is the body of an index creation call
type CreateIndexRequest struct {
	Field string `json:"field"`
	Name  string `json:"name"`
}

// CreateIndex handles POST /collections/{collection}/indexes
func (h *Handlers) CreateIndex(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))

	var req CreateIndexRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Field == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "field is required"})
		return
	}
	name := req.Name
	if name == "" {
		name = req.Field + "_"
	}

	if err := coll.AddIndex(index.NewUniqueIndex(coll.FullName(), name, req.Field)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"name": name, "ok": 1})
}

// DatabaseStats handles GET /stats
func (h *Handlers) DatabaseStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.db.Stats().ToMap())
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

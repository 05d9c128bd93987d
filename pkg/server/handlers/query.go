package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// QueryRequest is the body of a query call
type QueryRequest struct {
	Query      map[string]interface{} `json:"query"`
	OrderBy    map[string]interface{} `json:"orderby"`
	Skip       int                    `json:"skip"`
	Limit      int                    `json:"limit"`
	Projection map[string]interface{} `json:"projection"`
}

// Query handles POST /collections/{collection}/query
func (h *Handlers) Query(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))

	var req QueryRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	queryObject := docFromJSON(nil)
	queryObject.Set("query", docFromJSON(req.Query))
	if req.OrderBy != nil {
		queryObject.Set("orderby", docFromJSON(req.OrderBy))
	}

	var fieldSelector = docFromJSON(req.Projection)
	docs, err := coll.HandleQuery(queryObject, req.Skip, req.Limit, fieldSelector)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docsToJSON(docs),
		"count":     len(docs),
		"ok":        1,
	})
}

// CountRequest is the body of a count call
type CountRequest struct {
	Query map[string]interface{} `json:"query"`
}

// Count handles POST /collections/{collection}/count
func (h *Handlers) Count(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))

	req := CountRequest{}
	if r.ContentLength > 0 {
		if err := parseJSONBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}

	n, err := coll.Count(docFromJSON(req.Query))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"n": n, "ok": 1})
}

// DistinctRequest is the body of a distinct call
type DistinctRequest struct {
	Key   string                 `json:"key"`
	Query map[string]interface{} `json:"query"`
}

// Distinct handles POST /collections/{collection}/distinct
func (h *Handlers) Distinct(w http.ResponseWriter, r *http.Request) {
	coll := h.getCollection(chi.URLParam(r, "collection"))

	var req DistinctRequest
	if err := parseJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	spec := docFromJSON(nil)
	spec.Set("key", req.Key)
	if req.Query != nil {
		spec.Set("query", docFromJSON(req.Query))
	}

	response, err := coll.HandleDistinct(spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response.ToMap())
}

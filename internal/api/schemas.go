package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetAggregatedSchema(w http.ResponseWriter, r *http.Request) {
	team := chi.URLParam(r, "team")
	method := chi.URLParam(r, "method")
	path := "/" + chi.URLParam(r, "*")
	schema, err := s.Ops.GetAggregatedSchema(r.Context(), authzFromRequest(r), team, path, method)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

func (s *Server) handleListAggregatedSchemas(w http.ResponseWriter, r *http.Request) {
	list, err := s.Ops.ListAggregatedSchemas(r.Context(), authzFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

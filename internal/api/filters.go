package api

import (
	"net/http"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateFilter(w http.ResponseWriter, r *http.Request) {
	var req ops.CreateFilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.CreateFilter(r.Context(), authzFromRequest(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	id := model.FilterID(chi.URLParam(r, "id"))
	f, err := s.Ops.GetFilter(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleListFilters(w http.ResponseWriter, r *http.Request) {
	list, err := s.Ops.ListFilters(r.Context(), authzFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type updateFilterRequest struct {
	Spec        map[string]any
	Description string
}

func (s *Server) handleUpdateFilter(w http.ResponseWriter, r *http.Request) {
	id := model.FilterID(chi.URLParam(r, "id"))
	var req updateFilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.UpdateFilter(r.Context(), authzFromRequest(r), id, req.Spec, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (s *Server) handleDeleteFilter(w http.ResponseWriter, r *http.Request) {
	id := model.FilterID(chi.URLParam(r, "id"))
	if err := s.Ops.DeleteFilter(r.Context(), authzFromRequest(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

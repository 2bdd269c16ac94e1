package api

import (
	"net/http"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateRouteConfig(w http.ResponseWriter, r *http.Request) {
	var req ops.CreateRouteConfigRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.CreateRouteConfig(r.Context(), authzFromRequest(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleGetRouteConfig(w http.ResponseWriter, r *http.Request) {
	id := model.RouteConfigID(chi.URLParam(r, "id"))
	rc, err := s.Ops.GetRouteConfig(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (s *Server) handleListRouteConfigs(w http.ResponseWriter, r *http.Request) {
	list, err := s.Ops.ListRouteConfigs(r.Context(), authzFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateRouteConfig(w http.ResponseWriter, r *http.Request) {
	id := model.RouteConfigID(chi.URLParam(r, "id"))
	var spec model.RouteConfigSpec
	if !decodeJSON(w, r, &spec) {
		return
	}
	res, err := s.Ops.UpdateRouteConfig(r.Context(), authzFromRequest(r), id, spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (s *Server) handleDeleteRouteConfig(w http.ResponseWriter, r *http.Request) {
	id := model.RouteConfigID(chi.URLParam(r, "id"))
	if err := s.Ops.DeleteRouteConfig(r.Context(), authzFromRequest(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

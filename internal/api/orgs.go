package api

import (
	"net/http"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/go-chi/chi/v5"
)

type createOrgRequest struct {
	Name        string
	DisplayName string
}

func (s *Server) handleCreateOrg(w http.ResponseWriter, r *http.Request) {
	var req createOrgRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.CreateOrg(r.Context(), authzFromRequest(r), req.Name, req.DisplayName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleGetOrg(w http.ResponseWriter, r *http.Request) {
	id := model.OrgID(chi.URLParam(r, "orgID"))
	org, err := s.Ops.GetOrg(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (s *Server) handleListOrgs(w http.ResponseWriter, r *http.Request) {
	list, err := s.Ops.ListOrgs(r.Context(), authzFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteOrg(w http.ResponseWriter, r *http.Request) {
	id := model.OrgID(chi.URLParam(r, "orgID"))
	if err := s.Ops.DeleteOrg(r.Context(), authzFromRequest(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

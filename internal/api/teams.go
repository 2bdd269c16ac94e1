package api

import (
	"net/http"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/go-chi/chi/v5"
)

type createTeamRequest struct {
	Name        string
	DisplayName string
	OwnerUserID model.UserID
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	orgID := model.OrgID(chi.URLParam(r, "orgID"))
	var req createTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.CreateTeam(r.Context(), authzFromRequest(r), orgID, req.Name, req.DisplayName, req.OwnerUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	id := model.TeamID(chi.URLParam(r, "teamID"))
	team, err := s.Ops.GetTeam(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	orgID := model.OrgID(chi.URLParam(r, "orgID"))
	list, err := s.Ops.ListTeams(r.Context(), authzFromRequest(r), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	id := model.TeamID(chi.URLParam(r, "teamID"))
	if err := s.Ops.DeleteTeam(r.Context(), authzFromRequest(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateLearningSession(w http.ResponseWriter, r *http.Request) {
	var req ops.CreateLearningSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.CreateLearningSession(r.Context(), authzFromRequest(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleGetLearningSession(w http.ResponseWriter, r *http.Request) {
	id := model.LearningSessionID(chi.URLParam(r, "id"))
	session, err := s.Ops.GetLearningSession(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleListLearningSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.Ops.ListLearningSessions(r.Context(), authzFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleActivateLearningSession(w http.ResponseWriter, r *http.Request) {
	id := model.LearningSessionID(chi.URLParam(r, "id"))
	res, err := s.Ops.ActivateLearningSession(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (s *Server) handleCancelLearningSession(w http.ResponseWriter, r *http.Request) {
	id := model.LearningSessionID(chi.URLParam(r, "id"))
	res, err := s.Ops.CancelLearningSession(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

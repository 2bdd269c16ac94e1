package api

import (
	"net/http"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateListener(w http.ResponseWriter, r *http.Request) {
	var req ops.CreateListenerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.CreateListener(r.Context(), authzFromRequest(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleGetListener(w http.ResponseWriter, r *http.Request) {
	id := model.ListenerID(chi.URLParam(r, "id"))
	l, err := s.Ops.GetListener(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleListListeners(w http.ResponseWriter, r *http.Request) {
	list, err := s.Ops.ListListeners(r.Context(), authzFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateListener(w http.ResponseWriter, r *http.Request) {
	id := model.ListenerID(chi.URLParam(r, "id"))
	var spec model.ListenerSpec
	if !decodeJSON(w, r, &spec) {
		return
	}
	res, err := s.Ops.UpdateListener(r.Context(), authzFromRequest(r), id, spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (s *Server) handleDeleteListener(w http.ResponseWriter, r *http.Request) {
	id := model.ListenerID(chi.URLParam(r, "id"))
	if err := s.Ops.DeleteListener(r.Context(), authzFromRequest(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

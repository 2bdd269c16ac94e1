package api

import (
	"net/http"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateCluster(w http.ResponseWriter, r *http.Request) {
	var req ops.CreateClusterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.CreateCluster(r.Context(), authzFromRequest(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleGetCluster(w http.ResponseWriter, r *http.Request) {
	id := model.ClusterID(chi.URLParam(r, "id"))
	c, err := s.Ops.GetCluster(r.Context(), authzFromRequest(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListClusters(w http.ResponseWriter, r *http.Request) {
	list, err := s.Ops.ListClusters(r.Context(), authzFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateCluster(w http.ResponseWriter, r *http.Request) {
	id := model.ClusterID(chi.URLParam(r, "id"))
	var req ops.UpdateClusterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.UpdateCluster(r.Context(), authzFromRequest(r), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (s *Server) handleDeleteCluster(w http.ResponseWriter, r *http.Request) {
	id := model.ClusterID(chi.URLParam(r, "id"))
	if err := s.Ops.DeleteCluster(r.Context(), authzFromRequest(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

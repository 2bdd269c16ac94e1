package api

import (
	"net/http"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/ops"
)

func (s *Server) handleAttachFilter(w http.ResponseWriter, r *http.Request) {
	var req ops.AttachFilterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.Ops.AttachFilter(r.Context(), authzFromRequest(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, res)
}

func (s *Server) handleDetachFilter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := model.AttachmentScope(q.Get("scope"))
	scopeID := q.Get("scope_id")
	filterID := model.FilterID(q.Get("filter_id"))
	if scope == "" || scopeID == "" || filterID == "" {
		writeError(w, apierr.Validationf("filter_attachment", "query", "scope, scope_id, and filter_id query parameters are required"))
		return
	}
	if err := s.Ops.DetachFilter(r.Context(), authzFromRequest(r), scope, scopeID, filterID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListAttachments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	scope := model.AttachmentScope(q.Get("scope"))
	scopeID := q.Get("scope_id")
	if scope == "" || scopeID == "" {
		writeError(w, apierr.Validationf("filter_attachment", "query", "scope and scope_id query parameters are required"))
		return
	}
	list, err := s.Ops.ListAttachments(r.Context(), scope, scopeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

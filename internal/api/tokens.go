package api

import (
	"net/http"
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/go-chi/chi/v5"
)

type createTokenRequest struct {
	UserID    *model.UserID
	Name      string
	Scopes    []string
	ExpiresAt *time.Time
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	var req createTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ac := authzFromRequest(r)
	userID := req.UserID
	if userID == nil {
		userID = ac.UserID
	}
	res, err := s.Ops.CreateToken(r.Context(), ac, userID, req.Name, req.Scopes, req.ExpiresAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, res)
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	ac := authzFromRequest(r)
	userID := ac.UserID
	if q := r.URL.Query().Get("user_id"); q != "" {
		id := model.UserID(q)
		userID = &id
	}
	if userID == nil {
		writeError(w, apierr.Validationf("token", "user_id", "no user context to list tokens for"))
		return
	}
	list, err := s.Ops.ListTokens(r.Context(), ac, *userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	id := model.TokenID(chi.URLParam(r, "id"))
	if err := s.Ops.RevokeToken(r.Context(), authzFromRequest(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

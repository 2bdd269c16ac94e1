package api

import (
	"net/http"
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
	"golang.org/x/crypto/bcrypt"
)

type createSessionRequest struct {
	Email    string
	Password string
}

type sessionResponse struct {
	Token     string
	ExpiresAt time.Time
	User      *model.User
}

const sessionTokenTTL = 24 * time.Hour

// handleCreateSession is the only handler exempt from authenticate: it
// mints the bearer token that every other endpoint requires. It writes
// directly to the token store rather than going through
// internal/ops's CreateToken, which assumes an already-authenticated
// caller.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, apierr.Validationf("session", "email", "email and password are required"))
		return
	}

	user, err := s.Store.Users().GetByEmail(r.Context(), req.Email)
	if err != nil || user == nil {
		writeUnauthorized(w, "invalid email or password")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeUnauthorized(w, "invalid email or password")
		return
	}

	plaintext, err := authz.GenerateTokenPlaintext()
	if err != nil {
		writeError(w, err)
		return
	}
	hash, err := authz.HashToken(plaintext)
	if err != nil {
		writeError(w, err)
		return
	}

	scopes := []string{"cp:read", "cp:write"}
	if user.IsAdmin {
		scopes = []string{authz.ScopeAdminAll}
	}
	expiresAt := time.Now().Add(sessionTokenTTL)
	token := &model.PersonalAccessToken{
		ID:        model.NewTokenID(),
		UserID:    &user.ID,
		Name:      "session",
		TokenHash: hash,
		Scopes:    scopes,
		ExpiresAt: &expiresAt,
	}
	if err := token.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Store.Tokens().Create(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{Token: plaintext, ExpiresAt: expiresAt, User: user})
}

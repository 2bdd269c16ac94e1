package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

type ctxKey int

const authzCtxKey ctxKey = iota

// authenticate resolves the Authorization: Bearer <token> header into an
// authz.Context, the same bearer-token shape aras-group-co-aras-auth's
// cmd/server middleware uses, generalized from a JWT to this system's
// opaque PersonalAccessToken.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeUnauthorized(w, "missing or malformed Authorization header")
			return
		}
		plaintext := strings.TrimPrefix(header, prefix)

		hash, err := authz.HashToken(plaintext)
		if err != nil {
			writeUnauthorized(w, "invalid token")
			return
		}
		token, err := s.Store.Tokens().GetByHash(r.Context(), hash)
		if err != nil || token == nil {
			writeUnauthorized(w, "invalid token")
			return
		}
		if token.Expired(time.Now()) {
			writeUnauthorized(w, "token expired")
			return
		}

		ac := authz.NewContext(token.ID, token.UserID, s.resolveOrgID(r.Context(), token.UserID), token.Scopes)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), authzCtxKey, ac)))
	})
}

// resolveOrgID loads the token owner's single org membership, if any, so
// org-admin scope checks (authz.RequiredOrgAdmin) have an OrgID to
// compare against. Bootstrap/system tokens (UserID == nil) have none.
func (s *Server) resolveOrgID(ctx context.Context, userID *model.UserID) *model.OrgID {
	if userID == nil {
		return nil
	}
	user, err := s.Store.Users().Get(ctx, *userID)
	if err != nil || user.OrgID == "" {
		return nil
	}
	return &user.OrgID
}

func authzFromRequest(r *http.Request) authz.Context {
	ac, _ := r.Context().Value(authzCtxKey).(authz.Context)
	return ac
}

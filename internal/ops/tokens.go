package ops

import (
	"context"
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/model"
)

// IssuedToken carries the one-time plaintext back to the caller; only
// its digest is ever persisted or logged.
type IssuedToken struct {
	Token *model.PersonalAccessToken
	Plaintext string
}

func (d *Dispatcher) CreateToken(ctx context.Context, ac authz.Context, userID *model.UserID, name string, scopes []string, expiresAt *time.Time) (OperationResult[*IssuedToken], error) {
	if userID != nil && ac.UserID != nil && *userID != *ac.UserID && !ac.IsSuperuser() {
		return OperationResult[*IssuedToken]{}, apierr.Forbiddenf("cannot create a token for another user")
	}
	plaintext, err := authz.GenerateTokenPlaintext()
	if err != nil {
		return OperationResult[*IssuedToken]{}, err
	}
	hash, err := authz.HashToken(plaintext)
	if err != nil {
		return OperationResult[*IssuedToken]{}, err
	}
	t := &model.PersonalAccessToken{
		ID:        model.NewTokenID(),
		UserID:    userID,
		Name:      name,
		TokenHash: hash,
		Scopes:    scopes,
		ExpiresAt: expiresAt,
	}
	if err := t.Validate(); err != nil {
		return OperationResult[*IssuedToken]{}, err
	}
	if err := d.Store.Tokens().Create(ctx, t); err != nil {
		return OperationResult[*IssuedToken]{}, err
	}
	return ResultWithMessage(&IssuedToken{Token: t, Plaintext: plaintext}, "Token created. Store the plaintext now; it will not be shown again."), nil
}

func (d *Dispatcher) ListTokens(ctx context.Context, ac authz.Context, userID model.UserID) ([]*model.PersonalAccessToken, error) {
	if ac.UserID == nil || (*ac.UserID != userID && !ac.IsSuperuser()) {
		return nil, apierr.Forbiddenf("cannot list another user's tokens")
	}
	return d.Store.Tokens().ListByUser(ctx, userID)
}

func (d *Dispatcher) RevokeToken(ctx context.Context, ac authz.Context, id model.TokenID) error {
	t, err := d.Store.Tokens().Get(ctx, id)
	if err != nil {
		return err
	}
	if !ac.IsSuperuser() && (t.UserID == nil || ac.UserID == nil || *t.UserID != *ac.UserID) {
		return apierr.Forbiddenf("cannot revoke another user's token")
	}
	return d.Store.Tokens().Revoke(ctx, id)
}

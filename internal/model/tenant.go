package model

import (
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
)

// Organization is the top of the tenant tree. Name is globally unique.
type Organization struct {
	ID          OrgID
	Name        string
	DisplayName string
	Settings    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (o *Organization) Validate() error {
	return validateName("organization", o.Name)
}

// OrgRole is a member's role within an Organization.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

func (r OrgRole) Validate() error {
	switch r {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember:
		return nil
	default:
		return apierr.Validationf("org_membership", "role", "unknown role %q", r)
	}
}

// OrgMembership ties a user to an org with a role. Invariant: at least
// one Owner per org; enforced transactionally in internal/store, not here.
type OrgMembership struct {
	UserID UserID
	OrgID  OrgID
	Role   OrgRole
}

func (m *OrgMembership) Validate() error {
	if !ValidUUID(string(m.UserID)) {
		return apierr.Validationf("org_membership", "user_id", "invalid user_id")
	}
	if !ValidUUID(string(m.OrgID)) {
		return apierr.Validationf("org_membership", "org_id", "invalid org_id")
	}
	return m.Role.Validate()
}

// Team always belongs to exactly one org; every non-system resource
// belongs to a team.
type Team struct {
	ID          TeamID
	OrgID       OrgID
	Name        string
	DisplayName string
	OwnerUserID UserID
	CreatedAt   time.Time
}

func (t *Team) Validate() error {
	if !ValidUUID(string(t.OrgID)) {
		return apierr.Validationf("team", "org_id", "invalid org_id")
	}
	return validateName("team", t.Name)
}

// TeamMembership carries explicit scope overrides for a user on a team.
// Scopes otherwise derive from the user's org role when the team is
// created (internal/ops.TeamOperations.Create computes the defaults).
type TeamMembership struct {
	UserID UserID
	TeamID TeamID
	Scopes []string
}

func (m *TeamMembership) Validate() error {
	if !ValidUUID(string(m.UserID)) {
		return apierr.Validationf("team_membership", "user_id", "invalid user_id")
	}
	if !ValidUUID(string(m.TeamID)) {
		return apierr.Validationf("team_membership", "team_id", "invalid team_id")
	}
	return nil
}

// User belongs to exactly one org, assigned on first membership. Email is
// globally unique.
type User struct {
	ID           UserID
	Email        string
	PasswordHash string
	OrgID        OrgID
	IsAdmin      bool
	CreatedAt    time.Time
}

func (u *User) Validate() error {
	if u.Email == "" {
		return apierr.Validationf("user", "email", "email must not be empty")
	}
	return nil
}

// PersonalAccessToken is a bearer credential. UserID is nil for the
// bootstrap admin token, which is not tied to a specific user row.
type PersonalAccessToken struct {
	ID        TokenID
	UserID    *UserID
	Name      string
	TokenHash string
	Scopes    []string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (t *PersonalAccessToken) Validate() error {
	if t.TokenHash == "" {
		return apierr.Validationf("token", "token_hash", "token_hash must not be empty")
	}
	if len(t.Scopes) == 0 {
		return apierr.Validationf("token", "scopes", "a token must carry at least one scope")
	}
	return nil
}

func (t *PersonalAccessToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}

// AuditLog is an append-only record of every mutation.
type AuditLog struct {
	ID           AuditLogID
	ActorTokenID TokenID
	Action       string
	ResourceType string
	ResourceID   string
	Before       any
	After        any
	Timestamp    time.Time
}

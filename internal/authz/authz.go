// Package authz implements the hierarchical scope model gating every
// mutation and read at the control-plane boundary (C8).
package authz

import (
	"fmt"
	"strings"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/model"
)

// Action is the verb half of a resource:action scope.
type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Resource names usable in the "<res>:<act>" and "team:<team>:<res>:<act>"
// scope forms.
const (
	ResClusters         = "clusters"
	ResRoutes           = "routes"
	ResListeners        = "listeners"
	ResFilters          = "filters"
	ResTokens           = "tokens"
	ResLearningSessions = "learning_sessions"
	ResSchemas          = "aggregated_schemas"
)

// ScopeAdminAll is the superuser scope.
const ScopeAdminAll = "admin:all"

// Context carries the authenticated request's identity and granted
// scopes through every operation.
type Context struct {
	TokenID model.TokenID
	UserID  *model.UserID
	OrgID   *model.OrgID
	Scopes  map[string]struct{}
}

// NewContext builds a Context from a raw scope list.
func NewContext(tokenID model.TokenID, userID *model.UserID, orgID *model.OrgID, scopes []string) Context {
	set := make(map[string]struct{}, len(scopes))
	for _, s := range scopes {
		set[s] = struct{}{}
	}
	return Context{TokenID: tokenID, UserID: userID, OrgID: orgID, Scopes: set}
}

func (c Context) has(scope string) bool {
	_, ok := c.Scopes[scope]
	return ok
}

// IsSuperuser reports whether the context carries admin:all.
func (c Context) IsSuperuser() bool { return c.has(ScopeAdminAll) }

// HasExact reports whether scope is granted verbatim (no hierarchy
// resolution), used by callers that need to enumerate the caller's own
// team/org scopes directly (e.g. internal/ops's team-scope resolution).
func (c Context) HasExact(scope string) bool { return c.has(scope) }

// ScopeList returns a copy of the granted scope strings, for callers (e.g.
// internal/ops's team-scope resolution) that need to enumerate them.
func (c Context) ScopeList() []string {
	out := make([]string, 0, len(c.Scopes))
	for s := range c.Scopes {
		out = append(out, s)
	}
	return out
}

// Required builds the canonical "team:<team>:<res>:<act>" scope string.
func Required(team string, resource string, action Action) string {
	return fmt.Sprintf("team:%s:%s:%s", team, resource, action)
}

// RequiredOrgAdmin and RequiredOrgMember build the canonical
// "org:<org>:admin" / "org:<org>:member" scope strings.
func RequiredOrgAdmin(org string) string  { return fmt.Sprintf("org:%s:admin", org) }
func RequiredOrgMember(org string) string { return fmt.Sprintf("org:%s:member", org) }

// RequiredGlobal builds the "<res>:<act>" global scope string; only
// meaningful together with admin:all per spec.md 4.8.
func RequiredGlobal(resource string, action Action) string {
	return fmt.Sprintf("%s:%s", resource, action)
}

// parsed is a structured view of a scope string, used by covering-scope
// checks below.
type parsed struct {
	kind string // "admin", "org", "team", "resource", "cp"
	org  string
	team string
	res  string
	act  string
}

func parse(scope string) parsed {
	switch {
	case scope == ScopeAdminAll:
		return parsed{kind: "admin"}
	case scope == "cp:read" || scope == "cp:write":
		return parsed{kind: "cp", act: strings.TrimPrefix(scope, "cp:")}
	case strings.HasPrefix(scope, "org:"):
		parts := strings.SplitN(scope, ":", 3)
		if len(parts) == 3 {
			return parsed{kind: "org", org: parts[1], act: parts[2]}
		}
	case strings.HasPrefix(scope, "team:"):
		parts := strings.SplitN(scope, ":", 4)
		if len(parts) == 4 {
			return parsed{kind: "team", team: parts[1], res: parts[2], act: parts[3]}
		}
	default:
		parts := strings.SplitN(scope, ":", 2)
		if len(parts) == 2 {
			return parsed{kind: "resource", res: parts[0], act: parts[1]}
		}
	}
	return parsed{kind: "invalid"}
}

// covers reports whether the granted scope (already parsed) satisfies
// the required scope (also parsed), per spec.md 4.8's hierarchy:
// org-admin covers org-member of the same org; team covers its own
// resource-specific scopes; cp:read/cp:write cover every resource of
// matching action. A team scope string carries no org name, so an org
// grant never satisfies a team or resource requirement here.
func covers(granted, required parsed) bool {
	if granted.kind == "invalid" || required.kind == "invalid" {
		return false
	}
	switch required.kind {
	case "org":
		return granted.kind == "org" && granted.org == required.org &&
			(granted.act == required.act || granted.act == "admin")
	case "team":
		switch granted.kind {
		case "team":
			return granted.team == required.team && granted.res == required.res && actionCovers(granted.act, required.act)
		case "cp":
			return actionCovers(granted.act, required.act)
		}
		return false
	case "resource":
		switch granted.kind {
		case "resource":
			return granted.res == required.res && actionCovers(granted.act, required.act)
		case "cp":
			return actionCovers(granted.act, required.act)
		}
		return false
	default:
		return granted.kind == required.kind && granted == required
	}
}

func actionCovers(granted, required string) bool {
	return granted == required || granted == "write"
}

// Check succeeds if admin:all is present, the exact required scope is
// granted, or a covering hierarchical scope is granted. The `resource:
// action` global form additionally requires admin:all context to be
// present per spec.md 4.8, since its whole purpose is superuser
// convenience, not a standalone grant.
func Check(ctx Context, required string) error {
	if ctx.IsSuperuser() {
		return nil
	}
	req := parse(required)
	if req.kind == "resource" {
		// Global resource:action scopes only apply under admin:all,
		// which was already checked above and failed -- even when the
		// same resource:action string is granted verbatim.
		return deny(ctx, required)
	}
	if ctx.has(required) {
		return nil
	}
	for scope := range ctx.Scopes {
		if covers(parse(scope), req) {
			return nil
		}
	}
	return deny(ctx, required)
}

func deny(ctx Context, required string) error {
	granted := make([]string, 0, len(ctx.Scopes))
	for s := range ctx.Scopes {
		granted = append(granted, s)
	}
	return apierr.Forbiddenf("requires scope %q (have: %s)", required, strings.Join(granted, ", "))
}

// CheckOrgDelete enforces spec.md 4.8's special rule: platform-wide org
// deletion requires admin:all only; an org's own admins cannot delete it.
func CheckOrgDelete(ctx Context) error {
	if ctx.IsSuperuser() {
		return nil
	}
	return apierr.Forbiddenf("org deletion requires admin:all")
}

package model

import (
	"time"

	"github.com/flowmesh/controlplane/internal/apierr"
)

// Filter is a reusable, team-scoped named configuration of a given
// FilterType. Spec is raw JSON (map[string]any) since its shape depends
// entirely on FilterType and, for dynamically registered types, on a
// schema the Go code doesn't know about at compile time.
type Filter struct {
	ID          FilterID
	Name        string
	TeamID      TeamID // filters are always team-scoped (no system filters)
	FilterType  FilterType
	Description string
	Spec        map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (f *Filter) Validate() error {
	if err := validateName("filter", f.Name); err != nil {
		return err
	}
	if !ValidUUID(string(f.TeamID)) {
		return apierr.Validationf("filter", "team_id", "filter requires a valid team_id")
	}
	if f.FilterType == "" {
		return apierr.Validationf("filter", "filter_type", "filter_type must not be empty")
	}
	return nil
}

// AttachmentBehavior controls how a FilterAttachment's settings modify
// the base filter at this scope.
type AttachmentBehavior string

const (
	BehaviorUseBase  AttachmentBehavior = "use_base"
	BehaviorDisable  AttachmentBehavior = "disable"
	BehaviorOverride AttachmentBehavior = "override"
)

// AttachmentSettings is the optional per-scope override carried by a
// FilterAttachment row.
type AttachmentSettings struct {
	Behavior AttachmentBehavior
	Config   map[string]any // only meaningful when Behavior == BehaviorOverride
}

func (s *AttachmentSettings) Validate() error {
	if s == nil {
		return nil
	}
	switch s.Behavior {
	case BehaviorUseBase, BehaviorDisable, BehaviorOverride:
		return nil
	default:
		return apierr.Validationf("filter_attachment", "behavior", "unknown behavior %q", s.Behavior)
	}
}

// AttachmentScope identifies which of the four attachment scopes an
// attachment belongs to.
type AttachmentScope string

const (
	ScopeListener    AttachmentScope = "listener"
	ScopeRouteConfig AttachmentScope = "route_config"
	ScopeVirtualHost AttachmentScope = "virtual_host"
	ScopeRoute       AttachmentScope = "route"
)

// FilterAttachment binds a Filter to one scope. The same Go type backs
// all four attachment kinds (ListenerFilter, RouteConfigFilter,
// VirtualHostFilter, RouteFilter), stored in one filter_attachments table;
// Scope + ScopeID pick the kind and the target.
type FilterAttachment struct {
	FilterID FilterID
	Scope    AttachmentScope
	ScopeID  string // ListenerID / RouteConfigID / "<rc-id>/<vhost-name>" / "<rc-id>/<vhost-name>/<route-name>"
	Settings *AttachmentSettings
}

func (a *FilterAttachment) Validate() error {
	if !ValidUUID(string(a.FilterID)) {
		return apierr.Validationf("filter_attachment", "filter_id", "invalid filter_id")
	}
	if a.ScopeID == "" {
		return apierr.Validationf("filter_attachment", "scope_id", "scope_id must not be empty")
	}
	return a.Settings.Validate()
}

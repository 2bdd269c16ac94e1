// Attachment operations wire FilterOperations to C4 (internal/inject):
// attaching/detaching a filter at RouteConfig/VirtualHost/Route scope
// keeps every listener bound to that route config's HCM filter chain in
// sync (spec.md 4.4's "before a route-level override can affect Envoy,
// the corresponding HTTP filter must appear in the listener's HCM filter
// chain"); attaching at Listener scope updates that one listener
// directly. Both paths are idempotent, per spec.md 8's round-trip laws.
package ops

import (
	"context"
	"strings"

	"github.com/flowmesh/controlplane/internal/apierr"
	"github.com/flowmesh/controlplane/internal/authz"
	"github.com/flowmesh/controlplane/internal/inject"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

type AttachFilterRequest struct {
	Scope    model.AttachmentScope
	ScopeID  string
	FilterID model.FilterID
	Settings *model.AttachmentSettings
}

func (d *Dispatcher) AttachFilter(ctx context.Context, ac authz.Context, req AttachFilterRequest) (OperationResult[bool], error) {
	if err := req.Settings.Validate(); err != nil {
		return OperationResult[bool]{}, err
	}

	filterScope, err := d.teamScopeForResource(ctx, ac, authz.ResFilters, authz.ActionWrite)
	if err != nil {
		return OperationResult[bool]{}, err
	}
	filter, err := d.Store.Filters().Get(ctx, filterScope, req.FilterID)
	if err != nil {
		return OperationResult[bool]{}, err
	}

	resource := authz.ResRoutes
	if req.Scope == model.ScopeListener {
		resource = authz.ResListeners
	}
	routeScope, err := d.teamScopeForResource(ctx, ac, resource, authz.ActionWrite)
	if err != nil {
		return OperationResult[bool]{}, err
	}

	created, err := d.Store.Attachments().Attach(ctx, &model.FilterAttachment{
		FilterID: req.FilterID,
		Scope:    req.Scope,
		ScopeID:  req.ScopeID,
		Settings: req.Settings,
	})
	if err != nil {
		return OperationResult[bool]{}, err
	}

	if req.Scope == model.ScopeListener {
		if err := d.syncListener(ctx, routeScope, model.ListenerID(req.ScopeID)); err != nil {
			return OperationResult[bool]{}, err
		}
	} else {
		rcID, ok := rcIDFromScopeID(req.Scope, req.ScopeID)
		if !ok {
			return OperationResult[bool]{}, apierr.Validationf("filter_attachment", "scope_id", "malformed scope_id %q for scope %q", req.ScopeID, req.Scope)
		}
		if err := d.syncListenersForRouteConfig(ctx, routeScope, rcID); err != nil {
			return OperationResult[bool]{}, err
		}
		if meta, ok := filter.FilterType.Metadata(); ok && meta.RequiresListenerConfig {
			return ResultWithMessage(created, "Filter attached. This filter type requires listener-level configuration; attach it at listener scope separately for the override to take effect."), nil
		}
	}

	msg := "Filter attached successfully."
	if !created {
		msg = "Filter was already attached at this scope; no change made."
	}
	return ResultWithMessage(created, msg), nil
}

func (d *Dispatcher) DetachFilter(ctx context.Context, ac authz.Context, scope model.AttachmentScope, scopeID string, filterID model.FilterID) error {
	resource := authz.ResRoutes
	if scope == model.ScopeListener {
		resource = authz.ResListeners
	}
	teamScope, err := d.teamScopeForResource(ctx, ac, resource, authz.ActionWrite)
	if err != nil {
		return err
	}

	if err := d.Store.Attachments().Detach(ctx, scope, scopeID, filterID); err != nil {
		return err
	}

	if scope == model.ScopeListener {
		return d.syncListener(ctx, teamScope, model.ListenerID(scopeID))
	}
	rcID, ok := rcIDFromScopeID(scope, scopeID)
	if !ok {
		return apierr.Validationf("filter_attachment", "scope_id", "malformed scope_id %q for scope %q", scopeID, scope)
	}
	return d.syncListenersForRouteConfig(ctx, teamScope, rcID)
}

func (d *Dispatcher) ListAttachments(ctx context.Context, scope model.AttachmentScope, scopeID string) ([]*model.FilterAttachment, error) {
	return d.Store.Attachments().ListByScope(ctx, scope, scopeID)
}

// syncListener keeps one listener's ScopeListener attachments reflected
// in its HCM filter chains, per internal/inject.SyncListenerHTTPFilters.
func (d *Dispatcher) syncListener(ctx context.Context, scope store.TeamScope, id model.ListenerID) error {
	listener, err := d.Store.Listeners().Get(ctx, scope, id)
	if err != nil {
		return err
	}
	attached, err := d.resolveAttachedFilters(ctx, model.ScopeListener, string(id))
	if err != nil {
		return err
	}
	if inject.SyncListenerHTTPFilters(listener, attached) {
		return d.Store.Listeners().Update(ctx, listener)
	}
	return nil
}

// syncListenersForRouteConfig recomputes the set of RouteConfig-wide
// attached filter types that are eligible for automatic listener-level
// injection (RequiresListenerConfig == false) and syncs every listener
// bound to rcID's route config name, per spec.md 4.4's injector rules.
func (d *Dispatcher) syncListenersForRouteConfig(ctx context.Context, scope store.TeamScope, rcID model.RouteConfigID) error {
	rc, err := d.Store.RouteConfigs().Get(ctx, scope, rcID)
	if err != nil {
		return err
	}
	attachments, err := d.Store.Attachments().ListByRouteConfig(ctx, rcID)
	if err != nil {
		return err
	}

	byID := make(map[model.FilterID]bool)
	var eligible []*model.Filter
	for _, a := range attachments {
		if byID[a.FilterID] {
			continue
		}
		f, err := d.Store.Filters().Get(ctx, store.AllTeams(), a.FilterID)
		if err != nil {
			continue
		}
		if meta, ok := f.FilterType.Metadata(); ok && meta.RequiresListenerConfig {
			continue
		}
		byID[a.FilterID] = true
		eligible = append(eligible, f)
	}

	listeners, err := d.Store.Listeners().ListReferencing(ctx, rc.TeamID, rc.Name)
	if err != nil {
		return err
	}
	for _, l := range listeners {
		if inject.SyncListenerHTTPFilters(l, eligible) {
			if err := d.Store.Listeners().Update(ctx, l); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveAttachedFilters loads every Filter referenced by the
// attachments at one scope/scopeID pair, used for ScopeListener syncs
// (ScopeRouteConfig/VirtualHost/Route syncs use
// syncListenersForRouteConfig's RouteConfig-wide view instead).
func (d *Dispatcher) resolveAttachedFilters(ctx context.Context, scope model.AttachmentScope, scopeID string) ([]*model.Filter, error) {
	attachments, err := d.Store.Attachments().ListByScope(ctx, scope, scopeID)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Filter, 0, len(attachments))
	for _, a := range attachments {
		f, err := d.Store.Filters().Get(ctx, store.AllTeams(), a.FilterID)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// rcIDFromScopeID extracts the owning RouteConfigID from a
// RouteConfig/VirtualHost/Route scope_id, per model.FilterAttachment's
// ScopeID encoding ("<rc-id>" / "<rc-id>/<vhost>" / "<rc-id>/<vhost>/<route>").
func rcIDFromScopeID(scope model.AttachmentScope, scopeID string) (model.RouteConfigID, bool) {
	switch scope {
	case model.ScopeRouteConfig:
		return model.RouteConfigID(scopeID), scopeID != ""
	case model.ScopeVirtualHost, model.ScopeRoute:
		if i := strings.IndexByte(scopeID, '/'); i > 0 {
			return model.RouteConfigID(scopeID[:i]), true
		}
		return "", false
	default:
		return "", false
	}
}

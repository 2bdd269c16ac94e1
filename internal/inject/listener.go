// Package inject implements C4: composing Filter/FilterAttachment rows
// into the listener-level HTTP filter chain and the per-route
// TypedPerFilterConfig overrides the xDS builder (internal/builder)
// bakes into its protobuf output.
//
// Two independent concerns live here, grounded on
// original_source/src/services/listener_filter_chain.rs and
// original_source/src/xds/filters/injection/route.rs respectively:
//
//   - SyncListenerHTTPFilters keeps a Listener's HCM.HTTPFilters list in
//     sync with its ScopeListener attachments, idempotently.
//   - ResolveRouteFilters walks a RouteConfig's three attachment scopes
//     (RouteConfig/VirtualHost/Route) and resolves, per route, which
//     filter type wins at that route (most specific scope wins).
package inject

import "github.com/flowmesh/controlplane/internal/model"

// SyncListenerHTTPFilters makes every HCM in l.Spec's filter chains carry
// exactly the HTTPFilterRef entries implied by attached, adding missing
// ones and dropping stale ones. Router is never represented explicitly
// (model.ListenerSpec.HCMs treats it as implicit and always-last), so
// "insert before router" is simply "append to the list" here.
//
// Returns whether any HCM was modified, so callers only need to persist
// the listener when true.
func SyncListenerHTTPFilters(l *model.Listener, attached []*model.Filter) bool {
	desired := make(map[model.FilterID]model.FilterType, len(attached))
	order := make([]model.FilterID, 0, len(attached))
	for _, f := range attached {
		if _, ok := desired[f.ID]; !ok {
			order = append(order, f.ID)
		}
		desired[f.ID] = f.FilterType
	}

	modified := false
	for _, hcm := range l.Spec.HCMs() {
		present := make(map[model.FilterID]bool, len(hcm.HTTPFilters))
		kept := hcm.HTTPFilters[:0:0]
		for _, ref := range hcm.HTTPFilters {
			if _, ok := desired[ref.FilterID]; ok {
				kept = append(kept, ref)
				present[ref.FilterID] = true
			} else {
				modified = true
			}
		}
		for _, id := range order {
			if !present[id] {
				kept = append(kept, model.HTTPFilterRef{FilterID: id, FilterType: desired[id]})
				modified = true
			}
		}
		hcm.HTTPFilters = kept
	}
	return modified
}

// ListenerHasFilter reports whether any HCM in l already carries the
// filter with ID filterID,
// mirroring listener_has_http_filter's role as a pre-check before a
// caller decides whether a sync is even necessary.
func ListenerHasFilter(l *model.Listener, filterID model.FilterID) bool {
	for _, hcm := range l.Spec.HCMs() {
		for _, ref := range hcm.HTTPFilters {
			if ref.FilterID == filterID {
				return true
			}
		}
	}
	return false
}

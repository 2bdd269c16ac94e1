package builder

import (
	"context"
	"fmt"
	"sort"

	"github.com/envoyproxy/go-control-plane/pkg/cache/types"
	cachev3 "github.com/envoyproxy/go-control-plane/pkg/cache/v3"
	"github.com/envoyproxy/go-control-plane/pkg/resource/v3"

	"github.com/flowmesh/controlplane/internal/filters"
	"github.com/flowmesh/controlplane/internal/inject"
	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store"
)

// Builder assembles xDS snapshots from the current store contents. One
// snapshot is built per distinct Listener.DataplaneID (the empty string
// meaning "all nodes"); internal/xds decides which node_id gets which
// snapshot, generalizing the teacher's single implicit node.
type Builder struct {
	store     store.Store
	converter *filters.Converter
}

func New(s store.Store, converter *filters.Converter) *Builder {
	return &Builder{store: s, converter: converter}
}

// Build produces one cache.Snapshot per dataplane_id found among the
// listeners visible in scope (store.AllTeams() for the admin-wide,
// all-resources snapshot internal/xds actually serves — this system does
// not scope xDS delivery by team, only the REST/MCP API does).
func (b *Builder) Build(ctx context.Context) (map[string]*cachev3.Snapshot, error) {
	clusters, err := b.store.Clusters().List(ctx, store.AllTeams())
	if err != nil {
		return nil, fmt.Errorf("builder: listing clusters: %w", err)
	}
	routeConfigs, err := b.store.RouteConfigs().List(ctx, store.AllTeams())
	if err != nil {
		return nil, fmt.Errorf("builder: listing route configs: %w", err)
	}
	listeners, err := b.store.Listeners().List(ctx, store.AllTeams())
	if err != nil {
		return nil, fmt.Errorf("builder: listing listeners: %w", err)
	}
	allFilters, err := b.store.Filters().List(ctx, store.AllTeams())
	if err != nil {
		return nil, fmt.Errorf("builder: listing filters: %w", err)
	}
	filtersByID := make(map[model.FilterID]*model.Filter, len(allFilters))
	for _, f := range allFilters {
		filtersByID[f.ID] = f
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].Name < clusters[j].Name })
	sort.Slice(routeConfigs, func(i, j int) bool { return routeConfigs[i].Name < routeConfigs[j].Name })
	sort.Slice(listeners, func(i, j int) bool { return listeners[i].Name < listeners[j].Name })

	clusterVersion, err := b.store.Versions().Current(ctx, store.ResourceCluster)
	if err != nil {
		return nil, fmt.Errorf("builder: cluster version: %w", err)
	}
	routeVersion, err := b.store.Versions().Current(ctx, store.ResourceRouteConfig)
	if err != nil {
		return nil, fmt.Errorf("builder: route config version: %w", err)
	}
	listenerVersion, err := b.store.Versions().Current(ctx, store.ResourceListener)
	if err != nil {
		return nil, fmt.Errorf("builder: listener version: %w", err)
	}

	clusterResources := make([]types.Resource, 0, len(clusters))
	for _, c := range clusters {
		built, err := BuildCluster(c)
		if err != nil {
			return nil, err
		}
		clusterResources = append(clusterResources, built)
	}

	routeResources := make([]types.Resource, 0, len(routeConfigs))
	for _, rc := range routeConfigs {
		atts, err := b.store.Attachments().ListByRouteConfig(ctx, rc.ID)
		if err != nil {
			return nil, fmt.Errorf("builder: route config %q attachments: %w", rc.Name, err)
		}

		perRoute := inject.ResolveRouteFilters(rc, atts, filtersByID)
		built, err := BuildRouteConfig(rc, perRoute, b.converter)
		if err != nil {
			return nil, err
		}
		routeResources = append(routeResources, built)
	}

	byNode := make(map[string][]*model.Listener)
	for _, l := range listeners {
		byNode[l.DataplaneID] = append(byNode[l.DataplaneID], l)
	}

	snapshots := make(map[string]*cachev3.Snapshot, len(byNode))
	for node, nodeListeners := range byNode {
		listenerResources := make([]types.Resource, 0, len(nodeListeners))
		for _, l := range nodeListeners {
			scoped, err := b.store.Attachments().ListByScope(ctx, model.ScopeListener, string(l.ID))
			if err != nil {
				return nil, fmt.Errorf("builder: listener %q attachments: %w", l.Name, err)
			}
			attached := make([]*model.Filter, 0, len(scoped))
			for _, a := range scoped {
				if f, ok := filtersByID[a.FilterID]; ok {
					attached = append(attached, f)
				}
			}
			sort.Slice(attached, func(i, j int) bool { return attached[i].ID < attached[j].ID })
			inject.SyncListenerHTTPFilters(l, attached)

			built, err := BuildListener(l, b.converter, filtersByID)
			if err != nil {
				return nil, err
			}
			listenerResources = append(listenerResources, built)
		}

		snap, err := cachev3.NewSnapshot(
			fmt.Sprintf("c%d-r%d-l%d", clusterVersion, routeVersion, listenerVersion),
			map[resource.Type][]types.Resource{
				resource.ClusterType:  clusterResources,
				resource.RouteType:    routeResources,
				resource.ListenerType: listenerResources,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("builder: creating snapshot for node %q: %w", node, err)
		}
		if err := snap.Consistent(); err != nil {
			return nil, fmt.Errorf("builder: snapshot for node %q failed consistency check: %w", node, err)
		}
		snapshots[node] = snap
	}
	return snapshots, nil
}

package inject

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/model"
)

func listenerWithHCM(refs ...model.HTTPFilterRef) *model.Listener {
	return &model.Listener{
		ID:       model.NewListenerID(),
		Name:     "public",
		Address:  "0.0.0.0",
		Port:     8080,
		Protocol: model.ListenerTCP,
		Spec: model.ListenerSpec{
			FilterChains: []model.FilterChain{{
				Filters: []model.NetworkFilter{{
					Kind: model.NetworkFilterHCM,
					HCM:  &model.HTTPConnectionManager{RouteConfigName: "routes", HTTPFilters: refs},
				}},
			}},
		},
	}
}

func TestSyncListenerHTTPFilters_AddsMissing(t *testing.T) {
	l := listenerWithHCM()
	jwt := &model.Filter{ID: model.NewFilterID(), FilterType: model.FilterJwtAuth}

	modified := SyncListenerHTTPFilters(l, []*model.Filter{jwt})
	require.True(t, modified)
	require.True(t, ListenerHasFilter(l, jwt.ID))
}

func TestSyncListenerHTTPFilters_DropsStale(t *testing.T) {
	stale := model.NewFilterID()
	l := listenerWithHCM(model.HTTPFilterRef{FilterID: stale, FilterType: model.FilterJwtAuth})

	modified := SyncListenerHTTPFilters(l, nil)
	require.True(t, modified)
	require.False(t, ListenerHasFilter(l, stale))
}

func TestSyncListenerHTTPFilters_NoopWhenAlreadyInSync(t *testing.T) {
	jwt := &model.Filter{ID: model.NewFilterID(), FilterType: model.FilterJwtAuth}
	l := listenerWithHCM(model.HTTPFilterRef{FilterID: jwt.ID, FilterType: model.FilterJwtAuth})

	modified := SyncListenerHTTPFilters(l, []*model.Filter{jwt})
	require.False(t, modified, "re-syncing an already-consistent listener must be a no-op")
}

func TestSyncListenerHTTPFilters_DuplicateAttachedFilterCollapses(t *testing.T) {
	jwt := &model.Filter{ID: model.NewFilterID(), FilterType: model.FilterJwtAuth}
	l := listenerWithHCM()

	// Attach list contains the same filter ID twice; the resulting HCM
	// must still only carry one HTTPFilterRef for it.
	SyncListenerHTTPFilters(l, []*model.Filter{jwt, jwt})
	require.Len(t, l.Spec.HCMs()[0].HTTPFilters, 1)
}

func TestListenerHasFilter_FalseWhenAbsent(t *testing.T) {
	l := listenerWithHCM()
	require.False(t, ListenerHasFilter(l, model.NewFilterID()))
}

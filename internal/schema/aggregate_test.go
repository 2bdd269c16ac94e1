package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/store/memory"
)

func TestAggregator_Observe_FirstSampleCreatesRow(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	agg := NewAggregator(st.AggregatedSchemas())
	team := model.NewTeamID()

	err := agg.Observe(ctx, Sample{
		TeamID: team, Path: "/orders", HTTPMethod: "POST",
		RequestBody:  []byte(`{"id": 1}`),
		ResponseCode: 200,
		ResponseBody: []byte(`{"status": "ok"}`),
	})
	require.NoError(t, err)

	got, err := st.AggregatedSchemas().Get(ctx, team, "/orders", "POST")
	require.NoError(t, err)
	require.Equal(t, 1, got.SampleCount)
	require.Equal(t, 1, got.Version)
	require.Nil(t, got.PreviousVersionID)
}

func TestAggregator_Observe_NonBreakingWideningUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	agg := NewAggregator(st.AggregatedSchemas())
	team := model.NewTeamID()

	require.NoError(t, agg.Observe(ctx, Sample{
		TeamID: team, Path: "/orders", HTTPMethod: "POST",
		RequestBody: []byte(`{"id": 1}`), ResponseCode: 200, ResponseBody: []byte(`{}`),
	}))
	first, err := st.AggregatedSchemas().Get(ctx, team, "/orders", "POST")
	require.NoError(t, err)

	require.NoError(t, agg.Observe(ctx, Sample{
		TeamID: team, Path: "/orders", HTTPMethod: "POST",
		RequestBody: []byte(`{"id": 2, "note": "extra"}`), ResponseCode: 200, ResponseBody: []byte(`{}`),
	}))

	second, err := st.AggregatedSchemas().Get(ctx, team, "/orders", "POST")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID, "adding an optional field is non-breaking so the row must be updated in place, not forked")
	require.Equal(t, 2, second.SampleCount)
	require.Contains(t, second.RequestSchema.Properties, "note")
	require.NotContains(t, second.RequestSchema.Required, "note")
}

func TestAggregator_Observe_BreakingChangeForksVersion(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	agg := NewAggregator(st.AggregatedSchemas())
	team := model.NewTeamID()

	require.NoError(t, agg.Observe(ctx, Sample{
		TeamID: team, Path: "/orders", HTTPMethod: "POST",
		RequestBody: []byte(`{"id": 1}`), ResponseCode: 200, ResponseBody: []byte(`{}`),
	}))
	first, err := st.AggregatedSchemas().Get(ctx, team, "/orders", "POST")
	require.NoError(t, err)

	require.NoError(t, agg.Observe(ctx, Sample{
		TeamID: team, Path: "/orders", HTTPMethod: "POST",
		RequestBody: []byte(`{"id": "not-a-number-anymore"}`), ResponseCode: 200, ResponseBody: []byte(`{}`),
	}))

	second, err := st.AggregatedSchemas().Get(ctx, team, "/orders", "POST")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID, "a type change on a required field is breaking and must fork a new version")
	require.Equal(t, 2, second.Version)
	require.NotNil(t, second.PreviousVersionID)
	require.Equal(t, first.ID, *second.PreviousVersionID)
	require.NotEmpty(t, second.BreakingChanges)
}

func TestAggregator_Observe_SeparateResponseCodesTrackedIndependently(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	agg := NewAggregator(st.AggregatedSchemas())
	team := model.NewTeamID()

	require.NoError(t, agg.Observe(ctx, Sample{
		TeamID: team, Path: "/orders", HTTPMethod: "GET",
		ResponseCode: 200, ResponseBody: []byte(`{"id": 1}`),
	}))
	require.NoError(t, agg.Observe(ctx, Sample{
		TeamID: team, Path: "/orders", HTTPMethod: "GET",
		ResponseCode: 404, ResponseBody: []byte(`{"error": "not found"}`),
	}))

	got, err := st.AggregatedSchemas().Get(ctx, team, "/orders", "GET")
	require.NoError(t, err)
	require.Contains(t, got.ResponseSchemas, 200)
	require.Contains(t, got.ResponseSchemas, 404)
}

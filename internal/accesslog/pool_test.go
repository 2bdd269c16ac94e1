package accesslog

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/schema"
	"github.com/flowmesh/controlplane/internal/store/memory"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerPool_Submit_DropsWhenQueueFull(t *testing.T) {
	st := memory.New()
	p := NewWorkerPool(1, 1, st.LearningSessions(), schema.NewAggregator(st.AggregatedSchemas()), discardLog())

	require.True(t, p.Submit(Entry{Path: "/a"}))
	require.False(t, p.Submit(Entry{Path: "/b"}), "a second submit past queue capacity (with no consumer running) must be dropped")
	require.EqualValues(t, 1, p.Dropped())
}

func TestWorkerPool_Run_ProcessesMatchingEntryAndIncrementsSampleCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := memory.New()
	team := model.NewTeamID()
	sess := &model.LearningSession{
		ID: model.NewLearningSessionID(), TeamID: team, Status: model.SessionActive,
		TargetSampleCount: 100,
	}
	require.NoError(t, st.LearningSessions().Create(ctx, sess))

	p := NewWorkerPool(8, 2, st.LearningSessions(), schema.NewAggregator(st.AggregatedSchemas()), discardLog())
	go p.Run(ctx)

	require.True(t, p.Submit(Entry{
		LearningSessionID: sess.ID, Method: "GET", Path: "/orders",
		RequestBody: nil, ResponseStatus: 200, ResponseBody: []byte(`{"id": 1}`),
	}))

	require.Eventually(t, func() bool {
		got, err := st.LearningSessions().Get(ctx, sess.ID)
		return err == nil && got.CurrentSampleCount == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
}

func TestWorkerPool_Run_TransitionsToCompletingAtTarget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := memory.New()
	team := model.NewTeamID()
	sess := &model.LearningSession{
		ID: model.NewLearningSessionID(), TeamID: team, Status: model.SessionActive,
		TargetSampleCount: 1,
	}
	require.NoError(t, st.LearningSessions().Create(ctx, sess))

	p := NewWorkerPool(8, 1, st.LearningSessions(), schema.NewAggregator(st.AggregatedSchemas()), discardLog())
	go p.Run(ctx)

	require.True(t, p.Submit(Entry{
		LearningSessionID: sess.ID, Method: "GET", Path: "/orders",
		ResponseStatus: 200, ResponseBody: []byte(`{}`),
	}))

	require.Eventually(t, func() bool {
		got, err := st.LearningSessions().Get(ctx, sess.ID)
		return err == nil && got.Status == model.SessionCompleting
	}, time.Second, 5*time.Millisecond)

	cancel()
}

func TestWorkerPool_Run_IgnoresEntryForInactiveSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := memory.New()
	sess := &model.LearningSession{
		ID: model.NewLearningSessionID(), TeamID: model.NewTeamID(), Status: model.SessionPending,
		TargetSampleCount: 10,
	}
	require.NoError(t, st.LearningSessions().Create(ctx, sess))

	p := NewWorkerPool(8, 1, st.LearningSessions(), schema.NewAggregator(st.AggregatedSchemas()), discardLog())
	go p.Run(ctx)

	require.True(t, p.Submit(Entry{LearningSessionID: sess.ID, Method: "GET", Path: "/x", ResponseStatus: 200}))
	time.Sleep(50 * time.Millisecond)

	got, err := st.LearningSessions().Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Zero(t, got.CurrentSampleCount, "a non-active session must not accumulate samples")

	cancel()
}

func TestWorkerPool_Run_IgnoresEntryForUnknownSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := memory.New()
	p := NewWorkerPool(8, 1, st.LearningSessions(), schema.NewAggregator(st.AggregatedSchemas()), discardLog())
	go p.Run(ctx)

	require.True(t, p.Submit(Entry{LearningSessionID: model.NewLearningSessionID(), Method: "GET", Path: "/x"}))
	time.Sleep(50 * time.Millisecond) // must not panic or block

	cancel()
}

package xds

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowmesh/controlplane/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestPublisher_NotifyNow_RunsImmediately(t *testing.T) {
	var calls int32
	p := NewPublisher(&config.Config{XDSDebounce: time.Hour}, discardLogger(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, p.NotifyNow(context.Background()))
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestPublisher_Notify_DebouncesRapidFireCalls(t *testing.T) {
	var calls int32
	p := NewPublisher(&config.Config{XDSDebounce: 30 * time.Millisecond}, discardLogger(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	for i := 0; i < 5; i++ {
		p.Notify()
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 10*time.Millisecond, "rapid-fire Notify calls within the debounce window must coalesce into a single rebuild")
}

func TestPublisher_Notify_ZeroDebounceFiresImmediately(t *testing.T) {
	var calls int32
	p := NewPublisher(&config.Config{XDSDebounce: 0}, discardLogger(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	p.Notify()
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 5*time.Millisecond)
}

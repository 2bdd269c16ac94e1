package xds

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/flowmesh/controlplane/internal/config"
)

// Publisher coalesces rapid-fire store.Store.OnChange notifications into
// a single snapshot rebuild per debounce window (spec.md's batching
// requirement), the way a build system coalesces filesystem events
// rather than rebuilding on every single write.
type Publisher struct {
	debounce time.Duration
	rebuild  func(ctx context.Context) error
	log      *slog.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func NewPublisher(cfg *config.Config, log *slog.Logger, rebuild func(ctx context.Context) error) *Publisher {
	return &Publisher{
		debounce: cfg.XDSDebounce,
		rebuild:  rebuild,
		log:      log,
	}
}

// Notify schedules a rebuild after the debounce window, resetting the
// window if one is already pending. Safe to call concurrently and from
// store.Store.OnChange's callback, which may fire from any goroutine
// handling a mutating request.
func (p *Publisher) Notify() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce <= 0 {
		go p.fire()
		return
	}
	if p.timer != nil {
		p.timer.Reset(p.debounce)
		return
	}
	p.timer = time.AfterFunc(p.debounce, p.fire)
}

func (p *Publisher) fire() {
	p.mu.Lock()
	p.timer = nil
	p.mu.Unlock()

	if err := p.rebuild(context.Background()); err != nil {
		p.log.Error("xds snapshot rebuild failed", "error", err)
	}
}

// NotifyNow runs a rebuild immediately, bypassing the debounce window.
// Used once at startup after bootstrap seeding so the first snapshot is
// available before any proxy connects.
func (p *Publisher) NotifyNow(ctx context.Context) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()
	return p.rebuild(ctx)
}

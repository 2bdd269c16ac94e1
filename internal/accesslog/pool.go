package accesslog

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/flowmesh/controlplane/internal/model"
	"github.com/flowmesh/controlplane/internal/schema"
	"github.com/flowmesh/controlplane/internal/store"
)

// WorkerPool matches incoming Entries against active learning sessions
// and folds matched ones into internal/schema's Aggregator. The entry
// channel is bounded and fed with a non-blocking send: a full channel
// drops the entry and bumps Dropped rather than ever blocking the gRPC
// handler goroutine that received it from the wire.
type WorkerPool struct {
	entries    chan Entry
	sessions   store.LearningSessionRepository
	aggregator *schema.Aggregator
	log        *slog.Logger
	workers    int

	dropped atomic.Uint64
}

// NewWorkerPool builds a pool with queueSize-bounded backpressure and
// workers goroutines (runtime.NumCPU() when workers <= 0, the same
// num_cpus::get().max(1) default the Rust original used).
func NewWorkerPool(queueSize, workers int, sessions store.LearningSessionRepository, aggregator *schema.Aggregator, log *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		entries:    make(chan Entry, queueSize),
		sessions:   sessions,
		aggregator: aggregator,
		log:        log,
		workers:    workers,
	}
}

// Submit enqueues an entry without blocking. Returns false if the queue
// was full and the entry was dropped.
func (p *WorkerPool) Submit(e Entry) bool {
	select {
	case p.entries <- e:
		return true
	default:
		n := p.dropped.Add(1)
		p.log.Warn("access log queue full, dropping entry", "total_dropped", n)
		return false
	}
}

// Dropped returns the total number of entries dropped due to backpressure
// since the pool started.
func (p *WorkerPool) Dropped() uint64 { return p.dropped.Load() }

// Run spawns the worker goroutines and blocks until ctx is canceled, at
// which point workers drain whatever remains in the channel before
// returning — mirroring spawn_workers' drain-on-shutdown behavior.
func (p *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		workerID := i
		go func() {
			defer wg.Done()
			p.runWorker(ctx, workerID)
		}()
	}
	wg.Wait()
}

func (p *WorkerPool) runWorker(ctx context.Context, workerID int) {
	for {
		select {
		case e := <-p.entries:
			p.process(ctx, workerID, e)
		case <-ctx.Done():
			p.drain(workerID)
			return
		}
	}
}

func (p *WorkerPool) drain(workerID int) {
	drained := 0
	for {
		select {
		case e := <-p.entries:
			p.process(context.Background(), workerID, e)
			drained++
		default:
			p.log.Info("access log worker shutdown complete", "worker_id", workerID, "drained_entries", drained)
			return
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, workerID int, e Entry) {
	session, err := p.sessions.Get(ctx, e.LearningSessionID)
	if err != nil {
		p.log.Debug("access log entry references unknown session", "worker_id", workerID, "session_id", e.LearningSessionID)
		return
	}
	if session.Status != model.SessionActive {
		return
	}
	if !session.Matches(e.Method) {
		return
	}

	count, err := p.sessions.IncrementSample(ctx, session.ID)
	if err != nil {
		p.log.Error("incrementing sample count failed", "worker_id", workerID, "error", err)
		return
	}

	if err := p.aggregator.Observe(ctx, schema.Sample{
		TeamID:       session.TeamID,
		Path:         e.Path,
		HTTPMethod:   e.Method,
		RequestBody:  e.RequestBody,
		ResponseCode: e.ResponseStatus,
		ResponseBody: e.ResponseBody,
	}); err != nil {
		p.log.Error("schema aggregation failed", "worker_id", workerID, "error", err)
		return
	}

	if count >= session.TargetSampleCount && session.Status.CanTransition(model.SessionCompleting) {
		session.Status = model.SessionCompleting
		if err := p.sessions.Update(ctx, session); err != nil {
			p.log.Error("transitioning session to completing failed", "worker_id", workerID, "error", err)
		}
	}
}

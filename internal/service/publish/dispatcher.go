package publish

import (
	"context"
	"log/slog"

	"folio/internal/jobs"
)

// Dispatcher runs queued builds on the worker pool.
type Dispatcher struct {
	pool         *jobs.Pool
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(pool *jobs.Pool, orchestrator *Orchestrator, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{pool: pool, orchestrator: orchestrator, logger: logger}
}

var _ jobs.Enqueuer = (*Dispatcher)(nil)

// Enqueue schedules buildID. Running the same id twice is harmless: only the
// worker that claims the queued build executes it.
func (d *Dispatcher) Enqueue(buildID string) error {
	return d.pool.Submit(func(ctx context.Context) error {
		return d.orchestrator.Run(ctx, buildID)
	})
}

// SyncQueue runs builds inline. Used by tests and the seed command.
type SyncQueue struct {
	Orchestrator *Orchestrator
}

func (q *SyncQueue) Enqueue(buildID string) error {
	return q.Orchestrator.Run(context.Background(), buildID)
}

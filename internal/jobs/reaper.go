package jobs

import (
	"context"
	"log/slog"
	"time"

	publishRepo "folio/internal/domain/repositories/publish"

	"github.com/robfig/cron/v3"
)

// TimeoutMessage is recorded on builds the reaper fails.
const TimeoutMessage = "build timed out"

// Enqueuer hands a queued build to a worker.
type Enqueuer interface {
	Enqueue(buildID string) error
}

// Reaper fails builds stuck in running past the timeout and re-enqueues
// builds left queued, e.g. by a restart or a full queue.
type Reaper struct {
	builds  publishRepo.BuildRepository
	queue   Enqueuer
	timeout time.Duration
	cron    *cron.Cron
	logger  *slog.Logger
	now     func() time.Time
}

// NewReaper creates a reaper. It does nothing until Start.
func NewReaper(builds publishRepo.BuildRepository, queue Enqueuer, timeout time.Duration, logger *slog.Logger) *Reaper {
	return &Reaper{
		builds:  builds,
		queue:   queue,
		timeout: timeout,
		cron:    cron.New(),
		logger:  logger,
		now:     time.Now,
	}
}

// Start runs a sweep every minute.
func (r *Reaper) Start() error {
	_, err := r.cron.AddFunc("* * * * *", func() {
		r.Sweep(context.Background())
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("reaper started", "timeout", r.timeout)
	return nil
}

// Stop waits for a running sweep to finish.
func (r *Reaper) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("reaper stopped")
}

// Sweep performs one pass and reports how many builds were failed and requeued.
func (r *Reaper) Sweep(ctx context.Context) (failed, requeued int) {
	now := r.now().UTC()

	stale, err := r.builds.ListStale(ctx, now.Add(-r.timeout))
	if err != nil {
		r.logger.Error("failed to list stale builds", "error", err)
	}
	for _, b := range stale {
		ok, err := r.builds.MarkFailed(ctx, b.ID, TimeoutMessage, now)
		if err != nil {
			r.logger.Error("failed to time out build", "build_id", b.ID, "error", err)
			continue
		}
		if !ok {
			// finished between the listing and the update
			continue
		}
		r.logger.Warn("build timed out", "build_id", b.ID, "site_id", b.SiteID, "started_at", b.StartedAt)
		failed++
	}

	queued, err := r.builds.ListQueued(ctx)
	if err != nil {
		r.logger.Error("failed to list queued builds", "error", err)
		return failed, requeued
	}
	for _, b := range queued {
		if err := r.queue.Enqueue(b.ID); err != nil {
			r.logger.Warn("failed to requeue build", "build_id", b.ID, "error", err)
			continue
		}
		requeued++
	}
	if failed > 0 || requeued > 0 {
		r.logger.Info("reaper sweep", "failed", failed, "requeued", requeued)
	}
	return failed, requeued
}

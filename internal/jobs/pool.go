// Package jobs runs background work: the build worker pool and the
// scheduled reaper for stuck or orphaned builds.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	// ErrQueueFull is returned by Submit when the queue buffer is exhausted.
	ErrQueueFull = errors.New("job queue full")
	// ErrPoolClosed is returned by Submit after Shutdown.
	ErrPoolClosed = errors.New("job pool closed")
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

// Pool runs tasks on a fixed number of workers fed by a buffered queue.
type Pool struct {
	tasks   chan Task
	wg      sync.WaitGroup
	mu      sync.RWMutex // guards closing against concurrent sends
	closing atomic.Bool
	logger  *slog.Logger
}

// NewPool starts size workers with room for queueSize pending tasks.
func NewPool(size, queueSize int, logger *slog.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		tasks:  make(chan Task, queueSize),
		logger: logger,
	}
	for range size {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	if err := task(context.Background()); err != nil {
		p.logger.Error("job failed", "error", err)
	}
}

// Submit queues t without blocking.
func (p *Pool) Submit(t Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closing.Load() {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- t:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish or ctx
// to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closing.Swap(true) {
		close(p.tasks)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
}

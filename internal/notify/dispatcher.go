// Package notify runs best-effort side effects (mail, analytics, events)
// outside the request that triggered them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher feeds jobs from a bounded queue to a fixed pool of workers.
// A job's failure or panic is logged and never reaches the caller.
type Dispatcher struct {
	jobs    chan Job
	workers int
	timeout time.Duration
	log     *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool
	g       errgroup.Group
}

func NewDispatcher(workers, buffer int, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		jobs:    make(chan Job, buffer),
		workers: workers,
		timeout: timeout,
		log:     log.With("component", "notify.dispatcher"),
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.g.Go(func() error {
			for j := range d.jobs {
				d.run(j)
			}
			return nil
		})
	}
}

// Enqueue never blocks. It reports false when the queue is full or the
// dispatcher is shutting down; the job is dropped in that case.
func (d *Dispatcher) Enqueue(j Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.log.Warn("job_dropped", "job", j.Name, "reason", "dispatcher closed")
		return false
	}
	select {
	case d.jobs <- j:
		return true
	default:
		d.log.Warn("job_dropped", "job", j.Name, "reason", "queue full")
		return false
	}
}

// Shutdown stops accepting jobs and waits for the queued ones to finish or for
// ctx to expire, whichever comes first.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.jobs)
	started := d.started
	d.mu.Unlock()

	if !started {
		for j := range d.jobs {
			d.log.Warn("job_dropped", "job", j.Name, "reason", "dispatcher never started")
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = d.g.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) run(j Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("job_panic", "job", j.Name, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
		}
	}()

	if err := j.Run(ctx); err != nil {
		d.log.Error("job_error", "job", j.Name, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return
	}
	d.log.Debug("job_done", "job", j.Name, "duration_ms", time.Since(start).Milliseconds())
}

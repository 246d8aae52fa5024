// Package async serializes pipeline runs requested by the watcher.
package async

import (
	"context"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"
)

// Request asks for one full run over the input directory.
type Request struct {
	Reason      string
	SubmittedAt time.Time
	TraceID     string
}

// RunFunc performs one run; its error is logged by the queue.
type RunFunc func(ctx context.Context, req Request) error

type Queue interface {
	Enqueue(ctx context.Context, req Request) error
	Shutdown(ctx context.Context)
}

// RunQueue executes requests one at a time. Requests that arrive while a run
// is already waiting are merged into it: a run always re-lists the folder,
// so one pending run covers every file that showed up in the meantime.
type RunQueue struct {
	run     RunFunc
	logger  *slog.Logger
	timeout time.Duration

	ch     chan Request
	wg     sync.WaitGroup
	once   sync.Once
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	merged  int
	handled int
}

type Option func(*RunQueue)

// WithRunTimeout bounds a single run. Zero means no limit.
func WithRunTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRunQueue(run RunFunc, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &RunQueue{
		run:    run,
		logger: logger,
		ch:     make(chan Request, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Debug("queue.worker.started")

			for req := range q.ch {
				ctx, cancel := q.ctx, context.CancelFunc(func() {})
				if q.timeout > 0 {
					ctx, cancel = context.WithTimeout(q.ctx, q.timeout)
				}
				start := time.Now()
				err := q.run(ctx, req)
				cancel()

				q.mu.Lock()
				q.handled++
				q.mu.Unlock()

				if err != nil {
					q.logger.Error("queue.run.failed", "trace_id", req.TraceID, "reason", req.Reason, "error", err)
				} else {
					q.logger.Info("queue.run.done", "trace_id", req.TraceID, "reason", req.Reason,
						"elapsed_ms", time.Since(start).Milliseconds())
				}
			}
			q.logger.Debug("queue.worker.stopped")
		}()
	})
}

// Enqueue schedules a run unless one is already pending. It never blocks.
func (q *RunQueue) Enqueue(_ context.Context, req Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.closed", "reason", req.Reason)
		return nil
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = time.Now()
	}
	if req.TraceID == "" {
		req.TraceID = uuid.New().String()
	}
	select {
	case q.ch <- req:
		q.logger.Debug("queue.enqueued", "trace_id", req.TraceID, "reason", req.Reason)
	default:
		q.merged++
		q.logger.Debug("queue.merged", "reason", req.Reason)
	}
	return nil
}

// Stats reports finished runs and requests folded into a pending one.
func (q *RunQueue) Stats() (handled, merged int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.handled, q.merged
}

// Shutdown stops accepting requests and waits for the current run. If ctx
// ends first the running pipeline is cancelled.
func (q *RunQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
		q.cancel()
		<-done
	case <-done:
		q.logger.Info("queue.shutdown.complete")
	}
	q.cancel()
}

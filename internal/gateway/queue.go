package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrQueueFull is returned when the reply lane cannot take another run.
	ErrQueueFull = errors.New("reply queue full")
	// ErrQueueStopped is returned by Enqueue before Start or after Stop.
	ErrQueueStopped = errors.New("reply queue not running")
)

const laneSize = 100

// Queue runs replies one after another on a single FIFO lane. The
// semaphore bounds how many processors may run at once; the chat uses one.
type Queue struct {
	lane      chan *Run
	semaphore *semaphore.Weighted
	processor func(*Run)

	mu          sync.Mutex
	outstanding []*Run
	started     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue creates a Queue that allows up to maxConcurrent processors.
func NewQueue(maxConcurrent int64) *Queue {
	return &Queue{
		lane:      make(chan *Run, laneSize),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// SetProcessor sets the function invoked for each dequeued Run.
func (q *Queue) SetProcessor(fn func(*Run)) {
	q.processor = fn
}

// Start launches the lane goroutine. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.wg.Add(1)
	go q.processLane()
}

// Stop cancels every outstanding run and waits for the lane to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Enqueue appends run to the lane and gives it a context derived from the
// queue's.
func (q *Queue) Enqueue(run *Run) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.started || q.ctx.Err() != nil {
		return ErrQueueStopped
	}

	run.ctx, run.cancel = context.WithCancel(q.ctx)
	select {
	case q.lane <- run:
		q.outstanding = append(q.outstanding, run)
		return nil
	default:
		run.cancel()
		return ErrQueueFull
	}
}

// Pending returns the number of runs queued or in flight.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.outstanding)
}

// CancelAll cancels every queued and in-flight run.
func (q *Queue) CancelAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, run := range q.outstanding {
		run.Cancel()
	}
	return len(q.outstanding)
}

func (q *Queue) done(run *Run) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, r := range q.outstanding {
		if r == run {
			q.outstanding = append(q.outstanding[:i], q.outstanding[i+1:]...)
			break
		}
	}
	run.cancel()
}

// processLane drains the lane in order, holding a semaphore slot while
// each run is processed.
func (q *Queue) processLane() {
	defer q.wg.Done()
	for {
		select {
		case run := <-q.lane:
			if run.Cancelled() {
				run.finish(RunStatusCancelled, run.ctx.Err())
				slog.Debug("skipping cancelled run", "run_id", string(run.ID))
				q.done(run)
				continue
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				q.done(run)
				q.drain()
				return
			}
			if q.processor != nil {
				q.processor(run)
			}
			q.semaphore.Release(1)
			q.done(run)
		case <-q.ctx.Done():
			q.drain()
			return
		}
	}
}

// drain marks whatever is left on the lane cancelled after shutdown.
func (q *Queue) drain() {
	for {
		select {
		case run := <-q.lane:
			run.finish(RunStatusCancelled, q.ctx.Err())
			q.done(run)
		default:
			return
		}
	}
}

// WaitIdle blocks until no runs are queued or in flight, or the timeout
// expires. Returns true if idle, false if timed out.
func (q *Queue) WaitIdle(timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if q.Pending() == 0 {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-time.After(10 * time.Millisecond):
		}
	}
}

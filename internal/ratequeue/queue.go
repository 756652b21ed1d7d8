// Package ratequeue provides a shared FIFO scheduler that throttles outbound
// provider calls to a fixed rate. Upstream price and metadata providers
// enforce hard per-second request caps and temporarily ban violators, so this
// queue is the sole gate on provider calls across all sweeps.
package ratequeue

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the default spacing between item starts.
const DefaultMinInterval = 250 * time.Millisecond

// ErrClosed is returned by Do when the queue has been closed.
var ErrClosed = errors.New("queue closed")

// Queue serializes work items so that no two begin execution closer together
// than the configured minimum interval, regardless of how many producers
// enqueue concurrently. Processing is strictly FIFO; a single drainer runs at
// a time, and enqueuing while draining simply extends the work list.
type Queue struct {
	limiter *rate.Limiter
	logger  *log.Logger

	mu       sync.Mutex
	items    []func()
	draining bool
	closed   bool

	base   context.Context
	cancel context.CancelFunc
	idle   sync.WaitGroup // tracks the active drainer
}

// New creates a queue with the given minimum interval between item starts.
func New(minInterval time.Duration, logger *log.Logger) *Queue {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	if logger == nil {
		logger = log.Default()
	}

	base, cancel := context.WithCancel(context.Background())
	return &Queue{
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		logger:  logger,
		base:    base,
		cancel:  cancel,
	}
}

// Enqueue appends a work item and reports whether it was accepted. The item
// runs asynchronously in FIFO order; a panicking item is recovered and logged
// so the queue keeps draining. A closed queue accepts nothing.
func (q *Queue) Enqueue(fn func()) bool {
	if fn == nil {
		return false
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, fn)
	start := !q.draining
	if start {
		q.draining = true
		q.idle.Add(1)
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
	return true
}

// Do enqueues fn and blocks until it has run, ctx is done, or the queue is
// closed. The context is also passed to fn so callers keep their per-call
// timeouts. Returns ErrClosed when the queue will never run the item.
func (q *Queue) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	accepted := q.Enqueue(func() {
		// The caller may have given up while we waited in line.
		if ctx.Err() != nil {
			done <- ctx.Err()
			return
		}
		done <- fn(ctx)
	})
	if !accepted {
		return ErrClosed
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-q.base.Done():
		// Close dropped the pending items; done will never be written.
		return ErrClosed
	}
}

// Len returns the number of queued items not yet started.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close stops the queue. Pending items are dropped; an in-flight item
// finishes naturally. Close blocks until the drainer has exited.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	q.cancel()
	q.idle.Wait()
}

// drain pops items FIFO, pacing each start through the limiter.
// Exactly one drainer runs at a time.
func (q *Queue) drain() {
	defer q.idle.Done()

	for {
		q.mu.Lock()
		if q.closed || len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		fn := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		if err := q.limiter.Wait(q.base); err != nil {
			// Queue closed while waiting for a slot.
			return
		}

		q.run(fn)
	}
}

// run executes one item, isolating failures from the rest of the queue.
func (q *Queue) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Printf("[ratequeue] work item panicked: %v", r)
		}
	}()
	fn()
}

package ratequeue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := New(time.Millisecond, nil)
	defer q.Close()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		q.Enqueue(func() {
			defer wg.Done()
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("item %d ran out of order: got %d", i, got)
		}
	}
}

func TestQueue_MinimumSpacing(t *testing.T) {
	const (
		n        = 5
		interval = 50 * time.Millisecond
	)

	q := New(interval, nil)
	defer q.Close()

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < n; i++ {
		wg.Add(1)
		q.Enqueue(func() { wg.Done() })
	}

	wg.Wait()
	elapsed := time.Since(start)

	// N items at minimum interval T must take at least (N-1)*T wall clock.
	if min := time.Duration(n-1) * interval; elapsed < min {
		t.Errorf("drained %d items in %v, want >= %v", n, elapsed, min)
	}
}

func TestQueue_PanicDoesNotAbortQueue(t *testing.T) {
	q := New(time.Millisecond, nil)
	defer q.Close()

	var ran atomic.Bool
	var wg sync.WaitGroup

	q.Enqueue(func() { panic("boom") })

	wg.Add(1)
	q.Enqueue(func() {
		ran.Store(true)
		wg.Done()
	})

	wg.Wait()
	if !ran.Load() {
		t.Error("item after panicking item never ran")
	}
}

func TestQueue_Do(t *testing.T) {
	q := New(time.Millisecond, nil)
	defer q.Close()

	want := errors.New("provider down")
	err := q.Do(context.Background(), func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("Do returned %v, want %v", err, want)
	}
}

func TestQueue_DoRespectsContext(t *testing.T) {
	q := New(time.Hour, nil) // pace so slow the second item cannot start
	defer q.Close()

	q.Enqueue(func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := q.Do(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do returned %v, want deadline exceeded", err)
	}
}

func TestQueue_DoAfterCloseReturnsErrClosed(t *testing.T) {
	q := New(time.Millisecond, nil)
	q.Close()

	// Must fail fast even with a context that never fires.
	err := q.Do(context.Background(), func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Do after Close returned %v, want ErrClosed", err)
	}
}

func TestQueue_DoUnblocksOnClose(t *testing.T) {
	q := New(time.Hour, nil) // pace so slow the second item cannot start

	q.Enqueue(func() {})

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Do(context.Background(), func(ctx context.Context) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond) // let Do join the queue
	q.Close()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Do returned %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do still blocked after Close")
	}
}

func TestQueue_EnqueueWhileDraining(t *testing.T) {
	q := New(time.Millisecond, nil)
	defer q.Close()

	var count atomic.Int32
	var wg sync.WaitGroup

	wg.Add(2)
	q.Enqueue(func() {
		count.Add(1)
		// Extend the work list mid-drain.
		q.Enqueue(func() {
			count.Add(1)
			wg.Done()
		})
		wg.Done()
	})

	wg.Wait()
	if got := count.Load(); got != 2 {
		t.Errorf("processed %d items, want 2", got)
	}
}

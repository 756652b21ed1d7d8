// Package sweep runs periodic maintenance jobs on fixed intervals.
package sweep

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job is one unit of periodic work. The context is cancelled when the
// scheduler stops.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler runs registered jobs on their intervals. A tick that arrives
// while the previous run of the same job is still in flight is skipped, so a
// slow job never stacks up behind itself.
type Scheduler struct {
	jobs   []Job
	logger *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler for the given jobs.
func NewScheduler(jobs []Job, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{jobs: jobs, logger: logger}
}

// Start launches one ticker goroutine per job. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.runJob(runCtx, job)
	}
}

// Stop cancels all jobs and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	var inFlight sync.Mutex
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !inFlight.TryLock() {
				s.logger.Printf("[sweep] %s still running, skipping tick", job.Name)
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer inFlight.Unlock()
				if err := job.Run(ctx); err != nil && ctx.Err() == nil {
					s.logger.Printf("[sweep] %s: %v", job.Name, err)
				}
			}()
		}
	}
}

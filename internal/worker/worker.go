// Package worker runs the single consumer that drains the job queue, calls the
// ranking API and replies to the user.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/rankbot/internal/domain"
)

// Dequeuer is the consumer side of the job queue
type Dequeuer interface {
	Dequeue(ctx context.Context) (*domain.Job, error)
}

// Lookup fetches ranking results for a keyword
type Lookup interface {
	Lookup(ctx context.Context, action domain.Action, keyword string) (*domain.LookupResult, error)
}

// StatusTracker records job state transitions
type StatusTracker interface {
	Processing(job *domain.Job)
	Delivered(jobID string)
	Failed(jobID, reason string)
}

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	Queue        Dequeuer
	Lookup       Lookup
	Replier      domain.Replier
	Tracker      StatusTracker
	PollInterval time.Duration
	JobTimeout   time.Duration
}

// Worker represents the background job worker
type Worker struct {
	logger       *slog.Logger
	queue        Dequeuer
	lookup       Lookup
	replier      domain.Replier
	tracker      StatusTracker
	pollInterval time.Duration
	jobTimeout   time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	w := &Worker{
		logger:       cfg.Logger,
		queue:        cfg.Queue,
		lookup:       cfg.Lookup,
		replier:      cfg.Replier,
		tracker:      cfg.Tracker,
		pollInterval: cfg.PollInterval,
		jobTimeout:   cfg.JobTimeout,
		stopChan:     make(chan struct{}),
	}
	if w.pollInterval <= 0 {
		w.pollInterval = time.Second
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = 15 * time.Second
	}
	if w.tracker == nil {
		w.tracker = noopTracker{}
	}
	return w
}

// Start processes jobs one at a time until ctx is canceled, Stop is called
// or the queue is closed. A job that has been dequeued always runs to completion.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.Duration("poll_interval", w.pollInterval),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	w.wg.Add(1)
	defer w.wg.Done()

	for {
		if loopCtx.Err() != nil {
			w.logger.Info("Worker context canceled, stopping...")
			return nil
		}

		job, err := w.nextJob(loopCtx)
		if err != nil {
			if errors.Is(err, domain.ErrQueueClosed) {
				w.logger.Info("Queue closed, stopping worker")
				return nil
			}
			continue
		}
		if job == nil {
			continue
		}

		w.runJob(loopCtx, job)
	}
}

// Stop signals the loop to exit and waits for the in-flight job
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

type noopTracker struct{}

func (noopTracker) Processing(*domain.Job) {}
func (noopTracker) Delivered(string)       {}
func (noopTracker) Failed(string, string)  {}

package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/rankbot/internal/domain"
)

// nextJob waits at most one poll interval for a job.
// It returns (nil, nil) when the wait ends without a usable job.
func (w *Worker) nextJob(ctx context.Context) (*domain.Job, error) {
	pollCtx, cancel := context.WithTimeout(ctx, w.pollInterval)
	defer cancel()

	job, err := w.queue.Dequeue(pollCtx)
	if err == nil {
		w.logger.Debug("Worker received job",
			slog.String("job_id", job.ID),
			slog.String("action", string(job.Action)),
		)
		return job, nil
	}

	switch {
	case errors.Is(err, domain.ErrQueueClosed):
		return nil, err

	case ctx.Err() != nil:
		return nil, ctx.Err()

	case errors.Is(err, context.DeadlineExceeded):
		// idle poll
		return nil, nil

	case errors.Is(err, domain.ErrMalformedJob):
		w.logger.Warn("Discarding malformed job",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	// backend unavailable: back off one interval instead of spinning
	w.logger.Error("Failed to dequeue job",
		slog.String("error", err.Error()),
		slog.Duration("retry_after", w.pollInterval),
	)

	select {
	case <-time.After(w.pollInterval):
	case <-ctx.Done():
	}

	return nil, nil
}

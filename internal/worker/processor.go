package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/rankbot/internal/domain"
)

// runJob processes one job. Nothing a job does escapes this call.
func (w *Worker) runJob(ctx context.Context, job *domain.Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Recovered from panic while processing job",
				slog.String("job_id", job.ID),
				slog.Any("panic", r),
			)
			w.tracker.Failed(job.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	w.processJob(ctx, job)
}

// processJob runs the lookup under the job deadline and delivers the reply.
// The job context is detached from ctx so shutdown never abandons a dequeued job.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) {
	w.logger.Info("Processing job",
		slog.String("job_id", job.ID),
		slog.String("action", string(job.Action)),
		slog.String("keyword", job.Keyword),
	)

	w.tracker.Processing(job)
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.jobTimeout)
	result, err := w.executeJob(jobCtx, job)
	cancel()

	var reply, failure string
	switch {
	case err == nil:
		reply = domain.FormatReply(job, result)

	case errors.Is(err, domain.ErrNoResults):
		w.logger.Info("Lookup returned no results",
			slog.String("job_id", job.ID),
			slog.String("keyword", job.Keyword),
		)
		reply = domain.MessageNoResults
		failure = err.Error()

	default:
		w.logger.Error("Job execution failed",
			slog.String("job_id", job.ID),
			slog.String("keyword", job.Keyword),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		reply = domain.MessageFailure
		failure = err.Error()
	}

	// the lookup may have used the whole deadline; delivery gets its own
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.jobTimeout)
	defer cancel()

	if err := w.replier.Reply(replyCtx, job.Target, reply); err != nil {
		w.logger.Error("Failed to deliver reply, dropping",
			slog.String("job_id", job.ID),
			slog.Int64("chat_id", job.Target.ChatID),
			slog.String("error", err.Error()),
		)
		w.tracker.Failed(job.ID, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err).Error())
		return
	}

	if failure != "" {
		w.tracker.Failed(job.ID, failure)
		return
	}

	w.tracker.Delivered(job.ID)
	w.logger.Info("Job completed successfully",
		slog.String("job_id", job.ID),
		slog.Int("entries", len(result.Top(domain.MaxResults))),
		slog.Duration("elapsed", time.Since(start)),
	)
}

// executeJob calls the ranking API, converting a panic into a lookup failure
func (w *Worker) executeJob(ctx context.Context, job *domain.Job) (result *domain.LookupResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Recovered from panic in lookup",
				slog.String("job_id", job.ID),
				slog.Any("panic", r),
			)
			result = nil
			err = fmt.Errorf("%w: panic: %v", domain.ErrLookupFailed, r)
		}
	}()

	return w.lookup.Lookup(ctx, job.Action, job.Keyword)
}

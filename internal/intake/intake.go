// Package intake turns chat commands into queued jobs. It validates the
// keyword, acknowledges the user and hands the job to the queue without ever
// waiting on the ranking API.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/google/uuid"
)

// Enqueuer is the producer side of the job queue
type Enqueuer interface {
	Enqueue(ctx context.Context, job *domain.Job) error
}

// Recorder tracks job state
type Recorder interface {
	Queued(job *domain.Job)
	Failed(jobID, reason string)
}

// Config holds intake dependencies
type Config struct {
	Logger   *slog.Logger
	Queue    Enqueuer
	Replier  domain.Replier
	Recorder Recorder
}

// Intake accepts keyword requests
type Intake struct {
	logger   *slog.Logger
	queue    Enqueuer
	replier  domain.Replier
	recorder Recorder
	now      func() time.Time
}

// New creates a new intake
func New(cfg *Config) *Intake {
	return &Intake{
		logger:   cfg.Logger,
		queue:    cfg.Queue,
		replier:  cfg.Replier,
		recorder: cfg.Recorder,
		now:      time.Now,
	}
}

// Submit joins the command arguments into a keyword and submits it
func (i *Intake) Submit(ctx context.Context, target domain.ReplyTarget, action domain.Action, args []string) (*domain.Job, error) {
	return i.SubmitKeyword(ctx, target, action, strings.Join(args, " "))
}

// SubmitKeyword validates the keyword, acknowledges the request and enqueues a job.
//
// An empty keyword gets exactly one usage reply and ErrEmptyKeyword. If the
// acknowledgment cannot be delivered the request is dropped.
func (i *Intake) SubmitKeyword(ctx context.Context, target domain.ReplyTarget, action domain.Action, keyword string) (*domain.Job, error) {
	keyword = strings.Join(strings.Fields(keyword), " ")

	if keyword == "" {
		if err := i.replier.Reply(ctx, target, domain.UsageMessage(action)); err != nil {
			i.logger.Warn("Failed to send usage reply",
				slog.Int64("chat_id", target.ChatID),
				slog.String("error", err.Error()),
			)
		}
		return nil, domain.ErrEmptyKeyword
	}

	if err := i.replier.Reply(ctx, target, domain.MessageProcessing); err != nil {
		i.logger.Error("Failed to acknowledge request, dropping",
			slog.Int64("chat_id", target.ChatID),
			slog.String("keyword", keyword),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
	}

	job := &domain.Job{
		ID:        uuid.New().String(),
		Target:    target,
		Action:    action,
		Keyword:   keyword,
		CreatedAt: i.now().UTC(),
	}

	// recorded first so the worker never sees a job the tracker does not know
	if i.recorder != nil {
		i.recorder.Queued(job)
	}

	if err := i.queue.Enqueue(ctx, job); err != nil {
		if i.recorder != nil {
			i.recorder.Failed(job.ID, err.Error())
		}
		i.logger.Error("Failed to enqueue job",
			slog.String("job_id", job.ID),
			slog.String("keyword", keyword),
			slog.String("error", err.Error()),
		)
		if replyErr := i.replier.Reply(ctx, target, domain.MessageFailure); replyErr != nil {
			i.logger.Warn("Failed to send failure reply",
				slog.String("job_id", job.ID),
				slog.String("error", replyErr.Error()),
			)
		}
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	i.logger.Info("Job queued",
		slog.String("job_id", job.ID),
		slog.String("action", string(job.Action)),
		slog.String("keyword", job.Keyword),
		slog.Int64("chat_id", target.ChatID),
	)

	return job, nil
}

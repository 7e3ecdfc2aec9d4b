package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/cuongbtq/rankbot/internal/tracker"
)

// JobStore reads tracked job state
type JobStore interface {
	Get(jobID string) (tracker.Record, error)
	List(filter tracker.Filter) []tracker.Record
	Stats() tracker.Stats
}

// KeywordSubmitter queues a keyword lookup
type KeywordSubmitter interface {
	SubmitKeyword(ctx context.Context, target domain.ReplyTarget, action domain.Action, keyword string) (*domain.Job, error)
}

// QueueInfo reports on the job queue
type QueueInfo interface {
	Len(ctx context.Context) (int, error)
	Backend() string
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger *slog.Logger
	Jobs   JobStore
	Intake KeywordSubmitter
	Queue  QueueInfo
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger *slog.Logger
	jobs   JobStore
	intake KeywordSubmitter
	queue  QueueInfo
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		jobs:   deps.Jobs,
		intake: deps.Intake,
		queue:  deps.Queue,
	}
}

// Package queue provides the FIFO that connects request intake to the job
// worker. Every backend accepts concurrent producers and serves a single
// consumer in arrival order.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/rankbot/internal/domain"
)

// Queue is the job queue shared by intake and worker.
//
// Dequeue blocks until a job is available, the context is done, or the queue
// is closed. Implementations wake a waiting consumer when a producer appends
// rather than relying on a fixed sleep.
type Queue interface {
	Enqueue(ctx context.Context, job *domain.Job) error
	Dequeue(ctx context.Context) (*domain.Job, error)
	Len(ctx context.Context) (int, error)
	Backend() string
	Close() error
}

// Encode serialises a job for broker backends
func Encode(job *domain.Job) ([]byte, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job: %w", err)
	}
	return body, nil
}

// Decode parses a broker message back into a job
func Decode(body []byte) (*domain.Job, error) {
	var job domain.Job
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedJob, err)
	}

	if job.ID == "" || job.Keyword == "" {
		return nil, fmt.Errorf("%w: missing id or keyword", domain.ErrMalformedJob)
	}

	if _, err := domain.ParseAction(string(job.Action)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedJob, err)
	}

	return &job, nil
}

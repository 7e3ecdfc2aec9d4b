package queue

import (
	"context"
	"sync"

	"github.com/cuongbtq/rankbot/internal/domain"
)

// Memory is an unbounded in-process FIFO guarded by a mutex.
// A one-slot notify channel wakes the consumer on every append.
type Memory struct {
	mu     sync.Mutex
	items  []*domain.Job
	notify chan struct{}
	done   chan struct{}
	closed bool
}

// NewMemory creates an empty in-memory queue
func NewMemory() *Memory {
	return &Memory{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Enqueue appends a job to the tail of the queue
func (q *Memory) Enqueue(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.ErrQueueClosed
	}
	q.items = append(q.items, job)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}

	return nil
}

// Dequeue removes and returns the head of the queue, waiting for a producer if it is empty
func (q *Memory) Dequeue(ctx context.Context) (*domain.Job, error) {
	for {
		if job, ok, err := q.pop(); err != nil || ok {
			return job, err
		}

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *Memory) pop() (*domain.Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		if q.closed {
			return nil, false, domain.ErrQueueClosed
		}
		return nil, false, nil
	}

	job := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	if len(q.items) == 0 {
		// drop the drained backing array
		q.items = nil
	}

	return job, true, nil
}

// Len returns the number of queued jobs
func (q *Memory) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}

// Backend names the queue implementation
func (q *Memory) Backend() string {
	return "memory"
}

// Close rejects further appends. Jobs already queued can still be dequeued.
func (q *Memory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

// Package tracker keeps a bounded in-memory record of recent jobs and their
// position in the QUEUED -> PROCESSING -> DELIVERED|FAILED state machine.
// Nothing survives a restart.
package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/rankbot/internal/domain"
)

// Record is the tracked state of one job
type Record struct {
	Job       domain.Job
	Status    string
	Error     string
	UpdatedAt time.Time
}

// Stats counts jobs per status since startup
type Stats struct {
	Queued     int64 `json:"queued"`
	Processing int64 `json:"processing"`
	Delivered  int64 `json:"delivered"`
	Failed     int64 `json:"failed"`
	Tracked    int   `json:"tracked"`
}

// Filter selects records in List
type Filter struct {
	Status string
	Action domain.Action
	ChatID int64
	// Before excludes records at or after this cursor position
	Before *Cursor
	Limit  int
}

// Cursor is a position in the newest-first ordering
type Cursor struct {
	CreatedAt time.Time
	JobID     string
}

// Tracker is safe for concurrent use
type Tracker struct {
	mu       sync.RWMutex
	records  map[string]*Record
	order    []string // insertion order, oldest first
	capacity int
	stats    Stats
	now      func() time.Time
}

// New creates a tracker holding at most capacity records
func New(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Tracker{
		records:  make(map[string]*Record),
		capacity: capacity,
		now:      time.Now,
	}
}

// Queued records a freshly enqueued job
func (t *Tracker) Queued(job *domain.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.records[job.ID]; exists {
		return
	}

	t.records[job.ID] = &Record{Job: *job, Status: domain.JobStatusQueued, UpdatedAt: t.now()}
	t.order = append(t.order, job.ID)
	t.stats.Queued++
	t.evict()
}

// Processing marks a job as taken by the worker. Jobs the tracker has not seen,
// for example ones enqueued by another process on a shared broker, are adopted.
func (t *Tracker) Processing(job *domain.Job) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[job.ID]
	if !ok {
		rec = &Record{Job: *job}
		t.records[job.ID] = rec
		t.order = append(t.order, job.ID)
		t.evict()
	}
	if domain.IsTerminalStatus(rec.Status) {
		return
	}

	rec.Status = domain.JobStatusProcessing
	rec.UpdatedAt = t.now()
	t.stats.Processing++
}

// Delivered marks a job as answered
func (t *Tracker) Delivered(jobID string) {
	t.finish(jobID, domain.JobStatusDelivered, "")
}

// Failed marks a job as failed with a reason
func (t *Tracker) Failed(jobID, reason string) {
	t.finish(jobID, domain.JobStatusFailed, reason)
}

func (t *Tracker) finish(jobID, status, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[jobID]
	if !ok || domain.IsTerminalStatus(rec.Status) {
		return
	}

	rec.Status = status
	rec.Error = reason
	rec.UpdatedAt = t.now()

	if status == domain.JobStatusDelivered {
		t.stats.Delivered++
	} else {
		t.stats.Failed++
	}
}

// Get returns a copy of the record for a job
func (t *Tracker) Get(jobID string) (Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[jobID]
	if !ok {
		return Record{}, domain.ErrJobNotFound
	}
	return *rec, nil
}

// List returns matching records newest first
func (t *Tracker) List(filter Filter) []Record {
	t.mu.RLock()
	out := make([]Record, 0, len(t.records))
	for _, rec := range t.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.Action != "" && rec.Job.Action != filter.Action {
			continue
		}
		if filter.ChatID != 0 && rec.Job.Target.ChatID != filter.ChatID {
			continue
		}
		if filter.Before != nil && !before(rec, filter.Before) {
			continue
		}
		out = append(out, *rec)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Job, out[j].Job
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// before reports whether rec sorts strictly after the cursor in newest-first order
func before(rec *Record, c *Cursor) bool {
	if rec.Job.CreatedAt.Equal(c.CreatedAt) {
		return rec.Job.ID < c.JobID
	}
	return rec.Job.CreatedAt.Before(c.CreatedAt)
}

// Stats returns the counters
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.stats
	s.Tracked = len(t.records)
	return s
}

// evict drops the oldest terminal records once the tracker is over capacity.
// Live jobs are never evicted. Caller holds the lock.
func (t *Tracker) evict() {
	if len(t.records) <= t.capacity {
		return
	}

	kept := t.order[:0]
	for _, id := range t.order {
		rec := t.records[id]
		if len(t.records) > t.capacity && domain.IsTerminalStatus(rec.Status) {
			delete(t.records, id)
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}

package intake

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/cuongbtq/rankbot/internal/queue"
	"github.com/cuongbtq/rankbot/internal/tracker"
	"github.com/cuongbtq/rankbot/shared/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentReply struct {
	target domain.ReplyTarget
	text   string
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
}

func (f *fakeReplier) Reply(_ context.Context, target domain.ReplyTarget, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.replies = append(f.replies, sentReply{target: target, text: text})
	return nil
}

func (f *fakeReplier) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.replies))
	for i, r := range f.replies {
		out[i] = r.text
	}
	return out
}

type failingQueue struct{ err error }

func (q *failingQueue) Enqueue(context.Context, *domain.Job) error { return q.err }

func newIntake(q Enqueuer, r domain.Replier, tr *tracker.Tracker) *Intake {
	cfg := &Config{
		Logger:  logger.NewNop(),
		Queue:   q,
		Replier: r,
	}
	if tr != nil {
		cfg.Recorder = tr
	}
	return New(cfg)
}

func TestSubmit_ValidKeyword(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()
	defer q.Close()
	replier := &fakeReplier{}
	tr := tracker.New(10)
	in := newIntake(q, replier, tr)

	target := domain.ReplyTarget{ChatID: 42, MessageID: 7}
	job, err := in.Submit(ctx, target, domain.ActionRank, []string{" best ", "coffee", "hanoi "})
	require.NoError(t, err)

	assert.Equal(t, "best coffee hanoi", job.Keyword)
	assert.Equal(t, domain.ActionRank, job.Action)
	assert.Equal(t, target, job.Target)
	assert.False(t, job.CreatedAt.IsZero())
	_, err = uuid.Parse(job.ID)
	assert.NoError(t, err)

	assert.Equal(t, []string{domain.MessageProcessing}, replier.texts())

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	queued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, job, queued)

	rec, err := tr.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, rec.Status)
}

func TestSubmit_EmptyKeyword(t *testing.T) {
	tests := []struct {
		name   string
		action domain.Action
		args   []string
		want   string
	}{
		{name: "no args", action: domain.ActionRank, args: nil, want: "Usage: /search <keyword>"},
		{name: "blank args", action: domain.ActionRank, args: []string{" ", "\t"}, want: "Usage: /search <keyword>"},
		{name: "intent", action: domain.ActionIntent, args: []string{}, want: "Usage: /intent <keyword>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			q := queue.NewMemory()
			defer q.Close()
			replier := &fakeReplier{}
			in := newIntake(q, replier, tracker.New(10))

			job, err := in.Submit(ctx, domain.ReplyTarget{ChatID: 1}, tt.action, tt.args)
			assert.Nil(t, job)
			assert.ErrorIs(t, err, domain.ErrEmptyKeyword)

			texts := replier.texts()
			require.Len(t, texts, 1)
			assert.Contains(t, texts[0], tt.want)

			n, _ := q.Len(ctx)
			assert.Zero(t, n)
		})
	}
}

func TestSubmit_AckFailureDropsRequest(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()
	defer q.Close()
	tr := tracker.New(10)
	in := newIntake(q, &fakeReplier{err: errors.New("chat not found")}, tr)

	job, err := in.Submit(ctx, domain.ReplyTarget{ChatID: 1}, domain.ActionRank, []string{"golang"})
	assert.Nil(t, job)
	assert.ErrorIs(t, err, domain.ErrDeliveryFailed)

	n, _ := q.Len(ctx)
	assert.Zero(t, n)
	assert.Zero(t, tr.Stats().Tracked)
}

func TestSubmit_EnqueueFailure(t *testing.T) {
	brokerDown := errors.New("broker unavailable")
	replier := &fakeReplier{}
	tr := tracker.New(10)
	in := newIntake(&failingQueue{err: brokerDown}, replier, tr)

	job, err := in.Submit(context.Background(), domain.ReplyTarget{ChatID: 1}, domain.ActionRank, []string{"golang"})
	assert.Nil(t, job)
	assert.ErrorIs(t, err, brokerDown)
	assert.Equal(t, []string{domain.MessageProcessing, domain.MessageFailure}, replier.texts())

	recs := tr.List(tracker.Filter{})
	require.Len(t, recs, 1)
	assert.Equal(t, domain.JobStatusFailed, recs[0].Status)
}

func TestSubmitKeyword_ConcurrentProducers(t *testing.T) {
	ctx := context.Background()
	q := queue.NewMemory()
	defer q.Close()
	in := newIntake(q, &fakeReplier{}, nil)

	const producers = 50
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := in.SubmitKeyword(ctx, domain.ReplyTarget{ChatID: 1}, domain.ActionIntent, "kw")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, producers, n)
}

package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cuongbtq/rankbot/internal/domain"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedis(client, RedisConfig{Key: "rankbot:test", BlockTimeout: time.Second}), mr
}

func TestRedis_FIFO(t *testing.T) {
	q, _ := newTestRedis(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, testJob(fmt.Sprint(i))))
	}

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for i := 0; i < 3; i++ {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprint(i), job.ID)
		assert.Equal(t, int64(42), job.Target.ChatID)
		assert.Equal(t, domain.ActionRank, job.Action)
	}
}

func TestRedis_DequeueWaitsForProducer(t *testing.T) {
	q, _ := newTestRedis(t)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = q.Enqueue(context.Background(), testJob("late"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "late", job.ID)
}

func TestRedis_DequeueContextDone(t *testing.T) {
	q, _ := newTestRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	job, err := q.Dequeue(ctx)
	assert.Nil(t, job)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// bounded by one BRPOP round
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestRedis_MalformedMessage(t *testing.T) {
	q, mr := newTestRedis(t)

	_, err := mr.Lpush("rankbot:test", "{not json")
	require.NoError(t, err)

	_, err = q.Dequeue(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedJob)

	// the bad message is consumed, not redelivered
	n, _ := q.Len(context.Background())
	assert.Equal(t, 0, n)
}

func TestRedis_ConcurrentProducers(t *testing.T) {
	const producers = 50

	q, _ := newTestRedis(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, q.Enqueue(ctx, testJob(fmt.Sprint(i))))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < producers; i++ {
		job, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.False(t, seen[job.ID], "duplicate job %s", job.ID)
		seen[job.ID] = true
	}
	assert.Len(t, seen, producers)
}

func TestRedis_Backend(t *testing.T) {
	q, _ := newTestRedis(t)
	assert.Equal(t, "redis", q.Backend())
}

func TestConnectRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ConnectRedis(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer client.Close()

	_, err = ConnectRedis(context.Background(), "://bad-url", "")
	assert.Error(t, err)
}

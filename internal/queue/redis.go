package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Redis is a FIFO backed by a Redis list: LPUSH at the tail, BRPOP at the head.
type Redis struct {
	client       *redis.Client
	key          string
	blockTimeout time.Duration
}

// RedisConfig holds configuration for the Redis queue
type RedisConfig struct {
	URL          string
	Password     string
	Key          string
	BlockTimeout time.Duration
}

// ConnectRedis opens a client for the given URL and verifies it with PING
func ConnectRedis(ctx context.Context, url, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if password != "" {
		opts.Password = password
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewRedis wraps an existing client
func NewRedis(client *redis.Client, cfg RedisConfig) *Redis {
	if cfg.Key == "" {
		cfg.Key = "rankbot:jobs"
	}
	// BRPOP has one second resolution on older servers
	if cfg.BlockTimeout < time.Second {
		cfg.BlockTimeout = time.Second
	}

	return &Redis{
		client:       client,
		key:          cfg.Key,
		blockTimeout: cfg.BlockTimeout,
	}
}

// Enqueue pushes a job onto the tail of the list
func (q *Redis) Enqueue(ctx context.Context, job *domain.Job) error {
	body, err := Encode(job)
	if err != nil {
		return err
	}

	if err := q.client.LPush(ctx, q.key, body).Err(); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}

	return nil
}

// Dequeue pops the head of the list, blocking in BRPOP for at most the block timeout per round.
// The pop itself runs without the caller's cancellation so a job the server already
// removed is never dropped on the client side.
func (q *Redis) Dequeue(ctx context.Context) (*domain.Job, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := q.client.BRPop(context.WithoutCancel(ctx), q.blockTimeout, q.key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return nil, fmt.Errorf("failed to pop job: %w", err)
		}

		// BRPOP returns [key, value]
		if len(res) != 2 {
			return nil, fmt.Errorf("%w: unexpected BRPOP reply of length %d", domain.ErrMalformedJob, len(res))
		}

		return Decode([]byte(res[1]))
	}
}

// Len returns the length of the list
func (q *Redis) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return int(n), nil
}

// Backend names the queue implementation
func (q *Redis) Backend() string {
	return "redis"
}

// Close closes the underlying client
func (q *Redis) Close() error {
	return q.client.Close()
}

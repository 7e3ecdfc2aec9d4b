package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/rankbot/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker is the part of the RabbitMQ client the queue needs
type Broker interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
	QueueLength() (int, error)
	Close() error
}

// RabbitMQ is a FIFO backed by a RabbitMQ queue with one exclusive consumer
// and a prefetch of one, so deliveries arrive in publish order.
type RabbitMQ struct {
	broker      Broker
	logger      *slog.Logger
	consumerTag string

	once       sync.Once
	deliveries <-chan amqp.Delivery
	consumeErr error
}

// NewRabbitMQ wraps a connected broker client
func NewRabbitMQ(broker Broker, logger *slog.Logger) *RabbitMQ {
	return &RabbitMQ{
		broker:      broker,
		logger:      logger,
		consumerTag: "rankbot-" + uuid.New().String()[:8],
	}
}

// Enqueue publishes a job to the exchange
func (q *RabbitMQ) Enqueue(ctx context.Context, job *domain.Job) error {
	body, err := Encode(job)
	if err != nil {
		return err
	}

	if err := q.broker.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// Dequeue waits for the next delivery and acknowledges it before returning the job.
// Malformed messages are rejected without requeue.
func (q *RabbitMQ) Dequeue(ctx context.Context) (*domain.Job, error) {
	q.once.Do(func() {
		q.deliveries, q.consumeErr = q.broker.Consume(q.consumerTag, 1)
	})
	if q.consumeErr != nil {
		return nil, q.consumeErr
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case delivery, ok := <-q.deliveries:
		if !ok {
			return nil, domain.ErrQueueClosed
		}

		job, err := Decode(delivery.Body)
		if err != nil {
			q.logger.Error("Failed to parse job message",
				slog.String("error", err.Error()),
				slog.String("body", string(delivery.Body)),
			)
			if nackErr := delivery.Nack(false, false); nackErr != nil {
				q.logger.Error("Failed to NACK malformed message",
					slog.String("error", nackErr.Error()),
				)
			}
			return nil, err
		}

		if err := delivery.Ack(false); err != nil {
			return nil, fmt.Errorf("failed to ack job %s: %w", job.ID, err)
		}

		return job, nil
	}
}

// Len returns the number of ready messages
func (q *RabbitMQ) Len(_ context.Context) (int, error) {
	return q.broker.QueueLength()
}

// Backend names the queue implementation
func (q *RabbitMQ) Backend() string {
	return "rabbitmq"
}

// Close closes the broker connection
func (q *RabbitMQ) Close() error {
	if err := q.broker.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}

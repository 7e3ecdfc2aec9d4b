package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/rankbot/internal/api/handler"
	"github.com/cuongbtq/rankbot/internal/api/router"
	"github.com/cuongbtq/rankbot/internal/bot"
	"github.com/cuongbtq/rankbot/internal/config"
	"github.com/cuongbtq/rankbot/internal/intake"
	"github.com/cuongbtq/rankbot/internal/queue"
	"github.com/cuongbtq/rankbot/internal/ranking"
	"github.com/cuongbtq/rankbot/internal/tracker"
	"github.com/cuongbtq/rankbot/internal/worker"
	"github.com/cuongbtq/rankbot/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot, the job worker and the ops HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func run(ctx context.Context) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := appLogger.Logger

	log.Info("Starting rankbot",
		slog.String("app", cfg.App.Name),
		slog.String("version", Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("queue_backend", cfg.Queue.Backend),
	)

	jobQueue, err := initQueue(ctx, &cfg.Queue, log)
	if err != nil {
		return fmt.Errorf("failed to initialize queue: %w", err)
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			log.Warn("Failed to close queue", slog.Any("error", err))
		}
	}()

	log.Info("Job queue ready", slog.String("backend", jobQueue.Backend()))

	jobs := tracker.New(cfg.Worker.TrackerCapacity)

	tgBot, err := bot.New(bot.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout,
	}, log.With(slog.String("component", "bot")))
	if err != nil {
		return err
	}

	jobIntake := intake.New(&intake.Config{
		Logger:   log.With(slog.String("component", "intake")),
		Queue:    jobQueue,
		Replier:  tgBot,
		Recorder: jobs,
	})
	tgBot.Register(jobIntake)

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:       log.With(slog.String("component", "worker")),
		Queue:        jobQueue,
		Lookup:       ranking.NewClient(rankingConfig(&cfg.Ranking), log.With(slog.String("component", "ranking"))),
		Replier:      tgBot,
		Tracker:      jobs,
		PollInterval: cfg.Worker.PollInterval,
		JobTimeout:   cfg.Worker.JobTimeout,
	})

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	errChan := make(chan error, 2)
	go func() {
		err := workerInstance.Start(workerCtx)
		// an early return means the queue went away, e.g. the broker closed the channel
		if workerCtx.Err() == nil {
			if err == nil {
				err = errors.New("job queue closed")
			}
			errChan <- fmt.Errorf("worker: %w", err)
		}
	}()

	go tgBot.Start()

	var srv *http.Server
	if cfg.Server.Enabled {
		srv = initServer(cfg, log, jobs, jobIntake, jobQueue)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("http server: %w", err)
			}
		}()
		log.Info("Ops API listening", slog.String("address", srv.Addr))
	}

	log.Info("rankbot is running")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case runErr = <-errChan:
		log.Error("Component failed, shutting down", slog.Any("error", runErr))
	case <-ctx.Done():
	}

	// producers first so nothing new is queued
	tgBot.Stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", slog.Any("error", err))
		}
		cancel()
	}

	cancelWorker()
	stopWorker(workerInstance, cfg.Worker.ShutdownTimeout, log)

	if n, err := jobQueue.Len(context.Background()); err == nil && n > 0 && jobQueue.Backend() == config.QueueBackendMemory {
		log.Warn("Dropping queued jobs held in memory", slog.Int("count", n))
	}

	log.Info("rankbot shutdown complete")
	return runErr
}

// stopWorker waits for the in-flight job up to timeout
func stopWorker(w *worker.Worker, timeout time.Duration, log *slog.Logger) {
	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Worker stopped gracefully")
	case <-time.After(timeout):
		log.Warn("Worker shutdown timeout exceeded, forcing exit")
	}
}

// initQueue builds the configured queue backend
func initQueue(ctx context.Context, cfg *config.QueueConfig, log *slog.Logger) (queue.Queue, error) {
	switch cfg.Backend {
	case config.QueueBackendRedis:
		client, err := queue.ConnectRedis(ctx, cfg.Redis.URL, cfg.Redis.Password)
		if err != nil {
			return nil, err
		}
		return queue.NewRedis(client, queue.RedisConfig{Key: cfg.Redis.Key}), nil

	case config.QueueBackendRabbitMQ:
		client, err := initRabbitMQ(&cfg.RabbitMQ, log)
		if err != nil {
			return nil, err
		}
		return queue.NewRabbitMQ(client, log.With(slog.String("component", "queue"))), nil

	default:
		return queue.NewMemory(), nil
	}
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, log *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, log)
}

// initServer builds the ops HTTP server
func initServer(cfg *config.Config, log *slog.Logger, jobs *tracker.Tracker, in *intake.Intake, q queue.Queue) *http.Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := router.SetupRouter(&handler.Dependencies{
		Logger: log.With(slog.String("component", "api")),
		Jobs:   jobs,
		Intake: in,
		Queue:  q,
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

// Package main is the entry point for the sales ledger background worker.
// It relays the transactional outbox and prunes expired system rows.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"salesledger/internal/infrastructure/storage/postgres"
	"salesledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting salesledger worker")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool, postgres.DefaultTxOptions())

	worker := NewWorker(txManager, WorkerConfig{
		PollInterval:       getEnvDuration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
		CleanupInterval:    getEnvDuration("CLEANUP_INTERVAL", time.Hour),
		PublishedRetention: getEnvDuration("OUTBOX_RETENTION", 7*24*time.Hour),
	}, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// WorkerConfig tunes polling and housekeeping.
type WorkerConfig struct {
	PollInterval       time.Duration
	CleanupInterval    time.Duration
	PublishedRetention time.Duration
}

// Worker relays sale events and runs periodic cleanup.
type Worker struct {
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	cfg         WorkerConfig
	log         *logger.Logger
}

// NewWorker creates a worker bound to one database.
func NewWorker(txManager *postgres.TxManager, cfg WorkerConfig, log *logger.Logger) *Worker {
	log = log.WithComponent("worker")
	return &Worker{
		relay:       postgres.NewOutboxRelay(txManager, logHandler(log), postgres.DefaultRelayConfig()),
		idempotency: postgres.NewIdempotencyStore(txManager, 24*time.Hour),
		cfg:         cfg,
		log:         log,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	published, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		w.log.Errorw("outbox batch failed", "error", err)
		return
	}
	if published > 0 {
		w.log.Debugw("processed outbox batch", "count", published)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if moved, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
	} else if moved > 0 {
		w.log.Warnw("moved failed outbox messages to DLQ", "count", moved)
	}

	if purged, err := w.relay.PurgePublished(ctx, w.cfg.PublishedRetention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if purged > 0 {
		w.log.Infow("purged published outbox messages", "count", purged)
	}

	if expired, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if expired > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", expired)
	}
}

// logHandler publishes events to the structured log. A payload that is not
// valid JSON is rejected so the relay retries and eventually dead-letters it.
func logHandler(log *logger.Logger) postgres.OutboxHandler {
	return postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		var payload map[string]any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.EventType, err)
		}
		log.Infow("event published",
			"event_id", msg.ID,
			"event_type", msg.EventType,
			"aggregate_type", msg.AggregateType,
			"aggregate_id", msg.AggregateID,
			"attempt", msg.RetryCount+1,
			"payload", payload,
		)
		return nil
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"salesledger/internal/core/id"
	"salesledger/internal/domain"
	"salesledger/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage is a row of sys_outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var outboxColumns = ExtractDBColumns[OutboxMessage]()

// OutboxPublisher writes domain events to sys_outbox inside the caller's transaction.
type OutboxPublisher struct {
	txManager *TxManager
}

var _ domain.EventPublisher = (*OutboxPublisher)(nil)

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{txManager: txManager}
}

// Publish implements domain.EventPublisher. Must run inside a transaction.
func (p *OutboxPublisher) Publish(ctx context.Context, event domain.Event) error {
	return p.PublishBatch(ctx, []domain.Event{event})
}

// PublishBatch writes several events in one round trip.
func (p *OutboxPublisher) PublishBatch(ctx context.Context, events []domain.Event) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, event := range events {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", event.EventType, err)
		}
		query, args, err := psql.Insert("sys_outbox").
			Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at").
			Values(id.New(), event.AggregateType, event.AggregateID, event.EventType, payload, OutboxStatusPending, now).
			ToSql()
		if err != nil {
			return fmt.Errorf("build outbox insert: %w", err)
		}
		batch.Queue(query, args...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for _, event := range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert outbox %s: %w", event.EventType, err)
		}
	}
	return nil
}

// OutboxHandler delivers one message. An error schedules a retry.
type OutboxHandler interface {
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

// Handle implements OutboxHandler.
func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error {
	return f(ctx, msg)
}

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	BatchSize  int
	MaxRetries int
	// BaseBackoff is multiplied by the attempt number
	BaseBackoff time.Duration
}

// DefaultRelayConfig returns the worker defaults.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize:   100,
		MaxRetries:  5,
		BaseBackoff: time.Minute,
	}
}

// OutboxRelay claims pending messages and hands them to a handler.
// Several relays may run concurrently: claimed rows are locked with SKIP LOCKED.
type OutboxRelay struct {
	txManager *TxManager
	handler   OutboxHandler
	cfg       RelayConfig
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, handler OutboxHandler, cfg RelayConfig) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRelayConfig().BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRelayConfig().MaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultRelayConfig().BaseBackoff
	}
	return &OutboxRelay{txManager: txManager, handler: handler, cfg: cfg}
}

// ProcessBatch delivers up to BatchSize due messages and returns how many
// were published.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	published := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		query, args, err := psql.Select(outboxColumns...).
			From("sys_outbox").
			Where(sq.Eq{"status": OutboxStatusPending}).
			Where("(next_retry_at IS NULL OR next_retry_at <= NOW())").
			OrderBy("created_at").
			Limit(uint64(r.cfg.BatchSize)).
			Suffix("FOR UPDATE SKIP LOCKED").
			ToSql()
		if err != nil {
			return fmt.Errorf("build outbox select: %w", err)
		}

		var messages []*OutboxMessage
		if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, query, args...); err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			ok, err := r.deliver(ctx, msg)
			if err != nil {
				return err
			}
			if ok {
				published++
			}
		}
		return nil
	})
	return published, err
}

// deliver runs the handler and records the outcome on the locked row.
func (r *OutboxRelay) deliver(ctx context.Context, msg *OutboxMessage) (bool, error) {
	q := r.txManager.GetQuerier(ctx)

	if handleErr := r.handler.Handle(ctx, msg); handleErr != nil {
		attempt := msg.RetryCount + 1
		status := OutboxStatusPending
		if attempt >= r.cfg.MaxRetries {
			status = OutboxStatusFailed
		}
		logger.Warn(ctx, "outbox delivery failed",
			"message_id", msg.ID,
			"event_type", msg.EventType,
			"attempt", attempt,
			"error", handleErr,
		)

		query, args, err := psql.Update("sys_outbox").
			Set("retry_count", attempt).
			Set("last_error", handleErr.Error()).
			Set("next_retry_at", time.Now().UTC().Add(time.Duration(attempt)*r.cfg.BaseBackoff)).
			Set("status", status).
			Where(sq.Eq{"id": msg.ID}).
			ToSql()
		if err != nil {
			return false, fmt.Errorf("build outbox retry: %w", err)
		}
		if _, err := q.Exec(ctx, query, args...); err != nil {
			return false, fmt.Errorf("record outbox failure: %w", err)
		}
		return false, nil
	}

	query, args, err := psql.Update("sys_outbox").
		Set("status", OutboxStatusPublished).
		Set("published_at", time.Now().UTC()).
		Where(sq.Eq{"id": msg.ID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build outbox publish: %w", err)
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return false, fmt.Errorf("mark outbox published: %w", err)
	}
	return true, nil
}

// MoveToDLQ moves failed messages into sys_outbox_dlq.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, `
		WITH moved AS (
			DELETE FROM sys_outbox
			WHERE status = $1
			RETURNING id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at
		)
		INSERT INTO sys_outbox_dlq (id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at)
		SELECT id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at FROM moved
	`, OutboxStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgePublished deletes published messages older than retention.
func (r *OutboxRelay) PurgePublished(ctx context.Context, retention time.Duration) (int64, error) {
	query, args, err := psql.Delete("sys_outbox").
		Where(sq.Eq{"status": OutboxStatusPublished}).
		Where(sq.Lt{"published_at": time.Now().UTC().Add(-retention)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build outbox purge: %w", err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}

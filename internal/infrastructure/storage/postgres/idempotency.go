package postgres

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"

	"salesledger/internal/core/apperror"
)

// IdempotencyStatus represents the state of an idempotent operation.
type IdempotencyStatus string

const (
	IdempotencyStatusPending IdempotencyStatus = "pending"
	IdempotencyStatusSuccess IdempotencyStatus = "success"
	IdempotencyStatusFailed  IdempotencyStatus = "failed"
)

// staleAfter is how long a pending key may stay claimed before another
// request may take it over.
const staleAfter = time.Minute

// IdempotencyReplay is a stored HTTP response.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore persists idempotency keys in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	ttl       time.Duration
	now       func() time.Time
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager: txManager,
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AcquireKey claims key for this request.
// Returns (nil, nil) when the caller owns the key and must run the operation,
// (replay, nil) when a finished response exists, and an AppError when the key
// is in flight or was used for a different request.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*IdempotencyReplay, error) {
	now := s.now()
	q := s.txManager.GetQuerier(ctx)

	var (
		inserted    bool
		storedUser  string
		storedOp    string
		storedHash  string
		status      IdempotencyStatus
		body        []byte
		statusCode  int
		contentType string
		updatedAt   time.Time
	)
	// xmax = 0 only for a row created by this statement
	err := q.QueryRow(ctx, `
		INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO UPDATE SET expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
		RETURNING (xmax = 0), user_id, operation, request_hash, status, response, response_status, response_content_type, updated_at
	`, key, userID, operation, IdempotencyStatusPending, requestHash, now, now.Add(s.ttl)).Scan(
		&inserted, &storedUser, &storedOp, &storedHash, &status, &body, &statusCode, &contentType, &updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if inserted {
		return nil, nil
	}

	if storedUser != userID || storedOp != operation || storedHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key)
	}

	switch status {
	case IdempotencyStatusSuccess, IdempotencyStatusFailed:
		return &IdempotencyReplay{
			StatusCode:  replayStatus(statusCode),
			ContentType: replayContentType(contentType),
			Body:        body,
		}, nil
	default:
		if now.Sub(updatedAt) <= staleAfter {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		// take over a key left behind by a crashed request
		tag, err := q.Exec(ctx, `
			UPDATE sys_idempotency SET updated_at = $1
			WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4
		`, now, key, IdempotencyStatusPending, updatedAt)
		if err != nil {
			return nil, fmt.Errorf("reclaim stale key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, nil
	}
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, resp IdempotencyReplay) error {
	return s.finish(ctx, key, IdempotencyStatusSuccess, resp)
}

// FailKey stores a client-error response for replay.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, resp IdempotencyReplay) error {
	return s.finish(ctx, key, IdempotencyStatusFailed, resp)
}

// ReleaseKey drops a pending key so the request can be retried.
func (s *IdempotencyStore) ReleaseKey(ctx context.Context, key string) error {
	query, args, err := psql.Delete("sys_idempotency").
		Where(sq.Eq{"idempotency_key": key, "status": IdempotencyStatusPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency release: %w", err)
	}
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, query, args...)
	return err
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, status IdempotencyStatus, resp IdempotencyReplay) error {
	query, args, err := psql.Update("sys_idempotency").
		Set("status", status).
		Set("response", resp.Body).
		Set("response_status", resp.StatusCode).
		Set("response_content_type", resp.ContentType).
		Set("updated_at", s.now()).
		Where(sq.Eq{"idempotency_key": key}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency update: %w", err)
	}
	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, query, args...)
	return err
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx,
		"DELETE FROM sys_idempotency WHERE expires_at < $1", s.now())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func replayStatus(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

func replayContentType(ct string) string {
	if ct == "" {
		return "application/json"
	}
	return ct
}

package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"salesledger/internal/core/apperror"
	appctx "salesledger/internal/core/context"
	"salesledger/internal/infrastructure/storage/postgres"
	"salesledger/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"
const maxIdempotencyBodyBytes = 1 << 20 // 1 MiB

const (
	ctxIdempotencyKey   = "idempotency_key"
	ctxIdempotencyStore = "idempotency_store"
)

// IdempotencyStore persists idempotency keys and their responses.
type IdempotencyStore interface {
	AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*postgres.IdempotencyReplay, error)
	CompleteKey(ctx context.Context, key string, resp postgres.IdempotencyReplay) error
	FailKey(ctx context.Context, key string, resp postgres.IdempotencyReplay) error
	ReleaseKey(ctx context.Context, key string) error
}

// Idempotency middleware replays the stored response of a repeated
// POST/PUT/PATCH carrying the same X-Idempotency-Key.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		limited := io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1)
		body, _ := io.ReadAll(limited)
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		hash := sha256.Sum256(body)

		operation := c.Request.Method + " " + c.FullPath()
		userID := appctx.GetUserID(c.Request.Context())

		replay, err := store.AcquireKey(c.Request.Context(), key, userID, operation, hex.EncodeToString(hash[:]))
		if err != nil {
			if !apperror.IsAppError(err) {
				err = apperror.NewInternal(err).WithDetail("component", "idempotency")
			}
			_ = c.Error(err)
			c.Abort()
			return
		}

		if replay != nil {
			c.Header("Idempotent-Replayed", "true")
			if replay.StatusCode == http.StatusNoContent {
				c.Status(http.StatusNoContent)
			} else {
				c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			}
			c.Abort()
			return
		}

		c.Set(ctxIdempotencyKey, key)
		c.Set(ctxIdempotencyStore, store)

		c.Next()
	}
}

// CompleteIdempotency stores a successful response for replay.
func CompleteIdempotency(c *gin.Context, status int, contentType string, body []byte) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	resp := postgres.IdempotencyReplay{StatusCode: status, ContentType: contentType, Body: body}
	if err := store.CompleteKey(c.Request.Context(), key, resp); err != nil {
		logger.Warn(c.Request.Context(), "idempotency complete failed", "key", key, "error", err)
	}
}

// finishIdempotency records an error response: client errors are replayed,
// server errors release the key so the request may be retried.
func finishIdempotency(c *gin.Context, status int, body ErrorResponse) {
	key, store, ok := idempotencyFrom(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var err error
	if status >= http.StatusInternalServerError {
		err = store.ReleaseKey(ctx, key)
	} else {
		payload, _ := json.Marshal(body)
		err = store.FailKey(ctx, key, postgres.IdempotencyReplay{
			StatusCode:  status,
			ContentType: "application/json",
			Body:        payload,
		})
	}
	if err != nil {
		logger.Warn(ctx, "idempotency finish failed", "key", key, "error", err)
	}
}

func idempotencyFrom(c *gin.Context) (string, IdempotencyStore, bool) {
	key := c.GetString(ctxIdempotencyKey)
	if key == "" {
		return "", nil, false
	}
	v, ok := c.Get(ctxIdempotencyStore)
	if !ok {
		return "", nil, false
	}
	store, ok := v.(IdempotencyStore)
	return key, store, ok && store != nil
}

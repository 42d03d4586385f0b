package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "salesledger/internal/core/context"
	"salesledger/internal/core/id"
	"salesledger/internal/domain/audit"
)

// CompressionAlgo specifies the compression applied to stored changes.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// defaultCompressThreshold is the payload size above which changes are compressed.
const defaultCompressThreshold = 10 * 1024

// auditRow is a row of sys_audit.
type auditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            audit.Action    `db:"action"`
	UserID            string          `db:"user_id"`
	RequestID         string          `db:"request_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

var auditColumns = ExtractDBColumns[auditRow]()

// AuditLog implements audit.Logger on sys_audit.
type AuditLog struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

var _ audit.Logger = (*AuditLog)(nil)

// NewAuditLog creates the audit logger.
func NewAuditLog(txManager *TxManager) (*AuditLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: defaultCompressThreshold,
	}, nil
}

// LogChange implements audit.Logger. Actor and request id come from ctx.
func (a *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	row := a.encode(auditRow{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		UserID:     appctx.Actor(ctx),
		RequestID:  appctx.GetRequestID(ctx),
		Changes:    payload,
		CreatedAt:  time.Now().UTC(),
	})

	query, args, err := psql.Insert("sys_audit").
		SetMap(StructToMap(row)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := a.txManager.GetQuerier(ctx).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// encode compresses large payloads.
func (a *AuditLog) encode(row auditRow) auditRow {
	row.CompressionAlgo = CompressionNone
	if len(row.Changes) > a.compressThreshold {
		row.ChangesCompressed = a.encoder.EncodeAll(row.Changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row
}

// decode restores compressed payloads.
func (a *AuditLog) decode(row *auditRow) error {
	if row.CompressionAlgo != CompressionZstd || len(row.ChangesCompressed) == 0 {
		return nil
	}
	raw, err := a.decoder.DecodeAll(row.ChangesCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress changes of %s: %w", row.ID, err)
	}
	row.Changes = raw
	row.ChangesCompressed = nil
	return nil
}

// History implements audit.Logger. Newest first.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	builder := psql.Select(auditColumns...).
		From("sys_audit").
		Where(sq.Eq{"entity_type": entityType, "entity_id": entityID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit history: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, a.txManager.GetQuerier(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for i := range rows {
		if err := a.decode(&rows[i]); err != nil {
			return nil, err
		}
		r := rows[i]
		entries = append(entries, audit.Entry{
			ID:         r.ID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			Actor:      r.UserID,
			RequestID:  r.RequestID,
			Changes:    r.Changes,
			CreatedAt:  r.CreatedAt,
		})
	}
	return entries, nil
}

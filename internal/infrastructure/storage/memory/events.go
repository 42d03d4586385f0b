package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	appctx "salesledger/internal/core/context"
	"salesledger/internal/core/id"
	"salesledger/internal/domain"
	"salesledger/internal/domain/audit"
)

// Outbox collects published events; rolled back with the transaction.
type Outbox struct {
	store  *Store
	events []domain.Event
}

var _ domain.EventPublisher = (*Outbox)(nil)

// NewOutbox creates the outbox table.
func NewOutbox(store *Store) *Outbox {
	o := &Outbox{store: store}
	store.register(o)
	return o
}

func (o *Outbox) snapshot() any { return slices.Clone(o.events) }
func (o *Outbox) restore(state any) { o.events = state.([]domain.Event) }

// Publish implements domain.EventPublisher.
func (o *Outbox) Publish(ctx context.Context, event domain.Event) error {
	if !o.store.inTx(ctx) {
		return fmt.Errorf("outbox publish requires transaction context")
	}
	o.events = append(o.events, event)
	return nil
}

// Events returns a copy of the stored events.
func (o *Outbox) Events(ctx context.Context) []domain.Event {
	var out []domain.Event
	o.store.read(ctx, func() {
		out = slices.Clone(o.events)
	})
	return out
}

// AuditLog stores audit entries.
type AuditLog struct {
	store   *Store
	entries []audit.Entry
}

var _ audit.Logger = (*AuditLog)(nil)

// NewAuditLog creates the audit table.
func NewAuditLog(store *Store) *AuditLog {
	a := &AuditLog{store: store}
	store.register(a)
	return a
}

func (a *AuditLog) snapshot() any { return slices.Clone(a.entries) }
func (a *AuditLog) restore(state any) { a.entries = state.([]audit.Entry) }

// LogChange implements audit.Logger.
func (a *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	payload, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}
	entry := audit.Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Actor:      appctx.Actor(ctx),
		RequestID:  appctx.GetRequestID(ctx),
		Changes:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	return a.store.write(ctx, func() error {
		a.entries = append(a.entries, entry)
		return nil
	})
}

// History implements audit.Logger.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	var out []audit.Entry
	a.store.read(ctx, func() {
		for _, e := range a.entries {
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, e)
			}
		}
	})
	// UUIDv7 ids are time-ordered
	slices.SortFunc(out, func(x, y audit.Entry) int {
		return cmp.Or(y.CreatedAt.Compare(x.CreatedAt), id.Compare(y.ID, x.ID))
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

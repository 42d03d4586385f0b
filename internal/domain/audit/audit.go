// Package audit defines the audit trail contract used by domain services.
// Entries are written inside the business transaction so a rolled-back
// operation leaves no trace.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"salesledger/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionCancel  Action = "cancel"
	ActionArchive Action = "archive"
)

// Entry is a stored audit record.
type Entry struct {
	ID         id.ID           `db:"id" json:"id"`
	EntityType string          `db:"entity_type" json:"entityType"`
	EntityID   id.ID           `db:"entity_id" json:"entityId"`
	Action     Action          `db:"action" json:"action"`
	Actor      string          `db:"user_id" json:"actor"`
	RequestID  string          `db:"request_id" json:"requestId,omitempty"`
	Changes    json.RawMessage `db:"changes" json:"changes,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// Logger records and reads audit entries.
type Logger interface {
	// LogChange records an entry; actor and request id come from ctx.
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error

	// History returns entries for an entity, newest first.
	History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// Nop discards entries.
type Nop struct{}

func (Nop) LogChange(context.Context, string, id.ID, Action, map[string]any) error { return nil }
func (Nop) History(context.Context, string, id.ID, int) ([]Entry, error) { return nil, nil }

// Diff calculates the difference between old and new entity states.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if !equal(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}

func equal(a, b any) bool {
	aj, errA := json.Marshal(a)
	bj, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(aj) == string(bj)
}

package domain

import (
	"context"

	"salesledger/internal/core/id"
)

// Event is a domain event written to the transactional outbox.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// EventPublisher stores events within the current transaction.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

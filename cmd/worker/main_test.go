package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"salesledger/internal/core/id"
	"salesledger/internal/infrastructure/storage/postgres"
	"salesledger/pkg/logger"
)

func TestLogHandler(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "error", OutputPaths: []string{"stderr"}})
	if err != nil {
		t.Fatal(err)
	}
	handler := logHandler(log)

	msg := &postgres.OutboxMessage{
		ID:            id.New(),
		AggregateType: "sale",
		AggregateID:   id.New(),
		EventType:     "SaleRegistered",
		Payload:       []byte(`{"sale_id":"x","total":"42.00"}`),
	}
	assert.NoError(t, handler.Handle(context.Background(), msg))

	msg.Payload = []byte("not json")
	assert.ErrorContains(t, handler.Handle(context.Background(), msg), "SaleRegistered")
}

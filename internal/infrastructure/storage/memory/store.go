// Package memory provides in-process implementations of the storage ports.
// A Store serializes whole transactions behind one mutex and restores a
// snapshot of every table on rollback, which gives the same observable
// guarantees as row locks in PostgreSQL for tests and local runs.
package memory

import (
	"context"
	"sync"

	"salesledger/internal/core/tx"
)

// table is a snapshot-able collection registered with a Store.
type table interface {
	snapshot() any
	restore(state any)
}

// Store owns the tables and the transaction lock.
type Store struct {
	mu     sync.Mutex
	tables []table
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

type txKey struct{}

var (
	_ tx.Manager         = (*Store)(nil)
	_ tx.ReadOnlyManager = (*Store)(nil)
)

func (s *Store) register(t table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables = append(s.tables, t)
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// RunInTransaction executes fn holding the store lock.
// Nested calls reuse the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]any, len(s.tables))
	for i, t := range s.tables {
		snaps[i] = t.snapshot()
	}
	rollback := func() {
		for i, t := range s.tables {
			t.restore(snaps[i])
		}
	}

	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		rollback()
	}
	return err
}

// ReadOnly executes fn in a transaction and always discards its writes.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]any, len(s.tables))
	for i, t := range s.tables {
		snaps[i] = t.snapshot()
	}
	defer func() {
		for i, t := range s.tables {
			t.restore(snaps[i])
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// read runs fn under the store lock unless ctx already holds it.
func (s *Store) read(ctx context.Context, fn func()) {
	if s.inTx(ctx) {
		fn()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// write runs fn as a single-statement transaction unless ctx already holds
// the lock. Failed statements leave the table untouched.
func (s *Store) write(ctx context.Context, fn func() error) error {
	if s.inTx(ctx) {
		return fn()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}

package numerator

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesledger/internal/core/numerator"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences: one counter per key.
type mockQuerier struct {
	mu       sync.Mutex
	counters map[string]int64
	keys     []string
	err      error
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return &mockRow{err: m.err}
	}
	if m.counters == nil {
		m.counters = make(map[string]int64)
	}
	key := args[0].(string)
	m.keys = append(m.keys, key)
	m.counters[key]++
	return &mockRow{val: m.counters[key]}
}

var period = time.Date(2025, 9, 14, 10, 30, 0, 0, time.UTC)

func TestGetNextNumber_Random(t *testing.T) {
	svc := New(nil, WithRand(rand.New(rand.NewPCG(1, 2))))
	cfg := numerator.DefaultConfig("V")

	pattern := regexp.MustCompile(`^V-20250914-\d{4}$`)
	for i := 0; i < 50; i++ {
		num, err := svc.GetNextNumber(context.Background(), cfg, nil, period)
		require.NoError(t, err)
		assert.Regexp(t, pattern, num)
	}
}

func TestGetNextNumber_RandomIsDeterministicWithSeed(t *testing.T) {
	cfg := numerator.DefaultConfig("V")
	a := New(nil, WithRand(rand.New(rand.NewPCG(7, 7))))
	b := New(nil, WithRand(rand.New(rand.NewPCG(7, 7))))

	for i := 0; i < 5; i++ {
		na, err := a.GetNextNumber(context.Background(), cfg, nil, period)
		require.NoError(t, err)
		nb, err := b.GetNextNumber(context.Background(), cfg, nil, period)
		require.NoError(t, err)
		assert.Equal(t, na, nb)
	}
}

func TestGetNextNumber_Sequence(t *testing.T) {
	q := &mockQuerier{}
	svc := New(Static(q))
	cfg := numerator.DefaultConfig("V")
	cfg.Scope = "vendor-1"
	opts := &numerator.Options{Strategy: numerator.StrategySequence}

	first, err := svc.GetNextNumber(context.Background(), cfg, opts, period)
	require.NoError(t, err)
	second, err := svc.GetNextNumber(context.Background(), cfg, opts, period)
	require.NoError(t, err)

	assert.Equal(t, "V-20250914-0001", first)
	assert.Equal(t, "V-20250914-0002", second)
	assert.Equal(t, "V:vendor-1:20250914", q.keys[0])

	// a new day starts a new counter
	next, err := svc.GetNextNumber(context.Background(), cfg, opts, period.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, "V-20250915-0001", next)
}

func TestGetNextNumber_SequenceScopesAreIndependent(t *testing.T) {
	q := &mockQuerier{}
	svc := New(Static(q))
	opts := &numerator.Options{Strategy: numerator.StrategySequence}

	a := numerator.DefaultConfig("V")
	a.Scope = "vendor-a"
	b := numerator.DefaultConfig("V")
	b.Scope = "vendor-b"

	na, err := svc.GetNextNumber(context.Background(), a, opts, period)
	require.NoError(t, err)
	nb, err := svc.GetNextNumber(context.Background(), b, opts, period)
	require.NoError(t, err)

	assert.Equal(t, na, nb)
	assert.Len(t, q.counters, 2)
}

func TestGetNextNumber_SequenceErrors(t *testing.T) {
	opts := &numerator.Options{Strategy: numerator.StrategySequence}
	cfg := numerator.DefaultConfig("V")

	_, err := New(nil).GetNextNumber(context.Background(), cfg, opts, period)
	assert.Error(t, err)

	q := &mockQuerier{err: errors.New("relation sys_sequences does not exist")}
	_, err = New(Static(q)).GetNextNumber(context.Background(), cfg, opts, period)
	assert.ErrorContains(t, err, "sequence next")
}

func TestGetNextNumber_Concurrent(t *testing.T) {
	q := &mockQuerier{}
	svc := New(Static(q))
	cfg := numerator.DefaultConfig("V")
	opts := &numerator.Options{Strategy: numerator.StrategySequence}

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]bool)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.GetNextNumber(context.Background(), cfg, opts, period)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			seen[num] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 20)
}

func TestParseStrategy(t *testing.T) {
	s, err := numerator.ParseStrategy("sequence")
	require.NoError(t, err)
	assert.Equal(t, numerator.StrategySequence, s)

	s, err = numerator.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, numerator.StrategyRandom, s)

	_, err = numerator.ParseStrategy("uuid")
	assert.Error(t, err)
}

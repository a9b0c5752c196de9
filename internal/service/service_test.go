package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hanloto/fortuna/config"
	"github.com/hanloto/fortuna/internal/adapter/oracle"
	"github.com/hanloto/fortuna/internal/adapter/orders"
	"github.com/hanloto/fortuna/internal/adapter/rounds"
	"github.com/hanloto/fortuna/internal/domain"
	store "github.com/hanloto/fortuna/internal/repository"
	"github.com/hanloto/fortuna/policy"
)

// Prometheus instruments register on the default registry once per
// process, so every test service shares one set.
var testMetrics = NewMetrics("fortuna_service_test")

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// fakeClock drives all time-based behavior in tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: testEpoch}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// slowOracle simulates oracle latency by advancing the fake clock
// inside the call, so elapsed-time accounting has something to measure.
type slowOracle struct {
	*oracle.MockOracle
	clock *fakeClock
	delay time.Duration
}

func (o *slowOracle) GenerateChatReply(ctx context.Context, req *oracle.ChatRequest) (*oracle.ChatResponse, error) {
	o.clock.Advance(o.delay)
	return o.MockOracle.GenerateChatReply(ctx, req)
}

func newTestService(t *testing.T, orc oracle.Oracle, clock *fakeClock) (*Service, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	gate, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create payment gate: %v", err)
	}

	cfg := &config.Config{LookupTimeout: time.Second}
	svc := New(st, orc, orders.NewStoreGateway(st), &rounds.Static{Round: 1099}, gate, domain.OrderedSuggestions{}, cfg, testMetrics)
	svc.now = clock.Now
	return svc, st
}

package observability_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/clock"
	"github.com/xraph/membership/observability"
	"github.com/xraph/membership/store/memory"
	"github.com/xraph/membership/types"
)

type fakeCounter struct {
	mu sync.Mutex
	n  float64
}

func (c *fakeCounter) Inc()          { c.Add(1) }
func (c *fakeCounter) Add(v float64) { c.mu.Lock(); c.n += v; c.mu.Unlock() }
func (c *fakeCounter) value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type fakeHistogram struct {
	mu  sync.Mutex
	obs []float64
}

func (h *fakeHistogram) Observe(v float64) { h.mu.Lock(); h.obs = append(h.obs, v); h.mu.Unlock() }

type fakeFactory struct {
	counters   map[string]*fakeCounter
	histograms map[string]*fakeHistogram
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{counters: map[string]*fakeCounter{}, histograms: map[string]*fakeHistogram{}}
}

func (f *fakeFactory) Counter(name string) observability.Counter {
	c := &fakeCounter{}
	f.counters[name] = c
	return c
}

func (f *fakeFactory) Histogram(name string) observability.Histogram {
	h := &fakeHistogram{}
	f.histograms[name] = h
	return h
}

func TestMetricsExtensionCountsLifecycle(t *testing.T) {
	ctx := context.Background()
	admin := types.NewAddress("0xad000000000000000000000000000000000000a1")
	buyer := types.NewAddress("0xb0b0000000000000000000000000000000000002")

	factory := newFakeFactory()
	metrics := observability.NewMetricsExtension(factory)

	eng, err := membership.New(membership.Config{
		Name: "Pass", Symbol: "P", MaxSupply: 10, Admin: admin.String(),
	}, memory.New(),
		membership.WithClock(clock.Fake(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))),
		membership.WithPlugin(metrics),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := eng.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer eng.Stop()

	tierID, _ := eng.CreateTier(ctx, admin, types.Wei(50), time.Hour)
	tokenID, _ := eng.Purchase(ctx, tierID, types.Wei(50), buyer)
	_, _ = eng.Renew(ctx, tokenID, types.Wei(50), buyer)
	_, _ = eng.Purchase(ctx, tierID, types.Wei(1), buyer) // rejected
	_ = eng.UpdateTier(ctx, admin, tierID, types.Wei(50), time.Hour, false)

	tests := []struct {
		name string
		want float64
	}{
		{"membership.tier.created", 1},
		{"membership.tier.updated", 1},
		{"membership.tier.deactivated", 1},
		{"membership.token.purchased", 1},
		{"membership.token.renewed", 1},
		{"membership.transactions.rejected", 1},
		{"membership.store.errors", 0},
		{"membership.events.committed", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := factory.counters[tt.name].value(); got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
			}
		})
	}

	ext := factory.histograms["membership.renewal.extended_seconds"]
	if len(ext.obs) != 1 || ext.obs[0] != 3600 {
		t.Errorf("renewal extension observations = %v", ext.obs)
	}
}

func TestStoreErrorsCountedSeparately(t *testing.T) {
	factory := newFakeFactory()
	metrics := observability.NewMetricsExtension(factory)

	_ = metrics.OnTransactionFailed(context.Background(), "purchase",
		errors.Join(membership.ErrTransactionFailed, errors.New("disk full")))
	_ = metrics.OnTransactionFailed(context.Background(), "purchase", membership.ErrWrongPrice)

	if factory.counters["membership.store.errors"].value() != 1 {
		t.Error("store failure not counted")
	}
	if factory.counters["membership.transactions.rejected"].value() != 1 {
		t.Error("domain rejection not counted")
	}
}

func TestPrometheusFactory(t *testing.T) {
	reg := prometheus.NewRegistry()
	factory := observability.NewPrometheusFactory(reg, "test")

	c := factory.Counter("membership.token.purchased")
	c.Inc()
	c.Add(2)
	// Same name returns the same collector.
	factory.Counter("membership.token.purchased").Inc()
	factory.Histogram("membership.payment.amount").Observe(100)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	counter, ok := byName["test_membership_token_purchased_total"]
	if !ok {
		t.Fatalf("counter not registered; have %v", byName)
	}
	if got := counter.GetMetric()[0].GetCounter().GetValue(); got != 4 {
		t.Errorf("counter = %v, want 4", got)
	}
	hist, ok := byName["test_membership_payment_amount"]
	if !ok || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Errorf("histogram = %v", hist)
	}
}

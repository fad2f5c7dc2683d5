// Package observability provides a metrics extension for Membership that
// records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"errors"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/tier"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin              = (*MetricsExtension)(nil)
	_ plugin.OnInit              = (*MetricsExtension)(nil)
	_ plugin.OnTierCreated       = (*MetricsExtension)(nil)
	_ plugin.OnTierUpdated       = (*MetricsExtension)(nil)
	_ plugin.OnPurchased         = (*MetricsExtension)(nil)
	_ plugin.OnRenewed           = (*MetricsExtension)(nil)
	_ plugin.OnApproval          = (*MetricsExtension)(nil)
	_ plugin.OnTransfer          = (*MetricsExtension)(nil)
	_ plugin.OnBaseURIUpdated    = (*MetricsExtension)(nil)
	_ plugin.OnEventCommitted    = (*MetricsExtension)(nil)
	_ plugin.OnTransactionFailed = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Membership plugin to track sales and renewals.
type MetricsExtension struct {
	factory MetricFactory

	// Tier metrics
	TierCreated     Counter
	TierUpdated     Counter
	TierDeactivated Counter

	// Token metrics
	TokensPurchased Counter
	TokensRenewed   Counter
	Approvals       Counter
	Transfers       Counter
	PaymentAmount   Histogram
	RenewalExtended Histogram

	// Settings metrics
	BaseURIUpdated Counter

	// Transaction metrics
	EventsCommitted      Counter
	TransactionsRejected Counter
	StoreErrors          Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions, or NewPrometheusFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Tier metrics
		TierCreated:     factory.Counter("membership.tier.created"),
		TierUpdated:     factory.Counter("membership.tier.updated"),
		TierDeactivated: factory.Counter("membership.tier.deactivated"),

		// Token metrics
		TokensPurchased: factory.Counter("membership.token.purchased"),
		TokensRenewed:   factory.Counter("membership.token.renewed"),
		Approvals:       factory.Counter("membership.token.approvals"),
		Transfers:       factory.Counter("membership.token.transfers"),
		PaymentAmount:   factory.Histogram("membership.payment.amount"),
		RenewalExtended: factory.Histogram("membership.renewal.extended_seconds"),

		// Settings metrics
		BaseURIUpdated: factory.Counter("membership.base_uri.updated"),

		// Transaction metrics
		EventsCommitted:      factory.Counter("membership.events.committed"),
		TransactionsRejected: factory.Counter("membership.transactions.rejected"),
		StoreErrors:          factory.Counter("membership.store.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	return nil
}

// ──────────────────────────────────────────────────
// Tier lifecycle hooks
// ──────────────────────────────────────────────────

// OnTierCreated implements plugin.OnTierCreated.
func (m *MetricsExtension) OnTierCreated(_ context.Context, _ *tier.Tier) error {
	m.TierCreated.Inc()
	return nil
}

// OnTierUpdated implements plugin.OnTierUpdated.
func (m *MetricsExtension) OnTierUpdated(_ context.Context, prev, next *tier.Tier) error {
	m.TierUpdated.Inc()
	if prev.Active && !next.Active {
		m.TierDeactivated.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Token lifecycle hooks
// ──────────────────────────────────────────────────

// OnPurchased implements plugin.OnPurchased.
func (m *MetricsExtension) OnPurchased(_ context.Context, p *event.Purchased) error {
	m.TokensPurchased.Inc()
	m.PaymentAmount.Observe(float64(p.Amount.Amount))
	return nil
}

// OnRenewed implements plugin.OnRenewed.
func (m *MetricsExtension) OnRenewed(_ context.Context, r *event.Renewed) error {
	m.TokensRenewed.Inc()
	m.PaymentAmount.Observe(float64(r.Amount.Amount))
	m.RenewalExtended.Observe(r.NewExpiresAt.Sub(r.PreviousExpiresAt).Seconds())
	return nil
}

// OnApproval implements plugin.OnApproval.
func (m *MetricsExtension) OnApproval(_ context.Context, _ *event.Approval) error {
	m.Approvals.Inc()
	return nil
}

// OnTransfer implements plugin.OnTransfer.
func (m *MetricsExtension) OnTransfer(_ context.Context, _ *event.Transfer) error {
	m.Transfers.Inc()
	return nil
}

// OnBaseURIUpdated implements plugin.OnBaseURIUpdated.
func (m *MetricsExtension) OnBaseURIUpdated(_ context.Context, _ *event.BaseURIUpdated) error {
	m.BaseURIUpdated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnEventCommitted implements plugin.OnEventCommitted.
func (m *MetricsExtension) OnEventCommitted(_ context.Context, _ *event.Event) error {
	m.EventsCommitted.Inc()
	return nil
}

// OnTransactionFailed implements plugin.OnTransactionFailed.
func (m *MetricsExtension) OnTransactionFailed(_ context.Context, _ string, err error) error {
	if errors.Is(err, membership.ErrTransactionFailed) {
		m.StoreErrors.Inc()
		return nil
	}
	m.TransactionsRejected.Inc()
	return nil
}

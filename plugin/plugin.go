// Package plugin provides an extensible plugin system for Membership.
// Plugins hook into committed transactions to extend functionality:
// metrics, audit trails and event publishing all live here.
package plugin

import (
	"context"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/tier"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Tier hooks
// ──────────────────────────────────────────────────

// OnTierCreated is called after a tier creation commits.
type OnTierCreated interface {
	Plugin
	OnTierCreated(ctx context.Context, t *tier.Tier) error
}

// OnTierUpdated is called after a tier update commits.
type OnTierUpdated interface {
	Plugin
	OnTierUpdated(ctx context.Context, prev, next *tier.Tier) error
}

// ──────────────────────────────────────────────────
// Token hooks
// ──────────────────────────────────────────────────

// OnPurchased is called after a purchase commits.
type OnPurchased interface {
	Plugin
	OnPurchased(ctx context.Context, p *event.Purchased) error
}

// OnRenewed is called after a renewal commits.
type OnRenewed interface {
	Plugin
	OnRenewed(ctx context.Context, r *event.Renewed) error
}

// OnApproval is called after an approval change commits.
type OnApproval interface {
	Plugin
	OnApproval(ctx context.Context, a *event.Approval) error
}

// OnTransfer is called after a transfer commits.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, t *event.Transfer) error
}

// ──────────────────────────────────────────────────
// Settings hooks
// ──────────────────────────────────────────────────

// OnBaseURIUpdated is called after the base URI changes.
type OnBaseURIUpdated interface {
	Plugin
	OnBaseURIUpdated(ctx context.Context, u *event.BaseURIUpdated) error
}

// ──────────────────────────────────────────────────
// Transaction hooks
// ──────────────────────────────────────────────────

// OnEventCommitted is called once for every event in the log, in sequence
// order, after its transaction commits.
type OnEventCommitted interface {
	Plugin
	OnEventCommitted(ctx context.Context, ev *event.Event) error
}

// OnTransactionFailed is called when a transaction is rejected or its
// commit fails. Nothing was written.
type OnTransactionFailed interface {
	Plugin
	OnTransactionFailed(ctx context.Context, op string, err error) error
}

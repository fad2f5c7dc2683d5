// Package audithook bridges Membership lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import an
// audit library directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/tier"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnTierCreated       = (*Extension)(nil)
	_ plugin.OnTierUpdated       = (*Extension)(nil)
	_ plugin.OnPurchased         = (*Extension)(nil)
	_ plugin.OnRenewed           = (*Extension)(nil)
	_ plugin.OnApproval          = (*Extension)(nil)
	_ plugin.OnTransfer          = (*Extension)(nil)
	_ plugin.OnBaseURIUpdated    = (*Extension)(nil)
	_ plugin.OnTransactionFailed = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Membership lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Tier lifecycle hooks
// ──────────────────────────────────────────────────

// OnTierCreated implements plugin.OnTierCreated.
func (e *Extension) OnTierCreated(ctx context.Context, t *tier.Tier) error {
	return e.record(ctx, ActionTierCreated, SeverityInfo, OutcomeSuccess,
		ResourceTier, idString(t.ID), CategoryCatalog, nil,
		"price", t.Price.String(),
		"duration_seconds", t.DurationSeconds(),
	)
}

// OnTierUpdated implements plugin.OnTierUpdated. Deactivation is recorded
// as its own action at warning level since it stops sales.
func (e *Extension) OnTierUpdated(ctx context.Context, prev, next *tier.Tier) error {
	action, severity := ActionTierUpdated, SeverityInfo
	if prev.Active && !next.Active {
		action, severity = ActionTierDeactivated, SeverityWarning
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceTier, idString(next.ID), CategoryCatalog, nil,
		"previous_price", prev.Price.String(),
		"price", next.Price.String(),
		"previous_duration_seconds", prev.DurationSeconds(),
		"duration_seconds", next.DurationSeconds(),
		"active", next.Active,
	)
}

// ──────────────────────────────────────────────────
// Token lifecycle hooks
// ──────────────────────────────────────────────────

// OnPurchased implements plugin.OnPurchased.
func (e *Extension) OnPurchased(ctx context.Context, p *event.Purchased) error {
	return e.record(ctx, ActionTokenPurchased, SeverityInfo, OutcomeSuccess,
		ResourceToken, idString(p.TokenID), CategoryPayment, nil,
		"buyer", p.Buyer.String(),
		"tier_id", p.TierID,
		"amount", p.Amount.String(),
		"payment_id", p.PaymentID.String(),
		"expires_at", p.ExpiresAt,
	)
}

// OnRenewed implements plugin.OnRenewed.
func (e *Extension) OnRenewed(ctx context.Context, r *event.Renewed) error {
	return e.record(ctx, ActionTokenRenewed, SeverityInfo, OutcomeSuccess,
		ResourceToken, idString(r.TokenID), CategoryPayment, nil,
		"caller", r.Caller.String(),
		"tier_id", r.TierID,
		"amount", r.Amount.String(),
		"payment_id", r.PaymentID.String(),
		"previous_expires_at", r.PreviousExpiresAt,
		"expires_at", r.NewExpiresAt,
	)
}

// OnApproval implements plugin.OnApproval.
func (e *Extension) OnApproval(ctx context.Context, a *event.Approval) error {
	return e.record(ctx, ActionTokenApproval, SeverityInfo, OutcomeSuccess,
		ResourceToken, idString(a.TokenID), CategoryAccess, nil,
		"owner", a.Owner.String(),
		"operator", a.Operator.String(),
	)
}

// OnTransfer implements plugin.OnTransfer.
func (e *Extension) OnTransfer(ctx context.Context, t *event.Transfer) error {
	return e.record(ctx, ActionTokenTransfer, SeverityInfo, OutcomeSuccess,
		ResourceToken, idString(t.TokenID), CategoryAccess, nil,
		"caller", t.Caller.String(),
		"from", t.From.String(),
		"to", t.To.String(),
	)
}

// ──────────────────────────────────────────────────
// Settings hooks
// ──────────────────────────────────────────────────

// OnBaseURIUpdated implements plugin.OnBaseURIUpdated.
func (e *Extension) OnBaseURIUpdated(ctx context.Context, u *event.BaseURIUpdated) error {
	return e.record(ctx, ActionBaseURIUpdated, SeverityInfo, OutcomeSuccess,
		ResourceSettings, "base_uri", CategoryConfig, nil,
		"admin", u.Admin.String(),
		"previous", u.Previous,
		"base_uri", u.BaseURI,
	)
}

// OnTransactionFailed implements plugin.OnTransactionFailed. Only
// authorization failures and store failures are audited; price and supply
// rejections are routine.
func (e *Extension) OnTransactionFailed(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, membership.ErrUnauthorized):
		return e.record(ctx, ActionTransactionRejected, SeverityWarning, OutcomeFailure,
			"", op, CategoryAccess, err,
			"op", op,
		)
	case errors.Is(err, membership.ErrTransactionFailed):
		return e.record(ctx, ActionTransactionRejected, SeverityError, OutcomeFailure,
			"", op, CategoryPayment, err,
			"op", op,
		)
	default:
		return nil
	}
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}

func idString(id uint64) string { return strconv.FormatUint(id, 10) }

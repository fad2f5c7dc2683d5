package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/membership/event"
	"github.com/xraph/membership/tier"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery so that emitting never type-asserts.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onTierCreated       []OnTierCreated
	onTierUpdated       []OnTierUpdated
	onPurchased         []OnPurchased
	onRenewed           []OnRenewed
	onApproval          []OnApproval
	onTransfer          []OnTransfer
	onBaseURIUpdated    []OnBaseURIUpdated
	onEventCommitted    []OnEventCommitted
	onTransactionFailed []OnTransactionFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnTierCreated); ok {
		r.onTierCreated = append(r.onTierCreated, v)
	}
	if v, ok := p.(OnTierUpdated); ok {
		r.onTierUpdated = append(r.onTierUpdated, v)
	}
	if v, ok := p.(OnPurchased); ok {
		r.onPurchased = append(r.onPurchased, v)
	}
	if v, ok := p.(OnRenewed); ok {
		r.onRenewed = append(r.onRenewed, v)
	}
	if v, ok := p.(OnApproval); ok {
		r.onApproval = append(r.onApproval, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnBaseURIUpdated); ok {
		r.onBaseURIUpdated = append(r.onBaseURIUpdated, v)
	}
	if v, ok := p.(OnEventCommitted); ok {
		r.onEventCommitted = append(r.onEventCommitted, v)
	}
	if v, ok := p.(OnTransactionFailed); ok {
		r.onTransactionFailed = append(r.onTransactionFailed, v)
	}

	return nil
}

// Plugins returns all registered plugins.
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit notifies all OnInit plugins.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.warn("OnInit", p.Name(), err)
		}
	}
}

// EmitShutdown notifies all OnShutdown plugins.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.warn("OnShutdown", p.Name(), err)
		}
	}
}

// EmitTierCreated notifies all OnTierCreated plugins.
func (r *Registry) EmitTierCreated(ctx context.Context, t *tier.Tier) {
	r.mu.RLock()
	plugins := r.onTierCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTierCreated(ctx, t)
		}); err != nil {
			r.warn("OnTierCreated", p.Name(), err)
		}
	}
}

// EmitTierUpdated notifies all OnTierUpdated plugins.
func (r *Registry) EmitTierUpdated(ctx context.Context, prev, next *tier.Tier) {
	r.mu.RLock()
	plugins := r.onTierUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTierUpdated(ctx, prev, next)
		}); err != nil {
			r.warn("OnTierUpdated", p.Name(), err)
		}
	}
}

// EmitPurchased notifies all OnPurchased plugins.
func (r *Registry) EmitPurchased(ctx context.Context, ev *event.Purchased) {
	r.mu.RLock()
	plugins := r.onPurchased
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPurchased(ctx, ev)
		}); err != nil {
			r.warn("OnPurchased", p.Name(), err)
		}
	}
}

// EmitRenewed notifies all OnRenewed plugins.
func (r *Registry) EmitRenewed(ctx context.Context, ev *event.Renewed) {
	r.mu.RLock()
	plugins := r.onRenewed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRenewed(ctx, ev)
		}); err != nil {
			r.warn("OnRenewed", p.Name(), err)
		}
	}
}

// EmitApproval notifies all OnApproval plugins.
func (r *Registry) EmitApproval(ctx context.Context, ev *event.Approval) {
	r.mu.RLock()
	plugins := r.onApproval
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnApproval(ctx, ev)
		}); err != nil {
			r.warn("OnApproval", p.Name(), err)
		}
	}
}

// EmitTransfer notifies all OnTransfer plugins.
func (r *Registry) EmitTransfer(ctx context.Context, ev *event.Transfer) {
	r.mu.RLock()
	plugins := r.onTransfer
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransfer(ctx, ev)
		}); err != nil {
			r.warn("OnTransfer", p.Name(), err)
		}
	}
}

// EmitBaseURIUpdated notifies all OnBaseURIUpdated plugins.
func (r *Registry) EmitBaseURIUpdated(ctx context.Context, ev *event.BaseURIUpdated) {
	r.mu.RLock()
	plugins := r.onBaseURIUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBaseURIUpdated(ctx, ev)
		}); err != nil {
			r.warn("OnBaseURIUpdated", p.Name(), err)
		}
	}
}

// EmitEventCommitted notifies all OnEventCommitted plugins.
func (r *Registry) EmitEventCommitted(ctx context.Context, ev *event.Event) {
	r.mu.RLock()
	plugins := r.onEventCommitted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEventCommitted(ctx, ev.Clone())
		}); err != nil {
			r.warn("OnEventCommitted", p.Name(), err)
		}
	}
}

// EmitTransactionFailed notifies all OnTransactionFailed plugins.
func (r *Registry) EmitTransactionFailed(ctx context.Context, op string, txErr error) {
	r.mu.RLock()
	plugins := r.onTransactionFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionFailed(ctx, op, txErr)
		}); err != nil {
			r.warn("OnTransactionFailed", p.Name(), err)
		}
	}
}

// Dispatch routes a typed payload to its specific hook.
func (r *Registry) Dispatch(ctx context.Context, p event.Payload) {
	switch v := p.(type) {
	case *event.Purchased:
		r.EmitPurchased(ctx, v)
	case *event.Renewed:
		r.EmitRenewed(ctx, v)
	case *event.Approval:
		r.EmitApproval(ctx, v)
	case *event.Transfer:
		r.EmitTransfer(ctx, v)
	case *event.BaseURIUpdated:
		r.EmitBaseURIUpdated(ctx, v)
	}
}

func (r *Registry) warn(hook, name string, err error) {
	r.logger.Warn("plugin "+hook+" failed",
		"plugin", name,
		"error", err,
	)
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the transaction pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(r.timeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}

package membership

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/membership/access"
	"github.com/xraph/membership/clock"
	"github.com/xraph/membership/event"
	"github.com/xraph/membership/id"
	"github.com/xraph/membership/metadata"
	"github.com/xraph/membership/plugin"
	"github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
	"github.com/xraph/membership/token"
	"github.com/xraph/membership/types"
	"github.com/xraph/membership/verification"
)

// Engine is the membership state machine. Mutating operations run one at
// a time; reads are served lock-free from the last committed snapshot.
type Engine struct {
	cfg      Config
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	clock    clock.Clock
	access   *access.Controller
	resolver metadata.Resolver

	skipMigrate bool

	mu      sync.Mutex // single writer
	current atomic.Pointer[state]
	started atomic.Bool
}

// New creates an Engine for cfg backed by s. Call Start before issuing
// transactions.
func New(cfg Config, s store.Store, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("membership: store is required")
	}

	ctrl, err := access.NewController(adminAddress(cfg))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		clock:   clock.Real(),
		access:  ctrl,
	}
	e.current.Store(newState(cfg))

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithClock sets the time source used for expirations and timestamps.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.plugins.WithTimeout(d)
	}
}

// WithoutMigrate makes Start load state without migrating the store
// first. Use it when the schema is managed out of band.
func WithoutMigrate() Option {
	return func(e *Engine) {
		e.skipMigrate = true
	}
}

// Start migrates the store, loads the committed state and initializes
// plugins.
func (e *Engine) Start(ctx context.Context) error {
	if !e.skipMigrate {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	snap, err := e.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("membership: load state: %w", err)
	}
	st, err := restoreState(e.cfg, snap)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.current.Store(st)
	e.started.Store(true)
	e.mu.Unlock()

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("membership started",
		"name", st.settings.Name,
		"symbol", st.settings.Symbol,
		"max_supply", st.settings.MaxSupply,
		"total_minted", st.tokens.TotalMinted(),
		"tiers", st.tiers.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.started.Store(false)
	e.mu.Unlock()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Config returns the construction-time configuration.
func (e *Engine) Config() Config { return e.cfg }

// Admin returns the admin identity.
func (e *Engine) Admin() types.Address { return e.access.Admin() }

// Name returns the collection name.
func (e *Engine) Name() string { return e.cfg.Name }

// Symbol returns the collection symbol.
func (e *Engine) Symbol() string { return e.cfg.Symbol }

// Currency returns the denomination of prices and payments.
func (e *Engine) Currency() string { return e.cfg.currency() }

// Price builds a Money value in the engine's currency.
func (e *Engine) Price(amount uint64) types.Money {
	return types.Units(amount, e.cfg.currency())
}

// ──────────────────────────────────────────────────
// Tier Management
// ──────────────────────────────────────────────────

// CreateTier appends an active tier. Admin only.
func (e *Engine) CreateTier(ctx context.Context, caller types.Address, price types.Money, duration time.Duration) (uint64, error) {
	var created *tier.Tier
	err := e.transact(ctx, "create_tier", func(tx *txn) error {
		if err := e.access.RequireAdmin(caller); err != nil {
			return err
		}
		if err := e.checkCurrency(price); err != nil {
			return err
		}

		t, err := tx.st.tiers.Create(price, duration, tx.now)
		if err != nil {
			return err
		}
		tx.touchTier(t.ID)
		tx.emit(&event.TierCreated{
			TierID:          t.ID,
			Price:           t.Price,
			DurationSeconds: t.DurationSeconds(),
			Admin:           caller.Normalize(),
		})
		created = t
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.plugins.EmitTierCreated(ctx, created)
	return created.ID, nil
}

// UpdateTier overwrites price, duration and active flag of a tier.
// Admin only.
func (e *Engine) UpdateTier(ctx context.Context, caller types.Address, tierID uint64, price types.Money, duration time.Duration, active bool) error {
	var prev, next *tier.Tier
	err := e.transact(ctx, "update_tier", func(tx *txn) error {
		if err := e.access.RequireAdmin(caller); err != nil {
			return err
		}
		if err := e.checkCurrency(price); err != nil {
			return err
		}

		var err error
		prev, next, err = tx.st.tiers.Update(tierID, price, duration, active, tx.now)
		if err != nil {
			return err
		}
		tx.touchTier(tierID)
		tx.emit(&event.TierUpdated{
			TierID:          tierID,
			Price:           next.Price,
			DurationSeconds: next.DurationSeconds(),
			Active:          next.Active,
			WasActive:       prev.Active,
			Admin:           caller.Normalize(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	e.plugins.EmitTierUpdated(ctx, prev, next)
	return nil
}

// GetTier returns a tier by id.
func (e *Engine) GetTier(_ context.Context, tierID uint64) (*tier.Tier, error) {
	return e.snapshot().tiers.Get(tierID)
}

// ListTiers returns all tiers in id order.
func (e *Engine) ListTiers(_ context.Context) []*tier.Tier {
	return e.snapshot().tiers.List()
}

// TierCount returns the number of tiers ever created.
func (e *Engine) TierCount(_ context.Context) uint64 {
	return e.snapshot().tiers.Count()
}

// ──────────────────────────────────────────────────
// Purchase & Renewal
// ──────────────────────────────────────────────────

// Purchase mints a token of tierID for buyer against an exact payment.
// Checks run in order: unknown tier, inactive tier, wrong price, supply.
func (e *Engine) Purchase(ctx context.Context, tierID uint64, paid types.Money, buyer types.Address) (uint64, error) {
	var tokenID uint64
	err := e.transact(ctx, "purchase", func(tx *txn) error {
		t, err := tx.st.tiers.Get(tierID)
		if err != nil {
			return err
		}
		if !t.Active {
			return fmt.Errorf("%w: tier %d", ErrInactiveTier, tierID)
		}
		if !paid.Equal(t.Price) {
			return wrongPrice(paid, t.Price)
		}

		tok, err := tx.st.tokens.Mint(buyer, t.ID, tx.now)
		if err != nil {
			return err
		}
		expiresAt := tx.st.expiries.Extend(tok.ID, t.Duration, tx.now)
		tx.touchToken(tok.ID)

		tx.emit(&event.Purchased{
			TokenID:   tok.ID,
			Buyer:     tok.Owner,
			TierID:    t.ID,
			ExpiresAt: expiresAt,
			Amount:    paid,
			PaymentID: id.NewPaymentID(),
		})
		tokenID = tok.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return tokenID, nil
}

// Renew extends a token by its tier's duration. The caller must own the
// token or be its approved operator. Inactive tiers can still be renewed.
func (e *Engine) Renew(ctx context.Context, tokenID uint64, paid types.Money, caller types.Address) (time.Time, error) {
	var expiresAt time.Time
	err := e.transact(ctx, "renew", func(tx *txn) error {
		if err := e.access.RequireOwnerOrApproved(tx.st.tokens, tokenID, caller); err != nil {
			return err
		}
		tok, err := tx.st.tokens.Get(tokenID)
		if err != nil {
			return err
		}
		t, err := tx.st.tiers.Get(tok.TierID)
		if err != nil {
			return fmt.Errorf("%w: token %d: %w", ErrStateCorrupt, tokenID, err)
		}
		if !paid.Equal(t.Price) {
			return wrongPrice(paid, t.Price)
		}

		prev, err := tx.st.expiries.ExpirationOf(tokenID)
		if err != nil {
			return err
		}
		expiresAt = tx.st.expiries.Extend(tokenID, t.Duration, tx.now)
		tx.touchToken(tokenID)

		tx.emit(&event.Renewed{
			TokenID:           tokenID,
			Caller:            caller.Normalize(),
			TierID:            t.ID,
			PreviousExpiresAt: prev,
			NewExpiresAt:      expiresAt,
			Amount:            paid,
			PaymentID:         id.NewPaymentID(),
		})
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// ──────────────────────────────────────────────────
// Ownership & Delegation
// ──────────────────────────────────────────────────

// Approve sets the single operator allowed to renew or transfer a token.
// Only the owner may approve; NoAddress clears the operator.
func (e *Engine) Approve(ctx context.Context, caller types.Address, tokenID uint64, operator types.Address) error {
	return e.transact(ctx, "approve", func(tx *txn) error {
		owner, err := tx.st.tokens.OwnerOf(tokenID)
		if err != nil {
			return err
		}
		if !owner.Equal(caller) {
			return fmt.Errorf("%w: only the owner can approve token %d", ErrUnauthorized, tokenID)
		}

		tok, err := tx.st.tokens.Approve(tokenID, operator, tx.now)
		if err != nil {
			return err
		}
		tx.touchToken(tokenID)
		tx.emit(&event.Approval{TokenID: tokenID, Owner: owner, Operator: tok.Approved})
		return nil
	})
}

// Transfer moves a token to a new owner. The owner or the approved
// operator may transfer; the approval is cleared. Expiration is kept.
func (e *Engine) Transfer(ctx context.Context, caller types.Address, tokenID uint64, to types.Address) error {
	return e.transact(ctx, "transfer", func(tx *txn) error {
		if err := e.access.RequireOwnerOrApproved(tx.st.tokens, tokenID, caller); err != nil {
			return err
		}

		from, tok, err := tx.st.tokens.Transfer(tokenID, to, tx.now)
		if err != nil {
			return err
		}
		tx.touchToken(tokenID)
		tx.emit(&event.Transfer{TokenID: tokenID, Caller: caller.Normalize(), From: from, To: tok.Owner})
		return nil
	})
}

// OwnerOf returns the owner of a token.
func (e *Engine) OwnerOf(_ context.Context, tokenID uint64) (types.Address, error) {
	return e.snapshot().tokens.OwnerOf(tokenID)
}

// GetApproved returns the approved operator of a token, or NoAddress.
func (e *Engine) GetApproved(_ context.Context, tokenID uint64) (types.Address, error) {
	return e.snapshot().tokens.GetApproved(tokenID)
}

// GetToken returns a token row.
func (e *Engine) GetToken(_ context.Context, tokenID uint64) (*token.Token, error) {
	return e.snapshot().tokens.Get(tokenID)
}

// BalanceOf returns the number of tokens owned by owner.
func (e *Engine) BalanceOf(_ context.Context, owner types.Address) uint64 {
	return e.snapshot().tokens.BalanceOf(owner)
}

// TokensOf returns the ids owned by owner.
func (e *Engine) TokensOf(_ context.Context, owner types.Address) []uint64 {
	return e.snapshot().tokens.TokensOf(owner)
}

// TotalMinted returns the number of tokens minted so far.
func (e *Engine) TotalMinted(_ context.Context) uint64 {
	return e.snapshot().tokens.TotalMinted()
}

// MaxSupply returns the supply cap.
func (e *Engine) MaxSupply() uint64 { return e.cfg.MaxSupply }

// ──────────────────────────────────────────────────
// Expiration & Membership
// ──────────────────────────────────────────────────

// IsActive reports whether a token has not yet expired.
func (e *Engine) IsActive(_ context.Context, tokenID uint64) (bool, error) {
	return e.snapshot().expiries.IsActive(tokenID, e.clock.Now())
}

// ExpirationOf returns when a token expires.
func (e *Engine) ExpirationOf(_ context.Context, tokenID uint64) (time.Time, error) {
	return e.snapshot().expiries.ExpirationOf(tokenID)
}

// IsMember reports whether addr owns at least one active token. The cost
// is linear in the number of minted tokens.
func (e *Engine) IsMember(_ context.Context, addr types.Address) bool {
	st := e.snapshot()
	return st.expiries.IsMember(st.tokens, addr, e.clock.Now())
}

// Verify returns a membership verdict for addr with the tokens backing it.
func (e *Engine) Verify(_ context.Context, addr types.Address) *verification.Result {
	st := e.snapshot()
	now := e.clock.Now()

	res := &verification.Result{
		Address:      addr.Normalize(),
		ActiveTokens: []verification.TokenStatus{},
		CheckedAt:    now.UTC(),
	}
	if addr.IsZero() {
		res.Reason = verification.ReasonInvalidHolder
		return res
	}

	res.Held = int(st.tokens.BalanceOf(addr))
	for _, tokenID := range st.expiries.ActiveTokens(st.tokens, addr, now) {
		tok, err := st.tokens.Get(tokenID)
		if err != nil {
			continue
		}
		exp, _ := st.expiries.ExpirationOf(tokenID) //nolint:errcheck // active tokens always have an expiration
		res.ActiveTokens = append(res.ActiveTokens, verification.TokenStatus{
			TokenID:   tokenID,
			TierID:    tok.TierID,
			ExpiresAt: exp,
		})
	}

	res.Member = len(res.ActiveTokens) > 0
	switch {
	case res.Member:
	case res.Held == 0:
		res.Reason = verification.ReasonNoTokens
	default:
		res.Reason = verification.ReasonAllExpired
	}
	return res
}

// ──────────────────────────────────────────────────
// Metadata
// ──────────────────────────────────────────────────

// BaseURI returns the current descriptor base URI.
func (e *Engine) BaseURI(_ context.Context) string {
	return e.snapshot().settings.BaseURI
}

// SetBaseURI changes the descriptor base URI. Admin only.
func (e *Engine) SetBaseURI(ctx context.Context, caller types.Address, uri string) error {
	return e.transact(ctx, "set_base_uri", func(tx *txn) error {
		if err := e.access.RequireAdmin(caller); err != nil {
			return err
		}
		prev := tx.st.settings.BaseURI
		tx.st.settings.BaseURI = uri
		tx.emit(&event.BaseURIUpdated{Admin: caller.Normalize(), Previous: prev, BaseURI: uri})
		return nil
	})
}

// TokenURI returns the descriptor location of a minted token.
func (e *Engine) TokenURI(_ context.Context, tokenID uint64) (string, error) {
	st := e.snapshot()
	if _, err := st.tokens.OwnerOf(tokenID); err != nil {
		return "", err
	}
	return e.resolver.TokenURI(st.settings.BaseURI, tokenID), nil
}

// ──────────────────────────────────────────────────
// Event Log
// ──────────────────────────────────────────────────

// Events reads the committed event log.
func (e *Engine) Events(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	return e.store.ListEvents(ctx, opts)
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// transact runs fn on a private copy of the state, commits the result and
// publishes it. On any error nothing is written or published. Plugins are
// notified after the writer lock is released so that hooks may call back
// into the engine.
func (e *Engine) transact(ctx context.Context, op string, fn func(tx *txn) error) error {
	tx, events, err := e.commit(ctx, op, fn)
	if err != nil {
		e.logger.Debug("membership transaction rejected",
			"op", op,
			"error", err,
		)
		e.plugins.EmitTransactionFailed(ctx, op, err)
		return err
	}

	e.logger.Info("membership transaction committed",
		"op", op,
		"transaction_id", tx.id.String(),
		"events", len(events),
	)

	for i, ev := range events {
		e.plugins.Dispatch(ctx, tx.payloads[i])
		e.plugins.EmitEventCommitted(ctx, ev)
	}
	return nil
}

func (e *Engine) commit(ctx context.Context, op string, fn func(tx *txn) error) (*txn, []*event.Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started.Load() {
		return nil, nil, ErrNotStarted
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	tx := newTxn(op, e.current.Load(), e.now())
	if err := fn(tx); err != nil {
		return nil, nil, err
	}

	cs, events, err := tx.changeset()
	if err != nil {
		return nil, nil, err
	}
	if err := e.store.Commit(ctx, cs); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrTransactionFailed, op, err)
	}

	e.current.Store(tx.st)
	return tx, events, nil
}

func (e *Engine) snapshot() *state { return e.current.Load() }

// now returns the transaction time at whole-second resolution.
func (e *Engine) now() time.Time {
	return e.clock.Now().UTC().Truncate(time.Second)
}

func (e *Engine) checkCurrency(price types.Money) error {
	if price.Currency != e.cfg.currency() {
		return fmt.Errorf("%w: price currency %q, expected %q", ErrInvalidInput, price.Currency, e.cfg.currency())
	}
	return nil
}

func wrongPrice(paid, price types.Money) error {
	return fmt.Errorf("%w: paid %s, price is %s", ErrWrongPrice, paid, price)
}

func adminAddress(cfg Config) types.Address {
	return types.NewAddress(cfg.Admin)
}

// Package postgres implements store.Store on PostgreSQL via grove.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
	"github.com/xraph/grove/migrate"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/store/sqlstore"
	"github.com/xraph/membership/tier"
)

// compile-time interface check
var _ mstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db     *grove.DB
	pg     *pgdriver.PgDB
	logger *slog.Logger
	closed atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open connects to dsn and returns a store on the new pool.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	pgdb := pgdriver.New()
	if err := pgdb.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("membership/postgres: open: %w", err)
	}
	db, err := grove.Open(pgdb)
	if err != nil {
		_ = pgdb.Close()
		return nil, fmt.Errorf("membership/postgres: open: %w", err)
	}
	return New(db, opts...), nil
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		pg:     pgdriver.Unwrap(db),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	if s.closed.Load() {
		return membership.ErrStoreClosed
	}
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("membership/postgres: create migration executor: %w", err)
	}
	res, err := migrate.NewOrchestrator(executor, Migrations).Migrate(ctx)
	if err != nil {
		return fmt.Errorf("membership/postgres: migration failed: %w", err)
	}
	if res != nil && len(res.Applied) > 0 {
		s.logger.Info("membership migrations applied",
			"group", Migrations.Name(),
			"count", len(res.Applied),
		)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return membership.ErrStoreClosed
	}
	return s.db.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// Load reads the full committed state inside one transaction.
func (s *Store) Load(ctx context.Context) (*mstore.Snapshot, error) {
	if s.closed.Load() {
		return nil, membership.ErrStoreClosed
	}

	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("membership/postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := &mstore.Snapshot{}

	var settings []sqlstore.SettingsModel
	if err := tx.NewSelect(&settings).
		Where("id = $1", sqlstore.SettingsRowID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/postgres: load settings: %w", err)
	}
	if len(settings) == 0 {
		return snap, nil
	}
	snap.Settings = sqlstore.FromSettingsModel(&settings[0])

	var tiers []sqlstore.TierModel
	if err := tx.NewSelect(&tiers).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/postgres: load tiers: %w", err)
	}
	snap.Tiers = make([]*tier.Tier, 0, len(tiers))
	for i := range tiers {
		t, err := sqlstore.FromTierModel(&tiers[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", membership.ErrStateCorrupt, err)
		}
		snap.Tiers = append(snap.Tiers, t)
	}

	var tokens []sqlstore.TokenModel
	if err := tx.NewSelect(&tokens).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/postgres: load tokens: %w", err)
	}
	snap.Tokens = make([]*mstore.TokenRecord, 0, len(tokens))
	for i := range tokens {
		snap.Tokens = append(snap.Tokens, sqlstore.FromTokenModel(&tokens[i]))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("membership/postgres: load: %w", err)
	}
	return snap, nil
}

// Commit writes the change set in a single database transaction.
func (s *Store) Commit(ctx context.Context, cs *mstore.Changeset) error {
	if s.closed.Load() {
		return membership.ErrStoreClosed
	}

	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("membership/postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NewInsert(sqlstore.ToSettingsModel(&cs.Settings)).
		OnConflict("(id) DO UPDATE").
		Set("base_uri = EXCLUDED.base_uri").
		Set("event_seq = EXCLUDED.event_seq").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("membership/postgres: upsert settings: %w", err)
	}

	for _, t := range cs.Tiers {
		if _, err := tx.NewInsert(sqlstore.ToTierModel(t)).
			OnConflict("(id) DO UPDATE").
			Set("price_amount = EXCLUDED.price_amount").
			Set("price_currency = EXCLUDED.price_currency").
			Set("duration_seconds = EXCLUDED.duration_seconds").
			Set("active = EXCLUDED.active").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("membership/postgres: upsert tier %d: %w", t.ID, err)
		}
	}

	for _, rec := range cs.Tokens {
		if _, err := tx.NewInsert(sqlstore.ToTokenModel(rec)).
			OnConflict("(id) DO UPDATE").
			Set("owner = EXCLUDED.owner").
			Set("approved = EXCLUDED.approved").
			Set("expires_at = EXCLUDED.expires_at").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("membership/postgres: upsert token %d: %w", rec.Token.ID, err)
		}
	}

	for _, ev := range cs.Events {
		if _, err := tx.NewInsert(sqlstore.ToEventModel(ev)).Exec(ctx); err != nil {
			return fmt.Errorf("membership/postgres: insert event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("membership/postgres: commit %s: %w", cs.TransactionID, err)
	}
	return nil
}

// ListEvents reads the event log in sequence order.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	if s.closed.Load() {
		return nil, membership.ErrStoreClosed
	}

	var models []sqlstore.EventModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	where := func(col string, v any) {
		argIdx++
		q = q.Where(fmt.Sprintf("%s $%d", col, argIdx), v)
	}
	if opts.Type != "" {
		where("type =", string(opts.Type))
	}
	if opts.TokenID != nil {
		where("token_id =", int64(*opts.TokenID))
	}
	if opts.TierID != nil {
		where("tier_id =", int64(*opts.TierID))
	}
	if !opts.Actor.IsZero() {
		where("actor =", string(opts.Actor.Normalize()))
	}
	if opts.AfterSeq > 0 {
		where("seq >", int64(opts.AfterSeq))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/postgres: list events: %w", err)
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		ev, err := sqlstore.FromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = ev
	}
	return result, nil
}

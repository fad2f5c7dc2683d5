// Package sqlite implements store.Store on SQLite via grove.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/event"
	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/store/sqlstore"
	"github.com/xraph/membership/tier"
)

// compile-time interface check
var _ mstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db     *grove.DB
	sdb    *sqlitedriver.SqliteDB
	logger *slog.Logger
	closed atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for migration progress.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open opens the database at dsn. SQLite allows a single writer, so the
// pool is capped at one connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, dsn, driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("membership/sqlite: open: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("membership/sqlite: open: %w", err)
	}
	return New(db, opts...), nil
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		sdb:    sqlitedriver.Unwrap(db),
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
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("membership/sqlite: create migration executor: %w", err)
	}
	res, err := migrate.NewOrchestrator(executor, Migrations).Migrate(ctx)
	if err != nil {
		return fmt.Errorf("membership/sqlite: migration failed: %w", err)
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

// Close closes the database.
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

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("membership/sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := &mstore.Snapshot{}

	var settings []sqlstore.SettingsModel
	if err := tx.NewSelect(&settings).
		Where("id = ?", sqlstore.SettingsRowID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/sqlite: load settings: %w", err)
	}
	if len(settings) == 0 {
		return snap, nil
	}
	snap.Settings = sqlstore.FromSettingsModel(&settings[0])

	var tiers []sqlstore.TierModel
	if err := tx.NewSelect(&tiers).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/sqlite: load tiers: %w", err)
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
		return nil, fmt.Errorf("membership/sqlite: load tokens: %w", err)
	}
	snap.Tokens = make([]*mstore.TokenRecord, 0, len(tokens))
	for i := range tokens {
		snap.Tokens = append(snap.Tokens, sqlstore.FromTokenModel(&tokens[i]))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("membership/sqlite: load: %w", err)
	}
	return snap, nil
}

// Commit writes the change set in a single database transaction.
func (s *Store) Commit(ctx context.Context, cs *mstore.Changeset) error {
	if s.closed.Load() {
		return membership.ErrStoreClosed
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return fmt.Errorf("membership/sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NewInsert(sqlstore.ToSettingsModel(&cs.Settings)).
		OnConflict("(id) DO UPDATE").
		Set("base_uri = excluded.base_uri").
		Set("event_seq = excluded.event_seq").
		Set("updated_at = excluded.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("membership/sqlite: upsert settings: %w", err)
	}

	for _, t := range cs.Tiers {
		if _, err := tx.NewInsert(sqlstore.ToTierModel(t)).
			OnConflict("(id) DO UPDATE").
			Set("price_amount = excluded.price_amount").
			Set("price_currency = excluded.price_currency").
			Set("duration_seconds = excluded.duration_seconds").
			Set("active = excluded.active").
			Set("updated_at = excluded.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("membership/sqlite: upsert tier %d: %w", t.ID, err)
		}
	}

	for _, rec := range cs.Tokens {
		if _, err := tx.NewInsert(sqlstore.ToTokenModel(rec)).
			OnConflict("(id) DO UPDATE").
			Set("owner = excluded.owner").
			Set("approved = excluded.approved").
			Set("expires_at = excluded.expires_at").
			Set("updated_at = excluded.updated_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("membership/sqlite: upsert token %d: %w", rec.Token.ID, err)
		}
	}

	for _, ev := range cs.Events {
		if _, err := tx.NewInsert(sqlstore.ToEventModel(ev)).Exec(ctx); err != nil {
			return fmt.Errorf("membership/sqlite: insert event %d: %w", ev.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("membership/sqlite: commit %s: %w", cs.TransactionID, err)
	}
	return nil
}

// ListEvents reads the event log in sequence order.
func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	if s.closed.Load() {
		return nil, membership.ErrStoreClosed
	}

	var models []sqlstore.EventModel
	q := s.sdb.NewSelect(&models)

	if opts.Type != "" {
		q = q.Where("type = ?", string(opts.Type))
	}
	if opts.TokenID != nil {
		q = q.Where("token_id = ?", int64(*opts.TokenID))
	}
	if opts.TierID != nil {
		q = q.Where("tier_id = ?", int64(*opts.TierID))
	}
	if !opts.Actor.IsZero() {
		q = q.Where("actor = ?", string(opts.Actor.Normalize()))
	}
	if opts.AfterSeq > 0 {
		q = q.Where("seq > ?", int64(opts.AfterSeq))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	q = q.OrderExpr("seq ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("membership/sqlite: list events: %w", err)
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

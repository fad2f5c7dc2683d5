package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the membership store (SQLite).
var Migrations = migrate.NewGroup("membership")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_membership_settings",
			Version: "20260501000001",
			Up: execAll(`
CREATE TABLE IF NOT EXISTS membership_settings (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    symbol     TEXT NOT NULL,
    max_supply INTEGER NOT NULL,
    admin      TEXT NOT NULL,
    currency   TEXT NOT NULL,
    base_uri   TEXT NOT NULL DEFAULT '',
    event_seq  INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`),
			Down: execAll(`DROP TABLE IF EXISTS membership_settings`),
		},
		&migrate.Migration{
			Name:    "create_membership_tiers",
			Version: "20260501000002",
			Up: execAll(`
CREATE TABLE IF NOT EXISTS membership_tiers (
    id               INTEGER PRIMARY KEY,
    price_amount     TEXT NOT NULL,
    price_currency   TEXT NOT NULL,
    duration_seconds INTEGER NOT NULL CHECK (duration_seconds > 0),
    active           BOOLEAN NOT NULL DEFAULT 1,
    created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`),
			Down: execAll(`DROP TABLE IF EXISTS membership_tiers`),
		},
		&migrate.Migration{
			Name:    "create_membership_tokens",
			Version: "20260501000003",
			Up: execAll(`
CREATE TABLE IF NOT EXISTS membership_tokens (
    id         INTEGER PRIMARY KEY,
    owner      TEXT NOT NULL,
    tier_id    INTEGER NOT NULL REFERENCES membership_tiers (id),
    approved   TEXT NOT NULL DEFAULT '',
    expires_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_membership_tokens_owner ON membership_tokens (owner)`,
				`CREATE INDEX IF NOT EXISTS idx_membership_tokens_expires ON membership_tokens (expires_at)`,
			),
			Down: execAll(`DROP TABLE IF EXISTS membership_tokens`),
		},
		&migrate.Migration{
			Name:    "create_membership_events",
			Version: "20260501000004",
			Up: execAll(`
CREATE TABLE IF NOT EXISTS membership_events (
    seq            INTEGER PRIMARY KEY,
    id             TEXT NOT NULL UNIQUE,
    transaction_id TEXT NOT NULL,
    type           TEXT NOT NULL,
    token_id       INTEGER,
    tier_id        INTEGER,
    actor          TEXT NOT NULL DEFAULT '',
    payload        TEXT NOT NULL DEFAULT '{}',
    occurred_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`,
				`CREATE INDEX IF NOT EXISTS idx_membership_events_type ON membership_events (type, seq)`,
				`CREATE INDEX IF NOT EXISTS idx_membership_events_token ON membership_events (token_id, seq)`,
				`CREATE INDEX IF NOT EXISTS idx_membership_events_tx ON membership_events (transaction_id)`,
			),
			Down: execAll(`DROP TABLE IF EXISTS membership_events`),
		},
	)
}

// execAll runs each statement in order.
func execAll(stmts ...string) migrate.MigrateFunc {
	return func(ctx context.Context, exec migrate.Executor) error {
		for _, stmt := range stmts {
			if _, err := exec.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

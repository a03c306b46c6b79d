package postgres

import (
	"context"

	"github.com/wonny/folio/backend/pkg/database"
)

// Schema is applied in order by EnsureSchema. Statements are idempotent.
var Schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		email      TEXT NOT NULL,
		name       TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notification_preferences (
		user_id              TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		email_enabled        BOOLEAN NOT NULL DEFAULT true,
		daily_update_enabled BOOLEAN NOT NULL DEFAULT true,
		weekends_enabled     BOOLEAN NOT NULL DEFAULT false,
		alert_threshold      DOUBLE PRECISION NOT NULL DEFAULT 5
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		symbol     TEXT NOT NULL,
		quantity   DOUBLE PRECISION NOT NULL,
		avg_cost   DOUBLE PRECISION NOT NULL,
		sector     TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS positions_user_id_idx ON positions (user_id)`,
	`CREATE TABLE IF NOT EXISTS daily_reports (
		id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id            TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		report_date        DATE NOT NULL,
		portfolio_value    DOUBLE PRECISION NOT NULL,
		change             DOUBLE PRECISION NOT NULL,
		change_percent     DOUBLE PRECISION NOT NULL,
		significant_movers JSONB NOT NULL DEFAULT '[]',
		sector_performance JSONB NOT NULL DEFAULT '[]',
		summary            TEXT NOT NULL DEFAULT '',
		email_sent         BOOLEAN NOT NULL DEFAULT false,
		email_sent_at      TIMESTAMPTZ,
		email_claimed_at   TIMESTAMPTZ,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// idempotency fence: one report per user per day, across every replica
	`CREATE UNIQUE INDEX IF NOT EXISTS daily_reports_user_date_uidx ON daily_reports (user_id, report_date)`,
	// send lease, added after the first release
	`ALTER TABLE daily_reports ADD COLUMN IF NOT EXISTS email_claimed_at TIMESTAMPTZ`,
}

// EnsureSchema creates missing tables and indexes in one transaction
func EnsureSchema(ctx context.Context, db database.TxBeginner) error {
	return database.ApplySchema(ctx, db, Schema)
}

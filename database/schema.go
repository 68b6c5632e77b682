package database

import (
	"context"
	"database/sql"
	"fmt"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS staff_users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		number TEXT NOT NULL,
		email TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		total NUMERIC(12, 2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_email ON orders (email)`,
	`CREATE TABLE IF NOT EXISTS order_meta (
		order_id BIGINT NOT NULL REFERENCES orders (id) ON DELETE CASCADE,
		meta_key TEXT NOT NULL,
		meta_value JSONB NOT NULL,
		PRIMARY KEY (order_id, meta_key)
	)`,
}

// EnsureSchema creates the tables the service needs when they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range postgresSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// EnsureJournalSchema creates the ClickHouse visit journal table.
func (c *ClickHouseClient) EnsureJournalSchema(ctx context.Context) error {
	err := c.Conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS visit_journal (
			event_id String,
			token String,
			timestamp DateTime,
			page_url String,
			referrer String,
			user_agent String,
			ip_address String
		) ENGINE = MergeTree()
		ORDER BY (token, timestamp)
	`)
	if err != nil {
		return fmt.Errorf("failed to create visit_journal: %w", err)
	}
	return nil
}

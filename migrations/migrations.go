// Package migrations holds the idempotent schema setup run at service start.
package migrations

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		cart_id TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		status TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		confirmation_code TEXT NOT NULL DEFAULT '',
		paid_at TIMESTAMPTZ,
		stock_updated BOOLEAN NOT NULL DEFAULT FALSE,
		total_cents BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_cart_idx ON orders (cart_id)`,
	`CREATE INDEX IF NOT EXISTS orders_sweep_idx ON orders (payment_status, status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		variant_sku TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 1),
		unit_price_cents BIGINT NOT NULL,
		discount_cents BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		stock INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS donations (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		donor_name TEXT NOT NULL,
		donor_email TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		amount_cents BIGINT NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		confirmation_code TEXT NOT NULL DEFAULT '',
		paid_at TIMESTAMPTZ,
		receipt_sent BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		item_count INT NOT NULL DEFAULT 0,
		subtotal_cents BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS carts_active_user_idx ON carts (user_id) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id BIGSERIAL PRIMARY KEY,
		cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		product_id TEXT NOT NULL DEFAULT '',
		course_id TEXT NOT NULL DEFAULT '',
		variant_sku TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		quantity INT NOT NULL CHECK (quantity >= 1),
		unit_price_cents BIGINT NOT NULL,
		added_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox (
		id BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		type TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		relay_id TEXT,
		lease_until TIMESTAMPTZ,
		retry_count INT NOT NULL DEFAULT 0,
		last_error TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_pending_idx ON outbox (status, id)`,
}

func Run(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

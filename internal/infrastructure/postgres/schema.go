package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema is applied idempotently at startup. Snapshot-style collections
// (order items, delivery log, addresses, cart items) live in JSONB columns
// because they are written and read whole, never queried per-row.
const Schema = `
CREATE TABLE IF NOT EXISTS sequences (
    name  TEXT PRIMARY KEY,
    value BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
    id              BIGINT PRIMARY KEY,
    name            TEXT NOT NULL,
    email           TEXT NOT NULL UNIQUE,
    addresses       JSONB NOT NULL DEFAULT '[]',
    order_count     INT NOT NULL DEFAULT 0,
    total_spent     NUMERIC(12,2) NOT NULL DEFAULT 0,
    is_admin        BOOLEAN NOT NULL DEFAULT FALSE,
    is_agent        BOOLEAN NOT NULL DEFAULT FALSE,
    agent_active    BOOLEAN NOT NULL DEFAULT FALSE,
    delivered_count INT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
    id         BIGINT PRIMARY KEY,
    name       TEXT NOT NULL,
    price      NUMERIC(12,2) NOT NULL,
    image_url  TEXT NOT NULL DEFAULT '',
    stock      INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS coupons (
    id               BIGINT PRIMARY KEY,
    code             TEXT NOT NULL UNIQUE,
    type             TEXT NOT NULL,
    value            NUMERIC(12,2) NOT NULL,
    min_order_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
    max_uses         INT NOT NULL DEFAULT 0,
    used_count       INT NOT NULL DEFAULT 0,
    expires_at       TIMESTAMPTZ NOT NULL,
    active           BOOLEAN NOT NULL DEFAULT TRUE,
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS carts (
    user_id    BIGINT PRIMARY KEY,
    items      JSONB NOT NULL DEFAULT '[]',
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
    id              BIGINT PRIMARY KEY,
    code            TEXT NOT NULL UNIQUE,
    user_id         BIGINT NOT NULL,
    idempotency_key TEXT NOT NULL DEFAULT '',
    items           JSONB NOT NULL,
    subtotal        NUMERIC(12,2) NOT NULL,
    shipping_fee    NUMERIC(12,2) NOT NULL,
    discount        NUMERIC(12,2) NOT NULL,
    total           NUMERIC(12,2) NOT NULL,
    coupon_code     TEXT NOT NULL DEFAULT '',
    payment_method  TEXT NOT NULL DEFAULT '',
    payment_status  TEXT NOT NULL,
    payment_ref     TEXT NOT NULL DEFAULT '',
    gateway_ref     TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    delivery_status TEXT NOT NULL,
    agent_id        BIGINT NOT NULL DEFAULT 0,
    delivery_log    JSONB NOT NULL DEFAULT '[]',
    address         JSONB NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL,
    delivery_due    TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS orders_idempotency_idx
    ON orders (user_id, idempotency_key) WHERE idempotency_key <> '';
CREATE UNIQUE INDEX IF NOT EXISTS orders_gateway_ref_idx
    ON orders (gateway_ref) WHERE gateway_ref <> '';
CREATE INDEX IF NOT EXISTS orders_user_idx ON orders (user_id, id DESC);
`

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS shops (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	description TEXT,
	category TEXT NOT NULL DEFAULT 'product',
	location TEXT,
	theme_color TEXT NOT NULL DEFAULT '#6366f1',
	dark_mode BOOLEAN NOT NULL DEFAULT FALSE,
	views_count INTEGER NOT NULL DEFAULT 0,
	clicks_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS products (
	id UUID PRIMARY KEY,
	shop_id UUID NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	description TEXT,
	price NUMERIC NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	image_urls TEXT[] NOT NULL DEFAULT '{}',
	position INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS custom_links (
	id UUID PRIMARY KEY,
	shop_id UUID NOT NULL REFERENCES shops(id) ON DELETE CASCADE,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS locked_links (
	id UUID PRIMARY KEY,
	owner_id UUID NOT NULL,
	shop_id UUID REFERENCES shops(id) ON DELETE SET NULL,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	target_url TEXT,
	file_url TEXT,
	password_hash TEXT NOT NULL,
	max_uses INTEGER,
	uses_count INTEGER NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CONSTRAINT locked_links_target CHECK (num_nonnulls(target_url, file_url) = 1),
	CONSTRAINT locked_links_uses CHECK (max_uses IS NULL OR uses_count <= max_uses)
);

CREATE INDEX IF NOT EXISTS idx_locked_links_owner ON locked_links(owner_id);
CREATE INDEX IF NOT EXISTS idx_products_shop ON products(shop_id);
CREATE INDEX IF NOT EXISTS idx_custom_links_shop ON custom_links(shop_id);
`

// Migrate applies the schema. Statements are idempotent so it runs at every
// startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

var schemaStatements = []string{
	`DO $$ BEGIN
		CREATE TYPE product_status AS ENUM ('pending', 'scraped', 'failed');
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`DO $$ BEGIN
		CREATE TYPE image_type AS ENUM ('thumbnail', 'detail');
	EXCEPTION WHEN duplicate_object THEN NULL;
	END $$`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		source_product_id TEXT NOT NULL UNIQUE,
		source_url TEXT NOT NULL,
		status product_status NOT NULL DEFAULT 'pending',
		title TEXT,
		price NUMERIC(12, 2),
		stock_quantity INT,
		crawled_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS product_images (
		id BIGSERIAL PRIMARY KEY,
		product_id BIGINT NOT NULL REFERENCES products (id) ON DELETE CASCADE,
		image_type image_type NOT NULL,
		original_url TEXT NOT NULL,
		sort_order INT NOT NULL,
		UNIQUE (product_id, image_type, sort_order)
	)`,
}

// EnsureSchema creates the enum types and tables when they are missing
func EnsureSchema(ctx context.Context, db DB) error {
	for i, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}

	log.Info("✅ Database schema ready")
	return nil
}

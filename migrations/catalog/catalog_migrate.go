package catalog

import (
	"database/sql"

	"contrast_engine/migrations/infrastructure"
)

type CreateStoresTable struct{}

func (m *CreateStoresTable) UpMigration(db *sql.DB) error {
	migrationName := "create_stores_table"

	skip, err := infrastructure.CheckAndSkipMigration(db, migrationName)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	query := `
	CREATE TABLE IF NOT EXISTS stores (
		store_id SERIAL PRIMARY KEY,
		store_name VARCHAR(255) NOT NULL UNIQUE,
		last_retrieved_on TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	);`

	return infrastructure.ExecuteAndMarkMigration(db, query, migrationName)
}

type CreateProductsTable struct{}

func (m *CreateProductsTable) UpMigration(db *sql.DB) error {
	migrationName := "create_products_table"

	skip, err := infrastructure.CheckAndSkipMigration(db, migrationName)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	query := `
	CREATE TABLE IF NOT EXISTS products (
		product_id SERIAL PRIMARY KEY,
		store_id INT NOT NULL REFERENCES stores(store_id),
		product_url TEXT NOT NULL UNIQUE,
		product_name TEXT NOT NULL,
		image_urls TEXT[] NOT NULL DEFAULT '{}',
		latest_price BIGINT,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp
	);

	CREATE INDEX IF NOT EXISTS idx_products_store_id ON products (store_id);`

	return infrastructure.ExecuteAndMarkMigration(db, query, migrationName)
}

type CreateProductPricesTable struct{}

func (m *CreateProductPricesTable) UpMigration(db *sql.DB) error {
	migrationName := "create_product_prices_table"

	skip, err := infrastructure.CheckAndSkipMigration(db, migrationName)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	query := `
	CREATE TABLE IF NOT EXISTS product_prices (
		id SERIAL PRIMARY KEY,
		product_id INT NOT NULL REFERENCES products(product_id),
		price BIGINT NOT NULL,
		retrieved_on TIMESTAMP NOT NULL DEFAULT current_timestamp
	);

	CREATE INDEX IF NOT EXISTS idx_product_prices_product_retrieved
		ON product_prices (product_id, retrieved_on);`

	return infrastructure.ExecuteAndMarkMigration(db, query, migrationName)
}

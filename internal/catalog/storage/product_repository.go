package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"contrast_engine/internal/catalog/models"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ExistingByURL bulk-checks which canonical URLs are already catalogued and
// returns their current mutable state, keyed by URL.
func (r *ProductRepository) ExistingByURL(ctx context.Context, q Execer, urls []string) (map[string]models.Product, error) {
	if len(urls) == 0 {
		return map[string]models.Product{}, nil
	}
	rows, err := q.QueryContext(ctx, `
		SELECT product_id, store_id, product_url, product_name, image_urls, latest_price, is_active
		FROM products
		WHERE product_url = ANY($1)`,
		pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing products: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]models.Product, len(urls))
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.StoreID, &p.URL, &p.Name, pq.Array(&p.ImageURLs), &p.LatestPrice, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		existing[p.URL] = p
	}
	return existing, rows.Err()
}

// BulkInsert inserts new products in one multi-row statement and returns the
// assigned ids keyed by canonical URL.
func (r *ProductRepository) BulkInsert(ctx context.Context, q Execer, products []models.Product) (map[string]int, error) {
	if len(products) == 0 {
		return map[string]int{}, nil
	}

	var sb strings.Builder
	sb.WriteString(`
		INSERT INTO products (store_id, product_url, product_name, image_urls, latest_price, is_active)
		VALUES `)
	args := make([]interface{}, 0, len(products)*6)
	for i, p := range products {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, p.StoreID, p.URL, p.Name, pq.Array(p.ImageURLs), p.LatestPrice, p.IsActive)
	}
	sb.WriteString(" RETURNING product_url, product_id")

	rows, err := q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert products: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int, len(products))
	for rows.Next() {
		var url string
		var id int
		if err := rows.Scan(&url, &id); err != nil {
			return nil, fmt.Errorf("failed to scan inserted product: %w", err)
		}
		ids[url] = id
	}
	return ids, rows.Err()
}

// BulkUpdate refreshes the mutable fields of existing products via a single
// VALUES join, the same shape the original bulk path used.
func (r *ProductRepository) BulkUpdate(ctx context.Context, q Execer, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`
		UPDATE products SET
			is_active = data.is_active,
			latest_price = data.latest_price,
			image_urls = data.image_urls,
			product_name = data.product_name
		FROM (VALUES `)
	args := make([]interface{}, 0, len(products)*5)
	for i, p := range products {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 5
		fmt.Fprintf(&sb, "($%d::int, $%d::boolean, $%d::bigint, $%d::text[], $%d::text)",
			base+1, base+2, base+3, base+4, base+5)
		args = append(args, p.ID, p.IsActive, p.LatestPrice, pq.Array(p.ImageURLs), p.Name)
	}
	sb.WriteString(`) AS data (product_id, is_active, latest_price, image_urls, product_name)
		WHERE products.product_id = data.product_id`)

	if _, err := q.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to bulk update products: %w", err)
	}
	return nil
}

// ListByStore returns every product belonging to a store, matched on the
// normalized store name. Revalidation walks this list.
func (r *ProductRepository) ListByStore(ctx context.Context, storeName string) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.product_id, p.store_id, p.product_url, p.product_name, p.image_urls, p.latest_price, p.is_active
		FROM products p
		JOIN stores s ON p.store_id = s.store_id
		WHERE s.store_name = $1`,
		NormalizeStoreName(storeName))
	if err != nil {
		return nil, fmt.Errorf("failed to list products for store %q: %w", storeName, err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.StoreID, &p.URL, &p.Name, pq.Array(&p.ImageURLs), &p.LatestPrice, &p.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Deactivate marks a product inactive after a terminal not-found signal.
// Products are never deleted.
func (r *ProductRepository) Deactivate(ctx context.Context, productID int) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE products SET is_active = FALSE WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to deactivate product %d: %w", productID, err)
	}
	return nil
}

func (r *ProductRepository) UpdateLatestPrice(ctx context.Context, productID int, price int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE products SET latest_price = $1 WHERE product_id = $2`, price, productID); err != nil {
		return fmt.Errorf("failed to update latest price for product %d: %w", productID, err)
	}
	return nil
}

func (r *ProductRepository) Close() error {
	return r.db.Close()
}

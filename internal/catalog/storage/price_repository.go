package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"contrast_engine/internal/catalog/models"
)

// PriceRepository writes the append-only price ledger. Records are inserted,
// never updated or deleted; whether a record is due at all is decided by the
// reconciler, not here.
type PriceRepository struct {
	db *sql.DB
}

func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Append writes a single ledger record, used by the revalidation writer.
func (r *PriceRepository) Append(ctx context.Context, productID int, price int64, retrievedOn time.Time) error {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO product_prices (product_id, price, retrieved_on)
		VALUES ($1, $2, $3)`,
		productID, price, retrievedOn); err != nil {
		return fmt.Errorf("failed to append price record for product %d: %w", productID, err)
	}
	return nil
}

// BulkInsert copies a batch of ledger records inside the batch transaction
// via COPY, the cheapest way lib/pq offers for many-row appends.
func (r *PriceRepository) BulkInsert(ctx context.Context, tx *sql.Tx, records []models.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("product_prices", "product_id", "price", "retrieved_on"))
	if err != nil {
		return fmt.Errorf("failed to prepare price copy: %w", err)
	}

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.ProductID, rec.Price, rec.RetrievedOn); err != nil {
			stmt.Close()
			return fmt.Errorf("failed to copy price record for product %d: %w", rec.ProductID, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("failed to flush price copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("failed to close price copy: %w", err)
	}
	return nil
}

func (r *PriceRepository) Close() error {
	return r.db.Close()
}

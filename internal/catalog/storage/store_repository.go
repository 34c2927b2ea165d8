package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"golang.org/x/text/cases"
)

const uniqueViolation = "23505"

// NormalizeStoreName is the canonical form used for store identity everywhere:
// surrounding whitespace stripped, Unicode case folded. Rows in stores carry
// the normalized name, so the unique constraint enforces normalized
// uniqueness. A Caser is stateful, so one is built per call.
func NormalizeStoreName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

type StoreRepository struct {
	db *sql.DB
}

func NewStoreRepository(db *sql.DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// ResolveAll maps store names to ids, creating missing stores and bumping
// last_retrieved_on for every resolved store. The whole set is handled in two
// statements regardless of size. Input names may be raw; the returned map is
// keyed by normalized name.
func (r *StoreRepository) ResolveAll(ctx context.Context, names []string) (map[string]int, error) {
	normalized := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		n := NormalizeStoreName(name)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	if len(normalized) == 0 {
		return map[string]int{}, nil
	}

	now := time.Now().UTC()
	resolved := make(map[string]int, len(normalized))

	rows, err := r.db.QueryContext(ctx, `
		UPDATE stores SET last_retrieved_on = $2
		WHERE store_name = ANY($1)
		RETURNING store_name, store_id`,
		pq.Array(normalized), now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve existing stores: %w", err)
	}
	if err := scanStoreRows(rows, resolved); err != nil {
		return nil, err
	}

	missing := make([]string, 0)
	for _, n := range normalized {
		if _, ok := resolved[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) == 0 {
		return resolved, nil
	}

	// Insert-or-fetch: the unique constraint decides the winner under
	// concurrent resolution; a loser that still observes a unique violation
	// re-runs and picks up the existing row.
	const insertAttempts = 3
	for attempt := 0; attempt < insertAttempts; attempt++ {
		rows, err = r.db.QueryContext(ctx, `
			INSERT INTO stores (store_name, last_retrieved_on, created_at)
			SELECT unnest($1::text[]), $2, $2
			ON CONFLICT (store_name) DO UPDATE SET last_retrieved_on = EXCLUDED.last_retrieved_on
			RETURNING store_name, store_id`,
			pq.Array(missing), now)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && attempt < insertAttempts-1 {
				continue
			}
			return nil, fmt.Errorf("failed to insert stores: %w", err)
		}
		if err := scanStoreRows(rows, resolved); err != nil {
			return nil, err
		}
		return resolved, nil
	}
	return resolved, nil
}

func scanStoreRows(rows *sql.Rows, into map[string]int) error {
	defer rows.Close()
	for rows.Next() {
		var name string
		var id int
		if err := rows.Scan(&name, &id); err != nil {
			return fmt.Errorf("failed to scan store row: %w", err)
		}
		into[name] = id
	}
	return rows.Err()
}

// Names returns every normalized store name in the catalog, for whole-catalog
// validation runs.
func (r *StoreRepository) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT store_name FROM stores ORDER BY store_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan store name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *StoreRepository) Close() error {
	return r.db.Close()
}

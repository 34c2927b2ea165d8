package migration

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrast_engine/internal/catalog/models"
	"contrast_engine/pkg/logger"
)

var testStoreIDs = map[string]int{
	"outfitters":  1,
	"fitted shop": 2,
}

func boolPtr(b bool) *bool { return &b }

func listing(store, name, url string, price interface{}) models.RawListing {
	return models.RawListing{
		Store:  store,
		Name:   name,
		URL:    url,
		Price:  price,
		Images: []string{"https://cdn.example.com/img/1.jpg"},
	}
}

func TestPlanBatchInsertsNewProducts(t *testing.T) {
	now := time.Now().UTC()
	listings := []models.RawListing{
		listing("Outfitters", "Denim Jacket", "https://outfitters.example.com/p/1", "Rs. 4,999"),
		listing("Fitted Shop", "Cap", "https://fitted.example.com/p/9", "999"),
	}

	plan := planBatch(listings, testStoreIDs, map[string]models.Product{}, now)

	require.Len(t, plan.Inserts, 2)
	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Records)
	assert.Empty(t, plan.Rejects)

	first := plan.Inserts[0]
	assert.Equal(t, 1, first.StoreID)
	assert.Equal(t, "Denim Jacket", first.Name)
	assert.Equal(t, int64(499900), first.LatestPrice)
	assert.True(t, first.IsActive)
}

func TestPlanBatchRejectsInvalidListings(t *testing.T) {
	bad := []models.RawListing{
		listing("Nowhere", "Hat", "https://x.example.com/p/1", "100"),
		listing("Outfitters", "", "https://x.example.com/p/2", "100"),
		listing("Outfitters", "Hat", "not a url", "100"),
		listing("Outfitters", "Hat", "https://x.example.com/p/4", "free"),
		{
			Store:  "Outfitters",
			Name:   "Hat",
			URL:    "https://x.example.com/p/5",
			Price:  "100",
			Images: []string{"not a url"},
		},
	}

	plan := planBatch(bad, testStoreIDs, map[string]models.Product{}, time.Now().UTC())

	assert.Empty(t, plan.Inserts)
	assert.Empty(t, plan.Updates)
	require.Len(t, plan.Rejects, len(bad))
	assert.Equal(t, "unknown store", plan.Rejects[0].Reason)
	assert.Equal(t, "empty product name", plan.Rejects[1].Reason)
	assert.Equal(t, "malformed product url", plan.Rejects[2].Reason)
	assert.Contains(t, plan.Rejects[3].Reason, "unusable price")
	assert.Equal(t, "no well-formed image urls", plan.Rejects[4].Reason)
}

func TestPlanBatchIdempotentOnUnchangedSnapshot(t *testing.T) {
	url := "https://outfitters.example.com/p/1"
	existing := map[string]models.Product{
		url: {
			ID:          10,
			StoreID:     1,
			URL:         url,
			Name:        "Denim Jacket",
			ImageURLs:   []string{"https://cdn.example.com/img/1.jpg"},
			LatestPrice: 499900,
			IsActive:    true,
		},
	}

	plan := planBatch(
		[]models.RawListing{listing("Outfitters", "Denim Jacket", url, "Rs. 4,999")},
		testStoreIDs, existing, time.Now().UTC())

	assert.Empty(t, plan.Inserts)
	assert.Empty(t, plan.Updates, "unchanged product must not be rewritten")
	assert.Empty(t, plan.Records, "unchanged price must not grow the ledger")
}

func TestPlanBatchRecordsPriceChangeOnce(t *testing.T) {
	url := "https://outfitters.example.com/p/1"
	existing := map[string]models.Product{
		url: {
			ID:          10,
			StoreID:     1,
			URL:         url,
			Name:        "Denim Jacket",
			ImageURLs:   []string{"https://cdn.example.com/img/1.jpg"},
			LatestPrice: 499900,
			IsActive:    true,
		},
	}

	plan := planBatch(
		[]models.RawListing{listing("Outfitters", "Denim Jacket", url, "Rs. 3,999")},
		testStoreIDs, existing, time.Now().UTC())

	require.Len(t, plan.Updates, 1)
	assert.Equal(t, int64(399900), plan.Updates[0].LatestPrice)
	require.Len(t, plan.Records, 1)
	assert.Equal(t, 10, plan.Records[0].ProductID)
	assert.Equal(t, int64(399900), plan.Records[0].Price)
}

func TestPlanBatchDeactivatesWithoutLedgerRecord(t *testing.T) {
	url := "https://outfitters.example.com/p/1"
	existing := map[string]models.Product{
		url: {
			ID:          10,
			StoreID:     1,
			URL:         url,
			Name:        "Denim Jacket",
			ImageURLs:   []string{"https://cdn.example.com/img/1.jpg"},
			LatestPrice: 499900,
			IsActive:    true,
		},
	}

	gone := listing("Outfitters", "Denim Jacket", url, "Rs. 3,999")
	gone.IsActive = boolPtr(false)

	plan := planBatch([]models.RawListing{gone}, testStoreIDs, existing, time.Now().UTC())

	require.Len(t, plan.Updates, 1)
	assert.False(t, plan.Updates[0].IsActive)
	assert.Equal(t, int64(499900), plan.Updates[0].LatestPrice, "stored price untouched on deactivation")
	assert.Empty(t, plan.Records, "status change writes no price record")
}

func TestPlanBatchDuplicateURLLastWriterWins(t *testing.T) {
	url := "https://outfitters.example.com/p/1"
	listings := []models.RawListing{
		listing("Outfitters", "Denim Jacket", url, "Rs. 4,999"),
		listing("Outfitters", "Denim Jacket v2", url, "Rs. 5,499"),
	}

	plan := planBatch(listings, testStoreIDs, map[string]models.Product{}, time.Now().UTC())

	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, "Denim Jacket v2", plan.Inserts[0].Name)
	assert.Equal(t, int64(549900), plan.Inserts[0].LatestPrice)
}

func TestRunReportIsRunScoped(t *testing.T) {
	// No server listens on port 1; every batch fails at store resolution,
	// which is enough to exercise the counters.
	db, err := sql.Open("postgres", "host=127.0.0.1 port=1 user=x password=x dbname=x sslmode=disable")
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(db, 10, 1, logger.NewLogger(os.Stderr, ""))

	run := func() Report {
		src := NewSliceSource([]models.RawListing{
			listing("Outfitters", "Cap", "https://outfitters.example.com/p/1", "999"),
		})
		report, err := m.Run(context.Background(), src)
		require.NoError(t, err)
		return report
	}

	first := run()
	assert.Equal(t, 1, first.Processed)
	assert.Equal(t, 1, first.FailedBatches)

	second := run()
	assert.Equal(t, first, second, "a reused migrator must not carry counts across runs")
}

func TestSliceSourcePaging(t *testing.T) {
	listings := make([]models.RawListing, 5)
	src := NewSliceSource(listings)
	ctx := context.Background()

	page, err := src.Next(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = src.Next(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = src.Next(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = src.Next(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

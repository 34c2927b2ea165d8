package migration

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"contrast_engine/internal/catalog/business"
	"contrast_engine/internal/catalog/models"
	"contrast_engine/internal/catalog/storage"
	"contrast_engine/metrics"
	"contrast_engine/pkg/logger"
)

// Migrator moves staged listings into the catalog in transactional batches.
// A failed batch rolls back and is counted, the run keeps going.
type Migrator struct {
	db       *sql.DB
	stores   *storage.StoreRepository
	products *storage.ProductRepository
	prices   *storage.PriceRepository

	batchSize int
	workers   int

	log logger.Logger
}

func NewMigrator(db *sql.DB, batchSize, workers int, log logger.Logger) *Migrator {
	log.SetPrefix("[migrator]")
	return &Migrator{
		db:        db,
		stores:    storage.NewStoreRepository(db),
		products:  storage.NewProductRepository(db),
		prices:    storage.NewPriceRepository(db),
		batchSize: batchSize,
		workers:   workers,
		log:       log,
	}
}

// Report aggregates a whole run. Rejected counts listings dropped by
// validation; FailedBatches counts batches rolled back after a storage error.
type Report struct {
	Processed     int
	Inserted      int
	Updated       int
	PriceChanges  int
	Rejected      int
	FailedBatches int
}

// Run drains the source page by page and dispatches each page to the worker
// pool. Counters live on the stack of each call, so reports cover exactly one
// run even when a Migrator is reused; the prometheus counters stay cumulative.
// Cross-batch writes to the same URL are last-writer-wins.
func (m *Migrator) Run(ctx context.Context, src Source) (Report, error) {
	var pm metrics.PipelineMetrics
	var failedBatches atomic.Int32

	group := new(errgroup.Group)
	group.SetLimit(m.workers)

	batchNum := 0
	for {
		listings, err := src.Next(ctx, m.batchSize)
		if err != nil {
			_ = group.Wait()
			return runReport(&pm, failedBatches.Load()), fmt.Errorf("failed to read staging page: %w", err)
		}
		if len(listings) == 0 {
			break
		}
		batchNum++
		num := batchNum
		group.Go(func() error {
			pm.GoroutinesCount.Add(1)
			defer pm.GoroutinesCount.Add(-1)

			start := time.Now()
			if err := m.processBatch(ctx, listings, &pm); err != nil {
				m.log.Log("batch %d failed: %v", num, err)
				failedBatches.Add(1)
				metrics.RecordBatch(true, time.Since(start))
				return nil
			}
			metrics.RecordBatch(false, time.Since(start))
			return nil
		})
	}
	_ = group.Wait()

	report := runReport(&pm, failedBatches.Load())
	m.log.Log("run finished: processed=%d inserted=%d updated=%d priceChanges=%d rejected=%d failedBatches=%d",
		report.Processed, report.Inserted, report.Updated, report.PriceChanges, report.Rejected, report.FailedBatches)
	return report, nil
}

func runReport(pm *metrics.PipelineMetrics, failedBatches int32) Report {
	return Report{
		Processed:     int(pm.ProcessedCount.Load()),
		Inserted:      int(pm.InsertedCount.Load()),
		Updated:       int(pm.UpdatedCount.Load()),
		PriceChanges:  int(pm.PriceChangesCount.Load()),
		Rejected:      int(pm.RejectedCount.Load()),
		FailedBatches: int(failedBatches),
	}
}

func (m *Migrator) processBatch(ctx context.Context, listings []models.RawListing, pm *metrics.PipelineMetrics) error {
	pm.ProcessedCount.Add(int32(len(listings)))

	names := make([]string, 0, len(listings))
	for _, l := range listings {
		names = append(names, l.Store)
	}
	// Store rows commit on their own so a rolled back batch cannot orphan
	// them, and concurrent batches converge on the same ids.
	storeIDs, err := m.stores.ResolveAll(ctx, names)
	if err != nil {
		return fmt.Errorf("failed to resolve stores: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	urls := make([]string, 0, len(listings))
	for _, l := range listings {
		if l.URL != "" {
			urls = append(urls, l.URL)
		}
	}
	existing, err := m.products.ExistingByURL(ctx, tx, urls)
	if err != nil {
		return err
	}

	plan := planBatch(listings, storeIDs, existing, time.Now().UTC())
	for _, reject := range plan.Rejects {
		m.log.Log("rejected listing %q: %s", reject.URL, reject.Reason)
	}

	insertedIDs, err := m.products.BulkInsert(ctx, tx, plan.Inserts)
	if err != nil {
		return err
	}
	if err := m.products.BulkUpdate(ctx, tx, plan.Updates); err != nil {
		return err
	}

	records := plan.Records
	for _, p := range plan.Inserts {
		id, ok := insertedIDs[p.URL]
		if !ok {
			return fmt.Errorf("no id returned for inserted product %q", p.URL)
		}
		records = append(records, models.PriceRecord{
			ProductID:   id,
			Price:       p.LatestPrice,
			RetrievedOn: plan.RetrievedOn,
		})
	}
	if err := m.prices.BulkInsert(ctx, tx, records); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	pm.InsertedCount.Add(int32(len(plan.Inserts)))
	pm.UpdatedCount.Add(int32(len(plan.Updates)))
	pm.RejectedCount.Add(int32(len(plan.Rejects)))
	pm.PriceChangesCount.Add(int32(len(records)))
	for range records {
		metrics.RecordPriceChange()
	}
	return nil
}

// Reject is one listing dropped by validation, with the reason for the log.
type Reject struct {
	URL    string
	Reason string
}

// BatchPlan is the write set for one batch. Inserts carry their first
// observed price in LatestPrice; their ledger records are built after the
// insert returns ids. Records holds the ledger appends for changed existing
// products.
type BatchPlan struct {
	Inserts     []models.Product
	Updates     []models.Product
	Records     []models.PriceRecord
	Rejects     []Reject
	RetrievedOn time.Time
}

// planBatch validates a page of listings against the current catalog state
// and decides every write the batch needs. It touches no storage, which is
// what makes the batch semantics testable without a database.
//
// Duplicate URLs within a page are last-writer-wins: later listings replace
// earlier ones before any write is planned.
func planBatch(listings []models.RawListing, storeIDs map[string]int, existing map[string]models.Product, now time.Time) BatchPlan {
	plan := BatchPlan{RetrievedOn: now}

	valid := make(map[string]validListing, len(listings))
	order := make([]string, 0, len(listings))
	for _, l := range listings {
		v, reject := validate(l, storeIDs)
		if reject != "" {
			plan.Rejects = append(plan.Rejects, Reject{URL: l.URL, Reason: reject})
			continue
		}
		if _, seen := valid[v.url]; !seen {
			order = append(order, v.url)
		}
		valid[v.url] = v
	}

	for _, u := range order {
		v := valid[u]
		current, exists := existing[u]
		if !exists {
			plan.Inserts = append(plan.Inserts, models.Product{
				StoreID:     v.storeID,
				URL:         v.url,
				Name:        v.name,
				ImageURLs:   v.images,
				LatestPrice: v.price,
				IsActive:    v.active,
			})
			continue
		}

		observed := business.Observation{Price: &v.price, IsActive: v.active}
		decision := business.Decide(business.State{LatestPrice: current.LatestPrice, IsActive: current.IsActive}, observed)

		updated := current
		updated.Name = v.name
		updated.ImageURLs = v.images
		updated.IsActive = v.active
		if decision.UpdatePrice {
			updated.LatestPrice = decision.NewPrice
			plan.Records = append(plan.Records, models.PriceRecord{
				ProductID:   current.ID,
				Price:       decision.NewPrice,
				RetrievedOn: now,
			})
		}
		if productChanged(current, updated) {
			plan.Updates = append(plan.Updates, updated)
		}
	}
	return plan
}

type validListing struct {
	storeID int
	url     string
	name    string
	images  []string
	price   int64
	active  bool
}

func validate(l models.RawListing, storeIDs map[string]int) (validListing, string) {
	storeID, ok := storeIDs[storage.NormalizeStoreName(l.Store)]
	if !ok {
		return validListing{}, "unknown store"
	}
	if l.Name == "" {
		return validListing{}, "empty product name"
	}
	if !wellFormedURL(l.URL) {
		return validListing{}, "malformed product url"
	}

	images := make([]string, 0, len(l.Images))
	for _, img := range l.Images {
		if wellFormedURL(img) {
			images = append(images, img)
		}
	}
	if len(images) == 0 {
		return validListing{}, "no well-formed image urls"
	}

	price, err := business.ParseListingPrice(l.Price)
	if err != nil {
		return validListing{}, fmt.Sprintf("unusable price: %v", err)
	}

	return validListing{
		storeID: storeID,
		url:     l.URL,
		name:    l.Name,
		images:  images,
		price:   price,
		active:  l.Active(),
	}, ""
}

func wellFormedURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func productChanged(current, updated models.Product) bool {
	if current.Name != updated.Name ||
		current.IsActive != updated.IsActive ||
		current.LatestPrice != updated.LatestPrice {
		return true
	}
	if len(current.ImageURLs) != len(updated.ImageURLs) {
		return true
	}
	for i := range current.ImageURLs {
		if current.ImageURLs[i] != updated.ImageURLs[i] {
			return true
		}
	}
	return false
}

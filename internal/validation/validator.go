package validation

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"contrast_engine/config"
	"contrast_engine/internal/catalog/business"
	"contrast_engine/internal/catalog/models"
	"contrast_engine/internal/catalog/storage"
	"contrast_engine/metrics"
	"contrast_engine/pkg/logger"
)

// Result is one product's revalidation observation. A nil Price means the
// page yielded no usable price; err marks an abandoned fetch after the retry
// budget ran out.
type Result struct {
	ProductID int
	Price     *int64
	IsActive  bool

	err error
}

// Report aggregates a validation run.
type Report struct {
	Products     int
	Updated      int
	Deactivated  int
	PriceChanges int
	Skipped      int
	Failed       int
}

func (r *Report) add(other Report) {
	r.Products += other.Products
	r.Updated += other.Updated
	r.Deactivated += other.Deactivated
	r.PriceChanges += other.PriceChanges
	r.Skipped += other.Skipped
	r.Failed += other.Failed
}

// storeCatalog, productCatalog and priceLedger are the slices of the storage
// repositories the validator writes through.
type storeCatalog interface {
	Names(ctx context.Context) ([]string, error)
}

type productCatalog interface {
	ListByStore(ctx context.Context, storeName string) ([]models.Product, error)
	Deactivate(ctx context.Context, productID int) error
	UpdateLatestPrice(ctx context.Context, productID int, price int64) error
}

type priceLedger interface {
	Append(ctx context.Context, productID int, price int64, retrievedOn time.Time) error
}

// Validator re-checks catalogued products against their live pages. Fetches
// fan out under a concurrency cap; all database writes happen on the calling
// goroutine after the fan-in.
type Validator struct {
	stores   storeCatalog
	products productCatalog
	prices   priceLedger

	registry    *SelectorRegistry
	fetcher     *Fetcher
	concurrency int

	log logger.Logger
}

func NewValidator(db *sql.DB, registry *SelectorRegistry, cfg config.ValidationConfig, log logger.Logger) *Validator {
	log.SetPrefix("[validator]")

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &Validator{
		stores:      storage.NewStoreRepository(db),
		products:    storage.NewProductRepository(db),
		prices:      storage.NewPriceRepository(db),
		registry:    registry,
		fetcher:     NewFetcher(FetchPolicy{Attempts: cfg.Attempts, Timeout: cfg.FetchTimeout()}, limiter, log),
		concurrency: cfg.Concurrency,
		log:         log,
	}
}

// ValidateStore revalidates every product of one store. Selector absence is
// returned as ErrNoSelectors before any product is touched.
func (v *Validator) ValidateStore(ctx context.Context, storeName string) (Report, error) {
	selectors, err := v.registry.SelectorsFor(storeName)
	if err != nil {
		return Report{}, err
	}

	products, err := v.products.ListByStore(ctx, storeName)
	if err != nil {
		return Report{}, err
	}
	v.log.Log("validating %d products for store %q", len(products), storeName)

	results := v.fanOut(ctx, storeName, products, selectors)

	byID := make(map[int]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return v.apply(ctx, byID, results)
}

// fanOut fetches all products concurrently, capped by the semaphore, and
// returns the closed results channel once every fetch has produced a Result.
func (v *Validator) fanOut(ctx context.Context, storeName string, products []models.Product, selectors []string) <-chan Result {
	results := make(chan Result, len(products))
	sem := make(chan struct{}, v.concurrency)
	var wg sync.WaitGroup
	for _, p := range products {
		wg.Add(1)
		go func(p models.Product) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- v.check(ctx, storeName, p, selectors)
		}(p)
	}
	wg.Wait()
	close(results)
	return results
}

// ValidateAll walks every store in the catalog sequentially. Stores without
// selectors are logged and skipped; the run continues.
func (v *Validator) ValidateAll(ctx context.Context) (Report, error) {
	names, err := v.stores.Names(ctx)
	if err != nil {
		return Report{}, err
	}

	var total Report
	for _, name := range names {
		report, err := v.ValidateStore(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNoSelectors) {
				v.log.Log("skipping store %q: %v", name, err)
				continue
			}
			return total, err
		}
		total.add(report)
	}
	return total, nil
}

// check fetches and extracts one product. It always produces a Result so the
// fan-in sees exactly one entry per product.
func (v *Validator) check(ctx context.Context, storeName string, p models.Product, selectors []string) Result {
	html, gone, err := v.fetcher.Fetch(ctx, storeName, p.URL)
	if err != nil {
		return Result{ProductID: p.ID, IsActive: p.IsActive, err: err}
	}
	if gone {
		return Result{ProductID: p.ID, IsActive: false}
	}

	price, err := ExtractPrice(html, selectors)
	if err != nil {
		v.log.Log("no price extracted for %s: %v", p.URL, err)
		return Result{ProductID: p.ID, IsActive: p.IsActive}
	}
	return Result{ProductID: p.ID, Price: &price, IsActive: true}
}

// apply is the single writer: it drains the gathered results and persists
// the reconciler's decisions one product at a time.
func (v *Validator) apply(ctx context.Context, byID map[int]models.Product, results <-chan Result) (Report, error) {
	report := Report{Products: len(byID)}
	now := time.Now().UTC()

	for res := range results {
		if res.err != nil {
			report.Failed++
			continue
		}

		current, ok := byID[res.ProductID]
		if !ok {
			continue
		}
		decision := business.Decide(
			business.State{LatestPrice: current.LatestPrice, IsActive: current.IsActive},
			business.Observation{Price: res.Price, IsActive: res.IsActive},
		)

		switch {
		case decision.Deactivate:
			if err := v.products.Deactivate(ctx, res.ProductID); err != nil {
				return report, err
			}
			report.Deactivated++
			report.Updated++
		case decision.UpdatePrice:
			if err := v.products.UpdateLatestPrice(ctx, res.ProductID, decision.NewPrice); err != nil {
				return report, err
			}
			if err := v.prices.Append(ctx, res.ProductID, decision.NewPrice, now); err != nil {
				return report, err
			}
			metrics.RecordPriceChange()
			report.PriceChanges++
			report.Updated++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

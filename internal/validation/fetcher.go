package validation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"contrast_engine/metrics"
	"contrast_engine/pkg/logger"
)

// FetchPolicy bounds one product page fetch: how many attempts a transient
// failure is granted and how long each attempt may run. Terminal signals
// (404/410) never retry.
type FetchPolicy struct {
	Attempts int
	Timeout  time.Duration
}

// Fetcher retrieves product pages with bounded retries and an optional
// request rate limit shared across the run.
type Fetcher struct {
	client  *http.Client
	policy  FetchPolicy
	limiter *rate.Limiter
	log     logger.Logger
}

func NewFetcher(policy FetchPolicy, limiter *rate.Limiter, log logger.Logger) *Fetcher {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	return &Fetcher{
		client:  &http.Client{},
		policy:  policy,
		limiter: limiter,
		log:     log,
	}
}

// Fetch returns the page HTML, or gone=true when the page reported a
// terminal not-found status. Timeouts, connection errors and other non-2xx
// statuses are retried up to the policy's attempt count; the error is
// non-nil only once all attempts are spent.
func (f *Fetcher) Fetch(ctx context.Context, store, pageURL string) (html string, gone bool, err error) {
	for attempt := 1; attempt <= f.policy.Attempts; attempt++ {
		if f.limiter != nil {
			if err := f.limiter.Wait(ctx); err != nil {
				return "", false, err
			}
		}

		html, gone, err = f.fetchOnce(ctx, store, pageURL)
		if err == nil {
			return html, gone, nil
		}
		f.log.Log("fetch %s failed (attempt %d/%d): %v", pageURL, attempt, f.policy.Attempts, err)
	}
	return "", false, err
}

func (f *Fetcher) fetchOnce(ctx context.Context, store, pageURL string) (string, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.policy.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordFetch(store, 0, time.Since(start))
		return "", false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordFetch(store, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", true, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("failed to read response body: %w", err)
	}
	return string(body), false, nil
}

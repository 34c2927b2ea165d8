package validation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrast_engine/pkg/logger"
)

func testFetcher(attempts int) *Fetcher {
	return NewFetcher(FetchPolicy{Attempts: attempts, Timeout: 2 * time.Second}, nil,
		logger.NewLogger(os.Stderr, "[test]"))
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<span class="money">Rs. 999</span>`))
	}))
	defer server.Close()

	html, gone, err := testFetcher(3).Fetch(context.Background(), "outfitters", server.URL)
	require.NoError(t, err)
	assert.False(t, gone)
	assert.Contains(t, html, "Rs. 999")
}

func TestFetchNotFoundIsTerminal(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, gone, err := testFetcher(3).Fetch(context.Background(), "outfitters", server.URL)
	require.NoError(t, err)
	assert.True(t, gone)
	assert.Equal(t, int32(1), hits.Load(), "terminal status must not be retried")
}

func TestFetchGoneIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	_, gone, err := testFetcher(3).Fetch(context.Background(), "outfitters", server.URL)
	require.NoError(t, err)
	assert.True(t, gone)
}

func TestFetchServerErrorIsRetried(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, gone, err := testFetcher(3).Fetch(context.Background(), "outfitters", server.URL)
	assert.Error(t, err)
	assert.False(t, gone)
	assert.Equal(t, int32(3), hits.Load(), "transient status retried up to the attempt budget")
}

func TestFetchRecoversWithinAttemptBudget(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	html, gone, err := testFetcher(3).Fetch(context.Background(), "outfitters", server.URL)
	require.NoError(t, err)
	assert.False(t, gone)
	assert.Equal(t, "ok", html)
	assert.Equal(t, int32(3), hits.Load())
}

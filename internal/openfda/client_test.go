package openfda

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KennyGael/Hazard-Atlas/internal/config"
	"github.com/KennyGael/Hazard-Atlas/internal/resilience"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// newTestClient points a Client at srv with near-zero retry backoff so
// failure tests run quickly.
func newTestClient(srv *httptest.Server, apiKey string) *Client {
	c := NewClient(config.OpenFDAConfig{BaseURL: srv.URL, APIKey: apiKey})
	c.retry.InitialBackoff = time.Millisecond
	return c
}

// enforcementHandler serves pages from a fixed-size synthetic dataset using
// openFDA limit/skip semantics.
func enforcementHandler(total int, requests *atomic.Int32, pages *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		if pages != nil {
			*pages = append(*pages, fmt.Sprintf("limit=%d skip=%d", limit, skip))
		}

		var results []json.RawMessage
		for i := skip; i < total && len(results) < limit; i++ {
			results = append(results, json.RawMessage(
				fmt.Sprintf(`{"recall_number":"F-%04d","report_date":"20210315"}`, i)))
		}
		writeSearchResponse(w, results)
	}
}

func writeSearchResponse(w http.ResponseWriter, results []json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"meta":    map[string]any{"results": map[string]int{"total": len(results)}},
		"results": results,
	})
}

func TestFetchAll_Pagination(t *testing.T) {
	var requests atomic.Int32
	var pages []string
	srv := httptest.NewServer(enforcementHandler(260, &requests, &pages))
	defer srv.Close()

	c := newTestClient(srv, "")
	records, err := c.FetchAll(context.Background(), foodEndpoint, 250, 100)
	require.NoError(t, err)

	assert.Len(t, records, 250)
	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, []string{"limit=100 skip=0", "limit=100 skip=100", "limit=50 skip=200"}, pages)
}

func TestFetchAll_EarlyTermination(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(enforcementHandler(130, &requests, nil))
	defer srv.Close()

	c := newTestClient(srv, "")
	records, err := c.FetchAll(context.Background(), foodEndpoint, 500, 100)
	require.NoError(t, err)

	// Second page returns 30 < 100, signaling end-of-data.
	assert.Len(t, records, 130)
	assert.Equal(t, int32(2), requests.Load())
}

func TestFetchAll_RetriesThenSucceeds(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			http.Error(w, `{"error":"oops"}`, http.StatusInternalServerError)
			return
		}
		writeSearchResponse(w, []json.RawMessage{json.RawMessage(`{"recall_number":"D-1"}`)})
	}))
	defer srv.Close()

	c := newTestClient(srv, "")
	records, err := c.FetchAll(context.Background(), drugEndpoint, 10, 10)
	require.NoError(t, err)

	assert.Len(t, records, 1)
	assert.Equal(t, int32(3), requests.Load())
}

func TestFetchAll_ExhaustedRetriesPropagate(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv, "")
	_, err := c.FetchAll(context.Background(), foodEndpoint, 10, 10)
	require.Error(t, err)

	var upstream *resilience.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusBadGateway, upstream.StatusCode)
	assert.Equal(t, int32(3), requests.Load())
}

func TestFetchPage_UpstreamErrorSnippetTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		for range 100 {
			w.Write([]byte("very long upstream error body "))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv, "")
	_, err := c.fetchPage(context.Background(), foodEndpoint, 10, 0)
	require.Error(t, err)

	var upstream *resilience.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Len(t, upstream.Body, 500)
}

func TestWithAPIKey_InsertedAfterQueryOpener(t *testing.T) {
	c := &Client{apiKey: "secret"}

	got := c.withAPIKey("https://api.fda.gov/food/enforcement.json?search=x&limit=5")
	assert.Equal(t, "https://api.fda.gov/food/enforcement.json?api_key=secret&search=x&limit=5", got)

	got = c.withAPIKey("https://api.fda.gov/food/enforcement.json")
	assert.Equal(t, "https://api.fda.gov/food/enforcement.json?api_key=secret", got)
}

func TestWithAPIKey_EmptyKeyLeavesURL(t *testing.T) {
	c := &Client{}
	url := "https://api.fda.gov/food/enforcement.json?search=x"
	assert.Equal(t, url, c.withAPIKey(url))
}

func TestFetchPage_SendsAPIKey(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		writeSearchResponse(w, nil)
	}))
	defer srv.Close()

	c := newTestClient(srv, "test-key")
	_, err := c.fetchPage(context.Background(), foodEndpoint, 5, 0)
	require.NoError(t, err)

	assert.True(t, len(gotQuery) > 0 && gotQuery[:17] == "api_key=test-key&",
		"api_key should lead the query string, got %q", gotQuery)
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSearchResponse(w, nil)
	}))
	defer srv.Close()

	c := newTestClient(srv, "")
	probe, err := c.Probe(context.Background())
	require.NoError(t, err)
	assert.True(t, probe.OK)
	assert.Contains(t, probe.Info, "reachable")
}

func TestProbe_UpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv, "")
	probe, err := c.Probe(context.Background())
	require.NoError(t, err)
	assert.False(t, probe.OK)
	assert.Equal(t, http.StatusBadGateway, probe.Status)
	assert.Equal(t, "Bad Gateway", probe.StatusText)
}

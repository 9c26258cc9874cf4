// Package openfda fetches food and drug enforcement records from the openFDA
// API with pagination, bounded retries, and per-source error collection.
package openfda

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/KennyGael/Hazard-Atlas/internal/config"
	"github.com/KennyGael/Hazard-Atlas/internal/resilience"
)

// dateRangeFilter is baked into every enforcement query. The "+TO+" form is
// the openFDA range syntax and must not be re-encoded.
const dateRangeFilter = "search=report_date:[20200101+TO+20241231]"

const (
	foodEndpoint = "/food/enforcement.json"
	drugEndpoint = "/drug/enforcement.json"

	// pageDelay separates consecutive page requests against one endpoint.
	pageDelay = 200 * time.Millisecond
)

// Client issues paginated enforcement queries against openFDA.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retry      resilience.RetryConfig
	userAgent  string
}

// NewClient creates a Client from configuration. Each HTTP call is bounded by
// a 30s timeout; attempts default to 3 with 700ms doubling backoff.
func NewClient(cfg config.OpenFDAConfig) *Client {
	retry := resilience.DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.fda.gov"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		retry:      retry,
		userAgent:  "hazard-atlas/1.0",
	}
}

// endpointURL builds the full query URL for an enforcement endpoint with the
// fixed date-range filter.
func (c *Client) endpointURL(endpoint string) string {
	return c.baseURL + endpoint + "?" + dateRangeFilter
}

// withAPIKey inserts the api_key parameter immediately after the query-string
// opener, per openFDA guidance that the key should lead the query.
func (c *Client) withAPIKey(rawURL string) string {
	if c.apiKey == "" {
		return rawURL
	}
	key := "api_key=" + url.QueryEscape(c.apiKey)
	if i := strings.Index(rawURL, "?"); i >= 0 {
		return rawURL[:i+1] + key + "&" + rawURL[i+1:]
	}
	return rawURL + "?" + key
}

// fetchPage requests one page of results. Non-2xx responses become
// UpstreamErrors carrying the status and a truncated body snippet; both
// transport failures and upstream errors are retried with backoff.
func (c *Client) fetchPage(ctx context.Context, endpoint string, limit, skip int) ([]json.RawMessage, error) {
	pageURL := c.withAPIKey(fmt.Sprintf("%s&limit=%d&skip=%d", c.endpointURL(endpoint), limit, skip))

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger(endpoint)

	return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]json.RawMessage, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "openfda: build request")
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, eris.Wrapf(err, "openfda: request %s", endpoint)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "openfda: read body")
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, resilience.NewUpstreamError(endpoint, resp.StatusCode, string(body))
		}

		var parsed searchResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, eris.Wrap(err, "openfda: parse response")
		}
		return parsed.Results, nil
	})
}

// FetchAll pages through an endpoint until maxRecords are accumulated or a
// page comes back short (end of data). A 200ms politeness delay separates
// consecutive page requests.
func (c *Client) FetchAll(ctx context.Context, endpoint string, maxRecords, pageSize int) ([]json.RawMessage, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var all []json.RawMessage
	skip := 0
	for len(all) < maxRecords {
		limit := pageSize
		if remaining := maxRecords - len(all); remaining < limit {
			limit = remaining
		}

		page, err := c.fetchPage(ctx, endpoint, limit, skip)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		skip += len(page)

		zap.L().Debug("fetched page",
			zap.String("endpoint", endpoint),
			zap.Int("page_records", len(page)),
			zap.Int("total_records", len(all)),
		)

		if len(page) < limit {
			break
		}
		if len(all) < maxRecords {
			if err := sleepCtx(ctx, pageDelay); err != nil {
				return all, err
			}
		}
	}

	return all, nil
}

// ProbeResult describes one connectivity check against the openFDA host.
type ProbeResult struct {
	OK         bool   `json:"ok"`
	ElapsedMS  int64  `json:"elapsed_ms,omitempty"`
	Info       string `json:"info,omitempty"`
	Status     int    `json:"status,omitempty"`
	StatusText string `json:"statusText,omitempty"`
}

// Probe issues one lightweight request against the openFDA host to tell
// "upstream has no data for us" apart from "upstream is unreachable".
func (c *Client) Probe(ctx context.Context) (*ProbeResult, error) {
	probeURL := c.withAPIKey(c.baseURL + foodEndpoint + "?limit=1")

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "openfda: build probe request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "openfda: probe request")
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	elapsed := time.Since(start)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProbeResult{
			OK:         false,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
		}, nil
	}

	return &ProbeResult{
		OK:        true,
		ElapsedMS: elapsed.Milliseconds(),
		Info:      fmt.Sprintf("%s reachable", c.baseURL),
	}, nil
}

// sleepCtx sleeps for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

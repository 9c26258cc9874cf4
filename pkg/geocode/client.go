// Package geocode resolves free-text addresses into coordinates via the
// Nominatim search API.
package geocode

import (
	"context"
	"net/http"
	"time"
)

// Coord is a latitude/longitude pair.
type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Client geocodes a single address. A nil Coord with a nil error means the
// service answered but found no match; callers cache that outcome too.
type Client interface {
	Geocode(ctx context.Context, address string) (*Coord, error)
}

// Option configures the Nominatim client.
type Option func(*nominatim)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *nominatim) {
		n.httpClient = hc
	}
}

// WithBaseURL points the client at a different Nominatim instance.
func WithBaseURL(base string) Option {
	return func(n *nominatim) {
		n.baseURL = base
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy requires
// an identifying agent, so the default names this application.
func WithUserAgent(ua string) Option {
	return func(n *nominatim) {
		n.userAgent = ua
	}
}

// NewClient creates a Nominatim-backed Client with the given options.
func NewClient(opts ...Option) Client {
	n := &nominatim{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    "https://nominatim.openstreetmap.org",
		userAgent:  "hazard-atlas/1.0",
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

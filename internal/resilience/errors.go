package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"unicode/utf8"
)

// snippetLimit bounds how much of an upstream response body is kept in an
// UpstreamError message.
const snippetLimit = 500

// UpstreamError is a non-2xx response from an upstream API. The body snippet
// is truncated so a misbehaving upstream cannot flood logs or error payloads.
type UpstreamError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

// NewUpstreamError builds an UpstreamError, truncating body to 500 characters.
// The cut backs up to a rune boundary so the snippet is never broken UTF-8.
func NewUpstreamError(endpoint string, statusCode int, body string) *UpstreamError {
	if len(body) > snippetLimit {
		cut := snippetLimit
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return &UpstreamError{Endpoint: endpoint, StatusCode: statusCode, Body: body}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// IsHardNetwork reports whether err (or anything in its chain) looks like a
// hard network-level failure: connection refused/reset, timeout, DNS failure,
// TLS or socket errors. These suppress the dual-zero connectivity fallback:
// if the network itself is down, probing upstream again is pointless.
func IsHardNetwork(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// String heuristics for errors wrapped by HTTP clients.
	msg := strings.ToLower(err.Error())
	hardPatterns := []string{
		"connection refused",
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake",
		"i/o timeout",
		"context deadline exceeded",
		"network is unreachable",
		"socket",
	}
	for _, p := range hardPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

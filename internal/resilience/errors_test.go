package resilience

import (
	"strings"
	"syscall"
	"testing"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestNewUpstreamError_TruncatesBody(t *testing.T) {
	long := strings.Repeat("x", 2000)
	err := NewUpstreamError("/food/enforcement.json", 500, long)

	assert.Len(t, err.Body, 500)
	assert.Equal(t, 500, err.StatusCode)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNewUpstreamError_TruncatesOnRuneBoundary(t *testing.T) {
	// 498 ASCII bytes followed by a 3-byte rune straddling the 500-byte limit.
	long := strings.Repeat("x", 498) + strings.Repeat("世", 10)
	err := NewUpstreamError("/food/enforcement.json", 500, long)

	assert.True(t, utf8.ValidString(err.Body))
	assert.LessOrEqual(t, len(err.Body), 500)
	assert.Equal(t, 498, len(err.Body), "partial rune at the cut is dropped")
}

func TestNewUpstreamError_ShortBodyKept(t *testing.T) {
	err := NewUpstreamError("/drug/enforcement.json", 404, `{"error":"NOT_FOUND"}`)
	assert.Equal(t, `{"error":"NOT_FOUND"}`, err.Body)
}

func TestIsHardNetwork(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused errno", syscall.ECONNREFUSED, true},
		{"connection reset errno", syscall.ECONNRESET, true},
		{"wrapped refused", eris.Wrap(syscall.ECONNREFUSED, "dial"), true},
		{"dns message", eris.New("lookup api.fda.gov: no such host"), true},
		{"tls message", eris.New("tls handshake timeout"), true},
		{"io timeout message", eris.New("read tcp: i/o timeout"), true},
		{"deadline message", eris.New("context deadline exceeded"), true},
		{"upstream 500", NewUpstreamError("/food/enforcement.json", 500, "boom"), false},
		{"not found", NewUpstreamError("/drug/enforcement.json", 404, "no matches"), false},
		{"plain error", eris.New("no results returned"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHardNetwork(tt.err))
		})
	}
}

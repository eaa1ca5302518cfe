package spotify

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// DefaultRequestRate caps outgoing Web API requests per second. Rebuilds page
// through the whole playlist back to back, so they are what this throttles.
const DefaultRequestRate = 10

// limitedTransport waits on a shared limiter before each request.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}
	return t.base.RoundTrip(req)
}

// withLimiter wraps base so that requests wait on limiter. A nil limiter
// returns base unchanged.
func withLimiter(base http.RoundTripper, limiter *rate.Limiter) http.RoundTripper {
	if limiter == nil {
		return base
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &limitedTransport{base: base, limiter: limiter}
}
